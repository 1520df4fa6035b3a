package handlers

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/student-store/internal/application"
	"github.com/oksasatya/student-store/internal/domain/errs"
	"github.com/oksasatya/student-store/pkg/helpers"
	"github.com/oksasatya/student-store/pkg/response"
)

type AuthHandler struct {
	Svc         *application.AuthService
	Logger      *logrus.Logger
	Cookies     *helpers.Manager
	FrontendURL string
}

func NewAuthHandler(svc *application.AuthService, logger *logrus.Logger, cookies *helpers.Manager, frontendURL string) *AuthHandler {
	return &AuthHandler{Svc: svc, Logger: logger, Cookies: cookies, FrontendURL: frontendURL}
}

// Login GET /auth/google/login
// The state is bound to this browser through a short-lived cookie.
func (h *AuthHandler) Login(c *gin.Context) {
	state := uuid.NewString()
	authURL := h.Svc.BuildAuthorizationURL(state)
	if authURL == "" {
		response.Error[any](c, http.StatusInternalServerError, "failed to generate Google auth URL", response.ErrorBody{Code: "internal"})
		return
	}
	h.Cookies.SetState(c, state)
	response.Success(c, http.StatusOK, gin.H{"auth_url": authURL}, "ok", nil)
}

// Callback GET /auth/google/callback
// Every outcome is a redirect to the front-end.
func (h *AuthHandler) Callback(c *gin.Context) {
	validState := h.Cookies.CheckState(c, c.Query("state"))
	h.Cookies.ClearState(c)

	if provErr := c.Query("error"); provErr != "" {
		h.redirectError(c, provErr)
		return
	}
	if !validState {
		h.redirectError(c, "invalid_state")
		return
	}
	code := c.Query("code")
	if code == "" {
		h.redirectError(c, "missing_code")
		return
	}

	res, err := h.Svc.CompleteLogin(c.Request.Context(), code)
	if err != nil {
		h.redirectError(c, loginErrorCode(err))
		return
	}

	h.Cookies.SetSession(c, res.Token, res.ExpiresAt)
	q := url.Values{}
	q.Set("token", res.Token)
	q.Set("user_id", res.User.ID)
	q.Set("email", res.User.Email)
	q.Set("name", res.User.Name)
	c.Redirect(http.StatusTemporaryRedirect, h.FrontendURL+"/auth/success?"+q.Encode())
}

func (h *AuthHandler) redirectError(c *gin.Context, code string) {
	q := url.Values{}
	q.Set("error", code)
	c.Redirect(http.StatusTemporaryRedirect, h.FrontendURL+"/auth/error?"+q.Encode())
}

func loginErrorCode(err error) string {
	switch {
	case errors.Is(err, errs.ErrExchange):
		return "exchange_failed"
	case errors.Is(err, errs.ErrUserInfo):
		return "userinfo_failed"
	case errors.Is(err, errs.ErrInvalidProviderData):
		return "invalid_provider_data"
	default:
		return "server_error"
	}
}

// Logout POST /auth/logout
// Tokens are stateless; the client discards its copy and the cookie is cleared.
func (h *AuthHandler) Logout(c *gin.Context) {
	h.Cookies.Clear(c)
	response.Success(c, http.StatusOK, gin.H{"message": "Successfully logged out"}, "logged out", nil)
}
