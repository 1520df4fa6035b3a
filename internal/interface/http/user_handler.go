package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/student-store/internal/application"
	"github.com/oksasatya/student-store/internal/interface/middleware"
	"github.com/oksasatya/student-store/pkg/response"
)

type UserHandler struct {
	Svc    *application.UserService
	Logger *logrus.Logger
}

func NewUserHandler(svc *application.UserService, logger *logrus.Logger) *UserHandler {
	return &UserHandler{Svc: svc, Logger: logger}
}

// Me GET /auth/me
func (h *UserHandler) Me(c *gin.Context) {
	u, err := h.Svc.GetSelf(c.Request.Context(), c.GetString(middleware.CtxUserID))
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, toUserResponse(u), "ok", nil)
}

// UpdateMe PATCH /auth/me
func (h *UserHandler) UpdateMe(c *gin.Context) {
	var req application.UpdateProfileInput
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	u, err := h.Svc.UpdateSelf(c.Request.Context(), c.GetString(middleware.CtxUserID), req)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, toUserResponse(u), "profile updated", nil)
}
