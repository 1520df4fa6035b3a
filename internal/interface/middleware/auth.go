package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/oksasatya/student-store/pkg/helpers"
	"github.com/oksasatya/student-store/pkg/response"
)

// Context keys set by Auth and OptionalAuth.
const (
	CtxUserID    = "userID"
	CtxUserEmail = "userEmail"
)

// TokenVerifier checks a session token; nil means invalid.
type TokenVerifier interface {
	VerifySessionToken(token string) *helpers.SessionClaims
}

// bearerToken reads "Authorization: Bearer <token>", falling back to the
// session cookie set by the OAuth callback.
func bearerToken(c *gin.Context) string {
	if h := c.GetHeader("Authorization"); h != "" {
		scheme, tok, ok := strings.Cut(h, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") {
			return ""
		}
		return strings.TrimSpace(tok)
	}
	if tok, err := c.Cookie(helpers.SessionCookieName); err == nil {
		return tok
	}
	return ""
}

// Auth rejects the request with 401 unless it carries a valid session token.
// It sets userID and userEmail in the Gin context on success.
func Auth(v TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		tok := bearerToken(c)
		if tok == "" {
			c.Header("WWW-Authenticate", "Bearer")
			response.Error[any](c, http.StatusUnauthorized, "missing bearer token", response.ErrorBody{Code: "unauthorized"})
			return
		}
		claims := v.VerifySessionToken(tok)
		if claims == nil {
			c.Header("WWW-Authenticate", "Bearer")
			response.Error[any](c, http.StatusUnauthorized, "invalid or expired token", response.ErrorBody{Code: "unauthorized"})
			return
		}
		c.Set(CtxUserID, claims.UserID())
		c.Set(CtxUserEmail, claims.Email)
		c.Next()
	}
}

// OptionalAuth sets the identity when a valid token is present and lets
// every request through.
func OptionalAuth(v TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		if tok := bearerToken(c); tok != "" {
			if claims := v.VerifySessionToken(tok); claims != nil {
				c.Set(CtxUserID, claims.UserID())
				c.Set(CtxUserEmail, claims.Email)
			}
		}
		c.Next()
	}
}
