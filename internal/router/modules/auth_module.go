package modules

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	handlers "github.com/oksasatya/student-store/internal/interface/http"
	"github.com/oksasatya/student-store/internal/interface/middleware"
)

// AuthModule serves the Google login flow.
// Public: GET /auth/google/login, GET /auth/google/callback, POST /auth/logout
type AuthModule struct {
	Handler *handlers.AuthHandler
	Redis   *redis.Client
}

func NewAuthModule(h *handlers.AuthHandler, rdb *redis.Client) *AuthModule {
	return &AuthModule{Handler: h, Redis: rdb}
}

func (m *AuthModule) Register(rg *gin.RouterGroup) {
	loginLimiter := middleware.RateLimit(m.Redis, 30, time.Minute, middleware.KeyByIPAndPath(), nil)

	rg.GET("/auth/google/login", loginLimiter, m.Handler.Login)
	rg.GET("/auth/google/callback", loginLimiter, m.Handler.Callback)
	rg.POST("/auth/logout", m.Handler.Logout)
}
