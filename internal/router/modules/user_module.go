package modules

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	handlers "github.com/oksasatya/student-store/internal/interface/http"
	"github.com/oksasatya/student-store/internal/interface/middleware"
)

// UserModule serves the caller's own profile.
// Protected: GET /auth/me, PATCH /auth/me
type UserModule struct {
	Handler *handlers.UserHandler
	Tokens  middleware.TokenVerifier
	Redis   *redis.Client
}

func NewUserModule(h *handlers.UserHandler, tokens middleware.TokenVerifier, rdb *redis.Client) *UserModule {
	return &UserModule{Handler: h, Tokens: tokens, Redis: rdb}
}

func (m *UserModule) Register(rg *gin.RouterGroup) {
	me := rg.Group("/auth/me")
	me.Use(middleware.Auth(m.Tokens))
	me.Use(middleware.RateLimit(m.Redis, 120, time.Minute, middleware.KeyByUserID(), nil))
	{
		me.GET("", m.Handler.Me)
		me.PATCH("", m.Handler.UpdateMe)
	}
}
