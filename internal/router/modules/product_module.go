package modules

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	handlers "github.com/oksasatya/student-store/internal/interface/http"
	"github.com/oksasatya/student-store/internal/interface/middleware"
)

// ProductModule serves listings. Creation takes an optional bearer token for
// the seller id; every other route is public.
type ProductModule struct {
	Handler *handlers.ProductHandler
	Tokens  middleware.TokenVerifier
	Redis   *redis.Client
}

func NewProductModule(h *handlers.ProductHandler, tokens middleware.TokenVerifier, rdb *redis.Client) *ProductModule {
	return &ProductModule{Handler: h, Tokens: tokens, Redis: rdb}
}

func (m *ProductModule) Register(rg *gin.RouterGroup) {
	createLimiter := middleware.RateLimit(m.Redis, 20, time.Minute, middleware.KeyByUserID(), nil)
	readLimiter := middleware.RateLimit(m.Redis, 300, time.Minute, middleware.KeyByIP(), middleware.AllowPrivateIP())

	p := rg.Group("/products")
	p.POST("", middleware.OptionalAuth(m.Tokens), createLimiter, m.Handler.Create)

	p.Use(readLimiter)
	{
		p.GET("", m.Handler.List)
		p.GET("/search", m.Handler.Search)
		p.GET("/:id", m.Handler.Get)
		p.PUT("/:id", m.Handler.Update)
		p.DELETE("/:id", m.Handler.Delete)
		p.PATCH("/:id/sold", m.Handler.MarkSold)
	}
}
