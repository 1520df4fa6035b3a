// Package container holds the constructed components shared by the router
// modules. main builds one Container and passes it down explicitly.
package container

import (
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/student-store/config"
	"github.com/oksasatya/student-store/internal/application"
	repo "github.com/oksasatya/student-store/internal/domain/repository"
	"github.com/oksasatya/student-store/internal/infrastructure/cache"
	"github.com/oksasatya/student-store/internal/infrastructure/search"
	"github.com/oksasatya/student-store/internal/metrics"
	"github.com/oksasatya/student-store/pkg/helpers"
)

type Container struct {
	Config *config.Config
	Logger *logrus.Logger

	// Optional clients; nil disables the feature they back.
	Pool  *pgxpool.Pool
	Redis *redis.Client
	ES    *elasticsearch.Client
	Pub   helpers.JSONPublisher

	Users    repo.UserRepository
	Products repo.ProductRepository
	Blobs    repo.BlobStore
	Provider application.IdentityProvider
	JWT      *helpers.JWTManager

	Registry *prometheus.Registry
	Metrics  metrics.Recorder
}

// Cache returns the listing cache, or nil without Redis.
func (c *Container) Cache() repo.ProductCache {
	if c.Redis == nil {
		return nil
	}
	return cache.NewProductCache(c.Redis, c.Config.ProductCacheTTL)
}

// Index returns the search index, or nil without Elasticsearch.
func (c *Container) Index() repo.ProductIndex {
	if c.ES == nil {
		return nil
	}
	return search.NewProductIndex(c.ES, c.Config.ESProductsIndex)
}

func (c *Container) Recorder() metrics.Recorder {
	if c.Metrics == nil {
		return metrics.Nop{}
	}
	return c.Metrics
}
