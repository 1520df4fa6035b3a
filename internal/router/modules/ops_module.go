package modules

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/oksasatya/student-store/internal/metrics"
)

// OpsModule serves GET /healthz and, when enabled, GET /metrics.
type OpsModule struct {
	Gatherer prometheus.Gatherer
	Metrics  bool
}

func NewOpsModule(g prometheus.Gatherer, enabled bool) *OpsModule {
	return &OpsModule{Gatherer: g, Metrics: enabled && g != nil}
}

func (m *OpsModule) Register(rg *gin.RouterGroup) {
	rg.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if m.Metrics {
		rg.GET("/metrics", gin.WrapH(metrics.Handler(m.Gatherer)))
	}
}
