// Package metrics collects and exposes Prometheus metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder is what the services report to.
type Recorder interface {
	RecordCompression(attempts, size int, withinTarget bool, d time.Duration)
	RecordUploadFailure()
	RecordLogin(result string)
}

// Collector is the Prometheus-backed Recorder.
type Collector struct {
	compressions     *prometheus.CounterVec
	attempts         prometheus.Histogram
	compressedBytes  prometheus.Histogram
	compressDuration prometheus.Histogram
	uploadFail       prometheus.Counter
	logins           *prometheus.CounterVec
}

// NewCollector registers the metrics on reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		compressions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "student_store_image_compressions_total",
			Help: "Images compressed, by whether the size target was met",
		}, []string{"within_target"}),
		attempts: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "student_store_image_compression_attempts",
			Help:    "JPEG encodes needed per image",
			Buckets: []float64{1, 2, 4, 8, 12, 16, 20, 25, 30},
		}),
		compressedBytes: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "student_store_image_compressed_bytes",
			Help:    "Size of the stored JPEG",
			Buckets: prometheus.ExponentialBuckets(16*1024, 2, 8),
		}),
		compressDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "student_store_image_compression_seconds",
			Help:    "Time spent compressing one image",
			Buckets: prometheus.DefBuckets,
		}),
		uploadFail: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "student_store_image_upload_fail_total",
			Help: "Blob uploads that failed",
		}),
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "student_store_logins_total",
			Help: "OAuth logins by outcome",
		}, []string{"result"}),
	}

	reg.MustRegister(
		c.compressions,
		c.attempts,
		c.compressedBytes,
		c.compressDuration,
		c.uploadFail,
		c.logins,
	)
	return c
}

func (c *Collector) RecordCompression(attempts, size int, withinTarget bool, d time.Duration) {
	c.compressions.WithLabelValues(strconv.FormatBool(withinTarget)).Inc()
	c.attempts.Observe(float64(attempts))
	c.compressedBytes.Observe(float64(size))
	c.compressDuration.Observe(d.Seconds())
}

func (c *Collector) RecordUploadFailure() { c.uploadFail.Inc() }

// RecordLogin counts a login outcome: "found", "created" or "failed".
func (c *Collector) RecordLogin(result string) {
	c.logins.WithLabelValues(result).Inc()
}

// Nop discards everything.
type Nop struct{}

func (Nop) RecordCompression(int, int, bool, time.Duration) {}
func (Nop) RecordUploadFailure()                             {}
func (Nop) RecordLogin(string)                               {}

// Handler serves the registry for Prometheus scraping.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
