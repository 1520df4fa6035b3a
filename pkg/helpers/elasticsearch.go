package helpers

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
)

// ESOptions configures NewESClient. Zero timeouts use 5s.
type ESOptions struct {
	Addrs       []string
	Username    string
	Password    string
	DialTimeout time.Duration
	MaxRetries  int
}

// NewESClient creates an Elasticsearch client with optional basic auth and
// verifies the cluster answers a ping.
func NewESClient(ctx context.Context, o ESOptions) (*elasticsearch.Client, error) {
	if len(o.Addrs) == 0 {
		return nil, fmt.Errorf("elasticsearch: no addresses")
	}
	dial := o.DialTimeout
	if dial <= 0 {
		dial = 5 * time.Second
	}
	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses:  o.Addrs,
		Username:   o.Username,
		Password:   o.Password,
		MaxRetries: o.MaxRetries,
		Transport: &http.Transport{
			MaxIdleConnsPerHost:   10,
			ResponseHeaderTimeout: dial,
			TLSClientConfig:       &tls.Config{MinVersion: tls.VersionTLS12},
			DialContext:           (&net.Dialer{Timeout: dial}).DialContext,
		},
	})
	if err != nil {
		return nil, err
	}

	c, cancel := context.WithTimeout(ctx, dial)
	defer cancel()
	res, err := es.Ping(es.Ping.WithContext(c))
	if err != nil {
		return nil, fmt.Errorf("elasticsearch ping: %w", err)
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() {
		return nil, fmt.Errorf("elasticsearch ping: %s", res.Status())
	}
	return es, nil
}
