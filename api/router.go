// Package api serves the secure-backend HTTP API.
package api

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/securebackend/sbops/internal/logging"
)

// DefaultAllowOrigins are the browser origins admitted by CORS.
var DefaultAllowOrigins = []string{
	"https://frontend-webapp-container.azurewebsites.net",
	"https://*.azurewebsites.net",
}

// Config configures NewRouter.
type Config struct {
	// Token is the accepted bearer token. Required.
	Token string
	// ServiceName is reported by /health. Defaults to DefaultServiceName.
	ServiceName string
	// AllowOrigins defaults to DefaultAllowOrigins.
	AllowOrigins []string
	// RateLimit is the per-IP request rate. Zero disables limiting.
	RateLimit float64
	RateBurst int
	// Logger defaults to logging.Discard().
	Logger logging.Logger
	// Metrics defaults to a new registry.
	Metrics *Metrics
	// Done stops background goroutines when closed.
	Done <-chan struct{}
	// Now defaults to time.Now.
	Now func() time.Time
}

// NewRouter builds the gin engine with middleware and routes.
func NewRouter(cfg Config) (*gin.Engine, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("api token is required")
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = DefaultServiceName
	}
	if cfg.AllowOrigins == nil {
		cfg.AllowOrigins = DefaultAllowOrigins
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Discard()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Metrics == nil {
		m, err := NewMetrics()
		if err != nil {
			return nil, fmt.Errorf("init metrics: %w", err)
		}
		cfg.Metrics = m
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(MetricsMiddleware(cfg.Metrics))
	r.Use(RequestID())
	r.Use(RequestLogger(cfg.Logger))
	if len(cfg.AllowOrigins) > 0 {
		r.Use(CORS(cfg.AllowOrigins))
	}
	if cfg.RateLimit > 0 {
		burst := cfg.RateBurst
		if burst <= 0 {
			burst = max(1, int(cfg.RateLimit))
		}
		r.Use(RateLimitByIP(cfg.RateLimit, burst, cfg.Metrics, cfg.Done))
	}

	h := &handler{service: cfg.ServiceName, now: cfg.Now}
	r.GET("/health", h.health)
	r.POST("/process", RequireBearer(cfg.Token, cfg.Metrics), h.process)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(cfg.Metrics.Registry, promhttp.HandlerOpts{})))
	return r, nil
}
