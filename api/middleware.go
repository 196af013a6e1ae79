package api

import (
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/securebackend/sbops/internal/logging"
)

// HeaderRequestID carries the request ID in both directions.
const HeaderRequestID = "X-Request-ID"

const ctxKeyRequestID = "request_id"

// originAllowed reports whether origin matches one of the patterns. A pattern
// may hold a single "*" label wildcard, as in https://*.azurewebsites.net.
func originAllowed(origin string, patterns []string) bool {
	if origin == "" {
		return false
	}
	for _, p := range patterns {
		if p == "*" || p == origin {
			return true
		}
		prefix, suffix, ok := strings.Cut(p, "*")
		if !ok {
			continue
		}
		if len(origin) <= len(prefix)+len(suffix) {
			continue
		}
		if strings.HasPrefix(origin, prefix) && strings.HasSuffix(origin, suffix) {
			host := origin[len(prefix) : len(origin)-len(suffix)]
			if !strings.ContainsAny(host, "/:") {
				return true
			}
		}
	}
	return false
}

// CORS answers preflight requests and sets the allow headers for matching origins.
func CORS(allowOrigins []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		preflight := c.Request.Method == http.MethodOptions && c.Request.Header.Get("Access-Control-Request-Method") != ""
		if !originAllowed(origin, allowOrigins) {
			if preflight && origin != "" {
				c.Header("Vary", "Origin")
				c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"detail": "Disallowed CORS origin"})
				return
			}
			c.Next()
			return
		}
		c.Header("Access-Control-Allow-Origin", origin)
		c.Header("Access-Control-Allow-Credentials", "true")
		c.Header("Vary", "Origin")
		if preflight {
			c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			if h := c.Request.Header.Get("Access-Control-Request-Headers"); h != "" {
				c.Header("Access-Control-Allow-Headers", h)
			}
			c.Header("Access-Control-Max-Age", "600")
			c.AbortWithStatus(http.StatusOK)
			return
		}
		c.Next()
	}
}

// rateLimiter keeps one token bucket per client.
type rateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	rate     rate.Limit
	burst    int
}

func newRateLimiter(rps float64, burst int) *rateLimiter {
	return &rateLimiter{
		limiters: make(map[string]*rate.Limiter),
		rate:     rate.Limit(rps),
		burst:    burst,
	}
}

func (rl *rateLimiter) allow(key string) bool {
	rl.mu.Lock()
	l, ok := rl.limiters[key]
	if !ok {
		l = rate.NewLimiter(rl.rate, rl.burst)
		rl.limiters[key] = l
	}
	rl.mu.Unlock()
	return l.Allow()
}

// sweep drops buckets that have refilled completely.
func (rl *rateLimiter) sweep() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	for k, l := range rl.limiters {
		if l.Tokens() >= float64(rl.burst) {
			delete(rl.limiters, k)
		}
	}
}

func (rl *rateLimiter) sweepLoop(done <-chan struct{}, every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-done:
			return
		case <-t.C:
			rl.sweep()
		}
	}
}

// RateLimitByIP rejects clients exceeding rps with 429. The sweeper stops when done closes.
func RateLimitByIP(rps float64, burst int, m *Metrics, done <-chan struct{}) gin.HandlerFunc {
	rl := newRateLimiter(rps, burst)
	if done != nil {
		go rl.sweepLoop(done, time.Minute)
	}
	return func(c *gin.Context) {
		if !rl.allow(c.ClientIP()) {
			if m != nil {
				m.rateLimited.Inc()
			}
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"detail": "Rate limit exceeded"})
			return
		}
		c.Next()
	}
}

// RequestID reuses an incoming X-Request-ID or generates one.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderRequestID)
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		c.Set(ctxKeyRequestID, id)
		c.Header(HeaderRequestID, id)
		c.Next()
	}
}

// RequestLogger attaches a request scoped logger and logs completion.
func RequestLogger(logger logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		log := logger.With(
			"request_id", c.GetString(ctxKeyRequestID),
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"remote_addr", c.ClientIP(),
		)
		ctx := logging.WithLogger(c.Request.Context(), log)
		c.Request = c.Request.WithContext(ctx)

		c.Next()

		kv := []any{
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"size", c.Writer.Size(),
		}
		if len(c.Errors) > 0 {
			kv = append(kv, "err", c.Errors.String())
		}
		switch status := c.Writer.Status(); {
		case status >= 500:
			log.Error(ctx, "request failed", kv...)
		case status >= 400:
			log.Warn(ctx, "request rejected", kv...)
		default:
			log.Info(ctx, "request completed", kv...)
		}
	}
}

// MetricsMiddleware records request count, latency and response size.
func MetricsMiddleware(m *Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		m.requestsInFlight.Inc()
		defer m.requestsInFlight.Dec()
		start := time.Now()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		method := c.Request.Method
		m.requestsTotal.WithLabelValues(method, path, strconv.Itoa(c.Writer.Status())).Inc()
		m.requestDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
		if size := c.Writer.Size(); size >= 0 {
			m.responseSize.WithLabelValues(method, path).Observe(float64(size))
		}
	}
}
