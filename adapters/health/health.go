// Package health probes HTTP health endpoints of deployed services.
package health

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"k8s.io/apimachinery/pkg/util/wait"

	"github.com/securebackend/sbops/domain/model"
	"github.com/securebackend/sbops/internal/logging"
)

const (
	DefaultAttempts = 5
	DefaultInterval = 5 * time.Second
	DefaultTimeout  = 10 * time.Second
	maxInterval     = 30 * time.Second
	maxBody         = 4096
)

// Prober implements model.HealthPort over net/http.
type Prober struct {
	// Transport overrides the HTTP transport, mainly for tests.
	Transport http.RoundTripper
}

var _ model.HealthPort = (*Prober)(nil)

// Check issues GET requests until a 2xx response or the attempts run out.
// The wait between attempts doubles up to 30s. An unhealthy endpoint is
// reported in the result, not as an error.
func (p *Prober) Check(ctx context.Context, hc model.HealthCheck) (*model.HealthResult, error) {
	u, err := url.Parse(hc.URL)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, fmt.Errorf("invalid health check url %q", hc.URL)
	}
	attempts := hc.Attempts
	if attempts <= 0 {
		attempts = DefaultAttempts
	}
	interval := hc.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	timeout := hc.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	client := &http.Client{Timeout: timeout, Transport: p.transport(hc.Insecure)}
	logger := logging.FromContext(ctx).With("url", hc.URL)

	res := &model.HealthResult{URL: hc.URL}
	backoff := wait.Backoff{Duration: interval, Factor: 2, Cap: maxInterval, Steps: attempts}
	err = backoff.DelayFunc().Until(ctx, true, true, func(ctx context.Context) (bool, error) {
		res.Attempts++
		p.probe(ctx, client, hc.URL, res)
		if res.Healthy {
			logger.Info(ctx, "health check passed", "status", res.StatusCode, "latency", res.Latency, "attempt", res.Attempts)
			return true, nil
		}
		logger.Warn(ctx, "health check failed", "attempt", res.Attempts, "status", res.StatusCode, "err", res.Error)
		return res.Attempts >= attempts, nil
	})
	if err != nil {
		return res, err
	}
	return res, nil
}

func (p *Prober) probe(ctx context.Context, client *http.Client, target string, res *model.HealthResult) {
	res.Healthy, res.StatusCode, res.Body, res.Error = false, 0, "", ""
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		res.Error = err.Error()
		return
	}
	req.Header.Set("Accept", "application/json")
	start := time.Now()
	resp, err := client.Do(req)
	res.Latency = time.Since(start)
	if err != nil {
		res.Error = err.Error()
		return
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	res.StatusCode = resp.StatusCode
	res.Body = strings.TrimSpace(string(body))
	res.Healthy = resp.StatusCode >= 200 && resp.StatusCode < 300
	if !res.Healthy {
		res.Error = resp.Status
	}
}

func (p *Prober) transport(insecure bool) http.RoundTripper {
	if p.Transport != nil {
		return p.Transport
	}
	t := http.DefaultTransport.(*http.Transport).Clone()
	if insecure {
		t.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}
	return t
}
