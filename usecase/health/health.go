// Package health checks the deployed backend health endpoint.
package health

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/securebackend/sbops/domain"
	"github.com/securebackend/sbops/domain/model"
)

// Repos holds repositories needed for health checks.
type Repos struct {
	Backend domain.BackendRepository
}

// UseCase wires the backend repository and the health port.
type UseCase struct {
	Repos      *Repos
	HealthPort model.HealthPort
}

// CheckInput selects the endpoint to probe.
type CheckInput struct {
	BackendID string `json:"backend_id,omitempty"`
	// URL overrides https://<host><healthPath>.
	URL      string        `json:"url,omitempty"`
	Attempts int           `json:"attempts,omitempty"`
	Interval time.Duration `json:"interval,omitempty"`
	Timeout  time.Duration `json:"timeout,omitempty"`
	// Insecure defaults to true for self-signed backends.
	Insecure *bool `json:"insecure,omitempty"`
	// Strict turns an unhealthy result into an error.
	Strict bool `json:"strict,omitempty"`
}

// CheckOutput wraps the probe result.
type CheckOutput struct {
	model.HealthResult
}

// ErrUnhealthy is returned by strict checks of an unhealthy endpoint.
var ErrUnhealthy = errors.New("health check failed")

// Check probes the backend health endpoint.
func (u *UseCase) Check(ctx context.Context, in *CheckInput) (*CheckOutput, error) {
	if in == nil {
		return nil, fmt.Errorf("input is nil")
	}
	hc := model.HealthCheck{
		URL:      in.URL,
		Attempts: in.Attempts,
		Interval: in.Interval,
		Timeout:  in.Timeout,
	}
	if in.BackendID != "" {
		b, err := u.Repos.Backend.Get(ctx, in.BackendID)
		if err != nil {
			return nil, err
		}
		if hc.URL == "" {
			if hc.URL, err = backendHealthURL(b); err != nil {
				return nil, err
			}
		}
		hc.Insecure = b.TLS.Mode == model.TLSModeSelfSigned
	}
	if hc.URL == "" {
		return nil, fmt.Errorf("BackendID or URL is required")
	}
	if in.Insecure != nil {
		hc.Insecure = *in.Insecure
	}
	res, err := u.HealthPort.Check(ctx, hc)
	if err != nil {
		return nil, err
	}
	if in.Strict && !res.Healthy {
		return &CheckOutput{HealthResult: *res}, fmt.Errorf("%w: %s (status %d)", ErrUnhealthy, res.URL, res.StatusCode)
	}
	return &CheckOutput{HealthResult: *res}, nil
}

// backendHealthURL returns https://<host><healthPath>, or http:// when TLS
// is disabled.
func backendHealthURL(b *model.Backend) (string, error) {
	if b.Host == "" {
		return "", fmt.Errorf("backend %s has no host; pass a URL", b.Name)
	}
	scheme := "https"
	if b.TLS.Mode == model.TLSModeNone {
		scheme = "http"
	}
	path := b.HealthPath
	if path == "" {
		path = "/health"
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	u := url.URL{Scheme: scheme, Host: b.Host, Path: path}
	return u.String(), nil
}
