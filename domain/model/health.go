package model

import (
	"context"
	"time"
)

// HealthCheck describes an HTTP probe of a deployed endpoint.
type HealthCheck struct {
	URL      string
	Insecure bool // skip TLS verification (self-signed certificates)
	Attempts int
	Interval time.Duration
	Timeout  time.Duration // per attempt
}

// HealthResult is the outcome of a HealthCheck.
type HealthResult struct {
	URL        string        `json:"url"`
	Healthy    bool          `json:"healthy"`
	StatusCode int           `json:"statusCode,omitempty"`
	Body       string        `json:"body,omitempty"`
	Latency    time.Duration `json:"latency"`
	Attempts   int           `json:"attempts"`
	Error      string        `json:"error,omitempty"`
}

// HealthPort probes endpoints.
type HealthPort interface {
	Check(ctx context.Context, hc HealthCheck) (*HealthResult, error)
}
