package health

import (
	"context"
	"errors"
	"testing"

	"github.com/securebackend/sbops/domain/model"
	"github.com/securebackend/sbops/usecase/usecasetest"
)

func newUseCase(t *testing.T, mutate func(c *model.Cluster, b *model.Backend)) (*UseCase, *usecasetest.Ports) {
	t.Helper()
	repos := usecasetest.Seed(t, mutate)
	ports := usecasetest.NewPorts()
	return &UseCase{Repos: &Repos{Backend: repos.Backend}, HealthPort: ports.Health}, ports
}

func TestBackendHealthURL(t *testing.T) {
	tests := []struct {
		b    model.Backend
		want string
	}{
		{model.Backend{Host: "api.example.com", HealthPath: "/health"}, "https://api.example.com/health"},
		{model.Backend{Host: "api.example.com", HealthPath: "healthz", TLS: model.BackendTLS{Mode: model.TLSModeNone}}, "http://api.example.com/healthz"},
		{model.Backend{Host: "api.example.com"}, "https://api.example.com/health"},
	}
	for _, tt := range tests {
		got, err := backendHealthURL(&tt.b)
		if err != nil || got != tt.want {
			t.Errorf("backendHealthURL(%+v) = %q, %v; want %q", tt.b, got, err, tt.want)
		}
	}
	if _, err := backendHealthURL(&model.Backend{Name: "x"}); err == nil {
		t.Error("expected error without host")
	}
}

func TestCheck(t *testing.T) {
	u, ports := newUseCase(t, func(_ *model.Cluster, b *model.Backend) {
		b.TLS.Mode = model.TLSModeSelfSigned
	})
	out, err := u.Check(context.Background(), &CheckInput{BackendID: usecasetest.BackendID, Attempts: 3})
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if !out.Healthy || out.URL != "https://api.example.com/health" {
		t.Errorf("unexpected result %+v", out)
	}
	hc := ports.Health.Checks[0]
	if !hc.Insecure || hc.Attempts != 3 {
		t.Errorf("unexpected check %+v", hc)
	}

	secure := false
	if _, err := u.Check(context.Background(), &CheckInput{BackendID: usecasetest.BackendID, Insecure: &secure}); err != nil {
		t.Fatal(err)
	}
	if ports.Health.Checks[1].Insecure {
		t.Error("Insecure override ignored")
	}
}

func TestCheckStrict(t *testing.T) {
	u, ports := newUseCase(t, nil)
	ports.Health.Healthy = false

	out, err := u.Check(context.Background(), &CheckInput{URL: "https://x.example.com/health"})
	if err != nil || out.Healthy {
		t.Errorf("non-strict unhealthy = %+v, %v", out, err)
	}
	out, err = u.Check(context.Background(), &CheckInput{URL: "https://x.example.com/health", Strict: true})
	if !errors.Is(err, ErrUnhealthy) || out == nil {
		t.Errorf("strict unhealthy should return result and ErrUnhealthy, got %+v %v", out, err)
	}
	if _, err := u.Check(context.Background(), &CheckInput{}); err == nil {
		t.Error("expected error without target")
	}
}
