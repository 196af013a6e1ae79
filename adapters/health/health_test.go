package health

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/securebackend/sbops/domain/model"
)

func TestCheck_Healthy(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"healthy"}`))
	}))
	defer srv.Close()

	res, err := (&Prober{}).Check(context.Background(), model.HealthCheck{URL: srv.URL + "/health", Attempts: 1})
	if err != nil {
		t.Fatal(err)
	}
	if !res.Healthy || res.StatusCode != 200 || res.Body != `{"status":"healthy"}` || res.Attempts != 1 {
		t.Errorf("unexpected result: %+v", res)
	}
}

func TestCheck_RetriesUntilHealthy(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	res, err := (&Prober{}).Check(context.Background(), model.HealthCheck{URL: srv.URL, Attempts: 5, Interval: time.Millisecond})
	if err != nil {
		t.Fatal(err)
	}
	if !res.Healthy || res.Attempts != 3 {
		t.Errorf("unexpected result: %+v", res)
	}
}

func TestCheck_Unhealthy(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	res, err := (&Prober{}).Check(context.Background(), model.HealthCheck{URL: srv.URL, Attempts: 2, Interval: time.Millisecond})
	if err != nil {
		t.Fatal(err)
	}
	if res.Healthy || res.StatusCode != 500 || res.Attempts != 2 || res.Error == "" {
		t.Errorf("unexpected result: %+v", res)
	}
}

func TestCheck_InsecureTLS(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	strict, _ := (&Prober{}).Check(context.Background(), model.HealthCheck{URL: srv.URL, Attempts: 1})
	if strict.Healthy {
		t.Error("self-signed certificate should fail verification")
	}
	insecure, _ := (&Prober{}).Check(context.Background(), model.HealthCheck{URL: srv.URL, Attempts: 1, Insecure: true})
	if !insecure.Healthy {
		t.Errorf("insecure probe should pass: %+v", insecure)
	}
}

func TestCheck_InvalidURL(t *testing.T) {
	if _, err := (&Prober{}).Check(context.Background(), model.HealthCheck{URL: "ftp://x"}); err == nil {
		t.Fatal("expected error for unsupported scheme")
	}
}

func TestCheck_CancelledDuringBackoff(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	res, err := (&Prober{}).Check(ctx, model.HealthCheck{URL: srv.URL, Attempts: 3, Interval: time.Hour})
	if err == nil {
		t.Fatal("expected context error")
	}
	if res == nil || res.Attempts != 1 || res.Healthy {
		t.Errorf("unexpected result: %+v", res)
	}
}
