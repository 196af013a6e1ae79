package rdb

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/securebackend/sbops/config/sbopscfg"
	"github.com/securebackend/sbops/domain/model"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := OpenFromURL("sqlite:" + filepath.Join(t.TempDir(), "sbops.db"))
	if err != nil {
		t.Fatalf("OpenFromURL: %v", err)
	}
	if err := AutoMigrate(db); err != nil {
		t.Fatalf("AutoMigrate: %v", err)
	}
	return db
}

func TestOpenFromURL_UnsupportedScheme(t *testing.T) {
	if _, err := OpenFromURL("postgres://localhost/sbops"); err == nil {
		t.Fatal("expected error for unsupported scheme")
	}
}

func TestBackendRepositoryRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := NewBackendRepository(newTestDB(t))

	b := &model.Backend{
		Name:       "secure-backend",
		ClusterID:  "clus-1",
		Target:     model.BackendTargetAKS,
		Namespace:  "secure-backend",
		Replicas:   2,
		Port:       8000,
		Host:       "api.example.com",
		Image:      model.BackendImage{Repository: "secure-backend", Tag: "1.0.0"},
		TLS:        model.BackendTLS{Mode: model.TLSModeSelfSigned, ValidityDays: 30},
		Token:      "demo-secure-token",
		Env:        map[string]string{"SERVICE_NAME": "secure-backend"},
		WebApp:     &model.WebAppRef{Name: "app"},
		Resources:  model.BackendResources{CPURequest: "100m"},
		HealthPath: "/health",
	}
	if err := repo.Create(ctx, b); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if b.ID == "" {
		t.Fatal("ID should be assigned")
	}

	got, err := repo.Get(ctx, b.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Host != b.Host || got.Replicas != 2 || got.Image.Tag != "1.0.0" || got.TLS.Mode != model.TLSModeSelfSigned {
		t.Errorf("unexpected backend: %+v", got)
	}
	if got.Token != "demo-secure-token" || got.Env["SERVICE_NAME"] != "secure-backend" {
		t.Errorf("spec fields lost: %+v", got)
	}
	if got.WebApp == nil || got.WebApp.Name != "app" {
		t.Errorf("webapp ref lost: %+v", got.WebApp)
	}

	got.Replicas = 3
	if err := repo.Update(ctx, got); err != nil {
		t.Fatalf("Update: %v", err)
	}
	again, _ := repo.Get(ctx, b.ID)
	if again.Replicas != 3 {
		t.Errorf("Replicas = %d, want 3", again.Replicas)
	}

	if err := repo.Delete(ctx, b.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := repo.Get(ctx, b.ID); !errors.Is(err, model.ErrBackendNotFound) {
		t.Errorf("Get after delete: %v", err)
	}
	if err := repo.Update(ctx, got); !errors.Is(err, model.ErrBackendNotFound) {
		t.Errorf("Update after delete: %v", err)
	}
	if err := repo.Delete(ctx, b.ID); !errors.Is(err, model.ErrBackendNotFound) {
		t.Errorf("Delete after delete: %v", err)
	}
}

func TestClusterRepositoryNestedConfig(t *testing.T) {
	ctx := context.Background()
	repo := NewClusterRepository(newTestDB(t))
	c := &model.Cluster{
		Name:          "aks1",
		ResourceGroup: "rg1",
		Ingress:       &model.ClusterIngress{Namespace: "ingress-nginx", IPWaitLimit: 5 * time.Minute},
		Settings:      map[string]string{"AZURE_DNS_ZONE_IDS": "zone"},
	}
	if err := repo.Create(ctx, c); err != nil {
		t.Fatal(err)
	}
	got, err := repo.Get(ctx, c.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Ingress == nil || got.Ingress.IPWaitLimit != 5*time.Minute {
		t.Errorf("ingress not round-tripped: %+v", got.Ingress)
	}
	if got.CertManager != nil {
		t.Errorf("cert-manager should stay nil, got %+v", got.CertManager)
	}
	if got.Settings["AZURE_DNS_ZONE_IDS"] != "zone" {
		t.Errorf("settings lost: %v", got.Settings)
	}
}

func TestRunRepositoryNewestFirst(t *testing.T) {
	ctx := context.Background()
	repo := NewRunRepository(newTestDB(t))
	base := time.Date(2026, 10, 19, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		run := &model.Run{
			Status:    model.RunStatusSucceeded,
			StartedAt: base.Add(time.Duration(i) * time.Minute),
			Steps:     []model.RunStep{{Name: "build", Status: model.RunStatusSucceeded}},
		}
		if err := repo.Create(ctx, run); err != nil {
			t.Fatal(err)
		}
	}
	runs, err := repo.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 3 {
		t.Fatalf("len = %d, want 3", len(runs))
	}
	if !runs[0].StartedAt.After(runs[1].StartedAt) || !runs[1].StartedAt.After(runs[2].StartedAt) {
		t.Errorf("runs not newest first: %v %v %v", runs[0].StartedAt, runs[1].StartedAt, runs[2].StartedAt)
	}
	if len(runs[0].Steps) != 1 || runs[0].Steps[0].Name != "build" {
		t.Errorf("steps lost: %+v", runs[0].Steps)
	}
}

func TestImportConfigIsIdempotent(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	cfg, err := sbopscfg.Load(filepath.Join("..", "..", "..", "config", "sbopscfg", "testdata", "sbops.yml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	first, err := ImportConfig(ctx, db, cfg)
	if err != nil {
		t.Fatalf("ImportConfig: %v", err)
	}
	if first.Created != 5 || first.Updated != 0 {
		t.Errorf("first import = %+v, want 5 created", first)
	}
	second, err := ImportConfig(ctx, db, cfg)
	if err != nil {
		t.Fatalf("ImportConfig again: %v", err)
	}
	if second.Created != 0 || second.Updated != 5 {
		t.Errorf("second import = %+v, want 5 updated", second)
	}

	repos := NewRepositories(db)
	backends, _ := repos.Backend.List(ctx)
	if len(backends) != 1 || backends[0].Host != "api.example.com" {
		t.Fatalf("unexpected backends: %+v", backends)
	}
}
