package inmem

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/securebackend/sbops/config/sbopscfg"
	"github.com/securebackend/sbops/domain/model"
)

func TestClusterRepositoryCRUD(t *testing.T) {
	ctx := context.Background()
	r := NewClusterRepository()

	c := &model.Cluster{Name: "aks1", Ingress: &model.ClusterIngress{Namespace: "ingress-nginx"}}
	if err := r.Create(ctx, c); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if c.ID == "" {
		t.Fatal("ID should be assigned")
	}
	if err := r.Create(ctx, c); err == nil {
		t.Fatal("duplicate create should fail")
	}

	got, err := r.Get(ctx, c.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	got.Ingress.Namespace = "mutated"
	again, _ := r.Get(ctx, c.ID)
	if again.Ingress.Namespace != "ingress-nginx" {
		t.Fatal("Get must return a deep copy of nested config")
	}

	got.Name = "aks2"
	if err := r.Update(ctx, got); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if again, _ = r.Get(ctx, c.ID); again.Name != "aks2" {
		t.Fatalf("Update not applied: %q", again.Name)
	}

	if err := r.Delete(ctx, c.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := r.Get(ctx, c.ID); !errors.Is(err, model.ErrClusterNotFound) {
		t.Fatalf("expected ErrClusterNotFound, got %v", err)
	}
	if err := r.Update(ctx, got); !errors.Is(err, model.ErrClusterNotFound) {
		t.Fatalf("expected ErrClusterNotFound on update, got %v", err)
	}
	if err := r.Delete(ctx, c.ID); !errors.Is(err, model.ErrClusterNotFound) {
		t.Fatalf("expected ErrClusterNotFound on delete, got %v", err)
	}
}

func TestRunRepositoryNewestFirst(t *testing.T) {
	ctx := context.Background()
	r := NewRunRepository()
	base := time.Date(2026, 10, 19, 10, 0, 0, 0, time.UTC)
	for i, id := range []string{"a", "b", "c"} {
		run := &model.Run{ID: id, StartedAt: base.Add(time.Duration(i) * time.Minute), Steps: []model.RunStep{{Name: "build"}}}
		if err := r.Create(ctx, run); err != nil {
			t.Fatal(err)
		}
	}
	runs, err := r.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 3 || runs[0].ID != "c" || runs[2].ID != "a" {
		t.Fatalf("unexpected order: %v %v %v", runs[0].ID, runs[1].ID, runs[2].ID)
	}
	runs[0].Steps[0].Name = "mutated"
	got, _ := r.Get(ctx, "c")
	if got.Steps[0].Name != "build" {
		t.Fatal("steps must be copied")
	}
}

func TestLoadFromConfig(t *testing.T) {
	ctx := context.Background()
	cfg := &sbopscfg.Root{
		Provider: sbopscfg.Provider{Name: "azure", Driver: "aks"},
		Cluster:  sbopscfg.Cluster{Name: "aks1", ResourceGroup: "rg1"},
		Registry: sbopscfg.Registry{Name: "myregistry"},
		Backend:  sbopscfg.Backend{Name: "secure-backend", Image: sbopscfg.Image{Repository: "secure-backend"}},
	}
	s := NewStore()
	if err := s.LoadFromConfig(ctx, cfg); err != nil {
		t.Fatalf("LoadFromConfig: %v", err)
	}
	repos := s.Repositories()
	backends, _ := repos.Backend.List(ctx)
	if len(backends) != 1 {
		t.Fatalf("expected one backend, got %d", len(backends))
	}
	if _, err := repos.Cluster.Get(ctx, backends[0].ClusterID); err != nil {
		t.Fatalf("backend cluster not stored: %v", err)
	}
	if _, err := repos.Registry.Get(ctx, backends[0].RegistryID); err != nil {
		t.Fatalf("backend registry not stored: %v", err)
	}
	if fronts, _ := repos.Frontend.List(ctx); len(fronts) != 0 {
		t.Fatalf("frontend should be absent, got %d", len(fronts))
	}
}
