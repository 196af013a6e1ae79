package usecasetest

import (
	"context"
	"testing"
	"time"

	"github.com/securebackend/sbops/adapters/store/inmem"
	"github.com/securebackend/sbops/domain"
	"github.com/securebackend/sbops/domain/model"
)

// IDs of the models created by Seed.
const (
	ProviderID = "prv-1"
	ClusterID  = "cls-1"
	RegistryID = "reg-1"
	BackendID  = "be-1"
	FrontendID = "fe-1"
)

// Seed fills an in-memory store with one model of each kind. mutate may
// adjust the backend before it is stored.
func Seed(t *testing.T, mutate func(c *model.Cluster, b *model.Backend)) *domain.Repositories {
	t.Helper()
	ctx := context.Background()
	repos := inmem.NewStore().Repositories()

	c := &model.Cluster{
		ID: ClusterID, Name: "aks-sbops", ProviderID: ProviderID, ResourceGroup: "rg-sbops",
		Ingress:     &model.ClusterIngress{Namespace: "ingress-nginx", ServiceName: "ingress-nginx-controller", IPWaitPeriod: time.Millisecond, IPWaitLimit: time.Second},
		CertManager: &model.ClusterCertManager{Enabled: true, IssuerName: "letsencrypt-prod", Email: "ops@example.com"},
	}
	b := &model.Backend{
		ID: BackendID, Name: "secure-backend", ClusterID: ClusterID, RegistryID: RegistryID,
		Target: model.BackendTargetAKS, Namespace: "secure-backend", Replicas: 2, Port: 8000,
		HealthPath: "/health", Host: "api.example.com", DNS: true,
		Image:               model.BackendImage{Repository: "secure-backend", Tag: "v1", ContextDir: "./secure-backend", Dockerfile: "Dockerfile"},
		TLS:                 model.BackendTLS{Mode: model.TLSModeCertManager},
		Token:               "demo-secure-token",
		AvailabilityTimeout: time.Second,
	}
	if mutate != nil {
		mutate(c, b)
	}
	must := func(err error) {
		t.Helper()
		if err != nil {
			t.Fatal(err)
		}
	}
	must(repos.Provider.Create(ctx, &model.Provider{ID: ProviderID, Name: "azure", Driver: "aks"}))
	must(repos.Cluster.Create(ctx, c))
	must(repos.Registry.Create(ctx, &model.Registry{ID: RegistryID, Name: "sbopsacr", ProviderID: ProviderID, ResourceGroup: "rg-sbops"}))
	must(repos.Backend.Create(ctx, b))
	must(repos.Frontend.Create(ctx, &model.Frontend{
		ID: FrontendID, Name: "sbops-frontend", ProviderID: ProviderID, RegistryID: RegistryID, ResourceGroup: "rg-web",
		Image:       model.BackendImage{Repository: "frontend", Tag: "v1", ContextDir: "./frontend"},
		AppSettings: map[string]string{"NODE_ENV": "production"},
	}))
	return repos
}
