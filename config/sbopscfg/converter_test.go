package sbopscfg

import (
	"testing"

	"github.com/securebackend/sbops/domain/model"
)

func TestToModelsDefaults(t *testing.T) {
	t.Setenv(TokenEnv, "")
	cfg := loadSample(t)
	m, err := cfg.ToModels()
	if err != nil {
		t.Fatalf("ToModels: %v", err)
	}

	if m.Cluster.ProviderID != m.Provider.ID || m.Backend.ClusterID != m.Cluster.ID || m.Backend.RegistryID != m.Registry.ID {
		t.Fatal("references not wired")
	}
	b := m.Backend
	if b.Namespace != DefaultNamespace || b.Port != DefaultPort || b.HealthPath != DefaultHealthPath {
		t.Errorf("backend defaults not applied: ns=%q port=%d health=%q", b.Namespace, b.Port, b.HealthPath)
	}
	if b.AvailabilityTimeout != DefaultAvailabilityTimeout {
		t.Errorf("availability timeout = %v", b.AvailabilityTimeout)
	}
	if b.Target != model.BackendTargetAKS || b.TLS.Mode != model.TLSModeCertManager {
		t.Errorf("target/tls = %q/%q", b.Target, b.TLS.Mode)
	}
	if b.TLS.SecretName != "secure-backend-tls" || b.Token != DefaultToken {
		t.Errorf("tls secret/token = %q/%q", b.TLS.SecretName, b.Token)
	}
	if b.Image.Dockerfile != "Dockerfile" || b.Image.Tag != "1.0.0" {
		t.Errorf("image = %+v", b.Image)
	}

	c := m.Cluster
	if c.Ingress.Namespace != DefaultIngressNamespace || c.Ingress.IPWaitPeriod != DefaultIPWaitInterval {
		t.Errorf("ingress defaults = %+v", c.Ingress)
	}
	if c.Ingress.IPWaitLimit.Minutes() != 5 {
		t.Errorf("configured IP wait timeout lost: %v", c.Ingress.IPWaitLimit)
	}
	if c.CertManager.Namespace != DefaultCertManagerNamespace || c.CertManager.IssuerName != DefaultIssuerName {
		t.Errorf("cert-manager defaults = %+v", c.CertManager)
	}
	if m.Registry.ResourceGroup != "rg-secure-backend" {
		t.Errorf("registry resource group should default to cluster's, got %q", m.Registry.ResourceGroup)
	}
	if m.Frontend == nil || m.Frontend.ResourceGroup != "rg-secure-backend" {
		t.Errorf("frontend = %+v", m.Frontend)
	}
}

func TestToModelsStableIDs(t *testing.T) {
	a, _ := loadSample(t).ToModels()
	b, _ := loadSample(t).ToModels()
	if a.Backend.ID != b.Backend.ID || a.Cluster.ID != b.Cluster.ID {
		t.Fatal("IDs should be deterministic")
	}
}

func TestToModelsTokenEnv(t *testing.T) {
	t.Setenv(TokenEnv, "from-env")
	m, _ := loadSample(t).ToModels()
	if m.Backend.Token != "from-env" {
		t.Fatalf("token = %q", m.Backend.Token)
	}
}

func TestToModelsWebAppAndNoFrontend(t *testing.T) {
	cfg := loadSample(t)
	cfg.Backend.Target = "webapp"
	cfg.Backend.WebApp.Name = "secure-backend-app"
	cfg.Frontend = Frontend{}
	m, _ := cfg.ToModels()
	if m.Backend.WebApp == nil || m.Backend.WebApp.ResourceGroup != "rg-secure-backend" {
		t.Fatalf("webapp ref = %+v", m.Backend.WebApp)
	}
	if m.Frontend != nil {
		t.Fatal("frontend should be nil when unnamed")
	}
}
