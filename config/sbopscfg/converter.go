package sbopscfg

import (
	"maps"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/securebackend/sbops/domain/model"
	"github.com/securebackend/sbops/internal/naming"
)

// Defaults applied by ToModels.
const (
	DefaultNamespace            = "secure-backend"
	DefaultPort                 = 8000
	DefaultHealthPath           = "/health"
	DefaultIngressNamespace     = "ingress-nginx"
	DefaultIngressRelease       = "ingress-nginx"
	DefaultIngressService       = "ingress-nginx-controller"
	DefaultCertManagerNamespace = "cert-manager"
	DefaultCertManagerRelease   = "cert-manager"
	DefaultIssuerName           = "letsencrypt-prod"
	DefaultIssuerServer         = "https://acme-v02.api.letsencrypt.org/directory"
	DefaultAvailabilityTimeout  = 300 * time.Second
	DefaultIPWaitInterval       = 10 * time.Second
	DefaultIPWaitTimeout        = 10 * time.Minute
	DefaultToken                = "demo-secure-token"
	DefaultNodeCount            = 2
	DefaultNodeVMSize           = "Standard_B2s"
	defaultReplicas             = 1
	defaultDockerfile           = "Dockerfile"

	// TokenEnv overrides backend.token when set.
	TokenEnv = "SBOPS_API_TOKEN"

	// RegistryNameSetting tells the provider driver which registry the
	// cluster stack creates alongside the cluster.
	RegistryNameSetting = "AZURE_CONTAINER_REGISTRY_NAME"
)

// Models is the domain view of one configuration document.
type Models struct {
	Provider *model.Provider
	Cluster  *model.Cluster
	Registry *model.Registry
	Backend  *model.Backend
	Frontend *model.Frontend // nil when frontend.name is empty
}

// idNamespace seeds deterministic IDs so that run history keeps pointing at
// the same backend across invocations.
var idNamespace = uuid.MustParse("6f0c1f3e-5a57-4a43-9d1e-0d8d7f0e2b11")

func stableID(kind, name string) string {
	return uuid.NewSHA1(idNamespace, []byte(kind+"/"+name)).String()
}

// ToModels converts the configuration to domain models with defaults applied.
func (r *Root) ToModels() (*Models, error) {
	now := time.Now()

	provider := &model.Provider{
		ID:        stableID("provider", r.Provider.Name),
		Name:      r.Provider.Name,
		Driver:    r.Provider.Driver,
		Settings:  maps.Clone(r.Provider.Settings),
		CreatedAt: now,
		UpdatedAt: now,
	}

	ci := r.Cluster.Ingress
	cm := r.Cluster.CertManager
	cluster := &model.Cluster{
		ID:                stableID("cluster", r.Provider.Name+"/"+r.Cluster.Name),
		Name:              r.Cluster.Name,
		ProviderID:        provider.ID,
		Existing:          r.Cluster.Existing,
		ResourceGroup:     r.Cluster.ResourceGroup,
		NodeCount:         or(r.Cluster.NodeCount, DefaultNodeCount),
		NodeVMSize:        or(r.Cluster.NodeVMSize, DefaultNodeVMSize),
		KubernetesVersion: r.Cluster.KubernetesVersion,
		Ingress: &model.ClusterIngress{
			Namespace:    or(ci.Namespace, DefaultIngressNamespace),
			ReleaseName:  DefaultIngressRelease,
			ChartVersion: ci.ChartVersion,
			ServiceName:  DefaultIngressService,
			StaticIP:     ci.StaticIP,
			DNSLabel:     ci.DNSLabel,
			IPWaitPeriod: or(ci.IPWaitInterval, DefaultIPWaitInterval),
			IPWaitLimit:  or(ci.IPWaitTimeout, DefaultIPWaitTimeout),
		},
		CertManager: &model.ClusterCertManager{
			Enabled:      cm.Enabled,
			Namespace:    or(cm.Namespace, DefaultCertManagerNamespace),
			ReleaseName:  DefaultCertManagerRelease,
			ChartVersion: cm.ChartVersion,
			IssuerName:   or(cm.Issuer, DefaultIssuerName),
			IssuerServer: or(cm.Server, DefaultIssuerServer),
			Email:        cm.Email,
		},
		Settings:  maps.Clone(r.Cluster.Settings),
		CreatedAt: now,
		UpdatedAt: now,
	}

	registry := &model.Registry{
		ID:            stableID("registry", r.Provider.Name+"/"+r.Registry.Name),
		Name:          r.Registry.Name,
		ProviderID:    provider.ID,
		ResourceGroup: or(r.Registry.ResourceGroup, r.Cluster.ResourceGroup),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if _, ok := cluster.Settings[RegistryNameSetting]; !ok && !cluster.Existing {
		if cluster.Settings == nil {
			cluster.Settings = map[string]string{}
		}
		cluster.Settings[RegistryNameSetting] = registry.Name
	}

	b := r.Backend
	mode := r.tlsMode()
	token := b.Token
	if v, ok := os.LookupEnv(TokenEnv); ok && v != "" {
		token = v
	}
	backend := &model.Backend{
		ID:         stableID("backend", cluster.ID+"/"+b.Name),
		Name:       b.Name,
		ClusterID:  cluster.ID,
		RegistryID: registry.ID,
		Target:     r.backendTarget(),
		Namespace:  or(b.Namespace, DefaultNamespace),
		Replicas:   defaultReplicas,
		Port:       or(b.Port, DefaultPort),
		HealthPath: or(b.HealthPath, DefaultHealthPath),
		Host:       b.Host,
		DNS:        b.DNS.Enabled,
		DNSZone:    b.DNS.Zone,
		Image:      toModelImage(b.Image),
		TLS: model.BackendTLS{
			Mode:         mode,
			SecretName:   or(b.TLS.SecretName, naming.TLSSecretName(b.Name)),
			ValidityDays: b.TLS.ValidityDays,
		},
		Token: or(token, DefaultToken),
		Env:   maps.Clone(b.Env),
		Resources: model.BackendResources{
			CPURequest:    or(b.Resources.CPURequest, "100m"),
			MemoryRequest: or(b.Resources.MemoryRequest, "128Mi"),
			CPULimit:      or(b.Resources.CPULimit, "500m"),
			MemoryLimit:   or(b.Resources.MemoryLimit, "512Mi"),
		},
		AvailabilityTimeout: or(b.AvailabilityTimeout, DefaultAvailabilityTimeout),
		Settings:            maps.Clone(b.Settings),
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	if b.Replicas != nil {
		backend.Replicas = *b.Replicas
	}
	if backend.Target == model.BackendTargetWebApp {
		backend.WebApp = &model.WebAppRef{
			Name:          b.WebApp.Name,
			ResourceGroup: or(b.WebApp.ResourceGroup, r.Cluster.ResourceGroup),
		}
	}

	var frontend *model.Frontend
	if r.Frontend.Name != "" {
		frontend = &model.Frontend{
			ID:            stableID("frontend", provider.ID+"/"+r.Frontend.Name),
			Name:          r.Frontend.Name,
			ProviderID:    provider.ID,
			RegistryID:    registry.ID,
			ResourceGroup: or(r.Frontend.ResourceGroup, r.Cluster.ResourceGroup),
			Image:         toModelImage(r.Frontend.Image),
			AppSettings:   maps.Clone(r.Frontend.AppSettings),
			CreatedAt:     now,
			UpdatedAt:     now,
		}
	}

	return &Models{
		Provider: provider,
		Cluster:  cluster,
		Registry: registry,
		Backend:  backend,
		Frontend: frontend,
	}, nil
}

func toModelImage(i Image) model.BackendImage {
	return model.BackendImage{
		Repository: i.Repository,
		Tag:        or(i.Tag, "latest"),
		ContextDir: or(i.Context, "."),
		Dockerfile: or(i.Dockerfile, defaultDockerfile),
		Platform:   i.Platform,
	}
}

// or returns v unless it is the zero value, in which case def is returned.
func or[T comparable](v, def T) T {
	var zero T
	if v == zero {
		return def
	}
	return v
}
