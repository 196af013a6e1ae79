package rdb

import (
	"time"

	"gorm.io/gorm"

	"github.com/securebackend/sbops/domain"
	"github.com/securebackend/sbops/domain/model"
)

type ProviderRepository struct {
	crud[model.Provider, ProviderRecord]
}

func NewProviderRepository(db *gorm.DB) *ProviderRepository {
	return &ProviderRepository{crud[model.Provider, ProviderRecord]{
		db: db, prefix: "prov", notFound: model.ErrProviderNotFound, order: "created_at ASC",
		id: func(p *model.Provider) *string { return &p.ID },
		toRecord: func(p *model.Provider) *ProviderRecord {
			return &ProviderRecord{ID: p.ID, Name: p.Name, Driver: p.Driver, Settings: encodeJSON(p.Settings), CreatedAt: p.CreatedAt, UpdatedAt: p.UpdatedAt}
		},
		toModel: func(r *ProviderRecord) *model.Provider {
			return &model.Provider{ID: r.ID, Name: r.Name, Driver: r.Driver, Settings: decodeJSON[map[string]string](r.Settings), CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt}
		},
	}}
}

type ClusterRepository struct {
	crud[model.Cluster, ClusterRecord]
}

func NewClusterRepository(db *gorm.DB) *ClusterRepository {
	return &ClusterRepository{crud[model.Cluster, ClusterRecord]{
		db: db, prefix: "clus", notFound: model.ErrClusterNotFound, order: "created_at ASC",
		id: func(c *model.Cluster) *string { return &c.ID },
		toRecord: func(c *model.Cluster) *ClusterRecord {
			return &ClusterRecord{
				ID: c.ID, Name: c.Name, ProviderID: c.ProviderID, Existing: c.Existing,
				ResourceGroup: c.ResourceGroup, NodeCount: c.NodeCount, NodeVMSize: c.NodeVMSize,
				KubernetesVersion: c.KubernetesVersion,
				Ingress:           encodeJSON(c.Ingress),
				CertManager:       encodeJSON(c.CertManager),
				Settings:          encodeJSON(c.Settings),
				CreatedAt:         c.CreatedAt, UpdatedAt: c.UpdatedAt,
			}
		},
		toModel: func(r *ClusterRecord) *model.Cluster {
			return &model.Cluster{
				ID: r.ID, Name: r.Name, ProviderID: r.ProviderID, Existing: r.Existing,
				ResourceGroup: r.ResourceGroup, NodeCount: r.NodeCount, NodeVMSize: r.NodeVMSize,
				KubernetesVersion: r.KubernetesVersion,
				Ingress:           decodeJSON[*model.ClusterIngress](r.Ingress),
				CertManager:       decodeJSON[*model.ClusterCertManager](r.CertManager),
				Settings:          decodeJSON[map[string]string](r.Settings),
				CreatedAt:         r.CreatedAt, UpdatedAt: r.UpdatedAt,
			}
		},
	}}
}

type RegistryRepository struct {
	crud[model.Registry, RegistryRecord]
}

func NewRegistryRepository(db *gorm.DB) *RegistryRepository {
	return &RegistryRepository{crud[model.Registry, RegistryRecord]{
		db: db, prefix: "reg", notFound: model.ErrRegistryNotFound, order: "created_at ASC",
		id: func(r *model.Registry) *string { return &r.ID },
		toRecord: func(r *model.Registry) *RegistryRecord {
			return &RegistryRecord{ID: r.ID, Name: r.Name, ProviderID: r.ProviderID, ResourceGroup: r.ResourceGroup, Settings: encodeJSON(r.Settings), CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt}
		},
		toModel: func(r *RegistryRecord) *model.Registry {
			return &model.Registry{ID: r.ID, Name: r.Name, ProviderID: r.ProviderID, ResourceGroup: r.ResourceGroup, Settings: decodeJSON[map[string]string](r.Settings), CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt}
		},
	}}
}

// backendSpec holds the Backend fields without dedicated columns.
type backendSpec struct {
	Namespace           string
	Replicas            int32
	Port                int32
	HealthPath          string
	DNS                 bool
	DNSZone             string
	Image               model.BackendImage
	TLS                 model.BackendTLS
	Token               string
	Env                 map[string]string
	Resources           model.BackendResources
	WebApp              *model.WebAppRef
	AvailabilityTimeout time.Duration
	Settings            map[string]string
}

type BackendRepository struct {
	crud[model.Backend, BackendRecord]
}

func NewBackendRepository(db *gorm.DB) *BackendRepository {
	return &BackendRepository{crud[model.Backend, BackendRecord]{
		db: db, prefix: "be", notFound: model.ErrBackendNotFound, order: "created_at ASC",
		id: func(b *model.Backend) *string { return &b.ID },
		toRecord: func(b *model.Backend) *BackendRecord {
			spec := backendSpec{
				Namespace: b.Namespace, Replicas: b.Replicas, Port: b.Port, HealthPath: b.HealthPath,
				DNS: b.DNS, DNSZone: b.DNSZone, Image: b.Image, TLS: b.TLS, Token: b.Token,
				Env: b.Env, Resources: b.Resources, WebApp: b.WebApp,
				AvailabilityTimeout: b.AvailabilityTimeout, Settings: b.Settings,
			}
			return &BackendRecord{
				ID: b.ID, Name: b.Name, ClusterID: b.ClusterID, RegistryID: b.RegistryID,
				Target: string(b.Target), Host: b.Host, Spec: encodeJSON(spec),
				CreatedAt: b.CreatedAt, UpdatedAt: b.UpdatedAt,
			}
		},
		toModel: func(r *BackendRecord) *model.Backend {
			s := decodeJSON[backendSpec](r.Spec)
			return &model.Backend{
				ID: r.ID, Name: r.Name, ClusterID: r.ClusterID, RegistryID: r.RegistryID,
				Target: model.BackendTarget(r.Target), Host: r.Host,
				Namespace: s.Namespace, Replicas: s.Replicas, Port: s.Port, HealthPath: s.HealthPath,
				DNS: s.DNS, DNSZone: s.DNSZone, Image: s.Image, TLS: s.TLS, Token: s.Token,
				Env: s.Env, Resources: s.Resources, WebApp: s.WebApp,
				AvailabilityTimeout: s.AvailabilityTimeout, Settings: s.Settings,
				CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt,
			}
		},
	}}
}

type FrontendRepository struct {
	crud[model.Frontend, FrontendRecord]
}

func NewFrontendRepository(db *gorm.DB) *FrontendRepository {
	return &FrontendRepository{crud[model.Frontend, FrontendRecord]{
		db: db, prefix: "fe", notFound: model.ErrFrontendNotFound, order: "created_at ASC",
		id: func(f *model.Frontend) *string { return &f.ID },
		toRecord: func(f *model.Frontend) *FrontendRecord {
			return &FrontendRecord{
				ID: f.ID, Name: f.Name, ProviderID: f.ProviderID, RegistryID: f.RegistryID,
				ResourceGroup: f.ResourceGroup, Image: encodeJSON(f.Image), AppSettings: encodeJSON(f.AppSettings),
				CreatedAt: f.CreatedAt, UpdatedAt: f.UpdatedAt,
			}
		},
		toModel: func(r *FrontendRecord) *model.Frontend {
			return &model.Frontend{
				ID: r.ID, Name: r.Name, ProviderID: r.ProviderID, RegistryID: r.RegistryID,
				ResourceGroup: r.ResourceGroup, Image: decodeJSON[model.BackendImage](r.Image),
				AppSettings: decodeJSON[map[string]string](r.AppSettings),
				CreatedAt:   r.CreatedAt, UpdatedAt: r.UpdatedAt,
			}
		},
	}}
}

type RunRepository struct {
	crud[model.Run, RunRecord]
}

// NewRunRepository lists newest runs first.
func NewRunRepository(db *gorm.DB) *RunRepository {
	return &RunRepository{crud[model.Run, RunRecord]{
		db: db, prefix: "run", notFound: model.ErrRunNotFound, order: "started_at DESC",
		id: func(r *model.Run) *string { return &r.ID },
		toRecord: func(r *model.Run) *RunRecord {
			return &RunRecord{
				ID: r.ID, Environment: r.Environment, BackendID: r.BackendID, Status: string(r.Status),
				Error: r.Error, Steps: encodeJSON(r.Steps), StartedAt: r.StartedAt, FinishedAt: r.FinishedAt,
			}
		},
		toModel: func(r *RunRecord) *model.Run {
			return &model.Run{
				ID: r.ID, Environment: r.Environment, BackendID: r.BackendID, Status: model.RunStatus(r.Status),
				Error: r.Error, Steps: decodeJSON[[]model.RunStep](r.Steps), StartedAt: r.StartedAt, FinishedAt: r.FinishedAt,
			}
		},
	}}
}

// NewRepositories builds all GORM repositories over db.
func NewRepositories(db *gorm.DB) *domain.Repositories {
	return &domain.Repositories{
		Provider: NewProviderRepository(db),
		Cluster:  NewClusterRepository(db),
		Registry: NewRegistryRepository(db),
		Backend:  NewBackendRepository(db),
		Frontend: NewFrontendRepository(db),
		Run:      NewRunRepository(db),
	}
}

var (
	_ domain.ProviderRepository = (*ProviderRepository)(nil)
	_ domain.ClusterRepository  = (*ClusterRepository)(nil)
	_ domain.RegistryRepository = (*RegistryRepository)(nil)
	_ domain.BackendRepository  = (*BackendRepository)(nil)
	_ domain.FrontendRepository = (*FrontendRepository)(nil)
	_ domain.RunRepository      = (*RunRepository)(nil)
)
