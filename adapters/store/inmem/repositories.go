package inmem

import (
	"slices"

	"github.com/securebackend/sbops/domain"
	"github.com/securebackend/sbops/domain/model"
)

type ProviderRepository struct{ table[model.Provider] }
type ClusterRepository struct{ table[model.Cluster] }
type RegistryRepository struct{ table[model.Registry] }
type BackendRepository struct{ table[model.Backend] }
type FrontendRepository struct{ table[model.Frontend] }
type RunRepository struct{ table[model.Run] }

func NewProviderRepository() *ProviderRepository {
	return &ProviderRepository{newTable("prov", model.ErrProviderNotFound,
		func(v *model.Provider) *string { return &v.ID }, nil,
		func(a, b *model.Provider) bool { return a.CreatedAt.Before(b.CreatedAt) })}
}

func NewClusterRepository() *ClusterRepository {
	return &ClusterRepository{newTable("clus", model.ErrClusterNotFound,
		func(v *model.Cluster) *string { return &v.ID },
		func(v *model.Cluster) *model.Cluster {
			cp := *v
			if v.Ingress != nil {
				in := *v.Ingress
				cp.Ingress = &in
			}
			if v.CertManager != nil {
				cm := *v.CertManager
				cp.CertManager = &cm
			}
			return &cp
		},
		func(a, b *model.Cluster) bool { return a.CreatedAt.Before(b.CreatedAt) })}
}

func NewRegistryRepository() *RegistryRepository {
	return &RegistryRepository{newTable("reg", model.ErrRegistryNotFound,
		func(v *model.Registry) *string { return &v.ID }, nil,
		func(a, b *model.Registry) bool { return a.CreatedAt.Before(b.CreatedAt) })}
}

func NewBackendRepository() *BackendRepository {
	return &BackendRepository{newTable("be", model.ErrBackendNotFound,
		func(v *model.Backend) *string { return &v.ID },
		func(v *model.Backend) *model.Backend {
			cp := *v
			if v.WebApp != nil {
				w := *v.WebApp
				cp.WebApp = &w
			}
			return &cp
		},
		func(a, b *model.Backend) bool { return a.CreatedAt.Before(b.CreatedAt) })}
}

func NewFrontendRepository() *FrontendRepository {
	return &FrontendRepository{newTable("fe", model.ErrFrontendNotFound,
		func(v *model.Frontend) *string { return &v.ID }, nil,
		func(a, b *model.Frontend) bool { return a.CreatedAt.Before(b.CreatedAt) })}
}

// NewRunRepository lists newest runs first.
func NewRunRepository() *RunRepository {
	return &RunRepository{newTable("run", model.ErrRunNotFound,
		func(v *model.Run) *string { return &v.ID },
		func(v *model.Run) *model.Run {
			cp := *v
			cp.Steps = slices.Clone(v.Steps)
			return &cp
		},
		func(a, b *model.Run) bool { return a.StartedAt.After(b.StartedAt) })}
}

var (
	_ domain.ProviderRepository = (*ProviderRepository)(nil)
	_ domain.ClusterRepository  = (*ClusterRepository)(nil)
	_ domain.RegistryRepository = (*RegistryRepository)(nil)
	_ domain.BackendRepository  = (*BackendRepository)(nil)
	_ domain.FrontendRepository = (*FrontendRepository)(nil)
	_ domain.RunRepository      = (*RunRepository)(nil)
)
