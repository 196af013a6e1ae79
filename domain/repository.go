package domain

import (
	"context"

	"github.com/securebackend/sbops/domain/model"
)

// ProviderRepository stores and retrieves Provider aggregates.
type ProviderRepository interface {
	Create(ctx context.Context, p *model.Provider) error
	Get(ctx context.Context, id string) (*model.Provider, error)
	List(ctx context.Context) ([]*model.Provider, error)
	Update(ctx context.Context, p *model.Provider) error
	Delete(ctx context.Context, id string) error
}

// ClusterRepository stores and retrieves Cluster aggregates.
type ClusterRepository interface {
	Create(ctx context.Context, c *model.Cluster) error
	Get(ctx context.Context, id string) (*model.Cluster, error)
	List(ctx context.Context) ([]*model.Cluster, error)
	Update(ctx context.Context, c *model.Cluster) error
	Delete(ctx context.Context, id string) error
}

// RegistryRepository stores and retrieves Registry aggregates.
type RegistryRepository interface {
	Create(ctx context.Context, r *model.Registry) error
	Get(ctx context.Context, id string) (*model.Registry, error)
	List(ctx context.Context) ([]*model.Registry, error)
	Update(ctx context.Context, r *model.Registry) error
	Delete(ctx context.Context, id string) error
}

// BackendRepository stores and retrieves Backend aggregates.
type BackendRepository interface {
	Create(ctx context.Context, b *model.Backend) error
	Get(ctx context.Context, id string) (*model.Backend, error)
	List(ctx context.Context) ([]*model.Backend, error)
	Update(ctx context.Context, b *model.Backend) error
	Delete(ctx context.Context, id string) error
}

// FrontendRepository stores and retrieves Frontend aggregates.
type FrontendRepository interface {
	Create(ctx context.Context, f *model.Frontend) error
	Get(ctx context.Context, id string) (*model.Frontend, error)
	List(ctx context.Context) ([]*model.Frontend, error)
	Update(ctx context.Context, f *model.Frontend) error
	Delete(ctx context.Context, id string) error
}

// RunRepository stores pipeline run history. List returns newest first.
type RunRepository interface {
	Create(ctx context.Context, r *model.Run) error
	Get(ctx context.Context, id string) (*model.Run, error)
	List(ctx context.Context) ([]*model.Run, error)
	Update(ctx context.Context, r *model.Run) error
	Delete(ctx context.Context, id string) error
}

// Repositories groups repository interfaces.
type Repositories struct {
	Provider ProviderRepository
	Cluster  ClusterRepository
	Registry RegistryRepository
	Backend  BackendRepository
	Frontend FrontendRepository
	Run      RunRepository
}
