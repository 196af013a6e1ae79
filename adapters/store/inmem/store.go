// Package inmem provides thread-safe in-memory repositories seeded from sbops.yml.
package inmem

import (
	"context"
	"fmt"

	"github.com/securebackend/sbops/config/sbopscfg"
	"github.com/securebackend/sbops/domain"
)

// Store bundles all in-memory repositories.
type Store struct {
	ProviderRepo *ProviderRepository
	ClusterRepo  *ClusterRepository
	RegistryRepo *RegistryRepository
	BackendRepo  *BackendRepository
	FrontendRepo *FrontendRepository
	RunRepo      *RunRepository
}

// NewStore creates a new in-memory store with all repositories.
func NewStore() *Store {
	return &Store{
		ProviderRepo: NewProviderRepository(),
		ClusterRepo:  NewClusterRepository(),
		RegistryRepo: NewRegistryRepository(),
		BackendRepo:  NewBackendRepository(),
		FrontendRepo: NewFrontendRepository(),
		RunRepo:      NewRunRepository(),
	}
}

// Repositories exposes the store through domain interfaces.
func (s *Store) Repositories() *domain.Repositories {
	return &domain.Repositories{
		Provider: s.ProviderRepo,
		Cluster:  s.ClusterRepo,
		Registry: s.RegistryRepo,
		Backend:  s.BackendRepo,
		Frontend: s.FrontendRepo,
		Run:      s.RunRepo,
	}
}

// LoadFromConfig converts cfg and stores the models in dependency order.
func (s *Store) LoadFromConfig(ctx context.Context, cfg *sbopscfg.Root) error {
	m, err := cfg.ToModels()
	if err != nil {
		return fmt.Errorf("convert config: %w", err)
	}
	if err := s.ProviderRepo.Create(ctx, m.Provider); err != nil {
		return err
	}
	if err := s.ClusterRepo.Create(ctx, m.Cluster); err != nil {
		return err
	}
	if err := s.RegistryRepo.Create(ctx, m.Registry); err != nil {
		return err
	}
	if err := s.BackendRepo.Create(ctx, m.Backend); err != nil {
		return err
	}
	if m.Frontend != nil {
		if err := s.FrontendRepo.Create(ctx, m.Frontend); err != nil {
			return err
		}
	}
	return nil
}
