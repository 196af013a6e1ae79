package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/securebackend/sbops/domain"
	"github.com/securebackend/sbops/domain/model"
)

// pick returns the item called name, or the only item when name is empty.
func pick[T any](items []*T, name string, nameOf func(*T) string, kind, flag string) (*T, error) {
	if name == "" {
		switch len(items) {
		case 0:
			return nil, fmt.Errorf("no %s configured", kind)
		case 1:
			return items[0], nil
		default:
			return nil, fmt.Errorf("%d %s entries configured, select one with --%s", len(items), kind, flag)
		}
	}
	for _, it := range items {
		if nameOf(it) == name {
			return it, nil
		}
	}
	return nil, fmt.Errorf("%s %s not found", kind, name)
}

func selectCluster(ctx context.Context, cmd *cobra.Command, repo domain.ClusterRepository) (*model.Cluster, error) {
	items, err := repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list clusters: %w", err)
	}
	return pick(items, flagString(cmd, "cluster"), func(c *model.Cluster) string { return c.Name }, "cluster", "cluster")
}

func selectRegistry(ctx context.Context, cmd *cobra.Command, repo domain.RegistryRepository) (*model.Registry, error) {
	items, err := repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list registries: %w", err)
	}
	return pick(items, flagString(cmd, "registry"), func(r *model.Registry) string { return r.Name }, "registry", "registry")
}

func selectBackend(ctx context.Context, cmd *cobra.Command, repo domain.BackendRepository) (*model.Backend, error) {
	items, err := repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list backends: %w", err)
	}
	return pick(items, flagString(cmd, "backend"), func(b *model.Backend) string { return b.Name }, "backend", "backend")
}

func selectFrontend(ctx context.Context, cmd *cobra.Command, repo domain.FrontendRepository) (*model.Frontend, error) {
	items, err := repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list frontends: %w", err)
	}
	return pick(items, flagString(cmd, "frontend"), func(f *model.Frontend) string { return f.Name }, "frontend", "frontend")
}

// optionalFrontend is selectFrontend that treats "none configured" as nil.
func optionalFrontend(ctx context.Context, cmd *cobra.Command, repo domain.FrontendRepository) (*model.Frontend, error) {
	items, err := repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list frontends: %w", err)
	}
	if len(items) == 0 && flagString(cmd, "frontend") == "" {
		return nil, nil
	}
	return pick(items, flagString(cmd, "frontend"), func(f *model.Frontend) string { return f.Name }, "frontend", "frontend")
}
