package rdb

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/securebackend/sbops/config/sbopscfg"
	"github.com/securebackend/sbops/domain/model"
)

// ImportResult counts records written by ImportConfig.
type ImportResult struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
}

// ImportConfig upserts the models of cfg in a single transaction. IDs are
// deterministic, so importing the same document twice updates in place.
func ImportConfig(ctx context.Context, db *gorm.DB, cfg *sbopscfg.Root) (*ImportResult, error) {
	m, err := cfg.ToModels()
	if err != nil {
		return nil, fmt.Errorf("convert config: %w", err)
	}
	res := &ImportResult{}
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repos := NewRepositories(tx)
		steps := []func() error{
			func() error {
				return upsert(ctx, repos.Provider.Get, repos.Provider.Create, repos.Provider.Update, m.Provider, m.Provider.ID, model.ErrProviderNotFound, res)
			},
			func() error {
				return upsert(ctx, repos.Cluster.Get, repos.Cluster.Create, repos.Cluster.Update, m.Cluster, m.Cluster.ID, model.ErrClusterNotFound, res)
			},
			func() error {
				return upsert(ctx, repos.Registry.Get, repos.Registry.Create, repos.Registry.Update, m.Registry, m.Registry.ID, model.ErrRegistryNotFound, res)
			},
			func() error {
				return upsert(ctx, repos.Backend.Get, repos.Backend.Create, repos.Backend.Update, m.Backend, m.Backend.ID, model.ErrBackendNotFound, res)
			},
		}
		if m.Frontend != nil {
			steps = append(steps, func() error {
				return upsert(ctx, repos.Frontend.Get, repos.Frontend.Create, repos.Frontend.Update, m.Frontend, m.Frontend.ID, model.ErrFrontendNotFound, res)
			})
		}
		for _, step := range steps {
			if err := step(); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func upsert[M any](
	ctx context.Context,
	get func(context.Context, string) (*M, error),
	create func(context.Context, *M) error,
	update func(context.Context, *M) error,
	v *M, id string, notFound error, res *ImportResult,
) error {
	_, err := get(ctx, id)
	switch {
	case errors.Is(err, notFound):
		res.Created++
		return create(ctx, v)
	case err != nil:
		return err
	default:
		res.Updated++
		return update(ctx, v)
	}
}
