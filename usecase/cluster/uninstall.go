package cluster

import (
	"context"
	"fmt"

	"github.com/securebackend/sbops/domain/model"
)

// UninstallInput represents a command to remove the add-ons.
type UninstallInput struct {
	ClusterID string `json:"cluster_id"`
	Force     bool   `json:"force,omitempty"`
}

// Uninstall removes the add-ons installed by Install.
func (u *UseCase) Uninstall(ctx context.Context, in *UninstallInput) error {
	if in == nil || in.ClusterID == "" {
		return fmt.Errorf("ClusterID is required")
	}
	c, err := u.Repos.Cluster.Get(ctx, in.ClusterID)
	if err != nil {
		return err
	}
	var opts []model.ClusterUninstallOption
	if in.Force {
		opts = append(opts, model.WithClusterUninstallForce())
	}
	return u.ClusterPort.Uninstall(ctx, c, opts...)
}
