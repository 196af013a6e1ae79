package cluster

import (
	"context"
	"fmt"

	"github.com/securebackend/sbops/domain/model"
)

// DeprovisionInput represents a command to deprovision a cluster.
type DeprovisionInput struct {
	ClusterID string `json:"cluster_id"`
	// Force also deletes the resource group.
	Force bool `json:"force,omitempty"`
}

// Deprovision deletes the cluster infrastructure. Existing clusters are
// refused with model.ErrClusterExisting.
func (u *UseCase) Deprovision(ctx context.Context, in *DeprovisionInput) error {
	if in == nil || in.ClusterID == "" {
		return fmt.Errorf("ClusterID is required")
	}
	c, err := u.Repos.Cluster.Get(ctx, in.ClusterID)
	if err != nil {
		return err
	}
	if c.Existing {
		return fmt.Errorf("deprovision %s: %w", c.Name, model.ErrClusterExisting)
	}
	var opts []model.ClusterDeprovisionOption
	if in.Force {
		opts = append(opts, model.WithClusterDeprovisionForce())
	}
	return u.ClusterPort.Deprovision(ctx, c, opts...)
}
