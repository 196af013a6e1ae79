package cluster

import (
	"context"
	"fmt"

	"github.com/securebackend/sbops/domain/model"
)

// ProvisionInput represents a command to provision a cluster.
type ProvisionInput struct {
	ClusterID string `json:"cluster_id"`
	Force     bool   `json:"force,omitempty"`
}

// ProvisionOutput reports whether the provider was called.
type ProvisionOutput struct {
	Skipped bool   `json:"skipped"`
	Reason  string `json:"reason,omitempty"`
}

// Provision provisions the cluster infrastructure. Existing clusters are
// skipped.
func (u *UseCase) Provision(ctx context.Context, in *ProvisionInput) (*ProvisionOutput, error) {
	if in == nil || in.ClusterID == "" {
		return nil, fmt.Errorf("ClusterID is required")
	}
	c, err := u.Repos.Cluster.Get(ctx, in.ClusterID)
	if err != nil {
		return nil, err
	}
	if c.Existing {
		return &ProvisionOutput{Skipped: true, Reason: "cluster is marked existing"}, nil
	}
	var opts []model.ClusterProvisionOption
	if in.Force {
		opts = append(opts, model.WithClusterProvisionForce())
	}
	if err := u.ClusterPort.Provision(ctx, c, opts...); err != nil {
		return nil, err
	}
	return &ProvisionOutput{}, nil
}
