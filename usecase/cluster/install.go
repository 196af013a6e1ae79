package cluster

import (
	"context"
	"fmt"

	"github.com/securebackend/sbops/domain/model"
)

// InstallInput represents a command to install the ingress and certificate add-ons.
type InstallInput struct {
	ClusterID string `json:"cluster_id"`
	// Force reinstalls releases that already exist.
	Force bool `json:"force,omitempty"`
}

// Install installs ingress-nginx and, when enabled, cert-manager.
func (u *UseCase) Install(ctx context.Context, in *InstallInput) error {
	if in == nil || in.ClusterID == "" {
		return fmt.Errorf("ClusterID is required")
	}
	c, err := u.Repos.Cluster.Get(ctx, in.ClusterID)
	if err != nil {
		return err
	}
	var opts []model.ClusterInstallOption
	if in.Force {
		opts = append(opts, model.WithClusterInstallForce())
	}
	return u.ClusterPort.Install(ctx, c, opts...)
}
