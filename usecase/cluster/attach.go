package cluster

import (
	"context"
	"fmt"
)

// AttachRegistryInput grants a cluster pull access to a registry.
type AttachRegistryInput struct {
	ClusterID  string `json:"cluster_id"`
	RegistryID string `json:"registry_id"`
}

// AttachRegistry assigns AcrPull on the registry to the cluster kubelet identity.
func (u *UseCase) AttachRegistry(ctx context.Context, in *AttachRegistryInput) error {
	if in == nil || in.ClusterID == "" || in.RegistryID == "" {
		return fmt.Errorf("ClusterID and RegistryID are required")
	}
	c, err := u.Repos.Cluster.Get(ctx, in.ClusterID)
	if err != nil {
		return err
	}
	r, err := u.Repos.Registry.Get(ctx, in.RegistryID)
	if err != nil {
		return err
	}
	return u.RegistryPort.Attach(ctx, r, c)
}
