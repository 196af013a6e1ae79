package cluster

import (
	"context"
	"fmt"

	"github.com/securebackend/sbops/domain/model"
)

// Add-on names reported in StatusOutput.Missing.
const (
	AddonIngress     = "ingress-nginx"
	AddonCertManager = "cert-manager"
)

// StatusInput selects the cluster to inspect.
type StatusInput struct {
	ClusterID string `json:"cluster_id"`
}

// StatusOutput is the provider status plus what `install` would still add.
type StatusOutput struct {
	model.ClusterStatus
	ClusterID   string   `json:"cluster_id"`
	ClusterName string   `json:"cluster_name"`
	Installed   bool     `json:"installed"`
	Missing     []string `json:"missing,omitempty"`
	// Ready means the cluster can take a backend deploy.
	Ready bool `json:"ready"`
}

// missingAddons lists the required add-ons absent from st.
func missingAddons(c *model.Cluster, st *model.ClusterStatus) []string {
	var missing []string
	if !st.IngressInstalled {
		missing = append(missing, AddonIngress)
	}
	if c.CertManager != nil && c.CertManager.Enabled && !st.CertManagerInstalled {
		missing = append(missing, AddonCertManager)
	}
	return missing
}

// Status reports provisioning state and add-on presence of a cluster.
func (u *UseCase) Status(ctx context.Context, in *StatusInput) (*StatusOutput, error) {
	if in == nil || in.ClusterID == "" {
		return nil, fmt.Errorf("ClusterID is required")
	}
	c, err := u.Repos.Cluster.Get(ctx, in.ClusterID)
	if err != nil {
		return nil, err
	}
	st, err := u.ClusterPort.Status(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("cluster %s status: %w", c.Name, err)
	}
	out := &StatusOutput{
		ClusterStatus: *st,
		ClusterID:     c.ID,
		ClusterName:   c.Name,
		Installed:     st.Installed(c),
	}
	if st.Provisioned || c.Existing {
		out.Missing = missingAddons(c, st)
	}
	out.Ready = (st.Provisioned || c.Existing) && out.Installed
	return out, nil
}
