package cluster

import (
	"context"
	"fmt"

	clientcmdapi "k8s.io/client-go/tools/clientcmd/api"

	"github.com/securebackend/sbops/internal/kubeconfig"
)

// KubeconfigInput selects the cluster and how its credentials are emitted.
type KubeconfigInput struct {
	ClusterID string `json:"cluster_id"`
	// Context renames the context, cluster and user. Defaults to the cluster name.
	Context   string `json:"context,omitempty"`
	Namespace string `json:"namespace,omitempty"`
	// MergePath merges into the kubeconfig file at this path when set.
	MergePath  string `json:"merge_path,omitempty"`
	Overwrite  bool   `json:"overwrite,omitempty"`
	SetCurrent bool   `json:"set_current,omitempty"`
}

// KubeconfigOutput carries the normalized config and the merge result.
type KubeconfigOutput struct {
	Config  *clientcmdapi.Config `json:"-"`
	Written string               `json:"written,omitempty"`
	Result  kubeconfig.Result    `json:"result"`
}

// Kubeconfig fetches cluster credentials, normalizes them and optionally
// merges them into a kubeconfig file.
func (u *UseCase) Kubeconfig(ctx context.Context, in *KubeconfigInput) (*KubeconfigOutput, error) {
	if in == nil || in.ClusterID == "" {
		return nil, fmt.Errorf("ClusterID is required")
	}
	c, err := u.Repos.Cluster.Get(ctx, in.ClusterID)
	if err != nil {
		return nil, err
	}
	raw, err := u.ClusterPort.Kubeconfig(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("get kubeconfig: %w", err)
	}
	name := in.Context
	if name == "" {
		name = c.Name
	}
	cfg, err := kubeconfig.Normalize(raw, name, in.Namespace)
	if err != nil {
		return nil, err
	}
	out := &KubeconfigOutput{Config: cfg, Result: kubeconfig.Result{Context: cfg.CurrentContext}}
	if in.MergePath == "" {
		return out, nil
	}
	merged, res, err := kubeconfig.Merge(cfg, in.MergePath, in.Overwrite, in.SetCurrent)
	if err != nil {
		return nil, err
	}
	if err := kubeconfig.WriteFile(merged, in.MergePath); err != nil {
		return nil, err
	}
	out.Config = merged
	out.Result = res
	out.Written = in.MergePath
	return out, nil
}
