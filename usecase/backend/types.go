// Package backend deploys the secure-backend API to AKS or to an App Service
// Web App and reports on it.
package backend

import (
	"context"
	"fmt"

	"github.com/securebackend/sbops/adapters/kube"
	"github.com/securebackend/sbops/domain"
	"github.com/securebackend/sbops/domain/model"
)

// Repos holds repositories needed for backend use cases.
type Repos struct {
	Backend  domain.BackendRepository
	Cluster  domain.ClusterRepository
	Registry domain.RegistryRepository
}

// UseCase wires repositories, ports and the kube client factory.
type UseCase struct {
	Repos        *Repos
	ClusterPort  model.ClusterPort
	RegistryPort model.RegistryPort
	WebAppPort   model.WebAppPort
	// KubeClient defaults to kube.DefaultClientFactory.
	KubeClient kube.ClientFactory
}

// target bundles a backend with its cluster and registry.
type target struct {
	backend  *model.Backend
	cluster  *model.Cluster
	registry *model.Registry
}

func (u *UseCase) load(ctx context.Context, backendID string) (*target, error) {
	if backendID == "" {
		return nil, fmt.Errorf("BackendID is required")
	}
	b, err := u.Repos.Backend.Get(ctx, backendID)
	if err != nil {
		return nil, err
	}
	t := &target{backend: b}
	if b.ClusterID != "" {
		if t.cluster, err = u.Repos.Cluster.Get(ctx, b.ClusterID); err != nil {
			return nil, fmt.Errorf("get cluster: %w", err)
		}
	}
	if b.RegistryID != "" {
		if t.registry, err = u.Repos.Registry.Get(ctx, b.RegistryID); err != nil {
			return nil, fmt.Errorf("get registry: %w", err)
		}
	}
	if b.Target != model.BackendTargetWebApp && t.cluster == nil {
		return nil, fmt.Errorf("backend %s: cluster is required for target %s", b.Name, b.Target)
	}
	return t, nil
}

// kubeClient connects to the backend cluster.
func (u *UseCase) kubeClient(ctx context.Context, cluster *model.Cluster) (*kube.Client, error) {
	kubeconfig, err := u.ClusterPort.Kubeconfig(ctx, cluster)
	if err != nil {
		return nil, fmt.Errorf("get kubeconfig: %w", err)
	}
	factory := u.KubeClient
	if factory == nil {
		factory = kube.DefaultClientFactory
	}
	client, err := factory(ctx, kubeconfig)
	if err != nil {
		return nil, fmt.Errorf("create kube client: %w", err)
	}
	return client, nil
}

// webApp builds the App Service request of a webapp-targeted backend.
func webApp(t *target, image string, creds *model.RegistryCredentials) (*model.WebApp, error) {
	b := t.backend
	if b.WebApp == nil || b.WebApp.Name == "" {
		return nil, fmt.Errorf("backend %s: webApp.name is required for target webapp", b.Name)
	}
	settings := make(map[string]string, len(b.Env)+1)
	for k, v := range b.Env {
		settings[k] = v
	}
	if b.Token != "" {
		settings["API_TOKEN"] = b.Token
	}
	app := &model.WebApp{
		Name:          b.WebApp.Name,
		ResourceGroup: b.WebApp.ResourceGroup,
		Image:         image,
		Registry:      creds,
		AppSettings:   settings,
		Port:          b.Port,
	}
	if t.registry != nil {
		app.ProviderID = t.registry.ProviderID
	} else if t.cluster != nil {
		app.ProviderID = t.cluster.ProviderID
	}
	return app, nil
}
