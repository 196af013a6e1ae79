package main

import (
	"github.com/spf13/cobra"

	"github.com/securebackend/sbops/adapters/docker"
	providerdrv "github.com/securebackend/sbops/adapters/drivers/provider"
	healthprobe "github.com/securebackend/sbops/adapters/health"
	"github.com/securebackend/sbops/adapters/kube"
	"github.com/securebackend/sbops/domain"
	"github.com/securebackend/sbops/usecase/backend"
	"github.com/securebackend/sbops/usecase/cluster"
	"github.com/securebackend/sbops/usecase/dns"
	"github.com/securebackend/sbops/usecase/frontend"
	"github.com/securebackend/sbops/usecase/health"
	"github.com/securebackend/sbops/usecase/image"
	"github.com/securebackend/sbops/usecase/pipeline"
)

func newClusterUseCase(repos *domain.Repositories) *cluster.UseCase {
	return &cluster.UseCase{
		Repos:        &cluster.Repos{Cluster: repos.Cluster, Registry: repos.Registry},
		ClusterPort:  providerdrv.GetClusterPort(repos.Provider),
		RegistryPort: providerdrv.GetRegistryPort(repos.Provider),
	}
}

func newBackendUseCase(repos *domain.Repositories) *backend.UseCase {
	return &backend.UseCase{
		Repos:        &backend.Repos{Backend: repos.Backend, Cluster: repos.Cluster, Registry: repos.Registry},
		ClusterPort:  providerdrv.GetClusterPort(repos.Provider),
		RegistryPort: providerdrv.GetRegistryPort(repos.Provider),
		WebAppPort:   providerdrv.GetWebAppPort(repos.Provider),
		KubeClient:   kube.DefaultClientFactory,
	}
}

func newDNSUseCase(repos *domain.Repositories) *dns.UseCase {
	return &dns.UseCase{
		Repos:       &dns.Repos{Backend: repos.Backend, Cluster: repos.Cluster},
		ClusterPort: providerdrv.GetClusterPort(repos.Provider),
		KubeClient:  kube.DefaultClientFactory,
	}
}

func newFrontendUseCase(repos *domain.Repositories) *frontend.UseCase {
	return &frontend.UseCase{
		Repos:        &frontend.Repos{Frontend: repos.Frontend, Backend: repos.Backend, Registry: repos.Registry},
		RegistryPort: providerdrv.GetRegistryPort(repos.Provider),
		WebAppPort:   providerdrv.GetWebAppPort(repos.Provider),
	}
}

func newHealthUseCase(repos *domain.Repositories) *health.UseCase {
	return &health.UseCase{
		Repos:      &health.Repos{Backend: repos.Backend},
		HealthPort: &healthprobe.Prober{},
	}
}

// newImageUseCase connects to the Docker engine. The returned func closes
// the engine client.
func newImageUseCase(repos *domain.Repositories) (*image.UseCase, func(), error) {
	engine, err := docker.New()
	if err != nil {
		return nil, nil, err
	}
	return &image.UseCase{
		Repos:        &image.Repos{Backend: repos.Backend, Frontend: repos.Frontend, Registry: repos.Registry},
		ImagePort:    engine,
		RegistryPort: providerdrv.GetRegistryPort(repos.Provider),
	}, func() { _ = engine.Close() }, nil
}

// buildClusterUseCase creates cluster use case with required repositories and ports.
func buildClusterUseCase(cmd *cobra.Command) (*cluster.UseCase, error) {
	repos, err := buildRepos(cmd)
	if err != nil {
		return nil, err
	}
	return newClusterUseCase(repos), nil
}

// buildImageUseCase creates image use case backed by the local Docker engine.
func buildImageUseCase(cmd *cobra.Command) (*image.UseCase, func(), error) {
	repos, err := buildRepos(cmd)
	if err != nil {
		return nil, nil, err
	}
	return newImageUseCase(repos)
}

// buildBackendUseCase creates backend use case with required repositories and ports.
func buildBackendUseCase(cmd *cobra.Command) (*backend.UseCase, error) {
	repos, err := buildRepos(cmd)
	if err != nil {
		return nil, err
	}
	return newBackendUseCase(repos), nil
}

// buildFrontendUseCase creates frontend use case with required repositories and ports.
func buildFrontendUseCase(cmd *cobra.Command) (*frontend.UseCase, error) {
	repos, err := buildRepos(cmd)
	if err != nil {
		return nil, err
	}
	return newFrontendUseCase(repos), nil
}

// buildDNSUseCase creates DNS use case with required repositories and ports.
func buildDNSUseCase(cmd *cobra.Command) (*dns.UseCase, error) {
	repos, err := buildRepos(cmd)
	if err != nil {
		return nil, err
	}
	return newDNSUseCase(repos), nil
}

// buildHealthUseCase creates health use case with the HTTP prober.
func buildHealthUseCase(cmd *cobra.Command) (*health.UseCase, error) {
	repos, err := buildRepos(cmd)
	if err != nil {
		return nil, err
	}
	return newHealthUseCase(repos), nil
}

// buildPipelineUseCase composes every use case over one set of repositories.
func buildPipelineUseCase(cmd *cobra.Command) (*pipeline.UseCase, func(), error) {
	repos, err := buildRepos(cmd)
	if err != nil {
		return nil, nil, err
	}
	img, closeImage, err := newImageUseCase(repos)
	if err != nil {
		return nil, nil, err
	}
	return &pipeline.UseCase{
		Repos:    &pipeline.Repos{Run: repos.Run, Backend: repos.Backend},
		Cluster:  newClusterUseCase(repos),
		Image:    img,
		Backend:  newBackendUseCase(repos),
		DNS:      newDNSUseCase(repos),
		Frontend: newFrontendUseCase(repos),
		Health:   newHealthUseCase(repos),
	}, closeImage, nil
}

// buildRunsUseCase creates a pipeline use case limited to run history queries.
func buildRunsUseCase(cmd *cobra.Command) (*pipeline.UseCase, error) {
	repos, err := buildRepos(cmd)
	if err != nil {
		return nil, err
	}
	return &pipeline.UseCase{Repos: &pipeline.Repos{Run: repos.Run, Backend: repos.Backend}}, nil
}
