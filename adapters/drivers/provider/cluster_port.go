package providerdrv

import (
	"context"
	"fmt"

	"github.com/securebackend/sbops/domain"
	"github.com/securebackend/sbops/domain/model"
)

// resolver builds drivers for provider IDs stored in the repository.
type resolver struct {
	providers domain.ProviderRepository
}

func (r resolver) driver(ctx context.Context, providerID string) (Driver, error) {
	provider, err := r.providers.Get(ctx, providerID)
	if err != nil {
		return nil, fmt.Errorf("failed to get provider %s: %w", providerID, err)
	}
	factory, exists := GetDriverFactory(provider.Driver)
	if !exists {
		return nil, fmt.Errorf("unknown provider driver: %s", provider.Driver)
	}
	driver, err := factory(provider)
	if err != nil {
		return nil, fmt.Errorf("failed to create driver %s: %w", provider.Driver, err)
	}
	return driver, nil
}

// clusterPortAdapter implements model.ClusterPort backed by provider drivers.
type clusterPortAdapter struct {
	resolver
}

func (a *clusterPortAdapter) Status(ctx context.Context, cluster *model.Cluster) (*model.ClusterStatus, error) {
	driver, err := a.driver(ctx, cluster.ProviderID)
	if err != nil {
		return nil, err
	}
	return driver.ClusterStatus(ctx, cluster)
}

func (a *clusterPortAdapter) Provision(ctx context.Context, cluster *model.Cluster, opts ...model.ClusterProvisionOption) error {
	if cluster.Existing {
		return fmt.Errorf("provision %s: %w", cluster.Name, model.ErrClusterExisting)
	}
	driver, err := a.driver(ctx, cluster.ProviderID)
	if err != nil {
		return err
	}
	return driver.ClusterProvision(ctx, cluster, opts...)
}

func (a *clusterPortAdapter) Deprovision(ctx context.Context, cluster *model.Cluster, opts ...model.ClusterDeprovisionOption) error {
	if cluster.Existing {
		return fmt.Errorf("deprovision %s: %w", cluster.Name, model.ErrClusterExisting)
	}
	driver, err := a.driver(ctx, cluster.ProviderID)
	if err != nil {
		return err
	}
	return driver.ClusterDeprovision(ctx, cluster, opts...)
}

func (a *clusterPortAdapter) Install(ctx context.Context, cluster *model.Cluster, opts ...model.ClusterInstallOption) error {
	driver, err := a.driver(ctx, cluster.ProviderID)
	if err != nil {
		return err
	}
	return driver.ClusterInstall(ctx, cluster, opts...)
}

func (a *clusterPortAdapter) Uninstall(ctx context.Context, cluster *model.Cluster, opts ...model.ClusterUninstallOption) error {
	driver, err := a.driver(ctx, cluster.ProviderID)
	if err != nil {
		return err
	}
	return driver.ClusterUninstall(ctx, cluster, opts...)
}

func (a *clusterPortAdapter) Kubeconfig(ctx context.Context, cluster *model.Cluster) ([]byte, error) {
	driver, err := a.driver(ctx, cluster.ProviderID)
	if err != nil {
		return nil, err
	}
	return driver.ClusterKubeconfig(ctx, cluster)
}

func (a *clusterPortAdapter) DNSApply(ctx context.Context, cluster *model.Cluster, rset model.DNSRecordSet, opts ...model.ClusterDNSApplyOption) error {
	driver, err := a.driver(ctx, cluster.ProviderID)
	if err != nil {
		return err
	}
	return driver.ClusterDNSApply(ctx, cluster, rset, opts...)
}

// GetClusterPort returns a model.ClusterPort implemented via provider drivers.
func GetClusterPort(providers domain.ProviderRepository) model.ClusterPort {
	return &clusterPortAdapter{resolver{providers: providers}}
}

// registryPortAdapter implements model.RegistryPort backed by provider drivers.
type registryPortAdapter struct {
	resolver
}

func (a *registryPortAdapter) Login(ctx context.Context, registry *model.Registry) (*model.RegistryCredentials, error) {
	driver, err := a.driver(ctx, registry.ProviderID)
	if err != nil {
		return nil, err
	}
	return driver.RegistryLogin(ctx, registry)
}

func (a *registryPortAdapter) Attach(ctx context.Context, registry *model.Registry, cluster *model.Cluster) error {
	driver, err := a.driver(ctx, registry.ProviderID)
	if err != nil {
		return err
	}
	return driver.RegistryAttach(ctx, registry, cluster)
}

// GetRegistryPort returns a model.RegistryPort implemented via provider drivers.
func GetRegistryPort(providers domain.ProviderRepository) model.RegistryPort {
	return &registryPortAdapter{resolver{providers: providers}}
}

// webAppPortAdapter implements model.WebAppPort backed by provider drivers.
type webAppPortAdapter struct {
	resolver
}

func (a *webAppPortAdapter) Deploy(ctx context.Context, app *model.WebApp) (*model.WebAppStatus, error) {
	driver, err := a.driver(ctx, app.ProviderID)
	if err != nil {
		return nil, err
	}
	return driver.WebAppDeploy(ctx, app)
}

func (a *webAppPortAdapter) Status(ctx context.Context, app *model.WebApp) (*model.WebAppStatus, error) {
	driver, err := a.driver(ctx, app.ProviderID)
	if err != nil {
		return nil, err
	}
	return driver.WebAppStatus(ctx, app)
}

// GetWebAppPort returns a model.WebAppPort implemented via provider drivers.
func GetWebAppPort(providers domain.ProviderRepository) model.WebAppPort {
	return &webAppPortAdapter{resolver{providers: providers}}
}
