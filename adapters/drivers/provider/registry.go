package providerdrv

import (
	"context"
	"sort"
	"sync"

	"github.com/securebackend/sbops/domain/model"
)

// Driver abstracts provider-specific behavior.
// Implementations live under adapters/drivers/provider/<name> and return a
// provider identifier such as "aks" via ID().
type Driver interface {
	// ID returns the provider identifier (e.g., "aks").
	ID() string

	// ProviderName returns the name of the provider instance the driver was built for.
	ProviderName() string

	// ClusterProvision creates the cluster infrastructure.
	ClusterProvision(ctx context.Context, cluster *model.Cluster, opts ...model.ClusterProvisionOption) error

	// ClusterDeprovision removes the cluster infrastructure.
	ClusterDeprovision(ctx context.Context, cluster *model.Cluster, opts ...model.ClusterDeprovisionOption) error

	// ClusterStatus returns the status of a cluster.
	ClusterStatus(ctx context.Context, cluster *model.Cluster) (*model.ClusterStatus, error)

	// ClusterInstall installs the in-cluster add-ons.
	ClusterInstall(ctx context.Context, cluster *model.Cluster, opts ...model.ClusterInstallOption) error

	// ClusterUninstall removes the in-cluster add-ons.
	ClusterUninstall(ctx context.Context, cluster *model.Cluster, opts ...model.ClusterUninstallOption) error

	// ClusterKubeconfig returns a user kubeconfig for the cluster.
	ClusterKubeconfig(ctx context.Context, cluster *model.Cluster) ([]byte, error)

	// ClusterDNSApply upserts or deletes a DNS record set in a zone reachable from the cluster.
	ClusterDNSApply(ctx context.Context, cluster *model.Cluster, rset model.DNSRecordSet, opts ...model.ClusterDNSApplyOption) error

	// RegistryLogin returns push/pull credentials for a registry.
	RegistryLogin(ctx context.Context, registry *model.Registry) (*model.RegistryCredentials, error)

	// RegistryAttach grants the cluster pull access to a registry.
	RegistryAttach(ctx context.Context, registry *model.Registry, cluster *model.Cluster) error

	// WebAppDeploy points an App Service site at a container image.
	WebAppDeploy(ctx context.Context, app *model.WebApp) (*model.WebAppStatus, error)

	// WebAppStatus returns the current state of an App Service site.
	WebAppStatus(ctx context.Context, app *model.WebApp) (*model.WebAppStatus, error)
}

// driverFactory is a constructor function for a provider driver.
type driverFactory func(provider *model.Provider) (Driver, error)

var (
	mu       sync.RWMutex
	registry = map[string]driverFactory{}
)

// Register makes a driver available by the given name. Drivers should call
// this from their init() function.
func Register(name string, factory driverFactory) {
	mu.Lock()
	defer mu.Unlock()
	registry[name] = factory
}

// GetDriverFactory returns the driver factory function for the given name.
func GetDriverFactory(name string) (driverFactory, bool) {
	mu.RLock()
	defer mu.RUnlock()
	factory, exists := registry[name]
	return factory, exists
}

// Drivers returns the registered driver names in sorted order.
func Drivers() []string {
	mu.RLock()
	defer mu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
