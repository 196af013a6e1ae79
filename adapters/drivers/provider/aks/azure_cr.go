package aks

import (
	"context"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/containerregistry/armcontainerregistry"

	"github.com/securebackend/sbops/domain/model"
	"github.com/securebackend/sbops/internal/logging"
)

func (d *driver) registriesClient() (*armcontainerregistry.RegistriesClient, error) {
	client, err := armcontainerregistry.NewRegistriesClient(d.AzureSubscriptionId, d.TokenCredential, d.clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to create container registry client: %w", err)
	}
	return client, nil
}

// registryResourceGroup returns the resource group holding the registry.
func registryResourceGroup(registry *model.Registry) (string, error) {
	if registry.ResourceGroup != "" {
		return registry.ResourceGroup, nil
	}
	if v := registry.Settings[settingResourceGroupName]; v != "" {
		return v, nil
	}
	return "", fmt.Errorf("registry %s: resource group is required", registry.Name)
}

// registryCredentials converts the admin credential listing.
func registryCredentials(loginServer string, res *armcontainerregistry.RegistryListCredentialsResult) (*model.RegistryCredentials, error) {
	if res == nil || res.Username == nil || *res.Username == "" {
		return nil, fmt.Errorf("registry %s returned no admin username (is the admin user enabled?)", loginServer)
	}
	for _, p := range res.Passwords {
		if p != nil && p.Value != nil && *p.Value != "" {
			return &model.RegistryCredentials{
				LoginServer: loginServer,
				Username:    *res.Username,
				Password:    *p.Value,
			}, nil
		}
	}
	return nil, fmt.Errorf("registry %s returned no admin password", loginServer)
}

// RegistryLogin resolves the login server and admin credentials of an ACR.
func (d *driver) RegistryLogin(ctx context.Context, registry *model.Registry) (_ *model.RegistryCredentials, err error) {
	ctx, cleanup := d.withMethodLogger(ctx, "RegistryLogin")
	defer func() { cleanup(err) }()

	rg, err := registryResourceGroup(registry)
	if err != nil {
		return nil, err
	}
	client, err := d.registriesClient()
	if err != nil {
		return nil, err
	}
	reg, err := client.Get(ctx, rg, registry.Name, nil)
	if err != nil {
		if isAzureNotFound(err) {
			return nil, fmt.Errorf("registry %s: %w", registry.Name, model.ErrRegistryNotFound)
		}
		return nil, fmt.Errorf("get registry %s: %w", registry.Name, err)
	}
	if reg.Properties == nil || reg.Properties.LoginServer == nil {
		return nil, fmt.Errorf("registry %s has no login server", registry.Name)
	}
	loginServer := *reg.Properties.LoginServer

	res, err := client.ListCredentials(ctx, rg, registry.Name, nil)
	if err != nil {
		return nil, fmt.Errorf("list registry credentials: %w", err)
	}
	return registryCredentials(loginServer, &res.RegistryListCredentialsResult)
}

// RegistryAttach grants the cluster kubelet identity AcrPull on the registry.
func (d *driver) RegistryAttach(ctx context.Context, registry *model.Registry, cluster *model.Cluster) (err error) {
	ctx, cleanup := d.withMethodLogger(ctx, "RegistryAttach")
	defer func() { cleanup(err) }()

	rg, err := registryResourceGroup(registry)
	if err != nil {
		return err
	}
	client, err := d.registriesClient()
	if err != nil {
		return err
	}
	reg, err := client.Get(ctx, rg, registry.Name, nil)
	if err != nil {
		return fmt.Errorf("get registry %s: %w", registry.Name, err)
	}
	if reg.ID == nil {
		return fmt.Errorf("registry %s has no resource ID", registry.Name)
	}

	mc, err := d.azureManagedCluster(ctx, cluster)
	if err != nil {
		return fmt.Errorf("get managed cluster: %w", err)
	}
	principalID, err := kubeletObjectID(mc)
	if err != nil {
		return err
	}

	logger := logging.FromContext(ctx).With("principalId", principalID, "scope", *reg.ID)
	if err := d.ensureAzureRole(ctx, *reg.ID, principalID, d.azureRoleDefinitionID(roleDefIDAcrPull)); err != nil {
		logger.Info(ctx, "AKS:RoleACR/efail", "err", azureShorterErrorString(err))
		return err
	}
	logger.Info(ctx, "AKS:RoleACR/eok")
	return nil
}
