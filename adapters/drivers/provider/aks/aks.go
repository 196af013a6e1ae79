// Package aks implements the Azure Kubernetes Service provider driver.
package aks

import (
	"fmt"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/arm"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"

	providerdrv "github.com/securebackend/sbops/adapters/drivers/provider"
	"github.com/securebackend/sbops/domain/model"
)

// Provider setting keys.
const (
	settingSubscriptionID = "AZURE_SUBSCRIPTION_ID"
	settingLocation       = "AZURE_LOCATION"
	settingAuthMethod     = "AZURE_AUTH_METHOD"
	settingTenantID       = "AZURE_TENANT_ID"
	settingClientID       = "AZURE_CLIENT_ID"
	settingClientSecret   = "AZURE_CLIENT_SECRET"
	settingTokenFile      = "AZURE_FEDERATED_TOKEN_FILE"
)

// Cluster setting keys.
const (
	settingAKSClusterName    = "AZURE_AKS_CLUSTER_NAME"
	settingRegistryName      = "AZURE_CONTAINER_REGISTRY_NAME"
	settingResourceGroupName = "AZURE_RESOURCE_GROUP_NAME"
)

// driver implements the AKS provider driver.
type driver struct {
	TokenCredential     azcore.TokenCredential
	AzureSubscriptionId string
	AzureLocation       string
	providerName        string
	clientOptions       *arm.ClientOptions // nil uses SDK defaults
}

// ID returns the provider identifier.
func (d *driver) ID() string { return "aks" }

// ProviderName returns the provider name.
func (d *driver) ProviderName() string { return d.providerName }

// init registers the AKS driver.
func init() {
	providerdrv.Register("aks", func(provider *model.Provider) (providerdrv.Driver, error) {
		return newDriver(provider)
	})
}

func newDriver(provider *model.Provider) (*driver, error) {
	if provider == nil {
		return nil, fmt.Errorf("provider is nil")
	}
	get := func(k string) string {
		if provider.Settings == nil {
			return ""
		}
		return strings.TrimSpace(provider.Settings[k])
	}

	subscriptionID := get(settingSubscriptionID)
	location := get(settingLocation)
	missing := make([]string, 0, 2)
	if subscriptionID == "" {
		missing = append(missing, settingSubscriptionID)
	}
	if location == "" {
		missing = append(missing, settingLocation)
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required AKS settings: %s", strings.Join(missing, ", "))
	}

	cred, err := newCredential(get(settingAuthMethod), get)
	if err != nil {
		return nil, err
	}

	return &driver{
		TokenCredential:     cred,
		AzureSubscriptionId: subscriptionID,
		AzureLocation:       location,
		providerName:        provider.Name,
	}, nil
}

// newCredential builds the token credential selected by AZURE_AUTH_METHOD.
// An empty method falls back to the default credential chain.
func newCredential(authMethod string, get func(string) string) (azcore.TokenCredential, error) {
	var cred azcore.TokenCredential
	var err error
	switch authMethod {
	case "client_secret":
		tenantID := get(settingTenantID)
		clientID := get(settingClientID)
		clientSecret := get(settingClientSecret)
		if tenantID == "" || clientID == "" || clientSecret == "" {
			return nil, fmt.Errorf("client_secret auth requires %s, %s, %s", settingTenantID, settingClientID, settingClientSecret)
		}
		cred, err = azidentity.NewClientSecretCredential(tenantID, clientID, clientSecret, nil)
	case "managed_identity":
		opts := &azidentity.ManagedIdentityCredentialOptions{}
		if clientID := get(settingClientID); clientID != "" {
			opts.ID = azidentity.ClientID(clientID)
		}
		cred, err = azidentity.NewManagedIdentityCredential(opts)
	case "workload_identity":
		tenantID := get(settingTenantID)
		clientID := get(settingClientID)
		tokenFile := get(settingTokenFile)
		if tenantID == "" || clientID == "" || tokenFile == "" {
			return nil, fmt.Errorf("workload_identity auth requires %s, %s, %s", settingTenantID, settingClientID, settingTokenFile)
		}
		cred, err = azidentity.NewWorkloadIdentityCredential(&azidentity.WorkloadIdentityCredentialOptions{
			TenantID:      tenantID,
			ClientID:      clientID,
			TokenFilePath: tokenFile,
		})
	case "azure_cli":
		cred, err = azidentity.NewAzureCLICredential(nil)
	case "azure_developer_cli":
		cred, err = azidentity.NewAzureDeveloperCLICredential(nil)
	case "", "default":
		opts := &azidentity.DefaultAzureCredentialOptions{}
		if tenantID := get(settingTenantID); tenantID != "" {
			opts.TenantID = tenantID
		}
		cred, err = azidentity.NewDefaultAzureCredential(opts)
	default:
		return nil, fmt.Errorf("unsupported %s: %s", settingAuthMethod, authMethod)
	}
	if err != nil {
		return nil, fmt.Errorf("create Azure credential: %w", err)
	}
	return cred, nil
}

// aksClusterName returns the managed cluster resource name.
func aksClusterName(cluster *model.Cluster) string {
	if v := strings.TrimSpace(cluster.Settings[settingAKSClusterName]); v != "" {
		return v
	}
	return cluster.Name
}

// clusterResourceGroupName returns the resource group holding the cluster.
func clusterResourceGroupName(cluster *model.Cluster) (string, error) {
	if cluster == nil {
		return "", fmt.Errorf("cluster nil")
	}
	if cluster.ResourceGroup != "" {
		return cluster.ResourceGroup, nil
	}
	if v := strings.TrimSpace(cluster.Settings[settingResourceGroupName]); v != "" {
		return v, nil
	}
	return "", fmt.Errorf("cluster %s: resource group is required", cluster.Name)
}
