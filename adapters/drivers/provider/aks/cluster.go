package aks

import (
	"context"
	"fmt"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/containerservice/armcontainerservice/v2"

	"github.com/securebackend/sbops/adapters/kube"
	"github.com/securebackend/sbops/domain/model"
	"github.com/securebackend/sbops/internal/logging"
)

// kubeletIdentityKey is the identityProfile entry of the kubelet managed identity.
const kubeletIdentityKey = "kubeletidentity"

// ClusterProvision creates the resource group and the cluster deployment stack.
func (d *driver) ClusterProvision(ctx context.Context, cluster *model.Cluster, opts ...model.ClusterProvisionOption) (err error) {
	ctx, cleanup := d.withMethodLogger(ctx, "ClusterProvision")
	defer func() { cleanup(err) }()

	var o model.ClusterProvisionOptions
	for _, opt := range opts {
		opt(&o)
	}

	ctx, cancel := context.WithTimeout(ctx, 30*time.Minute)
	defer cancel()

	rg, err := clusterResourceGroupName(cluster)
	if err != nil {
		return err
	}
	if err := d.ensureAzureResourceGroupCreated(ctx, rg, d.managedTags(cluster.Name)); err != nil {
		return err
	}
	if err := d.ensureAzureDeploymentStackCreated(ctx, cluster, rg, o.Force); err != nil {
		return err
	}

	outputs, err := d.azureDeploymentStackOutputs(ctx, cluster, rg)
	if err != nil {
		return err
	}
	logging.FromContext(ctx).Info(ctx, "deployment stack outputs",
		"resource_group", outputs[outputResourceGroupName],
		"aks", outputs[outputAksClusterName],
		"kubelet_principal_id", outputs[outputAksKubeletPrincipalID],
		"registry_login_server", outputs[outputRegistryLoginServer],
	)

	// A static ingress IP lives in the cluster resource group; the cluster
	// identity needs Network Contributor there to bind it to the load balancer.
	if cluster.Ingress != nil && cluster.Ingress.StaticIP != "" {
		principalID, _ := outputs[outputAksPrincipalID].(string)
		if principalID == "" {
			return fmt.Errorf("%s not found in deployment stack outputs", outputAksPrincipalID)
		}
		scope := fmt.Sprintf("/subscriptions/%s/resourceGroups/%s", d.AzureSubscriptionId, rg)
		logger := logging.FromContext(ctx).With("principalId", principalID, "scope", scope)
		if err := d.ensureAzureRole(ctx, scope, principalID, d.azureRoleDefinitionID(roleDefIDNetworkContributor)); err != nil {
			logger.Info(ctx, "AKS:RoleRG/efail", "err", azureShorterErrorString(err))
			return err
		}
		logger.Info(ctx, "AKS:RoleRG/eok")
	}
	return nil
}

// ClusterDeprovision deletes the cluster deployment stack. Force also deletes
// the resource group.
func (d *driver) ClusterDeprovision(ctx context.Context, cluster *model.Cluster, opts ...model.ClusterDeprovisionOption) (err error) {
	ctx, cleanup := d.withMethodLogger(ctx, "ClusterDeprovision")
	defer func() { cleanup(err) }()

	var o model.ClusterDeprovisionOptions
	for _, opt := range opts {
		opt(&o)
	}

	ctx, cancel := context.WithTimeout(ctx, 30*time.Minute)
	defer cancel()

	rg, err := clusterResourceGroupName(cluster)
	if err != nil {
		return err
	}
	if err := d.ensureAzureDeploymentStackDeleted(ctx, cluster, rg); err != nil {
		return err
	}
	if o.Force {
		return d.ensureAzureResourceGroupDeleted(ctx, rg)
	}
	return nil
}

func (d *driver) managedClustersClient() (*armcontainerservice.ManagedClustersClient, error) {
	client, err := armcontainerservice.NewManagedClustersClient(d.AzureSubscriptionId, d.TokenCredential, d.clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to create AKS client: %w", err)
	}
	return client, nil
}

// azureManagedCluster fetches the managed cluster resource.
func (d *driver) azureManagedCluster(ctx context.Context, cluster *model.Cluster) (*armcontainerservice.ManagedCluster, error) {
	rg, err := clusterResourceGroupName(cluster)
	if err != nil {
		return nil, err
	}
	client, err := d.managedClustersClient()
	if err != nil {
		return nil, err
	}
	res, err := client.Get(ctx, rg, aksClusterName(cluster), nil)
	if err != nil {
		return nil, err
	}
	return &res.ManagedCluster, nil
}

// applyManagedClusterStatus copies the managed cluster state into status.
func applyManagedClusterStatus(status *model.ClusterStatus, mc *armcontainerservice.ManagedCluster) {
	if mc == nil || mc.Properties == nil {
		return
	}
	p := mc.Properties
	if p.ProvisioningState != nil {
		status.ProvisioningState = *p.ProvisioningState
		status.Provisioned = *p.ProvisioningState == "Succeeded"
	}
	if p.PowerState != nil && p.PowerState.Code != nil {
		status.PowerState = string(*p.PowerState.Code)
	}
	if p.CurrentKubernetesVersion != nil {
		status.KubernetesVersion = *p.CurrentKubernetesVersion
	} else if p.KubernetesVersion != nil {
		status.KubernetesVersion = *p.KubernetesVersion
	}
	if p.Fqdn != nil {
		status.FQDN = *p.Fqdn
	}
}

// kubeletObjectID returns the object ID of the kubelet managed identity.
func kubeletObjectID(mc *armcontainerservice.ManagedCluster) (string, error) {
	if mc == nil || mc.Properties == nil || mc.Properties.IdentityProfile == nil {
		return "", fmt.Errorf("managed cluster has no identity profile")
	}
	id, ok := mc.Properties.IdentityProfile[kubeletIdentityKey]
	if !ok || id == nil || id.ObjectID == nil || *id.ObjectID == "" {
		return "", fmt.Errorf("managed cluster has no %s", kubeletIdentityKey)
	}
	return *id.ObjectID, nil
}

// ClusterStatus reports the managed cluster state and the in-cluster add-ons.
func (d *driver) ClusterStatus(ctx context.Context, cluster *model.Cluster) (_ *model.ClusterStatus, err error) {
	ctx, cleanup := d.withMethodLogger(ctx, "ClusterStatus")
	defer func() { cleanup(err) }()

	ctx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	status := &model.ClusterStatus{Existing: cluster.Existing}

	mc, err := d.azureManagedCluster(ctx, cluster)
	if err != nil {
		if isAzureNotFound(err) {
			return status, nil
		}
		return nil, fmt.Errorf("get managed cluster: %w", err)
	}
	applyManagedClusterStatus(status, mc)
	if !status.Provisioned {
		return status, nil
	}

	installer, err := d.installer(ctx, cluster)
	if err != nil {
		logging.FromContext(ctx).Warn(ctx, "add-on status unavailable", "err", err)
		return status, nil
	}
	addons, err := installer.Status(ctx, cluster)
	if err != nil {
		logging.FromContext(ctx).Warn(ctx, "add-on status unavailable", "err", err)
		return status, nil
	}
	status.IngressInstalled = addons.Ingress
	status.CertManagerInstalled = addons.CertManager
	return status, nil
}

// ClusterKubeconfig returns the user kubeconfig of the managed cluster.
func (d *driver) ClusterKubeconfig(ctx context.Context, cluster *model.Cluster) (_ []byte, err error) {
	ctx, cleanup := d.withMethodLogger(ctx, "ClusterKubeconfig")
	defer func() { cleanup(err) }()
	return d.azureKubeconfig(ctx, cluster)
}

func (d *driver) azureKubeconfig(ctx context.Context, cluster *model.Cluster) ([]byte, error) {
	rg, err := clusterResourceGroupName(cluster)
	if err != nil {
		return nil, err
	}
	client, err := d.managedClustersClient()
	if err != nil {
		return nil, err
	}
	credResult, err := client.ListClusterUserCredentials(ctx, rg, aksClusterName(cluster), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get cluster credentials: %w", err)
	}
	if len(credResult.Kubeconfigs) == 0 || len(credResult.Kubeconfigs[0].Value) == 0 {
		return nil, fmt.Errorf("no kubeconfig found for cluster %s", cluster.Name)
	}
	return credResult.Kubeconfigs[0].Value, nil
}

// installer builds a kube.Installer connected to the cluster.
func (d *driver) installer(ctx context.Context, cluster *model.Cluster) (*kube.Installer, error) {
	kubeconfig, err := d.azureKubeconfig(ctx, cluster)
	if err != nil {
		return nil, err
	}
	client, err := kube.NewClientFromKubeconfig(ctx, kubeconfig, nil)
	if err != nil {
		return nil, fmt.Errorf("create kube client: %w", err)
	}
	return kube.NewInstaller(client, kubeconfig), nil
}

// ClusterInstall installs ingress-nginx and cert-manager.
func (d *driver) ClusterInstall(ctx context.Context, cluster *model.Cluster, opts ...model.ClusterInstallOption) (err error) {
	ctx, cleanup := d.withMethodLogger(ctx, "ClusterInstall")
	defer func() { cleanup(err) }()

	var o model.ClusterInstallOptions
	for _, opt := range opts {
		opt(&o)
	}
	installer, err := d.installer(ctx, cluster)
	if err != nil {
		return err
	}
	return installer.Install(ctx, cluster, o.Force)
}

// ClusterUninstall removes the add-ons installed by ClusterInstall.
func (d *driver) ClusterUninstall(ctx context.Context, cluster *model.Cluster, opts ...model.ClusterUninstallOption) (err error) {
	ctx, cleanup := d.withMethodLogger(ctx, "ClusterUninstall")
	defer func() { cleanup(err) }()

	installer, err := d.installer(ctx, cluster)
	if err != nil {
		return err
	}
	return installer.Uninstall(ctx, cluster)
}
