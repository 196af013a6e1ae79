package aks

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/resources/armdeploymentstacks"

	"github.com/securebackend/sbops/domain/model"
	"github.com/securebackend/sbops/internal/logging"
	"github.com/securebackend/sbops/internal/naming"
)

// mainJSON is the resource group scoped ARM template creating the registry,
// the managed cluster and the kubelet AcrPull assignment.
//
//go:embed main.json
var mainJSON []byte

// Deployment stack output keys.
const (
	outputResourceGroupName     = "AZURE_RESOURCE_GROUP_NAME"
	outputAksClusterName        = "AZURE_AKS_CLUSTER_NAME"
	outputAksPrincipalID        = "AZURE_AKS_PRINCIPAL_ID"
	outputAksKubeletPrincipalID = "AZURE_AKS_KUBELET_PRINCIPAL_ID"
	outputRegistryLoginServer   = "AZURE_CONTAINER_REGISTRY_LOGIN_SERVER"
)

// deploymentStackName returns the stack name owning the cluster infrastructure.
func (d *driver) deploymentStackName(cluster *model.Cluster) string {
	return naming.NewHashes(d.providerName, cluster.Name, "").StackName(cluster.Name)
}

// stackTemplate returns the embedded template as a JSON object.
func stackTemplate() (map[string]any, error) {
	var template map[string]any
	if err := json.Unmarshal(mainJSON, &template); err != nil {
		return nil, fmt.Errorf("unmarshal embedded template: %w", err)
	}
	return template, nil
}

// stackParameters maps the cluster specification to template parameters.
func (d *driver) stackParameters(cluster *model.Cluster) map[string]*armdeploymentstacks.DeploymentParameter {
	tags := map[string]any{}
	for k, v := range d.managedTags(cluster.Name) {
		tags[k] = *v
	}
	params := map[string]*armdeploymentstacks.DeploymentParameter{
		"clusterName":       {Value: aksClusterName(cluster)},
		"location":          {Value: d.AzureLocation},
		"registryName":      {Value: strings.TrimSpace(cluster.Settings[settingRegistryName])},
		"kubernetesVersion": {Value: cluster.KubernetesVersion},
		"tags":              {Value: tags},
	}
	if cluster.NodeCount > 0 {
		params["nodeCount"] = &armdeploymentstacks.DeploymentParameter{Value: cluster.NodeCount}
	}
	if cluster.NodeVMSize != "" {
		params["nodeVmSize"] = &armdeploymentstacks.DeploymentParameter{Value: cluster.NodeVMSize}
	}
	return params
}

// stackOutputs flattens ARM outputs ({"key":{"type":..,"value":..}}) into
// upper-cased keys. ARM does not preserve the case of output names.
func stackOutputs(raw any) (map[string]any, error) {
	outputsMap, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("deployment stack outputs has unexpected type %T", raw)
	}
	outputs := make(map[string]any, len(outputsMap))
	for key, value := range outputsMap {
		if outputValue, ok := value.(map[string]any); ok {
			if val, exists := outputValue["value"]; exists {
				outputs[strings.ToUpper(key)] = val
			}
		}
	}
	return outputs, nil
}

func (d *driver) stacksClient() (*armdeploymentstacks.Client, error) {
	client, err := armdeploymentstacks.NewClient(d.AzureSubscriptionId, d.TokenCredential, d.clientOptions)
	if err != nil {
		return nil, fmt.Errorf("create deployment stacks client: %w", err)
	}
	return client, nil
}

// ensureAzureDeploymentStackCreated creates or updates the cluster stack.
// A succeeded stack is left untouched unless force is set.
func (d *driver) ensureAzureDeploymentStackCreated(ctx context.Context, cluster *model.Cluster, rg string, force bool) error {
	log := logging.FromContext(ctx)

	template, err := stackTemplate()
	if err != nil {
		return err
	}
	client, err := d.stacksClient()
	if err != nil {
		return err
	}
	name := d.deploymentStackName(cluster)

	if existing, err := client.GetAtResourceGroup(ctx, rg, name, nil); err == nil {
		if existing.Properties != nil && existing.Properties.ProvisioningState != nil &&
			*existing.Properties.ProvisioningState == armdeploymentstacks.DeploymentStackProvisioningStateSucceeded {
			if !force {
				log.Info(ctx, "aks cluster already provisioned", "stack", name, "resource_group", rg, "cluster", cluster.Name)
				return nil
			}
			log.Info(ctx, "force enabled, re-applying deployment stack", "stack", name, "resource_group", rg)
		}
	} else if !isAzureNotFound(err) {
		return fmt.Errorf("get deployment stack %s: %w", name, err)
	}

	stack := armdeploymentstacks.DeploymentStack{
		Properties: &armdeploymentstacks.DeploymentStackProperties{
			Template:   template,
			Parameters: d.stackParameters(cluster),
			ActionOnUnmanage: &armdeploymentstacks.ActionOnUnmanage{
				Resources:        to.Ptr(armdeploymentstacks.DeploymentStacksDeleteDetachEnumDelete),
				ResourceGroups:   to.Ptr(armdeploymentstacks.DeploymentStacksDeleteDetachEnumDetach),
				ManagementGroups: to.Ptr(armdeploymentstacks.DeploymentStacksDeleteDetachEnumDetach),
			},
			DenySettings: &armdeploymentstacks.DenySettings{
				Mode: to.Ptr(armdeploymentstacks.DenySettingsModeNone),
			},
		},
		Tags: d.managedTags(cluster.Name),
	}

	log.Info(ctx, "applying deployment stack", "stack", name, "resource_group", rg)
	poller, err := client.BeginCreateOrUpdateAtResourceGroup(ctx, rg, name, stack, nil)
	if err != nil {
		return fmt.Errorf("begin deployment stack creation: %w", err)
	}
	if _, err = poller.PollUntilDone(ctx, nil); err != nil {
		return fmt.Errorf("deployment stack creation failed: %w", err)
	}
	return nil
}

// ensureAzureDeploymentStackDeleted deletes the stack and its managed resources.
// A missing stack is success.
func (d *driver) ensureAzureDeploymentStackDeleted(ctx context.Context, cluster *model.Cluster, rg string) error {
	client, err := d.stacksClient()
	if err != nil {
		return err
	}
	name := d.deploymentStackName(cluster)
	logger := logging.FromContext(ctx).With("stack", name, "resource_group", rg)

	if _, err := client.GetAtResourceGroup(ctx, rg, name, nil); err != nil {
		if isAzureNotFound(err) {
			logger.Info(ctx, "AKS:DeleteStack/skip")
			return nil
		}
		return fmt.Errorf("get deployment stack %s: %w", name, err)
	}

	poller, err := client.BeginDeleteAtResourceGroup(ctx, rg, name, &armdeploymentstacks.ClientBeginDeleteAtResourceGroupOptions{
		UnmanageActionResources:        to.Ptr(armdeploymentstacks.UnmanageActionResourceModeDelete),
		UnmanageActionResourceGroups:   to.Ptr(armdeploymentstacks.UnmanageActionResourceGroupModeDelete),
		UnmanageActionManagementGroups: to.Ptr(armdeploymentstacks.UnmanageActionManagementGroupModeDetach),
	})
	if err != nil {
		logger.Info(ctx, "AKS:DeleteStack/efail", "err", azureShorterErrorString(err))
		return fmt.Errorf("failed to start deployment stack deletion: %w", err)
	}
	if _, err = poller.PollUntilDone(ctx, nil); err != nil {
		logger.Info(ctx, "AKS:DeleteStack/efail", "err", azureShorterErrorString(err))
		return fmt.Errorf("failed to delete deployment stack %s: %w", name, err)
	}
	logger.Info(ctx, "AKS:DeleteStack/eok")
	return nil
}

// azureDeploymentStackOutputs returns the flattened outputs of the cluster stack.
func (d *driver) azureDeploymentStackOutputs(ctx context.Context, cluster *model.Cluster, rg string) (map[string]any, error) {
	client, err := d.stacksClient()
	if err != nil {
		return nil, err
	}
	stack, err := client.GetAtResourceGroup(ctx, rg, d.deploymentStackName(cluster), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get deployment stack: %w", err)
	}
	if stack.Properties == nil || stack.Properties.Outputs == nil {
		return nil, fmt.Errorf("deployment stack has no outputs")
	}
	return stackOutputs(stack.Properties.Outputs)
}
