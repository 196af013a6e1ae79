package aks

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/resources/armresources"

	"github.com/securebackend/sbops/internal/logging"
)

func azureShorterErrorString(err error) string {
	errstr := err.Error()
	var responseErr *azcore.ResponseError
	if errors.As(err, &responseErr) {
		errstr = fmt.Sprintf("%d %s (%s)", responseErr.StatusCode, http.StatusText(responseErr.StatusCode), responseErr.ErrorCode)
	}
	return errstr
}

// isAzureNotFound reports whether err is an ARM 404 response.
func isAzureNotFound(err error) bool {
	var responseErr *azcore.ResponseError
	return errors.As(err, &responseErr) && responseErr.StatusCode == http.StatusNotFound
}

// managedTags returns the tags stamped on every resource sbops creates.
func (d *driver) managedTags(clusterName string) map[string]*string {
	return map[string]*string{
		"managed-by":    to.Ptr("sbops"),
		"sbops-cluster": to.Ptr(d.providerName + "/" + clusterName),
	}
}

// ensureAzureResourceGroupCreated creates or updates the resource group.
func (d *driver) ensureAzureResourceGroupCreated(ctx context.Context, rg string, tags map[string]*string) error {
	groupsClient, err := armresources.NewResourceGroupsClient(d.AzureSubscriptionId, d.TokenCredential, d.clientOptions)
	if err != nil {
		return fmt.Errorf("failed to create resource groups client: %w", err)
	}

	logger := logging.FromContext(ctx).With("subscription", d.AzureSubscriptionId, "location", d.AzureLocation, "name", rg)
	if _, err := groupsClient.CreateOrUpdate(ctx, rg, armresources.ResourceGroup{Location: to.Ptr(d.AzureLocation), Tags: tags}, nil); err != nil {
		logger.Info(ctx, "AKS:EnsureRG/efail", "err", azureShorterErrorString(err))
		return fmt.Errorf("failed to create resource group %s: %w", rg, err)
	}
	logger.Info(ctx, "AKS:EnsureRG/eok")
	return nil
}

// ensureAzureResourceGroupDeleted deletes the resource group. A missing group is success.
func (d *driver) ensureAzureResourceGroupDeleted(ctx context.Context, rg string) error {
	groupsClient, err := armresources.NewResourceGroupsClient(d.AzureSubscriptionId, d.TokenCredential, d.clientOptions)
	if err != nil {
		return fmt.Errorf("failed to create resource groups client: %w", err)
	}

	logger := logging.FromContext(ctx).With("name", rg)
	exists, err := groupsClient.CheckExistence(ctx, rg, nil)
	if err != nil {
		return fmt.Errorf("failed to check resource group %s: %w", rg, err)
	}
	if !exists.Success {
		logger.Info(ctx, "AKS:DeleteRG/skip")
		return nil
	}
	poller, err := groupsClient.BeginDelete(ctx, rg, nil)
	if err != nil {
		logger.Info(ctx, "AKS:DeleteRG/efail", "err", azureShorterErrorString(err))
		return fmt.Errorf("failed to start resource group deletion: %w", err)
	}
	if _, err := poller.PollUntilDone(ctx, nil); err != nil {
		logger.Info(ctx, "AKS:DeleteRG/efail", "err", azureShorterErrorString(err))
		return fmt.Errorf("failed to delete resource group %s: %w", rg, err)
	}
	logger.Info(ctx, "AKS:DeleteRG/eok")
	return nil
}
