package aks

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/authorization/armauthorization/v2"
	"github.com/google/uuid"
)

// Built-in role definition IDs.
const (
	roleDefIDAcrPull            = "7f951dda-4ed3-4680-a7ca-43fe172d538d"
	roleDefIDNetworkContributor = "4d97b98b-1d4f-4787-a291-c67834d212e7"
)

// UUIDv5 namespace used to generate role assignment names.
// Kept constant so that names are stable across runs.
var roleAssignmentNamespace = uuid.MustParse("3c1f6f0e-8d2a-4b7e-9f55-2a7c0d9e4b61")

// azureRoleDefinitionID returns the subscription scoped role definition ID.
func (d *driver) azureRoleDefinitionID(roleID string) string {
	return fmt.Sprintf("/subscriptions/%s/providers/Microsoft.Authorization/roleDefinitions/%s", d.AzureSubscriptionId, roleID)
}

// roleAssignmentName derives a deterministic assignment name per (scope, principal, role).
func roleAssignmentName(scope, principalID, roleDefinitionID string) string {
	return uuid.NewSHA1(roleAssignmentNamespace, []byte(scope+"|"+principalID+"|"+roleDefinitionID)).String()
}

// ensureAzureRole assigns the role definition to the principal at scope.
// An existing assignment is success.
func (d *driver) ensureAzureRole(ctx context.Context, scope, principalID, roleDefinitionID string) error {
	client, err := armauthorization.NewRoleAssignmentsClient(d.AzureSubscriptionId, d.TokenCredential, d.clientOptions)
	if err != nil {
		return fmt.Errorf("failed to create role assignments client: %w", err)
	}

	params := armauthorization.RoleAssignmentCreateParameters{
		Properties: &armauthorization.RoleAssignmentProperties{
			RoleDefinitionID: to.Ptr(roleDefinitionID),
			PrincipalID:      to.Ptr(principalID),
			PrincipalType:    to.Ptr(armauthorization.PrincipalTypeServicePrincipal),
		},
	}
	_, err = client.Create(ctx, scope, roleAssignmentName(scope, principalID, roleDefinitionID), params, nil)
	if err != nil {
		var responseErr *azcore.ResponseError
		if errors.As(err, &responseErr) && (responseErr.StatusCode == http.StatusConflict || responseErr.ErrorCode == "RoleAssignmentExists") {
			return nil
		}
		return fmt.Errorf("failed to create role assignment: %w", err)
	}
	return nil
}
