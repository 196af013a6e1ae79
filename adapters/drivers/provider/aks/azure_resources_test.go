package aks

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/arm"
	azfake "github.com/Azure/azure-sdk-for-go/sdk/azcore/fake"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/resources/armresources"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/resources/armresources/fake"
)

func newResourceGroupsTestDriver(srv *fake.ResourceGroupsServer) *driver {
	return &driver{
		TokenCredential:     &azfake.TokenCredential{},
		AzureSubscriptionId: "00000000-0000-0000-0000-000000000000",
		AzureLocation:       "japaneast",
		providerName:        "azure",
		clientOptions: &arm.ClientOptions{
			ClientOptions: policy.ClientOptions{Transport: fake.NewResourceGroupsServerTransport(srv)},
		},
	}
}

func TestAzureErrorHelpers(t *testing.T) {
	notFound := fmt.Errorf("wrapped: %w", &azcore.ResponseError{StatusCode: http.StatusNotFound, ErrorCode: "ResourceNotFound"})
	if !isAzureNotFound(notFound) {
		t.Error("isAzureNotFound() = false for wrapped 404")
	}
	if isAzureNotFound(errors.New("boom")) {
		t.Error("isAzureNotFound() = true for plain error")
	}
	if got := azureShorterErrorString(notFound); got != "404 Not Found (ResourceNotFound)" {
		t.Errorf("azureShorterErrorString() = %q", got)
	}
	if got := azureShorterErrorString(errors.New("boom")); got != "boom" {
		t.Errorf("azureShorterErrorString() = %q", got)
	}
}

func TestEnsureAzureResourceGroupCreated(t *testing.T) {
	var gotName string
	var gotGroup armresources.ResourceGroup
	srv := &fake.ResourceGroupsServer{
		CreateOrUpdate: func(_ context.Context, name string, params armresources.ResourceGroup, _ *armresources.ResourceGroupsClientCreateOrUpdateOptions) (resp azfake.Responder[armresources.ResourceGroupsClientCreateOrUpdateResponse], errResp azfake.ErrorResponder) {
			gotName, gotGroup = name, params
			resp.SetResponse(http.StatusOK, armresources.ResourceGroupsClientCreateOrUpdateResponse{ResourceGroup: params}, nil)
			return
		},
	}
	d := newResourceGroupsTestDriver(srv)
	if err := d.ensureAzureResourceGroupCreated(context.Background(), "rg-sbops", d.managedTags("c1")); err != nil {
		t.Fatalf("ensureAzureResourceGroupCreated() error = %v", err)
	}
	if gotName != "rg-sbops" || gotGroup.Location == nil || *gotGroup.Location != "japaneast" {
		t.Errorf("unexpected request name=%q group=%+v", gotName, gotGroup)
	}
	if v := gotGroup.Tags["sbops-cluster"]; v == nil || *v != "azure/c1" {
		t.Errorf("unexpected tags %+v", gotGroup.Tags)
	}
}

func TestEnsureAzureResourceGroupCreated_Error(t *testing.T) {
	srv := &fake.ResourceGroupsServer{
		CreateOrUpdate: func(_ context.Context, _ string, _ armresources.ResourceGroup, _ *armresources.ResourceGroupsClientCreateOrUpdateOptions) (resp azfake.Responder[armresources.ResourceGroupsClientCreateOrUpdateResponse], errResp azfake.ErrorResponder) {
			errResp.SetResponseError(http.StatusForbidden, "AuthorizationFailed")
			return
		},
	}
	d := newResourceGroupsTestDriver(srv)
	if err := d.ensureAzureResourceGroupCreated(context.Background(), "rg", nil); err == nil {
		t.Fatal("expected error")
	}
}

func TestEnsureAzureResourceGroupDeleted_Missing(t *testing.T) {
	deleted := false
	srv := &fake.ResourceGroupsServer{
		CheckExistence: func(_ context.Context, _ string, _ *armresources.ResourceGroupsClientCheckExistenceOptions) (resp azfake.Responder[armresources.ResourceGroupsClientCheckExistenceResponse], errResp azfake.ErrorResponder) {
			resp.SetResponse(http.StatusNotFound, armresources.ResourceGroupsClientCheckExistenceResponse{}, nil)
			return
		},
		BeginDelete: func(_ context.Context, _ string, _ *armresources.ResourceGroupsClientBeginDeleteOptions) (resp azfake.PollerResponder[armresources.ResourceGroupsClientDeleteResponse], errResp azfake.ErrorResponder) {
			deleted = true
			resp.SetTerminalResponse(http.StatusOK, armresources.ResourceGroupsClientDeleteResponse{}, nil)
			return
		},
	}
	d := newResourceGroupsTestDriver(srv)
	if err := d.ensureAzureResourceGroupDeleted(context.Background(), "rg-gone"); err != nil {
		t.Fatalf("ensureAzureResourceGroupDeleted() error = %v", err)
	}
	if deleted {
		t.Error("BeginDelete called for a missing resource group")
	}
}
