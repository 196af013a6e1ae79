package aks

import (
	"testing"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/containerregistry/armcontainerregistry"

	"github.com/securebackend/sbops/domain/model"
)

func TestRegistryCredentials(t *testing.T) {
	res := &armcontainerregistry.RegistryListCredentialsResult{
		Username: to.Ptr("sbopsacr"),
		Passwords: []*armcontainerregistry.RegistryPassword{
			{Value: to.Ptr("")},
			{Value: to.Ptr("p2")},
		},
	}
	creds, err := registryCredentials("sbopsacr.azurecr.io", res)
	if err != nil {
		t.Fatalf("registryCredentials() error = %v", err)
	}
	if creds.LoginServer != "sbopsacr.azurecr.io" || creds.Username != "sbopsacr" || creds.Password != "p2" {
		t.Errorf("unexpected credentials %+v", creds)
	}

	if _, err := registryCredentials("x", &armcontainerregistry.RegistryListCredentialsResult{}); err == nil {
		t.Error("expected error without username")
	}
	if _, err := registryCredentials("x", &armcontainerregistry.RegistryListCredentialsResult{Username: to.Ptr("u")}); err == nil {
		t.Error("expected error without password")
	}
}

func TestRegistryResourceGroup(t *testing.T) {
	if _, err := registryResourceGroup(&model.Registry{Name: "acr"}); err == nil {
		t.Error("expected error without resource group")
	}
	rg, err := registryResourceGroup(&model.Registry{Name: "acr", Settings: map[string]string{settingResourceGroupName: "rg1"}})
	if err != nil || rg != "rg1" {
		t.Errorf("registryResourceGroup() = %q, %v", rg, err)
	}
}
