package aks

import (
	"testing"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/appservice/armappservice/v2"

	"github.com/securebackend/sbops/domain/model"
)

func TestWebAppSettings(t *testing.T) {
	current := map[string]*string{"EXISTING": to.Ptr("keep"), "API_URL": to.Ptr("old")}
	app := &model.WebApp{
		Name:        "fe",
		Port:        8000,
		AppSettings: map[string]string{"API_URL": "https://api.example.com"},
		Registry:    &model.RegistryCredentials{LoginServer: "sbopsacr.azurecr.io", Username: "u", Password: "p"},
	}
	got := webAppSettings(current, app)
	want := map[string]string{
		"EXISTING":                 "keep",
		"API_URL":                  "https://api.example.com",
		appSettingRegistryURL:      "https://sbopsacr.azurecr.io",
		appSettingRegistryUsername: "u",
		appSettingRegistryPassword: "p",
		appSettingWebsitesPort:     "8000",
		appSettingStorage:          "false",
	}
	for k, v := range want {
		if got[k] == nil || *got[k] != v {
			t.Errorf("setting %s = %v, want %q", k, got[k], v)
		}
	}
	if *current["API_URL"] != "old" {
		t.Error("current settings mutated")
	}
}

func TestWebAppStatus(t *testing.T) {
	site := &armappservice.Site{
		Properties: &armappservice.SiteProperties{
			DefaultHostName: to.Ptr("fe.azurewebsites.net"),
			State:           to.Ptr("Running"),
			HTTPSOnly:       to.Ptr(true),
			SiteConfig:      &armappservice.SiteConfig{LinuxFxVersion: to.Ptr(linuxFxVersion("acr.azurecr.io/fe:1"))},
		},
	}
	st := webAppStatus("fe", site)
	if st.DefaultHostName != "fe.azurewebsites.net" || st.State != "Running" || !st.HTTPSOnly || st.LinuxFxVersion != "DOCKER|acr.azurecr.io/fe:1" {
		t.Errorf("unexpected status %+v", st)
	}
	if st := webAppStatus("fe", nil); st.Name != "fe" {
		t.Errorf("unexpected status for nil site %+v", st)
	}
}

func TestValidateWebApp(t *testing.T) {
	if err := validateWebApp(&model.WebApp{}); err == nil {
		t.Error("expected error without name")
	}
	if err := validateWebApp(&model.WebApp{Name: "fe"}); err == nil {
		t.Error("expected error without resource group")
	}
	if err := validateWebApp(&model.WebApp{Name: "fe", ResourceGroup: "rg"}); err != nil {
		t.Errorf("validateWebApp() error = %v", err)
	}
}
