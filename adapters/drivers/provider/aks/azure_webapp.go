package aks

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/appservice/armappservice/v2"

	"github.com/securebackend/sbops/domain/model"
	"github.com/securebackend/sbops/internal/logging"
)

// App Service settings managed by WebAppDeploy.
const (
	appSettingRegistryURL      = "DOCKER_REGISTRY_SERVER_URL"
	appSettingRegistryUsername = "DOCKER_REGISTRY_SERVER_USERNAME"
	appSettingRegistryPassword = "DOCKER_REGISTRY_SERVER_PASSWORD"
	appSettingWebsitesPort     = "WEBSITES_PORT"
	appSettingStorage          = "WEBSITES_ENABLE_APP_SERVICE_STORAGE"
)

func (d *driver) webAppsClient() (*armappservice.WebAppsClient, error) {
	client, err := armappservice.NewWebAppsClient(d.AzureSubscriptionId, d.TokenCredential, d.clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to create web apps client: %w", err)
	}
	return client, nil
}

// linuxFxVersion returns the site runtime string for a container image.
func linuxFxVersion(image string) string {
	return "DOCKER|" + image
}

// webAppSettings merges the registry and user settings over the current ones.
func webAppSettings(current map[string]*string, app *model.WebApp) map[string]*string {
	merged := make(map[string]*string, len(current)+len(app.AppSettings)+5)
	for k, v := range current {
		merged[k] = v
	}
	merged[appSettingStorage] = to.Ptr("false")
	if app.Registry != nil {
		server := app.Registry.LoginServer
		if !strings.HasPrefix(server, "https://") {
			server = "https://" + server
		}
		merged[appSettingRegistryURL] = to.Ptr(server)
		merged[appSettingRegistryUsername] = to.Ptr(app.Registry.Username)
		merged[appSettingRegistryPassword] = to.Ptr(app.Registry.Password)
	}
	if app.Port > 0 {
		merged[appSettingWebsitesPort] = to.Ptr(strconv.Itoa(int(app.Port)))
	}
	for k, v := range app.AppSettings {
		merged[k] = to.Ptr(v)
	}
	return merged
}

// webAppStatus converts a site resource.
func webAppStatus(name string, site *armappservice.Site) *model.WebAppStatus {
	st := &model.WebAppStatus{Name: name}
	if site == nil || site.Properties == nil {
		return st
	}
	p := site.Properties
	if p.DefaultHostName != nil {
		st.DefaultHostName = *p.DefaultHostName
	}
	if p.State != nil {
		st.State = *p.State
	}
	if p.HTTPSOnly != nil {
		st.HTTPSOnly = *p.HTTPSOnly
	}
	if p.SiteConfig != nil && p.SiteConfig.LinuxFxVersion != nil {
		st.LinuxFxVersion = *p.SiteConfig.LinuxFxVersion
	}
	return st
}

func validateWebApp(app *model.WebApp) error {
	if app.Name == "" {
		return fmt.Errorf("web app name is required")
	}
	if app.ResourceGroup == "" {
		return fmt.Errorf("web app %s: resource group is required", app.Name)
	}
	return nil
}

// WebAppDeploy sets the container image and settings, enforces HTTPS and restarts the site.
func (d *driver) WebAppDeploy(ctx context.Context, app *model.WebApp) (_ *model.WebAppStatus, err error) {
	ctx, cleanup := d.withMethodLogger(ctx, "WebAppDeploy")
	defer func() { cleanup(err) }()

	if err := validateWebApp(app); err != nil {
		return nil, err
	}
	if app.Image == "" {
		return nil, fmt.Errorf("web app %s: image is required", app.Name)
	}
	client, err := d.webAppsClient()
	if err != nil {
		return nil, err
	}
	log := logging.FromContext(ctx).With("webapp", app.Name, "resource_group", app.ResourceGroup)

	if _, err := client.Get(ctx, app.ResourceGroup, app.Name, nil); err != nil {
		if isAzureNotFound(err) {
			return nil, fmt.Errorf("web app %s not found in resource group %s", app.Name, app.ResourceGroup)
		}
		return nil, fmt.Errorf("get web app: %w", err)
	}

	config := armappservice.SiteConfigResource{
		Properties: &armappservice.SiteConfig{
			LinuxFxVersion: to.Ptr(linuxFxVersion(app.Image)),
			AlwaysOn:       to.Ptr(true),
			Http20Enabled:  to.Ptr(true),
			MinTLSVersion:  to.Ptr(armappservice.SupportedTLSVersionsOne2),
		},
	}
	if _, err := client.UpdateConfiguration(ctx, app.ResourceGroup, app.Name, config, nil); err != nil {
		return nil, fmt.Errorf("update web app configuration: %w", err)
	}
	log.Info(ctx, "web app image set", "image", app.Image)

	current, err := client.ListApplicationSettings(ctx, app.ResourceGroup, app.Name, nil)
	if err != nil {
		return nil, fmt.Errorf("list web app settings: %w", err)
	}
	settings := armappservice.StringDictionary{Properties: webAppSettings(current.Properties, app)}
	if _, err := client.UpdateApplicationSettings(ctx, app.ResourceGroup, app.Name, settings, nil); err != nil {
		return nil, fmt.Errorf("update web app settings: %w", err)
	}

	patch := armappservice.SitePatchResource{
		Properties: &armappservice.SitePatchResourceProperties{HTTPSOnly: to.Ptr(true)},
	}
	if _, err := client.Update(ctx, app.ResourceGroup, app.Name, patch, nil); err != nil {
		return nil, fmt.Errorf("enable https-only: %w", err)
	}

	if _, err := client.Restart(ctx, app.ResourceGroup, app.Name, nil); err != nil {
		return nil, fmt.Errorf("restart web app: %w", err)
	}
	log.Info(ctx, "web app restarted")

	site, err := client.Get(ctx, app.ResourceGroup, app.Name, nil)
	if err != nil {
		return nil, fmt.Errorf("get web app: %w", err)
	}
	return webAppStatus(app.Name, &site.Site), nil
}

// WebAppStatus returns the host name and state of the site.
func (d *driver) WebAppStatus(ctx context.Context, app *model.WebApp) (_ *model.WebAppStatus, err error) {
	ctx, cleanup := d.withMethodLogger(ctx, "WebAppStatus")
	defer func() { cleanup(err) }()

	if err := validateWebApp(app); err != nil {
		return nil, err
	}
	client, err := d.webAppsClient()
	if err != nil {
		return nil, err
	}
	site, err := client.Get(ctx, app.ResourceGroup, app.Name, nil)
	if err != nil {
		return nil, fmt.Errorf("get web app: %w", err)
	}
	return webAppStatus(app.Name, &site.Site), nil
}
