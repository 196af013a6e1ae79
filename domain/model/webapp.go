package model

import "context"

// WebApp is a Linux container App Service deployment request.
type WebApp struct {
	ProviderID    string
	Name          string
	ResourceGroup string
	Image         string // full image reference
	Registry      *RegistryCredentials
	AppSettings   map[string]string
	Port          int32 // WEBSITES_PORT when non-zero
}

// WebAppStatus reports an App Service site.
type WebAppStatus struct {
	Name            string `json:"name"`
	DefaultHostName string `json:"defaultHostName"`
	State           string `json:"state"`
	HTTPSOnly       bool   `json:"httpsOnly"`
	LinuxFxVersion  string `json:"linuxFxVersion,omitempty"`
}

// WebAppPort deploys containers to App Service.
type WebAppPort interface {
	Deploy(ctx context.Context, app *WebApp) (*WebAppStatus, error)
	Status(ctx context.Context, app *WebApp) (*WebAppStatus, error)
}
