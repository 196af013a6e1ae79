package frontend

import (
	"context"
	"fmt"

	"github.com/securebackend/sbops/domain/model"
	"github.com/securebackend/sbops/internal/logging"
)

// BackendURLSetting is the app setting through which the frontend finds the API.
const BackendURLSetting = "BACKEND_URL"

// DeployInput represents a command to deploy the frontend.
type DeployInput struct {
	FrontendID string `json:"frontend_id"`
	// BackendID sets BACKEND_URL from the backend host when given.
	BackendID string `json:"backend_id,omitempty"`
	// BackendURL overrides the derived BACKEND_URL.
	BackendURL string `json:"backend_url,omitempty"`
	Tag        string `json:"tag,omitempty"`
}

// DeployOutput reports the deployed site.
type DeployOutput struct {
	Image      string              `json:"image"`
	BackendURL string              `json:"backendUrl,omitempty"`
	WebApp     *model.WebAppStatus `json:"webApp"`
}

// Deploy points the frontend Web App at its image and the backend URL.
func (u *UseCase) Deploy(ctx context.Context, in *DeployInput) (*DeployOutput, error) {
	if in == nil || in.FrontendID == "" {
		return nil, fmt.Errorf("FrontendID is required")
	}
	f, err := u.Repos.Frontend.Get(ctx, in.FrontendID)
	if err != nil {
		return nil, err
	}
	reg, err := u.Repos.Registry.Get(ctx, f.RegistryID)
	if err != nil {
		return nil, fmt.Errorf("get registry: %w", err)
	}
	creds, err := u.RegistryPort.Login(ctx, reg)
	if err != nil {
		return nil, fmt.Errorf("registry login: %w", err)
	}

	backendURL := in.BackendURL
	if backendURL == "" && in.BackendID != "" {
		b, err := u.Repos.Backend.Get(ctx, in.BackendID)
		if err != nil {
			return nil, fmt.Errorf("get backend: %w", err)
		}
		if b.Host == "" {
			return nil, fmt.Errorf("backend %s has no host; pass a backend URL", b.Name)
		}
		backendURL = "https://" + b.Host
	}

	img := f.Image
	if in.Tag != "" {
		img.Tag = in.Tag
	}
	ref := img.Reference(creds.LoginServer)
	settings := make(map[string]string, len(f.AppSettings)+1)
	for k, v := range f.AppSettings {
		settings[k] = v
	}
	if backendURL != "" {
		settings[BackendURLSetting] = backendURL
	}

	st, err := u.WebAppPort.Deploy(ctx, &model.WebApp{
		ProviderID:    f.ProviderID,
		Name:          f.Name,
		ResourceGroup: f.ResourceGroup,
		Image:         ref,
		Registry:      creds,
		AppSettings:   settings,
	})
	if err != nil {
		return nil, fmt.Errorf("deploy web app: %w", err)
	}
	logging.FromContext(ctx).Info(ctx, "frontend deployed", "webapp", f.Name, "host", st.DefaultHostName, "backend_url", backendURL)
	return &DeployOutput{Image: ref, BackendURL: backendURL, WebApp: st}, nil
}
