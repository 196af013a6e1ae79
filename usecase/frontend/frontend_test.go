package frontend

import (
	"context"
	"errors"
	"testing"

	"github.com/securebackend/sbops/domain/model"
	"github.com/securebackend/sbops/usecase/usecasetest"
)

func newUseCase(t *testing.T, mutate func(c *model.Cluster, b *model.Backend)) (*UseCase, *usecasetest.Ports) {
	t.Helper()
	repos := usecasetest.Seed(t, mutate)
	ports := usecasetest.NewPorts()
	return &UseCase{
		Repos:        &Repos{Frontend: repos.Frontend, Backend: repos.Backend, Registry: repos.Registry},
		RegistryPort: ports.Registry,
		WebAppPort:   ports.WebApp,
	}, ports
}

func TestDeploySetsBackendURL(t *testing.T) {
	u, ports := newUseCase(t, nil)
	out, err := u.Deploy(context.Background(), &DeployInput{FrontendID: usecasetest.FrontendID, BackendID: usecasetest.BackendID})
	if err != nil {
		t.Fatalf("Deploy() error = %v", err)
	}
	if out.BackendURL != "https://api.example.com" || out.Image != "sbopsacr.azurecr.io/frontend:v1" {
		t.Errorf("unexpected output %+v", out)
	}
	app := ports.WebApp.Deployed[0]
	if app.Name != "sbops-frontend" || app.ResourceGroup != "rg-web" || app.Registry == nil {
		t.Errorf("unexpected web app %+v", app)
	}
	if app.AppSettings[BackendURLSetting] != "https://api.example.com" || app.AppSettings["NODE_ENV"] != "production" {
		t.Errorf("unexpected settings %+v", app.AppSettings)
	}
}

func TestDeployBackendURLOverride(t *testing.T) {
	u, ports := newUseCase(t, func(_ *model.Cluster, b *model.Backend) { b.Host = "" })
	if _, err := u.Deploy(context.Background(), &DeployInput{FrontendID: usecasetest.FrontendID, BackendID: usecasetest.BackendID}); err == nil {
		t.Error("expected error for backend without host")
	}
	out, err := u.Deploy(context.Background(), &DeployInput{FrontendID: usecasetest.FrontendID, BackendURL: "https://sbops-api.azurewebsites.net"})
	if err != nil {
		t.Fatalf("Deploy() error = %v", err)
	}
	if ports.WebApp.Deployed[0].AppSettings[BackendURLSetting] != out.BackendURL {
		t.Errorf("BACKEND_URL not set from override")
	}
}

func TestDeployErrors(t *testing.T) {
	u, ports := newUseCase(t, nil)
	ctx := context.Background()
	if _, err := u.Deploy(ctx, &DeployInput{}); err == nil {
		t.Error("expected error without FrontendID")
	}
	if _, err := u.Deploy(ctx, &DeployInput{FrontendID: "missing"}); !errors.Is(err, model.ErrFrontendNotFound) {
		t.Errorf("expected ErrFrontendNotFound, got %v", err)
	}
	ports.WebApp.Err["deploy"] = errors.New("conflict")
	if _, err := u.Deploy(ctx, &DeployInput{FrontendID: usecasetest.FrontendID}); err == nil {
		t.Error("expected deploy error")
	}
}

func TestStatus(t *testing.T) {
	u, _ := newUseCase(t, nil)
	st, err := u.Status(context.Background(), &StatusInput{FrontendID: usecasetest.FrontendID})
	if err != nil {
		t.Fatalf("Status() error = %v", err)
	}
	if st.DefaultHostName != "sbops-frontend.azurewebsites.net" {
		t.Errorf("unexpected status %+v", st)
	}
}
