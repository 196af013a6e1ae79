package model

import (
	"context"
	"time"
)

// Registry represents the Azure Container Registry holding backend and frontend images.
type Registry struct {
	ID            string
	Name          string
	ProviderID    string
	ResourceGroup string
	Settings      map[string]string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// RegistryCredentials authenticate pushes and pulls against a registry.
type RegistryCredentials struct {
	LoginServer string `json:"loginServer"`
	Username    string `json:"username"`
	Password    string `json:"-"`
}

// RegistryPort resolves registry credentials and grants clusters pull access.
type RegistryPort interface {
	Login(ctx context.Context, registry *Registry) (*RegistryCredentials, error)
	Attach(ctx context.Context, registry *Registry, cluster *Cluster) error
}
