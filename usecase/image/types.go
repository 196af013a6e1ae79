// Package image builds and pushes the backend and frontend container images.
package image

import (
	"github.com/securebackend/sbops/domain"
	"github.com/securebackend/sbops/domain/model"
)

// Repos holds repositories needed for image use cases.
type Repos struct {
	Backend  domain.BackendRepository
	Frontend domain.FrontendRepository
	Registry domain.RegistryRepository
}

// UseCase wires repositories and ports needed for image use cases.
type UseCase struct {
	Repos        *Repos
	ImagePort    model.ImagePort
	RegistryPort model.RegistryPort
}

// Target selects the image owner. Exactly one ID must be set.
type Target struct {
	BackendID  string `json:"backend_id,omitempty"`
	FrontendID string `json:"frontend_id,omitempty"`
	// Tag overrides the configured image tag.
	Tag string `json:"tag,omitempty"`
}
