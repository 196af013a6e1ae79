// Package frontend deploys the browser frontend to its App Service Web App.
package frontend

import (
	"github.com/securebackend/sbops/domain"
	"github.com/securebackend/sbops/domain/model"
)

// Repos holds repositories needed for frontend use cases.
type Repos struct {
	Frontend domain.FrontendRepository
	Backend  domain.BackendRepository
	Registry domain.RegistryRepository
}

// UseCase wires repositories and ports needed for frontend use cases.
type UseCase struct {
	Repos        *Repos
	RegistryPort model.RegistryPort
	WebAppPort   model.WebAppPort
}
