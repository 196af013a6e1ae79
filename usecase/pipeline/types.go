// Package pipeline runs the full deployment sequence and records it as a Run.
package pipeline

import (
	"time"

	"github.com/securebackend/sbops/domain"
	"github.com/securebackend/sbops/usecase/backend"
	"github.com/securebackend/sbops/usecase/cluster"
	"github.com/securebackend/sbops/usecase/dns"
	"github.com/securebackend/sbops/usecase/frontend"
	"github.com/securebackend/sbops/usecase/health"
	"github.com/securebackend/sbops/usecase/image"
)

// Step names in execution order.
const (
	StepProvision = "provision"
	StepAttach    = "attach"
	StepInstall   = "install"
	StepImage     = "image"
	StepBackend   = "backend"
	StepWait      = "wait"
	StepEndpoint  = "endpoint"
	StepDNS       = "dns"
	StepFrontend  = "frontend"
	StepHealth    = "health"
)

// Steps lists every step in execution order.
var Steps = []string{
	StepProvision, StepAttach, StepInstall, StepImage, StepBackend,
	StepWait, StepEndpoint, StepDNS, StepFrontend, StepHealth,
}

// Repos holds repositories needed by the pipeline.
type Repos struct {
	Run     domain.RunRepository
	Backend domain.BackendRepository
}

// UseCase composes the per-area use cases.
type UseCase struct {
	Repos    *Repos
	Cluster  *cluster.UseCase
	Image    *image.UseCase
	Backend  *backend.UseCase
	DNS      *dns.UseCase
	Frontend *frontend.UseCase
	Health   *health.UseCase
	// Now defaults to time.Now.
	Now func() time.Time
}

func (u *UseCase) now() time.Time {
	if u.Now != nil {
		return u.Now().UTC()
	}
	return time.Now().UTC()
}
