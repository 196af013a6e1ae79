package sbopscfg

import (
	"errors"
	"fmt"
	"net/mail"

	"github.com/securebackend/sbops/domain/model"
	"github.com/securebackend/sbops/internal/naming"
)

// Validate performs semantic validation on the configuration tree.
// All problems are reported together.
func (r *Root) Validate() error {
	var errs []error
	add := func(section string, err error) {
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", section, err))
		}
	}

	if r.Provider.Driver != "aks" {
		add("provider.driver", fmt.Errorf("unsupported driver %q, must be \"aks\"", r.Provider.Driver))
	}
	add("provider.name", naming.ValidateResourceName("provider", r.Provider.Name))
	add("cluster.name", naming.ValidateResourceName("cluster", r.Cluster.Name))
	if r.Cluster.ResourceGroup == "" {
		add("cluster.resourceGroup", errors.New("must not be empty"))
	}
	if r.Cluster.NodeCount < 0 {
		add("cluster.nodeCount", fmt.Errorf("must not be negative, got %d", r.Cluster.NodeCount))
	}
	add("registry.name", naming.ValidateRegistryName(r.Registry.Name))
	add("backend.name", naming.ValidateResourceName("backend", r.Backend.Name))
	if r.Backend.Namespace != "" {
		add("backend.namespace", naming.ValidateResourceName("namespace", r.Backend.Namespace))
	}
	if r.Backend.Image.Repository == "" {
		add("backend.image.repository", errors.New("must not be empty"))
	}

	target := r.backendTarget()
	switch target {
	case model.BackendTargetAKS:
	case model.BackendTargetWebApp:
		if r.Backend.WebApp.Name == "" {
			add("backend.webApp.name", errors.New("required when target is webapp"))
		}
	default:
		add("backend.target", fmt.Errorf("invalid target %q, must be aks or webapp", target))
	}

	mode := r.tlsMode()
	switch mode {
	case model.TLSModeCertManager:
		if !r.Cluster.CertManager.Enabled {
			add("backend.tls.mode", errors.New("cert-manager mode requires cluster.certManager.enabled"))
		}
		if r.Cluster.CertManager.Email == "" {
			add("cluster.certManager.email", errors.New("required for cert-manager mode"))
		} else if _, err := mail.ParseAddress(r.Cluster.CertManager.Email); err != nil {
			add("cluster.certManager.email", err)
		}
	case model.TLSModeSelfSigned, model.TLSModeNone:
	default:
		add("backend.tls.mode", fmt.Errorf("invalid mode %q", mode))
	}
	if r.Backend.TLS.ValidityDays < 0 {
		add("backend.tls.validityDays", errors.New("must not be negative"))
	}

	if target == model.BackendTargetAKS && (r.Backend.DNS.Enabled || mode != model.TLSModeNone) {
		add("backend.host", naming.ValidateFQDN(r.Backend.Host))
	} else if r.Backend.Host != "" {
		add("backend.host", naming.ValidateFQDN(r.Backend.Host))
	}
	if r.Backend.Replicas != nil && *r.Backend.Replicas < 1 {
		add("backend.replicas", fmt.Errorf("must be >= 1, got %d", *r.Backend.Replicas))
	}
	if r.Backend.Port != 0 && (r.Backend.Port < 1 || r.Backend.Port > 65535) {
		add("backend.port", fmt.Errorf("must be within 1..65535, got %d", r.Backend.Port))
	}

	if r.Frontend.Name != "" && r.Frontend.Image.Repository == "" {
		add("frontend.image.repository", errors.New("required when frontend is configured"))
	}
	for name := range r.Environments {
		if name == "" {
			add("environments", errors.New("environment name must not be empty"))
		}
	}
	return errors.Join(errs...)
}

func (r *Root) backendTarget() model.BackendTarget {
	if r.Backend.Target == "" {
		return model.BackendTargetAKS
	}
	return model.BackendTarget(r.Backend.Target)
}

func (r *Root) tlsMode() model.TLSMode {
	if r.Backend.TLS.Mode != "" {
		return model.TLSMode(r.Backend.TLS.Mode)
	}
	if r.Cluster.CertManager.Enabled {
		return model.TLSModeCertManager
	}
	return model.TLSModeNone
}
