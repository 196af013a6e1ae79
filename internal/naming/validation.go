package naming

import (
	"fmt"
	"regexp"
	"strings"

	utilvalidation "k8s.io/apimachinery/pkg/util/validation"
)

var registryNamePattern = regexp.MustCompile(`^[a-z0-9]{5,50}$`)

func validateDNS1123Label(name string, maximum int, kind string) error {
	if name == "" {
		return fmt.Errorf("%s name must not be empty", kind)
	}
	if len(name) > maximum {
		return fmt.Errorf("%s name exceeds %d characters", kind, maximum)
	}
	if errs := utilvalidation.IsDNS1123Label(name); len(errs) > 0 {
		return fmt.Errorf("invalid %s name: %s", kind, strings.Join(errs, ", "))
	}
	return nil
}

// ValidateResourceName validates cluster, backend, frontend and namespace names.
func ValidateResourceName(kind, name string) error {
	return validateDNS1123Label(name, utilvalidation.DNS1123LabelMaxLength, kind)
}

// ValidateRegistryName validates an ACR name: 5-50 lowercase alphanumerics.
func ValidateRegistryName(name string) error {
	if !registryNamePattern.MatchString(name) {
		return fmt.Errorf("invalid registry name %q: must be 5-50 lowercase alphanumeric characters", name)
	}
	return nil
}

// ValidateFQDN requires a DNS-1123 subdomain with at least two labels.
func ValidateFQDN(host string) error {
	host = strings.TrimSuffix(host, ".")
	if host == "" {
		return fmt.Errorf("host name must not be empty")
	}
	if errs := utilvalidation.IsDNS1123Subdomain(host); len(errs) > 0 {
		return fmt.Errorf("invalid host name %q: %s", host, strings.Join(errs, ", "))
	}
	if !strings.Contains(host, ".") {
		return fmt.Errorf("host name %q is not fully qualified", host)
	}
	return nil
}
