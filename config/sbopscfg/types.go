// Package sbopscfg defines the schema of sbops.yml and converts it into
// domain models.
package sbopscfg

import "time"

// Root is the root structure of sbops.yml.
type Root struct {
	Version      string             `yaml:"version"`
	Environment  string             `yaml:"environment,omitempty"` // default overlay
	Provider     Provider           `yaml:"provider"`
	Cluster      Cluster            `yaml:"cluster"`
	Registry     Registry           `yaml:"registry"`
	Backend      Backend            `yaml:"backend"`
	Frontend     Frontend           `yaml:"frontend,omitempty"`
	Environments map[string]Overlay `yaml:"environments,omitempty"`
}

// Provider represents infrastructure provider configuration.
type Provider struct {
	Name     string            `yaml:"name"`
	Driver   string            `yaml:"driver"` // "aks"
	Settings map[string]string `yaml:"settings,omitempty"`
}

// Cluster represents the target AKS cluster.
type Cluster struct {
	Name              string            `yaml:"name"`
	Existing          bool              `yaml:"existing,omitempty"`
	ResourceGroup     string            `yaml:"resourceGroup"`
	NodeCount         int32             `yaml:"nodeCount,omitempty"`
	NodeVMSize        string            `yaml:"nodeVMSize,omitempty"`
	KubernetesVersion string            `yaml:"kubernetesVersion,omitempty"`
	Ingress           Ingress           `yaml:"ingress,omitempty"`
	CertManager       CertManager       `yaml:"certManager,omitempty"`
	Settings          map[string]string `yaml:"settings,omitempty"`
}

// Ingress configures the ingress-nginx add-on.
type Ingress struct {
	Namespace      string        `yaml:"namespace,omitempty"`
	ChartVersion   string        `yaml:"chartVersion,omitempty"`
	StaticIP       string        `yaml:"staticIP,omitempty"`
	DNSLabel       string        `yaml:"dnsLabel,omitempty"`
	IPWaitInterval time.Duration `yaml:"ipWaitInterval,omitempty"`
	IPWaitTimeout  time.Duration `yaml:"ipWaitTimeout,omitempty"`
}

// CertManager configures cert-manager and its ClusterIssuer.
type CertManager struct {
	Enabled      bool   `yaml:"enabled"`
	Namespace    string `yaml:"namespace,omitempty"`
	ChartVersion string `yaml:"chartVersion,omitempty"`
	Issuer       string `yaml:"issuer,omitempty"`
	Server       string `yaml:"server,omitempty"`
	Email        string `yaml:"email,omitempty"`
}

// Registry names the Azure Container Registry.
type Registry struct {
	Name          string `yaml:"name"`
	ResourceGroup string `yaml:"resourceGroup,omitempty"` // defaults to cluster resource group
}

// Backend configures the secure-backend deployment.
type Backend struct {
	Name                string            `yaml:"name"`
	Target              string            `yaml:"target,omitempty"` // aks | webapp
	Namespace           string            `yaml:"namespace,omitempty"`
	Replicas            *int32            `yaml:"replicas,omitempty"`
	Port                int32             `yaml:"port,omitempty"`
	HealthPath          string            `yaml:"healthPath,omitempty"`
	Host                string            `yaml:"host,omitempty"`
	DNS                 DNS               `yaml:"dns,omitempty"`
	Image               Image             `yaml:"image"`
	TLS                 TLS               `yaml:"tls,omitempty"`
	Token               string            `yaml:"token,omitempty"`
	Env                 map[string]string `yaml:"env,omitempty"`
	Resources           Resources         `yaml:"resources,omitempty"`
	WebApp              WebApp            `yaml:"webApp,omitempty"`
	AvailabilityTimeout time.Duration     `yaml:"availabilityTimeout,omitempty"`
	Settings            map[string]string `yaml:"settings,omitempty"`
}

// DNS controls the backend A record.
type DNS struct {
	Enabled bool   `yaml:"enabled"`
	Zone    string `yaml:"zone,omitempty"` // zone name or resource ID hint
}

// Image describes where an image is built from and pushed to.
type Image struct {
	Repository string `yaml:"repository"`
	Tag        string `yaml:"tag,omitempty"`
	Context    string `yaml:"context,omitempty"`
	Dockerfile string `yaml:"dockerfile,omitempty"`
	Platform   string `yaml:"platform,omitempty"`
}

// TLS selects certificate handling.
type TLS struct {
	Mode         string `yaml:"mode,omitempty"` // cert-manager | self-signed | none
	SecretName   string `yaml:"secretName,omitempty"`
	ValidityDays int    `yaml:"validityDays,omitempty"`
}

// Resources are Kubernetes quantities for the backend container.
type Resources struct {
	CPURequest    string `yaml:"cpuRequest,omitempty"`
	MemoryRequest string `yaml:"memoryRequest,omitempty"`
	CPULimit      string `yaml:"cpuLimit,omitempty"`
	MemoryLimit   string `yaml:"memoryLimit,omitempty"`
}

// WebApp names an App Service site.
type WebApp struct {
	Name          string `yaml:"name,omitempty"`
	ResourceGroup string `yaml:"resourceGroup,omitempty"`
}

// Frontend configures the frontend Web App. An empty name disables it.
type Frontend struct {
	Name          string            `yaml:"name,omitempty"`
	ResourceGroup string            `yaml:"resourceGroup,omitempty"`
	Image         Image             `yaml:"image,omitempty"`
	AppSettings   map[string]string `yaml:"appSettings,omitempty"`
}

// Overlay holds per-environment overrides merged by ApplyEnvironment.
type Overlay struct {
	Replicas            *int32            `yaml:"replicas,omitempty"`
	ImageTag            string            `yaml:"imageTag,omitempty"`
	Host                string            `yaml:"host,omitempty"`
	TLSMode             string            `yaml:"tlsMode,omitempty"`
	IssuerServer        string            `yaml:"issuerServer,omitempty"`
	FrontendName        string            `yaml:"frontendName,omitempty"`
	BackendEnv          map[string]string `yaml:"backendEnv,omitempty"`
	FrontendAppSettings map[string]string `yaml:"frontendAppSettings,omitempty"`
}
