package model

import (
	"fmt"
	"time"
)

// BackendTarget selects where the backend runs.
type BackendTarget string

const (
	BackendTargetAKS    BackendTarget = "aks"
	BackendTargetWebApp BackendTarget = "webapp"
)

// TLSMode selects how the backend ingress obtains its certificate.
type TLSMode string

const (
	TLSModeCertManager TLSMode = "cert-manager"
	TLSModeSelfSigned  TLSMode = "self-signed"
	TLSModeNone        TLSMode = "none"
)

// Backend represents the secure-backend API deployment.
type Backend struct {
	ID                  string
	Name                string
	ClusterID           string // references Cluster
	RegistryID          string // references Registry
	Target              BackendTarget
	Namespace           string
	Replicas            int32
	Port                int32
	HealthPath          string
	Host                string // public FQDN served by the ingress
	DNS                 bool   // manage an A record for Host
	DNSZone             string // zone hint
	Image               BackendImage
	TLS                 BackendTLS
	Token               string // API token stored in a Secret
	Env                 map[string]string
	Resources           BackendResources
	WebApp              *WebAppRef // target webapp only
	AvailabilityTimeout time.Duration
	Settings            map[string]string
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// BackendImage locates the image source and its repository.
type BackendImage struct {
	Repository string // e.g. secure-backend
	Tag        string
	ContextDir string
	Dockerfile string
	Platform   string
}

// Reference returns <loginServer>/<repository>:<tag>.
func (i BackendImage) Reference(loginServer string) string {
	tag := i.Tag
	if tag == "" {
		tag = "latest"
	}
	return fmt.Sprintf("%s/%s:%s", loginServer, i.Repository, tag)
}

// BackendTLS configures TLS termination at the ingress.
type BackendTLS struct {
	Mode         TLSMode
	SecretName   string
	ValidityDays int // self-signed only
}

// BackendResources carries container resource quantities.
type BackendResources struct {
	CPURequest    string
	MemoryRequest string
	CPULimit      string
	MemoryLimit   string
}

// WebAppRef names an App Service site.
type WebAppRef struct {
	Name          string
	ResourceGroup string
}

// BackendStatus summarizes an in-cluster backend deployment.
type BackendStatus struct {
	Namespace         string            `json:"namespace"`
	Deployment        string            `json:"deployment"`
	Replicas          int32             `json:"replicas"`
	ReadyReplicas     int32             `json:"readyReplicas"`
	AvailableReplicas int32             `json:"availableReplicas"`
	Available         bool              `json:"available"`
	Pods              map[string]string `json:"pods,omitempty"` // name -> phase
	IngressHost       string            `json:"ingressHost,omitempty"`
	IngressAddress    string            `json:"ingressAddress,omitempty"`
	TLSSecret         string            `json:"tlsSecret,omitempty"`
}
