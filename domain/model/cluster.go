package model

import (
	"context"
	"time"
)

// Cluster represents the AKS cluster hosting the backend.
type Cluster struct {
	ID                string
	Name              string
	ProviderID        string // references Provider
	Existing          bool   // never provisioned or deprovisioned by sbops
	ResourceGroup     string
	NodeCount         int32
	NodeVMSize        string
	KubernetesVersion string
	Ingress           *ClusterIngress
	CertManager       *ClusterCertManager
	Settings          map[string]string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// ClusterIngress configures the ingress-nginx add-on.
type ClusterIngress struct {
	Namespace    string
	ReleaseName  string
	ChartVersion string
	ServiceName  string // LoadBalancer Service of the controller
	StaticIP     string // optional pre-allocated public IP
	DNSLabel     string // optional azure-dns-label-name annotation
	IPWaitPeriod time.Duration
	IPWaitLimit  time.Duration
}

// ClusterCertManager configures the cert-manager add-on and its ClusterIssuer.
type ClusterCertManager struct {
	Enabled      bool
	Namespace    string
	ReleaseName  string
	ChartVersion string
	IssuerName   string
	IssuerServer string // ACME directory URL
	Email        string
}

// ClusterStatus represents the status of a cluster.
type ClusterStatus struct {
	Existing             bool   `json:"existing"`
	Provisioned          bool   `json:"provisioned"`
	ProvisioningState    string `json:"provisioningState,omitempty"`
	PowerState           string `json:"powerState,omitempty"`
	KubernetesVersion    string `json:"kubernetesVersion,omitempty"`
	FQDN                 string `json:"fqdn,omitempty"`
	IngressInstalled     bool   `json:"ingressInstalled"`
	CertManagerInstalled bool   `json:"certManagerInstalled"`
}

// Installed reports whether all required add-ons are present.
func (s *ClusterStatus) Installed(c *Cluster) bool {
	if !s.IngressInstalled {
		return false
	}
	if c != nil && c.CertManager != nil && c.CertManager.Enabled {
		return s.CertManagerInstalled
	}
	return true
}

type ClusterProvisionOptions struct{ Force bool }
type ClusterDeprovisionOptions struct{ Force bool }
type ClusterInstallOptions struct{ Force bool }
type ClusterUninstallOptions struct{ Force bool }

type ClusterProvisionOption func(*ClusterProvisionOptions)
type ClusterDeprovisionOption func(*ClusterDeprovisionOptions)
type ClusterInstallOption func(*ClusterInstallOptions)
type ClusterUninstallOption func(*ClusterUninstallOptions)

func WithClusterProvisionForce() ClusterProvisionOption {
	return func(o *ClusterProvisionOptions) { o.Force = true }
}
func WithClusterDeprovisionForce() ClusterDeprovisionOption {
	return func(o *ClusterDeprovisionOptions) { o.Force = true }
}
func WithClusterInstallForce() ClusterInstallOption {
	return func(o *ClusterInstallOptions) { o.Force = true }
}
func WithClusterUninstallForce() ClusterUninstallOption {
	return func(o *ClusterUninstallOptions) { o.Force = true }
}

// ClusterPort is the domain port for cluster lifecycle operations.
type ClusterPort interface {
	Status(ctx context.Context, cluster *Cluster) (*ClusterStatus, error)
	Provision(ctx context.Context, cluster *Cluster, opts ...ClusterProvisionOption) error
	Deprovision(ctx context.Context, cluster *Cluster, opts ...ClusterDeprovisionOption) error
	Install(ctx context.Context, cluster *Cluster, opts ...ClusterInstallOption) error
	Uninstall(ctx context.Context, cluster *Cluster, opts ...ClusterUninstallOption) error
	Kubeconfig(ctx context.Context, cluster *Cluster) ([]byte, error)
	DNSApply(ctx context.Context, cluster *Cluster, rset DNSRecordSet, opts ...ClusterDNSApplyOption) error
}
