package kube

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"

	"github.com/securebackend/sbops/domain/model"
	"github.com/securebackend/sbops/internal/logging"
)

// Chart coordinates of the cluster add-ons.
const (
	IngressNginxRepoURL       = "https://kubernetes.github.io/ingress-nginx"
	IngressNginxChart         = "ingress-nginx"
	IngressNginxChartVersion  = "4.10.1"
	CertManagerRepoURL        = "https://charts.jetstack.io"
	CertManagerChart          = "cert-manager"
	CertManagerChartVersion   = "v1.14.5"
	defaultIngressNamespace   = "ingress-nginx"
	defaultIngressRelease     = "ingress-nginx"
	defaultIngressService     = "ingress-nginx-controller"
	defaultCertManagerNS      = "cert-manager"
	defaultCertManagerRelease = "cert-manager"
)

// Installer installs the ingress-nginx and cert-manager add-ons.
type Installer struct {
	Client   *Client
	Releases ReleaseManager
}

// NewInstaller returns an Installer using the Helm SDK with kubeconfig.
func NewInstaller(c *Client, kubeconfig []byte) *Installer {
	return &Installer{Client: c, Releases: NewHelmReleases(kubeconfig)}
}

// AddonStatus reports which add-ons are present in the cluster.
type AddonStatus struct {
	Ingress     bool
	CertManager bool
}

// IngressSettings returns the ingress configuration with defaults applied.
func IngressSettings(cluster *model.Cluster) model.ClusterIngress {
	var in model.ClusterIngress
	if cluster != nil && cluster.Ingress != nil {
		in = *cluster.Ingress
	}
	if in.Namespace == "" {
		in.Namespace = defaultIngressNamespace
	}
	if in.ReleaseName == "" {
		in.ReleaseName = defaultIngressRelease
	}
	if in.ServiceName == "" {
		in.ServiceName = defaultIngressService
	}
	if in.ChartVersion == "" {
		in.ChartVersion = IngressNginxChartVersion
	}
	return in
}

// CertManagerSettings returns the cert-manager configuration with defaults
// applied. Enabled is false when the cluster carries no cert-manager block.
func CertManagerSettings(cluster *model.Cluster) model.ClusterCertManager {
	var cm model.ClusterCertManager
	if cluster != nil && cluster.CertManager != nil {
		cm = *cluster.CertManager
	}
	if cm.Namespace == "" {
		cm.Namespace = defaultCertManagerNS
	}
	if cm.ReleaseName == "" {
		cm.ReleaseName = defaultCertManagerRelease
	}
	if cm.ChartVersion == "" {
		cm.ChartVersion = CertManagerChartVersion
	}
	if cm.IssuerName == "" {
		cm.IssuerName = "letsencrypt-prod"
	}
	if cm.IssuerServer == "" {
		cm.IssuerServer = "https://acme-v02.api.letsencrypt.org/directory"
	}
	return cm
}

// Status checks for the ingress controller service and the cert-manager
// deployment.
func (i *Installer) Status(ctx context.Context, cluster *model.Cluster) (*AddonStatus, error) {
	if i == nil || i.Client == nil {
		return nil, fmt.Errorf("kube installer is not initialized")
	}
	if err := i.Client.ready(); err != nil {
		return nil, err
	}
	in := IngressSettings(cluster)
	cm := CertManagerSettings(cluster)
	st := &AddonStatus{}

	_, err := i.Client.Clientset.CoreV1().Services(in.Namespace).Get(ctx, in.ServiceName, metav1.GetOptions{})
	switch {
	case err == nil:
		st.Ingress = true
	case !apierrors.IsNotFound(err):
		return nil, fmt.Errorf("get service %s/%s: %w", in.Namespace, in.ServiceName, err)
	}
	_, err = i.Client.Clientset.AppsV1().Deployments(cm.Namespace).Get(ctx, cm.ReleaseName, metav1.GetOptions{})
	switch {
	case err == nil:
		st.CertManager = true
	case !apierrors.IsNotFound(err):
		return nil, fmt.Errorf("get deployment %s/%s: %w", cm.Namespace, cm.ReleaseName, err)
	}
	return st, nil
}

// Install installs ingress-nginx and, when enabled, cert-manager. Each add-on
// that already exists is skipped unless force is set. The charts install
// concurrently; the ClusterIssuer is applied once cert-manager is ready.
func (i *Installer) Install(ctx context.Context, cluster *model.Cluster, force bool) error {
	if i == nil || i.Releases == nil {
		return fmt.Errorf("kube installer is not initialized")
	}
	logger := logging.FromContext(ctx)
	st, err := i.Status(ctx, cluster)
	if err != nil {
		return err
	}
	in := IngressSettings(cluster)
	cm := CertManagerSettings(cluster)

	g, gctx := errgroup.WithContext(ctx)
	if st.Ingress && !force {
		logger.Info(ctx, "ingress-nginx already installed, skipping", "ns", in.Namespace)
	} else {
		g.Go(func() error {
			logger.Info(gctx, "installing ingress-nginx", "ns", in.Namespace, "version", in.ChartVersion)
			return i.Releases.Upgrade(gctx, ingressRelease(cluster, in))
		})
	}
	if cm.Enabled {
		if st.CertManager && !force {
			logger.Info(ctx, "cert-manager already installed, skipping", "ns", cm.Namespace)
		} else {
			g.Go(func() error {
				logger.Info(gctx, "installing cert-manager", "ns", cm.Namespace, "version", cm.ChartVersion)
				return i.Releases.Upgrade(gctx, certManagerRelease(cm))
			})
		}
	}
	if err := g.Wait(); err != nil {
		return err
	}

	if cm.Enabled {
		if err := i.Client.ApplyObjects(ctx, []runtime.Object{ClusterIssuerObject(&cm)}, &ApplyOptions{ForceConflicts: true}); err != nil {
			return fmt.Errorf("apply cluster issuer %s: %w", cm.IssuerName, err)
		}
	}
	return nil
}

// Uninstall removes the add-on releases. Failures are collected.
func (i *Installer) Uninstall(ctx context.Context, cluster *model.Cluster) error {
	if i == nil || i.Releases == nil {
		return fmt.Errorf("kube installer is not initialized")
	}
	in := IngressSettings(cluster)
	cm := CertManagerSettings(cluster)
	var errs []error
	if cm.Enabled {
		if err := i.Releases.Uninstall(ctx, cm.Namespace, cm.ReleaseName); err != nil {
			errs = append(errs, err)
		}
	}
	if err := i.Releases.Uninstall(ctx, in.Namespace, in.ReleaseName); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func ingressRelease(cluster *model.Cluster, in model.ClusterIngress) *ReleaseSpec {
	annotations := map[string]any{
		AnnotationAzureLBHealthProbe: "/healthz",
	}
	service := map[string]any{
		"type":                  "LoadBalancer",
		"externalTrafficPolicy": "Local",
		"annotations":           annotations,
	}
	if in.StaticIP != "" {
		service["loadBalancerIP"] = in.StaticIP
		if cluster != nil && cluster.ResourceGroup != "" {
			annotations[AnnotationAzureLBResourceGrp] = cluster.ResourceGroup
		}
	}
	if in.DNSLabel != "" {
		annotations[AnnotationAzureDNSLabelName] = in.DNSLabel
	}
	return &ReleaseSpec{
		Name:      in.ReleaseName,
		Namespace: in.Namespace,
		RepoURL:   IngressNginxRepoURL,
		Chart:     IngressNginxChart,
		Version:   in.ChartVersion,
		Timeout:   10 * time.Minute,
		Values: map[string]any{
			"controller": map[string]any{
				"replicaCount": 2,
				"service":      service,
				"ingressClassResource": map[string]any{
					"name":    IngressClassNginx,
					"default": true,
				},
			},
		},
	}
}

func certManagerRelease(cm model.ClusterCertManager) *ReleaseSpec {
	return &ReleaseSpec{
		Name:      cm.ReleaseName,
		Namespace: cm.Namespace,
		RepoURL:   CertManagerRepoURL,
		Chart:     CertManagerChart,
		Version:   cm.ChartVersion,
		Timeout:   10 * time.Minute,
		Values: map[string]any{
			"installCRDs": true,
		},
	}
}
