package kube

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"helm.sh/helm/v3/pkg/action"
	"helm.sh/helm/v3/pkg/chart/loader"
	"helm.sh/helm/v3/pkg/cli"
	helmdriver "helm.sh/helm/v3/pkg/storage/driver"

	"github.com/securebackend/sbops/internal/logging"
)

// ReleaseSpec describes one Helm release.
type ReleaseSpec struct {
	Name      string
	Namespace string
	RepoURL   string
	Chart     string
	Version   string
	Values    map[string]any
	Timeout   time.Duration
}

// ReleaseManager installs and removes Helm releases.
type ReleaseManager interface {
	Upgrade(ctx context.Context, spec *ReleaseSpec) error
	Uninstall(ctx context.Context, namespace, name string) error
}

// HelmReleases implements ReleaseManager with the Helm SDK.
type HelmReleases struct {
	Kubeconfig []byte
}

// NewHelmReleases returns a ReleaseManager bound to kubeconfig.
func NewHelmReleases(kubeconfig []byte) *HelmReleases {
	return &HelmReleases{Kubeconfig: kubeconfig}
}

func (h *HelmReleases) configure(ctx context.Context, namespace string) (*action.Configuration, *cli.EnvSettings, func(), error) {
	if len(h.Kubeconfig) == 0 {
		return nil, nil, func() {}, fmt.Errorf("kubeconfig is required for Helm operations")
	}
	path, cleanup, err := writeTempKubeconfig(h.Kubeconfig)
	if err != nil {
		return nil, nil, func() {}, err
	}
	settings := cli.New()
	settings.KubeConfig = path
	settings.SetNamespace(namespace)

	logger := logging.FromContext(ctx)
	cfg := new(action.Configuration)
	if err := cfg.Init(settings.RESTClientGetter(), namespace, "secret", func(format string, v ...any) {
		logger.Debugf(ctx, "helm: "+format, v...)
	}); err != nil {
		cleanup()
		return nil, nil, func() {}, fmt.Errorf("init helm configuration: %w", err)
	}
	return cfg, settings, cleanup, nil
}

// Upgrade upgrades the release, installing it when no deployed release exists.
func (h *HelmReleases) Upgrade(ctx context.Context, spec *ReleaseSpec) error {
	cfg, settings, cleanup, err := h.configure(ctx, spec.Namespace)
	if err != nil {
		return err
	}
	defer cleanup()

	timeout := spec.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}
	cpo := action.ChartPathOptions{RepoURL: spec.RepoURL, Version: spec.Version}
	chartPath, err := cpo.LocateChart(spec.Chart, settings)
	if err != nil {
		return fmt.Errorf("locate %s chart: %w", spec.Chart, err)
	}
	ch, err := loader.Load(chartPath)
	if err != nil {
		return fmt.Errorf("load %s chart: %w", spec.Chart, err)
	}

	up := action.NewUpgrade(cfg)
	up.Namespace = spec.Namespace
	up.Version = spec.Version
	up.Atomic = true
	up.Wait = true
	up.Timeout = timeout
	if _, err := up.RunWithContext(ctx, spec.Name, ch, spec.Values); err != nil {
		if !errors.Is(err, helmdriver.ErrNoDeployedReleases) {
			return fmt.Errorf("helm upgrade %s: %w", spec.Name, err)
		}
		in := action.NewInstall(cfg)
		in.Namespace = spec.Namespace
		in.ReleaseName = spec.Name
		in.Version = spec.Version
		in.CreateNamespace = true
		in.Atomic = true
		in.Wait = true
		in.Timeout = timeout
		if _, err := in.RunWithContext(ctx, ch, spec.Values); err != nil {
			return fmt.Errorf("helm install %s: %w", spec.Name, err)
		}
	}
	return nil
}

// Uninstall removes the release. A missing release is not an error.
func (h *HelmReleases) Uninstall(ctx context.Context, namespace, name string) error {
	cfg, _, cleanup, err := h.configure(ctx, namespace)
	if err != nil {
		return err
	}
	defer cleanup()
	un := action.NewUninstall(cfg)
	un.Wait = true
	un.Timeout = 5 * time.Minute
	if _, err := un.Run(name); err != nil {
		if errors.Is(err, helmdriver.ErrReleaseNotFound) {
			return nil
		}
		return fmt.Errorf("helm uninstall %s: %w", name, err)
	}
	return nil
}

func writeTempKubeconfig(kubeconfig []byte) (string, func(), error) {
	f, err := os.CreateTemp("", "sbops-kubeconfig-*.yaml")
	if err != nil {
		return "", func() {}, fmt.Errorf("create temp kubeconfig: %w", err)
	}
	path := f.Name()
	if _, err := f.Write(kubeconfig); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return "", func() {}, fmt.Errorf("write temp kubeconfig: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return "", func() {}, fmt.Errorf("close temp kubeconfig: %w", err)
	}
	return path, func() { _ = os.Remove(path) }, nil
}
