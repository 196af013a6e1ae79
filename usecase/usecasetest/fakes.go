// Package usecasetest provides recording fakes of the domain ports for use
// case tests.
package usecasetest

import (
	"context"
	"sync"

	"github.com/securebackend/sbops/domain/model"
)

// Recorder collects call names in order.
type Recorder struct {
	mu    sync.Mutex
	Calls []string
}

func (r *Recorder) record(call string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Calls = append(r.Calls, call)
}

// Called reports whether call was recorded.
func (r *Recorder) Called(call string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.Calls {
		if c == call {
			return true
		}
	}
	return false
}

// ClusterPort is a fake model.ClusterPort.
type ClusterPort struct {
	*Recorder
	StatusValue model.ClusterStatus
	KubeconfigV []byte
	DNSRecords  []model.DNSRecordSet
	DNSOptions  model.ClusterDNSApplyOptions
	Force       bool
	Err         map[string]error
}

func (p *ClusterPort) err(op string) error {
	p.record("cluster." + op)
	return p.Err[op]
}

func (p *ClusterPort) Status(_ context.Context, _ *model.Cluster) (*model.ClusterStatus, error) {
	if err := p.err("status"); err != nil {
		return nil, err
	}
	st := p.StatusValue
	return &st, nil
}

func (p *ClusterPort) Provision(_ context.Context, _ *model.Cluster, opts ...model.ClusterProvisionOption) error {
	var o model.ClusterProvisionOptions
	for _, opt := range opts {
		opt(&o)
	}
	p.Force = o.Force
	return p.err("provision")
}

func (p *ClusterPort) Deprovision(_ context.Context, _ *model.Cluster, opts ...model.ClusterDeprovisionOption) error {
	var o model.ClusterDeprovisionOptions
	for _, opt := range opts {
		opt(&o)
	}
	p.Force = o.Force
	return p.err("deprovision")
}

func (p *ClusterPort) Install(_ context.Context, _ *model.Cluster, opts ...model.ClusterInstallOption) error {
	var o model.ClusterInstallOptions
	for _, opt := range opts {
		opt(&o)
	}
	p.Force = o.Force
	return p.err("install")
}

func (p *ClusterPort) Uninstall(_ context.Context, _ *model.Cluster, _ ...model.ClusterUninstallOption) error {
	return p.err("uninstall")
}

func (p *ClusterPort) Kubeconfig(_ context.Context, _ *model.Cluster) ([]byte, error) {
	if err := p.err("kubeconfig"); err != nil {
		return nil, err
	}
	return p.KubeconfigV, nil
}

func (p *ClusterPort) DNSApply(_ context.Context, _ *model.Cluster, rset model.DNSRecordSet, opts ...model.ClusterDNSApplyOption) error {
	var o model.ClusterDNSApplyOptions
	for _, opt := range opts {
		opt(&o)
	}
	p.DNSOptions = o
	if err := p.err("dns"); err != nil {
		return err
	}
	p.DNSRecords = append(p.DNSRecords, rset)
	return nil
}

// RegistryPort is a fake model.RegistryPort.
type RegistryPort struct {
	*Recorder
	Creds *model.RegistryCredentials
	Err   map[string]error
}

func (p *RegistryPort) Login(_ context.Context, _ *model.Registry) (*model.RegistryCredentials, error) {
	p.record("registry.login")
	if err := p.Err["login"]; err != nil {
		return nil, err
	}
	c := *p.Creds
	return &c, nil
}

func (p *RegistryPort) Attach(_ context.Context, _ *model.Registry, _ *model.Cluster) error {
	p.record("registry.attach")
	return p.Err["attach"]
}

// WebAppPort is a fake model.WebAppPort.
type WebAppPort struct {
	*Recorder
	Deployed []model.WebApp
	Host     string
	Err      map[string]error
}

func (p *WebAppPort) Deploy(_ context.Context, app *model.WebApp) (*model.WebAppStatus, error) {
	p.record("webapp.deploy:" + app.Name)
	if err := p.Err["deploy"]; err != nil {
		return nil, err
	}
	p.Deployed = append(p.Deployed, *app)
	return p.status(app), nil
}

func (p *WebAppPort) Status(_ context.Context, app *model.WebApp) (*model.WebAppStatus, error) {
	p.record("webapp.status:" + app.Name)
	if err := p.Err["status"]; err != nil {
		return nil, err
	}
	return p.status(app), nil
}

func (p *WebAppPort) status(app *model.WebApp) *model.WebAppStatus {
	host := p.Host
	if host == "" {
		host = app.Name + ".azurewebsites.net"
	}
	return &model.WebAppStatus{Name: app.Name, DefaultHostName: host, State: "Running", HTTPSOnly: true, LinuxFxVersion: "DOCKER|" + app.Image}
}

// ImagePort is a fake model.ImagePort.
type ImagePort struct {
	*Recorder
	Builds []model.ImageBuildRequest
	Pushes []string
	Err    map[string]error
}

func (p *ImagePort) Build(_ context.Context, req model.ImageBuildRequest) error {
	p.record("image.build")
	if err := p.Err["build"]; err != nil {
		return err
	}
	p.Builds = append(p.Builds, req)
	return nil
}

func (p *ImagePort) Push(_ context.Context, ref string, _ *model.RegistryCredentials) error {
	p.record("image.push")
	if err := p.Err["push"]; err != nil {
		return err
	}
	p.Pushes = append(p.Pushes, ref)
	return nil
}

// HealthPort is a fake model.HealthPort.
type HealthPort struct {
	*Recorder
	Healthy bool
	Checks  []model.HealthCheck
}

func (p *HealthPort) Check(_ context.Context, hc model.HealthCheck) (*model.HealthResult, error) {
	p.record("health.check")
	p.Checks = append(p.Checks, hc)
	res := &model.HealthResult{URL: hc.URL, Healthy: p.Healthy, Attempts: 1}
	if p.Healthy {
		res.StatusCode = 200
		res.Body = `{"status":"healthy"}`
	} else {
		res.StatusCode = 503
	}
	return res, nil
}

// Ports bundles fakes sharing one Recorder.
type Ports struct {
	Recorder *Recorder
	Cluster  *ClusterPort
	Registry *RegistryPort
	WebApp   *WebAppPort
	Image    *ImagePort
	Health   *HealthPort
}

// NewPorts returns fakes with healthy defaults.
func NewPorts() *Ports {
	r := &Recorder{}
	return &Ports{
		Recorder: r,
		Cluster:  &ClusterPort{Recorder: r, Err: map[string]error{}, StatusValue: model.ClusterStatus{Provisioned: true}},
		Registry: &RegistryPort{Recorder: r, Err: map[string]error{}, Creds: &model.RegistryCredentials{
			LoginServer: "sbopsacr.azurecr.io", Username: "sbopsacr", Password: "pw",
		}},
		WebApp: &WebAppPort{Recorder: r, Err: map[string]error{}},
		Image:  &ImagePort{Recorder: r, Err: map[string]error{}},
		Health: &HealthPort{Recorder: r, Healthy: true},
	}
}
