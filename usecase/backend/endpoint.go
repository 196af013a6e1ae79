package backend

import (
	"context"
	"fmt"
	"time"

	"github.com/securebackend/sbops/adapters/kube"
	"github.com/securebackend/sbops/domain/model"
	"github.com/securebackend/sbops/internal/logging"
)

// EndpointInput represents a command to resolve the public endpoint.
type EndpointInput struct {
	BackendID string        `json:"backend_id"`
	Interval  time.Duration `json:"interval,omitempty"`
	Timeout   time.Duration `json:"timeout,omitempty"`
}

// EndpointOutput is the externally reachable address of a backend.
type EndpointOutput struct {
	Host    string `json:"host,omitempty"`
	Address string `json:"address"`
	URL     string `json:"url"`
}

// Endpoint waits for the ingress controller load balancer address. For Web
// App backends it returns the site default host name.
func (u *UseCase) Endpoint(ctx context.Context, in *EndpointInput) (*EndpointOutput, error) {
	if in == nil {
		return nil, fmt.Errorf("input is nil")
	}
	t, err := u.load(ctx, in.BackendID)
	if err != nil {
		return nil, err
	}
	b := t.backend

	if b.Target == model.BackendTargetWebApp {
		app, err := webApp(t, "", nil)
		if err != nil {
			return nil, err
		}
		st, err := u.WebAppPort.Status(ctx, app)
		if err != nil {
			return nil, fmt.Errorf("web app status: %w", err)
		}
		host := b.Host
		if host == "" {
			host = st.DefaultHostName
		}
		return &EndpointOutput{Host: host, Address: st.DefaultHostName, URL: "https://" + host}, nil
	}

	ing := kube.IngressSettings(t.cluster)
	interval, timeout := in.Interval, in.Timeout
	if interval <= 0 {
		interval = ing.IPWaitPeriod
	}
	if timeout <= 0 {
		timeout = ing.IPWaitLimit
	}
	client, err := u.kubeClient(ctx, t.cluster)
	if err != nil {
		return nil, err
	}
	logging.FromContext(ctx).Info(ctx, "waiting for ingress address", "ns", ing.Namespace, "service", ing.ServiceName, "timeout", timeout)
	addr, err := client.WaitIngressIP(ctx, ing.Namespace, ing.ServiceName, interval, timeout)
	if err != nil {
		return nil, err
	}
	host := b.Host
	if host == "" {
		host = addr
	}
	return &EndpointOutput{Host: b.Host, Address: addr, URL: "https://" + host}, nil
}
