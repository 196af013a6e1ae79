// Package kube talks to the Kubernetes API of the backend cluster: it applies
// backend manifests, installs the ingress and certificate add-ons, and reads
// back deployment and load balancer state.
package kube

import (
	"context"
	"fmt"
	"os"

	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
)

// FieldManager is the server-side apply field manager used by sbops.
const FieldManager = "sbops"

// Client wraps commonly used Kubernetes clients and the underlying REST config.
// RESTConfig is nil for clients built with NewClientFromClientset.
type Client struct {
	RESTConfig *rest.Config
	Clientset  kubernetes.Interface
}

// Options controls client construction tuning. All fields are optional.
type Options struct {
	UserAgent string
	QPS       float32
	Burst     int
}

func (o *Options) applyDefaults() {
	if o.QPS <= 0 {
		o.QPS = 20
	}
	if o.Burst <= 0 {
		o.Burst = 50
	}
	if o.UserAgent == "" {
		o.UserAgent = "sbops"
	}
}

// NewClientFromKubeconfig constructs a Client from kubeconfig bytes.
func NewClientFromKubeconfig(_ context.Context, kubeconfig []byte, opts *Options) (*Client, error) {
	if len(kubeconfig) == 0 {
		return nil, fmt.Errorf("kubeconfig is empty")
	}
	cfg, err := clientcmd.RESTConfigFromKubeConfig(kubeconfig)
	if err != nil {
		return nil, fmt.Errorf("build REST config from kubeconfig: %w", err)
	}
	return NewClientFromRESTConfig(cfg, opts)
}

// NewClientFromKubeconfigPath constructs a Client from a kubeconfig file path.
func NewClientFromKubeconfigPath(ctx context.Context, path string, opts *Options) (*Client, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read kubeconfig file: %w", err)
	}
	return NewClientFromKubeconfig(ctx, data, opts)
}

// NewClientFromRESTConfig constructs a Client from an existing rest.Config.
func NewClientFromRESTConfig(cfg *rest.Config, opts *Options) (*Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("REST config is nil")
	}
	if opts == nil {
		opts = &Options{}
	}
	opts.applyDefaults()

	cfg.QPS = opts.QPS
	cfg.Burst = opts.Burst
	_ = rest.AddUserAgent(cfg, opts.UserAgent)

	cs, err := kubernetes.NewForConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("build clientset: %w", err)
	}
	return &Client{RESTConfig: cfg, Clientset: cs}, nil
}

// NewClientFromClientset wraps an existing clientset. Objects are applied
// with typed create-or-update since no discovery is available.
func NewClientFromClientset(cs kubernetes.Interface) *Client {
	return &Client{Clientset: cs}
}

func (c *Client) ready() error {
	if c == nil || c.Clientset == nil {
		return fmt.Errorf("kube client is not initialized")
	}
	return nil
}

// ClientFactory builds a Client from kubeconfig bytes. Use cases take one so
// tests can substitute a fake clientset.
type ClientFactory func(ctx context.Context, kubeconfig []byte) (*Client, error)

// DefaultClientFactory connects with the default Options.
func DefaultClientFactory(ctx context.Context, kubeconfig []byte) (*Client, error) {
	return NewClientFromKubeconfig(ctx, kubeconfig, nil)
}
