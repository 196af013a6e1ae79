package dns

import (
	"context"
	"fmt"
	"net"

	"github.com/securebackend/sbops/adapters/kube"
	"github.com/securebackend/sbops/domain/model"
)

// DeployInput holds parameters for DNS record deployment.
type DeployInput struct {
	BackendID string `json:"backend_id"`
	// Address skips the ingress lookup when set.
	Address string `json:"address,omitempty"`
	Strict  bool   `json:"strict,omitempty"`
	DryRun  bool   `json:"dry_run,omitempty"`
}

// DeployOutput holds the result of DNS record deployment.
type DeployOutput struct {
	Applied []DNSRecordResult `json:"applied"`
}

func applyOptions(zone string, strict, dryRun bool) []model.ClusterDNSApplyOption {
	var opts []model.ClusterDNSApplyOption
	if zone != "" {
		opts = append(opts, model.WithClusterDNSApplyZoneHint(zone))
	}
	if strict {
		opts = append(opts, model.WithClusterDNSApplyStrict())
	}
	if dryRun {
		opts = append(opts, model.WithClusterDNSApplyDryRun())
	}
	return opts
}

// recordFor returns the record pointing host at address: A for IPv4, AAAA
// for IPv6 and CNAME for a load balancer host name.
func recordFor(host, address string) model.DNSRecordSet {
	rset := model.DNSRecordSet{FQDN: host, RData: []string{address}}
	ip := net.ParseIP(address)
	switch {
	case ip == nil:
		rset.Type = model.DNSRecordTypeCNAME
	case ip.To4() == nil:
		rset.Type = model.DNSRecordTypeAAAA
	default:
		rset.Type = model.DNSRecordTypeA
	}
	return rset
}

// Deploy points the backend host at the ingress controller address.
func (u *UseCase) Deploy(ctx context.Context, in *DeployInput) (*DeployOutput, error) {
	if in == nil {
		return nil, fmt.Errorf("input is nil")
	}
	if in.BackendID == "" {
		return nil, fmt.Errorf("BackendID is required")
	}
	b, err := u.Repos.Backend.Get(ctx, in.BackendID)
	if err != nil {
		return nil, fmt.Errorf("get backend: %w", err)
	}
	if b.Host == "" {
		return nil, fmt.Errorf("backend %s has no host", b.Name)
	}
	cluster, err := u.Repos.Cluster.Get(ctx, b.ClusterID)
	if err != nil {
		return nil, fmt.Errorf("get cluster: %w", err)
	}

	address := in.Address
	if address == "" {
		address, err = u.ingressAddress(ctx, cluster)
		if err != nil {
			return nil, err
		}
	}
	if address == "" {
		if in.Strict {
			return nil, fmt.Errorf("no address available for %s", b.Host)
		}
		return &DeployOutput{Applied: []DNSRecordResult{{FQDN: b.Host, Action: "skipped", Message: "no address available yet"}}}, nil
	}

	rset := recordFor(b.Host, address)
	result := DNSRecordResult{FQDN: rset.FQDN, Type: rset.Type}
	if err := u.ClusterPort.DNSApply(ctx, cluster, rset, applyOptions(b.DNSZone, in.Strict, in.DryRun)...); err != nil {
		if in.Strict {
			return nil, fmt.Errorf("apply DNS for %s: %w", b.Host, err)
		}
		result.Action = "failed"
		result.Message = err.Error()
	} else if in.DryRun {
		result.Action = "planned"
		result.Message = fmt.Sprintf("would create/update %s -> %s", rset.Type, address)
	} else {
		result.Action = "updated"
		result.Message = fmt.Sprintf("%s -> %s", rset.Type, address)
	}
	return &DeployOutput{Applied: []DNSRecordResult{result}}, nil
}

// ingressAddress reads the current load balancer address without waiting.
func (u *UseCase) ingressAddress(ctx context.Context, cluster *model.Cluster) (string, error) {
	kubeconfig, err := u.ClusterPort.Kubeconfig(ctx, cluster)
	if err != nil {
		return "", fmt.Errorf("get kubeconfig: %w", err)
	}
	factory := u.KubeClient
	if factory == nil {
		factory = kube.DefaultClientFactory
	}
	client, err := factory(ctx, kubeconfig)
	if err != nil {
		return "", fmt.Errorf("create kube client: %w", err)
	}
	ing := kube.IngressSettings(cluster)
	return client.IngressAddress(ctx, ing.Namespace, ing.ServiceName)
}
