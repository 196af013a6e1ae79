package dns

import (
	"context"
	"fmt"

	"github.com/securebackend/sbops/domain/model"
)

// DestroyInput holds parameters for DNS record deletion.
type DestroyInput struct {
	BackendID string              `json:"backend_id"`
	Type      model.DNSRecordType `json:"type,omitempty"` // defaults to A
	Strict    bool                `json:"strict,omitempty"`
	DryRun    bool                `json:"dry_run,omitempty"`
}

// DestroyOutput holds the result of DNS record deletion.
type DestroyOutput struct {
	Deleted []DNSRecordResult `json:"deleted"`
}

// Destroy deletes the record set of the backend host. A missing record is
// not an error.
func (u *UseCase) Destroy(ctx context.Context, in *DestroyInput) (*DestroyOutput, error) {
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
		return &DestroyOutput{}, nil
	}
	cluster, err := u.Repos.Cluster.Get(ctx, b.ClusterID)
	if err != nil {
		return nil, fmt.Errorf("get cluster: %w", err)
	}
	typ := in.Type
	if typ == "" {
		typ = model.DNSRecordTypeA
	}
	rset := model.DNSRecordSet{FQDN: b.Host, Type: typ}
	result := DNSRecordResult{FQDN: b.Host, Type: typ}
	if err := u.ClusterPort.DNSApply(ctx, cluster, rset, applyOptions(b.DNSZone, in.Strict, in.DryRun)...); err != nil {
		if in.Strict {
			return nil, fmt.Errorf("delete DNS for %s: %w", b.Host, err)
		}
		result.Action = "failed"
		result.Message = err.Error()
	} else if in.DryRun {
		result.Action = "planned"
		result.Message = "would delete " + string(typ)
	} else {
		result.Action = "deleted"
	}
	return &DestroyOutput{Deleted: []DNSRecordResult{result}}, nil
}
