package dns

import (
	"github.com/securebackend/sbops/adapters/kube"
	"github.com/securebackend/sbops/domain"
	"github.com/securebackend/sbops/domain/model"
)

// Repos bundles repository dependencies used by DNS use cases.
type Repos struct {
	Backend domain.BackendRepository
	Cluster domain.ClusterRepository
}

// UseCase provides application logic for DNS operations.
type UseCase struct {
	Repos       *Repos
	ClusterPort model.ClusterPort
	// KubeClient defaults to kube.DefaultClientFactory.
	KubeClient kube.ClientFactory
}

// DNSRecordResult describes the result of a DNS operation.
type DNSRecordResult struct {
	FQDN    string              `json:"fqdn"`
	Type    model.DNSRecordType `json:"type"`
	Action  string              `json:"action"` // "updated", "deleted", "skipped", "failed", "planned"
	Message string              `json:"message"`
}
