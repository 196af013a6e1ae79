package backend

import (
	"context"
	"fmt"

	"github.com/securebackend/sbops/domain/model"
	"github.com/securebackend/sbops/internal/logging"
)

// DestroyInput represents a command to remove a backend from its cluster.
type DestroyInput struct {
	BackendID string `json:"backend_id"`
	// DeleteNamespace also deletes the backend namespace.
	DeleteNamespace bool `json:"delete_namespace,omitempty"`
}

// DestroyOutput reports deleted objects.
type DestroyOutput struct {
	Deleted          int  `json:"deleted"`
	NamespaceDeleted bool `json:"namespace_deleted"`
	Skipped          bool `json:"skipped,omitempty"`
}

// Destroy deletes the labeled backend objects. Web App sites are left in
// place since sbops never creates them.
func (u *UseCase) Destroy(ctx context.Context, in *DestroyInput) (*DestroyOutput, error) {
	if in == nil {
		return nil, fmt.Errorf("input is nil")
	}
	t, err := u.load(ctx, in.BackendID)
	if err != nil {
		return nil, err
	}
	b := t.backend
	logger := logging.FromContext(ctx).With("backend", b.Name, "ns", b.Namespace)
	if b.Target == model.BackendTargetWebApp {
		logger.Warn(ctx, "destroy skipped: web app sites are not managed")
		return &DestroyOutput{Skipped: true}, nil
	}
	client, err := u.kubeClient(ctx, t.cluster)
	if err != nil {
		return nil, err
	}
	n, err := client.DeleteBackend(ctx, b.Namespace, b.Name)
	if err != nil {
		return nil, err
	}
	out := &DestroyOutput{Deleted: n}
	if in.DeleteNamespace {
		if err := client.DeleteNamespace(ctx, b.Namespace); err != nil {
			return nil, err
		}
		out.NamespaceDeleted = true
	}
	logger.Info(ctx, "backend destroyed", "deleted", n, "namespace_deleted", out.NamespaceDeleted)
	return out, nil
}
