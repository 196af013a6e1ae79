package backend

import (
	"context"
	"fmt"
	"time"

	"github.com/securebackend/sbops/domain/model"
	"github.com/securebackend/sbops/internal/logging"
)

// WaitInput represents a command to wait for backend availability.
type WaitInput struct {
	BackendID string `json:"backend_id"`
	// Timeout overrides the backend availability timeout.
	Timeout time.Duration `json:"timeout,omitempty"`
	// Interval overrides the poll interval.
	Interval time.Duration `json:"interval,omitempty"`
}

// Wait blocks until the backend Deployment is Available or the timeout
// expires with model.ErrNotAvailable. Web App backends return immediately.
func (u *UseCase) Wait(ctx context.Context, in *WaitInput) error {
	if in == nil {
		return fmt.Errorf("input is nil")
	}
	t, err := u.load(ctx, in.BackendID)
	if err != nil {
		return err
	}
	b := t.backend
	if b.Target == model.BackendTargetWebApp {
		logging.FromContext(ctx).Info(ctx, "wait skipped for web app backend", "backend", b.Name)
		return nil
	}
	timeout := in.Timeout
	if timeout <= 0 {
		timeout = b.AvailabilityTimeout
	}
	client, err := u.kubeClient(ctx, t.cluster)
	if err != nil {
		return err
	}
	return client.WaitDeploymentAvailable(ctx, b.Namespace, b.Name, in.Interval, timeout)
}
