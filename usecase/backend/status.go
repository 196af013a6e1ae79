package backend

import (
	"context"
	"fmt"

	"github.com/securebackend/sbops/domain/model"
)

// StatusInput represents a command to get backend status.
type StatusInput struct {
	BackendID string `json:"backend_id"`
}

// StatusOutput carries the in-cluster or Web App status.
type StatusOutput struct {
	BackendID   string               `json:"backend_id"`
	BackendName string               `json:"backend_name"`
	Target      model.BackendTarget  `json:"target"`
	Kube        *model.BackendStatus `json:"kube,omitempty"`
	WebApp      *model.WebAppStatus  `json:"webApp,omitempty"`
}

// Status returns the backend deployment state.
func (u *UseCase) Status(ctx context.Context, in *StatusInput) (*StatusOutput, error) {
	if in == nil {
		return nil, fmt.Errorf("input is nil")
	}
	t, err := u.load(ctx, in.BackendID)
	if err != nil {
		return nil, err
	}
	b := t.backend
	out := &StatusOutput{BackendID: b.ID, BackendName: b.Name, Target: b.Target}
	if b.Target == model.BackendTargetWebApp {
		app, err := webApp(t, "", nil)
		if err != nil {
			return nil, err
		}
		if out.WebApp, err = u.WebAppPort.Status(ctx, app); err != nil {
			return nil, fmt.Errorf("web app status: %w", err)
		}
		return out, nil
	}
	client, err := u.kubeClient(ctx, t.cluster)
	if err != nil {
		return nil, err
	}
	if out.Kube, err = client.BackendStatus(ctx, b); err != nil {
		return nil, err
	}
	return out, nil
}
