package frontend

import (
	"context"
	"fmt"

	"github.com/securebackend/sbops/domain/model"
)

// StatusInput represents a command to get frontend status.
type StatusInput struct {
	FrontendID string `json:"frontend_id"`
}

// Status returns the frontend Web App state.
func (u *UseCase) Status(ctx context.Context, in *StatusInput) (*model.WebAppStatus, error) {
	if in == nil || in.FrontendID == "" {
		return nil, fmt.Errorf("FrontendID is required")
	}
	f, err := u.Repos.Frontend.Get(ctx, in.FrontendID)
	if err != nil {
		return nil, err
	}
	return u.WebAppPort.Status(ctx, &model.WebApp{ProviderID: f.ProviderID, Name: f.Name, ResourceGroup: f.ResourceGroup})
}
