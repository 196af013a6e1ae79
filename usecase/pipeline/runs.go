package pipeline

import (
	"context"
	"fmt"

	"github.com/securebackend/sbops/domain/model"
)

// ListRunsInput limits the listing. Zero Limit lists everything.
type ListRunsInput struct {
	BackendID string `json:"backend_id,omitempty"`
	Limit     int    `json:"limit,omitempty"`
}

// ListRuns returns recorded runs, newest first.
func (u *UseCase) ListRuns(ctx context.Context, in *ListRunsInput) ([]*model.Run, error) {
	if in == nil {
		in = &ListRunsInput{}
	}
	runs, err := u.Repos.Run.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*model.Run, 0, len(runs))
	for _, r := range runs {
		if in.BackendID != "" && r.BackendID != in.BackendID {
			continue
		}
		out = append(out, r)
		if in.Limit > 0 && len(out) == in.Limit {
			break
		}
	}
	return out, nil
}

// GetRun returns one recorded run.
func (u *UseCase) GetRun(ctx context.Context, id string) (*model.Run, error) {
	if id == "" {
		return nil, fmt.Errorf("run ID is required")
	}
	return u.Repos.Run.Get(ctx, id)
}
