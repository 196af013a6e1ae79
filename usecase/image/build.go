package image

import (
	"context"

	"github.com/securebackend/sbops/internal/logging"
)

// BuildInput selects the image to build.
type BuildInput struct {
	Target
	NoCache bool `json:"no_cache,omitempty"`
}

// BuildOutput reports the built reference.
type BuildOutput struct {
	Reference string `json:"reference"`
}

// Build builds the image tagged <loginServer>/<repository>:<tag>.
func (u *UseCase) Build(ctx context.Context, in *BuildInput) (*BuildOutput, error) {
	if in == nil {
		in = &BuildInput{}
	}
	r, err := u.resolve(ctx, in.Target)
	if err != nil {
		return nil, err
	}
	logging.FromContext(ctx).Info(ctx, "building image", "ref", r.ref, "context", r.image.ContextDir)
	if err := u.ImagePort.Build(ctx, buildRequest(r.image, r.ref, in.NoCache)); err != nil {
		return nil, err
	}
	return &BuildOutput{Reference: r.ref}, nil
}
