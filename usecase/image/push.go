package image

import (
	"context"

	"github.com/securebackend/sbops/internal/logging"
)

// PushInput selects the image to push.
type PushInput struct {
	Target
}

// PushOutput reports the pushed reference.
type PushOutput struct {
	Reference string `json:"reference"`
}

// Push pushes a previously built image with the registry admin credentials.
func (u *UseCase) Push(ctx context.Context, in *PushInput) (*PushOutput, error) {
	if in == nil {
		in = &PushInput{}
	}
	r, err := u.resolve(ctx, in.Target)
	if err != nil {
		return nil, err
	}
	logging.FromContext(ctx).Info(ctx, "pushing image", "ref", r.ref)
	if err := u.ImagePort.Push(ctx, r.ref, r.creds); err != nil {
		return nil, err
	}
	return &PushOutput{Reference: r.ref}, nil
}

// BuildPushInput selects the image to build and push.
type BuildPushInput struct {
	Target
	NoCache bool `json:"no_cache,omitempty"`
}

// BuildPush builds and pushes the image with a single registry login.
func (u *UseCase) BuildPush(ctx context.Context, in *BuildPushInput) (*PushOutput, error) {
	if in == nil {
		in = &BuildPushInput{}
	}
	r, err := u.resolve(ctx, in.Target)
	if err != nil {
		return nil, err
	}
	logger := logging.FromContext(ctx).With("ref", r.ref)
	logger.Info(ctx, "building image", "context", r.image.ContextDir)
	if err := u.ImagePort.Build(ctx, buildRequest(r.image, r.ref, in.NoCache)); err != nil {
		return nil, err
	}
	logger.Info(ctx, "pushing image")
	if err := u.ImagePort.Push(ctx, r.ref, r.creds); err != nil {
		return nil, err
	}
	return &PushOutput{Reference: r.ref}, nil
}
