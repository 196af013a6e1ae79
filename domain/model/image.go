package model

import "context"

// ImageBuildRequest describes a container image build.
type ImageBuildRequest struct {
	ContextDir string
	Dockerfile string // relative to ContextDir
	Tags       []string
	BuildArgs  map[string]string
	Platform   string // e.g. linux/amd64
	NoCache    bool
}

// ImagePort builds and pushes container images.
type ImagePort interface {
	Build(ctx context.Context, req ImageBuildRequest) error
	Push(ctx context.Context, ref string, creds *RegistryCredentials) error
}
