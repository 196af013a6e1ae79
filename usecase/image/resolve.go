package image

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/securebackend/sbops/domain/model"
)

type resolved struct {
	image model.BackendImage
	creds *model.RegistryCredentials
	ref   string
}

// resolve loads the owner image settings and registry credentials.
func (u *UseCase) resolve(ctx context.Context, t Target) (*resolved, error) {
	var (
		img        model.BackendImage
		registryID string
	)
	switch {
	case t.BackendID != "" && t.FrontendID != "":
		return nil, fmt.Errorf("only one of BackendID and FrontendID may be set")
	case t.BackendID != "":
		b, err := u.Repos.Backend.Get(ctx, t.BackendID)
		if err != nil {
			return nil, err
		}
		img, registryID = b.Image, b.RegistryID
	case t.FrontendID != "":
		f, err := u.Repos.Frontend.Get(ctx, t.FrontendID)
		if err != nil {
			return nil, err
		}
		img, registryID = f.Image, f.RegistryID
	default:
		return nil, fmt.Errorf("BackendID or FrontendID is required")
	}
	if img.Repository == "" {
		return nil, fmt.Errorf("image repository is not configured")
	}
	if t.Tag != "" {
		img.Tag = t.Tag
	}

	reg, err := u.Repos.Registry.Get(ctx, registryID)
	if err != nil {
		return nil, fmt.Errorf("get registry: %w", err)
	}
	creds, err := u.RegistryPort.Login(ctx, reg)
	if err != nil {
		return nil, fmt.Errorf("registry login: %w", err)
	}
	return &resolved{image: img, creds: creds, ref: img.Reference(creds.LoginServer)}, nil
}

func buildRequest(img model.BackendImage, ref string, noCache bool) model.ImageBuildRequest {
	ctxDir := img.ContextDir
	if ctxDir == "" {
		ctxDir = "."
	}
	return model.ImageBuildRequest{
		ContextDir: filepath.Clean(ctxDir),
		Dockerfile: img.Dockerfile,
		Tags:       []string{ref},
		Platform:   img.Platform,
		NoCache:    noCache,
	}
}
