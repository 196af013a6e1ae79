// Package docker builds and pushes container images through the Docker
// Engine API.
package docker

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/registry"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/archive"
	"github.com/docker/docker/pkg/jsonmessage"
	"github.com/moby/patternmatcher/ignorefile"

	"github.com/securebackend/sbops/domain/model"
	"github.com/securebackend/sbops/internal/logging"
)

// engineAPI is the subset of the Docker client used here.
type engineAPI interface {
	ImageBuild(ctx context.Context, buildContext io.Reader, options types.ImageBuildOptions) (types.ImageBuildResponse, error)
	ImagePush(ctx context.Context, image string, options types.ImagePushOptions) (io.ReadCloser, error)
	Close() error
}

// Adapter implements model.ImagePort.
type Adapter struct {
	api engineAPI
	// Out receives the rendered progress stream. When nil, progress lines are
	// written to the context logger at debug level.
	Out io.Writer
}

var _ model.ImagePort = (*Adapter)(nil)

// New connects to the engine configured by DOCKER_HOST and friends.
func New() (*Adapter, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("docker client: %w", err)
	}
	return &Adapter{api: cli}, nil
}

// Close releases the engine connection.
func (a *Adapter) Close() error {
	if a == nil || a.api == nil {
		return nil
	}
	return a.api.Close()
}

// Build tars the context directory, honoring .dockerignore, and builds it
// with every tag in req.
func (a *Adapter) Build(ctx context.Context, req model.ImageBuildRequest) error {
	if len(req.Tags) == 0 {
		return fmt.Errorf("image build: at least one tag is required")
	}
	tags := make([]string, 0, len(req.Tags))
	for _, t := range req.Tags {
		ref, err := ParseReference(t)
		if err != nil {
			return err
		}
		tags = append(tags, ref.String())
	}
	contextDir := req.ContextDir
	if contextDir == "" {
		contextDir = "."
	}
	dockerfile := req.Dockerfile
	if dockerfile == "" {
		dockerfile = "Dockerfile"
	}
	if _, err := os.Stat(filepath.Join(contextDir, dockerfile)); err != nil {
		return fmt.Errorf("image build: %w", err)
	}
	excludes, err := buildExcludes(contextDir, dockerfile)
	if err != nil {
		return err
	}
	tar, err := archive.TarWithOptions(contextDir, &archive.TarOptions{ExcludePatterns: excludes})
	if err != nil {
		return fmt.Errorf("image build: archive context %s: %w", contextDir, err)
	}
	defer tar.Close()

	args := make(map[string]*string, len(req.BuildArgs))
	for k, v := range req.BuildArgs {
		args[k] = &v
	}
	logger := logging.FromContext(ctx)
	logger.Info(ctx, "building image", "context", contextDir, "dockerfile", dockerfile, "tags", strings.Join(tags, ","))
	resp, err := a.api.ImageBuild(ctx, tar, types.ImageBuildOptions{
		Tags:       tags,
		Dockerfile: dockerfile,
		BuildArgs:  args,
		Platform:   req.Platform,
		NoCache:    req.NoCache,
		Remove:     true,
	})
	if err != nil {
		return fmt.Errorf("image build: %w", err)
	}
	defer resp.Body.Close()
	if err := a.stream(ctx, resp.Body); err != nil {
		return fmt.Errorf("image build: %w", err)
	}
	return nil
}

// Push pushes ref using creds. The reference must point at creds.LoginServer.
func (a *Adapter) Push(ctx context.Context, ref string, creds *model.RegistryCredentials) error {
	parsed, err := ParseReference(ref)
	if err != nil {
		return err
	}
	opts := types.ImagePushOptions{}
	if creds != nil {
		if creds.LoginServer != "" && !strings.EqualFold(parsed.Registry, creds.LoginServer) {
			return fmt.Errorf("image push: %s does not belong to registry %s", parsed, creds.LoginServer)
		}
		auth, err := registry.EncodeAuthConfig(registry.AuthConfig{
			Username:      creds.Username,
			Password:      creds.Password,
			ServerAddress: creds.LoginServer,
		})
		if err != nil {
			return fmt.Errorf("image push: encode auth: %w", err)
		}
		opts.RegistryAuth = auth
	}
	logging.FromContext(ctx).Info(ctx, "pushing image", "ref", parsed.String())
	body, err := a.api.ImagePush(ctx, parsed.String(), opts)
	if err != nil {
		return fmt.Errorf("image push: %w", err)
	}
	defer body.Close()
	if err := a.stream(ctx, body); err != nil {
		return fmt.Errorf("image push: %w", err)
	}
	return nil
}

// stream renders a JSON message stream and returns the first stream error.
func (a *Adapter) stream(ctx context.Context, r io.Reader) error {
	out := a.Out
	if out == nil {
		lw := &logWriter{ctx: ctx, logger: logging.FromContext(ctx)}
		defer lw.Flush()
		out = lw
	}
	return jsonmessage.DisplayJSONMessagesStream(r, out, 0, false, nil)
}

// logWriter turns written bytes into debug log lines.
type logWriter struct {
	ctx    context.Context
	logger logging.Logger
	buf    []byte
}

func (w *logWriter) Write(p []byte) (int, error) {
	w.buf = append(w.buf, p...)
	for {
		i := strings.IndexByte(string(w.buf), '\n')
		if i < 0 {
			break
		}
		w.emit(string(w.buf[:i]))
		w.buf = w.buf[i+1:]
	}
	return len(p), nil
}

func (w *logWriter) Flush() {
	if len(w.buf) > 0 {
		w.emit(string(w.buf))
		w.buf = nil
	}
}

func (w *logWriter) emit(line string) {
	if line = strings.TrimSpace(line); line != "" {
		w.logger.Debug(w.ctx, "docker", "out", line)
	}
}

// buildExcludes reads the .dockerignore of dir. Like the docker CLI, the
// Dockerfile and .dockerignore always stay in the context.
func buildExcludes(dir, dockerfile string) ([]string, error) {
	f, err := os.Open(filepath.Join(dir, ".dockerignore"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read .dockerignore: %w", err)
	}
	defer f.Close()
	excludes, err := ignorefile.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("parse .dockerignore: %w", err)
	}
	if len(excludes) == 0 {
		return nil, nil
	}
	return append(excludes, "!.dockerignore", "!"+filepath.ToSlash(filepath.Clean(dockerfile))), nil
}
