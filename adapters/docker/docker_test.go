package docker

import (
	"archive/tar"
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/pkg/archive"

	"github.com/securebackend/sbops/domain/model"
)

type fakeEngine struct {
	buildOpts types.ImageBuildOptions
	pushRef   string
	pushOpts  types.ImagePushOptions
	body      string
}

func (f *fakeEngine) ImageBuild(_ context.Context, r io.Reader, o types.ImageBuildOptions) (types.ImageBuildResponse, error) {
	_, _ = io.Copy(io.Discard, r)
	f.buildOpts = o
	return types.ImageBuildResponse{Body: io.NopCloser(strings.NewReader(f.body))}, nil
}

func (f *fakeEngine) ImagePush(_ context.Context, ref string, o types.ImagePushOptions) (io.ReadCloser, error) {
	f.pushRef = ref
	f.pushOpts = o
	return io.NopCloser(strings.NewReader(f.body)), nil
}

func (f *fakeEngine) Close() error { return nil }

func writeContext(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "Dockerfile"), []byte("FROM scratch\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, ".dockerignore"), []byte("# comment\n.git\n\n*.log\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	return dir
}

func TestBuild(t *testing.T) {
	eng := &fakeEngine{body: `{"stream":"Step 1/1 : FROM scratch\n"}` + "\n"}
	var out bytes.Buffer
	a := &Adapter{api: eng, Out: &out}
	err := a.Build(context.Background(), model.ImageBuildRequest{
		ContextDir: writeContext(t),
		Tags:       []string{"securebackendacr.azurecr.io/secure-backend:1.0.0", "secure-backend"},
		BuildArgs:  map[string]string{"VERSION": "1.0.0"},
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	want := []string{"securebackendacr.azurecr.io/secure-backend:1.0.0", "docker.io/library/secure-backend:latest"}
	if strings.Join(eng.buildOpts.Tags, ",") != strings.Join(want, ",") {
		t.Errorf("tags = %v, want %v", eng.buildOpts.Tags, want)
	}
	if eng.buildOpts.Dockerfile != "Dockerfile" || *eng.buildOpts.BuildArgs["VERSION"] != "1.0.0" {
		t.Errorf("unexpected options: %+v", eng.buildOpts)
	}
	if !strings.Contains(out.String(), "Step 1/1") {
		t.Errorf("progress not rendered: %q", out.String())
	}
}

func TestBuild_StreamError(t *testing.T) {
	eng := &fakeEngine{body: `{"errorDetail":{"message":"failed to solve"},"error":"failed to solve"}` + "\n"}
	a := &Adapter{api: eng, Out: io.Discard}
	err := a.Build(context.Background(), model.ImageBuildRequest{ContextDir: writeContext(t), Tags: []string{"x:1"}})
	if err == nil || !strings.Contains(err.Error(), "failed to solve") {
		t.Fatalf("expected stream error, got %v", err)
	}
}

func TestBuild_MissingDockerfile(t *testing.T) {
	a := &Adapter{api: &fakeEngine{}}
	err := a.Build(context.Background(), model.ImageBuildRequest{ContextDir: t.TempDir(), Tags: []string{"x:1"}})
	if err == nil {
		t.Fatal("expected error for missing Dockerfile")
	}
}

func TestPush(t *testing.T) {
	eng := &fakeEngine{body: `{"status":"Pushed","id":"abc"}` + "\n"}
	a := &Adapter{api: eng}
	creds := &model.RegistryCredentials{LoginServer: "securebackendacr.azurecr.io", Username: "acr", Password: "secret"}
	if err := a.Push(context.Background(), "securebackendacr.azurecr.io/secure-backend:1.0.0", creds); err != nil {
		t.Fatalf("Push: %v", err)
	}
	raw, err := base64.URLEncoding.DecodeString(eng.pushOpts.RegistryAuth)
	if err != nil {
		t.Fatalf("decode auth: %v", err)
	}
	var auth map[string]string
	if err := json.Unmarshal(raw, &auth); err != nil {
		t.Fatal(err)
	}
	if auth["username"] != "acr" || auth["password"] != "secret" {
		t.Errorf("auth = %v", auth)
	}

	if err := a.Push(context.Background(), "other.azurecr.io/secure-backend:1.0.0", creds); err == nil {
		t.Error("push to a foreign registry should fail")
	}
}

func TestParseReference(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "securebackendacr.azurecr.io/secure-backend:1.0.0", want: "securebackendacr.azurecr.io/secure-backend:1.0.0"},
		{in: "securebackendacr.azurecr.io/secure-backend", want: "securebackendacr.azurecr.io/secure-backend:latest"},
		{in: "nginx", want: "docker.io/library/nginx:latest"},
		{in: "UPPER/case", wantErr: true},
		{in: "r.io/x@sha256:" + strings.Repeat("a", 64), wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParseReference(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseReference(%q) error = %v", tt.in, err)
			continue
		}
		if !tt.wantErr && got.String() != tt.want {
			t.Errorf("ParseReference(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestBuildExcludes(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"Dockerfile":         "FROM scratch\n",
		".dockerignore":      "# comment\n/secrets\n*.log\nDockerfile\n.dockerignore\n",
		"main.go":            "package main\n",
		"debug.log":          "x",
		"secrets/key.pem":    "key",
		"pkg/secrets/ok.txt": "keep",
	}
	for name, body := range files {
		p := filepath.Join(dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	excludes, err := buildExcludes(dir, "Dockerfile")
	if err != nil {
		t.Fatalf("buildExcludes() error = %v", err)
	}
	rc, err := archive.TarWithOptions(dir, &archive.TarOptions{ExcludePatterns: excludes})
	if err != nil {
		t.Fatal(err)
	}
	defer rc.Close()

	got := map[string]bool{}
	tr := tar.NewReader(rc)
	for {
		h, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatal(err)
		}
		got[strings.TrimSuffix(h.Name, "/")] = true
	}
	for _, name := range []string{"Dockerfile", ".dockerignore", "main.go", "pkg/secrets/ok.txt"} {
		if !got[name] {
			t.Errorf("%s missing from context: %v", name, got)
		}
	}
	for _, name := range []string{"secrets/key.pem", "debug.log"} {
		if got[name] {
			t.Errorf("%s should be excluded", name)
		}
	}

	if ex, err := buildExcludes(t.TempDir(), "Dockerfile"); err != nil || ex != nil {
		t.Errorf("no .dockerignore: excludes = %v, err = %v", ex, err)
	}
}
