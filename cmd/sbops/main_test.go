package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/securebackend/sbops/domain/model"
)

const sampleConfig = "../../config/sbopscfg/testdata/sbops.yml"

// execute runs the root command with args and returns stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append([]string{"--log-output", "none"}, args...))
	root.SetContext(context.Background())
	err := root.Execute()
	return out.String(), err
}

// copySample copies the sample config into a temp dir and returns its path.
func copySample(t *testing.T) string {
	t.Helper()
	data, err := os.ReadFile(sampleConfig)
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "sbops.yml")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestCommandTree(t *testing.T) {
	root := newRootCmd()
	paths := [][]string{
		{"version"},
		{"config", "show"}, {"config", "validate"},
		{"cluster", "provision"}, {"cluster", "deprovision"}, {"cluster", "status"},
		{"cluster", "install"}, {"cluster", "uninstall"}, {"cluster", "kubeconfig"}, {"cluster", "attach"},
		{"image", "build"}, {"image", "push"},
		{"backend", "deploy"}, {"backend", "wait"}, {"backend", "endpoint"}, {"backend", "status"}, {"backend", "destroy"},
		{"frontend", "deploy"}, {"frontend", "status"},
		{"dns", "deploy"}, {"dns", "destroy"},
		{"health"}, {"deploy"},
		{"runs", "list"}, {"runs", "show"},
		{"admin", "import"},
	}
	for _, p := range paths {
		c, rest, err := root.Find(p)
		if err != nil || len(rest) != 0 || c.Name() != p[len(p)-1] {
			t.Errorf("command %v not found (got %v, rest %v, err %v)", p, c.Name(), rest, err)
		}
	}
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(out, "sbops version latest") {
		t.Errorf("output = %q", out)
	}
}

func TestConfigValidateAndShow(t *testing.T) {
	path := copySample(t)

	out, err := execute(t, "--db-url", "file:"+path, "config", "validate")
	if err != nil {
		t.Fatalf("validate error = %v", err)
	}
	if !strings.Contains(out, "ok (environment prod, backend secure-backend target aks)") {
		t.Errorf("validate output = %q", out)
	}

	out, err = execute(t, "--env", "dev", "config", "show", "-f", path)
	if err != nil {
		t.Fatalf("show error = %v", err)
	}
	if !strings.Contains(out, "api-dev.example.com") || !strings.Contains(out, "environment: dev") {
		t.Errorf("show output does not reflect the dev overlay:\n%s", out)
	}

	if _, err := execute(t, "--env", "staging", "config", "validate", "-f", path); err == nil {
		t.Error("expected error for unknown environment")
	}
	if _, err := execute(t, "--db-url", "sqlite::memory:", "config", "show"); err == nil {
		t.Error("expected error for non-file db-url without -f")
	}
}

func TestBuildRepos(t *testing.T) {
	path := copySample(t)
	ctx := context.Background()

	root := newRootCmd()
	root.SetContext(ctx)
	_ = root.PersistentFlags().Set("db-url", "file:"+path)
	_ = root.PersistentFlags().Set("env", "dev")
	repos, err := buildRepos(root)
	if err != nil {
		t.Fatalf("buildRepos() error = %v", err)
	}
	b, err := selectBackend(ctx, root, repos.Backend)
	if err != nil {
		t.Fatal(err)
	}
	if b.Host != "api-dev.example.com" || b.Replicas != 1 || b.TLS.Mode != model.TLSModeSelfSigned {
		t.Errorf("dev overlay not applied: %+v", b)
	}
	again, _ := buildRepos(root)
	if again != repos {
		t.Error("repositories should be cached per db-url")
	}

	_ = root.PersistentFlags().Set("db-url", "postgres://x")
	if _, err := buildRepos(root); err == nil {
		t.Error("expected unsupported scheme error")
	}
}

func TestPick(t *testing.T) {
	type item struct{ name string }
	nameOf := func(i *item) string { return i.name }
	one := []*item{{"a"}}
	two := []*item{{"a"}, {"b"}}

	if got, err := pick(one, "", nameOf, "backend", "backend"); err != nil || got.name != "a" {
		t.Errorf("single item: %v %v", got, err)
	}
	if got, err := pick(two, "b", nameOf, "backend", "backend"); err != nil || got.name != "b" {
		t.Errorf("by name: %v %v", got, err)
	}
	if _, err := pick(two, "", nameOf, "backend", "backend"); err == nil || !strings.Contains(err.Error(), "--backend") {
		t.Errorf("ambiguous: %v", err)
	}
	if _, err := pick([]*item{}, "", nameOf, "backend", "backend"); err == nil {
		t.Error("expected error for empty list")
	}
	if _, err := pick(two, "c", nameOf, "backend", "backend"); err == nil {
		t.Error("expected not found")
	}
}

func TestAdminImportAndRuns(t *testing.T) {
	path := copySample(t)
	dbURL := "sqlite:" + filepath.Join(t.TempDir(), "sbops.db")

	out, err := execute(t, "--db-url", dbURL, "admin", "import", "-f", path)
	if err != nil {
		t.Fatalf("import error = %v", err)
	}
	if !strings.Contains(out, "5 created, 0 updated") {
		t.Errorf("import output = %q", out)
	}
	out, err = execute(t, "--db-url", dbURL, "admin", "import", "-f", path)
	if err != nil || !strings.Contains(out, "0 created, 5 updated") {
		t.Errorf("re-import: %q %v", out, err)
	}

	out, err = execute(t, "--db-url", dbURL, "runs", "list")
	if err != nil {
		t.Fatalf("runs list error = %v", err)
	}
	if !strings.HasPrefix(out, "ID") {
		t.Errorf("runs list output = %q", out)
	}
	if _, err := execute(t, "--db-url", dbURL, "runs", "show", "missing"); err == nil {
		t.Error("expected error for unknown run")
	}

	if _, err := execute(t, "--db-url", "file:"+path, "admin", "import", "-f", path); err == nil {
		t.Error("import into a file: db-url must fail")
	}
}

func TestDeployRejectsUnknownStep(t *testing.T) {
	_, err := execute(t, "deploy", "--skip", "image,bogus")
	if err == nil || !strings.Contains(err.Error(), "bogus") {
		t.Errorf("expected unknown step error, got %v", err)
	}
}

func TestHealthCommand(t *testing.T) {
	path := copySample(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(`{"status":"healthy"}`))
	}))
	defer srv.Close()

	out, err := execute(t, "--db-url", "file:"+path, "health", "--url", srv.URL+"/health", "--attempts", "1")
	if err != nil {
		t.Fatalf("health error = %v", err)
	}
	if !strings.Contains(out, `"healthy": true`) {
		t.Errorf("health output = %s", out)
	}

	_, err = execute(t, "--db-url", "file:"+path, "health", "--url", srv.URL+"/missing", "--attempts", "1", "--strict")
	if err == nil {
		t.Error("strict health check against 404 should fail")
	}
}
