package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/keyvault/azsecrets"
	"github.com/gin-gonic/gin"
)

const testToken = "test-token"

var fixedNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func newTestRouter(t *testing.T, mutate func(*Config)) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	cfg := Config{
		Token: testToken,
		Now:   func() time.Time { return fixedNow },
	}
	if mutate != nil {
		mutate(&cfg)
	}
	r, err := NewRouter(cfg)
	if err != nil {
		t.Fatalf("NewRouter() error = %v", err)
	}
	return r
}

func do(r http.Handler, method, path, body string, header map[string]string) *httptest.ResponseRecorder {
	var rd *bytes.Reader
	if body != "" {
		rd = bytes.NewReader([]byte(body))
	} else {
		rd = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestNewRouterRequiresToken(t *testing.T) {
	if _, err := NewRouter(Config{}); err == nil {
		t.Fatal("expected error without token")
	}
}

func TestHealth(t *testing.T) {
	r := newTestRouter(t, nil)
	w := do(r, http.MethodGet, "/health", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var got HealthResponse
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	want := HealthResponse{Status: "healthy", Timestamp: "2024-05-01T12:00:00Z", Service: DefaultServiceName}
	if got != want {
		t.Errorf("health = %+v, want %+v", got, want)
	}
	if w.Header().Get(HeaderRequestID) == "" {
		t.Error("missing request id header")
	}

	r = newTestRouter(t, func(c *Config) { c.ServiceName = "custom" })
	w = do(r, http.MethodGet, "/health", "", map[string]string{HeaderRequestID: "req-1"})
	if !strings.Contains(w.Body.String(), `"service":"custom"`) {
		t.Errorf("body = %s", w.Body.String())
	}
	if got := w.Header().Get(HeaderRequestID); got != "req-1" {
		t.Errorf("request id = %q, want req-1", got)
	}
}

func TestProcess(t *testing.T) {
	r := newTestRouter(t, nil)
	body := `{"firstName":"Ada","lastName":"Lovelace","textData":"héllo"}`
	w := do(r, http.MethodPost, "/process", body, map[string]string{"Authorization": "Bearer " + testToken})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", w.Code, w.Body.String())
	}
	var got ProcessResponse
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Message != "Hello Ada Lovelace. Received: héllo" {
		t.Errorf("message = %q", got.Message)
	}
	if !got.AuthenticationAnalysis.Authenticated || got.AuthenticationAnalysis.Service != "Private AKS Backend" {
		t.Errorf("analysis = %+v", got.AuthenticationAnalysis)
	}
	if got.ProcessingDetails.DataLength != 5 {
		t.Errorf("data_length = %d, want 5", got.ProcessingDetails.DataLength)
	}
	if got.ProcessingDetails.ProcessedAt != "2024-05-01T12:00:00Z" {
		t.Errorf("processed_at = %q", got.ProcessingDetails.ProcessedAt)
	}
}

func TestProcessEmptyStringsAccepted(t *testing.T) {
	r := newTestRouter(t, nil)
	body := `{"firstName":"","lastName":"","textData":""}`
	w := do(r, http.MethodPost, "/process", body, map[string]string{"Authorization": "Bearer " + testToken})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), `"data_length":0`) {
		t.Errorf("body = %s", w.Body.String())
	}
}

func TestProcessAuth(t *testing.T) {
	r := newTestRouter(t, nil)
	body := `{"firstName":"a","lastName":"b","textData":"c"}`
	tests := []struct {
		name   string
		header map[string]string
		status int
		detail string
	}{
		{name: "missing header", status: http.StatusForbidden, detail: "Not authenticated"},
		{name: "basic scheme", header: map[string]string{"Authorization": "Basic abc"}, status: http.StatusForbidden, detail: "Not authenticated"},
		{name: "empty bearer", header: map[string]string{"Authorization": "Bearer "}, status: http.StatusForbidden, detail: "Not authenticated"},
		{name: "wrong token", header: map[string]string{"Authorization": "Bearer nope"}, status: http.StatusUnauthorized, detail: "Invalid token"},
		{name: "extra space before token", header: map[string]string{"Authorization": "Bearer  " + testToken}, status: http.StatusUnauthorized, detail: "Invalid token"},
		{name: "lowercase scheme", header: map[string]string{"Authorization": "bearer " + testToken}, status: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(r, http.MethodPost, "/process", body, tt.header)
			if w.Code != tt.status {
				t.Fatalf("status = %d, want %d (%s)", w.Code, tt.status, w.Body.String())
			}
			if tt.detail != "" {
				var got map[string]string
				if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
					t.Fatalf("unmarshal: %v", err)
				}
				if got["detail"] != tt.detail {
					t.Errorf("detail = %q, want %q", got["detail"], tt.detail)
				}
			}
		})
	}
}

func TestProcessInvalidBody(t *testing.T) {
	r := newTestRouter(t, nil)
	auth := map[string]string{"Authorization": "Bearer " + testToken}
	for _, body := range []string{
		`{"firstName":"a","lastName":"b"}`,
		`{"firstName":"a","lastName":"b","textData":42}`,
		`not json`,
	} {
		w := do(r, http.MethodPost, "/process", body, auth)
		if w.Code != http.StatusUnprocessableEntity {
			t.Errorf("body %s: status = %d, want 422", body, w.Code)
		}
	}
	// authentication is checked before the body
	w := do(r, http.MethodPost, "/process", `{}`, nil)
	if w.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", w.Code)
	}
}

func TestOriginAllowed(t *testing.T) {
	tests := []struct {
		origin string
		want   bool
	}{
		{"https://frontend-webapp-container.azurewebsites.net", true},
		{"https://my-app.azurewebsites.net", true},
		{"http://my-app.azurewebsites.net", false},
		{"https://azurewebsites.net", false},
		{"https://evil.com/.azurewebsites.net", false},
		{"https://a.azurewebsites.net.evil.com", false},
		{"https://example.com", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := originAllowed(tt.origin, DefaultAllowOrigins); got != tt.want {
			t.Errorf("originAllowed(%q) = %v, want %v", tt.origin, got, tt.want)
		}
	}
	if !originAllowed("http://localhost:3000", []string{"*"}) {
		t.Error("wildcard should allow any origin")
	}
}

func TestCORS(t *testing.T) {
	r := newTestRouter(t, nil)
	origin := "https://my-app.azurewebsites.net"

	w := do(r, http.MethodOptions, "/process", "", map[string]string{
		"Origin":                         origin,
		"Access-Control-Request-Method":  "POST",
		"Access-Control-Request-Headers": "authorization,content-type",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("preflight status = %d", w.Code)
	}
	h := w.Header()
	if h.Get("Access-Control-Allow-Origin") != origin || h.Get("Access-Control-Allow-Credentials") != "true" {
		t.Errorf("headers = %v", h)
	}
	if h.Get("Access-Control-Allow-Methods") != "GET, POST, OPTIONS" || h.Get("Access-Control-Allow-Headers") != "authorization,content-type" {
		t.Errorf("headers = %v", h)
	}

	w = do(r, http.MethodOptions, "/process", "", map[string]string{
		"Origin":                        "https://example.com",
		"Access-Control-Request-Method": "POST",
	})
	if w.Code != http.StatusBadRequest || !strings.Contains(w.Body.String(), "Disallowed CORS origin") {
		t.Errorf("foreign preflight: status = %d body = %s", w.Code, w.Body.String())
	}
	if w.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Error("foreign preflight must not be allowed")
	}

	w = do(r, http.MethodGet, "/health", "", map[string]string{"Origin": "https://example.com"})
	if w.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Error("foreign origin must not be allowed")
	}
	w = do(r, http.MethodGet, "/health", "", map[string]string{"Origin": origin})
	if w.Header().Get("Access-Control-Allow-Origin") != origin {
		t.Error("allowed origin missing on simple request")
	}
}

func TestRateLimit(t *testing.T) {
	r := newTestRouter(t, func(c *Config) {
		c.RateLimit = 0.001
		c.RateBurst = 2
	})
	for i := 0; i < 2; i++ {
		if w := do(r, http.MethodGet, "/health", "", nil); w.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d", i, w.Code)
		}
	}
	if w := do(r, http.MethodGet, "/health", "", nil); w.Code != http.StatusTooManyRequests {
		t.Errorf("status = %d, want 429", w.Code)
	}
}

func TestRateLimiterSweep(t *testing.T) {
	rl := newRateLimiter(1000, 1)
	rl.allow("a")
	time.Sleep(5 * time.Millisecond)
	rl.sweep()
	if len(rl.limiters) != 0 {
		t.Errorf("limiters = %d, want 0", len(rl.limiters))
	}
}

func TestMetricsEndpoint(t *testing.T) {
	r := newTestRouter(t, nil)
	do(r, http.MethodGet, "/health", "", nil)
	do(r, http.MethodPost, "/process", `{}`, map[string]string{"Authorization": "Bearer nope"})

	w := do(r, http.MethodGet, "/metrics", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	body := w.Body.String()
	for _, s := range []string{
		`secure_backend_http_requests_total{method="GET",path="/health",status="200"} 1`,
		`secure_backend_auth_failures_total{reason="invalid"} 1`,
		`go_goroutines`,
	} {
		if !strings.Contains(body, s) {
			t.Errorf("metrics missing %q", s)
		}
	}
}

func TestRecovery(t *testing.T) {
	r := newTestRouter(t, nil)
	r.GET("/panic", func(*gin.Context) { panic("boom") })
	if w := do(r, http.MethodGet, "/panic", "", nil); w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
}

type fakeSecrets struct {
	value *string
	err   error
	calls []string
}

func (f *fakeSecrets) GetSecret(_ context.Context, name, _ string, _ *azsecrets.GetSecretOptions) (azsecrets.GetSecretResponse, error) {
	f.calls = append(f.calls, name)
	var res azsecrets.GetSecretResponse
	if f.err != nil {
		return res, f.err
	}
	res.Value = f.value
	return res, nil
}

func TestTokenSourceResolve(t *testing.T) {
	ctx := context.Background()
	secret := " vault-token\n"
	newClient := func(f *fakeSecrets) func(string) (SecretGetter, error) {
		return func(string) (SecretGetter, error) { return f, nil }
	}

	tests := []struct {
		name    string
		src     TokenSource
		fake    *fakeSecrets
		want    string
		wantErr bool
	}{
		{name: "explicit", src: TokenSource{Token: "env-token", VaultURL: "https://kv", SecretName: "s"}, fake: &fakeSecrets{}, want: "env-token"},
		{name: "default", src: TokenSource{}, fake: &fakeSecrets{}, want: DefaultToken},
		{name: "vault", src: TokenSource{VaultURL: "https://kv", SecretName: "api-token"}, fake: &fakeSecrets{value: &secret}, want: "vault-token"},
		{name: "vault error", src: TokenSource{VaultURL: "https://kv", SecretName: "api-token"}, fake: &fakeSecrets{err: errors.New("denied")}, wantErr: true},
		{name: "empty secret", src: TokenSource{VaultURL: "https://kv", SecretName: "api-token"}, fake: &fakeSecrets{}, wantErr: true},
		{name: "half configured", src: TokenSource{VaultURL: "https://kv"}, fake: &fakeSecrets{}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.src.Resolve(ctx, newClient(tt.fake))
			if (err != nil) != tt.wantErr {
				t.Fatalf("Resolve() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("Resolve() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTokenSourceFromEnv(t *testing.T) {
	t.Setenv(EnvAPIToken, " tok ")
	t.Setenv(EnvKeyVaultURL, "https://kv.vault.azure.net/")
	t.Setenv(EnvAPITokenSecretName, "api-token")
	got := TokenSourceFromEnv()
	want := TokenSource{Token: "tok", VaultURL: "https://kv.vault.azure.net/", SecretName: "api-token"}
	if got != want {
		t.Errorf("TokenSourceFromEnv() = %+v, want %+v", got, want)
	}
}
