package kube

import (
	"encoding/json"
	"testing"

	corev1 "k8s.io/api/core/v1"

	"github.com/securebackend/sbops/domain/model"
	"github.com/securebackend/sbops/internal/tlsutil"
)

func testBackend(mode model.TLSMode) *model.Backend {
	return &model.Backend{
		Name:       "secure-backend",
		Namespace:  "secure-backend",
		Replicas:   2,
		Port:       8000,
		HealthPath: "/health",
		Host:       "api.example.com",
		Token:      "demo-secure-token",
		TLS:        model.BackendTLS{Mode: mode},
		Env:        map[string]string{"SERVICE_NAME": "secure-backend-aks", "PORT": "9999"},
		Resources:  model.BackendResources{CPURequest: "100m", MemoryRequest: "128Mi", CPULimit: "500m", MemoryLimit: "512Mi"},
	}
}

func TestBuildBackendObjects_CertManager(t *testing.T) {
	cluster := &model.Cluster{CertManager: &model.ClusterCertManager{Enabled: true, IssuerName: "letsencrypt-staging"}}
	objs, err := BuildBackendObjects(&BackendManifestInput{
		Backend:  testBackend(model.TLSModeCertManager),
		Cluster:  cluster,
		Image:    "securebackendacr.azurecr.io/secure-backend:1.0.0",
		Registry: &model.RegistryCredentials{LoginServer: "securebackendacr.azurecr.io", Username: "u", Password: "p"},
	})
	if err != nil {
		t.Fatalf("BuildBackendObjects: %v", err)
	}
	if got := len(objs.Objects()); got != 6 {
		t.Errorf("Objects() = %d, want 6 (no TLS secret in cert-manager mode)", got)
	}
	if objs.TLSSecret != nil {
		t.Error("cert-manager mode must not render a TLS secret")
	}
	if objs.PullSecret.Name != "securebackendacr-acr-credentials" || objs.PullSecret.Type != corev1.SecretTypeDockerConfigJson {
		t.Errorf("unexpected pull secret: %s %s", objs.PullSecret.Name, objs.PullSecret.Type)
	}

	pod := objs.Deployment.Spec.Template.Spec
	if len(pod.ImagePullSecrets) != 1 || pod.ImagePullSecrets[0].Name != objs.PullSecret.Name {
		t.Errorf("imagePullSecrets = %v", pod.ImagePullSecrets)
	}
	ctn := pod.Containers[0]
	if ctn.ReadinessProbe.HTTPGet.Path != "/health" || ctn.ReadinessProbe.HTTPGet.Port.IntVal != 8000 {
		t.Errorf("unexpected readiness probe: %+v", ctn.ReadinessProbe.HTTPGet)
	}
	if ctn.Resources.Limits.Memory().String() != "512Mi" {
		t.Errorf("memory limit = %s", ctn.Resources.Limits.Memory())
	}
	var port, token, service string
	for _, e := range ctn.Env {
		switch e.Name {
		case "PORT":
			port = e.Value
		case TokenEnvName:
			token = e.ValueFrom.SecretKeyRef.Name
		case "SERVICE_NAME":
			service = e.Value
		}
	}
	if port != "8000" || token != "secure-backend-secrets" || service != "secure-backend-aks" {
		t.Errorf("env PORT=%q token=%q SERVICE_NAME=%q", port, token, service)
	}

	ing := objs.Ingress
	if ing.Annotations[AnnotationCertManagerIssuer] != "letsencrypt-staging" {
		t.Errorf("issuer annotation = %q", ing.Annotations[AnnotationCertManagerIssuer])
	}
	if ing.Annotations[AnnotationNginxForceSSL] != "true" {
		t.Error("force-ssl-redirect should be set")
	}
	if len(ing.Spec.TLS) != 1 || ing.Spec.TLS[0].SecretName != "secure-backend-tls" || ing.Spec.TLS[0].Hosts[0] != "api.example.com" {
		t.Errorf("unexpected ingress tls: %+v", ing.Spec.TLS)
	}
	if *ing.Spec.IngressClassName != IngressClassNginx {
		t.Errorf("ingress class = %q", *ing.Spec.IngressClassName)
	}
	for _, o := range objs.Objects() {
		if o.GetObjectKind().GroupVersionKind().Kind == "" {
			t.Errorf("%T has no kind", o)
		}
	}
}

func TestBuildBackendObjects_SelfSigned(t *testing.T) {
	kp, err := tlsutil.GenerateSelfSigned(tlsutil.SelfSignedOptions{Host: "api.example.com"})
	if err != nil {
		t.Fatal(err)
	}
	objs, err := BuildBackendObjects(&BackendManifestInput{
		Backend: testBackend(model.TLSModeSelfSigned),
		Image:   "secure-backend:dev",
		TLS:     kp,
	})
	if err != nil {
		t.Fatalf("BuildBackendObjects: %v", err)
	}
	if objs.TLSSecret == nil || objs.TLSSecret.Type != corev1.SecretTypeTLS {
		t.Fatalf("expected kubernetes.io/tls secret, got %+v", objs.TLSSecret)
	}
	if objs.PullSecret != nil {
		t.Error("no registry credentials means no pull secret")
	}
	if _, ok := objs.Ingress.Annotations[AnnotationCertManagerIssuer]; ok {
		t.Error("self-signed mode must not reference an issuer")
	}

	if _, err := BuildBackendObjects(&BackendManifestInput{Backend: testBackend(model.TLSModeSelfSigned), Image: "x"}); err == nil {
		t.Error("self-signed mode without key pair should fail")
	}
}

func TestBuildBackendObjects_NoTLS(t *testing.T) {
	objs, err := BuildBackendObjects(&BackendManifestInput{Backend: testBackend(model.TLSModeNone), Image: "x"})
	if err != nil {
		t.Fatal(err)
	}
	if len(objs.Ingress.Spec.TLS) != 0 || objs.Ingress.Annotations[AnnotationNginxForceSSL] != "" {
		t.Errorf("plain http ingress expected: %+v", objs.Ingress)
	}
}

func TestBuildBackendObjects_InvalidQuantity(t *testing.T) {
	b := testBackend(model.TLSModeNone)
	b.Resources.CPULimit = "lots"
	if _, err := BuildBackendObjects(&BackendManifestInput{Backend: b, Image: "x"}); err == nil {
		t.Fatal("expected error for invalid quantity")
	}
}

func TestDockerConfigJSON(t *testing.T) {
	data, err := DockerConfigJSON(&model.RegistryCredentials{LoginServer: "r.azurecr.io", Username: "user", Password: "pass"})
	if err != nil {
		t.Fatal(err)
	}
	var doc struct {
		Auths map[string]struct {
			Auth string `json:"auth"`
		} `json:"auths"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatal(err)
	}
	if doc.Auths["r.azurecr.io"].Auth != "dXNlcjpwYXNz" {
		t.Errorf("auth = %q", doc.Auths["r.azurecr.io"].Auth)
	}
	if _, err := DockerConfigJSON(&model.RegistryCredentials{}); err == nil {
		t.Error("empty login server should fail")
	}
}

func TestClusterIssuerObject(t *testing.T) {
	cm := CertManagerSettings(&model.Cluster{CertManager: &model.ClusterCertManager{Enabled: true, Email: "ops@example.com"}})
	u := ClusterIssuerObject(&cm)
	if u.GetKind() != "ClusterIssuer" || u.GetName() != "letsencrypt-prod" {
		t.Errorf("unexpected issuer %s/%s", u.GetKind(), u.GetName())
	}
	acme := u.Object["spec"].(map[string]any)["acme"].(map[string]any)
	if acme["email"] != "ops@example.com" || acme["server"] != "https://acme-v02.api.letsencrypt.org/directory" {
		t.Errorf("unexpected acme block: %v", acme)
	}
}
