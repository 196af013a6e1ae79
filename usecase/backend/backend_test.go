package backend

import (
	"context"
	"errors"
	"testing"
	"time"

	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes/fake"

	"github.com/securebackend/sbops/adapters/kube"
	"github.com/securebackend/sbops/domain/model"
	"github.com/securebackend/sbops/usecase/usecasetest"
)

func newUseCase(t *testing.T, mutate func(c *model.Cluster, b *model.Backend)) (*UseCase, *usecasetest.Ports, *fake.Clientset) {
	t.Helper()
	repos := usecasetest.Seed(t, mutate)
	ports := usecasetest.NewPorts()
	ports.Cluster.KubeconfigV = []byte("kubeconfig")
	cs := fake.NewSimpleClientset()
	return &UseCase{
		Repos:        &Repos{Backend: repos.Backend, Cluster: repos.Cluster, Registry: repos.Registry},
		ClusterPort:  ports.Cluster,
		RegistryPort: ports.Registry,
		WebAppPort:   ports.WebApp,
		KubeClient: func(_ context.Context, kubeconfig []byte) (*kube.Client, error) {
			if string(kubeconfig) != "kubeconfig" {
				return nil, errors.New("unexpected kubeconfig")
			}
			return kube.NewClientFromClientset(cs), nil
		},
	}, ports, cs
}

func TestDeployAKS(t *testing.T) {
	ctx := context.Background()
	u, _, cs := newUseCase(t, nil)

	out, err := u.Deploy(ctx, &DeployInput{BackendID: usecasetest.BackendID, Tag: "v2"})
	if err != nil {
		t.Fatalf("Deploy() error = %v", err)
	}
	if out.Image != "sbopsacr.azurecr.io/secure-backend:v2" {
		t.Errorf("Image = %q", out.Image)
	}
	want := map[string]bool{"Deployment/secure-backend": false, "Service/secure-backend": false, "Ingress/secure-backend": false}
	for _, a := range out.Applied {
		if _, ok := want[a]; ok {
			want[a] = true
		}
	}
	for k, seen := range want {
		if !seen {
			t.Errorf("%s not applied: %v", k, out.Applied)
		}
	}

	dep, err := cs.AppsV1().Deployments("secure-backend").Get(ctx, "secure-backend", metav1.GetOptions{})
	if err != nil {
		t.Fatalf("deployment not created: %v", err)
	}
	if img := dep.Spec.Template.Spec.Containers[0].Image; img != out.Image {
		t.Errorf("container image = %q", img)
	}
	if _, err := cs.CoreV1().Secrets("secure-backend").Get(ctx, "secure-backend-tls", metav1.GetOptions{}); err == nil {
		t.Error("cert-manager mode must not create the TLS secret")
	}

	// Re-deploy updates in place.
	if _, err := u.Deploy(ctx, &DeployInput{BackendID: usecasetest.BackendID}); err != nil {
		t.Fatalf("second Deploy() error = %v", err)
	}
}

func TestDeployAKSSelfSigned(t *testing.T) {
	ctx := context.Background()
	u, _, cs := newUseCase(t, func(_ *model.Cluster, b *model.Backend) {
		b.TLS = model.BackendTLS{Mode: model.TLSModeSelfSigned, ValidityDays: 30}
	})
	if _, err := u.Deploy(ctx, &DeployInput{BackendID: usecasetest.BackendID}); err != nil {
		t.Fatalf("Deploy() error = %v", err)
	}
	sec, err := cs.CoreV1().Secrets("secure-backend").Get(ctx, "secure-backend-tls", metav1.GetOptions{})
	if err != nil {
		t.Fatalf("TLS secret not created: %v", err)
	}
	if len(sec.Data[corev1.TLSCertKey]) == 0 || len(sec.Data[corev1.TLSPrivateKeyKey]) == 0 {
		t.Error("TLS secret is empty")
	}
}

func TestDeployWebApp(t *testing.T) {
	ctx := context.Background()
	u, ports, _ := newUseCase(t, func(_ *model.Cluster, b *model.Backend) {
		b.Target = model.BackendTargetWebApp
		b.WebApp = &model.WebAppRef{Name: "sbops-api", ResourceGroup: "rg-web"}
		b.Env = map[string]string{"LOG_LEVEL": "info"}
	})
	out, err := u.Deploy(ctx, &DeployInput{BackendID: usecasetest.BackendID})
	if err != nil {
		t.Fatalf("Deploy() error = %v", err)
	}
	if out.WebApp == nil || out.WebApp.DefaultHostName != "sbops-api.azurewebsites.net" {
		t.Errorf("unexpected web app status %+v", out.WebApp)
	}
	app := ports.WebApp.Deployed[0]
	if app.Image != "sbopsacr.azurecr.io/secure-backend:v1" || app.ProviderID != usecasetest.ProviderID || app.Port != 8000 {
		t.Errorf("unexpected web app %+v", app)
	}
	if app.AppSettings["API_TOKEN"] != "demo-secure-token" || app.AppSettings["LOG_LEVEL"] != "info" {
		t.Errorf("unexpected app settings %+v", app.AppSettings)
	}

	if err := u.Wait(ctx, &WaitInput{BackendID: usecasetest.BackendID}); err != nil {
		t.Errorf("Wait() for web app should return immediately, got %v", err)
	}
	ep, err := u.Endpoint(ctx, &EndpointInput{BackendID: usecasetest.BackendID})
	if err != nil || ep.URL != "https://api.example.com" || ep.Address != "sbops-api.azurewebsites.net" {
		t.Errorf("Endpoint() = %+v, %v", ep, err)
	}
	d, err := u.Destroy(ctx, &DestroyInput{BackendID: usecasetest.BackendID})
	if err != nil || !d.Skipped {
		t.Errorf("Destroy() = %+v, %v", d, err)
	}
}

func TestDeployWebAppRequiresName(t *testing.T) {
	u, _, _ := newUseCase(t, func(_ *model.Cluster, b *model.Backend) { b.Target = model.BackendTargetWebApp })
	if _, err := u.Deploy(context.Background(), &DeployInput{BackendID: usecasetest.BackendID}); err == nil {
		t.Error("expected error without web app name")
	}
}

func TestWait(t *testing.T) {
	ctx := context.Background()
	u, _, cs := newUseCase(t, nil)

	err := u.Wait(ctx, &WaitInput{BackendID: usecasetest.BackendID, Interval: 5 * time.Millisecond, Timeout: 50 * time.Millisecond})
	if !errors.Is(err, model.ErrNotAvailable) {
		t.Fatalf("expected ErrNotAvailable, got %v", err)
	}

	_, err = cs.AppsV1().Deployments("secure-backend").Create(ctx, &appsv1.Deployment{
		ObjectMeta: metav1.ObjectMeta{Name: "secure-backend", Namespace: "secure-backend"},
		Status: appsv1.DeploymentStatus{Conditions: []appsv1.DeploymentCondition{
			{Type: appsv1.DeploymentAvailable, Status: corev1.ConditionTrue},
		}},
	}, metav1.CreateOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if err := u.Wait(ctx, &WaitInput{BackendID: usecasetest.BackendID, Interval: 5 * time.Millisecond}); err != nil {
		t.Errorf("Wait() error = %v", err)
	}
}

func TestEndpoint(t *testing.T) {
	ctx := context.Background()
	u, _, cs := newUseCase(t, nil)

	_, err := u.Endpoint(ctx, &EndpointInput{BackendID: usecasetest.BackendID, Interval: 5 * time.Millisecond, Timeout: 30 * time.Millisecond})
	if !errors.Is(err, model.ErrIngressIPTimeout) {
		t.Fatalf("expected ErrIngressIPTimeout, got %v", err)
	}

	_, err = cs.CoreV1().Services("ingress-nginx").Create(ctx, &corev1.Service{
		ObjectMeta: metav1.ObjectMeta{Name: "ingress-nginx-controller", Namespace: "ingress-nginx"},
		Spec:       corev1.ServiceSpec{Type: corev1.ServiceTypeLoadBalancer},
		Status: corev1.ServiceStatus{LoadBalancer: corev1.LoadBalancerStatus{
			Ingress: []corev1.LoadBalancerIngress{{IP: "20.1.2.3"}},
		}},
	}, metav1.CreateOptions{})
	if err != nil {
		t.Fatal(err)
	}
	out, err := u.Endpoint(ctx, &EndpointInput{BackendID: usecasetest.BackendID})
	if err != nil {
		t.Fatalf("Endpoint() error = %v", err)
	}
	if out.Address != "20.1.2.3" || out.Host != "api.example.com" || out.URL != "https://api.example.com" {
		t.Errorf("unexpected endpoint %+v", out)
	}
}

func TestStatusAndDestroy(t *testing.T) {
	ctx := context.Background()
	u, _, cs := newUseCase(t, nil)
	if _, err := u.Deploy(ctx, &DeployInput{BackendID: usecasetest.BackendID}); err != nil {
		t.Fatalf("Deploy() error = %v", err)
	}

	st, err := u.Status(ctx, &StatusInput{BackendID: usecasetest.BackendID})
	if err != nil {
		t.Fatalf("Status() error = %v", err)
	}
	if st.Kube == nil || st.Kube.Deployment != "secure-backend" || st.Kube.Replicas != 2 || st.Kube.IngressHost != "api.example.com" {
		t.Errorf("unexpected status %+v", st.Kube)
	}

	out, err := u.Destroy(ctx, &DestroyInput{BackendID: usecasetest.BackendID, DeleteNamespace: true})
	if err != nil {
		t.Fatalf("Destroy() error = %v", err)
	}
	if out.Deleted == 0 || !out.NamespaceDeleted {
		t.Errorf("unexpected destroy output %+v", out)
	}
	if _, err := cs.AppsV1().Deployments("secure-backend").Get(ctx, "secure-backend", metav1.GetOptions{}); err == nil {
		t.Error("deployment still present after destroy")
	}
}

func TestLoadErrors(t *testing.T) {
	u, ports, _ := newUseCase(t, nil)
	ctx := context.Background()
	if _, err := u.Deploy(ctx, &DeployInput{}); err == nil {
		t.Error("expected error without BackendID")
	}
	if _, err := u.Status(ctx, &StatusInput{BackendID: "missing"}); !errors.Is(err, model.ErrBackendNotFound) {
		t.Errorf("expected ErrBackendNotFound, got %v", err)
	}
	ports.Cluster.Err["kubeconfig"] = errors.New("forbidden")
	if _, err := u.Status(ctx, &StatusInput{BackendID: usecasetest.BackendID}); err == nil {
		t.Error("expected kubeconfig error")
	}
}
