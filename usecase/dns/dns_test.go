package dns

import (
	"context"
	"errors"
	"testing"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes/fake"

	"github.com/securebackend/sbops/adapters/kube"
	"github.com/securebackend/sbops/domain/model"
	"github.com/securebackend/sbops/usecase/usecasetest"
)

func newUseCase(t *testing.T, objs ...*corev1.Service) (*UseCase, *usecasetest.Ports) {
	t.Helper()
	repos := usecasetest.Seed(t, func(_ *model.Cluster, b *model.Backend) { b.DNSZone = "example.com" })
	ports := usecasetest.NewPorts()
	cs := fake.NewSimpleClientset()
	for _, o := range objs {
		if _, err := cs.CoreV1().Services(o.Namespace).Create(context.Background(), o, metav1.CreateOptions{}); err != nil {
			t.Fatal(err)
		}
	}
	return &UseCase{
		Repos:       &Repos{Backend: repos.Backend, Cluster: repos.Cluster},
		ClusterPort: ports.Cluster,
		KubeClient: func(context.Context, []byte) (*kube.Client, error) {
			return kube.NewClientFromClientset(cs), nil
		},
	}, ports
}

func lbService(addr string) *corev1.Service {
	svc := &corev1.Service{ObjectMeta: metav1.ObjectMeta{Name: "ingress-nginx-controller", Namespace: "ingress-nginx"}}
	if addr != "" {
		svc.Status.LoadBalancer.Ingress = []corev1.LoadBalancerIngress{{IP: addr}}
	}
	return svc
}

func TestRecordFor(t *testing.T) {
	tests := []struct {
		addr string
		want model.DNSRecordType
	}{
		{"20.1.2.3", model.DNSRecordTypeA},
		{"2001:db8::1", model.DNSRecordTypeAAAA},
		{"lb.example.net", model.DNSRecordTypeCNAME},
	}
	for _, tt := range tests {
		if got := recordFor("api.example.com", tt.addr); got.Type != tt.want || got.RData[0] != tt.addr {
			t.Errorf("recordFor(%q) = %+v, want type %s", tt.addr, got, tt.want)
		}
	}
}

func TestDeployFromIngress(t *testing.T) {
	u, ports := newUseCase(t, lbService("20.1.2.3"))
	out, err := u.Deploy(context.Background(), &DeployInput{BackendID: usecasetest.BackendID})
	if err != nil {
		t.Fatalf("Deploy() error = %v", err)
	}
	if len(out.Applied) != 1 || out.Applied[0].Action != "updated" {
		t.Fatalf("unexpected output %+v", out)
	}
	rec := ports.Cluster.DNSRecords[0]
	if rec.FQDN != "api.example.com" || rec.Type != model.DNSRecordTypeA || rec.RData[0] != "20.1.2.3" {
		t.Errorf("unexpected record %+v", rec)
	}
	if ports.Cluster.DNSOptions.ZoneHint != "example.com" {
		t.Errorf("zone hint = %q", ports.Cluster.DNSOptions.ZoneHint)
	}
}

func TestDeployNoAddress(t *testing.T) {
	u, ports := newUseCase(t, lbService(""))
	out, err := u.Deploy(context.Background(), &DeployInput{BackendID: usecasetest.BackendID})
	if err != nil {
		t.Fatalf("Deploy() error = %v", err)
	}
	if out.Applied[0].Action != "skipped" || ports.Recorder.Called("cluster.dns") {
		t.Errorf("expected skip, got %+v", out)
	}
	if _, err := u.Deploy(context.Background(), &DeployInput{BackendID: usecasetest.BackendID, Strict: true}); err == nil {
		t.Error("strict deploy without address should fail")
	}
}

func TestDeployExplicitAddressDryRun(t *testing.T) {
	u, ports := newUseCase(t)
	out, err := u.Deploy(context.Background(), &DeployInput{BackendID: usecasetest.BackendID, Address: "20.9.9.9", DryRun: true})
	if err != nil {
		t.Fatalf("Deploy() error = %v", err)
	}
	if out.Applied[0].Action != "planned" || !ports.Cluster.DNSOptions.DryRun {
		t.Errorf("unexpected output %+v options %+v", out, ports.Cluster.DNSOptions)
	}
	if ports.Recorder.Called("cluster.kubeconfig") {
		t.Error("explicit address must not query the cluster")
	}
}

func TestDeployApplyFailure(t *testing.T) {
	u, ports := newUseCase(t)
	ports.Cluster.Err["dns"] = errors.New("zone not found")
	out, err := u.Deploy(context.Background(), &DeployInput{BackendID: usecasetest.BackendID, Address: "20.1.2.3"})
	if err != nil || out.Applied[0].Action != "failed" {
		t.Errorf("non-strict failure should be reported, got %+v %v", out, err)
	}
	if _, err := u.Deploy(context.Background(), &DeployInput{BackendID: usecasetest.BackendID, Address: "20.1.2.3", Strict: true}); err == nil {
		t.Error("strict failure should return an error")
	}
}

func TestDestroy(t *testing.T) {
	u, ports := newUseCase(t)
	out, err := u.Destroy(context.Background(), &DestroyInput{BackendID: usecasetest.BackendID})
	if err != nil {
		t.Fatalf("Destroy() error = %v", err)
	}
	if out.Deleted[0].Action != "deleted" {
		t.Errorf("unexpected output %+v", out)
	}
	rec := ports.Cluster.DNSRecords[0]
	if rec.Type != model.DNSRecordTypeA || len(rec.RData) != 0 {
		t.Errorf("destroy must send an empty record set, got %+v", rec)
	}
}
