package backend

import (
	"context"
	"fmt"

	"k8s.io/apimachinery/pkg/api/meta"

	"github.com/securebackend/sbops/adapters/kube"
	"github.com/securebackend/sbops/domain/model"
	"github.com/securebackend/sbops/internal/logging"
	"github.com/securebackend/sbops/internal/tlsutil"
)

// DeployInput represents a command to deploy a backend.
type DeployInput struct {
	BackendID string `json:"backend_id"`
	// Tag overrides the configured image tag.
	Tag string `json:"tag,omitempty"`
	// ForceConflicts takes ownership of fields managed by other appliers.
	ForceConflicts bool `json:"force_conflicts,omitempty"`
}

// DeployOutput reports what was deployed.
type DeployOutput struct {
	Target  model.BackendTarget `json:"target"`
	Image   string              `json:"image"`
	Applied []string            `json:"applied,omitempty"` // Kind/name
	WebApp  *model.WebAppStatus `json:"webApp,omitempty"`
}

// Deploy applies the backend manifests to the cluster, or updates the Web App
// container for target webapp.
func (u *UseCase) Deploy(ctx context.Context, in *DeployInput) (*DeployOutput, error) {
	if in == nil {
		return nil, fmt.Errorf("input is nil")
	}
	t, err := u.load(ctx, in.BackendID)
	if err != nil {
		return nil, err
	}
	b := t.backend
	if t.registry == nil {
		return nil, fmt.Errorf("backend %s: registry is required", b.Name)
	}
	creds, err := u.RegistryPort.Login(ctx, t.registry)
	if err != nil {
		return nil, fmt.Errorf("registry login: %w", err)
	}
	img := b.Image
	if in.Tag != "" {
		img.Tag = in.Tag
	}
	ref := img.Reference(creds.LoginServer)
	out := &DeployOutput{Target: b.Target, Image: ref}
	logger := logging.FromContext(ctx).With("backend", b.Name, "target", b.Target)

	if b.Target == model.BackendTargetWebApp {
		app, err := webApp(t, ref, creds)
		if err != nil {
			return nil, err
		}
		st, err := u.WebAppPort.Deploy(ctx, app)
		if err != nil {
			return nil, fmt.Errorf("deploy web app: %w", err)
		}
		out.WebApp = st
		logger.Info(ctx, "backend web app deployed", "host", st.DefaultHostName)
		return out, nil
	}

	var keyPair *tlsutil.KeyPair
	if b.TLS.Mode == model.TLSModeSelfSigned {
		keyPair, err = tlsutil.GenerateSelfSigned(tlsutil.SelfSignedOptions{
			Host:         b.Host,
			Organization: "sbops",
			ValidityDays: b.TLS.ValidityDays,
		})
		if err != nil {
			return nil, fmt.Errorf("generate self-signed certificate: %w", err)
		}
		logger.Info(ctx, "self-signed certificate generated", "host", b.Host, "not_after", keyPair.NotAfter)
	}

	objs, err := kube.BuildBackendObjects(&kube.BackendManifestInput{
		Backend:  b,
		Cluster:  t.cluster,
		Image:    ref,
		Registry: creds,
		TLS:      keyPair,
	})
	if err != nil {
		return nil, err
	}
	client, err := u.kubeClient(ctx, t.cluster)
	if err != nil {
		return nil, err
	}
	list := objs.Objects()
	if err := client.ApplyObjects(ctx, list, &kube.ApplyOptions{DefaultNamespace: b.Namespace, ForceConflicts: in.ForceConflicts}); err != nil {
		return nil, fmt.Errorf("apply backend manifests: %w", err)
	}
	for _, o := range list {
		name := ""
		if m, err := meta.Accessor(o); err == nil {
			name = m.GetName()
		}
		out.Applied = append(out.Applied, o.GetObjectKind().GroupVersionKind().Kind+"/"+name)
	}
	logger.Info(ctx, "backend manifests applied", "objects", len(list), "image", ref)
	return out, nil
}
