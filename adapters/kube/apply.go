package kube

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	networkingv1 "k8s.io/api/networking/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/api/meta"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/apimachinery/pkg/types"
	utilyaml "k8s.io/apimachinery/pkg/util/yaml"
	"k8s.io/client-go/discovery"
	"k8s.io/client-go/discovery/cached/memory"
	"k8s.io/client-go/dynamic"
	"k8s.io/client-go/restmapper"

	"github.com/securebackend/sbops/internal/logging"
)

// ApplyOptions configures apply operations.
type ApplyOptions struct {
	// DefaultNamespace is used when a namespaced resource omits metadata.namespace.
	DefaultNamespace string
	// ForceConflicts takes ownership of fields managed by other managers.
	ForceConflicts bool
}

// ApplyObjects applies objects in order. With a REST config it uses
// server-side apply, so every object must carry apiVersion and kind.
func (c *Client) ApplyObjects(ctx context.Context, objs []runtime.Object, opts *ApplyOptions) (err error) {
	if err := c.ready(); err != nil {
		return err
	}
	if opts == nil {
		opts = &ApplyOptions{}
	}

	logger := logging.FromContext(ctx)
	msgSym := "KubeClient:ApplyObjects"
	logger.Info(ctx, msgSym+"/s", "objects", len(objs))
	count := 0
	defer func() {
		if err == nil {
			logger.Info(ctx, msgSym+"/eok", "applied", count)
		} else {
			logger.Info(ctx, msgSym+"/efail", "applied", count, "err", err)
		}
	}()

	if c.RESTConfig == nil {
		for _, obj := range objs {
			if obj == nil {
				continue
			}
			if err := c.upsertTyped(ctx, obj, opts.DefaultNamespace); err != nil {
				return err
			}
			count++
		}
		return nil
	}

	dy, mapper, err := c.dynamicClients()
	if err != nil {
		return err
	}
	for _, obj := range objs {
		if obj == nil {
			continue
		}
		var u *unstructured.Unstructured
		if uu, ok := obj.(*unstructured.Unstructured); ok {
			u = uu
		} else {
			m, err := runtime.DefaultUnstructuredConverter.ToUnstructured(obj)
			if err != nil {
				return fmt.Errorf("to unstructured: %w", err)
			}
			u = &unstructured.Unstructured{Object: m}
		}
		if err := applyUnstructured(ctx, u, opts, dy, mapper); err != nil {
			return err
		}
		count++
	}
	return nil
}

// ApplyYAML performs server-side apply for a multi-document YAML/JSON byte stream.
func (c *Client) ApplyYAML(ctx context.Context, data []byte, opts *ApplyOptions) error {
	if err := c.ready(); err != nil {
		return err
	}
	if c.RESTConfig == nil {
		return fmt.Errorf("apply yaml requires a REST config")
	}
	var objs []runtime.Object
	dec := utilyaml.NewYAMLOrJSONDecoder(bytes.NewReader(data), 4096)
	for {
		var raw map[string]any
		if err := dec.Decode(&raw); err != nil {
			if err == io.EOF {
				break
			}
			return fmt.Errorf("decode yaml: %w", err)
		}
		if len(raw) == 0 {
			continue
		}
		objs = append(objs, &unstructured.Unstructured{Object: raw})
	}
	return c.ApplyObjects(ctx, objs, opts)
}

func (c *Client) dynamicClients() (dynamic.Interface, meta.RESTMapper, error) {
	dc, err := discovery.NewDiscoveryClientForConfig(c.RESTConfig)
	if err != nil {
		return nil, nil, fmt.Errorf("create discovery client: %w", err)
	}
	mapper := restmapper.NewDeferredDiscoveryRESTMapper(memory.NewMemCacheClient(dc))
	dy, err := dynamic.NewForConfig(c.RESTConfig)
	if err != nil {
		return nil, nil, fmt.Errorf("create dynamic client: %w", err)
	}
	return dy, mapper, nil
}

func applyUnstructured(ctx context.Context, u *unstructured.Unstructured, opts *ApplyOptions, dy dynamic.Interface, mapper meta.RESTMapper) error {
	if u.GetKind() == "" || u.GetAPIVersion() == "" {
		return fmt.Errorf("object %q missing apiVersion or kind", u.GetName())
	}
	gvk := schema.FromAPIVersionAndKind(u.GetAPIVersion(), u.GetKind())
	mapping, err := mapper.RESTMapping(gvk.GroupKind(), gvk.Version)
	if err != nil {
		return fmt.Errorf("rest mapping %s: %w", gvk.String(), err)
	}
	if mapping.Scope.Name() == meta.RESTScopeNameNamespace && u.GetNamespace() == "" {
		ns := opts.DefaultNamespace
		if ns == "" {
			ns = metav1.NamespaceDefault
		}
		u.SetNamespace(ns)
	}
	if u.GetName() == "" {
		return fmt.Errorf("object %s missing metadata.name", gvk.String())
	}
	body, err := json.Marshal(u.Object)
	if err != nil {
		return fmt.Errorf("marshal %s/%s: %w", u.GetKind(), u.GetName(), err)
	}

	var ri dynamic.ResourceInterface = dy.Resource(mapping.Resource)
	if u.GetNamespace() != "" && mapping.Scope.Name() == meta.RESTScopeNameNamespace {
		ri = dy.Resource(mapping.Resource).Namespace(u.GetNamespace())
	}
	force := opts.ForceConflicts
	logger := logging.FromContext(ctx).With("ns", u.GetNamespace(), "kind", u.GetKind(), "name", u.GetName())
	if _, err := ri.Patch(ctx, u.GetName(), types.ApplyPatchType, body, metav1.PatchOptions{FieldManager: FieldManager, Force: &force}); err != nil {
		logger.Error(ctx, "KubeClient:Apply/efail", "err", err)
		return fmt.Errorf("apply %s %s: %w", u.GetKind(), u.GetName(), err)
	}
	logger.Info(ctx, "KubeClient:Apply/eok")
	return nil
}

// upsertTyped creates obj or replaces the existing object of the same name.
func (c *Client) upsertTyped(ctx context.Context, obj runtime.Object, defaultNS string) error {
	nsOf := func(m metav1.Object) string {
		if m.GetNamespace() == "" {
			m.SetNamespace(defaultNS)
		}
		return m.GetNamespace()
	}
	switch o := obj.(type) {
	case *corev1.Namespace:
		api := c.Clientset.CoreV1().Namespaces()
		return upsert(ctx, o, api.Get, api.Create, api.Update, nil)
	case *corev1.Secret:
		api := c.Clientset.CoreV1().Secrets(nsOf(o))
		return upsert(ctx, o, api.Get, api.Create, api.Update, nil)
	case *corev1.Service:
		api := c.Clientset.CoreV1().Services(nsOf(o))
		return upsert(ctx, o, api.Get, api.Create, api.Update, func(existing, desired *corev1.Service) {
			desired.Spec.ClusterIP = existing.Spec.ClusterIP
			desired.Spec.ClusterIPs = existing.Spec.ClusterIPs
		})
	case *appsv1.Deployment:
		api := c.Clientset.AppsV1().Deployments(nsOf(o))
		return upsert(ctx, o, api.Get, api.Create, api.Update, nil)
	case *networkingv1.Ingress:
		api := c.Clientset.NetworkingV1().Ingresses(nsOf(o))
		return upsert(ctx, o, api.Get, api.Create, api.Update, nil)
	default:
		return fmt.Errorf("typed apply does not support %T", obj)
	}
}

func upsert[T interface {
	metav1.Object
	runtime.Object
}](
	ctx context.Context,
	obj T,
	get func(context.Context, string, metav1.GetOptions) (T, error),
	create func(context.Context, T, metav1.CreateOptions) (T, error),
	update func(context.Context, T, metav1.UpdateOptions) (T, error),
	carry func(existing, desired T),
) error {
	kind := fmt.Sprintf("%T", obj)
	existing, err := get(ctx, obj.GetName(), metav1.GetOptions{})
	if apierrors.IsNotFound(err) {
		if _, err := create(ctx, obj, metav1.CreateOptions{FieldManager: FieldManager}); err != nil {
			return fmt.Errorf("create %s %s: %w", kind, obj.GetName(), err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("get %s %s: %w", kind, obj.GetName(), err)
	}
	obj.SetResourceVersion(existing.GetResourceVersion())
	if carry != nil {
		carry(existing, obj)
	}
	if _, err := update(ctx, obj, metav1.UpdateOptions{FieldManager: FieldManager}); err != nil {
		return fmt.Errorf("update %s %s: %w", kind, obj.GetName(), err)
	}
	return nil
}
