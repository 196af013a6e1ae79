package kube

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	networkingv1 "k8s.io/api/networking/v1"
	"k8s.io/apimachinery/pkg/api/resource"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/util/intstr"
	"k8s.io/utils/ptr"

	"github.com/securebackend/sbops/domain/model"
	"github.com/securebackend/sbops/internal/naming"
	"github.com/securebackend/sbops/internal/tlsutil"
)

// BackendManifestInput carries everything needed to render a backend.
type BackendManifestInput struct {
	Backend  *model.Backend
	Cluster  *model.Cluster
	Image    string                     // fully qualified image reference
	Registry *model.RegistryCredentials // nil disables the pull secret
	TLS      *tlsutil.KeyPair           // required for self-signed mode
}

// BackendObjects are the typed objects of one backend, in apply order.
type BackendObjects struct {
	Namespace   *corev1.Namespace
	PullSecret  *corev1.Secret
	TokenSecret *corev1.Secret
	TLSSecret   *corev1.Secret
	Deployment  *appsv1.Deployment
	Service     *corev1.Service
	Ingress     *networkingv1.Ingress
}

// Objects returns the non-nil objects in apply order.
func (o *BackendObjects) Objects() []runtime.Object {
	var out []runtime.Object
	if o.Namespace != nil {
		out = append(out, o.Namespace)
	}
	for _, s := range []*corev1.Secret{o.PullSecret, o.TokenSecret, o.TLSSecret} {
		if s != nil {
			out = append(out, s)
		}
	}
	if o.Deployment != nil {
		out = append(out, o.Deployment)
	}
	if o.Service != nil {
		out = append(out, o.Service)
	}
	if o.Ingress != nil {
		out = append(out, o.Ingress)
	}
	return out
}

// BuildBackendObjects renders the namespace, secrets, deployment, service
// and ingress of a backend.
func BuildBackendObjects(in *BackendManifestInput) (*BackendObjects, error) {
	if in == nil || in.Backend == nil {
		return nil, fmt.Errorf("backend is required")
	}
	b := in.Backend
	if b.Namespace == "" {
		return nil, fmt.Errorf("backend %s: namespace is empty", b.Name)
	}
	if in.Image == "" {
		return nil, fmt.Errorf("backend %s: image is empty", b.Name)
	}
	labels := BackendLabels(b.Name)
	objMeta := func(name string) metav1.ObjectMeta {
		return metav1.ObjectMeta{Name: name, Namespace: b.Namespace, Labels: copyLabels(labels)}
	}

	out := &BackendObjects{
		Namespace: &corev1.Namespace{
			TypeMeta:   metav1.TypeMeta{APIVersion: "v1", Kind: "Namespace"},
			ObjectMeta: metav1.ObjectMeta{Name: b.Namespace, Labels: map[string]string{LabelAppK8sManagedBy: ManagedByValue}},
		},
		TokenSecret: &corev1.Secret{
			TypeMeta:   metav1.TypeMeta{APIVersion: "v1", Kind: "Secret"},
			ObjectMeta: objMeta(naming.TokenSecretName(b.Name)),
			Type:       corev1.SecretTypeOpaque,
			StringData: map[string]string{TokenSecretKey: b.Token},
		},
	}

	var pullSecrets []corev1.LocalObjectReference
	if in.Registry != nil {
		dcj, err := DockerConfigJSON(in.Registry)
		if err != nil {
			return nil, err
		}
		name := naming.RegistryCredentialName(registryShortName(in.Registry.LoginServer))
		out.PullSecret = &corev1.Secret{
			TypeMeta:   metav1.TypeMeta{APIVersion: "v1", Kind: "Secret"},
			ObjectMeta: objMeta(name),
			Type:       corev1.SecretTypeDockerConfigJson,
			Data:       map[string][]byte{corev1.DockerConfigJsonKey: dcj},
		}
		pullSecrets = []corev1.LocalObjectReference{{Name: name}}
	}

	mode := b.TLS.Mode
	tlsSecret := TLSSecretName(b)
	if mode == model.TLSModeSelfSigned {
		if in.TLS == nil {
			return nil, fmt.Errorf("backend %s: self-signed mode requires a key pair", b.Name)
		}
		out.TLSSecret = &corev1.Secret{
			TypeMeta:   metav1.TypeMeta{APIVersion: "v1", Kind: "Secret"},
			ObjectMeta: objMeta(tlsSecret),
			Type:       corev1.SecretTypeTLS,
			Data: map[string][]byte{
				corev1.TLSCertKey:       in.TLS.CertPEM,
				corev1.TLSPrivateKeyKey: in.TLS.KeyPEM,
			},
		}
	}

	res, err := resourceRequirements(b.Resources)
	if err != nil {
		return nil, fmt.Errorf("backend %s: %w", b.Name, err)
	}
	probe := func(initial int32) *corev1.Probe {
		return &corev1.Probe{
			ProbeHandler: corev1.ProbeHandler{HTTPGet: &corev1.HTTPGetAction{
				Path: b.HealthPath,
				Port: intstr.FromInt32(b.Port),
			}},
			InitialDelaySeconds: initial,
			PeriodSeconds:       10,
			TimeoutSeconds:      5,
			FailureThreshold:    3,
		}
	}
	selector := map[string]string{LabelAppSelector: b.Name}
	podLabels := copyLabels(labels)
	podLabels[LabelAppSelector] = b.Name

	out.Deployment = &appsv1.Deployment{
		TypeMeta:   metav1.TypeMeta{APIVersion: "apps/v1", Kind: "Deployment"},
		ObjectMeta: objMeta(b.Name),
		Spec: appsv1.DeploymentSpec{
			Replicas: ptr.To(b.Replicas),
			Selector: &metav1.LabelSelector{MatchLabels: selector},
			Template: corev1.PodTemplateSpec{
				ObjectMeta: metav1.ObjectMeta{
					Labels:      podLabels,
					Annotations: map[string]string{AnnotationSbopsImage: in.Image},
				},
				Spec: corev1.PodSpec{
					ImagePullSecrets: pullSecrets,
					Containers: []corev1.Container{{
						Name:           b.Name,
						Image:          in.Image,
						Ports:          []corev1.ContainerPort{{Name: "http", ContainerPort: b.Port, Protocol: corev1.ProtocolTCP}},
						Env:            containerEnv(b),
						Resources:      res,
						ReadinessProbe: probe(5),
						LivenessProbe:  probe(15),
					}},
				},
			},
		},
	}

	out.Service = &corev1.Service{
		TypeMeta:   metav1.TypeMeta{APIVersion: "v1", Kind: "Service"},
		ObjectMeta: objMeta(b.Name),
		Spec: corev1.ServiceSpec{
			Type:     corev1.ServiceTypeClusterIP,
			Selector: selector,
			Ports: []corev1.ServicePort{{
				Name:       "http",
				Port:       80,
				TargetPort: intstr.FromInt32(b.Port),
				Protocol:   corev1.ProtocolTCP,
			}},
		},
	}

	out.Ingress = buildIngress(in, objMeta(b.Name), tlsSecret)
	return out, nil
}

func buildIngress(in *BackendManifestInput, om metav1.ObjectMeta, tlsSecret string) *networkingv1.Ingress {
	b := in.Backend
	om.Annotations = map[string]string{}
	ing := &networkingv1.Ingress{
		TypeMeta:   metav1.TypeMeta{APIVersion: "networking.k8s.io/v1", Kind: "Ingress"},
		ObjectMeta: om,
		Spec: networkingv1.IngressSpec{
			IngressClassName: ptr.To(IngressClassNginx),
			Rules: []networkingv1.IngressRule{{
				Host: b.Host,
				IngressRuleValue: networkingv1.IngressRuleValue{HTTP: &networkingv1.HTTPIngressRuleValue{
					Paths: []networkingv1.HTTPIngressPath{{
						Path:     "/",
						PathType: ptr.To(networkingv1.PathTypePrefix),
						Backend: networkingv1.IngressBackend{Service: &networkingv1.IngressServiceBackend{
							Name: b.Name,
							Port: networkingv1.ServiceBackendPort{Number: 80},
						}},
					}},
				}},
			}},
		},
	}
	if b.TLS.Mode == model.TLSModeNone || b.TLS.Mode == "" || b.Host == "" {
		return ing
	}
	ing.Annotations[AnnotationNginxForceSSL] = "true"
	if b.TLS.Mode == model.TLSModeCertManager {
		issuer := "letsencrypt-prod"
		if in.Cluster != nil && in.Cluster.CertManager != nil && in.Cluster.CertManager.IssuerName != "" {
			issuer = in.Cluster.CertManager.IssuerName
		}
		ing.Annotations[AnnotationCertManagerIssuer] = issuer
	}
	ing.Spec.TLS = []networkingv1.IngressTLS{{Hosts: []string{b.Host}, SecretName: tlsSecret}}
	return ing
}

// TLSSecretName returns the TLS secret referenced by the backend ingress.
func TLSSecretName(b *model.Backend) string {
	if b.TLS.SecretName != "" {
		return b.TLS.SecretName
	}
	return naming.TLSSecretName(b.Name)
}

// DockerConfigJSON renders a .dockerconfigjson document for creds.
func DockerConfigJSON(creds *model.RegistryCredentials) ([]byte, error) {
	if creds == nil || creds.LoginServer == "" {
		return nil, fmt.Errorf("registry login server is empty")
	}
	auth := base64.StdEncoding.EncodeToString([]byte(creds.Username + ":" + creds.Password))
	doc := map[string]any{
		"auths": map[string]any{
			creds.LoginServer: map[string]string{
				"username": creds.Username,
				"password": creds.Password,
				"auth":     auth,
			},
		},
	}
	return json.Marshal(doc)
}

func containerEnv(b *model.Backend) []corev1.EnvVar {
	env := []corev1.EnvVar{
		{Name: "PORT", Value: fmt.Sprint(b.Port)},
		{Name: TokenEnvName, ValueFrom: &corev1.EnvVarSource{SecretKeyRef: &corev1.SecretKeySelector{
			LocalObjectReference: corev1.LocalObjectReference{Name: naming.TokenSecretName(b.Name)},
			Key:                  TokenSecretKey,
		}}},
	}
	keys := make([]string, 0, len(b.Env))
	for k := range b.Env {
		if k == "PORT" || k == TokenEnvName {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		env = append(env, corev1.EnvVar{Name: k, Value: b.Env[k]})
	}
	return env
}

func resourceRequirements(r model.BackendResources) (corev1.ResourceRequirements, error) {
	out := corev1.ResourceRequirements{}
	set := func(list *corev1.ResourceList, name corev1.ResourceName, v string) error {
		if v == "" {
			return nil
		}
		q, err := resource.ParseQuantity(v)
		if err != nil {
			return fmt.Errorf("invalid %s quantity %q: %w", name, v, err)
		}
		if *list == nil {
			*list = corev1.ResourceList{}
		}
		(*list)[name] = q
		return nil
	}
	for _, s := range []struct {
		list *corev1.ResourceList
		name corev1.ResourceName
		v    string
	}{
		{&out.Requests, corev1.ResourceCPU, r.CPURequest},
		{&out.Requests, corev1.ResourceMemory, r.MemoryRequest},
		{&out.Limits, corev1.ResourceCPU, r.CPULimit},
		{&out.Limits, corev1.ResourceMemory, r.MemoryLimit},
	} {
		if err := set(s.list, s.name, s.v); err != nil {
			return out, err
		}
	}
	return out, nil
}

func registryShortName(loginServer string) string {
	name, _, _ := strings.Cut(loginServer, ".")
	return name
}

func copyLabels(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
