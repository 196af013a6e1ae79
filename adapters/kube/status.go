package kube

import (
	"context"
	"errors"
	"fmt"

	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"github.com/securebackend/sbops/domain/model"
)

// BackendStatus reads the deployment, pods and ingress of a backend.
// A missing deployment yields a status with Available false.
func (c *Client) BackendStatus(ctx context.Context, b *model.Backend) (*model.BackendStatus, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	st := &model.BackendStatus{Namespace: b.Namespace, Deployment: b.Name, Pods: map[string]string{}}

	dep, err := c.Clientset.AppsV1().Deployments(b.Namespace).Get(ctx, b.Name, metav1.GetOptions{})
	switch {
	case apierrors.IsNotFound(err):
	case err != nil:
		return nil, fmt.Errorf("get deployment %s/%s: %w", b.Namespace, b.Name, err)
	default:
		if dep.Spec.Replicas != nil {
			st.Replicas = *dep.Spec.Replicas
		}
		st.ReadyReplicas = dep.Status.ReadyReplicas
		st.AvailableReplicas = dep.Status.AvailableReplicas
		st.Available, _ = deploymentAvailable(dep)
	}

	pods, err := c.Clientset.CoreV1().Pods(b.Namespace).List(ctx, metav1.ListOptions{LabelSelector: LabelAppSelector + "=" + b.Name})
	if err != nil && !apierrors.IsNotFound(err) {
		return nil, fmt.Errorf("list pods: %w", err)
	}
	if pods != nil {
		for _, p := range pods.Items {
			st.Pods[p.Name] = string(p.Status.Phase)
		}
	}

	ing, err := c.Clientset.NetworkingV1().Ingresses(b.Namespace).Get(ctx, b.Name, metav1.GetOptions{})
	switch {
	case apierrors.IsNotFound(err):
	case err != nil:
		return nil, fmt.Errorf("get ingress %s/%s: %w", b.Namespace, b.Name, err)
	default:
		if len(ing.Spec.Rules) > 0 {
			st.IngressHost = ing.Spec.Rules[0].Host
		}
		for _, lb := range ing.Status.LoadBalancer.Ingress {
			if lb.IP != "" {
				st.IngressAddress = lb.IP
				break
			}
			if lb.Hostname != "" {
				st.IngressAddress = lb.Hostname
				break
			}
		}
		if len(ing.Spec.TLS) > 0 {
			st.TLSSecret = ing.Spec.TLS[0].SecretName
		}
	}
	return st, nil
}

// DeleteBackend removes the ingress, service, deployment and secrets
// labeled for backend in namespace. It returns the number of deleted objects.
func (c *Client) DeleteBackend(ctx context.Context, namespace, backend string) (int, error) {
	if err := c.ready(); err != nil {
		return 0, err
	}
	sel := metav1.ListOptions{LabelSelector: BackendSelector(backend)}
	bg := metav1.DeletePropagationBackground
	delOpts := metav1.DeleteOptions{PropagationPolicy: &bg}
	var deleted int
	var errs []error
	del := func(kind, name string, fn func() error) {
		if err := fn(); err != nil && !apierrors.IsNotFound(err) {
			errs = append(errs, fmt.Errorf("delete %s %s/%s: %w", kind, namespace, name, err))
			return
		}
		deleted++
	}

	if list, err := c.Clientset.NetworkingV1().Ingresses(namespace).List(ctx, sel); err != nil {
		errs = append(errs, fmt.Errorf("list ingresses: %w", err))
	} else {
		for _, o := range list.Items {
			del("ingress", o.Name, func() error {
				return c.Clientset.NetworkingV1().Ingresses(namespace).Delete(ctx, o.Name, delOpts)
			})
		}
	}
	if list, err := c.Clientset.CoreV1().Services(namespace).List(ctx, sel); err != nil {
		errs = append(errs, fmt.Errorf("list services: %w", err))
	} else {
		for _, o := range list.Items {
			del("service", o.Name, func() error {
				return c.Clientset.CoreV1().Services(namespace).Delete(ctx, o.Name, delOpts)
			})
		}
	}
	if list, err := c.Clientset.AppsV1().Deployments(namespace).List(ctx, sel); err != nil {
		errs = append(errs, fmt.Errorf("list deployments: %w", err))
	} else {
		for _, o := range list.Items {
			del("deployment", o.Name, func() error {
				return c.Clientset.AppsV1().Deployments(namespace).Delete(ctx, o.Name, delOpts)
			})
		}
	}
	if list, err := c.Clientset.CoreV1().Secrets(namespace).List(ctx, sel); err != nil {
		errs = append(errs, fmt.Errorf("list secrets: %w", err))
	} else {
		for _, o := range list.Items {
			if o.Type == corev1.SecretTypeServiceAccountToken {
				continue
			}
			del("secret", o.Name, func() error {
				return c.Clientset.CoreV1().Secrets(namespace).Delete(ctx, o.Name, delOpts)
			})
		}
	}
	return deleted, errors.Join(errs...)
}
