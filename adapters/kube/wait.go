package kube

import (
	"context"
	"fmt"
	"time"

	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/util/wait"

	"github.com/securebackend/sbops/domain/model"
	"github.com/securebackend/sbops/internal/logging"
)

const (
	DefaultDeploymentPollInterval = 5 * time.Second
	DefaultIngressIPPollInterval  = 10 * time.Second
	DefaultIngressIPTimeout       = 10 * time.Minute
)

// WaitDeploymentAvailable polls until the deployment reports the Available
// condition for its current generation. Expiry of timeout wraps
// model.ErrNotAvailable.
func (c *Client) WaitDeploymentAvailable(ctx context.Context, namespace, name string, interval, timeout time.Duration) error {
	if err := c.ready(); err != nil {
		return err
	}
	if interval <= 0 {
		interval = DefaultDeploymentPollInterval
	}
	logger := logging.FromContext(ctx).With("ns", namespace, "deployment", name)
	var last string
	err := wait.PollUntilContextTimeout(ctx, interval, timeout, true, func(ctx context.Context) (bool, error) {
		dep, err := c.Clientset.AppsV1().Deployments(namespace).Get(ctx, name, metav1.GetOptions{})
		if err != nil {
			if apierrors.IsNotFound(err) {
				last = "not found"
				return false, nil
			}
			return false, fmt.Errorf("get deployment %s/%s: %w", namespace, name, err)
		}
		ok, reason := deploymentAvailable(dep)
		if reason != last {
			logger.Debug(ctx, "KubeClient:WaitDeploymentAvailable", "state", reason)
			last = reason
		}
		return ok, nil
	})
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if wait.Interrupted(err) {
		return fmt.Errorf("%w: deployment %s/%s after %s (%s)", model.ErrNotAvailable, namespace, name, timeout, last)
	}
	return err
}

func deploymentAvailable(dep *appsv1.Deployment) (bool, string) {
	if dep.Status.ObservedGeneration < dep.Generation {
		return false, "generation not observed"
	}
	for _, cond := range dep.Status.Conditions {
		if cond.Type == appsv1.DeploymentAvailable {
			if cond.Status == corev1.ConditionTrue {
				return true, "available"
			}
			return false, "unavailable: " + cond.Reason
		}
	}
	return false, "no available condition"
}

// WaitIngressIP polls the LoadBalancer service until it has an external
// address and returns it. Expiry of timeout wraps model.ErrIngressIPTimeout.
func (c *Client) WaitIngressIP(ctx context.Context, namespace, service string, interval, timeout time.Duration) (string, error) {
	if err := c.ready(); err != nil {
		return "", err
	}
	if interval <= 0 {
		interval = DefaultIngressIPPollInterval
	}
	if timeout <= 0 {
		timeout = DefaultIngressIPTimeout
	}
	logger := logging.FromContext(ctx).With("ns", namespace, "service", service)
	var addr string
	attempts := 0
	err := wait.PollUntilContextTimeout(ctx, interval, timeout, true, func(ctx context.Context) (bool, error) {
		attempts++
		svc, err := c.Clientset.CoreV1().Services(namespace).Get(ctx, service, metav1.GetOptions{})
		if err != nil {
			if apierrors.IsNotFound(err) {
				return false, nil
			}
			return false, fmt.Errorf("get service %s/%s: %w", namespace, service, err)
		}
		addr = LoadBalancerAddress(svc)
		if addr == "" {
			logger.Debug(ctx, "KubeClient:WaitIngressIP pending", "attempt", attempts)
		}
		return addr != "", nil
	})
	if err == nil {
		return addr, nil
	}
	if ctx.Err() != nil {
		return "", ctx.Err()
	}
	if wait.Interrupted(err) {
		return "", fmt.Errorf("%w: service %s/%s after %s", model.ErrIngressIPTimeout, namespace, service, timeout)
	}
	return "", err
}

// LoadBalancerAddress returns the first external IP or hostname of svc.
func LoadBalancerAddress(svc *corev1.Service) string {
	if svc == nil {
		return ""
	}
	for _, ing := range svc.Status.LoadBalancer.Ingress {
		if ing.IP != "" {
			return ing.IP
		}
		if ing.Hostname != "" {
			return ing.Hostname
		}
	}
	return ""
}

// IngressAddress returns the current external address of the LoadBalancer
// service, or "" when none is assigned yet.
func (c *Client) IngressAddress(ctx context.Context, namespace, service string) (string, error) {
	if err := c.ready(); err != nil {
		return "", err
	}
	svc, err := c.Clientset.CoreV1().Services(namespace).Get(ctx, service, metav1.GetOptions{})
	if err != nil {
		if apierrors.IsNotFound(err) {
			return "", nil
		}
		return "", fmt.Errorf("get service %s/%s: %w", namespace, service, err)
	}
	return LoadBalancerAddress(svc), nil
}
