package kube

import (
	"context"
	"fmt"
	"slices"

	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// protectedNamespaces are never deleted by DeleteNamespace.
var protectedNamespaces = []string{"default", "kube-system", "kube-public", "kube-node-lease"}

// EnsureNamespace creates the namespace or adds missing labels to an existing one.
// Labels already present with another value are left alone.
func (c *Client) EnsureNamespace(ctx context.Context, name string, labels map[string]string) error {
	if err := c.ready(); err != nil {
		return err
	}
	if name == "" {
		return fmt.Errorf("namespace name is empty")
	}
	nsClient := c.Clientset.CoreV1().Namespaces()

	ns, err := nsClient.Get(ctx, name, metav1.GetOptions{})
	switch {
	case apierrors.IsNotFound(err):
		obj := &corev1.Namespace{ObjectMeta: metav1.ObjectMeta{Name: name, Labels: labels}}
		if _, err := nsClient.Create(ctx, obj, metav1.CreateOptions{FieldManager: FieldManager}); err != nil && !apierrors.IsAlreadyExists(err) {
			return fmt.Errorf("create namespace %s: %w", name, err)
		}
		return nil
	case err != nil:
		return fmt.Errorf("get namespace %s: %w", name, err)
	}

	changed := false
	for k, v := range labels {
		if _, ok := ns.Labels[k]; ok {
			continue
		}
		if ns.Labels == nil {
			ns.Labels = map[string]string{}
		}
		ns.Labels[k] = v
		changed = true
	}
	if !changed {
		return nil
	}
	if _, err := nsClient.Update(ctx, ns, metav1.UpdateOptions{FieldManager: FieldManager}); err != nil {
		return fmt.Errorf("label namespace %s: %w", name, err)
	}
	return nil
}

// DeleteNamespace deletes a namespace. A missing namespace is success.
func (c *Client) DeleteNamespace(ctx context.Context, name string) error {
	if err := c.ready(); err != nil {
		return err
	}
	if name == "" {
		return fmt.Errorf("namespace name is empty")
	}
	if slices.Contains(protectedNamespaces, name) {
		return fmt.Errorf("refusing to delete namespace %s", name)
	}
	err := c.Clientset.CoreV1().Namespaces().Delete(ctx, name, metav1.DeleteOptions{})
	if err != nil && !apierrors.IsNotFound(err) {
		return fmt.Errorf("delete namespace %s: %w", name, err)
	}
	return nil
}
