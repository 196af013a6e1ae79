package kube

import (
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"

	"github.com/securebackend/sbops/domain/model"
)

// ClusterIssuerObject renders the cert-manager ACME ClusterIssuer solving
// HTTP-01 challenges through the nginx ingress class.
func ClusterIssuerObject(cm *model.ClusterCertManager) *unstructured.Unstructured {
	u := &unstructured.Unstructured{Object: map[string]any{
		"apiVersion": "cert-manager.io/v1",
		"kind":       "ClusterIssuer",
		"metadata": map[string]any{
			"name": cm.IssuerName,
			"labels": map[string]any{
				LabelAppK8sManagedBy: ManagedByValue,
			},
		},
		"spec": map[string]any{
			"acme": map[string]any{
				"server": cm.IssuerServer,
				"email":  cm.Email,
				"privateKeySecretRef": map[string]any{
					"name": cm.IssuerName + "-account-key",
				},
				"solvers": []any{
					map[string]any{
						"http01": map[string]any{
							"ingress": map[string]any{
								"ingressClassName": IngressClassNginx,
							},
						},
					},
				},
			},
		},
	}}
	return u
}
