package kube

// Label and annotation keys written to cluster objects.
const (
	SbopsDomain = "sbops.io"

	LabelAppK8sName      = "app.kubernetes.io/name"
	LabelAppK8sInstance  = "app.kubernetes.io/instance"
	LabelAppK8sManagedBy = "app.kubernetes.io/managed-by"
	LabelAppK8sComponent = "app.kubernetes.io/component"

	LabelAppSelector  = "app"
	LabelSbopsBackend = SbopsDomain + "/backend"

	AnnotationSbopsImage         = SbopsDomain + "/image"
	AnnotationCertManagerIssuer  = "cert-manager.io/cluster-issuer"
	AnnotationNginxForceSSL      = "nginx.ingress.kubernetes.io/force-ssl-redirect"
	AnnotationAzureLBResourceGrp = "service.beta.kubernetes.io/azure-load-balancer-resource-group"
	AnnotationAzureDNSLabelName  = "service.beta.kubernetes.io/azure-dns-label-name"
	AnnotationAzureLBHealthProbe = "service.beta.kubernetes.io/azure-load-balancer-health-probe-request-path"

	IngressClassNginx = "nginx"
	TokenSecretKey    = "api-token"
	TokenEnvName      = "API_TOKEN"
	ManagedByValue    = "sbops"
)

// BackendLabels returns the labels applied to every object of a backend.
func BackendLabels(backend string) map[string]string {
	return map[string]string{
		LabelAppK8sName:      backend,
		LabelAppK8sInstance:  backend,
		LabelAppK8sManagedBy: ManagedByValue,
		LabelAppK8sComponent: "backend",
		LabelSbopsBackend:    backend,
	}
}

// BackendSelector returns the label selector matching BackendLabels.
func BackendSelector(backend string) string {
	return LabelSbopsBackend + "=" + backend
}
