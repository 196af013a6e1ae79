// Package naming derives deterministic short names for cloud and Kubernetes
// resources from configuration identifiers, and validates user supplied names.
package naming

import (
	"crypto/rand"
	"crypto/sha1"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

// hashLength is the hex length of short hashes (bits ~ length * 4).
const hashLength = 6

// ShortHash returns the hex SHA1 prefix of length n (clamped to digest size).
func ShortHash(s string, n int) string {
	sum := sha1.Sum([]byte(s))
	h := fmt.Sprintf("%x", sum)
	if n > len(h) {
		n = len(h)
	}
	return h[:n]
}

// Hashes groups short hashes for one deployment target.
//
//	provider                   -> Provider
//	provider/cluster           -> Cluster
//	provider/cluster/backend   -> Backend
type Hashes struct {
	Provider string
	Cluster  string
	Backend  string
}

// NewHashes computes hierarchical hashes for the given identifiers.
func NewHashes(provider, cluster, backend string) Hashes {
	return Hashes{
		Provider: ShortHash(provider, hashLength),
		Cluster:  ShortHash(provider+":"+cluster, hashLength),
		Backend:  ShortHash(provider+":"+cluster+":"+backend, hashLength),
	}
}

// StackName returns the deployment stack name owning the cluster infrastructure.
func (h Hashes) StackName(cluster string) string {
	return fmt.Sprintf("sbops-%s-%s", cluster, h.Cluster)
}

// RegistryCredentialName returns the image pull secret name for a registry.
func RegistryCredentialName(registry string) string {
	return fmt.Sprintf("%s-acr-credentials", registry)
}

// TokenSecretName returns the Secret carrying the API token of a backend.
func TokenSecretName(backend string) string {
	return backend + "-secrets"
}

// TLSSecretName returns the Secret carrying the TLS certificate of a backend.
func TLSSecretName(backend string) string {
	return backend + "-tls"
}

// NewRunID returns a lowercase ULID for pipeline runs. IDs sort by creation time.
func NewRunID() (string, error) {
	return newRunIDAt(time.Now().UTC())
}

func newRunIDAt(now time.Time) (string, error) {
	if now.Before(time.Unix(0, 0)) {
		return "", fmt.Errorf("timestamp %s out of range", now)
	}
	id, err := ulid.New(ulid.Timestamp(now), ulid.Monotonic(rand.Reader, 0))
	if err != nil {
		return "", fmt.Errorf("generate run id: %w", err)
	}
	return strings.ToLower(id.String()), nil
}
