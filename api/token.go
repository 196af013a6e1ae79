package api

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/keyvault/azsecrets"

	"github.com/securebackend/sbops/internal/logging"
)

// DefaultToken is accepted when no token is configured.
const DefaultToken = "demo-secure-token"

// Environment variables read by TokenSourceFromEnv.
const (
	EnvAPIToken           = "API_TOKEN"
	EnvKeyVaultURL        = "KEYVAULT_URL"
	EnvAPITokenSecretName = "API_TOKEN_SECRET_NAME"
)

// TokenSource locates the bearer token.
type TokenSource struct {
	Token      string
	VaultURL   string
	SecretName string
}

// TokenSourceFromEnv reads the token settings from the environment.
func TokenSourceFromEnv() TokenSource {
	return TokenSource{
		Token:      strings.TrimSpace(os.Getenv(EnvAPIToken)),
		VaultURL:   strings.TrimSpace(os.Getenv(EnvKeyVaultURL)),
		SecretName: strings.TrimSpace(os.Getenv(EnvAPITokenSecretName)),
	}
}

// SecretGetter is the subset of *azsecrets.Client used here.
type SecretGetter interface {
	GetSecret(ctx context.Context, name, version string, options *azsecrets.GetSecretOptions) (azsecrets.GetSecretResponse, error)
}

// NewKeyVaultClient connects to a vault with the default Azure credential chain.
func NewKeyVaultClient(vaultURL string, cred azcore.TokenCredential) (*azsecrets.Client, error) {
	if cred == nil {
		c, err := azidentity.NewDefaultAzureCredential(nil)
		if err != nil {
			return nil, fmt.Errorf("create azure credential: %w", err)
		}
		cred = c
	}
	client, err := azsecrets.NewClient(vaultURL, cred, nil)
	if err != nil {
		return nil, fmt.Errorf("create key vault client: %w", err)
	}
	return client, nil
}

// Resolve returns the explicit token, the Key Vault secret or DefaultToken,
// in that order. newClient is only called when a vault is configured.
func (s TokenSource) Resolve(ctx context.Context, newClient func(vaultURL string) (SecretGetter, error)) (string, error) {
	log := logging.FromContext(ctx)
	if s.Token != "" {
		log.Info(ctx, "api token from environment")
		return s.Token, nil
	}
	if s.VaultURL == "" || s.SecretName == "" {
		if s.VaultURL != "" || s.SecretName != "" {
			return "", fmt.Errorf("%s and %s must be set together", EnvKeyVaultURL, EnvAPITokenSecretName)
		}
		log.Warn(ctx, "no api token configured, using the demo token")
		return DefaultToken, nil
	}
	client, err := newClient(s.VaultURL)
	if err != nil {
		return "", err
	}
	res, err := client.GetSecret(ctx, s.SecretName, "", nil)
	if err != nil {
		return "", fmt.Errorf("get secret %s from %s: %w", s.SecretName, s.VaultURL, err)
	}
	if res.Value == nil || strings.TrimSpace(*res.Value) == "" {
		return "", fmt.Errorf("secret %s in %s is empty", s.SecretName, s.VaultURL)
	}
	log.Info(ctx, "api token from key vault", "vault", s.VaultURL, "secret", s.SecretName)
	return strings.TrimSpace(*res.Value), nil
}
