// Package tlsutil generates self-signed certificates for backends running
// without cert-manager.
package tlsutil

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"errors"
	"fmt"
	"math/big"
	"net"
	"time"
)

// DefaultValidityDays is used when SelfSignedOptions.ValidityDays is zero.
const DefaultValidityDays = 365

// SelfSignedOptions configures GenerateSelfSigned.
type SelfSignedOptions struct {
	Host         string
	Organization string
	ValidityDays int
	Now          func() time.Time
}

// KeyPair holds PEM encoded certificate and private key.
type KeyPair struct {
	CertPEM  []byte
	KeyPEM   []byte
	NotAfter time.Time
}

// GenerateSelfSigned creates an ECDSA P-256 certificate for opts.Host.
// IP hosts become IP SANs, everything else a DNS SAN.
func GenerateSelfSigned(opts SelfSignedOptions) (*KeyPair, error) {
	if opts.Host == "" {
		return nil, errors.New("host is required")
	}
	days := opts.ValidityDays
	if days == 0 {
		days = DefaultValidityDays
	}
	if days < 0 {
		return nil, fmt.Errorf("invalid validity days: %d", days)
	}
	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}
	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return nil, fmt.Errorf("generate serial: %w", err)
	}

	notBefore := now().Add(-5 * time.Minute).UTC()
	tmpl := &x509.Certificate{
		SerialNumber:          serial,
		Subject:               pkix.Name{CommonName: opts.Host},
		NotBefore:             notBefore,
		NotAfter:              notBefore.Add(time.Duration(days) * 24 * time.Hour),
		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageKeyEncipherment,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
	}
	if opts.Organization != "" {
		tmpl.Subject.Organization = []string{opts.Organization}
	}
	if ip := net.ParseIP(opts.Host); ip != nil {
		tmpl.IPAddresses = []net.IP{ip}
	} else {
		tmpl.DNSNames = []string{opts.Host}
	}

	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	if err != nil {
		return nil, fmt.Errorf("create certificate: %w", err)
	}
	keyDER, err := x509.MarshalECPrivateKey(key)
	if err != nil {
		return nil, fmt.Errorf("marshal key: %w", err)
	}
	return &KeyPair{
		CertPEM:  pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}),
		KeyPEM:   pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDER}),
		NotAfter: tmpl.NotAfter,
	}, nil
}

// ParseCertificate decodes the first CERTIFICATE block of certPEM.
func ParseCertificate(certPEM []byte) (*x509.Certificate, error) {
	for {
		var block *pem.Block
		block, certPEM = pem.Decode(certPEM)
		if block == nil {
			return nil, errors.New("no certificate PEM block found")
		}
		if block.Type == "CERTIFICATE" {
			return x509.ParseCertificate(block.Bytes)
		}
	}
}
