package cryptoutils

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"fmt"
)

// GenerateCustodialKeyPair creates a fresh P-256 key pair for a single
// escrow. Returns the private and public halves in PEM format. The private
// half is meant to be split between the parties right after the envelope is
// sealed, then erased.
func GenerateCustodialKeyPair() (privateKeyPEM, publicKeyPEM []byte, err error) {
	privateKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to generate custodial key: %w", err)
	}

	privBytes, err := x509.MarshalECPrivateKey(privateKey)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal private key: %w", err)
	}

	pubBytes, err := x509.MarshalPKIXPublicKey(&privateKey.PublicKey)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal public key: %w", err)
	}

	privateKeyPEM = pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: privBytes})
	publicKeyPEM = pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubBytes})
	return privateKeyPEM, publicKeyPEM, nil
}

// WipeBytes securely overwrites sensitive data in memory.
func WipeBytes(data []byte) {
	for i := range data {
		data[i] = 0
	}
}
