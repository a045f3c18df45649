package cryptoutils

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"io"

	"github.com/docvault/document-escrow-backend/interfaces"
)

// EnvelopeAlgorithm identifies the construction used by EnvelopeCipher.
const EnvelopeAlgorithm = "ECIES-P256-AES256GCM"

const (
	gcmNonceSize = 12
	gcmTagSize   = 16
)

// EnvelopeCipher implements interfaces.EnvelopeService using ECIES:
// ECDH key agreement with a fresh ephemeral P-256 key, SHA-256 for key
// derivation, and AES-256-GCM for authenticated encryption.
type EnvelopeCipher struct{}

// NewEnvelopeCipher creates the stateless envelope adapter.
func NewEnvelopeCipher() *EnvelopeCipher {
	return &EnvelopeCipher{}
}

// Encrypt seals document for the recipient's PEM-encoded public key. The
// ephemeral public key is returned as the encapsulated key; ciphertext and
// authentication tag are split into separate fields.
func (c *EnvelopeCipher) Encrypt(document, recipientPublicKeyPEM []byte) (interfaces.SealedDocument, error) {
	if len(document) == 0 {
		return interfaces.SealedDocument{}, interfaces.ErrEmptyDocument
	}

	publicKey, err := parsePublicKeyPEM(recipientPublicKeyPEM)
	if err != nil {
		return interfaces.SealedDocument{}, err
	}

	// Generate ephemeral key for ECIES encryption
	ephemeralKey, err := ecdsa.GenerateKey(publicKey.Curve, rand.Reader)
	if err != nil {
		return interfaces.SealedDocument{}, fmt.Errorf("failed to generate ephemeral key: %w", err)
	}

	// Derive shared secret using ECDH
	x, _ := publicKey.Curve.ScalarMult(publicKey.X, publicKey.Y, ephemeralKey.D.Bytes())
	sharedSecret := sha256.Sum256(x.Bytes())

	nonce := make([]byte, gcmNonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return interfaces.SealedDocument{}, fmt.Errorf("failed to generate nonce: %w", err)
	}

	aesBlock, err := aes.NewCipher(sharedSecret[:])
	if err != nil {
		return interfaces.SealedDocument{}, fmt.Errorf("failed to create cipher: %w", err)
	}

	aesGCM, err := cipher.NewGCM(aesBlock)
	if err != nil {
		return interfaces.SealedDocument{}, fmt.Errorf("failed to create GCM: %w", err)
	}

	sealed := aesGCM.Seal(nil, nonce, document, nil)
	split := len(sealed) - gcmTagSize

	return interfaces.SealedDocument{
		Algorithm:       EnvelopeAlgorithm,
		EncapsulatedKey: elliptic.Marshal(ephemeralKey.Curve, ephemeralKey.X, ephemeralKey.Y),
		Nonce:           nonce,
		Tag:             sealed[split:],
		Ciphertext:      sealed[:split],
	}, nil
}

// Decrypt opens a sealed document with the matching PEM private key. It
// re-derives the shared secret from the encapsulated ephemeral key and
// fails on any authentication mismatch.
func (c *EnvelopeCipher) Decrypt(sealed interfaces.SealedDocument, privateKeyPEM []byte) ([]byte, error) {
	if sealed.Algorithm != EnvelopeAlgorithm {
		return nil, fmt.Errorf("unsupported envelope algorithm: %q", sealed.Algorithm)
	}
	if len(sealed.Nonce) != gcmNonceSize || len(sealed.Tag) != gcmTagSize {
		return nil, errors.New("sealed document has invalid format")
	}

	block, _ := pem.Decode(privateKeyPEM)
	if block == nil {
		return nil, fmt.Errorf("%w: failed to decode private key PEM", interfaces.ErrMalformedKey)
	}

	privateKey, err := x509.ParseECPrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse private key: %v", interfaces.ErrMalformedKey, err)
	}

	x, y := elliptic.Unmarshal(privateKey.Curve, sealed.EncapsulatedKey)
	if x == nil {
		return nil, errors.New("failed to unmarshal encapsulated key")
	}

	// Derive shared secret using ECDH
	xShared, _ := privateKey.Curve.ScalarMult(x, y, privateKey.D.Bytes())
	sharedSecret := sha256.Sum256(xShared.Bytes())

	aesBlock, err := aes.NewCipher(sharedSecret[:])
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	aesGCM, err := cipher.NewGCM(aesBlock)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	combined := append(append([]byte(nil), sealed.Ciphertext...), sealed.Tag...)
	plaintext, err := aesGCM.Open(nil, sealed.Nonce, combined, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt: %w", err)
	}

	return plaintext, nil
}

func parsePublicKeyPEM(publicKeyPEM []byte) (*ecdsa.PublicKey, error) {
	block, _ := pem.Decode(publicKeyPEM)
	if block == nil {
		return nil, fmt.Errorf("%w: failed to decode public key PEM", interfaces.ErrMalformedKey)
	}

	publicKeyInterface, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse public key: %v", interfaces.ErrMalformedKey, err)
	}

	publicKey, ok := publicKeyInterface.(*ecdsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("%w: not an ECDSA public key", interfaces.ErrMalformedKey)
	}
	return publicKey, nil
}
