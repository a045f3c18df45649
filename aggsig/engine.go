package aggsig

import (
	"bytes"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/cloudflare/circl/sign/bls"
	"github.com/docvault/document-escrow-backend/interfaces"
	"github.com/google/uuid"
)

// Key and signature sizes for the chosen construction (min-pubkey-size BLS).
const (
	PublicKeySize  = 48
	PrivateKeySize = 32
	SignatureSize  = 96
)

// Engine implements interfaces.SignatureEngine over BLS12-381.
type Engine struct{}

// NewEngine creates a stateless BLS signature engine.
func NewEngine() *Engine {
	return &Engine{}
}

// GenerateKeyPair derives a fresh BLS key pair from 32 bytes of random input
// keying material. Key material is uncorrelated across calls.
func (e *Engine) GenerateKeyPair(ownerID string, role interfaces.PartyRole) (interfaces.SignerPublicKey, interfaces.SignerPrivateKey, error) {
	if ownerID == "" {
		return interfaces.SignerPublicKey{}, interfaces.SignerPrivateKey{}, errors.New("owner id must not be empty")
	}
	if !role.Valid() {
		return interfaces.SignerPublicKey{}, interfaces.SignerPrivateKey{}, fmt.Errorf("invalid owner role: %q", role)
	}

	ikm := make([]byte, 32)
	if _, err := rand.Read(ikm); err != nil {
		return interfaces.SignerPublicKey{}, interfaces.SignerPrivateKey{}, fmt.Errorf("failed to sample keying material: %w", err)
	}

	priv, err := bls.KeyGen[bls.G1](ikm, nil, nil)
	if err != nil {
		return interfaces.SignerPublicKey{}, interfaces.SignerPrivateKey{}, fmt.Errorf("BLS key generation failed: %w", err)
	}

	privBytes, err := priv.MarshalBinary()
	if err != nil {
		return interfaces.SignerPublicKey{}, interfaces.SignerPrivateKey{}, fmt.Errorf("failed to marshal private key: %w", err)
	}

	pubBytes, err := priv.PublicKey().MarshalBinary()
	if err != nil {
		return interfaces.SignerPublicKey{}, interfaces.SignerPrivateKey{}, fmt.Errorf("failed to marshal public key: %w", err)
	}

	keyID := uuid.NewString()
	now := time.Now().UTC()

	public := interfaces.SignerPublicKey{
		KeyID:     keyID,
		OwnerID:   ownerID,
		Role:      role,
		Material:  pubBytes,
		CreatedAt: now,
	}
	private := interfaces.SignerPrivateKey{
		KeyID:     keyID,
		OwnerID:   ownerID,
		Role:      role,
		Material:  privBytes,
		CreatedAt: now,
	}
	return public, private, nil
}

// Sign produces a deterministic BLS signature over message. The record
// carries the signer identity, the role, and the SHA-256 hash of the
// message so duplicates are detectable downstream.
func (e *Engine) Sign(message []byte, key interfaces.SignerPrivateKey) (interfaces.SignatureRecord, error) {
	if len(message) == 0 {
		return interfaces.SignatureRecord{}, errors.New("message must not be empty")
	}

	priv, err := unmarshalPrivateKey(key.Material)
	if err != nil {
		return interfaces.SignatureRecord{}, err
	}

	return interfaces.SignatureRecord{
		SignerID:    key.OwnerID,
		Role:        key.Role,
		MessageHash: messageHash(message),
		Value:       bls.Sign(priv, message),
		SignedAt:    time.Now().UTC(),
	}, nil
}

// Verify checks an individual signature. False when the signer id does not
// match the key owner, the message hash is stale, or the BLS verification
// relation does not hold.
func (e *Engine) Verify(sig interfaces.SignatureRecord, message []byte, key interfaces.SignerPublicKey) bool {
	if sig.SignerID != key.OwnerID {
		return false
	}
	if sig.MessageHash != messageHash(message) {
		return false
	}

	pub, err := unmarshalPublicKey(key.Material)
	if err != nil {
		return false
	}
	return bls.Verify(pub, message, sig.Value)
}

// Aggregate combines the signatures into a single compact value. Errors on
// an empty set or on signatures covering different message hashes.
func (e *Engine) Aggregate(sigs []interfaces.SignatureRecord) (interfaces.AggregateSignature, error) {
	if len(sigs) == 0 {
		return interfaces.AggregateSignature{}, interfaces.ErrEmptyAggregation
	}

	msgHash := sigs[0].MessageHash
	values := make([]bls.Signature, 0, len(sigs))
	for _, sig := range sigs {
		if sig.MessageHash != msgHash {
			return interfaces.AggregateSignature{}, fmt.Errorf("%w: %s vs %s", interfaces.ErrMessageMismatch, sig.MessageHash, msgHash)
		}
		values = append(values, sig.Value)
	}

	aggregate, err := bls.Aggregate(bls.G1{}, values)
	if err != nil {
		return interfaces.AggregateSignature{}, fmt.Errorf("BLS aggregation failed: %w", err)
	}

	return interfaces.AggregateSignature{
		MessageHash: msgHash,
		Signatures:  append([]interfaces.SignatureRecord(nil), sigs...),
		Value:       aggregate,
		UpdatedAt:   time.Now().UTC(),
	}, nil
}

// VerifyAggregate returns a copy of agg with the Verified flag set. The flag
// is true only if the message hash matches, every individual signature
// verifies against a supplied public key with a matching owner id, and the
// aggregate value recomputed from the individual signatures equals the
// stored value.
func (e *Engine) VerifyAggregate(agg interfaces.AggregateSignature, message []byte, keys []interfaces.SignerPublicKey) interfaces.AggregateSignature {
	result := agg
	result.Verified = false

	if len(agg.Signatures) == 0 || agg.MessageHash != messageHash(message) {
		return result
	}

	keysByOwner := make(map[string]interfaces.SignerPublicKey, len(keys))
	for _, key := range keys {
		keysByOwner[key.OwnerID] = key
	}

	values := make([]bls.Signature, 0, len(agg.Signatures))
	for _, sig := range agg.Signatures {
		key, ok := keysByOwner[sig.SignerID]
		if !ok {
			return result
		}
		if !e.Verify(sig, message, key) {
			return result
		}
		values = append(values, sig.Value)
	}

	recomputed, err := bls.Aggregate(bls.G1{}, values)
	if err != nil {
		return result
	}

	result.Verified = bytes.Equal(recomputed, agg.Value)
	return result
}

// CoSign signs message with both parties' keys and aggregates the pair.
func (e *Engine) CoSign(message []byte, employee, employer interfaces.SignerPrivateKey) (interfaces.AggregateSignature, error) {
	employeeSig, err := e.Sign(message, employee)
	if err != nil {
		return interfaces.AggregateSignature{}, fmt.Errorf("employee signature failed: %w", err)
	}

	employerSig, err := e.Sign(message, employer)
	if err != nil {
		return interfaces.AggregateSignature{}, fmt.Errorf("employer signature failed: %w", err)
	}

	return e.Aggregate([]interfaces.SignatureRecord{employeeSig, employerSig})
}

// VerifyCoSigned confirms both roles are present in the aggregate before
// running the full aggregate verification.
func (e *Engine) VerifyCoSigned(agg interfaces.AggregateSignature, message []byte, employeeKey, employerKey interfaces.SignerPublicKey) interfaces.AggregateSignature {
	if !agg.HasRole(interfaces.RoleEmployee) || !agg.HasRole(interfaces.RoleEmployer) {
		result := agg
		result.Verified = false
		return result
	}
	return e.VerifyAggregate(agg, message, []interfaces.SignerPublicKey{employeeKey, employerKey})
}

func messageHash(message []byte) string {
	hash := sha256.Sum256(message)
	return hex.EncodeToString(hash[:])
}

func unmarshalPrivateKey(material []byte) (*bls.PrivateKey[bls.G1], error) {
	if len(material) != PrivateKeySize {
		return nil, fmt.Errorf("%w: private key must be %d bytes", interfaces.ErrMalformedKey, PrivateKeySize)
	}
	priv := new(bls.PrivateKey[bls.G1])
	if err := priv.UnmarshalBinary(material); err != nil {
		return nil, fmt.Errorf("%w: %v", interfaces.ErrMalformedKey, err)
	}
	return priv, nil
}

func unmarshalPublicKey(material []byte) (*bls.PublicKey[bls.G1], error) {
	if len(material) != PublicKeySize {
		return nil, fmt.Errorf("%w: public key must be %d bytes", interfaces.ErrMalformedKey, PublicKeySize)
	}
	pub := new(bls.PublicKey[bls.G1])
	if err := pub.UnmarshalBinary(material); err != nil {
		return nil, fmt.Errorf("%w: %v", interfaces.ErrMalformedKey, err)
	}
	return pub, nil
}
