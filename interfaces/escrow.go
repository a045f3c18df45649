package interfaces

import (
	"time"
)

// SignerPublicKey is the public half of a party's signing key pair.
// Material is a fixed-size byte string; its length is a construction
// parameter of the signature engine, not a protocol requirement.
type SignerPublicKey struct {
	KeyID     string    `json:"key_id"`
	OwnerID   string    `json:"owner_id"`
	Role      PartyRole `json:"role"`
	Material  []byte    `json:"material"`
	CreatedAt time.Time `json:"created_at"`
}

// SignerPrivateKey is the private half of a party's signing key pair.
// It never appears inside an Escrow record.
type SignerPrivateKey struct {
	KeyID     string    `json:"key_id"`
	OwnerID   string    `json:"owner_id"`
	Role      PartyRole `json:"role"`
	Material  []byte    `json:"material"`
	CreatedAt time.Time `json:"created_at"`
}

// SignatureRecord is one party's signature over a message. Value and
// MessageHash are deterministic functions of (message, private key), so
// repeated signing is idempotent and duplicates are detectable.
type SignatureRecord struct {
	SignerID    string    `json:"signer_id"`
	Role        PartyRole `json:"role"`
	MessageHash string    `json:"message_hash"`
	Value       []byte    `json:"value"`
	SignedAt    time.Time `json:"signed_at"`
}

// AggregateSignature accumulates the individual signatures collected for a
// single message. Value is set once signatures for both roles are present
// and is a deterministic, order-independent function of the signature set.
type AggregateSignature struct {
	MessageHash string            `json:"message_hash"`
	Signatures  []SignatureRecord `json:"signatures"`
	Value       []byte            `json:"value,omitempty"`
	Verified    bool              `json:"verified"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// HasRole reports whether a signature by the given role is present.
func (a *AggregateSignature) HasRole(role PartyRole) bool {
	for _, sig := range a.Signatures {
		if sig.Role == role {
			return true
		}
	}
	return false
}

// Complete reports whether both roles have signed.
func (a *AggregateSignature) Complete() bool {
	return a.HasRole(RoleEmployee) && a.HasRole(RoleEmployer)
}

// SecretShare is one of exactly two shares of the custodial key material.
// Index is stable (1 for EMPLOYEE, 2 for EMPLOYER) and never reused.
// ProofDigest is the SHA-256 of Value, letting the orchestrator check a
// presented share against the original split without comparing values.
type SecretShare struct {
	Holder      PartyRole `json:"holder"`
	Index       int       `json:"index"`
	Value       []byte    `json:"value"`
	ProofDigest ContentID `json:"proof_digest"`
	CreatedAt   time.Time `json:"created_at"`
}

// SealedDocument is the envelope adapter's wire shape: the full output of a
// single envelope encryption, including the raw ciphertext body.
type SealedDocument struct {
	Algorithm       string `json:"algorithm"`
	EncapsulatedKey []byte `json:"encapsulated_key"`
	Nonce           []byte `json:"nonce"`
	Tag             []byte `json:"tag"`
	Ciphertext      []byte `json:"ciphertext"`
}

// EncryptedEnvelope is the envelope metadata retained on the escrow record.
// The ciphertext body is content-addressed and stored through a
// StorageBackend; only its id and size are kept here. Immutable once set.
type EncryptedEnvelope struct {
	Algorithm       string    `json:"algorithm"`
	EncapsulatedKey []byte    `json:"encapsulated_key"`
	Nonce           []byte    `json:"nonce"`
	Tag             []byte    `json:"tag"`
	CiphertextID    ContentID `json:"ciphertext_id"`
	CiphertextSize  int       `json:"ciphertext_size"`
	EncryptedAt     time.Time `json:"encrypted_at"`
}

// DocumentCommitment binds a document to a public commitment value. The
// blinding factor is retained so the service can re-verify locally; a
// commitment without a blinding factor is unverifiable, not an error.
type DocumentCommitment struct {
	Commitment  string    `json:"commitment"`
	Blinding    []byte    `json:"blinding,omitempty"`
	CommittedAt time.Time `json:"committed_at"`
}

// AuditEntry is immutable once appended. IntegrityHash chains over the
// previous entry's hash and this entry's own fields, so mutating or
// splicing any historical entry breaks every later link.
type AuditEntry struct {
	ID            string      `json:"id"`
	Action        AuditAction `json:"action"`
	ActorID       string      `json:"actor_id"`
	Timestamp     time.Time   `json:"timestamp"`
	Details       string      `json:"details"`
	IntegrityHash string      `json:"integrity_hash"`
}

// Escrow is the aggregate root: the custodial record holding an encrypted
// document, its split key material, its signatures, and its audit history.
// Orchestrator operations never mutate a stored record in place; they work
// on a Clone and store the new snapshot atomically.
type Escrow struct {
	ID           EscrowID     `json:"id"`
	TenantID     string       `json:"tenant_id"`
	SubjectID    string       `json:"subject_id"`
	RequestID    string       `json:"request_id"`
	DocumentType DocumentType `json:"document_type"`

	FileName string    `json:"file_name"`
	FileSize int64     `json:"file_size"`
	MimeType string    `json:"mime_type"`
	Checksum ContentID `json:"checksum"`

	Envelope   *EncryptedEnvelope  `json:"envelope"`
	Shares     []SecretShare       `json:"shares"`
	Commitment *DocumentCommitment `json:"commitment"`

	Signers   map[PartyRole]SignerPublicKey `json:"signers"`
	Aggregate *AggregateSignature           `json:"aggregate,omitempty"`

	Status EscrowStatus `json:"status"`

	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
	ExpiresAt       time.Time  `json:"expires_at"`
	ReleasedAt      *time.Time `json:"released_at,omitempty"`
	ReconstructedAt *time.Time `json:"reconstructed_at,omitempty"`

	AuditTrail []AuditEntry `json:"audit_trail"`
}

// Clone returns a deep copy suitable for copy-on-write updates.
func (e *Escrow) Clone() *Escrow {
	clone := *e

	if e.Envelope != nil {
		env := *e.Envelope
		env.EncapsulatedKey = append([]byte(nil), e.Envelope.EncapsulatedKey...)
		env.Nonce = append([]byte(nil), e.Envelope.Nonce...)
		env.Tag = append([]byte(nil), e.Envelope.Tag...)
		clone.Envelope = &env
	}

	clone.Shares = make([]SecretShare, len(e.Shares))
	for i, share := range e.Shares {
		share.Value = append([]byte(nil), share.Value...)
		clone.Shares[i] = share
	}

	if e.Commitment != nil {
		c := *e.Commitment
		c.Blinding = append([]byte(nil), e.Commitment.Blinding...)
		clone.Commitment = &c
	}

	clone.Signers = make(map[PartyRole]SignerPublicKey, len(e.Signers))
	for role, key := range e.Signers {
		key.Material = append([]byte(nil), key.Material...)
		clone.Signers[role] = key
	}

	if e.Aggregate != nil {
		agg := *e.Aggregate
		agg.Value = append([]byte(nil), e.Aggregate.Value...)
		agg.Signatures = make([]SignatureRecord, len(e.Aggregate.Signatures))
		for i, sig := range e.Aggregate.Signatures {
			sig.Value = append([]byte(nil), sig.Value...)
			agg.Signatures[i] = sig
		}
		clone.Aggregate = &agg
	}

	if e.ReleasedAt != nil {
		t := *e.ReleasedAt
		clone.ReleasedAt = &t
	}
	if e.ReconstructedAt != nil {
		t := *e.ReconstructedAt
		clone.ReconstructedAt = &t
	}

	clone.AuditTrail = append([]AuditEntry(nil), e.AuditTrail...)

	return &clone
}

// ShareForRole returns the stored share held by the given role.
func (e *Escrow) ShareForRole(role PartyRole) (SecretShare, bool) {
	for _, share := range e.Shares {
		if share.Holder == role {
			return share, true
		}
	}
	return SecretShare{}, false
}

// LastAction returns the action tag of the newest audit entry.
func (e *Escrow) LastAction() AuditAction {
	if len(e.AuditTrail) == 0 {
		return ""
	}
	return e.AuditTrail[len(e.AuditTrail)-1].Action
}
