package interfaces

// SignatureEngine produces, combines, and verifies per-party signatures over
// a shared message without a trusted third party merging them.
//
// Verification failures are boolean outcomes, never errors: "not verified"
// is a normal, expected result callers branch on. Structural misuse (empty
// aggregation input, mismatched messages) is an error, since it indicates a
// programming mistake rather than an adversarial input.
type SignatureEngine interface {
	// GenerateKeyPair creates a key pair tagged with a fresh key id, the
	// owner id, the owner role, and a creation timestamp. Key material is
	// fixed-size and uncorrelated across independent calls.
	GenerateKeyPair(ownerID string, role PartyRole) (SignerPublicKey, SignerPrivateKey, error)

	// Sign produces a signature record over message. Signature bytes and
	// message hash are deterministic in (message, key).
	Sign(message []byte, key SignerPrivateKey) (SignatureRecord, error)

	// Verify checks an individual signature against a message and the
	// signer's public key. False if the signer id does not match the key
	// owner, the message hash is stale, or the signature does not verify.
	Verify(sig SignatureRecord, message []byte, key SignerPublicKey) bool

	// Aggregate combines a non-empty set of signatures over the same
	// message hash into one aggregate. The aggregate value is
	// order-independent: any permutation of the same set yields the same
	// bytes. Errors on an empty set or mixed message hashes.
	Aggregate(sigs []SignatureRecord) (AggregateSignature, error)

	// VerifyAggregate returns a copy of the aggregate with its Verified
	// flag set. The flag is true only if the message hash matches, every
	// individual signature verifies against a supplied public key with a
	// matching owner id, and the recomputed aggregate value equals the
	// stored one.
	VerifyAggregate(agg AggregateSignature, message []byte, keys []SignerPublicKey) AggregateSignature

	// CoSign signs the message with both parties' keys and aggregates the
	// two signatures.
	CoSign(message []byte, employee, employer SignerPrivateKey) (AggregateSignature, error)

	// VerifyCoSigned confirms both an EMPLOYEE and an EMPLOYER signature
	// are present, then runs VerifyAggregate.
	VerifyCoSigned(agg AggregateSignature, message []byte, employeeKey, employerKey SignerPublicKey) AggregateSignature
}

// EnvelopeService is the asymmetric envelope encryption collaborator. The
// adapter validates inputs (non-empty document, parseable keys) and
// translates errors; it holds no state.
type EnvelopeService interface {
	// Encrypt seals document for the recipient's PEM-encoded public key.
	Encrypt(document, recipientPublicKeyPEM []byte) (SealedDocument, error)

	// Decrypt opens a sealed document with the matching PEM private key.
	Decrypt(sealed SealedDocument, privateKeyPEM []byte) ([]byte, error)
}

// SecretSplitter is the fixed 2-of-2 threshold splitting collaborator.
type SecretSplitter interface {
	// Split produces exactly two shares of secret: index 1 held by
	// EMPLOYEE, index 2 held by EMPLOYER.
	Split(secret []byte) ([]SecretShare, error)

	// Combine reconstructs the secret from both shares. Errors if the
	// shares are missing, mis-indexed, or inconsistent.
	Combine(employeeShare, employerShare SecretShare) ([]byte, error)
}

// CommitmentScheme binds documents to public commitment values.
type CommitmentScheme interface {
	// Commit computes a commitment over document. When blinding is nil a
	// cryptographically strong blinding factor is generated; it is
	// retained in the returned record for local re-verification.
	Commit(document, blinding []byte) (DocumentCommitment, error)

	// VerifyCommitment recomputes the commitment from the document and the
	// stored blinding factor. Returns false, never an error, when the
	// blinding factor is absent or the value does not match.
	VerifyCommitment(document []byte, c DocumentCommitment) bool
}

// EscrowRepository is the injected store of escrow record snapshots.
// Implementations return independent snapshots: mutating a returned record
// never affects the stored one until Put replaces it.
type EscrowRepository interface {
	// Get returns the current snapshot for id, or ErrEscrowNotFound.
	Get(id EscrowID) (*Escrow, error)

	// Put stores a new snapshot, inserting or replacing by id.
	Put(escrow *Escrow) error

	// ListByTenant returns all escrows classified under the tenant.
	ListByTenant(tenantID string) []*Escrow

	// ListBySubject returns all escrows whose document owner is subjectID.
	ListBySubject(subjectID string) []*Escrow

	// Purge removes all records. Test and administrative use only.
	Purge()
}
