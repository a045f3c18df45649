package escrow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/docvault/document-escrow-backend/cryptoutils"
	"github.com/docvault/document-escrow-backend/interfaces"
)

// DefaultTTL is the retention period applied when a create request does not
// specify one.
const DefaultTTL = 90 * 24 * time.Hour

// Service orchestrates the escrow lifecycle against injected collaborators.
// It holds no protocol state of its own; records live in the repository and
// ciphertext bodies in the storage backend.
type Service struct {
	repo        interfaces.EscrowRepository
	engine      interfaces.SignatureEngine
	envelopes   interfaces.EnvelopeService
	splitter    interfaces.SecretSplitter
	commitments interfaces.CommitmentScheme
	blobs       interfaces.StorageBackend
	log         *slog.Logger

	locks sync.Map
}

// Config carries the collaborators a Service is wired with.
type Config struct {
	Repository  interfaces.EscrowRepository
	Engine      interfaces.SignatureEngine
	Envelopes   interfaces.EnvelopeService
	Splitter    interfaces.SecretSplitter
	Commitments interfaces.CommitmentScheme
	Blobs       interfaces.StorageBackend
	Log         *slog.Logger
}

// NewService wires an orchestrator from its collaborators.
func NewService(cfg *Config) (*Service, error) {
	if cfg.Repository == nil || cfg.Engine == nil || cfg.Envelopes == nil ||
		cfg.Splitter == nil || cfg.Commitments == nil || cfg.Blobs == nil {
		return nil, errors.New("escrow service requires all collaborators")
	}

	log := cfg.Log
	if log == nil {
		log = slog.Default()
	}

	return &Service{
		repo:        cfg.Repository,
		engine:      cfg.Engine,
		envelopes:   cfg.Envelopes,
		splitter:    cfg.Splitter,
		commitments: cfg.Commitments,
		blobs:       cfg.Blobs,
		log:         log,
	}, nil
}

// CreateRequest carries the inputs for placing a document in escrow. Each
// party generates its own signing key pair through the signature engine and
// submits only the public half; private halves never pass through this
// service.
type CreateRequest struct {
	TenantID     string                  `json:"tenant_id"`
	SubjectID    string                  `json:"subject_id"`
	RequestID    string                  `json:"request_id"`
	ActorID      string                  `json:"actor_id"`
	DocumentType interfaces.DocumentType `json:"document_type"`
	FileName     string                  `json:"file_name"`
	MimeType     string                  `json:"mime_type"`
	Document     []byte                  `json:"document"`
	TTL          time.Duration           `json:"ttl,omitempty"`

	EmployeeKey interfaces.SignerPublicKey `json:"employee_key"`
	EmployerKey interfaces.SignerPublicKey `json:"employer_key"`
}

// CreateResult returns the stored record snapshot.
type CreateResult struct {
	Success bool               `json:"success"`
	Message string             `json:"message,omitempty"`
	Escrow  *interfaces.Escrow `json:"escrow,omitempty"`
}

// Create seals a document, splits its custodial key between the parties,
// commits to the plaintext, registers both parties' submitted signing keys,
// and stores the initial record. The custodial private key exists only for
// the duration of this call.
func (s *Service) Create(ctx context.Context, req *CreateRequest) (*CreateResult, error) {
	if len(req.Document) == 0 {
		return nil, interfaces.ErrEmptyDocument
	}
	if !req.DocumentType.Valid() {
		return nil, fmt.Errorf("unknown document type: %q", req.DocumentType)
	}
	if req.TenantID == "" || req.SubjectID == "" {
		return nil, errors.New("tenant id and subject id are required")
	}
	if err := validatePartyKey(req.EmployeeKey, interfaces.RoleEmployee); err != nil {
		return nil, err
	}
	if err := validatePartyKey(req.EmployerKey, interfaces.RoleEmployer); err != nil {
		return nil, err
	}

	checksum := interfaces.ComputeID(req.Document)

	custodialPriv, custodialPub, err := cryptoutils.GenerateCustodialKeyPair()
	if err != nil {
		return nil, fmt.Errorf("failed to generate custodial key pair: %w", err)
	}
	defer cryptoutils.WipeBytes(custodialPriv)

	sealed, err := s.envelopes.Encrypt(req.Document, custodialPub)
	if err != nil {
		return nil, fmt.Errorf("failed to seal document: %w", err)
	}

	ciphertextID, err := s.blobs.Store(ctx, sealed.Ciphertext, interfaces.EnvelopeContent)
	if err != nil {
		return nil, fmt.Errorf("failed to store ciphertext: %w", err)
	}

	shares, err := s.splitter.Split(custodialPriv)
	if err != nil {
		return nil, fmt.Errorf("failed to split custodial key: %w", err)
	}

	commitment, err := s.commitments.Commit(req.Document, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to commit to document: %w", err)
	}

	ttl := req.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	now := time.Now().UTC()
	record := &interfaces.Escrow{
		ID:           interfaces.NewEscrowID(),
		TenantID:     req.TenantID,
		SubjectID:    req.SubjectID,
		RequestID:    req.RequestID,
		DocumentType: req.DocumentType,
		FileName:     req.FileName,
		FileSize:     int64(len(req.Document)),
		MimeType:     req.MimeType,
		Checksum:     checksum,
		Envelope: &interfaces.EncryptedEnvelope{
			Algorithm:       sealed.Algorithm,
			EncapsulatedKey: sealed.EncapsulatedKey,
			Nonce:           sealed.Nonce,
			Tag:             sealed.Tag,
			CiphertextID:    ciphertextID,
			CiphertextSize:  len(sealed.Ciphertext),
			EncryptedAt:     now,
		},
		Shares:     shares,
		Commitment: &commitment,
		Signers: map[interfaces.PartyRole]interfaces.SignerPublicKey{
			interfaces.RoleEmployee: req.EmployeeKey,
			interfaces.RoleEmployer: req.EmployerKey,
		},
		Status:    interfaces.StatusCreated,
		CreatedAt: now,
		UpdatedAt: now,
		ExpiresAt: now.Add(ttl),
	}

	actor := req.ActorID
	if actor == "" {
		actor = req.TenantID
	}
	record.AuditTrail = append(record.AuditTrail, newAuditEntry(nil,
		interfaces.ActionEscrowCreated, actor,
		fmt.Sprintf("type=%s file=%s size=%d checksum=%s",
			req.DocumentType, req.FileName, len(req.Document), checksum)))

	if err := s.repo.Put(record); err != nil {
		return nil, fmt.Errorf("failed to store escrow record: %w", err)
	}

	s.log.Info("escrow created",
		"escrow_id", record.ID,
		"tenant_id", record.TenantID,
		"document_type", record.DocumentType,
		"ciphertext_id", ciphertextID.String())

	return &CreateResult{Success: true, Escrow: record.Clone()}, nil
}

// validatePartyKey checks a submitted public key against the slot it is
// meant to fill.
func validatePartyKey(key interfaces.SignerPublicKey, role interfaces.PartyRole) error {
	if key.Role != role {
		return fmt.Errorf("%w: %s slot holds a key tagged %q", interfaces.ErrMalformedKey, role, key.Role)
	}
	if key.KeyID == "" || key.OwnerID == "" || len(key.Material) == 0 {
		return fmt.Errorf("%w: %s key is missing id, owner, or key material", interfaces.ErrMalformedKey, role)
	}
	return nil
}

// SignRequest presents a party's signing key for a signature round. The key
// must be the private half handed out at creation.
type SignRequest struct {
	EscrowID interfaces.EscrowID         `json:"escrow_id"`
	Key      interfaces.SignerPrivateKey `json:"key"`
}

// SignResult reports the state after a signature round.
type SignResult struct {
	Success bool                    `json:"success"`
	Message string                  `json:"message,omitempty"`
	Status  interfaces.EscrowStatus `json:"status,omitempty"`
	Escrow  *interfaces.Escrow      `json:"escrow,omitempty"`
}

// Sign collects one party's signature over the document checksum. A repeat
// signature by the same role replaces the earlier one. Once both roles have
// signed, the signatures are aggregated and verified and the escrow becomes
// fully signed.
func (s *Service) Sign(req *SignRequest) (*SignResult, error) {
	if !req.Key.Role.Valid() {
		return nil, fmt.Errorf("unknown party role: %q", req.Key.Role)
	}

	mu := s.lockFor(req.EscrowID)
	mu.Lock()
	defer mu.Unlock()

	record, err := s.repo.Get(req.EscrowID)
	if err != nil {
		if errors.Is(err, interfaces.ErrEscrowNotFound) {
			return &SignResult{Message: "escrow not found"}, nil
		}
		return nil, err
	}

	if !canSign(record.Status) {
		return &SignResult{
			Message: fmt.Sprintf("escrow in state %s does not accept signatures", record.Status),
			Status:  record.Status,
		}, nil
	}

	stored, ok := record.Signers[req.Key.Role]
	if !ok || stored.KeyID != req.Key.KeyID || stored.OwnerID != req.Key.OwnerID {
		return &SignResult{Message: "signing key does not match the key registered at creation", Status: record.Status}, nil
	}

	updated := record.Clone()
	message := updated.Checksum.Bytes()

	sig, err := s.engine.Sign(message, req.Key)
	if err != nil {
		return nil, fmt.Errorf("failed to sign: %w", err)
	}
	if !s.engine.Verify(sig, message, stored) {
		return &SignResult{Message: "signature did not verify against the registered key", Status: record.Status}, nil
	}

	sigs := []interfaces.SignatureRecord{sig}
	if updated.Aggregate != nil {
		for _, existing := range updated.Aggregate.Signatures {
			if existing.Role != req.Key.Role {
				sigs = append(sigs, existing)
			}
		}
	}

	agg, err := s.engine.Aggregate(sigs)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate signatures: %w", err)
	}

	if agg.Complete() {
		agg = s.engine.VerifyCoSigned(agg, message,
			updated.Signers[interfaces.RoleEmployee],
			updated.Signers[interfaces.RoleEmployer])
		if !agg.Verified {
			return &SignResult{Message: "aggregate signature did not verify", Status: record.Status}, nil
		}
	}

	updated.Aggregate = &agg
	updated.Status = statusAfterSign(&agg, req.Key.Role)
	updated.UpdatedAt = time.Now().UTC()
	updated.AuditTrail = append(updated.AuditTrail, newAuditEntry(updated.AuditTrail,
		interfaces.SignedByAction(req.Key.Role), req.Key.OwnerID,
		fmt.Sprintf("key_id=%s message_hash=%s", req.Key.KeyID, sig.MessageHash)))

	if err := s.repo.Put(updated); err != nil {
		return nil, fmt.Errorf("failed to store escrow record: %w", err)
	}

	s.log.Info("escrow signed",
		"escrow_id", updated.ID,
		"role", req.Key.Role,
		"status", updated.Status)

	return &SignResult{Success: true, Status: updated.Status, Escrow: updated.Clone()}, nil
}

// ReleaseRequest carries the explicit consent of both parties and the
// requester's stated reason, which lands in the audit trail.
type ReleaseRequest struct {
	EscrowID        interfaces.EscrowID `json:"escrow_id"`
	ActorID         string              `json:"actor_id"`
	Reason          string              `json:"reason,omitempty"`
	EmployeeConsent bool                `json:"employee_consent"`
	EmployerConsent bool                `json:"employer_consent"`
}

// ReleaseResult reports the release outcome.
type ReleaseResult struct {
	Success bool                    `json:"success"`
	Message string                  `json:"message,omitempty"`
	Status  interfaces.EscrowStatus `json:"status,omitempty"`
	Escrow  *interfaces.Escrow      `json:"escrow,omitempty"`
}

// Release moves a fully signed escrow to RELEASED. Both parties must
// consent; a missing consent is an expected failure, not an error.
func (s *Service) Release(req *ReleaseRequest) (*ReleaseResult, error) {
	mu := s.lockFor(req.EscrowID)
	mu.Lock()
	defer mu.Unlock()

	record, err := s.repo.Get(req.EscrowID)
	if err != nil {
		if errors.Is(err, interfaces.ErrEscrowNotFound) {
			return &ReleaseResult{Message: "escrow not found"}, nil
		}
		return nil, err
	}

	if !req.EmployeeConsent {
		return &ReleaseResult{Message: "missing consent from EMPLOYEE", Status: record.Status}, nil
	}
	if !req.EmployerConsent {
		return &ReleaseResult{Message: "missing consent from EMPLOYER", Status: record.Status}, nil
	}
	if !canRelease(record.Status) {
		return &ReleaseResult{
			Message: fmt.Sprintf("escrow in state %s is not ready for release", record.Status),
			Status:  record.Status,
		}, nil
	}

	updated := record.Clone()
	now := time.Now().UTC()
	updated.Status = interfaces.StatusReleased
	updated.ReleasedAt = &now
	updated.UpdatedAt = now
	reason := req.Reason
	if reason == "" {
		reason = "both parties consented"
	}
	updated.AuditTrail = append(updated.AuditTrail, newAuditEntry(updated.AuditTrail,
		interfaces.ActionEscrowReleased, req.ActorID, reason))

	if err := s.repo.Put(updated); err != nil {
		return nil, fmt.Errorf("failed to store escrow record: %w", err)
	}

	s.log.Info("escrow released", "escrow_id", updated.ID)
	return &ReleaseResult{Success: true, Status: updated.Status, Escrow: updated.Clone()}, nil
}

// ReconstructRequest presents both parties' secret shares for document
// recovery. Purpose states why the document is being recovered and is
// recorded in the audit trail.
type ReconstructRequest struct {
	EscrowID      interfaces.EscrowID    `json:"escrow_id"`
	ActorID       string                 `json:"actor_id"`
	Purpose       string                 `json:"purpose,omitempty"`
	EmployeeShare interfaces.SecretShare `json:"employee_share"`
	EmployerShare interfaces.SecretShare `json:"employer_share"`
}

// ReconstructResult carries the recovered document and the outcome of each
// independent integrity check.
type ReconstructResult struct {
	Success bool                    `json:"success"`
	Message string                  `json:"message,omitempty"`
	Status  interfaces.EscrowStatus `json:"status,omitempty"`

	Document           []byte `json:"document,omitempty"`
	ChecksumMatch      bool   `json:"checksum_match"`
	CommitmentVerified bool   `json:"commitment_verified"`
	SignatureValid     bool   `json:"signature_valid"`
}

// Reconstruct recombines the custodial key from both presented shares, opens
// the envelope, and reports the recovered document alongside checksum,
// commitment, and aggregate signature verification outcomes. Shares are
// checked against the digests recorded at split time before any arithmetic
// runs.
func (s *Service) Reconstruct(ctx context.Context, req *ReconstructRequest) (*ReconstructResult, error) {
	mu := s.lockFor(req.EscrowID)
	mu.Lock()
	defer mu.Unlock()

	record, err := s.repo.Get(req.EscrowID)
	if err != nil {
		if errors.Is(err, interfaces.ErrEscrowNotFound) {
			return &ReconstructResult{Message: "escrow not found"}, nil
		}
		return nil, err
	}

	if !canReconstruct(record.Status) {
		return &ReconstructResult{
			Message: fmt.Sprintf("escrow in state %s cannot be reconstructed", record.Status),
			Status:  record.Status,
		}, nil
	}

	if msg := s.checkPresentedShare(record, req.EmployeeShare, interfaces.RoleEmployee); msg != "" {
		return &ReconstructResult{Message: msg, Status: record.Status}, nil
	}
	if msg := s.checkPresentedShare(record, req.EmployerShare, interfaces.RoleEmployer); msg != "" {
		return &ReconstructResult{Message: msg, Status: record.Status}, nil
	}

	custodialPriv, err := s.splitter.Combine(req.EmployeeShare, req.EmployerShare)
	if err != nil {
		if errors.Is(err, interfaces.ErrInvalidShares) {
			return &ReconstructResult{Message: err.Error(), Status: record.Status}, nil
		}
		return nil, fmt.Errorf("failed to combine shares: %w", err)
	}
	defer cryptoutils.WipeBytes(custodialPriv)

	ciphertext, err := s.blobs.Fetch(ctx, record.Envelope.CiphertextID, interfaces.EnvelopeContent)
	if err != nil {
		if errors.Is(err, interfaces.ErrContentNotFound) {
			return &ReconstructResult{
				Message: "ciphertext body is missing from storage",
				Status:  record.Status,
			}, nil
		}
		return nil, fmt.Errorf("failed to fetch ciphertext: %w", err)
	}

	sealed := interfaces.SealedDocument{
		Algorithm:       record.Envelope.Algorithm,
		EncapsulatedKey: record.Envelope.EncapsulatedKey,
		Nonce:           record.Envelope.Nonce,
		Tag:             record.Envelope.Tag,
		Ciphertext:      ciphertext,
	}
	document, err := s.envelopes.Decrypt(sealed, custodialPriv)
	if err != nil {
		return &ReconstructResult{
			Message: "failed to open the envelope with the reconstructed key",
			Status:  record.Status,
		}, nil
	}

	checksumMatch := interfaces.ComputeID(document).Equal(record.Checksum)

	commitmentVerified := false
	if record.Commitment != nil {
		commitmentVerified = s.commitments.VerifyCommitment(document, *record.Commitment)
	}

	signatureValid := false
	if record.Aggregate != nil && record.Aggregate.Complete() {
		signatureValid = s.engine.VerifyCoSigned(*record.Aggregate, record.Checksum.Bytes(),
			record.Signers[interfaces.RoleEmployee],
			record.Signers[interfaces.RoleEmployer]).Verified
	}

	updated := record.Clone()
	now := time.Now().UTC()
	updated.Status = interfaces.StatusReconstructed
	updated.ReconstructedAt = &now
	updated.UpdatedAt = now
	purpose := req.Purpose
	if purpose == "" {
		purpose = "unspecified"
	}
	updated.AuditTrail = append(updated.AuditTrail, newAuditEntry(updated.AuditTrail,
		interfaces.ActionDocumentReconstructed, req.ActorID,
		fmt.Sprintf("purpose=%s checksum_match=%t commitment_verified=%t signature_valid=%t",
			purpose, checksumMatch, commitmentVerified, signatureValid)))

	if err := s.repo.Put(updated); err != nil {
		return nil, fmt.Errorf("failed to store escrow record: %w", err)
	}

	s.log.Info("document reconstructed",
		"escrow_id", updated.ID,
		"checksum_match", checksumMatch,
		"commitment_verified", commitmentVerified,
		"signature_valid", signatureValid)

	return &ReconstructResult{
		Success:            true,
		Status:             updated.Status,
		Document:           document,
		ChecksumMatch:      checksumMatch,
		CommitmentVerified: commitmentVerified,
		SignatureValid:     signatureValid,
	}, nil
}

func (s *Service) checkPresentedShare(record *interfaces.Escrow, presented interfaces.SecretShare, role interfaces.PartyRole) string {
	stored, ok := record.ShareForRole(role)
	if !ok {
		return fmt.Sprintf("no stored share for role %s", role)
	}
	if !interfaces.ComputeID(presented.Value).Equal(stored.ProofDigest) {
		return fmt.Sprintf("presented %s share does not match the recorded split", role)
	}
	return ""
}

// OperationResult is the outcome of an administrative transition.
type OperationResult struct {
	Success bool                    `json:"success"`
	Message string                  `json:"message,omitempty"`
	Status  interfaces.EscrowStatus `json:"status,omitempty"`
}

// Dispute moves a non-terminal escrow to DISPUTED. Arbitration itself stays
// outside the service.
func (s *Service) Dispute(id interfaces.EscrowID, actorID, reason string) (*OperationResult, error) {
	return s.close(id, interfaces.StatusDisputed, interfaces.ActionEscrowDisputed, actorID, reason)
}

// Expire moves a non-terminal escrow to EXPIRED. Scheduling is the caller's
// concern.
func (s *Service) Expire(id interfaces.EscrowID, actorID, reason string) (*OperationResult, error) {
	return s.close(id, interfaces.StatusExpired, interfaces.ActionEscrowExpired, actorID, reason)
}

func (s *Service) close(id interfaces.EscrowID, status interfaces.EscrowStatus, action interfaces.AuditAction, actorID, reason string) (*OperationResult, error) {
	mu := s.lockFor(id)
	mu.Lock()
	defer mu.Unlock()

	record, err := s.repo.Get(id)
	if err != nil {
		if errors.Is(err, interfaces.ErrEscrowNotFound) {
			return &OperationResult{Message: "escrow not found"}, nil
		}
		return nil, err
	}

	if !canClose(record.Status) {
		return &OperationResult{
			Message: fmt.Sprintf("escrow in terminal state %s", record.Status),
			Status:  record.Status,
		}, nil
	}

	updated := record.Clone()
	updated.Status = status
	updated.UpdatedAt = time.Now().UTC()
	updated.AuditTrail = append(updated.AuditTrail, newAuditEntry(updated.AuditTrail, action, actorID, reason))

	if err := s.repo.Put(updated); err != nil {
		return nil, fmt.Errorf("failed to store escrow record: %w", err)
	}

	s.log.Info("escrow closed", "escrow_id", id, "status", status)
	return &OperationResult{Success: true, Status: status}, nil
}

// ExportResult reports a stored audit trail export.
type ExportResult struct {
	Success    bool                 `json:"success"`
	Message    string               `json:"message,omitempty"`
	ContentID  interfaces.ContentID `json:"content_id"`
	EntryCount int                  `json:"entry_count"`
}

// ExportAuditTrail serializes the escrow's audit trail to JSON and stores it
// content-addressed in the configured backend, giving tenants an external
// anchor for the chain head.
func (s *Service) ExportAuditTrail(ctx context.Context, id interfaces.EscrowID) (*ExportResult, error) {
	record, err := s.repo.Get(id)
	if err != nil {
		if errors.Is(err, interfaces.ErrEscrowNotFound) {
			return &ExportResult{Message: "escrow not found"}, nil
		}
		return nil, err
	}

	if broken := VerifyAuditTrail(record.AuditTrail); broken >= 0 {
		return &ExportResult{
			Message: fmt.Sprintf("audit trail integrity broken at entry %d", broken),
		}, nil
	}

	payload, err := json.Marshal(struct {
		EscrowID   interfaces.EscrowID     `json:"escrow_id"`
		Status     interfaces.EscrowStatus `json:"status"`
		AuditTrail []interfaces.AuditEntry `json:"audit_trail"`
	}{record.ID, record.Status, record.AuditTrail})
	if err != nil {
		return nil, fmt.Errorf("failed to serialize audit trail: %w", err)
	}

	contentID, err := s.blobs.Store(ctx, payload, interfaces.AuditExportContent)
	if err != nil {
		return nil, fmt.Errorf("failed to store audit export: %w", err)
	}

	s.log.Info("audit trail exported", "escrow_id", id, "content_id", contentID.String())
	return &ExportResult{Success: true, ContentID: contentID, EntryCount: len(record.AuditTrail)}, nil
}

// Get returns a snapshot of the escrow record.
func (s *Service) Get(id interfaces.EscrowID) (*interfaces.Escrow, error) {
	return s.repo.Get(id)
}

// ListByTenant returns snapshots of all escrows classified under a tenant.
func (s *Service) ListByTenant(tenantID string) []*interfaces.Escrow {
	return s.repo.ListByTenant(tenantID)
}

// ListBySubject returns snapshots of all escrows whose document owner is the
// subject.
func (s *Service) ListBySubject(subjectID string) []*interfaces.Escrow {
	return s.repo.ListBySubject(subjectID)
}

func (s *Service) lockFor(id interfaces.EscrowID) *sync.Mutex {
	mu, _ := s.locks.LoadOrStore(id, &sync.Mutex{})
	return mu.(*sync.Mutex)
}
