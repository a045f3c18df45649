package interfaces

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// EscrowID is the opaque unique identifier of an escrow record.
type EscrowID string

// NewEscrowID generates a fresh random escrow identifier.
func NewEscrowID() EscrowID {
	return EscrowID(uuid.NewString())
}

// String returns the identifier as a plain string.
func (id EscrowID) String() string {
	return string(id)
}

// PartyRole identifies which of the two escrow parties an artifact belongs to.
type PartyRole string

const (
	// RoleEmployee is the individual party (document subject).
	RoleEmployee PartyRole = "EMPLOYEE"
	// RoleEmployer is the organizational party.
	RoleEmployer PartyRole = "EMPLOYER"
)

// Valid reports whether the role is one of the two defined parties.
func (r PartyRole) Valid() bool {
	return r == RoleEmployee || r == RoleEmployer
}

// Other returns the counterpart role.
func (r PartyRole) Other() PartyRole {
	if r == RoleEmployee {
		return RoleEmployer
	}
	return RoleEmployee
}

// ParsePartyRole validates a raw string against the closed role set.
func ParsePartyRole(raw string) (PartyRole, error) {
	role := PartyRole(raw)
	if !role.Valid() {
		return "", fmt.Errorf("unknown party role: %q", raw)
	}
	return role, nil
}

// DocumentType is the closed set of document classifications accepted by the
// escrow service.
type DocumentType string

const (
	DocEmploymentContract DocumentType = "EMPLOYMENT_CONTRACT"
	DocSeveranceAgreement DocumentType = "SEVERANCE_AGREEMENT"
	DocDisciplinaryRecord DocumentType = "DISCIPLINARY_RECORD"
	DocPerformanceReview  DocumentType = "PERFORMANCE_REVIEW"
	DocMedicalCertificate DocumentType = "MEDICAL_CERTIFICATE"
	DocTerminationNotice  DocumentType = "TERMINATION_NOTICE"
)

// Valid reports whether the document type belongs to the closed set.
func (dt DocumentType) Valid() bool {
	switch dt {
	case DocEmploymentContract, DocSeveranceAgreement, DocDisciplinaryRecord,
		DocPerformanceReview, DocMedicalCertificate, DocTerminationNotice:
		return true
	default:
		return false
	}
}

// ParseDocumentType validates a raw string against the closed type set.
func ParseDocumentType(raw string) (DocumentType, error) {
	dt := DocumentType(raw)
	if !dt.Valid() {
		return "", fmt.Errorf("unknown document type: %q", raw)
	}
	return dt, nil
}

// EscrowStatus is the finite set of state-machine states for an escrow.
type EscrowStatus string

const (
	StatusCreated                  EscrowStatus = "CREATED"
	StatusPendingEmployeeSignature EscrowStatus = "PENDING_EMPLOYEE_SIGNATURE"
	StatusPendingEmployerSignature EscrowStatus = "PENDING_EMPLOYER_SIGNATURE"
	StatusFullySigned              EscrowStatus = "FULLY_SIGNED"
	StatusReleased                 EscrowStatus = "RELEASED"
	StatusReconstructed            EscrowStatus = "RECONSTRUCTED"
	StatusDisputed                 EscrowStatus = "DISPUTED"
	StatusExpired                  EscrowStatus = "EXPIRED"
)

// Terminal reports whether no further transitions are allowed from the status.
func (s EscrowStatus) Terminal() bool {
	switch s {
	case StatusReconstructed, StatusDisputed, StatusExpired:
		return true
	default:
		return false
	}
}

// PendingFor returns the pending-signature status awaiting the given role.
func PendingFor(role PartyRole) EscrowStatus {
	if role == RoleEmployee {
		return StatusPendingEmployeeSignature
	}
	return StatusPendingEmployerSignature
}

// AuditAction tags an audit entry with the state-changing action it records.
type AuditAction string

const (
	ActionEscrowCreated         AuditAction = "ESCROW_CREATED"
	ActionSignedByEmployee      AuditAction = "SIGNED_BY_EMPLOYEE"
	ActionSignedByEmployer      AuditAction = "SIGNED_BY_EMPLOYER"
	ActionEscrowReleased        AuditAction = "ESCROW_RELEASED"
	ActionDocumentReconstructed AuditAction = "DOCUMENT_RECONSTRUCTED"
	ActionEscrowDisputed        AuditAction = "ESCROW_DISPUTED"
	ActionEscrowExpired         AuditAction = "ESCROW_EXPIRED"
)

// SignedByAction returns the audit action recording a signature by role.
func SignedByAction(role PartyRole) AuditAction {
	if role == RoleEmployee {
		return ActionSignedByEmployee
	}
	return ActionSignedByEmployer
}

var (
	// ErrEscrowNotFound is returned by the repository when no record exists
	// for the requested id.
	ErrEscrowNotFound = errors.New("escrow not found")

	// ErrEmptyAggregation indicates an attempt to aggregate zero signatures.
	// This is a programming error, never an adversarial input.
	ErrEmptyAggregation = errors.New("cannot aggregate an empty signature set")

	// ErrMessageMismatch indicates signatures over different message hashes
	// were passed to a single aggregation.
	ErrMessageMismatch = errors.New("signatures cover different message hashes")

	// ErrEmptyDocument is returned by adapters when asked to process a
	// zero-length document.
	ErrEmptyDocument = errors.New("document must not be empty")

	// ErrMalformedKey is returned by adapters for key material that cannot
	// be parsed.
	ErrMalformedKey = errors.New("malformed key material")

	// ErrInvalidShares is returned when the supplied secret shares are
	// missing, duplicated, or inconsistent with the stored split.
	ErrInvalidShares = errors.New("invalid secret shares")
)
