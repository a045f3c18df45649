package secretshare

import (
	"fmt"
	"time"

	"github.com/docvault/document-escrow-backend/interfaces"
	"github.com/hashicorp/vault/shamir"
)

// Share indices are protocol constants. Index assignment is stable across
// the lifetime of an escrow and never reused for another holder.
const (
	EmployeeShareIndex = 1
	EmployerShareIndex = 2
)

// Splitter implements interfaces.SecretSplitter with a fixed 2-of-2
// threshold over GF(2^8) polynomials.
type Splitter struct{}

// NewSplitter creates the stateless splitting adapter.
func NewSplitter() *Splitter {
	return &Splitter{}
}

// Split produces exactly two shares of secret, one per party role. The
// EMPLOYEE holds index 1 and the EMPLOYER index 2.
func (s *Splitter) Split(secret []byte) ([]interfaces.SecretShare, error) {
	if len(secret) == 0 {
		return nil, fmt.Errorf("cannot split empty secret")
	}

	parts, err := shamir.Split(secret, 2, 2)
	if err != nil {
		return nil, fmt.Errorf("failed to split secret: %w", err)
	}

	now := time.Now().UTC()
	shares := []interfaces.SecretShare{
		{
			Holder:      interfaces.RoleEmployee,
			Index:       EmployeeShareIndex,
			Value:       parts[0],
			ProofDigest: interfaces.ComputeID(parts[0]),
			CreatedAt:   now,
		},
		{
			Holder:      interfaces.RoleEmployer,
			Index:       EmployerShareIndex,
			Value:       parts[1],
			ProofDigest: interfaces.ComputeID(parts[1]),
			CreatedAt:   now,
		},
	}
	return shares, nil
}

// Combine reconstructs the secret from both shares. Holder roles, indices,
// and proof digests are validated before the shares are handed to the
// combining arithmetic, so a swapped or corrupted share fails loudly instead
// of yielding garbage key material.
func (s *Splitter) Combine(employeeShare, employerShare interfaces.SecretShare) ([]byte, error) {
	if err := validateShare(employeeShare, interfaces.RoleEmployee, EmployeeShareIndex); err != nil {
		return nil, err
	}
	if err := validateShare(employerShare, interfaces.RoleEmployer, EmployerShareIndex); err != nil {
		return nil, err
	}

	secret, err := shamir.Combine([][]byte{employeeShare.Value, employerShare.Value})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", interfaces.ErrInvalidShares, err)
	}
	return secret, nil
}

func validateShare(share interfaces.SecretShare, wantHolder interfaces.PartyRole, wantIndex int) error {
	if share.Holder != wantHolder {
		return fmt.Errorf("%w: share holder is %q, want %q", interfaces.ErrInvalidShares, share.Holder, wantHolder)
	}
	if share.Index != wantIndex {
		return fmt.Errorf("%w: share index is %d, want %d", interfaces.ErrInvalidShares, share.Index, wantIndex)
	}
	if len(share.Value) == 0 {
		return fmt.Errorf("%w: share value is empty", interfaces.ErrInvalidShares)
	}
	if !interfaces.ComputeID(share.Value).Equal(share.ProofDigest) {
		return fmt.Errorf("%w: share value does not match its proof digest", interfaces.ErrInvalidShares)
	}
	return nil
}
