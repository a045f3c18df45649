package storage

import (
	"sync"

	"github.com/docvault/document-escrow-backend/interfaces"
)

// Repository is an in-memory implementation of interfaces.EscrowRepository.
// Records are exchanged as deep copies: mutating a record returned by Get
// never affects the stored snapshot until Put replaces it.
type Repository struct {
	mu      sync.RWMutex
	records map[interfaces.EscrowID]*interfaces.Escrow
}

// NewRepository creates an empty in-memory repository.
func NewRepository() *Repository {
	return &Repository{records: make(map[interfaces.EscrowID]*interfaces.Escrow)}
}

// Get returns a snapshot of the record for id, or ErrEscrowNotFound.
func (r *Repository) Get(id interfaces.EscrowID) (*interfaces.Escrow, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	record, ok := r.records[id]
	if !ok {
		return nil, interfaces.ErrEscrowNotFound
	}
	return record.Clone(), nil
}

// Put stores a snapshot of the record, inserting or replacing by id.
func (r *Repository) Put(escrow *interfaces.Escrow) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.records[escrow.ID] = escrow.Clone()
	return nil
}

// ListByTenant returns snapshots of all escrows classified under the tenant.
func (r *Repository) ListByTenant(tenantID string) []*interfaces.Escrow {
	return r.list(func(e *interfaces.Escrow) bool { return e.TenantID == tenantID })
}

// ListBySubject returns snapshots of all escrows whose document owner is
// subjectID.
func (r *Repository) ListBySubject(subjectID string) []*interfaces.Escrow {
	return r.list(func(e *interfaces.Escrow) bool { return e.SubjectID == subjectID })
}

func (r *Repository) list(match func(*interfaces.Escrow) bool) []*interfaces.Escrow {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*interfaces.Escrow
	for _, record := range r.records {
		if match(record) {
			result = append(result, record.Clone())
		}
	}
	return result
}

// Purge removes all records. Test and administrative use only.
func (r *Repository) Purge() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.records = make(map[interfaces.EscrowID]*interfaces.Escrow)
}
