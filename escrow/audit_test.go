package escrow

import (
	"testing"

	"github.com/docvault/document-escrow-backend/interfaces"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildTrail(actions ...interfaces.AuditAction) []interfaces.AuditEntry {
	var trail []interfaces.AuditEntry
	for _, action := range actions {
		trail = append(trail, newAuditEntry(trail, action, "actor-1", "details"))
	}
	return trail
}

func TestVerifyAuditTrail_Intact(t *testing.T) {
	trail := buildTrail(
		interfaces.ActionEscrowCreated,
		interfaces.ActionSignedByEmployee,
		interfaces.ActionSignedByEmployer,
		interfaces.ActionEscrowReleased,
	)

	assert.Equal(t, -1, VerifyAuditTrail(trail), "untouched trail should verify")
	assert.Equal(t, -1, VerifyAuditTrail(nil), "empty trail is trivially intact")
}

func TestVerifyAuditTrail_DetectsFieldMutation(t *testing.T) {
	fields := []struct {
		name   string
		mutate func(*interfaces.AuditEntry)
	}{
		{"action", func(e *interfaces.AuditEntry) { e.Action = interfaces.ActionEscrowDisputed }},
		{"actor", func(e *interfaces.AuditEntry) { e.ActorID = "intruder" }},
		{"details", func(e *interfaces.AuditEntry) { e.Details = "rewritten" }},
		{"timestamp", func(e *interfaces.AuditEntry) { e.Timestamp = e.Timestamp.Add(1) }},
		{"id", func(e *interfaces.AuditEntry) { e.ID = "forged" }},
	}

	for _, field := range fields {
		t.Run(field.name, func(t *testing.T) {
			trail := buildTrail(
				interfaces.ActionEscrowCreated,
				interfaces.ActionSignedByEmployee,
				interfaces.ActionSignedByEmployer,
			)
			field.mutate(&trail[1])
			assert.Equal(t, 1, VerifyAuditTrail(trail), "mutated entry should break the chain at its index")
		})
	}
}

func TestVerifyAuditTrail_DetectsSplicing(t *testing.T) {
	trail := buildTrail(
		interfaces.ActionEscrowCreated,
		interfaces.ActionSignedByEmployee,
		interfaces.ActionSignedByEmployer,
		interfaces.ActionEscrowReleased,
	)

	// Removing a middle entry breaks the forward link of its successor.
	spliced := append(append([]interfaces.AuditEntry(nil), trail[:1]...), trail[2:]...)
	assert.Equal(t, 1, VerifyAuditTrail(spliced), "spliced trail should fail at the gap")

	// Removing the genesis entry breaks the anchor.
	headless := trail[1:]
	assert.Equal(t, 0, VerifyAuditTrail(headless), "trail without its genesis entry should fail at the head")
}

func TestNewAuditEntry_ChainsOverPrevious(t *testing.T) {
	first := newAuditEntry(nil, interfaces.ActionEscrowCreated, "actor-1", "a")
	second := newAuditEntry([]interfaces.AuditEntry{first}, interfaces.ActionSignedByEmployee, "actor-2", "b")

	require.NotEmpty(t, first.IntegrityHash)
	require.NotEmpty(t, second.IntegrityHash)
	assert.NotEqual(t, first.IntegrityHash, second.IntegrityHash)
	assert.NotEqual(t, first.ID, second.ID, "entry ids should be unique")

	// The same entry chained after a different predecessor hashes differently.
	other := newAuditEntry(nil, interfaces.ActionEscrowCreated, "actor-1", "other")
	rechained := second
	rechained.IntegrityHash = entryHash(other.IntegrityHash, rechained)
	assert.NotEqual(t, second.IntegrityHash, rechained.IntegrityHash)
}
