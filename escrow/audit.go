package escrow

import (
	"encoding/hex"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"

	"github.com/docvault/document-escrow-backend/interfaces"
)

// genesisHash anchors the first entry of every audit chain.
var genesisHash = strings.Repeat("0", 64)

// newAuditEntry builds the next entry of a hash-chained audit trail. The
// integrity hash covers the previous entry's hash and every field of this
// entry, so the chain breaks on any historical mutation or splice.
func newAuditEntry(trail []interfaces.AuditEntry, action interfaces.AuditAction, actorID, details string) interfaces.AuditEntry {
	prev := genesisHash
	if len(trail) > 0 {
		prev = trail[len(trail)-1].IntegrityHash
	}

	entry := interfaces.AuditEntry{
		ID:        uuid.NewString(),
		Action:    action,
		ActorID:   actorID,
		Timestamp: time.Now().UTC(),
		Details:   details,
	}
	entry.IntegrityHash = entryHash(prev, entry)
	return entry
}

func entryHash(prevHash string, entry interfaces.AuditEntry) string {
	digest := crypto.Keccak256(
		[]byte(prevHash),
		[]byte(entry.ID),
		[]byte(entry.Action),
		[]byte(entry.ActorID),
		[]byte(entry.Timestamp.UTC().Format(time.RFC3339Nano)),
		[]byte(entry.Details),
	)
	return hex.EncodeToString(digest)
}

// VerifyAuditTrail walks the chain from the genesis anchor and recomputes
// every link. It returns the index of the first broken entry, or -1 when the
// whole trail is intact.
func VerifyAuditTrail(trail []interfaces.AuditEntry) int {
	prev := genesisHash
	for i, entry := range trail {
		if entryHash(prev, entry) != entry.IntegrityHash {
			return i
		}
		prev = entry.IntegrityHash
	}
	return -1
}
