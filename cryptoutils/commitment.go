package cryptoutils

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"time"

	"github.com/docvault/document-escrow-backend/interfaces"
	"golang.org/x/crypto/sha3"
)

// BlindingSize is the length of generated blinding factors. 256 bits keeps
// the commitment preimage outside brute-force range.
const BlindingSize = 32

// Committer implements interfaces.CommitmentScheme with SHA3-256 over the
// document concatenated with a blinding factor.
type Committer struct{}

// NewCommitter creates the stateless commitment adapter.
func NewCommitter() *Committer {
	return &Committer{}
}

// Commit binds document to a commitment value. When blinding is nil a fresh
// 32-byte factor is sampled; a supplied factor must be exactly BlindingSize
// bytes. The blinding factor is retained in the record for local
// re-verification.
func (c *Committer) Commit(document, blinding []byte) (interfaces.DocumentCommitment, error) {
	if len(document) == 0 {
		return interfaces.DocumentCommitment{}, interfaces.ErrEmptyDocument
	}

	if blinding == nil {
		blinding = make([]byte, BlindingSize)
		if _, err := io.ReadFull(rand.Reader, blinding); err != nil {
			return interfaces.DocumentCommitment{}, fmt.Errorf("failed to generate blinding factor: %w", err)
		}
	} else if len(blinding) != BlindingSize {
		return interfaces.DocumentCommitment{}, fmt.Errorf("blinding factor must be %d bytes, got %d", BlindingSize, len(blinding))
	}

	return interfaces.DocumentCommitment{
		Commitment:  commitmentHash(document, blinding),
		Blinding:    append([]byte(nil), blinding...),
		CommittedAt: time.Now().UTC(),
	}, nil
}

// VerifyCommitment recomputes the commitment from the document and the
// stored blinding factor. A record without a blinding factor is
// unverifiable and yields false, never an error.
func (c *Committer) VerifyCommitment(document []byte, commitment interfaces.DocumentCommitment) bool {
	if len(commitment.Blinding) == 0 {
		return false
	}
	return commitmentHash(document, commitment.Blinding) == commitment.Commitment
}

func commitmentHash(document, blinding []byte) string {
	h := sha3.New256()
	h.Write(document)
	h.Write(blinding)
	return hex.EncodeToString(h.Sum(nil))
}
