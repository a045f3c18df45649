package cryptoutils

import (
	"testing"

	"github.com/docvault/document-escrow-backend/interfaces"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommitter_Binding(t *testing.T) {
	committer := NewCommitter()
	document := []byte("severance agreement body")

	commitment, err := committer.Commit(document, nil)
	require.NoError(t, err, "commit should succeed")
	assert.Equal(t, 64, len(commitment.Commitment), "commitment should be hex SHA3-256")
	assert.Equal(t, BlindingSize, len(commitment.Blinding), "blinding factor should be generated")
	assert.False(t, commitment.CommittedAt.IsZero())

	assert.True(t, committer.VerifyCommitment(document, commitment),
		"committed document should verify")
	assert.False(t, committer.VerifyCommitment([]byte("another document"), commitment),
		"different document should not verify")
}

func TestCommitter_Hiding(t *testing.T) {
	committer := NewCommitter()
	document := []byte("severance agreement body")

	first, err := committer.Commit(document, nil)
	require.NoError(t, err)
	second, err := committer.Commit(document, nil)
	require.NoError(t, err)

	assert.NotEqual(t, first.Commitment, second.Commitment,
		"fresh blinding factors should hide document equality")
}

func TestCommitter_SuppliedBlinding(t *testing.T) {
	committer := NewCommitter()
	document := []byte("doc")
	blinding := make([]byte, BlindingSize)
	blinding[0] = 0x42

	first, err := committer.Commit(document, blinding)
	require.NoError(t, err)
	second, err := committer.Commit(document, blinding)
	require.NoError(t, err)
	assert.Equal(t, first.Commitment, second.Commitment,
		"same document and blinding should commit identically")

	_, err = committer.Commit(document, []byte("short"))
	assert.Error(t, err, "wrong-size blinding should be rejected")

	_, err = committer.Commit(nil, blinding)
	assert.ErrorIs(t, err, interfaces.ErrEmptyDocument, "empty document should be rejected")
}

func TestCommitter_UnverifiableWithoutBlinding(t *testing.T) {
	committer := NewCommitter()
	document := []byte("doc")

	commitment, err := committer.Commit(document, nil)
	require.NoError(t, err)

	commitment.Blinding = nil
	assert.False(t, committer.VerifyCommitment(document, commitment),
		"commitment without blinding factor is unverifiable, not an error")
}
