package storage

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/docvault/document-escrow-backend/interfaces"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testFactory() *Factory {
	return NewFactory(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestFactory_MemoryBackend(t *testing.T) {
	loc, err := interfaces.NewStorageBackendLocation("memory://")
	require.NoError(t, err)

	backend, err := testFactory().StorageBackendFor(loc)
	require.NoError(t, err)
	assert.Equal(t, "memory", backend.Name())

	ctx := context.Background()
	data := []byte("envelope ciphertext")
	id, err := backend.Store(ctx, data, interfaces.EnvelopeContent)
	require.NoError(t, err)
	assert.True(t, interfaces.ComputeID(data).Equal(id), "content id should be the SHA-256 of the data")

	got, err := backend.Fetch(ctx, id, interfaces.EnvelopeContent)
	require.NoError(t, err)
	assert.Equal(t, data, got)

	// The same id under a different namespace is a different blob.
	_, err = backend.Fetch(ctx, id, interfaces.AuditExportContent)
	assert.ErrorIs(t, err, interfaces.ErrContentNotFound)
}

func TestFactory_FileBackend(t *testing.T) {
	loc, err := interfaces.NewStorageBackendLocation("file://" + t.TempDir())
	require.NoError(t, err)

	backend, err := testFactory().StorageBackendFor(loc)
	require.NoError(t, err)
	assert.True(t, backend.Available(context.Background()))

	ctx := context.Background()
	data := []byte("audit export payload")
	id, err := backend.Store(ctx, data, interfaces.AuditExportContent)
	require.NoError(t, err)

	got, err := backend.Fetch(ctx, id, interfaces.AuditExportContent)
	require.NoError(t, err)
	assert.Equal(t, data, got)

	_, err = backend.Fetch(ctx, interfaces.ComputeID([]byte("other")), interfaces.AuditExportContent)
	assert.ErrorIs(t, err, interfaces.ErrContentNotFound)
}

func TestFactory_RejectsUnsupportedScheme(t *testing.T) {
	_, err := interfaces.NewStorageBackendLocation("ftp://example.com/blobs")
	assert.Error(t, err, "unsupported scheme should fail location parsing")
}

func TestFactory_MultiBackend(t *testing.T) {
	memLoc, err := interfaces.NewStorageBackendLocation("memory://")
	require.NoError(t, err)
	fileLoc, err := interfaces.NewStorageBackendLocation("file://" + t.TempDir())
	require.NoError(t, err)

	multi, err := testFactory().CreateMultiBackend([]interfaces.StorageBackendLocation{memLoc, fileLoc})
	require.NoError(t, err)
	assert.Equal(t, "multi-storage", multi.Name())
	assert.Contains(t, multi.LocationURI(), "memory://")

	ctx := context.Background()
	data := []byte("replicated blob")
	id, err := multi.Store(ctx, data, interfaces.EnvelopeContent)
	require.NoError(t, err)

	got, err := multi.Fetch(ctx, id, interfaces.EnvelopeContent)
	require.NoError(t, err)
	assert.Equal(t, data, got)
}
