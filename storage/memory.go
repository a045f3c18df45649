package storage

import (
	"context"
	"fmt"
	"sync"

	"github.com/docvault/document-escrow-backend/interfaces"
)

// MemoryBackend implements an in-process storage backend. Content lives in a
// map keyed by namespace and content id. Intended for tests and single-node
// deployments where durability is handled elsewhere.
type MemoryBackend struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

// NewMemoryBackend creates an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{blobs: make(map[string][]byte)}
}

// Fetch retrieves data by its content identifier and type.
func (b *MemoryBackend) Fetch(ctx context.Context, id interfaces.ContentID, contentType interfaces.ContentType) ([]byte, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	data, ok := b.blobs[b.key(id, contentType)]
	if !ok {
		return nil, interfaces.ErrContentNotFound
	}
	return append([]byte(nil), data...), nil
}

// Store saves data and returns its content identifier.
func (b *MemoryBackend) Store(ctx context.Context, data []byte, contentType interfaces.ContentType) (interfaces.ContentID, error) {
	id := interfaces.ComputeID(data)

	b.mu.Lock()
	defer b.mu.Unlock()

	b.blobs[b.key(id, contentType)] = append([]byte(nil), data...)
	return id, nil
}

// Available always reports true for the in-process backend.
func (b *MemoryBackend) Available(ctx context.Context) bool {
	return true
}

// Name returns a unique identifier for this storage backend.
func (b *MemoryBackend) Name() string {
	return "memory"
}

// LocationURI returns the URI that identifies this storage backend.
func (b *MemoryBackend) LocationURI() string {
	return "memory://"
}

func (b *MemoryBackend) key(id interfaces.ContentID, contentType interfaces.ContentType) string {
	return fmt.Sprintf("%s/%s", contentType, id)
}
