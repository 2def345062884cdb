package vault

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"

	"changestore/internal/store"
)

// MemoryVault is an in-memory implementation of the Vault interface.
// It is useful for tests and for throwaway stores. Safe for concurrent use.
type MemoryVault struct {
	mu       sync.RWMutex
	content  map[string][]byte
	metadata map[string]memoryMetadata // "storeID/name" -> item
}

type memoryMetadata struct {
	data    []byte
	version uint64
}

// NewMemoryVault creates an empty in-memory vault.
func NewMemoryVault() *MemoryVault {
	return &MemoryVault{
		content:  make(map[string][]byte),
		metadata: make(map[string]memoryMetadata),
	}
}

func metadataKey(storeID, name string) string {
	return storeID + "/" + name
}

// readSized reads exactly size bytes from r.
func readSized(r io.Reader, size int64) ([]byte, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read content: %w", err)
	}
	if int64(len(data)) != size {
		return nil, fmt.Errorf("size mismatch: expected %d bytes, got %d", size, len(data))
	}
	return data, nil
}

func (m *MemoryVault) PutContent(ctx context.Context, key string, r io.Reader, size int64) error {
	data, err := readSized(r, size)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.content[key] = data
	return nil
}

func (m *MemoryVault) GetContent(ctx context.Context, key string, w io.Writer) error {
	m.mu.RLock()
	data, ok := m.content[key]
	m.mu.RUnlock()

	if !ok {
		return fmt.Errorf("%w: content %s", store.ErrNotFound, key)
	}
	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to write content: %w", err)
	}
	return nil
}

func (m *MemoryVault) HasContent(ctx context.Context, key string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.content[key]
	return ok, nil
}

func (m *MemoryVault) DeleteContent(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.content, key)
	return nil
}

// ContentCount returns the number of stored payloads.
func (m *MemoryVault) ContentCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.content)
}

func (m *MemoryVault) PutMetadata(ctx context.Context, storeID, name string, r io.Reader, size int64, version uint64) error {
	data, err := readSized(r, size)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.metadata[metadataKey(storeID, name)] = memoryMetadata{data: data, version: version}
	return nil
}

func (m *MemoryVault) GetMetadata(ctx context.Context, storeID, name string, w io.Writer) error {
	m.mu.RLock()
	item, ok := m.metadata[metadataKey(storeID, name)]
	m.mu.RUnlock()

	if !ok {
		return fmt.Errorf("%w: metadata %q for store %s", store.ErrNotFound, name, storeID)
	}
	if _, err := io.Copy(w, bytes.NewReader(item.data)); err != nil {
		return fmt.Errorf("failed to write metadata: %w", err)
	}
	return nil
}

func (m *MemoryVault) GetMetadataVersion(ctx context.Context, storeID, name string) (uint64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.metadata[metadataKey(storeID, name)].version, nil
}

// ValidateSetup always succeeds for the in-memory vault.
func (m *MemoryVault) ValidateSetup(ctx context.Context) error {
	return nil
}

var _ store.Vault = (*MemoryVault)(nil)
