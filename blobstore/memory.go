package blobstore

import (
	"bytes"
	"context"
	"io"
	"slices"
	"strings"
	"sync"
)

// Usage describes one blob held by a MemoryStore.
type Usage struct {
	Name string
	Size int64
}

// MemoryStore keeps every blob in memory. Tests use it, and `emclone run
// --dry-run` writes its artifacts here so they can be listed without being
// persisted.
//
// Stored slices are never mutated; Put and Create store private copies.
type MemoryStore struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{blobs: make(map[string][]byte)}
}

// Open implements Store.
func (m *MemoryStore) Open(ctx context.Context, name string) (Blob, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, ok := m.get(name)
	if !ok {
		return nil, ErrNotFound
	}
	return memoryBlob(data), nil
}

// Create implements Store. The blob is stored when the writer is closed.
func (m *MemoryStore) Create(ctx context.Context, name string) (WritableBlob, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &memoryWriter{commit: func(b []byte) { m.set(name, bytes.Clone(b)) }}, nil
}

// Put implements Store.
func (m *MemoryStore) Put(ctx context.Context, name string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.set(name, bytes.Clone(data))
	return nil
}

// Delete implements Store.
func (m *MemoryStore) Delete(_ context.Context, name string) error {
	m.mu.Lock()
	delete(m.blobs, name)
	m.mu.Unlock()
	return nil
}

// List implements Store.
func (m *MemoryStore) List(_ context.Context, prefix string) ([]string, error) {
	var names []string
	for _, u := range m.Usage() {
		if strings.HasPrefix(u.Name, prefix) {
			names = append(names, u.Name)
		}
	}
	return names, nil
}

// Len returns the number of stored blobs.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.blobs)
}

// Usage returns every blob with its size, sorted by name.
func (m *MemoryStore) Usage() []Usage {
	m.mu.RLock()
	out := make([]Usage, 0, len(m.blobs))
	for name, data := range m.blobs {
		out = append(out, Usage{Name: name, Size: int64(len(data))})
	}
	m.mu.RUnlock()

	slices.SortFunc(out, func(a, b Usage) int { return strings.Compare(a.Name, b.Name) })
	return out
}

// Bytes returns the total size of all blobs.
func (m *MemoryStore) Bytes() int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var n int64
	for _, data := range m.blobs {
		n += int64(len(data))
	}
	return n
}

func (m *MemoryStore) get(name string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.blobs[name]
	return data, ok
}

func (m *MemoryStore) set(name string, data []byte) {
	m.mu.Lock()
	m.blobs[name] = data
	m.mu.Unlock()
}

// memoryBlob reads a stored slice in place.
type memoryBlob []byte

func (b memoryBlob) ReadAt(_ context.Context, p []byte, off int64) (int, error) {
	return bytes.NewReader(b).ReadAt(p, off)
}

func (b memoryBlob) ReadRange(_ context.Context, off, length int64) (io.ReadCloser, error) {
	size := int64(len(b))
	off = min(max(off, 0), size)
	end := min(off+max(length, 0), size)
	return io.NopCloser(bytes.NewReader(b[off:end])), nil
}

func (b memoryBlob) Size() int64 { return int64(len(b)) }

func (memoryBlob) Close() error { return nil }

type memoryWriter struct {
	bytes.Buffer
	commit func([]byte)
	closed bool
}

func (w *memoryWriter) Sync() error { return nil }

func (w *memoryWriter) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	w.commit(w.Bytes())
	return nil
}
