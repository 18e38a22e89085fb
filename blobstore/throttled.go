package blobstore

import (
	"context"
	"io"

	"github.com/hupe1980/emclone/resource"
)

// Throttled charges every byte read from or written to the wrapped store
// against a resource.Controller IO budget.
type Throttled struct {
	store Store
	rc    *resource.Controller
}

// NewThrottled wraps s. A nil controller disables throttling.
func NewThrottled(s Store, rc *resource.Controller) *Throttled {
	return &Throttled{store: s, rc: rc}
}

// Open opens a blob whose reads are throttled.
func (t *Throttled) Open(ctx context.Context, name string) (Blob, error) {
	b, err := t.store.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	return &throttledBlob{Blob: b, rc: t.rc}, nil
}

// Create creates a blob whose writes are throttled.
func (t *Throttled) Create(ctx context.Context, name string) (WritableBlob, error) {
	w, err := t.store.Create(ctx, name)
	if err != nil {
		return nil, err
	}
	return &throttledWritableBlob{WritableBlob: w, w: resource.NewWriter(ctx, w, t.rc)}, nil
}

// Put charges len(data) before writing.
func (t *Throttled) Put(ctx context.Context, name string, data []byte) error {
	if err := t.rc.AcquireIO(ctx, len(data)); err != nil {
		return err
	}
	return t.store.Put(ctx, name, data)
}

// Delete removes a blob.
func (t *Throttled) Delete(ctx context.Context, name string) error {
	return t.store.Delete(ctx, name)
}

// List lists the wrapped store.
func (t *Throttled) List(ctx context.Context, prefix string) ([]string, error) {
	return t.store.List(ctx, prefix)
}

type throttledBlob struct {
	Blob
	rc *resource.Controller
}

func (b *throttledBlob) ReadAt(ctx context.Context, p []byte, off int64) (int, error) {
	n, err := b.Blob.ReadAt(ctx, p, off)
	if n > 0 {
		if ioErr := b.rc.AcquireIO(ctx, n); ioErr != nil {
			return n, ioErr
		}
	}
	return n, err
}

func (b *throttledBlob) ReadRange(ctx context.Context, off, length int64) (io.ReadCloser, error) {
	rc, err := b.Blob.ReadRange(ctx, off, length)
	if err != nil {
		return nil, err
	}
	return struct {
		io.Reader
		io.Closer
	}{resource.NewReader(ctx, rc, b.rc), rc}, nil
}

type throttledWritableBlob struct {
	WritableBlob
	w io.Writer
}

func (b *throttledWritableBlob) Write(p []byte) (int, error) {
	return b.w.Write(p)
}
