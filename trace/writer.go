package trace

import (
	"bytes"
	"context"
	"fmt"
	"sync"

	"github.com/hupe1980/emclone/blobstore"
	"github.com/hupe1980/emclone/codec"
	"github.com/hupe1980/emclone/search"
)

const (
	magic   = "EMTR"
	version = 1

	// DefaultBlockSize is the uncompressed size at which a block is flushed.
	DefaultBlockSize = 64 * 1024
)

// Name returns the blob name of the trace of one trial.
func Name(k, trial int, c Compression) string {
	return fmt.Sprintf("trace/clone%d.%d.jsonl%s", k, trial, c.Ext())
}

// Option configures a Writer.
type Option func(*Writer)

// WithCompression sets the block compression. Default: CompressionZSTD.
func WithCompression(c Compression) Option {
	return func(w *Writer) { w.compression = c }
}

// WithCodec sets the record codec. Default: codec.Default.
func WithCodec(c codec.Codec) Option {
	return func(w *Writer) { w.codec = c }
}

// WithBlockSize sets the flush threshold.
func WithBlockSize(n int) Option {
	return func(w *Writer) {
		if n > 0 {
			w.blockSize = n
		}
	}
}

// Writer streams accepted steps into one blob per trial.
//
// Steps must arrive grouped by (K, trial), which is the order the search
// driver produces. A step of a new trial closes the previous blob.
type Writer struct {
	store       blobstore.Store
	compression Compression
	codec       codec.Codec
	blockSize   int

	mu       sync.Mutex
	k, trial int
	out      blobstore.WritableBlob
	buf      bytes.Buffer
	written  []string
}

var _ search.Observer = (*Writer)(nil)

// NewWriter creates a Writer on store.
func NewWriter(store blobstore.Store, opts ...Option) *Writer {
	w := &Writer{
		store:       store,
		compression: CompressionZSTD,
		codec:       codec.Default,
		blockSize:   DefaultBlockSize,
		k:           -1,
		trial:       -1,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// OnStep implements search.Observer.
func (w *Writer) OnStep(ctx context.Context, s *search.Snapshot) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.out == nil || s.K != w.k || s.Trial != w.trial {
		if err := w.closeLocked(); err != nil {
			return err
		}
		if err := w.openLocked(ctx, s.K, s.Trial); err != nil {
			return err
		}
	}

	line, err := w.codec.AppendLine(w.buf.AvailableBuffer(), NewRecord(s))
	if err != nil {
		return fmt.Errorf("trace: encode step %d: %w", s.Step, err)
	}
	w.buf.Write(line)

	if w.buf.Len() >= w.blockSize {
		return w.flushLocked()
	}
	return nil
}

// Written returns the names of the blobs created so far.
func (w *Writer) Written() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]string(nil), w.written...)
}

// Close flushes and closes the current blob.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closeLocked()
}

func (w *Writer) openLocked(ctx context.Context, k, trial int) error {
	name := Name(k, trial, w.compression)
	out, err := w.store.Create(ctx, name)
	if err != nil {
		return fmt.Errorf("trace: create %s: %w", name, err)
	}

	cn := w.codec.Name()
	hdr := make([]byte, 0, len(magic)+3+len(cn))
	hdr = append(hdr, magic...)
	hdr = append(hdr, version, byte(w.compression), byte(len(cn)))
	hdr = append(hdr, cn...)
	if _, err := out.Write(hdr); err != nil {
		_ = out.Close()
		return fmt.Errorf("trace: write header %s: %w", name, err)
	}

	w.out, w.k, w.trial = out, k, trial
	w.written = append(w.written, name)
	return nil
}

func (w *Writer) flushLocked() error {
	if w.buf.Len() == 0 {
		return nil
	}
	block, err := encodeBlock(w.buf.Bytes(), w.compression)
	if err != nil {
		return fmt.Errorf("trace: compress: %w", err)
	}
	w.buf.Reset()
	_, err = w.out.Write(block)
	return err
}

func (w *Writer) closeLocked() error {
	if w.out == nil {
		return nil
	}
	err := w.flushLocked()
	if cerr := w.out.Close(); err == nil {
		err = cerr
	}
	w.out = nil
	return err
}
