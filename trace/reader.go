package trace

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/hupe1980/emclone/blobstore"
	"github.com/hupe1980/emclone/codec"
)

// ErrBadHeader is returned for blobs that are not traces.
var ErrBadHeader = errors.New("trace: bad header")

// Reader decodes the records of one trace blob.
type Reader struct {
	compression Compression
	codec       codec.Codec

	data  []byte
	lines []byte
}

// NewReader parses the header of data.
func NewReader(data []byte) (*Reader, error) {
	if len(data) < len(magic)+3 || string(data[:len(magic)]) != magic {
		return nil, ErrBadHeader
	}
	p := len(magic)
	if data[p] != version {
		return nil, fmt.Errorf("%w: version %d", ErrBadHeader, data[p])
	}
	c := Compression(data[p+1])
	if c > CompressionZSTD {
		return nil, fmt.Errorf("%w: %s", ErrBadHeader, c)
	}
	n := int(data[p+2])
	p += 3
	if len(data) < p+n {
		return nil, ErrBadHeader
	}
	cd, err := codec.Lookup(string(data[p : p+n]))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBadHeader, err)
	}
	return &Reader{compression: c, codec: cd, data: data[p+n:]}, nil
}

// Compression returns the block compression of the blob.
func (r *Reader) Compression() Compression { return r.compression }

// Codec returns the record codec of the blob.
func (r *Reader) Codec() codec.Codec { return r.codec }

// Next returns the next record, or io.EOF.
func (r *Reader) Next() (Record, error) {
	for len(r.lines) == 0 {
		if len(r.data) == 0 {
			return Record{}, io.EOF
		}
		block, n, err := decodeBlock(r.data, r.compression)
		if err != nil {
			return Record{}, err
		}
		r.data = r.data[n:]
		r.lines = block
	}

	line := r.lines
	if i := bytes.IndexByte(line, '\n'); i >= 0 {
		line, r.lines = line[:i], r.lines[i+1:]
	} else {
		r.lines = nil
	}

	var rec Record
	if err := r.codec.Unmarshal(line, &rec); err != nil {
		return Record{}, fmt.Errorf("trace: decode: %w", err)
	}
	return rec, nil
}

// ReadAll reads every record of the named blob.
func ReadAll(ctx context.Context, store blobstore.Store, name string) ([]Record, error) {
	data, err := blobstore.ReadAll(ctx, store, name)
	if err != nil {
		return nil, err
	}
	r, err := NewReader(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}

	var out []Record
	for {
		rec, err := r.Next()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		out = append(out, rec)
	}
}
