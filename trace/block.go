package trace

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Compression selects the block compression of a trace.
type Compression uint8

const (
	// CompressionNone stores blocks as plain JSON lines.
	CompressionNone Compression = 0
	// CompressionLZ4 uses LZ4 block compression.
	CompressionLZ4 Compression = 1
	// CompressionZSTD uses ZSTD block compression.
	CompressionZSTD Compression = 2
)

// Ext returns the file extension for c.
func (c Compression) Ext() string {
	switch c {
	case CompressionLZ4:
		return ".lz4"
	case CompressionZSTD:
		return ".zst"
	default:
		return ""
	}
}

func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionLZ4:
		return "lz4"
	case CompressionZSTD:
		return "zstd"
	default:
		return fmt.Sprintf("compression(%d)", uint8(c))
	}
}

// ParseCompression maps "none", "lz4" and "zstd" to a Compression.
func ParseCompression(s string) (Compression, error) {
	switch s {
	case "", "none":
		return CompressionNone, nil
	case "lz4":
		return CompressionLZ4, nil
	case "zstd", "zst":
		return CompressionZSTD, nil
	default:
		return 0, fmt.Errorf("trace: unknown compression %q", s)
	}
}

var (
	zstdEncoderPool sync.Pool
	zstdDecoderPool sync.Pool
)

func getZstdEncoder() *zstd.Encoder {
	if v := zstdEncoderPool.Get(); v != nil {
		return v.(*zstd.Encoder)
	}
	enc, _ := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	return enc
}

func getZstdDecoder() *zstd.Decoder {
	if v := zstdDecoderPool.Get(); v != nil {
		return v.(*zstd.Decoder)
	}
	dec, _ := zstd.NewReader(nil)
	return dec
}

// Block layout: [uncompressed uint32][compressed uint32][data].
// A compressed size of 0 marks a raw block.
const blockHeaderSize = 8

var errCorruptBlock = errors.New("trace: corrupt block")

func encodeBlock(data []byte, c Compression) ([]byte, error) {
	var compressed []byte
	switch c {
	case CompressionLZ4:
		buf := make([]byte, lz4.CompressBlockBound(len(data)))
		n, err := lz4.CompressBlock(data, buf, nil)
		if err != nil {
			return nil, err
		}
		compressed = buf[:n]
	case CompressionZSTD:
		enc := getZstdEncoder()
		compressed = enc.EncodeAll(data, nil)
		zstdEncoderPool.Put(enc)
	}

	out := make([]byte, blockHeaderSize, blockHeaderSize+len(data))
	binary.LittleEndian.PutUint32(out[0:], uint32(len(data)))
	if len(compressed) == 0 || len(compressed) >= len(data) {
		return append(out, data...), nil
	}
	binary.LittleEndian.PutUint32(out[4:], uint32(len(compressed)))
	return append(out, compressed...), nil
}

// decodeBlock decodes the block at the start of data and returns it with the
// number of bytes consumed.
func decodeBlock(data []byte, c Compression) ([]byte, int, error) {
	if len(data) < blockHeaderSize {
		return nil, 0, errCorruptBlock
	}
	size := int(binary.LittleEndian.Uint32(data[0:]))
	csize := int(binary.LittleEndian.Uint32(data[4:]))
	body := data[blockHeaderSize:]

	if csize == 0 {
		if len(body) < size {
			return nil, 0, errCorruptBlock
		}
		return body[:size], blockHeaderSize + size, nil
	}
	if len(body) < csize {
		return nil, 0, errCorruptBlock
	}
	body = body[:csize]

	switch c {
	case CompressionLZ4:
		out := make([]byte, size)
		n, err := lz4.UncompressBlock(body, out)
		if err != nil {
			return nil, 0, fmt.Errorf("trace: lz4: %w", err)
		}
		if n != size {
			return nil, 0, errCorruptBlock
		}
		return out, blockHeaderSize + csize, nil
	case CompressionZSTD:
		dec := getZstdDecoder()
		out, err := dec.DecodeAll(body, make([]byte, 0, size))
		zstdDecoderPool.Put(dec)
		if err != nil {
			return nil, 0, fmt.Errorf("trace: zstd: %w", err)
		}
		if len(out) != size {
			return nil, 0, errCorruptBlock
		}
		return out, blockHeaderSize + csize, nil
	default:
		return nil, 0, errCorruptBlock
	}
}
