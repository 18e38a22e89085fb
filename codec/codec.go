// Package codec encodes step trace records as JSON lines.
//
// Trace headers carry the codec name, so a trace is always decoded with the
// codec that wrote it, whatever Default is at the time. JSON has no form for
// NaN or the infinities; fields that may hold them use Float.
package codec

import (
	"errors"
	"fmt"
)

// ErrUnknownCodec is returned by Lookup for a name no codec carries.
var ErrUnknownCodec = errors.New("codec: unknown codec")

// Codec encodes one value per line.
// Implementations must be safe for concurrent use.
type Codec interface {
	// Name is the stable name written into trace headers.
	Name() string
	// AppendLine appends the encoding of v and a trailing newline to dst.
	AppendLine(dst []byte, v any) ([]byte, error)
	// Unmarshal decodes one line, with or without its newline.
	Unmarshal(line []byte, v any) error
}

// Default is the codec used for new traces.
var Default Codec = GoJSON{}

// ByName returns a built-in codec by its stable name.
func ByName(name string) (Codec, bool) {
	switch name {
	case JSON{}.Name():
		return JSON{}, true
	case GoJSON{}.Name():
		return GoJSON{}, true
	}
	return nil, false
}

// Lookup is ByName with an error naming the codec.
func Lookup(name string) (Codec, error) {
	c, ok := ByName(name)
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownCodec, name)
	}
	return c, nil
}
