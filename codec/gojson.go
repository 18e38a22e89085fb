package codec

import (
	"bytes"

	gojson "github.com/goccy/go-json"
)

// GoJSON encodes with github.com/goccy/go-json. It is the default codec.
type GoJSON struct{}

// Name returns "go-json".
func (GoJSON) Name() string { return "go-json" }

// AppendLine implements Codec. HTML characters are not escaped.
func (GoJSON) AppendLine(dst []byte, v any) ([]byte, error) {
	b, err := gojson.MarshalNoEscape(v)
	if err != nil {
		return dst, err
	}
	return append(append(dst, b...), '\n'), nil
}

// Unmarshal implements Codec.
func (GoJSON) Unmarshal(line []byte, v any) error {
	return gojson.Unmarshal(bytes.TrimRight(line, "\n"), v)
}
