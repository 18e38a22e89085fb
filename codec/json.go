package codec

import (
	"bytes"
	"encoding/json"
)

// JSON encodes with encoding/json.
type JSON struct{}

// Name returns "json".
func (JSON) Name() string { return "json" }

// AppendLine implements Codec. HTML characters are not escaped.
func (JSON) AppendLine(dst []byte, v any) ([]byte, error) {
	buf := bytes.NewBuffer(dst)
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return dst, err
	}
	return buf.Bytes(), nil
}

// Unmarshal implements Codec.
func (JSON) Unmarshal(line []byte, v any) error { return json.Unmarshal(line, v) }
