// Package trace records every accepted EM step of a sweep as JSON lines.
//
// Each trial gets its own blob, trace/clone{K}.{trial}.jsonl[.lz4|.zst].
// A blob starts with a small header naming the codec and compression,
// followed by length-prefixed blocks of newline-separated records:
//
//	"EMTR" | version u8 | compression u8 | len u8 | codec name
//	[uncompressed u32][compressed u32][data] ...
//
// Writer implements search.Observer; Reader decodes a blob back into
// records.
package trace
