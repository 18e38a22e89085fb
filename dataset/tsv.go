package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ParseError reports a malformed input line.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type ParseError struct {
	Line  int
	Field string
	cause error
}

func (e *ParseError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("dataset: line %d: %s: %v", e.Line, e.Field, e.cause)
	}
	return fmt.Sprintf("dataset: line %d: %s", e.Line, e.Field)
}

func (e *ParseError) Unwrap() error { return e.cause }

// ReadTSV parses mutation rows of the form
//
//	id <TAB> depth1,alt1[,depth2,alt2...] [<TAB> answer [<TAB> bq1[,bq2...]]]
//
// Blank lines and lines starting with '#' are ignored.
func ReadTSV(r io.Reader) (*Dataset, error) {
	cr := csv.NewReader(r)
	cr.Comma = '\t'
	cr.Comment = '#'
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.ReuseRecord = true

	var (
		ids      []string
		depth    [][]int
		alt      [][]int
		answers  []string
		bqs      [][]int
		hasBQ    bool
		hasLabel bool
	)

	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var pe *csv.ParseError
			if errors.As(err, &pe) {
				return nil, &ParseError{Line: pe.Line, Field: "record", cause: err}
			}
			return nil, err
		}
		line, _ := cr.FieldPos(0)
		if len(record) < 2 {
			return nil, &ParseError{Line: line, Field: "record", cause: fmt.Errorf("expected at least 2 fields, got %d", len(record))}
		}

		counts, err := parseInts(record[1])
		if err != nil {
			return nil, &ParseError{Line: line, Field: "counts", cause: err}
		}
		if len(counts) == 0 || len(counts)%2 != 0 {
			return nil, &ParseError{Line: line, Field: "counts", cause: fmt.Errorf("expected depth,alt pairs, got %d values", len(counts))}
		}

		d := make([]int, len(counts)/2)
		a := make([]int, len(counts)/2)
		for i := range d {
			d[i], a[i] = counts[2*i], counts[2*i+1]
		}

		ids = append(ids, strings.TrimSpace(record[0]))
		depth = append(depth, d)
		alt = append(alt, a)

		label := ""
		if len(record) >= 3 {
			label = strings.TrimSpace(record[2])
			hasLabel = hasLabel || label != ""
		}
		answers = append(answers, label)

		var bq []int
		if len(record) >= 4 && strings.TrimSpace(record[3]) != "" {
			bq, err = parseInts(record[3])
			if err != nil {
				return nil, &ParseError{Line: line, Field: "bq", cause: err}
			}
			if len(bq) != len(d) {
				return nil, &ParseError{Line: line, Field: "bq", cause: &ErrBlockMismatch{Row: len(ids) - 1, Expected: len(d), Actual: len(bq)}}
			}
			hasBQ = true
		}
		bqs = append(bqs, bq)
	}

	ds, err := New(ids, depth, alt)
	if err != nil {
		return nil, err
	}

	if hasLabel {
		ds.Answer = answers
	}
	if hasBQ {
		for k, row := range bqs {
			for i, q := range row {
				ds.BQ.Set(k, i, float64(q))
			}
		}
	}

	return ds, nil
}

func parseInts(field string) ([]int, error) {
	parts := strings.Split(strings.TrimSpace(field), ",")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		v, err := strconv.Atoi(p)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}
