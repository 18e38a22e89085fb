package emclone

import (
	"errors"
	"fmt"
)

var (
	// ErrNoMutations is returned when the dataset is nil or empty.
	ErrNoMutations = errors.New("emclone: no mutations")

	// ErrUndetermined is returned, together with the partial Result, when no
	// clone count produced an accepted solution.
	ErrUndetermined = errors.New("emclone: no clone count accepted")
)

// ErrInvalidKRange indicates an empty or non-positive clone count range.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type ErrInvalidKRange struct {
	KMin  int
	KMax  int
	cause error
}

func (e *ErrInvalidKRange) Error() string {
	return fmt.Sprintf("emclone: invalid clone count range [%d, %d]", e.KMin, e.KMax)
}

func (e *ErrInvalidKRange) Unwrap() error { return e.cause }

// ErrInvalidSetting indicates a Settings field that cannot be applied.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type ErrInvalidSetting struct {
	Field string
	Value any
	cause error
}

func (e *ErrInvalidSetting) Error() string {
	return fmt.Sprintf("emclone: invalid setting %s: %v", e.Field, e.Value)
}

func (e *ErrInvalidSetting) Unwrap() error { return e.cause }
