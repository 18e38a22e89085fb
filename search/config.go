package search

import (
	"errors"
	"fmt"

	"github.com/hupe1980/emclone/mixture"
)

// ErrInvalidConfig is returned by Config.Validate.
var ErrInvalidConfig = errors.New("search: invalid config")

// checkFromStep is the first step whose makeone sums are validated.
const checkFromStep = 5

// Config holds the sweep parameters. It is a value type and is never
// modified by the Driver.
type Config struct {
	// KMin and KMax bound the clone counts searched, inclusive.
	KMin int
	KMax int

	// TrialCount is the number of restarts per K.
	TrialCount int
	// StepCount bounds the EM steps of a single trial.
	StepCount int

	// MaxParent is the largest number of parent clones a solution may carry.
	MaxParent int
	// MinClusterSize is the smallest clone a step may keep.
	MinClusterSize int
	// Strictness selects the makeone tolerance table.
	Strictness mixture.Strictness

	// Visualize enables copying the winning step's plot to the candidate
	// artifact of its K.
	Visualize bool
}

// DefaultConfig returns the defaults of the command line tool.
func DefaultConfig() Config {
	return Config{
		KMin:           3,
		KMax:           5,
		TrialCount:     5,
		StepCount:      30,
		MaxParent:      1,
		MinClusterSize: 9,
		Strictness:     mixture.Strict,
	}
}

// Validate reports the first invalid field.
func (c Config) Validate() error {
	switch {
	case c.KMin < 1:
		return fmt.Errorf("%w: KMin must be >= 1, got %d", ErrInvalidConfig, c.KMin)
	case c.KMax < c.KMin:
		return fmt.Errorf("%w: KMax %d < KMin %d", ErrInvalidConfig, c.KMax, c.KMin)
	case c.TrialCount < 1:
		return fmt.Errorf("%w: TrialCount must be >= 1, got %d", ErrInvalidConfig, c.TrialCount)
	case c.StepCount < 1:
		return fmt.Errorf("%w: StepCount must be >= 1, got %d", ErrInvalidConfig, c.StepCount)
	case c.MaxParent < 0:
		return fmt.Errorf("%w: MaxParent must be >= 0, got %d", ErrInvalidConfig, c.MaxParent)
	case c.MinClusterSize < 0:
		return fmt.Errorf("%w: MinClusterSize must be >= 0, got %d", ErrInvalidConfig, c.MinClusterSize)
	case c.Strictness != mixture.Strict && c.Strictness != mixture.Lenient:
		return fmt.Errorf("%w: unknown strictness %d", ErrInvalidConfig, c.Strictness)
	}
	return nil
}
