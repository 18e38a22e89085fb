package search

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// Decision is a stop oracle verdict.
type Decision int

const (
	// Go continues the trial.
	Go Decision = iota
	// Stop ends the trial and accepts its best step.
	Stop
)

func (d Decision) String() string {
	if d == Stop {
		return "stop"
	}
	return "go"
}

// StopOracle decides after every step whether a trial should continue.
//
// rec already contains cur when accepted is true.
type StopOracle interface {
	Decide(rec *StepRecord, cur *Snapshot, accepted bool) Decision
}

// LookbackOracle stops a trial once it stops moving: when the current step
// agrees with one of the last Window recorded steps, or its likelihood falls
// below Ratio times the best recorded likelihood. A rejected step always
// stops.
type LookbackOracle struct {
	// Window is both the number of earlier steps compared and the warm-up:
	// no step at or below Window stops voluntarily.
	Window int
	// Agreement is the fraction of mutations that must keep their clone.
	Agreement float64
	// Decimals is the rounding applied before comparing mixtures.
	Decimals int
	// Ratio scales the best likelihood for the regression test.
	Ratio float64
}

// DefaultOracle returns the oracle used by the command line tool.
func DefaultOracle() LookbackOracle {
	return LookbackOracle{Window: 5, Agreement: 0.995, Decimals: 2, Ratio: 0.99}
}

// Decide implements StopOracle.
func (o LookbackOracle) Decide(rec *StepRecord, cur *Snapshot, accepted bool) Decision {
	if !accepted {
		return Stop
	}
	if cur.Step <= o.Window {
		return Go
	}

	// The current snapshot is the last entry.
	end := rec.Len() - 1
	for p := max(end-o.Window, 0); p < end; p++ {
		prev := rec.At(p)
		if agreement(cur.Membership, prev.Membership) >= int(float64(len(cur.Membership))*o.Agreement) {
			return Stop
		}
		if roundedEqual(cur.Mixture, prev.Mixture, o.Decimals) {
			return Stop
		}
	}

	if i := rec.Best(0, -1); i >= 0 && cur.Likelihood < o.Ratio*rec.At(i).Likelihood {
		return Stop
	}
	return Go
}

func agreement(a, b []int) int {
	if len(a) != len(b) {
		return 0
	}
	n := 0
	for i := range a {
		if a[i] == b[i] {
			n++
		}
	}
	return n
}

func roundedEqual(a, b *mat.Dense, decimals int) bool {
	ar, ac := a.Dims()
	br, bc := b.Dims()
	if ar != br || ac != bc {
		return false
	}
	scale := math.Pow(10, float64(decimals))
	return mat.EqualApprox(roundTo(a, scale), roundTo(b, scale), 0)
}

func roundTo(m *mat.Dense, scale float64) *mat.Dense {
	var out mat.Dense
	out.Apply(func(_, _ int, v float64) float64 { return math.Round(v*scale) / scale }, m)
	return &out
}
