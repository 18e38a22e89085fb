package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"gonum.org/v1/gonum/mat"

	"github.com/hupe1980/emclone/mixture"
)

// levelStep is below slog.LevelDebug; it logs every step.
const levelStep = slog.LevelDebug - 4

// ErrNilSolver is returned by NewDriver without a solver.
var ErrNilSolver = errors.New("search: nil solver")

// Solver runs one E step and one M step. Implementations must not modify
// their input state.
type Solver interface {
	Estep(st *mixture.State, step int) *mixture.State
	Mstep(st *mixture.State, step int) *mixture.State
}

// Initializer supplies the starting mixture of every trial.
type Initializer interface {
	// Count returns the number of available seeds. K above Count is skipped.
	Count() int
	// Initial returns the NUM_BLOCK x k starting mixture of trial.
	Initial(k, trial int) (*mat.Dense, error)
}

// StepArtifact names the plot of one step.
func StepArtifact(k, trial, step int) string {
	return fmt.Sprintf("trial/clone%d.%d-%d.png", k, trial, step)
}

// CandidateArtifact names the plot promoted for k.
func CandidateArtifact(k int) string {
	return fmt.Sprintf("candidate/clone%d.(hard).png", k)
}

// Driver runs the sweep. A Driver is not safe for concurrent use.
type Driver struct {
	cfg       Config
	solver    Solver
	logger    *slog.Logger
	oracle    StopOracle
	observers []Observer
	artifacts Copier
	metrics   Metrics
}

// NewDriver validates cfg and returns a Driver.
func NewDriver(cfg Config, solver Solver, opts ...Option) (*Driver, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if solver == nil {
		return nil, ErrNilSolver
	}

	o := options{
		oracle:  DefaultOracle(),
		metrics: noopMetrics{},
	}
	for _, fn := range opts {
		fn(&o)
	}
	if o.logger == nil {
		o.logger = slog.New(slog.DiscardHandler)
	}

	return &Driver{
		cfg:       cfg,
		solver:    solver,
		logger:    o.logger,
		oracle:    o.oracle,
		observers: o.observers,
		artifacts: o.artifacts,
		metrics:   o.metrics,
	}, nil
}

// Config returns the driver configuration.
func (d *Driver) Config() Config { return d.cfg }

// Run searches every K in [KMin, KMax] that init has enough seeds for.
// It returns an error only on context cancellation or observer failure.
func (d *Driver) Run(ctx context.Context, init Initializer) (*Cluster, error) {
	cluster := NewCluster()

	for k := d.cfg.KMin; k <= d.cfg.KMax; k++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if n := init.Count(); n < k {
			d.logger.Info("skipping clone count", "k", k, "seeds", n)
			continue
		}

		trials, err := d.runK(ctx, init, k)
		if err != nil {
			return nil, err
		}

		best := trials.Best(0, -1)
		if best < 0 {
			reason := trials.At(0).Reason()
			d.logger.Info("clone count rejected", "k", k, "reason", reason)
			cluster.Set(k, Reject(reason))
			continue
		}

		out := trials.At(best)
		snap := out.Snapshot()
		d.logger.Info("clone count done",
			"k", k,
			"trial", best,
			"step", snap.Step,
			"likelihood", snap.Likelihood,
			"makeone", snap.Makeone,
			"fp", snap.FP,
		)

		if d.cfg.Visualize && d.artifacts != nil {
			src := StepArtifact(k, snap.Trial, snap.Step)
			if err := d.artifacts.Copy(ctx, src, CandidateArtifact(k)); err != nil {
				d.logger.Warn("promoting plot failed", "k", k, "src", src, "error", err)
			}
		}

		cluster.Set(k, out)
	}

	return cluster, nil
}

func (d *Driver) runK(ctx context.Context, init Initializer, k int) (*TrialRecord, error) {
	trials := NewTrialRecord(k, d.cfg.TrialCount)

	for trial := 0; trial < d.cfg.TrialCount; trial++ {
		if err := d.runTrial(ctx, init, trials, k, trial); err != nil {
			return nil, err
		}
	}

	return trials, nil
}

func (d *Driver) runTrial(ctx context.Context, init Initializer, trials *TrialRecord, k, trial int) error {
	logger := d.logger.With("k", k, "trial", trial)

	m0, err := init.Initial(k, trial)
	if err != nil {
		logger.Warn("no initial mixture", "error", err)
		trials.Reject(trial, RejectNoSteps)
		d.metrics.RecordTrial(k, false, 0)
		return nil
	}

	rec := &StepRecord{}
	st := mixture.NewState(m0)

	settle := func(idx int, reason RejectReason, steps int) {
		if !trials.Accept(trial, rec, idx) {
			trials.Reject(trial, reason)
		}
		d.metrics.RecordTrial(k, trials.At(trial).OK(), steps)
	}

	for step := 0; step < d.cfg.StepCount; step++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		st = d.solver.Estep(st, step)

		if reason, ok := d.earlyStop(logger, st, k, step); !ok {
			d.metrics.RecordEarlyStop(k, reason)
			settle(rec.BestVoluntary(0, -1), reason, step)
			return nil
		}

		st = d.solver.Mstep(st, step)

		// Mstep reselects makeone.
		if reason, ok := d.parentCount(logger, st, k, step); !ok {
			d.metrics.RecordStep(k, false)
			d.metrics.RecordEarlyStop(k, reason)
			settle(rec.BestVoluntary(0, -1), reason, step)
			return nil
		}

		snap := newSnapshot(k, trial, step, st)

		accepted := true
		if step >= checkFromStep {
			if ok, sums := CheckMakeone(st.Mixture, st.Makeone, d.cfg.Strictness); !ok {
				accepted = false
				logger.Debug("makeone sum out of band", "step", step, "makeone", st.Makeone, "sums", sums)
			}
		}
		d.metrics.RecordStep(k, accepted)
		logger.Log(ctx, levelStep, "m step",
			"step", step,
			"likelihood", snap.Likelihood,
			"counts", snap.Counts(),
			"makeone", snap.Makeone,
			"fp", snap.FP,
		)

		if accepted {
			rec.Append(snap)
			for _, obs := range d.observers {
				if err := obs.OnStep(ctx, snap); err != nil {
					return fmt.Errorf("search: observer at k=%d trial=%d step=%d: %w", k, trial, step, err)
				}
			}
		}

		if d.oracle.Decide(rec, snap, accepted) == Stop {
			logger.Debug("stop", "step", step, "accepted", accepted, "likelihood", snap.Likelihood)
			settle(rec.Best(0, -1), RejectMakeoneSum, step+1)
			return nil
		}
	}

	settle(rec.Best(0, -1), RejectNoSteps, d.cfg.StepCount)
	return nil
}

// earlyStop applies the early-termination rules after an E step. It
// returns false and the reason when the trial must end.
func (d *Driver) earlyStop(logger *slog.Logger, st *mixture.State, k, step int) (RejectReason, bool) {
	if reason, ok := d.parentCount(logger, st, k, step); !ok {
		return reason, false
	}

	counts := st.Counts()
	smallest := 0
	distinct := 0
	for j, c := range counts {
		if c > 0 {
			distinct++
		}
		if c < counts[smallest] {
			smallest = j
		}
	}
	if distinct < k || counts[smallest] < d.cfg.MinClusterSize {
		logger.Debug("shrinking clone",
			"step", step,
			"clone", smallest,
			"size", counts[smallest],
			"counts", counts,
		)
		return RejectShrinkingClone, false
	}

	return RejectNone, true
}

// parentCount rejects a state that leaves more than MaxParent clones outside
// makeone and the FP clone.
func (d *Driver) parentCount(logger *slog.Logger, st *mixture.State, k, step int) (RejectReason, bool) {
	includeFP := 0
	if st.IncludeFP() {
		includeFP = 1
	}
	if k-len(st.Makeone)-includeFP <= d.cfg.MaxParent {
		return RejectNone, true
	}

	reason := RejectParentCount
	if len(st.Makeone) == 0 {
		reason = RejectNoMakeone
	}
	logger.Debug("too many parents",
		"step", step,
		"makeone", st.Makeone,
		"fp", st.FP,
		"max_parent", d.cfg.MaxParent,
	)
	return reason, false
}
