// Package search drives the multi-K, multi-trial EM clustering sweep.
//
// For every clone count K the Driver runs a fixed number of trials. Each
// trial starts from a seeded mixture and alternates E and M steps until the
// stop oracle says Stop, an early-termination rule fires, or the step budget
// runs out. Every step produces an immutable Snapshot kept in a StepRecord;
// the best snapshot becomes the trial's Outcome in a TrialRecord, and the
// best trial becomes the K's entry in the Cluster.
//
// Failures are never errors. A trial that cannot produce a valid snapshot
// ends as a Rejected outcome carrying a RejectReason, so a sweep always
// yields a best-effort answer for every K that had enough seeds.
//
// # Usage
//
//	solver := mixture.NewSolver(ds, mixture.Config{MaxParent: 1, MinClusterSize: 9}, logger)
//	seeds, _ := seed.KMeans(ctx, ds.VAF(), 8, 1)
//
//	d, err := search.NewDriver(search.DefaultConfig(), solver, search.WithLogger(logger))
//	if err != nil {
//		return err
//	}
//	cluster, err := d.Run(ctx, seeds)
package search
