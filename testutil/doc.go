// Package testutil provides testing utilities for emclone.
//
// This package is intended for use in tests and benchmarks only.
// It generates synthetic read-count datasets with known clone structure.
//
// # Deterministic Clusters
//
//	ds := testutil.Clusters(200,
//		testutil.Cluster{VAF: []float64{0.25}, Count: 40},
//		testutil.Cluster{VAF: []float64{0.15}, Count: 40},
//	)
//
// # Sampled Clusters
//
//	rng := testutil.NewRNG(seed)
//	ds := rng.SampleClusters(200, clusters...)
package testutil
