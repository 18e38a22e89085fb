// Package emclone clusters somatic mutations into clones.
//
// Given per-mutation read counts (depth, alt) across one or more tissue
// samples, emclone searches every candidate clone count K with a
// multi-trial expectation-maximization sweep, keeps the best hard-assignment
// mixture per K and ranks the candidates with the gap statistic.
//
// # Quick Start
//
//	f, _ := os.Open("input.tsv")
//	ds, _ := dataset.ReadTSV(f)
//
//	res, err := emclone.Run(ctx, ds,
//	    emclone.WithKRange(2, 6),
//	    emclone.WithStore(blobstore.NewLocalStore("./out")),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(res.K, res.Best.Mixture)
//
// # Artifacts
//
// With a store configured, Run writes the result files of the chosen K under
// result/ and run.yaml at the root. WithVisualize adds a PNG per accepted
// step (trial/) and the winning plot of every K (candidate/). WithTrace adds
// compressed JSONL step traces (trace/).
//
// Stores can be local directories, MinIO buckets (blobstore/minio) or S3
// buckets (blobstore/s3). WithResources throttles their IO and bounds the
// workers of the gap statistic.
//
// # Search Outcomes
//
// A clone count whose trials all fail is not an error: it is reported as a
// rejected outcome in Result.Cluster with its search.RejectReason. Run only
// fails for invalid input, cancellation and artifact IO errors. When no clone
// count is accepted at all, Run returns the partial Result together with
// ErrUndetermined.
package emclone
