package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/hupe1980/emclone"
	"github.com/hupe1980/emclone/blobstore"
	"github.com/hupe1980/emclone/dataset"
)

type runFlags struct {
	input      string
	out        string
	configPath string
	dryRun     bool
	settings   emclone.Settings
}

func newRunCmd(g *globalFlags) *cobra.Command {
	f := &runFlags{settings: emclone.DefaultSettings()}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Cluster the mutations of an input file",
		Example: `  emclone run -i sample.tsv -o ./out
  emclone run -i sample.tsv -o s3://bucket/runs/sample --trace zstd
  emclone run -i sample.tsv -o minio://localhost:9000/runs --config emclone.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return f.run(cmd, g)
		},
	}

	fl := cmd.Flags()
	fl.StringVarP(&f.input, "input", "i", "", "Input TSV file (- for stdin)")
	fl.StringVarP(&f.out, "out", "o", "", "Output directory or minio://, minios://, s3:// URL")
	fl.StringVar(&f.configPath, "config", "", "YAML settings file; flags given explicitly override it")
	fl.BoolVar(&f.dryRun, "dry-run", false, "Keep artifacts in memory and list them instead of writing")
	_ = cmd.MarkFlagRequired("input")
	cmd.MarkFlagsMutuallyExclusive("out", "dry-run")

	s := &f.settings
	fl.IntVar(&s.KMin, "k-min", s.KMin, "Smallest clone count to search")
	fl.IntVar(&s.KMax, "k-max", s.KMax, "Largest clone count to search")
	fl.IntVar(&s.Trials, "trials", s.Trials, "Restarts per clone count")
	fl.IntVar(&s.Steps, "steps", s.Steps, "EM steps per trial")
	fl.IntVar(&s.MaxParent, "max-parent", s.MaxParent, "Largest number of parent clones")
	fl.IntVar(&s.MinClusterSize, "min-cluster-size", s.MinClusterSize, "Smallest clone kept")
	fl.StringVar(&s.Strictness, "strictness", s.Strictness, "Makeone tolerance: strict or lenient")
	fl.IntVar(&s.KMeansClusters, "kmeans-clusters", s.KMeansClusters, "Number of k-means seeds")
	fl.Int64Var(&s.RandomSeed, "seed", s.RandomSeed, "Random seed")
	fl.IntVar(&s.RandomPick, "random-pick", s.RandomPick, "Cluster a random subset of this many mutations (-1 for all)")
	fl.IntVar(&s.GapReferences, "gap-references", s.GapReferences, "Reference sets per clone count for the gap statistic")
	fl.BoolVar(&s.Visualize, "visualize", s.Visualize, "Write a plot per accepted step")
	fl.StringVar(&s.Trace, "trace", s.Trace, "Step trace compression: none, lz4 or zstd")
	fl.Int64Var(&s.Workers, "workers", s.Workers, "Gap statistic workers (0 for one per CPU)")
	fl.Int64Var(&s.IOLimitBytesPerSec, "io-limit", s.IOLimitBytesPerSec, "Store IO limit in bytes per second (0 for none)")

	return cmd
}

func (f *runFlags) run(cmd *cobra.Command, g *globalFlags) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	settings, err := f.resolveSettings(cmd.Flags())
	if err != nil {
		return err
	}

	ds, err := f.readInput(cmd.InOrStdin())
	if err != nil {
		return err
	}

	logger := g.logger(cmd)
	opts := []emclone.Option{
		emclone.WithSettings(settings),
		emclone.WithLogger(logger),
	}
	var dry *blobstore.MemoryStore
	switch {
	case f.dryRun:
		dry = blobstore.NewMemoryStore()
		opts = append(opts, emclone.WithStore(dry))
	case f.out != "":
		store, err := openStore(ctx, f.out, g.region)
		if err != nil {
			return err
		}
		opts = append(opts, emclone.WithStore(store))
	}

	w := cmd.OutOrStdout()
	res, err := emclone.Run(ctx, ds, opts...)
	switch {
	case errors.Is(err, emclone.ErrUndetermined):
		fmt.Fprintln(w, "Can't determine the clusters")
	case err != nil:
		return err
	default:
		printResult(w, res, dry == nil)
	}

	if dry != nil {
		printDryRun(w, dry)
	}
	return nil
}

// resolveSettings layers --config and the explicitly set flags over the
// defaults.
func (f *runFlags) resolveSettings(fl *pflag.FlagSet) (emclone.Settings, error) {
	if f.configPath == "" {
		return f.settings, f.settings.Validate()
	}

	file, err := os.Open(f.configPath)
	if err != nil {
		return emclone.Settings{}, err
	}
	defer func() { _ = file.Close() }()

	s, err := emclone.LoadSettings(file)
	if err != nil {
		return emclone.Settings{}, err
	}

	flagged := f.settings
	overrides := map[string]func(){
		"k-min":            func() { s.KMin = flagged.KMin },
		"k-max":            func() { s.KMax = flagged.KMax },
		"trials":           func() { s.Trials = flagged.Trials },
		"steps":            func() { s.Steps = flagged.Steps },
		"max-parent":       func() { s.MaxParent = flagged.MaxParent },
		"min-cluster-size": func() { s.MinClusterSize = flagged.MinClusterSize },
		"strictness":       func() { s.Strictness = flagged.Strictness },
		"kmeans-clusters":  func() { s.KMeansClusters = flagged.KMeansClusters },
		"seed":             func() { s.RandomSeed = flagged.RandomSeed },
		"random-pick":      func() { s.RandomPick = flagged.RandomPick },
		"gap-references":   func() { s.GapReferences = flagged.GapReferences },
		"visualize":        func() { s.Visualize = flagged.Visualize },
		"trace":            func() { s.Trace = flagged.Trace },
		"workers":          func() { s.Workers = flagged.Workers },
		"io-limit":         func() { s.IOLimitBytesPerSec = flagged.IOLimitBytesPerSec },
	}
	fl.Visit(func(flag *pflag.Flag) {
		if apply, ok := overrides[flag.Name]; ok {
			apply()
		}
	})

	return s, s.Validate()
}

func (f *runFlags) readInput(stdin io.Reader) (*dataset.Dataset, error) {
	if f.input == "-" {
		return dataset.ReadTSV(stdin)
	}
	file, err := os.Open(f.input)
	if err != nil {
		return nil, err
	}
	defer func() { _ = file.Close() }()
	return dataset.ReadTSV(file)
}

func printResult(w io.Writer, res *emclone.Result, wrote bool) {
	s := res.Best
	fmt.Fprintf(w, "run\t%s\n", res.RunID)
	fmt.Fprintf(w, "K\t%d\n", res.K)
	fmt.Fprintf(w, "NUM_CHILD\t%d\n", s.Children())
	fmt.Fprintf(w, "FPexistence\t%t\n", s.IncludeFP())
	fmt.Fprintf(w, "likelihood\t%.1f\n", s.Likelihood)
	fmt.Fprintf(w, "gap_order\t%v\n", res.Gap.Ks())
	fmt.Fprintf(w, "elapsed\t%s\n", res.Elapsed.Round(time.Millisecond))
	if !wrote {
		return
	}
	for _, name := range res.Artifacts {
		fmt.Fprintf(w, "wrote\t%s\n", name)
	}
}

func printDryRun(w io.Writer, store *blobstore.MemoryStore) {
	for _, u := range store.Usage() {
		fmt.Fprintf(w, "dry-run\t%s\t%d\n", u.Name, u.Size)
	}
	fmt.Fprintf(w, "dry-run\ttotal\t%d\n", store.Bytes())
}
