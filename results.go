package emclone

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/mat"
	"gopkg.in/yaml.v3"

	"github.com/hupe1980/emclone/blobstore"
	"github.com/hupe1980/emclone/decision"
	"github.com/hupe1980/emclone/search"
)

// Result blob names.
const (
	ManifestName        = "run.yaml"
	GapStatisticsName   = "result/emclone_hard.gapstatistics.txt"
	DecisionName        = "result/emclone_decision.txt"
	ResultsName         = "result/emclone_hard.results.txt"
	MembershipName      = "result/emclone_hard.membership.txt"
	MixtureName         = "result/emclone_hard.mixture.txt"
	MembershipCountName = "result/emclone_hard.membership_count.txt"
	PlotName            = "result/emclone_hard.png"
)

// manifest is the YAML document written to run.yaml.
type manifest struct {
	RunID     string         `yaml:"run_id"`
	Settings  Settings       `yaml:"settings"`
	Mutations int            `yaml:"mutations"`
	Seeds     int            `yaml:"seeds"`
	K         int            `yaml:"k"`
	Elapsed   string         `yaml:"elapsed"`
	Outcomes  []outcomeEntry `yaml:"outcomes"`
	Traces    []string       `yaml:"traces,omitempty"`
}

type outcomeEntry struct {
	K          int      `yaml:"k"`
	Accepted   bool     `yaml:"accepted"`
	Reason     string   `yaml:"reason,omitempty"`
	Trial      int      `yaml:"trial,omitempty"`
	Step       int      `yaml:"step,omitempty"`
	Likelihood *float64 `yaml:"likelihood,omitempty"`
	Makeone    []int    `yaml:"makeone,omitempty"`
	FP         *int     `yaml:"fp,omitempty"`
}

func newManifest(res *Result) manifest {
	m := manifest{
		RunID:     res.RunID,
		Settings:  res.Settings,
		Mutations: res.Mutations,
		Seeds:     res.Seeds,
		K:         res.K,
		Elapsed:   res.Elapsed.String(),
		Traces:    res.Traces,
	}
	for _, k := range res.Cluster.Ks() {
		o, _ := res.Cluster.Get(k)
		e := outcomeEntry{K: k, Accepted: o.OK()}
		if !o.OK() {
			e.Reason = o.Reason().String()
		} else {
			s := o.Snapshot()
			lik, fp := s.Likelihood, s.FP
			e.Trial, e.Step = s.Trial, s.Step
			e.Likelihood = &lik
			e.Makeone = s.Makeone
			e.FP = &fp
		}
		m.Outcomes = append(m.Outcomes, e)
	}
	return m
}

// writeResults writes run.yaml, the rankings and, when K is determined, the
// files describing its solution.
func writeResults(ctx context.Context, store blobstore.Store, res *Result, logger *Logger) error {
	put := func(name string, data []byte) error {
		err := store.Put(ctx, name, data)
		logger.LogArtifact(ctx, name, err)
		if err != nil {
			return fmt.Errorf("emclone: write %s: %w", name, err)
		}
		res.Artifacts = append(res.Artifacts, name)
		return nil
	}

	doc, err := yaml.Marshal(newManifest(res))
	if err != nil {
		return fmt.Errorf("emclone: encode manifest: %w", err)
	}
	if err := put(ManifestName, doc); err != nil {
		return err
	}
	if err := put(GapStatisticsName, formatGaps(res.Gaps)); err != nil {
		return err
	}
	if err := put(DecisionName, formatDecision(res)); err != nil {
		return err
	}

	if !res.Determined() {
		return nil
	}
	s := res.Best

	files := []struct {
		name string
		data []byte
	}{
		{ResultsName, formatSummary(s, res)},
		{MembershipName, formatMembership(s.Membership)},
		{MixtureName, formatMixture(s.Mixture)},
		{MembershipCountName, formatMembershipCount(s.Membership)},
	}
	for _, f := range files {
		if err := put(f.name, f.data); err != nil {
			return err
		}
	}

	if res.Settings.Visualize {
		src := search.CandidateArtifact(res.K)
		err := blobstore.Copy(ctx, store, src, PlotName)
		logger.LogArtifact(ctx, PlotName, err)
		if err != nil {
			return fmt.Errorf("emclone: copy %s: %w", src, err)
		}
		res.Artifacts = append(res.Artifacts, PlotName)
	}
	return nil
}

// formatSummary renders the key/value summary of the chosen solution.
// NUM_CLONE excludes the false-positive clone.
func formatSummary(s *search.Snapshot, res *Result) []byte {
	clones := s.K
	if s.IncludeFP() {
		clones--
	}
	var b bytes.Buffer
	fmt.Fprintf(&b, "NUM_CLONE\t%d\n", clones)
	fmt.Fprintf(&b, "NUM_CHILD\t%d\n", s.Children())
	fmt.Fprintf(&b, "runningtime\t%d\n", int(math.Round(res.Elapsed.Seconds())))
	fmt.Fprintf(&b, "FPexistence\t%t\n", s.IncludeFP())
	fmt.Fprintf(&b, "FPindex\t%d\n", s.FP)
	fmt.Fprintf(&b, "makeone_index\t%s\n", joinInts(s.Makeone, ","))
	return b.Bytes()
}

func formatMembership(membership []int) []byte {
	var b bytes.Buffer
	for _, m := range membership {
		b.WriteString(strconv.Itoa(m))
		b.WriteByte('\n')
	}
	return b.Bytes()
}

// formatMixture writes one row per block and one column per clone.
func formatMixture(m *mat.Dense) []byte {
	rows, cols := m.Dims()
	var b bytes.Buffer
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			if j > 0 {
				b.WriteByte('\t')
			}
			b.WriteString(strconv.FormatFloat(m.At(i, j), 'f', -1, 64))
		}
		b.WriteByte('\n')
	}
	return b.Bytes()
}

// formatMembershipCount writes the distinct labels on the first row and
// their counts on the second.
func formatMembershipCount(membership []int) []byte {
	counts := make(map[int]int)
	for _, m := range membership {
		counts[m]++
	}
	labels := make([]int, 0, len(counts))
	for l := range counts {
		labels = append(labels, l)
	}
	slices.Sort(labels)

	freq := make([]int, len(labels))
	for i, l := range labels {
		freq[i] = counts[l]
	}
	return []byte(joinInts(labels, "\t") + "\n" + joinInts(freq, "\t") + "\n")
}

func formatGaps(gaps []decision.Gap) []byte {
	var b bytes.Buffer
	b.WriteString("k\twk\tmean_wkb\tsd\ts\tgap\n")
	for _, g := range gaps {
		fmt.Fprintf(&b, "%d\t%s\t%s\t%s\t%s\t%s\n", g.K,
			formatFloat(g.Wk), formatFloat(g.MeanWkb), formatFloat(g.Sd), formatFloat(g.S), formatFloat(g.Gap))
	}
	return b.Bytes()
}

func formatDecision(res *Result) []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, "K\t%d\n", res.K)
	for _, r := range []decision.Ranking{res.Gap, res.MaxLikelihood, res.XieBeni, res.Silhouette} {
		fmt.Fprintf(&b, "%s\t%s\n", r.Method, joinInts(r.Ks(), ","))
	}
	return b.Bytes()
}

func formatFloat(x float64) string {
	switch {
	case math.IsInf(x, -1):
		return "-inf"
	case math.IsInf(x, 1):
		return "inf"
	}
	return strconv.FormatFloat(x, 'f', 4, 64)
}

func joinInts(xs []int, sep string) string {
	parts := make([]string, len(xs))
	for i, x := range xs {
		parts[i] = strconv.Itoa(x)
	}
	return strings.Join(parts, sep)
}
