package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/emclone"
)

// writeInput writes three clones of 40 mutations at VAF 0.25, 0.15 and 0.10.
func writeInput(t *testing.T) string {
	t.Helper()

	var b strings.Builder
	jitter := []int{0, 1, -1, 2, -2}
	for c, vaf := range []float64{0.25, 0.15, 0.10} {
		for m := 0; m < 40; m++ {
			alt := int(vaf*200+0.5) + jitter[m%len(jitter)]
			fmt.Fprintf(&b, "m%d_%d\t200,%d\tc%d\n", c, m, alt, c)
		}
	}

	path := filepath.Join(t.TempDir(), "input.tsv")
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o644))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestVersionCmd(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "emclone dev\n", out)
}

func TestRunCmd(t *testing.T) {
	input := writeInput(t)
	outDir := filepath.Join(t.TempDir(), "out")

	out, err := execute(t, "run",
		"-i", input,
		"-o", outDir,
		"--k-min", "2", "--k-max", "4",
		"--kmeans-clusters", "3",
		"--min-cluster-size", "5",
		"--trace", "zstd",
		"-v", "3",
	)
	require.NoError(t, err)
	assert.Contains(t, out, "K\t3\n")

	for _, name := range []string{emclone.ManifestName, emclone.ResultsName, emclone.MixtureName} {
		assert.FileExists(t, filepath.Join(outDir, name))
	}

	traces, err := filepath.Glob(filepath.Join(outDir, "trace", "*.zst"))
	require.NoError(t, err)
	require.NotEmpty(t, traces)

	rel, err := filepath.Rel(outDir, traces[0])
	require.NoError(t, err)
	out, err = execute(t, "trace", "--store", outDir, filepath.ToSlash(rel))
	require.NoError(t, err)
	assert.Contains(t, out, `"membership":`)
}

func TestRunCmd_DryRun(t *testing.T) {
	out, err := execute(t, "run",
		"-i", writeInput(t),
		"--dry-run",
		"--k-min", "2", "--k-max", "4",
		"--kmeans-clusters", "3",
		"--min-cluster-size", "5",
		"--trace", "lz4",
		"-v", "3",
	)
	require.NoError(t, err)
	assert.Contains(t, out, "K\t3\n")
	assert.Contains(t, out, "dry-run\t"+emclone.ManifestName+"\t")
	assert.Contains(t, out, "dry-run\t"+emclone.ResultsName+"\t")
	assert.Contains(t, out, ".jsonl.lz4\t")
	assert.Contains(t, out, "dry-run\ttotal\t")
	assert.NotContains(t, out, "wrote\t")

	_, err = execute(t, "run", "-i", writeInput(t), "--dry-run", "-o", t.TempDir())
	assert.ErrorContains(t, err, "dry-run")
}

func TestRunCmd_Undetermined(t *testing.T) {
	out, err := execute(t, "run",
		"-i", writeInput(t),
		"--k-min", "2", "--k-max", "3",
		"--kmeans-clusters", "3",
		"--min-cluster-size", "1000",
		"-v", "3",
	)
	require.NoError(t, err)
	assert.Equal(t, "Can't determine the clusters\n", out)
}

func TestRunCmd_Errors(t *testing.T) {
	_, err := execute(t, "run")
	assert.ErrorContains(t, err, "input")

	_, err = execute(t, "run", "-i", writeInput(t), "-v", "7")
	assert.ErrorContains(t, err, "--verbose")

	_, err = execute(t, "run", "-i", writeInput(t), "--log-format", "xml")
	assert.ErrorContains(t, err, "--log-format")

	_, err = execute(t, "run", "-i", filepath.Join(t.TempDir(), "missing.tsv"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = execute(t, "run", "-i", writeInput(t), "--trace", "gzip")
	var settingErr *emclone.ErrInvalidSetting
	assert.ErrorAs(t, err, &settingErr)
}

func TestResolveSettings(t *testing.T) {
	config := filepath.Join(t.TempDir(), "emclone.yaml")
	require.NoError(t, os.WriteFile(config, []byte("k_max: 7\ntrials: 9\n"), 0o644))

	f := &runFlags{settings: emclone.DefaultSettings(), configPath: config}
	fl := pflag.NewFlagSet("run", pflag.ContinueOnError)
	fl.IntVar(&f.settings.Trials, "trials", f.settings.Trials, "")
	fl.IntVar(&f.settings.Steps, "steps", f.settings.Steps, "")
	require.NoError(t, fl.Parse([]string{"--trials", "2"}))

	s, err := f.resolveSettings(fl)
	require.NoError(t, err)
	assert.Equal(t, 7, s.KMax, "from file")
	assert.Equal(t, 2, s.Trials, "flag overrides file")
	assert.Equal(t, emclone.DefaultSettings().Steps, s.Steps, "default")
}

func TestOpenStore(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "out")
	s, err := openStore(t.Context(), dir, "")
	require.NoError(t, err)
	assert.DirExists(t, dir)
	require.NoError(t, s.Put(t.Context(), "a.txt", []byte("a")))

	_, err = openStore(t.Context(), "", "")
	assert.Error(t, err)

	_, err = openStore(t.Context(), "s3://", "")
	assert.Error(t, err)
}
