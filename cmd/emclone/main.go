// Command emclone clusters somatic mutations into clones.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/hupe1980/emclone"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

type globalFlags struct {
	verbose   int
	logFormat string
	region    string
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}

	root := &cobra.Command{
		Use:   "emclone",
		Short: "Clonal deconvolution of somatic mutations",
		Long: `emclone clusters somatic mutations into clones with an
expectation-maximization search over clone counts and picks the clone count
with the gap statistic.

Input rows are tab-separated:

  id <TAB> depth1,alt1[,depth2,alt2...] [<TAB> answer [<TAB> bq1[,bq2...]]]`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if g.verbose < 0 || g.verbose > 3 {
				return fmt.Errorf("--verbose must be between 0 and 3, got %d", g.verbose)
			}
			switch g.logFormat {
			case "text", "json":
				return nil
			default:
				return fmt.Errorf("--log-format must be text or json, got %q", g.logFormat)
			}
		},
	}

	root.PersistentFlags().IntVarP(&g.verbose, "verbose", "v", 2, "Verbosity from 0 (every step) to 3 (warnings only)")
	root.PersistentFlags().StringVar(&g.logFormat, "log-format", "text", "Log format: text or json")
	root.PersistentFlags().StringVar(&g.region, "region", "", "AWS region for s3:// stores")

	root.AddCommand(newRunCmd(g))
	root.AddCommand(newTraceCmd(g))
	root.AddCommand(newVersionCmd())

	return root
}

func (g *globalFlags) logger(cmd *cobra.Command) *emclone.Logger {
	opts := &slog.HandlerOptions{Level: emclone.LevelForVerbosity(g.verbose)}
	if g.logFormat == "json" {
		return emclone.NewLogger(slog.NewJSONHandler(cmd.ErrOrStderr(), opts))
	}
	return emclone.NewLogger(slog.NewTextHandler(cmd.ErrOrStderr(), opts))
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "emclone", version)
		},
	}
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
