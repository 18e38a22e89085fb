package main

import (
	"github.com/spf13/cobra"

	"github.com/hupe1980/emclone/codec"
	"github.com/hupe1980/emclone/trace"
)

func newTraceCmd(g *globalFlags) *cobra.Command {
	var store string

	cmd := &cobra.Command{
		Use:   "trace <name>...",
		Short: "Decode step traces to JSON lines",
		Example: `  emclone trace --store ./out trace/clone3.0.jsonl.zst
  emclone trace --store s3://bucket/runs/sample trace/clone4.2.jsonl.lz4`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openStore(cmd.Context(), store, g.region)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			for _, name := range args {
				records, err := trace.ReadAll(cmd.Context(), s, name)
				if err != nil {
					return err
				}
				for _, r := range records {
					line, err := codec.Default.AppendLine(nil, r)
					if err != nil {
						return err
					}
					if _, err := w.Write(line); err != nil {
						return err
					}
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&store, "store", ".", "Directory or minio://, minios://, s3:// URL holding the traces")

	return cmd
}
