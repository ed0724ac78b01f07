package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func IndexCmd() *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Ingest a directory of catalog images into the vector index",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cfg, log, err := setupContext(cmd)
			if err != nil {
				return err
			}
			svc, store, err := buildService(ctx, cfg)
			if err != nil {
				return err
			}
			defer store.Close(ctx)
			log.Info("indexing directory", "dir", dir, "category", cfg.Pipeline.Category)
			stats, err := svc.IndexDirectory(ctx, dir)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "processed: %d\nfailed: %d\nskipped: %d\n",
				stats.Processed, stats.Failed, stats.Skipped)
			return nil
		},
	}
	cmd.Flags().StringVarP(&dir, "dir", "d", ".", "directory of catalog images to ingest")
	return cmd
}
