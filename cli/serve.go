package cli

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/snapseek/snapseek/server"
)

func ServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the similarity search HTTP server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cfg, log, err := setupContext(cmd)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			svc, store, err := buildService(ctx, cfg)
			if err != nil {
				return err
			}
			defer store.Close(ctx)
			log.Info("starting server",
				"host", cfg.Server.Host,
				"port", cfg.Server.Port,
				"category", cfg.Pipeline.Category,
				"vectordb", cfg.VectorDB.Provider,
			)
			return server.New(svc, cfg.Server.Host, cfg.Server.Port, log).Run(ctx)
		},
	}
}
