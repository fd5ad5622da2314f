package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/mkaluza/siltengine/internal/compactor"
	"github.com/mkaluza/siltengine/internal/config"
	"github.com/mkaluza/siltengine/internal/database"
	"github.com/mkaluza/siltengine/internal/httpapi"
	"github.com/mkaluza/siltengine/internal/scheduler"
	"github.com/mkaluza/siltengine/internal/server"
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	var listenAddr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API and run background compaction",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			if listenAddr != "" {
				cfg.ListenAddr = listenAddr
			}

			if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
				return fmt.Errorf("creating data dir: %w", err)
			}

			db, err := database.Open(cfg.DataDir, cfg.MaxMemTableSize, database.WithLogger(logger))
			if err != nil {
				return fmt.Errorf("opening database: %w", err)
			}
			defer db.Close()

			c := compactor.New(cfg.DataDir, cfg.CompactionSizeThreshold, "db", logger)
			sched := scheduler.New(c, cfg.CompactionInterval, logger)

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()
			go sched.Run(ctx)

			router := httpapi.NewRouter(httpapi.NewState(db), logger)
			srv := server.New(cfg.ListenAddr, router, logger)
			return srv.Run(ctx, 10*time.Second)
		},
	}

	cmd.Flags().StringVar(&listenAddr, "listen", "", "HTTP listen address (overrides config)")
	return cmd
}
