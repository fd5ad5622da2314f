package main

import (
	"fmt"
	"os"

	"github.com/mkaluza/siltengine/internal/compactor"
	"github.com/mkaluza/siltengine/internal/config"
	"github.com/spf13/cobra"
)

func newCompactCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compact",
		Short: "Run one compaction pass and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
				return fmt.Errorf("creating data dir: %w", err)
			}

			c := compactor.New(cfg.DataDir, cfg.CompactionSizeThreshold, "db", logger)
			if err := c.Compact(); err != nil {
				return fmt.Errorf("compaction failed: %w", err)
			}
			return nil
		},
	}
	return cmd
}
