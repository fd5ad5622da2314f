// Command siltengine runs the storage engine's HTTP service or a single
// compaction pass, per a TOML configuration file.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	configPath string
	logger     *zap.SugaredLogger
)

func main() {
	root := &cobra.Command{
		Use:   "siltengine",
		Short: "An embedded LSM key-value storage engine",
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to a TOML config file")

	root.AddCommand(newServeCmd())
	root.AddCommand(newCompactCmd())

	z, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintln(os.Stderr, "siltengine: failed to init logger:", err)
		os.Exit(1)
	}
	defer z.Sync()
	logger = z.Sugar()

	if err := root.Execute(); err != nil {
		logger.Errorw("command failed", "error", err)
		os.Exit(1)
	}
}
