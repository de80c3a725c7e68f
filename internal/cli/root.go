// Package cli implements the testbridge command line interface.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/codefionn/testbridge/internal/config"
	"github.com/codefionn/testbridge/internal/logger"
)

var (
	cfgFile string
	cfg     *config.Config

	// Version is set at build time via ldflags.
	Version = "dev"
)

var rootCmd = &cobra.Command{
	Use:   "testbridge",
	Short: "Local MCP bridge for AI test generation tooling",
	Long: `testbridge runs the local IPC bridge between an editor extension and
its MCP companion process: a Unix domain socket speaking newline-delimited
JSON requests against host-registered handlers.

  testbridge serve              # run a bridge until interrupted
  testbridge call ping          # invoke a method on a running bridge
  testbridge status             # probe for a live bridge socket`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		path := cfgFile
		if path == "" {
			path = config.GetConfigPath()
		}
		var err error
		cfg, err = config.Load(path)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		return logger.Init(logger.ParseLevel(cfg.LogLevel), cfg.LogPath)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default "+config.GetConfigPath()+")")
	rootCmd.Version = Version
}

// Execute runs the CLI and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "testbridge: %v\n", err)
		os.Exit(1)
	}
}
