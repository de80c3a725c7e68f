package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/codefionn/testbridge/internal/mcpsetup"
	"github.com/codefionn/testbridge/internal/socketutil"
)

var statusSocket string

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Probe for a live bridge socket",
	RunE: func(cmd *cobra.Command, args []string) error {
		path := statusSocket
		if path == "" {
			var err error
			path, err = mcpsetup.CompanionSocket(".", cfg.Companion)
			if err != nil {
				return err
			}
		}

		fmt.Fprintln(cmd.OutOrStdout(), socketutil.DetectionInfo(path))
		if !socketutil.DetectBridge(path) {
			return fmt.Errorf("no active bridge")
		}
		return nil
	},
}

func init() {
	statusCmd.Flags().StringVar(&statusSocket, "socket", "", "bridge socket path (default from ./.mcp.json)")
	rootCmd.AddCommand(statusCmd)
}
