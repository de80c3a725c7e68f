package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/codefionn/testbridge/internal/mcpsetup"
	"github.com/codefionn/testbridge/internal/socketclient"
)

var (
	callSocket  string
	callTimeout time.Duration
	callCount   int
)

var callCmd = &cobra.Command{
	Use:   "call METHOD [PARAMS]",
	Short: "Invoke a method on a running bridge",
	Long: `Sends one request to the bridge and prints the JSON result. PARAMS is a
JSON value (default null). --count issues the same call concurrently on one
connection, which exercises the bridge's out-of-order response handling.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		method := args[0]
		params := json.RawMessage("null")
		if len(args) == 2 {
			if !json.Valid([]byte(args[1])) {
				return fmt.Errorf("params is not valid JSON: %s", args[1])
			}
			params = json.RawMessage(args[1])
		}

		socketPath, err := resolveSocket()
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), callTimeout)
		defer cancel()

		client := socketclient.NewClient(socketPath)
		if err := client.Connect(ctx); err != nil {
			return err
		}
		defer client.Close()

		g, gctx := errgroup.WithContext(ctx)
		results := make([]json.RawMessage, callCount)
		for i := 0; i < callCount; i++ {
			i := i
			g.Go(func() error {
				result, err := client.Call(gctx, method, params)
				if err != nil {
					return err
				}
				results[i] = result
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}

		for _, result := range results {
			fmt.Fprintln(cmd.OutOrStdout(), string(result))
		}
		return nil
	},
}

// resolveSocket picks the socket path: the explicit flag wins, then the
// companion entry in the current project's .mcp.json.
func resolveSocket() (string, error) {
	if callSocket != "" {
		return callSocket, nil
	}
	path, err := mcpsetup.CompanionSocket(".", cfg.Companion)
	if err != nil {
		return "", err
	}
	if path == "" {
		return "", fmt.Errorf("no bridge socket found: pass --socket or run `testbridge serve --project .` first")
	}
	return path, nil
}

func init() {
	callCmd.Flags().StringVar(&callSocket, "socket", "", "bridge socket path (default from ./.mcp.json)")
	callCmd.Flags().DurationVar(&callTimeout, "timeout", 30*time.Second, "overall timeout for the call")
	callCmd.Flags().IntVar(&callCount, "count", 1, "number of concurrent identical calls")
	rootCmd.AddCommand(callCmd)
}
