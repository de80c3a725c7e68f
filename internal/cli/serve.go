package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/codefionn/testbridge/internal/bridge"
	"github.com/codefionn/testbridge/internal/logger"
	"github.com/codefionn/testbridge/internal/mcpsetup"
	"github.com/codefionn/testbridge/internal/socketserver"
)

var (
	serveSocketDir  string
	serveProjectDir string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run a bridge with diagnostic handlers until interrupted",
	Long: `Starts a bridge with a small built-in handler table (ping, echo,
bridge.status) and keeps it up until SIGINT/SIGTERM. With --project, the
companion entry in that project's .mcp.json is updated to point at the new
socket.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		log := logger.Global().WithPrefix("serve")

		opts := []bridge.ManagerOption{
			bridge.WithPrefix(cfg.Socket.Prefix),
			bridge.WithMaxConnections(cfg.Socket.MaxConnections),
			bridge.WithManagerLogger(log),
		}
		if serveSocketDir != "" {
			opts = append(opts, bridge.WithSocketDir(serveSocketDir))
		} else {
			opts = append(opts, bridge.WithSocketDir(cfg.SocketDir()))
		}

		b := bridge.New(opts...)
		defer b.Dispose()
		b.SetHandlers(diagnosticHandlers(b))

		unsubscribe := b.OnStatusChange(func(st bridge.Status) {
			log.Info("Bridge status: ready=%v starting=%v error=%q path=%s",
				st.BridgeReady, st.Starting, st.Error, st.SocketPath)
		})
		defer unsubscribe()

		path, err := b.Start()
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "bridge listening on %s\n", path)

		if serveProjectDir != "" {
			if len(cfg.Companion.Exec) == 0 {
				log.Warn("No companion command configured, skipping .mcp.json update")
			} else if written, err := mcpsetup.EnsureCompanion(serveProjectDir, cfg.Companion, path); err != nil {
				log.Warn("Failed to update companion config: %v", err)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "companion registered in %s\n", written)
			}
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		<-ctx.Done()

		fmt.Fprintln(cmd.OutOrStdout(), "shutting down")
		return b.Stop()
	},
}

// diagnosticHandlers is the built-in table served by `testbridge serve`.
// Real hosts replace this with their own table via the façade.
func diagnosticHandlers(b *bridge.Bridge) socketserver.HandlerTable {
	return socketserver.HandlerTable{
		"ping": func(ctx context.Context, params json.RawMessage) (any, error) {
			return map[string]any{"pong": true, "time": time.Now().UTC().Format(time.RFC3339Nano)}, nil
		},
		"echo": func(ctx context.Context, params json.RawMessage) (any, error) {
			var v any
			if err := json.Unmarshal(params, &v); err != nil {
				return nil, err
			}
			return v, nil
		},
		"bridge.status": func(ctx context.Context, params json.RawMessage) (any, error) {
			return b.Status(), nil
		},
	}
}

func init() {
	serveCmd.Flags().StringVar(&serveSocketDir, "socket-dir", "", "directory for the generated socket (default from config)")
	serveCmd.Flags().StringVar(&serveProjectDir, "project", "", "project directory whose .mcp.json should point at this bridge")
	rootCmd.AddCommand(serveCmd)
}
