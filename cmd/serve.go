package cmd

import (
	"fmt"
	"log/slog"

	"github.com/vomment/vomment/internal/server"

	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP control server",
	Long: `Start the control server so editor plugins and other UIs can drive
recording, playback and deletion over HTTP.

The server will display the local network URL for easy access from
other devices.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		port, _ := cmd.Flags().GetString("port")

		svc, err := newService()
		if err != nil {
			return fmt.Errorf("failed to create service: %w", err)
		}
		defer svc.Close()

		// Pick up metadata changes made by other processes (editor
		// plugins sharing the workspace).
		go func() {
			if err := svc.WatchMetadata(cmd.Context()); err != nil {
				slog.Warn("Metadata watcher unavailable", "error", err)
			}
		}()

		slog.Info("Vomment control server starting", "port", port, "workspace", workspace)

		// Start server (this blocks)
		if err := server.New(svc, port).Start(); err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().String("port", "8080", "port for the control server")
}
