package cmd

import (
	"fmt"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/vomment/vomment/internal/config"
	"github.com/vomment/vomment/internal/storage"

	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long: `View the resolved configuration and manage workspace-level settings.
The author and backend settings are stored in a sidecar inside the
workspace data directory, so they travel with the workspace.`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the resolved configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		out, err := yaml.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("error marshaling config: %w", err)
		}
		fmt.Print(string(out))

		settings := config.LoadSettings(cfg.DataDir(absWorkspace()))
		if settings.Author != "" || settings.Backend != "" {
			fmt.Println("---")
			sidecar, err := yaml.Marshal(settings)
			if err != nil {
				return fmt.Errorf("error marshaling settings: %w", err)
			}
			fmt.Print(string(sidecar))
		}
		return nil
	},
}

var configAuthorCmd = &cobra.Command{
	Use:   "author [name]",
	Short: "Show or set the default author for new voice notes",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dataDir := cfg.DataDir(absWorkspace())
		settings := config.LoadSettings(dataDir)

		if len(args) == 0 {
			if settings.Author == "" {
				fmt.Println("No default author set")
			} else {
				fmt.Println(settings.Author)
			}
			return nil
		}

		settings.Author = args[0]
		if err := settings.Save(dataDir); err != nil {
			return err
		}
		fmt.Printf("Default author set to %s\n", settings.Author)
		return nil
	},
}

var configBackendCmd = &cobra.Command{
	Use:   "backend [local|remote]",
	Short: "Show or set the storage backend for new recordings",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dataDir := cfg.DataDir(absWorkspace())
		settings := config.LoadSettings(dataDir)

		if len(args) == 0 {
			backend := settings.Backend
			if backend == "" {
				backend = cfg.Storage.Backend
			}
			fmt.Println(backend)
			return nil
		}

		backend, err := storage.ParseBackend(args[0])
		if err != nil {
			return err
		}
		settings.Backend = string(backend)
		if err := settings.Save(dataDir); err != nil {
			return err
		}
		fmt.Printf("Storage backend set to %s\n", backend)
		return nil
	},
}

func absWorkspace() string {
	ws, err := filepath.Abs(workspace)
	if err != nil {
		return workspace
	}
	return ws
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configAuthorCmd)
	configCmd.AddCommand(configBackendCmd)
}
