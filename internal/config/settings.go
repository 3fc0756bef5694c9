package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

const settingsFile = "config.yaml"

// Settings are the workspace-global mutable preferences, kept in a
// small YAML sidecar inside the data directory so they travel with the
// workspace rather than the machine.
type Settings struct {
	Backend     string `yaml:"backend,omitempty"`
	Author      string `yaml:"author,omitempty"`
	LastUpdated string `yaml:"last_updated,omitempty"`
}

// LoadSettings reads the sidecar from the data directory. A missing or
// unreadable sidecar yields zero-value settings.
func LoadSettings(dataDir string) Settings {
	var s Settings
	data, err := os.ReadFile(filepath.Join(dataDir, settingsFile))
	if err != nil {
		return s
	}
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Settings{}
	}
	return s
}

// Save writes the sidecar, stamping it with the current time.
func (s Settings) Save(dataDir string) error {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	s.LastUpdated = time.Now().Format(time.RFC3339)

	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dataDir, settingsFile), data, 0644); err != nil {
		return fmt.Errorf("failed to write settings: %w", err)
	}
	return nil
}
