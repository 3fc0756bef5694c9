package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the resolved tool configuration: where note data lives,
// which storage backend new recordings go to, and how the audio helper
// processes are launched.
type Config struct {
	Storage StorageConfig `mapstructure:"storage" yaml:"storage"`
	Audio   AudioConfig   `mapstructure:"audio" yaml:"audio"`
	Scan    ScanConfig    `mapstructure:"scan" yaml:"scan"`
}

type StorageConfig struct {
	Backend    string           `mapstructure:"backend" yaml:"backend"`   // "local" or "remote"
	Cache      bool             `mapstructure:"cache" yaml:"cache"`       // cache remote downloads
	DataDir    string           `mapstructure:"data_dir" yaml:"data_dir"` // workspace-relative metadata directory
	BlobDir    string           `mapstructure:"blob_dir" yaml:"blob_dir"` // workspace-relative audio blob directory
	Cloudinary CloudinaryConfig `mapstructure:"cloudinary" yaml:"cloudinary"`
}

type CloudinaryConfig struct {
	CloudName    string `mapstructure:"cloud_name" yaml:"cloud_name"`
	APIKey       string `mapstructure:"api_key" yaml:"api_key"`
	APISecret    string `mapstructure:"api_secret" yaml:"api_secret"`
	UploadPreset string `mapstructure:"upload_preset" yaml:"upload_preset"`
}

type AudioConfig struct {
	// Helper command lines. Each helper speaks the line protocol over
	// stdin/stdout (READY/SAVED/ERROR/FINISHED).
	RecorderCommand []string `mapstructure:"recorder_command" yaml:"recorder_command"`
	PlayerCommand   []string `mapstructure:"player_command" yaml:"player_command"`

	// AckTimeout bounds the wait for the recorder's save
	// acknowledgement. Zero keeps the historical behavior of waiting
	// indefinitely.
	AckTimeout time.Duration `mapstructure:"ack_timeout" yaml:"ack_timeout"`
}

type ScanConfig struct {
	// Exclude holds doublestar glob patterns skipped by the workspace
	// scanner.
	Exclude []string `mapstructure:"exclude" yaml:"exclude"`
}

const (
	DefaultDataDir = ".vomment-data"
	DefaultBlobDir = ".voicenotes"
)

var defaultExcludes = []string{
	"**/node_modules/**",
	"**/.git/**",
	"**/" + DefaultBlobDir + "/**",
	"**/" + DefaultDataDir + "/**",
}

// Load reads the configuration file, applying defaults and VOMMENT_*
// environment overrides. A missing file is not an error; the defaults
// stand.
func Load(configFile string) (*Config, error) {
	v := viper.New()

	v.SetDefault("storage.backend", "local")
	v.SetDefault("storage.cache", true)
	v.SetDefault("storage.data_dir", DefaultDataDir)
	v.SetDefault("storage.blob_dir", DefaultBlobDir)
	v.SetDefault("scan.exclude", defaultExcludes)

	v.SetEnvPrefix("VOMMENT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile == "" {
		configFile = defaultConfigPath()
	}
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			if _, statErr := os.Stat(configFile); statErr == nil {
				return nil, fmt.Errorf("error reading config file %s: %w", configFile, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch strings.ToLower(c.Storage.Backend) {
	case "local", "remote":
	default:
		return fmt.Errorf("storage.backend must be 'local' or 'remote', got: %s", c.Storage.Backend)
	}
	if c.Storage.DataDir == "" {
		return fmt.Errorf("storage.data_dir must not be empty")
	}
	if c.Storage.BlobDir == "" {
		return fmt.Errorf("storage.blob_dir must not be empty")
	}
	if c.Audio.AckTimeout < 0 {
		return fmt.Errorf("audio.ack_timeout must be >= 0, got: %s", c.Audio.AckTimeout)
	}
	return nil
}

// DataDir resolves the metadata directory under a workspace root.
func (c *Config) DataDir(workspace string) string {
	return filepath.Join(workspace, c.Storage.DataDir)
}

// BlobDir resolves the audio blob directory under a workspace root.
func (c *Config) BlobDir(workspace string) string {
	return filepath.Join(workspace, c.Storage.BlobDir)
}

func defaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "vomment.yaml")
}
