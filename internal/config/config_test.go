package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "vomment.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	// Point at a nonexistent file: defaults must stand.
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "local", cfg.Storage.Backend)
	assert.True(t, cfg.Storage.Cache)
	assert.Equal(t, DefaultDataDir, cfg.Storage.DataDir)
	assert.Equal(t, DefaultBlobDir, cfg.Storage.BlobDir)
	assert.Contains(t, cfg.Scan.Exclude, "**/.git/**")
	assert.Zero(t, cfg.Audio.AckTimeout)
}

func TestLoadFromFile(t *testing.T) {
	path := writeConfig(t, `
storage:
  backend: remote
  cache: false
  cloudinary:
    cloud_name: mycloud
    api_key: key
    api_secret: secret
audio:
  recorder_command: ["/usr/local/bin/vomment-rec"]
  player_command: ["/usr/local/bin/vomment-play", "--quiet"]
  ack_timeout: 30s
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "remote", cfg.Storage.Backend)
	assert.False(t, cfg.Storage.Cache)
	assert.Equal(t, "mycloud", cfg.Storage.Cloudinary.CloudName)
	assert.Equal(t, []string{"/usr/local/bin/vomment-rec"}, cfg.Audio.RecorderCommand)
	assert.Equal(t, []string{"/usr/local/bin/vomment-play", "--quiet"}, cfg.Audio.PlayerCommand)
	assert.Equal(t, 30*time.Second, cfg.Audio.AckTimeout)
}

func TestLoadRejectsUnknownBackend(t *testing.T) {
	path := writeConfig(t, "storage:\n  backend: ftp\n")

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "storage.backend")
}

func TestLoadRejectsMalformedFile(t *testing.T) {
	path := writeConfig(t, "storage: [not a map")

	_, err := Load(path)
	assert.Error(t, err)
}

func TestWorkspacePaths(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, filepath.Join("/ws", DefaultDataDir), cfg.DataDir("/ws"))
	assert.Equal(t, filepath.Join("/ws", DefaultBlobDir), cfg.BlobDir("/ws"))
}

func TestSettingsRoundTrip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), DefaultDataDir)

	s := Settings{Backend: "remote", Author: "@alice"}
	require.NoError(t, s.Save(dir))

	got := LoadSettings(dir)
	assert.Equal(t, "remote", got.Backend)
	assert.Equal(t, "@alice", got.Author)
	assert.NotEmpty(t, got.LastUpdated)
}

func TestLoadSettingsMissingIsZero(t *testing.T) {
	got := LoadSettings(filepath.Join(t.TempDir(), "nope"))
	assert.Zero(t, got)
}
