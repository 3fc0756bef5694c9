package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/vomment/vomment/internal/audio"
	"github.com/vomment/vomment/internal/config"
	"github.com/vomment/vomment/internal/meta"
	"github.com/vomment/vomment/internal/note"
	"github.com/vomment/vomment/internal/storage"
)

// newService assembles the orchestrator for the current workspace.
// Workspace-level settings (author, backend) from the sidecar override
// the machine-level config file.
func newService() (*note.Service, error) {
	ws, err := filepath.Abs(workspace)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve workspace path: %w", err)
	}

	dataDir := cfg.DataDir(ws)
	settings := config.LoadSettings(dataDir)

	backendName := cfg.Storage.Backend
	if settings.Backend != "" {
		backendName = settings.Backend
	}
	backend, err := storage.ParseBackend(backendName)
	if err != nil {
		return nil, err
	}

	var uploader storage.Uploader
	if backend == storage.BackendRemote {
		c := cfg.Storage.Cloudinary
		up, err := storage.NewCloudinaryUploader(c.CloudName, c.APIKey, c.APISecret, c.UploadPreset)
		if err != nil {
			if !errors.Is(err, storage.ErrNotConfigured) {
				return nil, err
			}
			slog.Warn("Remote backend selected but Cloudinary is not configured; uploads will fall back to local storage")
		} else {
			uploader = up
		}
	}

	store := meta.NewStore(dataDir)
	resolver := storage.NewResolver(store, cfg.BlobDir(ws), backend, cfg.Storage.Cache, uploader)

	recorder := audio.NewRecorder(cfg.Audio.RecorderCommand, cfg.Audio.AckTimeout)
	player := audio.NewPlayer(cfg.Audio.PlayerCommand)

	svc := note.NewService(ws, cfg.Scan.Exclude, store, resolver, recorder, player, note.FSBuffer{}, settings.Author)
	return svc, nil
}
