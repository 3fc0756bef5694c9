package storage

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"lukechampine.com/blake3"

	"github.com/vomment/vomment/internal/marker"
	"github.com/vomment/vomment/internal/meta"
)

var (
	// ErrAudioNotFound means a resolved local path does not exist.
	// Terminal for the operation, never retried.
	ErrAudioNotFound = errors.New("audio file not found")
	// ErrDownloadFailed means a remote fetch returned a non-2xx status
	// or a network error.
	ErrDownloadFailed = errors.New("audio download failed")
	// ErrUploadFailed means the remote store rejected or errored an
	// upload. Always recoverable by the local fallback.
	ErrUploadFailed = errors.New("audio upload failed")
)

// Backend selects where newly recorded blobs are written. It never
// retroactively moves existing blobs.
type Backend string

const (
	BackendLocal  Backend = "local"
	BackendRemote Backend = "remote"
)

// ParseBackend validates a backend name.
func ParseBackend(s string) (Backend, error) {
	switch Backend(strings.ToLower(s)) {
	case BackendLocal:
		return BackendLocal, nil
	case BackendRemote:
		return BackendRemote, nil
	}
	return "", fmt.Errorf("unknown storage backend %q (want local or remote)", s)
}

// Uploader pushes a local file to a remote store and returns its
// durable URL.
type Uploader interface {
	Upload(ctx context.Context, path string) (string, error)
}

const (
	cacheDirName = "cache"
	blobExt      = ".wav"
)

// Resolver decides where a newly recorded blob lives and resolves an
// existing token back to a locally playable path.
type Resolver struct {
	meta     *meta.Store
	blobDir  string
	backend  Backend
	cache    bool
	client   *http.Client
	uploader Uploader
}

// NewResolver creates a resolver over the given metadata store and
// workspace blob directory. uploader may be nil when the remote
// backend is never selected.
func NewResolver(store *meta.Store, blobDir string, backend Backend, cache bool, uploader Uploader) *Resolver {
	return &Resolver{
		meta:     store,
		blobDir:  blobDir,
		backend:  backend,
		cache:    cache,
		client:   http.DefaultClient,
		uploader: uploader,
	}
}

// Backend returns the currently configured backend.
func (r *Resolver) Backend() Backend { return r.backend }

// SetBackend switches the backend for subsequent saves. Pure
// configuration change; existing blobs stay where they are.
func (r *Resolver) SetBackend(b Backend) { r.backend = b }

// BlobDir returns the workspace-local audio blob directory.
func (r *Resolver) BlobDir() string { return r.blobDir }

// SaveBlob persists a freshly recorded temporary blob for the given
// token and returns the URL to record in metadata: an absolute remote
// URL, or a path relative to the blob directory.
//
// With the remote backend, an upload failure degrades to the local
// backend for this note only; the returned Backend reports where the
// blob actually ended up.
func (r *Resolver) SaveBlob(ctx context.Context, tempPath, token string) (string, Backend, error) {
	if r.backend == BackendRemote {
		url, err := r.upload(ctx, tempPath)
		if err == nil {
			if rmErr := os.Remove(tempPath); rmErr != nil {
				slog.Debug("Failed to remove temporary blob after upload", "path", tempPath, "error", rmErr)
			}
			return url, BackendRemote, nil
		}
		slog.Warn("Upload failed, storing voice note locally instead", "token", token, "error", err)
	}

	name := token + blobExt
	dest := filepath.Join(r.blobDir, name)
	if err := os.MkdirAll(r.blobDir, 0755); err != nil {
		return "", "", fmt.Errorf("failed to create blob directory: %w", err)
	}
	if err := moveFile(tempPath, dest); err != nil {
		return "", "", fmt.Errorf("failed to store audio blob: %w", err)
	}
	return name, BackendLocal, nil
}

// Resolve maps a marker token to a locally playable audio path.
//
// Tokens in the current id form go through the metadata store; legacy
// bare filenames and raw URLs are treated as the target themselves.
func (r *Resolver) Resolve(ctx context.Context, tok marker.Token) (string, error) {
	var target string

	switch tok.Kind {
	case marker.KindID:
		rec, ok := r.meta.Get(tok.Value)
		if !ok {
			return "", fmt.Errorf("%w: no metadata for note %s", ErrAudioNotFound, tok.Value)
		}
		target = rec.URL
	case marker.KindURL, marker.KindFile:
		target = tok.Value
	default:
		return "", fmt.Errorf("%w: unrecognized token", ErrAudioNotFound)
	}

	if isRemote(target) {
		return r.fetchRemote(ctx, target)
	}

	local := filepath.Join(r.blobDir, target)
	if _, err := os.Stat(local); err != nil {
		return "", fmt.Errorf("%w: %s", ErrAudioNotFound, local)
	}
	return local, nil
}

// CachePath returns where a cached download of url lives. The key is a
// stable blake3 hash of the URL, so the same remote blob is fetched at
// most once.
func (r *Resolver) CachePath(url string) string {
	sum := blake3.Sum256([]byte(url))
	ext := path.Ext(url)
	if ext == "" || len(ext) > 8 {
		ext = blobExt
	}
	return filepath.Join(r.blobDir, cacheDirName, hex.EncodeToString(sum[:])+ext)
}

func (r *Resolver) upload(ctx context.Context, tempPath string) (string, error) {
	if r.uploader == nil {
		return "", fmt.Errorf("%w: no remote store configured", ErrUploadFailed)
	}
	url, err := r.uploader.Upload(ctx, tempPath)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}
	return url, nil
}

// fetchRemote returns a local copy of a remote blob: the cached copy
// when caching is on and present, otherwise a fresh download (into the
// cache, or into a process-temporary file for this playback only).
func (r *Resolver) fetchRemote(ctx context.Context, url string) (string, error) {
	if r.cache {
		dest := r.CachePath(url)
		if _, err := os.Stat(dest); err == nil {
			return dest, nil
		}
		if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
			return "", fmt.Errorf("failed to create cache directory: %w", err)
		}
		if err := r.download(ctx, url, dest); err != nil {
			return "", err
		}
		return dest, nil
	}

	tmp, err := os.CreateTemp("", "vomment-play-*"+blobExt)
	if err != nil {
		return "", fmt.Errorf("failed to create temporary download file: %w", err)
	}
	tmp.Close()
	if err := r.download(ctx, url, tmp.Name()); err != nil {
		return "", err
	}
	return tmp.Name(), nil
}

// download performs a single blocking GET with no retry or backoff. A
// partial file is removed on failure.
func (r *Resolver) download(ctx context.Context, url, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDownloadFailed, err)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDownloadFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: %s returned %s", ErrDownloadFailed, url, resp.Status)
	}

	f, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDownloadFailed, err)
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		os.Remove(dest)
		return fmt.Errorf("%w: %v", ErrDownloadFailed, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(dest)
		return fmt.Errorf("%w: %v", ErrDownloadFailed, err)
	}
	return nil
}

// DeleteLocal removes a note's local blob. Remote blobs are never
// deleted automatically, so remote URLs are a no-op here.
func (r *Resolver) DeleteLocal(rec meta.Record) {
	if isRemote(rec.URL) {
		return
	}
	p := filepath.Join(r.blobDir, rec.URL)
	if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
		slog.Warn("Failed to delete audio blob", "path", p, "error", err)
	}
}

// ClearBlobs removes the entire blob directory, cached downloads
// included, and recreates it empty.
func (r *Resolver) ClearBlobs() error {
	if err := os.RemoveAll(r.blobDir); err != nil {
		return fmt.Errorf("failed to clear blob directory: %w", err)
	}
	if err := os.MkdirAll(r.blobDir, 0755); err != nil {
		return fmt.Errorf("failed to recreate blob directory: %w", err)
	}
	return nil
}

func isRemote(url string) bool {
	return strings.HasPrefix(url, "http://") || strings.HasPrefix(url, "https://")
}

// moveFile renames src to dest, falling back to copy-and-remove when
// the two live on different filesystems.
func moveFile(src, dest string) error {
	if err := os.Rename(src, dest); err == nil {
		return nil
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dest)
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Remove(src)
}
