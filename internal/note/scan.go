package note

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/vomment/vomment/internal/marker"
	"github.com/vomment/vomment/internal/meta"
)

// Files larger than this are assumed not to be hand-written source
// and are skipped by the scanner.
const maxScanFileSize = 1 << 20

// NoteRef is one marker occurrence found in the workspace.
type NoteRef struct {
	Path     string       `json:"path"`
	Line     int          `json:"line"`
	Duration string       `json:"duration"`
	Token    marker.Token `json:"-"`
	TokenRaw string       `json:"token"`
	Author   string       `json:"author,omitempty"`
	Comment  string       `json:"comment,omitempty"`

	// Resolvable reports whether the token maps to an existing audio
	// source. Orphaned markers stay listed but flagged.
	Resolvable bool `json:"resolvable"`
}

// FileNotes groups the markers of one source file.
type FileNotes struct {
	Path  string    `json:"path"`
	Notes []NoteRef `json:"notes"`
}

// Scan walks the workspace and returns every file containing at least
// one marker, with per-note resolvability. Paths are relative to the
// workspace root and sorted.
func (s *Service) Scan(ctx context.Context) ([]FileNotes, error) {
	records := s.meta.Load()

	var out []FileNotes
	err := filepath.WalkDir(s.workspace, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			slog.Debug("Scan skipping unreadable entry", "path", path, "error", err)
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		rel, relErr := filepath.Rel(s.workspace, path)
		if relErr != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if rel != "." && s.excluded(rel+"/") {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || s.excluded(rel) {
			return nil
		}
		if info, infoErr := d.Info(); infoErr != nil || info.Size() > maxScanFileSize {
			return nil
		}

		data, readErr := os.ReadFile(path)
		if readErr != nil {
			slog.Debug("Scan skipping unreadable file", "path", path, "error", readErr)
			return nil
		}
		if !strings.Contains(string(data), marker.Sentinel) {
			return nil
		}

		matches := marker.Decode(string(data))
		if len(matches) == 0 {
			return nil
		}

		fn := FileNotes{Path: rel}
		for _, m := range matches {
			fn.Notes = append(fn.Notes, NoteRef{
				Path:       rel,
				Line:       m.Line,
				Duration:   m.Duration,
				Token:      m.Token,
				TokenRaw:   m.Token.Embed(),
				Author:     m.Author,
				Comment:    m.Comment,
				Resolvable: s.resolvable(m.Token, records),
			})
		}
		out = append(out, fn)
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

// FilesWithNotes returns the files holding at least one marker whose
// audio source resolves, mirroring what a note listing UI shows.
func (s *Service) FilesWithNotes(ctx context.Context) ([]FileNotes, error) {
	all, err := s.Scan(ctx)
	if err != nil {
		return nil, err
	}
	var out []FileNotes
	for _, fn := range all {
		for _, n := range fn.Notes {
			if n.Resolvable {
				out = append(out, fn)
				break
			}
		}
	}
	return out, nil
}

// resolvable checks a token against the metadata snapshot and the blob
// directory without touching the network.
func (s *Service) resolvable(tok marker.Token, records map[string]meta.Record) bool {
	switch tok.Kind {
	case marker.KindID:
		rec, ok := records[tok.Value]
		if !ok {
			return false
		}
		if strings.HasPrefix(rec.URL, "http://") || strings.HasPrefix(rec.URL, "https://") {
			return true
		}
		_, err := os.Stat(filepath.Join(s.resolver.BlobDir(), rec.URL))
		return err == nil
	case marker.KindURL:
		return true
	case marker.KindFile:
		_, err := os.Stat(filepath.Join(s.resolver.BlobDir(), tok.Value))
		return err == nil
	}
	return false
}

func (s *Service) excluded(rel string) bool {
	for _, pattern := range s.excludes {
		ok, err := doublestar.Match(pattern, rel)
		if err == nil && ok {
			return true
		}
		// Directory prefixes: a pattern like **/.git/** should also
		// stop descent into .git itself.
		if strings.HasSuffix(rel, "/") {
			if ok, err := doublestar.Match(pattern, rel+"x"); err == nil && ok {
				return true
			}
		}
	}
	return false
}
