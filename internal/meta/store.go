package meta

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

const (
	metadataFile = "metadata.json"
	readmeFile   = "README.md"

	readmeContent = "# Voice Note Data\n\n" +
		"This folder contains metadata and configuration for the voice note tooling.\n\n" +
		"**Please do not delete or modify these files manually** as it may corrupt your voice note linkages.\n"
)

// Record is the persisted metadata for one voice note. Records are
// created atomically with their audio blob and never updated in place;
// the only mutation is removal.
type Record struct {
	URL       string `json:"url"`
	Duration  string `json:"duration"`
	Author    string `json:"author,omitempty"`
	Comment   string `json:"textComment,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

// Store is the durable token -> Record mapping, one JSON document per
// workspace data directory.
//
// The document is read-modify-written without locking. The host
// editor is assumed to be the single writer; two mutations racing
// resolve as last-writer-wins with no merge.
type Store struct {
	dir string
	now func() time.Time
}

// NewStore creates a store rooted at the given data directory. The
// directory is created lazily on first access.
func NewStore(dir string) *Store {
	return &Store{dir: dir, now: time.Now}
}

// Path returns the location of the metadata document.
func (s *Store) Path() string {
	return filepath.Join(s.dir, metadataFile)
}

// Load reads and parses the document. A missing or unparsable document
// is treated as "no notes yet": metadata loss is recovered silently
// rather than blocking every downstream operation.
func (s *Store) Load() map[string]Record {
	data, err := os.ReadFile(s.Path())
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Warn("Metadata document unreadable, treating as empty", "path", s.Path(), "error", err)
		}
		return map[string]Record{}
	}

	var records map[string]Record
	if err := json.Unmarshal(data, &records); err != nil {
		slog.Warn("Metadata document corrupt, treating as empty", "path", s.Path(), "error", err)
		return map[string]Record{}
	}
	if records == nil {
		records = map[string]Record{}
	}
	return records
}

// Save serializes the mapping and overwrites the document. Not
// transactional: a crash between Load and Save loses concurrent
// writes.
func (s *Store) Save(records map[string]Record) error {
	if err := s.ensureDir(); err != nil {
		return err
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode metadata: %w", err)
	}
	if err := os.WriteFile(s.Path(), data, 0644); err != nil {
		return fmt.Errorf("failed to write metadata: %w", err)
	}
	return nil
}

// Add inserts a record under token, stamping it with the current time.
// An existing record under the same token is overwritten.
func (s *Store) Add(token string, r Record) error {
	records := s.Load()
	r.Timestamp = s.now().UnixMilli()
	records[token] = r
	return s.Save(records)
}

// Get returns the record for token, if present.
func (s *Store) Get(token string) (Record, bool) {
	r, ok := s.Load()[token]
	return r, ok
}

// Delete removes a record. Deleting an absent token is a no-op.
func (s *Store) Delete(token string) error {
	records := s.Load()
	if _, ok := records[token]; !ok {
		return nil
	}
	delete(records, token)
	return s.Save(records)
}

// Clear drops every record.
func (s *Store) Clear() error {
	return s.Save(map[string]Record{})
}

// ensureDir creates the data directory and seeds it with a README
// warning users not to hand-edit the store.
func (s *Store) ensureDir() error {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	readmePath := filepath.Join(s.dir, readmeFile)
	if _, err := os.Stat(readmePath); os.IsNotExist(err) {
		if err := os.WriteFile(readmePath, []byte(readmeContent), 0644); err != nil {
			slog.Warn("Failed to seed data directory README", "path", readmePath, "error", err)
		}
	}
	return nil
}
