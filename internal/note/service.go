package note

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/vomment/vomment/internal/audio"
	"github.com/vomment/vomment/internal/marker"
	"github.com/vomment/vomment/internal/meta"
	"github.com/vomment/vomment/internal/storage"
)

// PlaybackState is the authoritative state of the single playback
// session.
type PlaybackState string

const (
	StateStopped PlaybackState = "stopped"
	StatePlaying PlaybackState = "playing"
	StatePaused  PlaybackState = "paused"
)

// PlaybackSession describes what, if anything, is currently playing.
// At most one session is active per service.
type PlaybackSession struct {
	Token marker.Token
	State PlaybackState
}

// Observer receives state-change notifications so external UIs
// (inline affordances, listings, status indicators) can re-render.
type Observer interface {
	PlaybackChanged(session PlaybackSession)
	NotesChanged()
}

// CreateRequest carries everything needed to finish a recording into
// a note: where the marker goes and what it says.
type CreateRequest struct {
	Path    string // source file, workspace-relative or absolute
	Line    int    // zero-based insertion line
	Author  string // empty means the workspace default author
	Comment string // optional text comment
}

// CreatedNote reports the outcome of a finished recording.
type CreatedNote struct {
	Token    string
	URL      string
	Duration string
	Backend  storage.Backend
}

// Service composes the marker codec, metadata store, storage resolver
// and audio controllers into the user-facing note lifecycle. It owns
// the playback and recording session singletons; all call sites share
// one Service per workspace.
type Service struct {
	workspace string
	excludes  []string

	meta     *meta.Store
	resolver *storage.Resolver
	recorder *audio.Recorder
	player   *audio.Player
	buffer   TextBuffer

	mu         sync.Mutex
	playback   PlaybackSession
	recStarted time.Time
	recActive  bool
	author     string
	observers  []Observer
	done       chan struct{}
	closeOnce  sync.Once
}

// NewService wires a service over its collaborators and starts the
// finish-event loop that folds the player's natural end-of-audio into
// the session state.
func NewService(workspace string, excludes []string, store *meta.Store, resolver *storage.Resolver, recorder *audio.Recorder, player *audio.Player, buffer TextBuffer, defaultAuthor string) *Service {
	s := &Service{
		workspace: workspace,
		excludes:  excludes,
		meta:      store,
		resolver:  resolver,
		recorder:  recorder,
		player:    player,
		buffer:    buffer,
		author:    defaultAuthor,
		playback:  PlaybackSession{State: StateStopped},
		done:      make(chan struct{}),
	}
	go s.finishLoop()
	return s
}

// Close stops the event loop and terminates both helper processes.
func (s *Service) Close() {
	s.closeOnce.Do(func() { close(s.done) })
	s.recorder.Dispose()
	s.player.Dispose()
}

// Subscribe registers an observer for session and listing changes.
func (s *Service) Subscribe(o Observer) {
	s.mu.Lock()
	s.observers = append(s.observers, o)
	s.mu.Unlock()
}

// Playback returns a snapshot of the current playback session.
func (s *Service) Playback() PlaybackSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.playback
}

// Recording reports whether a capture is in flight.
func (s *Service) Recording() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recActive
}

// DefaultAuthor returns the workspace default attribution.
func (s *Service) DefaultAuthor() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.author
}

// SetDefaultAuthor changes the workspace default attribution for
// subsequently created notes.
func (s *Service) SetDefaultAuthor(author string) {
	s.mu.Lock()
	s.author = author
	s.mu.Unlock()
}

// StartRecording spawns the capture helper if needed and begins
// recording. Fails without side effects when a recording is already
// in flight.
func (s *Service) StartRecording(ctx context.Context) error {
	if err := s.recorder.Initialize(ctx); err != nil {
		return fmt.Errorf("failed to initialize audio recorder: %w", err)
	}
	if err := s.recorder.Start(); err != nil {
		return fmt.Errorf("failed to start recording: %w", err)
	}

	s.mu.Lock()
	s.recActive = true
	s.recStarted = time.Now()
	s.mu.Unlock()
	return nil
}

// CancelRecording discards the in-flight recording. Safe to call in
// any state; this is the path taken when the recording UI closes.
func (s *Service) CancelRecording() {
	s.recorder.Cancel()
	s.mu.Lock()
	s.recActive = false
	s.mu.Unlock()
}

// FinishRecording stops the capture, persists the audio blob via the
// configured backend, records the note metadata, and inserts the
// marker into the source file.
//
// Any step failing aborts the remaining steps. A blob that was
// already persisted is not rolled back when the marker insertion
// fails; the note stays reachable through the metadata store.
func (s *Service) FinishRecording(ctx context.Context, req CreateRequest) (*CreatedNote, error) {
	s.mu.Lock()
	started := s.recStarted
	active := s.recActive
	author := s.author
	s.mu.Unlock()

	if !active {
		return nil, fmt.Errorf("no recording in progress")
	}
	if req.Author != "" {
		author = req.Author
	}

	token := newToken()
	tempPath := filepath.Join(os.TempDir(), "vomment-rec-"+token+".wav")

	if _, err := s.recorder.Stop(ctx, tempPath); err != nil {
		s.mu.Lock()
		s.recActive = false
		s.mu.Unlock()
		return nil, fmt.Errorf("failed to save voice note: %w", err)
	}

	s.mu.Lock()
	s.recActive = false
	s.mu.Unlock()

	duration := marker.FormatDuration(time.Since(started))

	url, backend, err := s.resolver.SaveBlob(ctx, tempPath, token)
	if err != nil {
		return nil, fmt.Errorf("failed to store voice note audio: %w", err)
	}

	if err := s.meta.Add(token, meta.Record{
		URL:      url,
		Duration: duration,
		Author:   author,
		Comment:  req.Comment,
	}); err != nil {
		return nil, fmt.Errorf("failed to record voice note metadata: %w", err)
	}

	created := &CreatedNote{Token: token, URL: url, Duration: duration, Backend: backend}

	text := marker.Encode(marker.Note{
		Token:    marker.Token{Kind: marker.KindID, Value: token},
		Duration: duration,
		Author:   author,
		Comment:  req.Comment,
	}, marker.StyleForPath(req.Path))

	if err := s.buffer.InsertAt(s.abs(req.Path), req.Line, text); err != nil {
		// Accepted inconsistency: the blob and metadata stay.
		return created, fmt.Errorf("voice note saved but marker insertion failed: %w", err)
	}

	s.notifyNotes()
	return created, nil
}

// Play resolves the token to a playable path and starts playback,
// implicitly stopping whatever was playing before. The session ends
// in state playing for this token only.
func (s *Service) Play(ctx context.Context, tok marker.Token) error {
	path, err := s.resolver.Resolve(ctx, tok)
	if err != nil {
		return fmt.Errorf("failed to play voice note: %w", err)
	}

	if err := s.player.Initialize(ctx); err != nil {
		return fmt.Errorf("failed to initialize audio player: %w", err)
	}

	s.mu.Lock()
	prior := s.playback.State
	s.mu.Unlock()
	if prior != StateStopped {
		s.player.Stop()
	}

	if err := s.player.Play(path); err != nil {
		return fmt.Errorf("failed to play voice note: %w", err)
	}

	s.setPlayback(PlaybackSession{Token: tok, State: StatePlaying})
	return nil
}

// WatchMetadata forwards external metadata-store changes (another
// process writing metadata.json) to the NotesChanged observers. It
// blocks until ctx is cancelled.
func (s *Service) WatchMetadata(ctx context.Context) error {
	ch, err := s.meta.Watch(ctx)
	if err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case _, ok := <-ch:
			if !ok {
				return nil
			}
			s.notifyNotes()
		}
	}
}

// ResolveAudio maps a token to a playable local file path, fetching
// remote audio into the cache when needed.
func (s *Service) ResolveAudio(ctx context.Context, tok marker.Token) (string, error) {
	return s.resolver.Resolve(ctx, tok)
}

// TogglePause flips between playing and paused. No-op when stopped.
func (s *Service) TogglePause() {
	s.mu.Lock()
	session := s.playback
	s.mu.Unlock()

	switch session.State {
	case StatePlaying:
		s.player.Pause()
		s.setPlayback(PlaybackSession{Token: session.Token, State: StatePaused})
	case StatePaused:
		s.player.Resume()
		s.setPlayback(PlaybackSession{Token: session.Token, State: StatePlaying})
	}
}

// StopPlayback halts playback regardless of state. Idempotent.
func (s *Service) StopPlayback() {
	s.player.Stop()
	s.setPlayback(PlaybackSession{State: StateStopped})
}

// Delete removes one note: its local blob (remote blobs are never
// deleted automatically), its metadata record, and the first marker
// line in the file whose token matches, together with its text-
// comment line when one follows and matches the record. A file with
// no matching marker makes the text-removal step a silent no-op.
func (s *Service) Delete(ctx context.Context, tok marker.Token, path string) error {
	var comment string

	switch tok.Kind {
	case marker.KindID:
		if rec, ok := s.meta.Get(tok.Value); ok {
			comment = rec.Comment
			s.resolver.DeleteLocal(rec)
		}
		if err := s.meta.Delete(tok.Value); err != nil {
			return fmt.Errorf("failed to delete voice note metadata: %w", err)
		}
	case marker.KindFile:
		s.resolver.DeleteLocal(meta.Record{URL: tok.Value})
	case marker.KindURL:
		// Remote-only note. Nothing stored locally.
	}

	if err := s.removeMarker(path, tok, comment); err != nil {
		return fmt.Errorf("failed to remove voice note marker: %w", err)
	}

	s.notifyNotes()
	return nil
}

// DeleteAll removes every marker line from every file holding a note
// with a resolvable audio source (one batched edit per file), clears
// the blob directory, and clears the metadata store.
func (s *Service) DeleteAll(ctx context.Context) error {
	files, err := s.FilesWithNotes(ctx)
	if err != nil {
		return fmt.Errorf("failed to scan workspace: %w", err)
	}

	for _, fn := range files {
		if err := s.removeAllMarkers(fn.Path); err != nil {
			slog.Error("Failed to strip markers", "path", fn.Path, "error", err)
		}
	}

	if err := s.resolver.ClearBlobs(); err != nil {
		return fmt.Errorf("failed to clear audio blobs: %w", err)
	}
	if err := s.meta.Clear(); err != nil {
		return fmt.Errorf("failed to clear metadata: %w", err)
	}

	s.notifyNotes()
	return nil
}

// SwitchBackend changes where new recordings are stored. Existing
// blobs are not migrated.
func (s *Service) SwitchBackend(b storage.Backend) {
	s.resolver.SetBackend(b)
}

// Backend returns the backend new recordings will use.
func (s *Service) Backend() storage.Backend {
	return s.resolver.Backend()
}

// removeMarker deletes the first marker line matching tok, plus the
// following comment line when the note carried a text comment and the
// line matches it.
func (s *Service) removeMarker(path string, tok marker.Token, comment string) error {
	abs := s.abs(path)
	text, err := s.buffer.Read(abs)
	if err != nil {
		return err
	}

	lines := strings.Split(text, "\n")
	target := -1
	for i, line := range lines {
		if marker.LineHasToken(line, tok) {
			target = i
			break
		}
	}
	if target == -1 {
		return nil
	}

	end := target + 1
	if comment != "" {
		for _, m := range marker.Decode(text) {
			if m.Line == target && m.Comment == comment {
				end = target + 2
				break
			}
		}
	}

	return s.buffer.DeleteLines(abs, target, end)
}

// removeAllMarkers strips every marker line from one file in a single
// batched edit.
func (s *Service) removeAllMarkers(path string) error {
	abs := s.abs(path)
	text, err := s.buffer.Read(abs)
	if err != nil {
		return err
	}

	matches := marker.Decode(text)
	// Delete back-to-front so earlier indices stay valid.
	for i := len(matches) - 1; i >= 0; i-- {
		if err := s.buffer.DeleteLines(abs, matches[i].Line, matches[i].Line+1); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) abs(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(s.workspace, path)
}

// finishLoop folds the player's natural end-of-audio event into the
// session state, identically to an explicit stop.
func (s *Service) finishLoop() {
	for {
		select {
		case <-s.done:
			return
		case <-s.player.Finished():
			s.setPlayback(PlaybackSession{State: StateStopped})
		}
	}
}

func (s *Service) setPlayback(session PlaybackSession) {
	s.mu.Lock()
	s.playback = session
	observers := append([]Observer(nil), s.observers...)
	s.mu.Unlock()
	for _, o := range observers {
		o.PlaybackChanged(session)
	}
}

func (s *Service) notifyNotes() {
	s.mu.Lock()
	observers := append([]Observer(nil), s.observers...)
	s.mu.Unlock()
	for _, o := range observers {
		o.NotesChanged()
	}
}

// newToken generates the short random note identifier. Collisions are
// not enforced against; eight random bytes make them negligible.
func newToken() string {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		// crypto/rand never fails on supported platforms.
		panic(err)
	}
	return hex.EncodeToString(b)
}
