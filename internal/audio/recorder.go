package audio

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

// Recorder drives the external audio capture helper. It owns at most
// one helper process and at most one in-flight stop-and-save
// acknowledgement at a time.
type Recorder struct {
	proc *lineProcess

	// ackTimeout bounds the wait for a SAVED/ERROR acknowledgement.
	// Zero means no timeout: the wait is bounded only by ctx and by
	// the helper process exiting.
	ackTimeout time.Duration

	mu        sync.Mutex
	recording bool
	pending   chan error
}

// NewRecorder creates a capture controller for the given helper
// command line. The process is not spawned until Initialize.
func NewRecorder(argv []string, ackTimeout time.Duration) *Recorder {
	r := &Recorder{ackTimeout: ackTimeout}
	r.proc = newLineProcess("recorder", argv)
	r.proc.onLine = r.handleLine
	r.proc.onExit = r.handleExit
	return r
}

// Initialize spawns the helper if needed and waits for it to report
// readiness. Idempotent.
func (r *Recorder) Initialize(ctx context.Context) error {
	return r.proc.start(ctx)
}

// Start begins capturing. Fire-and-forget: no acknowledgement is
// awaited. Fails with ErrNotReady when the helper is absent, not yet
// ready, or a recording is already in flight.
func (r *Recorder) Start() error {
	r.mu.Lock()
	if r.recording {
		r.mu.Unlock()
		return fmt.Errorf("%w: recording already in progress", ErrNotReady)
	}
	r.mu.Unlock()

	if err := r.proc.send("START"); err != nil {
		return err
	}

	r.mu.Lock()
	r.recording = true
	r.mu.Unlock()
	return nil
}

// Stop sends the stop-and-save command and waits for the helper to
// acknowledge with SAVED or ERROR. On success it returns the
// destination path. The single in-flight awaiter is released when the
// acknowledgement arrives, the helper exits, ctx is cancelled, or the
// configured acknowledgement timeout elapses.
func (r *Recorder) Stop(ctx context.Context, destPath string) (string, error) {
	r.mu.Lock()
	if r.pending != nil {
		r.mu.Unlock()
		return "", fmt.Errorf("%w: save acknowledgement already pending", ErrNotReady)
	}
	ack := make(chan error, 1)
	r.pending = ack
	r.mu.Unlock()

	clear := func() {
		r.mu.Lock()
		r.pending = nil
		r.recording = false
		r.mu.Unlock()
	}

	if err := r.proc.send("STOP " + destPath); err != nil {
		clear()
		return "", err
	}

	var timeout <-chan time.Time
	if r.ackTimeout > 0 {
		timer := time.NewTimer(r.ackTimeout)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case err := <-ack:
		clear()
		if err != nil {
			return "", err
		}
		return destPath, nil
	case <-ctx.Done():
		clear()
		return "", ctx.Err()
	case <-timeout:
		clear()
		return "", fmt.Errorf("%w: no acknowledgement within %s", ErrSaveFailed, r.ackTimeout)
	}
}

// Cancel discards the in-flight recording. Best effort, no
// acknowledgement.
func (r *Recorder) Cancel() {
	r.proc.sendBestEffort("CANCEL")
	r.mu.Lock()
	r.recording = false
	r.mu.Unlock()
}

// Recording reports whether a capture is in flight.
func (r *Recorder) Recording() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.recording
}

// Dispose terminates the helper. Idempotent; safe without a process.
func (r *Recorder) Dispose() {
	r.proc.dispose()
	r.mu.Lock()
	r.recording = false
	r.mu.Unlock()
}

func (r *Recorder) handleLine(line string) {
	r.mu.Lock()
	ack := r.pending
	r.mu.Unlock()
	if ack == nil {
		return
	}

	switch {
	case strings.HasPrefix(line, "SAVED"):
		resolve(ack, nil)
	case strings.HasPrefix(line, "ERROR"):
		resolve(ack, ErrSaveFailed)
	}
}

// resolve delivers at most one outcome to a save awaiter; later
// outcomes for the same awaiter are dropped.
func resolve(ack chan error, err error) {
	select {
	case ack <- err:
	default:
	}
}

// handleExit fails a pending save awaiter when the helper dies before
// acknowledging, so callers never hang on a vanished process.
func (r *Recorder) handleExit() {
	r.mu.Lock()
	ack := r.pending
	r.recording = false
	r.mu.Unlock()
	if ack != nil {
		resolve(ack, fmt.Errorf("%w: helper exited before acknowledging", ErrSaveFailed))
	}
}
