package audio

import (
	"context"
	"sync"
)

// Player drives the external audio playback helper. The authoritative
// playback session state lives in the orchestrator; this controller
// only tracks which file the helper was last told to play.
type Player struct {
	proc *lineProcess

	mu       sync.Mutex
	current  string
	finished chan struct{}
}

// NewPlayer creates a playback controller for the given helper command
// line. The process is not spawned until Initialize.
func NewPlayer(argv []string) *Player {
	p := &Player{finished: make(chan struct{}, 1)}
	p.proc = newLineProcess("player", argv)
	p.proc.onLine = p.handleLine
	return p
}

// Initialize spawns the helper if needed and waits for readiness.
// Idempotent.
func (p *Player) Initialize(ctx context.Context) error {
	return p.proc.start(ctx)
}

// Play commands playback of the file at the given absolute path.
// Requires a ready helper; fails fast with ErrNotReady otherwise.
func (p *Player) Play(path string) error {
	if err := p.proc.send("PLAY " + path); err != nil {
		return err
	}
	p.mu.Lock()
	p.current = path
	p.mu.Unlock()
	return nil
}

// Pause suspends playback. No-op when no process exists.
func (p *Player) Pause() {
	p.proc.sendBestEffort("PAUSE")
}

// Resume continues paused playback. No-op when no process exists.
func (p *Player) Resume() {
	p.proc.sendBestEffort("RESUME")
}

// Stop halts playback and clears the current file. Fire-and-forget.
func (p *Player) Stop() {
	p.proc.sendBestEffort("STOP")
	p.mu.Lock()
	p.current = ""
	p.mu.Unlock()
}

// Current returns the path the helper was last told to play, or ""
// after a stop.
func (p *Player) Current() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

// Finished signals natural end-of-audio reported by the helper. The
// orchestrator treats it identically to an explicit stop.
func (p *Player) Finished() <-chan struct{} {
	return p.finished
}

// Dispose terminates the helper. Idempotent; safe without a process.
func (p *Player) Dispose() {
	p.proc.dispose()
	p.mu.Lock()
	p.current = ""
	p.mu.Unlock()
}

func (p *Player) handleLine(line string) {
	if line != "FINISHED" {
		return
	}
	p.mu.Lock()
	p.current = ""
	p.mu.Unlock()
	select {
	case p.finished <- struct{}{}:
	default:
	}
}
