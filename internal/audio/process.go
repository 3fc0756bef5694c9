package audio

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"
	"sync"
)

var (
	// ErrNotReady means the helper process is absent or has not yet
	// reported readiness. Commands are never buffered across a process
	// restart; callers observe this instead of a silent queue.
	ErrNotReady = errors.New("audio process not ready")
	// ErrSaveFailed means the capture helper acknowledged a stop-and-
	// save with an error, or exited before acknowledging it.
	ErrSaveFailed = errors.New("failed to save recording")
)

// lineProcess owns exactly one external helper process speaking the
// line-oriented control protocol over stdin/stdout. Responses other
// than READY are dispatched to onLine from the reader goroutine.
type lineProcess struct {
	name   string
	argv   []string
	onLine func(line string)
	onExit func()

	mu      sync.Mutex
	cmd     *exec.Cmd
	stdin   io.WriteCloser
	ready   bool
	readyCh chan struct{}
	exited  chan struct{}
}

func newLineProcess(name string, argv []string) *lineProcess {
	return &lineProcess{name: name, argv: argv}
}

// start spawns the helper if not already running and blocks until it
// reports READY, the process exits, or ctx is cancelled. Idempotent:
// a second call while the helper is alive returns immediately.
func (p *lineProcess) start(ctx context.Context) error {
	p.mu.Lock()
	if p.cmd != nil {
		readyCh, exited := p.readyCh, p.exited
		p.mu.Unlock()
		return p.awaitReady(ctx, readyCh, exited)
	}

	if len(p.argv) == 0 {
		p.mu.Unlock()
		return fmt.Errorf("%s: no helper command configured", p.name)
	}

	cmd := exec.Command(p.argv[0], p.argv[1:]...)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		p.mu.Unlock()
		return fmt.Errorf("%s: failed to create stdin pipe: %w", p.name, err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		p.mu.Unlock()
		return fmt.Errorf("%s: failed to create stdout pipe: %w", p.name, err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		p.mu.Unlock()
		return fmt.Errorf("%s: failed to create stderr pipe: %w", p.name, err)
	}

	if err := cmd.Start(); err != nil {
		p.mu.Unlock()
		return fmt.Errorf("%s: failed to start helper: %w", p.name, err)
	}

	p.cmd = cmd
	p.stdin = stdin
	p.ready = false
	p.readyCh = make(chan struct{})
	p.exited = make(chan struct{})
	readyCh, exited := p.readyCh, p.exited
	p.mu.Unlock()

	slog.Debug("Audio helper started", "name", p.name, "command", strings.Join(p.argv, " "))

	go p.readLines(stdout, readyCh)
	go p.readStderr(stderr)
	go p.waitExit(cmd, exited)

	return p.awaitReady(ctx, readyCh, exited)
}

func (p *lineProcess) awaitReady(ctx context.Context, readyCh, exited chan struct{}) error {
	if readyCh == nil {
		return ErrNotReady
	}
	select {
	case <-readyCh:
		return nil
	case <-exited:
		return fmt.Errorf("%s: helper exited before reporting readiness", p.name)
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *lineProcess) readLines(stdout io.ReadCloser, readyCh chan struct{}) {
	scanner := bufio.NewScanner(stdout)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		slog.Debug("Audio helper output", "name", p.name, "line", line)

		if line == "READY" {
			p.mu.Lock()
			if !p.ready {
				p.ready = true
				close(readyCh)
			}
			p.mu.Unlock()
			continue
		}
		if p.onLine != nil {
			p.onLine(line)
		}
	}
	stdout.Close()
}

func (p *lineProcess) readStderr(stderr io.ReadCloser) {
	scanner := bufio.NewScanner(stderr)
	for scanner.Scan() {
		slog.Debug("Audio helper stderr", "name", p.name, "line", scanner.Text())
	}
	stderr.Close()
}

// waitExit clears readiness when the helper dies, expectedly or not.
// Subsequent commands fail fast with ErrNotReady.
func (p *lineProcess) waitExit(cmd *exec.Cmd, exited chan struct{}) {
	err := cmd.Wait()
	slog.Debug("Audio helper exited", "name", p.name, "error", err)

	p.mu.Lock()
	if p.cmd == cmd {
		p.cmd = nil
		p.stdin = nil
		p.ready = false
	}
	p.mu.Unlock()

	close(exited)
	if p.onExit != nil {
		p.onExit()
	}
}

// send writes one protocol command, failing fast when the helper is
// absent or not yet ready.
func (p *lineProcess) send(command string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cmd == nil || !p.ready {
		return ErrNotReady
	}
	if _, err := io.WriteString(p.stdin, command+"\n"); err != nil {
		return fmt.Errorf("%s: failed to send %q: %w", p.name, strings.Fields(command)[0], err)
	}
	return nil
}

// sendBestEffort writes one protocol command, silently doing nothing
// when no process exists.
func (p *lineProcess) sendBestEffort(command string) {
	if err := p.send(command); err != nil && !errors.Is(err, ErrNotReady) {
		slog.Debug("Audio helper command failed", "name", p.name, "command", command, "error", err)
	}
}

// running reports whether a helper process currently exists.
func (p *lineProcess) running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cmd != nil
}

// dispose sends EXIT then forcibly terminates the helper. Idempotent
// and safe to call when no process exists.
func (p *lineProcess) dispose() {
	p.mu.Lock()
	cmd := p.cmd
	stdin := p.stdin
	p.cmd = nil
	p.stdin = nil
	p.ready = false
	p.mu.Unlock()

	if cmd == nil {
		return
	}
	if stdin != nil {
		io.WriteString(stdin, "EXIT\n")
		stdin.Close()
	}
	if cmd.Process != nil {
		cmd.Process.Kill()
	}
}
