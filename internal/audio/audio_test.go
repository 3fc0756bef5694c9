package audio

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubHelper writes a shell script speaking the control protocol and
// returns the command line to run it.
func stubHelper(t *testing.T, body string) []string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "helper.sh")
	require.NoError(t, os.WriteFile(path, []byte(body), 0755))
	return []string{"/bin/sh", path}
}

const recorderStub = `echo READY
while read cmd rest; do
  case "$cmd" in
    START) : ;;
    STOP)
      if printf saved > "$rest" 2>/dev/null; then
        echo "SAVED $rest"
      else
        echo "ERROR"
      fi
      ;;
    CANCEL) : ;;
    EXIT) exit 0 ;;
  esac
done
`

const playerStub = `echo READY
while read cmd rest; do
  case "$cmd" in
    PLAY) echo FINISHED ;;
    PAUSE|RESUME|STOP) : ;;
    EXIT) exit 0 ;;
  esac
done
`

func testCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestRecorderInitializeIsIdempotent(t *testing.T) {
	r := NewRecorder(stubHelper(t, recorderStub), 0)
	defer r.Dispose()

	ctx := testCtx(t)
	require.NoError(t, r.Initialize(ctx))
	require.NoError(t, r.Initialize(ctx))
}

func TestRecorderStartBeforeInitialize(t *testing.T) {
	r := NewRecorder(stubHelper(t, recorderStub), 0)
	assert.ErrorIs(t, r.Start(), ErrNotReady)
}

func TestRecorderStopBeforeInitialize(t *testing.T) {
	r := NewRecorder(stubHelper(t, recorderStub), 0)
	dest := filepath.Join(t.TempDir(), "out.wav")

	_, err := r.Stop(testCtx(t), dest)
	assert.ErrorIs(t, err, ErrNotReady)

	_, statErr := os.Stat(dest)
	assert.True(t, os.IsNotExist(statErr), "no write may reach the destination")
}

func TestRecorderRecordAndSave(t *testing.T) {
	r := NewRecorder(stubHelper(t, recorderStub), 0)
	defer r.Dispose()

	ctx := testCtx(t)
	require.NoError(t, r.Initialize(ctx))
	require.NoError(t, r.Start())
	assert.True(t, r.Recording())

	dest := filepath.Join(t.TempDir(), "out.wav")
	got, err := r.Stop(ctx, dest)
	require.NoError(t, err)
	assert.Equal(t, dest, got)
	assert.False(t, r.Recording())

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "saved", string(data))
}

func TestRecorderSecondStartRejected(t *testing.T) {
	r := NewRecorder(stubHelper(t, recorderStub), 0)
	defer r.Dispose()

	require.NoError(t, r.Initialize(testCtx(t)))
	require.NoError(t, r.Start())
	assert.ErrorIs(t, r.Start(), ErrNotReady)
}

func TestRecorderStopErrorAcknowledgement(t *testing.T) {
	r := NewRecorder(stubHelper(t, recorderStub), 0)
	defer r.Dispose()

	ctx := testCtx(t)
	require.NoError(t, r.Initialize(ctx))
	require.NoError(t, r.Start())

	// A directory is not writable as a file, so the helper answers ERROR.
	_, err := r.Stop(ctx, t.TempDir())
	assert.ErrorIs(t, err, ErrSaveFailed)
}

func TestRecorderStopAckTimeout(t *testing.T) {
	// Helper that never acknowledges a STOP.
	stub := "echo READY\nwhile read cmd rest; do :; done\n"
	r := NewRecorder(stubHelper(t, stub), 200*time.Millisecond)
	defer r.Dispose()

	ctx := testCtx(t)
	require.NoError(t, r.Initialize(ctx))
	require.NoError(t, r.Start())

	_, err := r.Stop(ctx, filepath.Join(t.TempDir(), "out.wav"))
	assert.ErrorIs(t, err, ErrSaveFailed)
}

func TestRecorderHelperExitFailsAwaiter(t *testing.T) {
	// Helper that dies on STOP without acknowledging.
	stub := `echo READY
while read cmd rest; do
  case "$cmd" in
    STOP) exit 1 ;;
  esac
done
`
	r := NewRecorder(stubHelper(t, stub), 0)
	defer r.Dispose()

	ctx := testCtx(t)
	require.NoError(t, r.Initialize(ctx))
	require.NoError(t, r.Start())

	_, err := r.Stop(ctx, filepath.Join(t.TempDir(), "out.wav"))
	assert.ErrorIs(t, err, ErrSaveFailed)
}

func TestRecorderCommandsFailAfterHelperExit(t *testing.T) {
	// Helper that dies right after the first START.
	stub := `echo READY
while read cmd rest; do
  case "$cmd" in
    START) exit 1 ;;
  esac
done
`
	r := NewRecorder(stubHelper(t, stub), 0)
	defer r.Dispose()

	require.NoError(t, r.Initialize(testCtx(t)))
	require.NoError(t, r.Start())

	assert.Eventually(t, func() bool {
		return !r.Recording()
	}, 5*time.Second, 20*time.Millisecond, "exit should clear recording state")

	assert.ErrorIs(t, r.Start(), ErrNotReady)
}

func TestRecorderDisposeIsIdempotent(t *testing.T) {
	r := NewRecorder(stubHelper(t, recorderStub), 0)
	r.Dispose()
	r.Dispose()

	require.NoError(t, r.Initialize(testCtx(t)))
	r.Dispose()
	r.Dispose()
}

func TestRecorderCancelWithoutProcess(t *testing.T) {
	r := NewRecorder(stubHelper(t, recorderStub), 0)
	r.Cancel()
	assert.False(t, r.Recording())
}

func TestPlayerPlayAndFinish(t *testing.T) {
	p := NewPlayer(stubHelper(t, playerStub))
	defer p.Dispose()

	ctx := testCtx(t)
	require.NoError(t, p.Initialize(ctx))
	require.NoError(t, p.Play("/tmp/a.wav"))

	select {
	case <-p.Finished():
	case <-time.After(5 * time.Second):
		t.Fatal("no finish event from helper")
	}
	assert.Empty(t, p.Current())
}

func TestPlayerPlayBeforeInitialize(t *testing.T) {
	p := NewPlayer(stubHelper(t, playerStub))
	assert.ErrorIs(t, p.Play("/tmp/a.wav"), ErrNotReady)
}

func TestPlayerPauseResumeStopWithoutProcess(t *testing.T) {
	p := NewPlayer(stubHelper(t, playerStub))
	p.Pause()
	p.Resume()
	p.Stop()
	assert.Empty(t, p.Current())
}

func TestPlayerStopClearsCurrent(t *testing.T) {
	p := NewPlayer(stubHelper(t, playerStub))
	defer p.Dispose()

	require.NoError(t, p.Initialize(testCtx(t)))
	require.NoError(t, p.Play("/tmp/a.wav"))
	p.Stop()
	assert.Empty(t, p.Current())
}
