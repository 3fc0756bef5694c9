package cmd

import (
	"bufio"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/vomment/vomment/internal/marker"
	"github.com/vomment/vomment/internal/note"

	"github.com/spf13/cobra"
)

var playCmd = &cobra.Command{
	Use:   "play <token>",
	Short: "Play a voice note",
	Long: `Resolve the token and play the audio through the configured player
helper. Accepts the raw marker token (id:..., a filename or a URL).

While playing, 'p' toggles pause and 'q' (or Ctrl+C) stops.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := newService()
		if err != nil {
			return err
		}
		defer svc.Close()

		done := make(chan struct{})
		svc.Subscribe(playWatcher{done: done})

		tok := marker.ParseToken(args[0])
		if err := svc.Play(cmd.Context(), tok); err != nil {
			return err
		}

		fmt.Println("Playing... 'p' pauses, 'q' stops")

		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		defer signal.Stop(sigChan)

		keys := make(chan string)
		go func() {
			scanner := bufio.NewScanner(os.Stdin)
			for scanner.Scan() {
				keys <- strings.TrimSpace(scanner.Text())
			}
		}()

		for {
			select {
			case <-done:
				fmt.Println("Finished")
				return nil
			case <-sigChan:
				svc.StopPlayback()
				return nil
			case key := <-keys:
				switch key {
				case "p":
					svc.TogglePause()
					fmt.Println(svc.Playback().State)
				case "q":
					svc.StopPlayback()
					return nil
				}
			}
		}
	},
}

// playWatcher closes done when the session returns to stopped, which
// covers both natural end of audio and an explicit stop.
type playWatcher struct {
	done chan struct{}
}

func (w playWatcher) PlaybackChanged(s note.PlaybackSession) {
	if s.State == note.StateStopped {
		select {
		case <-w.done:
		default:
			close(w.done)
		}
	}
}

func (playWatcher) NotesChanged() {}
