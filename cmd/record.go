package cmd

import (
	"bufio"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/vomment/vomment/internal/note"

	"github.com/spf13/cobra"
)

var (
	recordComment string
	recordAuthor  string
)

var recordCmd = &cobra.Command{
	Use:   "record <file:line>",
	Short: "Record a voice note and embed its marker",
	Long: `Record audio through the configured recorder helper and embed the
resulting marker as a comment above the given line (1-based). Press
Enter to stop and save the recording; Ctrl+C discards it.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, line, err := parseTarget(args[0])
		if err != nil {
			return err
		}

		svc, err := newService()
		if err != nil {
			return err
		}
		defer svc.Close()

		ctx := cmd.Context()
		if err := svc.StartRecording(ctx); err != nil {
			return fmt.Errorf("failed to start recording: %w", err)
		}

		fmt.Println("Recording... press Enter to save, Ctrl+C to discard")

		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		defer signal.Stop(sigChan)

		enter := make(chan struct{})
		go func() {
			bufio.NewReader(os.Stdin).ReadString('\n')
			close(enter)
		}()

		select {
		case <-sigChan:
			svc.CancelRecording()
			fmt.Println("Recording discarded")
			return nil
		case <-enter:
		}

		created, err := svc.FinishRecording(ctx, note.CreateRequest{
			Path:    path,
			Line:    line - 1,
			Author:  recordAuthor,
			Comment: recordComment,
		})
		if err != nil {
			return err
		}

		fmt.Printf("Voice note saved: %s (%s, %s backend)\n",
			created.Token, created.Duration, created.Backend)
		return nil
	},
}

// parseTarget splits "path/to/file.go:42" into its path and 1-based
// line number.
func parseTarget(arg string) (string, int, error) {
	idx := strings.LastIndex(arg, ":")
	if idx <= 0 || idx == len(arg)-1 {
		return "", 0, fmt.Errorf("target must be file:line, got %q", arg)
	}
	line, err := strconv.Atoi(arg[idx+1:])
	if err != nil || line < 1 {
		return "", 0, fmt.Errorf("invalid line number in %q", arg)
	}
	return arg[:idx], line, nil
}

func init() {
	recordCmd.Flags().StringVarP(&recordComment, "comment", "c", "", "text comment embedded below the marker")
	recordCmd.Flags().StringVarP(&recordAuthor, "author", "a", "", "author name (overrides the workspace default)")
}
