package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/vomment/vomment/internal/marker"

	"github.com/spf13/cobra"
)

var (
	deleteAll bool
	deleteYes bool
)

var deleteCmd = &cobra.Command{
	Use:   "delete <token> <file> | delete --all",
	Short: "Delete a voice note, or every note in the workspace",
	Long: `Delete removes a single note: its marker line in the file, its
metadata record and its local audio blob. Remote audio is never
deleted automatically.

With --all, every marker in the workspace is removed, the blob
directory is emptied and the metadata store is cleared.`,
	Args: func(cmd *cobra.Command, args []string) error {
		if deleteAll {
			return cobra.NoArgs(cmd, args)
		}
		return cobra.ExactArgs(2)(cmd, args)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := newService()
		if err != nil {
			return err
		}
		defer svc.Close()

		if deleteAll {
			if !deleteYes && !confirm("Delete ALL voice notes in this workspace?") {
				fmt.Println("Aborted")
				return nil
			}
			if err := svc.DeleteAll(cmd.Context()); err != nil {
				return err
			}
			fmt.Println("All voice notes deleted")
			return nil
		}

		tok := marker.ParseToken(args[0])
		if err := svc.Delete(cmd.Context(), tok, args[1]); err != nil {
			return err
		}
		fmt.Println("Voice note deleted")
		return nil
	},
}

func confirm(prompt string) bool {
	fmt.Printf("%s [y/N]: ", prompt)
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}

func init() {
	deleteCmd.Flags().BoolVar(&deleteAll, "all", false, "delete every voice note in the workspace")
	deleteCmd.Flags().BoolVarP(&deleteYes, "yes", "y", false, "skip the confirmation prompt")
}
