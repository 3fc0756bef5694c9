package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var listJSON bool

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List voice notes found in the workspace",
	Long: `Scan the workspace for voice note markers and print them grouped by
file. Markers whose audio cannot be resolved (deleted blobs, missing
metadata) are flagged as orphaned.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := newService()
		if err != nil {
			return err
		}
		defer svc.Close()

		files, err := svc.Scan(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to scan workspace: %w", err)
		}

		if listJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(files)
		}

		if len(files) == 0 {
			fmt.Println("No voice notes found")
			return nil
		}

		for _, fn := range files {
			fmt.Println(fn.Path)
			for _, n := range fn.Notes {
				flag := ""
				if !n.Resolvable {
					flag = "  [orphaned]"
				}
				author := ""
				if n.Author != "" {
					author = " by " + n.Author
				}
				fmt.Printf("  %d: %s (%s)%s%s\n", n.Line+1, n.TokenRaw, n.Duration, author, flag)
				if n.Comment != "" {
					fmt.Printf("     %q\n", n.Comment)
				}
			}
		}
		return nil
	},
}

func init() {
	listCmd.Flags().BoolVar(&listJSON, "json", false, "print the listing as JSON")
}
