package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/example/slot/internal/wire"
)

// StatusCmd returns the status command
func StatusCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the full slot tree with live state",
		Long: `Show every group, project, and slot with live annotations: worktree
presence, tmux sessions, running agents, containers, and listening
ports. --json emits the machine-readable tree.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := wire.Store().Load()
			if err != nil {
				return fmt.Errorf("failed to load registry: %w", err)
			}
			tree := wire.Status().Tree(reg)

			if asJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(tree)
			}

			for _, group := range tree.Groups {
				if group.DisplayName != "" {
					fmt.Printf("%s\n", group.DisplayName)
				}
				for _, project := range group.Projects {
					fmt.Printf("┌─ %s (:%d)\n", project.Name, project.BasePort)
					fmt.Printf("│  Path: %s\n", project.Path)
					for _, slot := range project.Slots {
						fmt.Printf("│  %s  %s %s\n", slot.Key, slot.Branch, slotAnnotations(slot))
					}
					fmt.Println("└──────────────────────────────────────")
				}
			}
			if len(tree.ListeningPorts) > 0 {
				fmt.Println("\nListening ports:")
				for _, lp := range tree.ListeningPorts {
					fmt.Printf("  :%d  %s (pid %s)\n", lp.Port, lp.Command, strings.TrimSpace(lp.PID))
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit the tree as JSON")

	return cmd
}
