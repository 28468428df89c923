package cli

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/example/slot/internal/app"
	"github.com/example/slot/internal/wire"
)

// ListCmd returns the list command
func ListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List all projects and slots",
		Long:  `List every registered project and its slots, grouped by group, with live state.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := wire.Store().Load()
			if err != nil {
				return fmt.Errorf("failed to load registry: %w", err)
			}

			tree := wire.Status().Tree(reg)
			if len(tree.Groups) == 0 {
				fmt.Println("No projects registered.")
				fmt.Println()
				fmt.Println("Register your first project:")
				fmt.Println("  slot init --base-port 3000")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
			for _, group := range tree.Groups {
				if group.DisplayName != "" {
					fmt.Fprintf(w, "%s\n", color.New(color.Bold).Sprint(group.DisplayName))
				}
				for _, project := range group.Projects {
					fmt.Fprintf(w, "%s\t:%d\t%s\n", project.Name, project.BasePort, project.Path)
					for _, slot := range project.Slots {
						fmt.Fprintf(w, "  %s\t%s\t%s\n", slot.Key, slot.Branch, slotAnnotations(slot))
					}
				}
			}
			w.Flush()
			return nil
		},
	}

	return cmd
}

func slotAnnotations(slot app.SlotStatus) string {
	var notes []string
	if !slot.Exists {
		notes = append(notes, color.New(color.FgRed).Sprint("[missing]"))
	}
	if slot.Locked {
		note := "[locked]"
		if slot.LockNote != "" {
			note = fmt.Sprintf("[locked: %s]", slot.LockNote)
		}
		notes = append(notes, color.New(color.FgYellow).Sprint(note))
	}
	if slot.HasSession {
		notes = append(notes, color.New(color.FgCyan).Sprint("[tmux]"))
	}
	if len(slot.AgentPIDs) > 0 {
		notes = append(notes, color.New(color.FgHiMagenta).Sprintf("[agent %s]", strings.Join(slot.AgentPIDs, ",")))
	}
	if len(slot.Containers) > 0 {
		notes = append(notes, color.New(color.FgGreen).Sprintf("[up %s]", strings.Join(slot.Containers, ",")))
	}
	if len(slot.Tags) > 0 {
		notes = append(notes, fmt.Sprintf("#%s", strings.Join(slot.Tags, " #")))
	}
	return strings.Join(notes, " ")
}
