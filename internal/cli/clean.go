package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/example/slot/internal/wire"
)

// CleanCmd returns the clean command
func CleanCmd() *cobra.Command {
	var do bool
	var force bool

	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Sweep orphans and removable slots",
		Long: `Report orphaned containers, sessions, agent processes, and registry
entries, plus slots that are safe to remove. Dry-run by default; --do
removes clean slots and dead registry entries, --force additionally
removes slots with unpushed or unmerged commits. Locked and dirty
slots are never removed.

Examples:
  slot clean
  slot clean --do
  slot clean --do --force`,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := workingDir()
			if err != nil {
				return err
			}

			plan, err := wire.Slots().Clean(dir, do, force)
			if err != nil {
				return err
			}

			orphans := plan.OrphanReport
			for _, c := range orphans.Containers {
				fmt.Printf("%s orphaned container %s\n", warnMark(), c)
			}
			for _, session := range orphans.Sessions {
				fmt.Printf("%s orphaned tmux session %s\n", warnMark(), session)
			}
			for _, proc := range orphans.Processes {
				fmt.Printf("%s orphaned agent pid %s in %s\n", warnMark(), proc.PID, proc.Cwd)
			}

			verb := "would remove"
			if do {
				verb = "removed"
			}
			for _, key := range plan.RemoveEntries {
				fmt.Printf("%s %s registry entry %s (directory missing)\n", warnMark(), verb, key)
			}
			for _, entry := range plan.RemoveWorktrees {
				fmt.Printf("%s %s %s (%s)\n", warnMark(), verb, entry.Path, entry.State)
			}
			for _, entry := range plan.Kept {
				fmt.Printf("%s keeping %s: %s\n", okMark(), entry.Name, entry.Detail)
			}

			if len(plan.RemoveEntries) == 0 && len(plan.RemoveWorktrees) == 0 && orphans.Empty() {
				fmt.Println("Nothing to clean")
			} else if !do {
				fmt.Println("\nDry run. Re-run with --do to apply.")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&do, "do", false, "Apply the removals instead of reporting them")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Also remove slots with unpushed or unmerged commits")

	return cmd
}
