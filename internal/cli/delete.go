package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/example/slot/internal/wire"
)

// DeleteCmd returns the delete command
func DeleteCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "delete [number|name]",
		Short: "Delete a slot",
		Long: `Delete a slot: stop its containers, remove the worktree and branch,
and drop the registry entry.

Locked slots are never deleted. Dirty slots are never deleted. Slots
with unpushed or unmerged commits require --force.

Examples:
  slot delete 3
  slot delete experiment --force`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := workingDir()
			if err != nil {
				return err
			}

			if err := wire.Slots().Delete(dir, identifierArg(args), force); err != nil {
				return err
			}

			fmt.Printf("%s Slot deleted\n", okMark())
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Delete even with unpushed or unmerged commits")

	return cmd
}
