package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/example/slot/internal/wire"
)

// MergeCmd returns the merge command
func MergeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "merge [number|name]",
		Short: "Merge a slot branch into the project branch",
		Long: `Merge the slot branch into the project's current branch with a merge
commit. On conflict the merge is aborted in the project checkout and
the slot stays untouched; recovery commands are printed.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := workingDir()
			if err != nil {
				return err
			}
			if err := wire.Slots().Merge(dir, identifierArg(args)); err != nil {
				return err
			}
			fmt.Printf("%s Slot merged\n", okMark())
			return nil
		},
	}
}

// DoneCmd returns the done command
func DoneCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "done [number|name]",
		Short: "Merge a slot and delete it",
		Long: `Merge the slot branch into the project branch, then delete the slot.
The delete applies the same safety gates as slot delete.

Examples:
  slot done 3
  slot done experiment --force`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := workingDir()
			if err != nil {
				return err
			}
			if err := wire.Slots().Done(dir, identifierArg(args), force); err != nil {
				return err
			}
			fmt.Printf("%s Slot merged and deleted\n", okMark())
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Delete even with unpushed commits after the merge")

	return cmd
}

// PRCmd returns the pr command
func PRCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pr [number|name]",
		Short: "Push the slot branch and open a pull request",
		Long:  `Push the slot branch to origin and open a pull request with gh.`,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := workingDir()
			if err != nil {
				return err
			}
			return wire.Slots().OpenPR(dir, identifierArg(args))
		},
	}
}
