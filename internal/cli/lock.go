package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/example/slot/internal/wire"
)

// LockCmd returns the lock command
func LockCmd() *cobra.Command {
	var note string

	cmd := &cobra.Command{
		Use:   "lock [number|name]",
		Short: "Lock a slot against deletion",
		Long: `Mark a slot locked. Locked slots are never deleted, not even with
--force; unlock first.

Examples:
  slot lock 3
  slot lock 3 --note "demo on friday"`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := workingDir()
			if err != nil {
				return err
			}
			key, err := wire.Slots().SetLock(dir, identifierArg(args), true, note)
			if err != nil {
				return err
			}
			fmt.Printf("%s Locked %s\n", okMark(), key)
			return nil
		},
	}

	cmd.Flags().StringVar(&note, "note", "", "Reason for the lock")

	return cmd
}

// UnlockCmd returns the unlock command
func UnlockCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "unlock [number|name]",
		Short: "Unlock a slot",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := workingDir()
			if err != nil {
				return err
			}
			key, err := wire.Slots().SetLock(dir, identifierArg(args), false, "")
			if err != nil {
				return err
			}
			fmt.Printf("%s Unlocked %s\n", okMark(), key)
			return nil
		},
	}
}

// TagCmd returns the tag command
func TagCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tag [number|name] <add|rm> <tag>",
		Short: "Add or remove a slot tag",
		Long: `Edit the free-form tags on a slot.

Examples:
  slot tag 3 add wip
  slot tag experiment rm wip`,
		Args: cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := workingDir()
			if err != nil {
				return err
			}

			identifier := ""
			verb, tag := args[0], args[1]
			if len(args) == 3 {
				identifier, verb, tag = args[0], args[1], args[2]
			}
			if verb != "add" && verb != "rm" {
				return fmt.Errorf("unknown tag action %s, want add or rm", verb)
			}

			key, err := wire.Slots().EditTags(dir, identifier, verb, tag)
			if err != nil {
				return err
			}
			fmt.Printf("%s Tags updated on %s\n", okMark(), key)
			return nil
		},
	}
}
