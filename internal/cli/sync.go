package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/example/slot/internal/wire"
)

// SyncCmd returns the sync command
func SyncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync [number|name]",
		Short: "Rebase a slot onto the project's current branch",
		Long: `Rebase the slot branch onto the project's current branch. Refuses
to run on a dirty tree. On conflict the rebase is aborted and the
slot is left exactly as it was.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := workingDir()
			if err != nil {
				return err
			}
			if err := wire.Slots().Sync(dir, identifierArg(args)); err != nil {
				return err
			}
			fmt.Printf("%s Slot synced\n", okMark())
			return nil
		},
	}
}

// DbSyncCmd returns the db-sync command
func DbSyncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "db-sync [number|name]",
		Short: "Re-clone the slot's database from the project",
		Long: `Drop and re-clone the slot's database from the project's database.
Containers are left as they are; only the data is refreshed.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := workingDir()
			if err != nil {
				return err
			}
			if err := wire.Slots().DbSync(dir, identifierArg(args)); err != nil {
				return err
			}
			fmt.Printf("%s Database cloned\n", okMark())
			return nil
		},
	}
}
