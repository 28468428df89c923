package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/example/slot/internal/wire"
)

// CreateCmd returns the create command
func CreateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create [number|name]",
		Short: "Create a new slot",
		Long: `Create a new slot: a worktree of the current project with its own
ports, containers, and database clone.

Without an argument the next free slot number is used. A name creates
a named slot whose port offset is derived from the name.

Examples:
  slot create
  slot create 3
  slot create experiment`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := workingDir()
			if err != nil {
				return err
			}

			res, err := wire.Slots().Create(dir, identifierArg(args))
			if err != nil {
				return fmt.Errorf("failed to create slot: %w", err)
			}

			fmt.Printf("\n%s Created slot %s\n", okMark(), res.Key)
			fmt.Printf("  Path:   %s\n", res.Path)
			fmt.Printf("  Branch: %s\n", res.Branch)
			if len(res.PortMap) > 0 {
				mains := make([]int, 0, len(res.PortMap))
				for main := range res.PortMap {
					mains = append(mains, main)
				}
				sort.Ints(mains)
				fmt.Println("  Ports:")
				for _, main := range mains {
					fmt.Printf("    %d → %d\n", main, res.PortMap[main])
				}
			}
			fmt.Println("\nNext: cd into the slot and run `slot start`")
			return nil
		},
	}

	return cmd
}
