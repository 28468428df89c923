package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/example/slot/internal/wire"
)

// CheckCmd returns the check command
func CheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check [number|name]",
		Short: "Structurally validate a slot directory",
		Long: `Check that a slot's directory exists, is a worktree of its project,
and is on the recorded branch. A lighter pass than verify: no remote
or merge-state queries.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := workingDir()
			if err != nil {
				return err
			}

			res, err := wire.Slots().Resolve(dir, identifierArg(args))
			if err != nil {
				return err
			}

			ok := true
			if _, err := os.Stat(res.Path); err != nil {
				fmt.Printf("%s directory %s missing\n", failMark(), res.Path)
				return fmt.Errorf("slot %s failed check", res.Key)
			}
			fmt.Printf("%s directory %s\n", okMark(), res.Path)

			if wire.Git().IsWorktree(res.Path) {
				fmt.Printf("%s worktree of %s\n", okMark(), res.Project.Path)
			} else {
				fmt.Printf("%s not a linked worktree\n", failMark())
				ok = false
			}

			branch, err := wire.Git().GetCurrentBranch(res.Path)
			if err != nil {
				fmt.Printf("%s %v\n", failMark(), err)
				ok = false
			} else if branch == res.Slot.Branch {
				fmt.Printf("%s on branch %s\n", okMark(), branch)
			} else {
				fmt.Printf("%s on branch %s, registry says %s\n", failMark(), branch, res.Slot.Branch)
				ok = false
			}

			if !ok {
				return fmt.Errorf("slot %s failed check", res.Key)
			}
			return nil
		},
	}
}

// VerifyCmd returns the verify command
func VerifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify [number|name]",
		Short: "Fully verify a slot against the registry",
		Long: `Verify a slot end to end: directory, worktree linkage, branch,
merge base with the project branch, and ahead/behind counts. Drift is
reported, never repaired.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := workingDir()
			if err != nil {
				return err
			}

			res, err := wire.Slots().Resolve(dir, identifierArg(args))
			if err != nil {
				return err
			}

			report := wire.Reconcile().VerifySlot(res.Registry, res.Key)
			if !printVerifyReport(report) {
				return fmt.Errorf("slot %s failed verification", res.Key)
			}
			return nil
		},
	}
}

// FixPortsCmd returns the fix-ports command
func FixPortsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fix-ports [number|name]",
		Short: "Recompute and reapply a slot's port map",
		Long: `Rescan the project, recompute the slot's port map, and re-run the
config rewrites. The port map is derived, not stored, so this is safe
to run any number of times.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := workingDir()
			if err != nil {
				return err
			}
			return wire.Slots().FixPorts(dir, identifierArg(args))
		},
	}
}
