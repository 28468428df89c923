package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/example/slot/internal/cli"
	"github.com/example/slot/internal/version"
)

func main() {
	rootCmd := &cobra.Command{
		Use:     "slot",
		Short:   "slot - isolated development environments from one checkout",
		Version: version.String(),
		Long: `slot manages numbered and named slots: git worktrees of a project
with their own ports, containers, and database clones, tracked in a
shared registry.`,
	}

	// Add subcommands
	rootCmd.AddCommand(cli.InitCmd())
	rootCmd.AddCommand(cli.CreateCmd())
	rootCmd.AddCommand(cli.DeleteCmd())
	rootCmd.AddCommand(cli.ListCmd())
	rootCmd.AddCommand(cli.StartCmd())
	rootCmd.AddCommand(cli.ContinueCmd())
	rootCmd.AddCommand(cli.CheckCmd())
	rootCmd.AddCommand(cli.VerifyCmd())
	rootCmd.AddCommand(cli.FixPortsCmd())
	rootCmd.AddCommand(cli.SyncCmd())
	rootCmd.AddCommand(cli.DbSyncCmd())
	rootCmd.AddCommand(cli.MergeCmd())
	rootCmd.AddCommand(cli.DoneCmd())
	rootCmd.AddCommand(cli.PRCmd())
	rootCmd.AddCommand(cli.LockCmd())
	rootCmd.AddCommand(cli.UnlockCmd())
	rootCmd.AddCommand(cli.TagCmd())
	rootCmd.AddCommand(cli.GroupCmd())
	rootCmd.AddCommand(cli.CleanCmd())
	rootCmd.AddCommand(cli.StatusCmd())
	rootCmd.AddCommand(cli.ServeCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
