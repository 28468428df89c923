package cli

import (
	"github.com/spf13/cobra"

	"github.com/example/slot/internal/app"
)

// StartCmd returns the start command
func StartCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the agent in the current directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := workingDir()
			if err != nil {
				return err
			}
			return app.RunInteractive(dir, "claude", "--dangerously-skip-permissions")
		},
	}
}

// ContinueCmd returns the continue command
func ContinueCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "continue",
		Short: "Continue the agent session in the current directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := workingDir()
			if err != nil {
				return err
			}
			return app.RunInteractive(dir, "claude", "--continue", "--dangerously-skip-permissions")
		},
	}
}
