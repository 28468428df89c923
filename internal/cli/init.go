package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/example/slot/internal/wire"
)

// InitCmd returns the init command
func InitCmd() *cobra.Command {
	var basePort int
	var group string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Register the current checkout as a project",
		Long: `Register the current git checkout as a project in the registry.

The base port anchors the project's port block; slots derive their
ports from it by offset. The group defaults to the parent directory
name when the checkout lives under a grouped projects directory.

Examples:
  slot init --base-port 3000
  slot init --base-port 4000 --group clients`,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := workingDir()
			if err != nil {
				return err
			}

			name, err := wire.Slots().InitProject(dir, basePort, group)
			if err != nil {
				return fmt.Errorf("failed to register project: %w", err)
			}

			fmt.Printf("%s Registered project %s\n", okMark(), name)
			return nil
		},
	}

	cmd.Flags().IntVar(&basePort, "base-port", 0, "Base port for the project's port block")
	cmd.Flags().StringVar(&group, "group", "", "Presentation group (default: detected from path)")

	return cmd
}
