package cli

import (
	"github.com/spf13/cobra"

	"github.com/example/slot/internal/wire"
)

// ServeCmd returns the serve command
func ServeCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the slot API over HTTP",
		Long: `Serve GET /status and POST /command for dashboards and tooling.
Commands accept {"action", "project", "identifier", ...} with actions
create, delete, lock, unlock, and start.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return wire.APIServer().ListenAndServe(addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:7878", "Listen address")

	return cmd
}
