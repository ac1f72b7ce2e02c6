package cli

import (
	"github.com/spf13/cobra"

	"kilometers.ai/standin/internal/interfaces/httpapi"
)

// NewServeCommand creates the serve command
func NewServeCommand(container *CLIContainer) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the redirection API over HTTP",
		Long: `Serve the redirection API over HTTP until interrupted.

Routes:
  GET  /healthz
  GET  /v1/bindings
  GET  /v1/resolve/{class}
  POST /v1/convert
  POST /v1/launch
  POST /v1/results/{code}  (releases a pending request code)
  GET  /metrics        (unless metrics are disabled)`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			handler, err := container.App.APIHandler(cmd.Context())
			if err != nil {
				return err
			}
			server := httpapi.NewServer(container.App.Config().ListenAddr, handler, container.App.Logger().Named("http"))
			return server.Run(cmd.Context())
		},
	}
	cmd.Flags().String("listen", "", "Listen address (default from configuration)")
	cmd.Flags().Bool("metrics", true, "Expose Prometheus metrics on /metrics")
	cmd.Flags().Int("journal-size", 0, "Launches kept in the host journal (default from configuration)")
	return cmd
}
