package cli

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/marcelmurilo1-jpg/saas-milhas/internal/app"
)

// serveCmd runs the read API
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve active promotions over HTTP",
	Long: `Serve exposes GET /api/v1/promotions/today and GET /api/v1/promotions/{id}.
With --schedule it also runs scrape and retention on the configured interval.

Example:
  flywise serve --schedule
  FLYWISE_HTTP_ADDR=:9000 flywise serve`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.Application, logger *slog.Logger) error {
			schedule := viper.GetBool("schedule")
			logger.Info("starting", "schedule", schedule)
			return a.Serve(ctx, schedule)
		})
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Bool("schedule", false, "also run scrape and retention periodically")
	_ = viper.BindPFlag("schedule", serveCmd.Flags().Lookup("schedule"))
}
