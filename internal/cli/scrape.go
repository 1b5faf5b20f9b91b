package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/marcelmurilo1-jpg/saas-milhas/internal/app"
)

// scrapeCmd runs a single ingest
var scrapeCmd = &cobra.Command{
	Use:   "scrape",
	Short: "Collect today's promotions once",
	Long: `Scrape reads every configured feed, keeps the entries published today,
extracts each article, infers its validity and upserts it into Postgres.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.Application, _ *slog.Logger) error {
			report, err := a.Scrape(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "found %d, saved %d, failed %d\n", report.Found, report.Saved, report.Failed)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(scrapeCmd)
}
