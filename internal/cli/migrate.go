package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/marcelmurilo1-jpg/saas-milhas/internal/app"
)

// migrateCmd creates or upgrades the schema
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the promotion tables and add missing columns",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.Application, _ *slog.Logger) error {
			added, err := a.Migrate(ctx)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(added) == 0 {
				fmt.Fprintln(out, "schema up to date")
				return nil
			}
			for _, column := range added {
				fmt.Fprintf(out, "added column %s\n", column)
			}
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
