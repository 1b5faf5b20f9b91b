package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/marcelmurilo1-jpg/saas-milhas/internal/config"
	"github.com/marcelmurilo1-jpg/saas-milhas/internal/infrastructure/storage"
)

var connTimeout time.Duration

// checkconnCmd verifies the database connection
var checkconnCmd = &cobra.Command{
	Use:   "checkconn",
	Short: "Print the configured database target and ping it",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, _, err := loadConfig()
		if err != nil {
			return err
		}
		if cfg.Database.URL == "" {
			return config.ErrMissingDSN
		}

		out := cmd.OutOrStdout()
		info, err := storage.DescribeDSN(cfg.Database.URL)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "target: %s\n", info)

		ctx, cancel := context.WithTimeout(cmd.Context(), connTimeout)
		defer cancel()
		db, err := storage.Open(ctx, cfg.Database.URL)
		if err != nil {
			return err
		}
		defer db.Close()

		if err := storage.NewPostgresRepository(db).Ping(ctx); err != nil {
			return err
		}
		fmt.Fprintln(out, "connection ok")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(checkconnCmd)

	checkconnCmd.Flags().DurationVar(&connTimeout, "timeout", 10*time.Second, "connection timeout")
}
