package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"

	"github.com/marcelmurilo1-jpg/saas-milhas/internal/app"
	"github.com/marcelmurilo1-jpg/saas-milhas/internal/domain"
)

const maxTitleWidth = 60

var (
	dryRun      bool
	dryRunLimit int
)

// retentionCmd archives expired promotions
var retentionCmd = &cobra.Command{
	Use:   "retention",
	Short: "Archive expired promotions and purge old backups",
	Long: `Retention moves promotions whose validity has ended into promocoes_backup
and deletes backups older than retention.backupDays.

Example:
  flywise retention --dry-run
  flywise retention --dry-run --limit 20`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.Application, _ *slog.Logger) error {
			out := cmd.OutOrStdout()
			if dryRun {
				expired, err := a.RetentionDryRun(ctx, dryRunLimit)
				if err != nil {
					return err
				}
				writeExpiredTable(out, expired, a.Location())
				return nil
			}

			report, err := a.Retention(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "moved %d, deleted %d, purged %d backups\n", report.Moved, report.Deleted, report.Purged)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(retentionCmd)

	retentionCmd.Flags().BoolVar(&dryRun, "dry-run", false, "list what would be archived without changing anything")
	retentionCmd.Flags().IntVar(&dryRunLimit, "limit", 0, "max rows listed by --dry-run (default from config)")
}

// writeExpiredTable prints rows aligned by display width so accented and
// wide titles keep the columns straight.
func writeExpiredTable(w io.Writer, expired []domain.ExpiredPromotion, loc *time.Location) {
	if len(expired) == 0 {
		fmt.Fprintln(w, "nothing to archive")
		return
	}

	rows := [][]string{{"ID", "VALID UNTIL", "TITLE", "URL"}}
	for _, item := range expired {
		rows = append(rows, []string{
			strconv.FormatInt(item.ID, 10),
			item.ValidUntil.In(loc).Format("2006-01-02 15:04"),
			runewidth.Truncate(item.Title, maxTitleWidth, "…"),
			item.URL,
		})
	}

	widths := make([]int, len(rows[0]))
	for _, row := range rows {
		for i, cell := range row {
			if width := runewidth.StringWidth(cell); width > widths[i] {
				widths[i] = width
			}
		}
	}

	for _, row := range rows {
		var sb strings.Builder
		for i, cell := range row {
			if i == len(row)-1 {
				sb.WriteString(cell)
				break
			}
			sb.WriteString(runewidth.FillRight(cell, widths[i]))
			sb.WriteString("  ")
		}
		fmt.Fprintln(w, sb.String())
	}
	fmt.Fprintf(w, "%d promotions would be archived\n", len(expired))
}
