package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/marcelmurilo1-jpg/saas-milhas/internal/domain"
	"github.com/marcelmurilo1-jpg/saas-milhas/internal/ports"
)

// Retention archives expired promotions and purges old backups.
type Retention struct {
	store       ports.RetentionStore
	backupDays  int
	dryRunLimit int
	logger      *slog.Logger
}

// NewRetention keeps backups for backupDays after archiving.
func NewRetention(store ports.RetentionStore, backupDays, dryRunLimit int, logger *slog.Logger) *Retention {
	if logger == nil {
		logger = slog.Default()
	}
	if backupDays <= 0 {
		backupDays = 30
	}
	return &Retention{store: store, backupDays: backupDays, dryRunLimit: dryRunLimit, logger: logger}
}

// Run moves promotions expired before now into the backup table and deletes
// backups older than the retention period.
func (r *Retention) Run(ctx context.Context, now time.Time) (domain.RetentionReport, error) {
	var report domain.RetentionReport
	if r.store == nil {
		return report, nil
	}

	moved, deleted, err := r.store.ArchiveExpired(ctx, now)
	if err != nil {
		return report, fmt.Errorf("archive expired: %w", err)
	}
	report.Moved, report.Deleted = moved, deleted

	purged, err := r.store.PurgeBackups(ctx, r.Cutoff(now))
	if err != nil {
		return report, fmt.Errorf("purge backups: %w", err)
	}
	report.Purged = purged

	r.logger.Info("retention finished", "moved", moved, "deleted", deleted, "purged", purged)
	return report, nil
}

// DryRun lists up to limit promotions Run would archive without changing
// anything. A non-positive limit uses the configured one.
func (r *Retention) DryRun(ctx context.Context, now time.Time, limit int) ([]domain.ExpiredPromotion, error) {
	if r.store == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = r.dryRunLimit
	}
	expired, err := r.store.ListExpired(ctx, now, limit)
	if err != nil {
		return nil, fmt.Errorf("list expired: %w", err)
	}
	return expired, nil
}

// Cutoff is the archive time before which backups are purged.
func (r *Retention) Cutoff(now time.Time) time.Time {
	return now.AddDate(0, 0, -r.backupDays)
}
