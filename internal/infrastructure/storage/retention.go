package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/marcelmurilo1-jpg/saas-milhas/internal/domain"
)

func expiredFilter(now time.Time) sq.And {
	return sq.And{sq.NotEq{"valid_until": nil}, sq.Lt{"valid_until": now}}
}

// ArchiveExpired moves promotions whose validity ended before now into the
// backup table. The delete and the copy run as one statement, so only rows
// that reached the backup table leave the live one.
func (r *PostgresRepository) ArchiveExpired(ctx context.Context, now time.Time) (moved, deleted int64, err error) {
	if r.db == nil {
		return 0, 0, nil
	}

	query, args, err := archiveQuery(now)
	if err != nil {
		return 0, 0, fmt.Errorf("build archive: %w", err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, 0, fmt.Errorf("archive expired: %w", err)
	}
	if moved, err = res.RowsAffected(); err != nil {
		return 0, 0, fmt.Errorf("archive expired rows: %w", err)
	}
	return moved, moved, nil
}

// PurgeBackups deletes backup rows archived before cutoff.
func (r *PostgresRepository) PurgeBackups(ctx context.Context, cutoff time.Time) (int64, error) {
	if r.db == nil {
		return 0, nil
	}

	query, args, err := psql.Delete(backupTable).Where(sq.Lt{"deleted_at": cutoff}).ToSql()
	if err != nil {
		return 0, fmt.Errorf("build purge: %w", err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("purge backups: %w", err)
	}
	removed, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("purge backups rows: %w", err)
	}
	return removed, nil
}

// ListExpired returns up to limit promotions that ArchiveExpired would move,
// earliest expiry first.
func (r *PostgresRepository) ListExpired(ctx context.Context, now time.Time, limit int) ([]domain.ExpiredPromotion, error) {
	if r.db == nil {
		return nil, nil
	}

	query, args, err := expiredQuery(now, limit).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build expired query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query expired: %w", err)
	}
	defer rows.Close()

	var expired []domain.ExpiredPromotion
	for rows.Next() {
		var (
			item  domain.ExpiredPromotion
			title *string
		)
		if err := rows.Scan(&item.ID, &item.URL, &title, &item.ValidUntil); err != nil {
			return nil, fmt.Errorf("scan expired: %w", err)
		}
		if title != nil {
			item.Title = *title
		}
		expired = append(expired, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return expired, nil
}

// archiveQuery deletes expired rows and inserts exactly the returned rows
// into the backup table.
func archiveQuery(now time.Time) (string, []interface{}, error) {
	removed, removedArgs, err := sq.Delete(promotionsTable).
		Where(expiredFilter(now)).
		Suffix("RETURNING " + strings.Join(promotionColumns, ", ")).
		ToSql()
	if err != nil {
		return "", nil, err
	}

	source := sq.Select(promotionColumns...).
		Column("?::timestamptz", now).
		From("moved")

	return psql.Insert(backupTable).
		Prefix("WITH moved AS ("+removed+")", removedArgs...).
		Columns(append(append([]string{}, promotionColumns...), "deleted_at")...).
		Select(source).
		ToSql()
}

func expiredQuery(now time.Time, limit int) sq.SelectBuilder {
	if limit <= 0 {
		limit = 500
	}
	return psql.Select("id", "url", "title", "valid_until").
		From(promotionsTable).
		Where(expiredFilter(now)).
		OrderBy("valid_until ASC").
		Limit(uint64(limit))
}
