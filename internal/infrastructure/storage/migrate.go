package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
)

type column struct {
	name string
	ddl  string
}

var promotionSchema = []column{
	{"title", "TEXT"},
	{"date_published", "DATE"},
	{"author", "TEXT"},
	{"content_text", "TEXT"},
	{"content_html", "TEXT"},
	{"images_json", "JSONB"},
	{"links_json", "JSONB"},
	{"scraped_at", "TIMESTAMPTZ"},
	{"valid_until", "TIMESTAMPTZ"},
}

const createPromotions = `CREATE TABLE IF NOT EXISTS promocoes (
    id BIGSERIAL PRIMARY KEY,
    url TEXT NOT NULL UNIQUE,
    title TEXT,
    date_published DATE,
    author TEXT,
    content_text TEXT,
    content_html TEXT,
    images_json JSONB,
    links_json JSONB,
    scraped_at TIMESTAMPTZ DEFAULT NOW(),
    valid_until TIMESTAMPTZ
)`

const createBackups = `CREATE TABLE IF NOT EXISTS promocoes_backup (
    id BIGSERIAL PRIMARY KEY,
    url TEXT NOT NULL,
    title TEXT,
    date_published DATE,
    author TEXT,
    content_text TEXT,
    content_html TEXT,
    images_json JSONB,
    links_json JSONB,
    scraped_at TIMESTAMPTZ,
    valid_until TIMESTAMPTZ,
    deleted_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

const createValidityIndex = `CREATE INDEX IF NOT EXISTS promocoes_valid_until_idx ON promocoes (valid_until)`

// Migrate creates the promotion tables when absent and adds any column an
// older deployment is missing. It returns the columns it added.
func Migrate(ctx context.Context, db *sql.DB) ([]string, error) {
	for _, stmt := range []string{createPromotions, createBackups, createValidityIndex} {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return nil, fmt.Errorf("migrate: %w", err)
		}
	}

	var added []string
	for _, table := range []string{promotionsTable, backupTable} {
		existing, err := existingColumns(ctx, db, table)
		if err != nil {
			return added, err
		}
		for _, stmt := range missingColumns(table, existing) {
			if _, err := db.ExecContext(ctx, stmt.ddl); err != nil {
				return added, fmt.Errorf("add column %s.%s: %w", table, stmt.name, err)
			}
			added = append(added, table+"."+stmt.name)
		}
	}
	return added, nil
}

// Migrate runs Migrate against the repository's database.
func (r *PostgresRepository) Migrate(ctx context.Context) ([]string, error) {
	if r.db == nil {
		return nil, errors.New("storage: no database configured")
	}
	return Migrate(ctx, r.db)
}

func existingColumns(ctx context.Context, db *sql.DB, table string) (map[string]bool, error) {
	query, args, err := psql.Select("column_name").
		From("information_schema.columns").
		Where("table_name = ?", table).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build columns query: %w", err)
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list columns of %s: %w", table, err)
	}
	defer rows.Close()

	columns := map[string]bool{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan column: %w", err)
		}
		columns[name] = true
	}
	return columns, rows.Err()
}

// missingColumns returns one ALTER statement per schema column absent from
// existing, in a stable order.
func missingColumns(table string, existing map[string]bool) []column {
	wanted := append([]column{}, promotionSchema...)
	if table == backupTable {
		wanted = append(wanted, column{"deleted_at", "TIMESTAMPTZ NOT NULL DEFAULT NOW()"})
	}

	var stmts []column
	for _, c := range wanted {
		if existing[c.name] {
			continue
		}
		stmts = append(stmts, column{
			name: c.name,
			ddl:  fmt.Sprintf("ALTER TABLE %s ADD COLUMN IF NOT EXISTS %s %s", table, c.name, c.ddl),
		})
	}
	sort.Slice(stmts, func(i, j int) bool { return stmts[i].name < stmts[j].name })
	return stmts
}
