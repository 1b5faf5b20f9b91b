package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/lib/pq"
)

// ErrUnsupportedDSN is returned for connection strings that are not
// postgres:// URLs.
var ErrUnsupportedDSN = errors.New("storage: dsn must be a postgres:// url")

// Open connects to Postgres and verifies the connection.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

// DSNInfo is the safe-to-print part of a connection string.
type DSNInfo struct {
	Scheme   string
	Host     string
	Port     string
	Database string
	User     string
	SSLMode  string
}

func (i DSNInfo) String() string {
	return fmt.Sprintf("%s host=%s port=%s db=%s user=%s sslmode=%s", i.Scheme, i.Host, i.Port, i.Database, i.User, i.SSLMode)
}

// DescribeDSN parses a postgres URL without exposing its password.
func DescribeDSN(dsn string) (DSNInfo, error) {
	if !strings.HasPrefix(dsn, "postgres://") && !strings.HasPrefix(dsn, "postgresql://") {
		return DSNInfo{}, ErrUnsupportedDSN
	}
	if _, err := pq.ParseURL(dsn); err != nil {
		return DSNInfo{}, fmt.Errorf("parse dsn: %w", err)
	}

	u, err := url.Parse(dsn)
	if err != nil {
		return DSNInfo{}, fmt.Errorf("parse dsn: %w", err)
	}

	info := DSNInfo{
		Scheme:   u.Scheme,
		Host:     u.Hostname(),
		Port:     u.Port(),
		Database: strings.TrimPrefix(u.Path, "/"),
		SSLMode:  u.Query().Get("sslmode"),
	}
	if u.User != nil {
		info.User = u.User.Username()
	}
	if info.Port == "" {
		info.Port = "5432"
	}
	if info.SSLMode == "" {
		info.SSLMode = "prefer"
	}
	return info, nil
}

// Ping verifies the database is reachable.
func (r *PostgresRepository) Ping(ctx context.Context) error {
	if r.db == nil {
		return errors.New("storage: no database configured")
	}
	if err := r.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping postgres: %w", err)
	}
	return nil
}
