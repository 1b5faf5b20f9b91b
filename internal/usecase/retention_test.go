package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/marcelmurilo1-jpg/saas-milhas/internal/domain"
)

type fakeRetentionStore struct {
	archivedAt time.Time
	cutoff     time.Time
	limit      int
	archiveErr error
}

func (f *fakeRetentionStore) ArchiveExpired(_ context.Context, now time.Time) (int64, int64, error) {
	f.archivedAt = now
	return 3, 3, f.archiveErr
}

func (f *fakeRetentionStore) PurgeBackups(_ context.Context, cutoff time.Time) (int64, error) {
	f.cutoff = cutoff
	return 1, nil
}

func (f *fakeRetentionStore) ListExpired(_ context.Context, _ time.Time, limit int) ([]domain.ExpiredPromotion, error) {
	f.limit = limit
	return []domain.ExpiredPromotion{{ID: 7, URL: "https://x/old"}}, nil
}

func TestRetentionRun(t *testing.T) {
	t.Parallel()

	store := &fakeRetentionStore{}
	retention := NewRetention(store, 30, 50, silent)
	now := time.Date(2025, 10, 1, 3, 0, 0, 0, time.UTC)

	report, err := retention.Run(context.Background(), now)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report != (domain.RetentionReport{Moved: 3, Deleted: 3, Purged: 1}) {
		t.Fatalf("unexpected report %+v", report)
	}
	if !store.archivedAt.Equal(now) {
		t.Fatalf("unexpected archive instant %s", store.archivedAt)
	}
	if want := time.Date(2025, 9, 1, 3, 0, 0, 0, time.UTC); !store.cutoff.Equal(want) {
		t.Fatalf("cutoff %s, want %s", store.cutoff, want)
	}
}

func TestRetentionRunArchiveError(t *testing.T) {
	t.Parallel()

	store := &fakeRetentionStore{archiveErr: errors.New("tx failed")}
	if _, err := NewRetention(store, 30, 0, silent).Run(context.Background(), time.Now()); err == nil {
		t.Fatal("expected error")
	}
	if !store.cutoff.IsZero() {
		t.Fatal("purge must not run after a failed archive")
	}
}

func TestRetentionDryRun(t *testing.T) {
	t.Parallel()

	store := &fakeRetentionStore{}
	expired, err := NewRetention(store, 0, 25, silent).DryRun(context.Background(), time.Now(), 0)
	if err != nil {
		t.Fatalf("DryRun: %v", err)
	}
	if len(expired) != 1 || store.limit != 25 {
		t.Fatalf("unexpected dry run %+v limit %d", expired, store.limit)
	}
	if !store.archivedAt.IsZero() {
		t.Fatal("dry run must not archive")
	}
}

func TestRetentionDryRunExplicitLimit(t *testing.T) {
	t.Parallel()

	store := &fakeRetentionStore{}
	if _, err := NewRetention(store, 30, 25, silent).DryRun(context.Background(), time.Now(), 3); err != nil {
		t.Fatalf("DryRun: %v", err)
	}
	if store.limit != 3 {
		t.Fatalf("expected explicit limit, got %d", store.limit)
	}
}
