package ports

import (
	"context"
	"time"

	"github.com/marcelmurilo1-jpg/saas-milhas/internal/domain"
)

// FeedSource lists the articles published on a given day.
type FeedSource interface {
	EntriesFor(ctx context.Context, day time.Time) ([]domain.FeedEntry, error)
}

// PageFetcher downloads raw HTML pages.
type PageFetcher interface {
	Fetch(ctx context.Context, pageURL string) ([]byte, error)
}

// PageExtractor turns a fetched page into a promotion record.
type PageExtractor interface {
	Extract(ctx context.Context, entry domain.FeedEntry, page []byte) (domain.Promotion, error)
}

// ExpirationDetector infers until when an article stays valid.
type ExpirationDetector interface {
	Infer(text string, anchor time.Time) (time.Time, bool)
}

// PromotionRepository persists and serves promotions.
type PromotionRepository interface {
	Upsert(ctx context.Context, promo domain.Promotion) (int64, error)
	ListActive(ctx context.Context, now time.Time) ([]domain.Promotion, error)
	Get(ctx context.Context, id int64) (domain.Promotion, error)
}

// RetentionStore archives expired promotions and prunes old backups.
type RetentionStore interface {
	ArchiveExpired(ctx context.Context, now time.Time) (moved, deleted int64, err error)
	PurgeBackups(ctx context.Context, cutoff time.Time) (int64, error)
	ListExpired(ctx context.Context, now time.Time, limit int) ([]domain.ExpiredPromotion, error)
}

// Notifier publishes a text digest to an outbound channel.
type Notifier interface {
	PublishDigest(ctx context.Context, digest string) error
}

// Scheduler controls when recurring jobs execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}

// ExtractorResolver picks the extraction strategy configured for a site.
type ExtractorResolver interface {
	ExtractorFor(site string) (PageExtractor, error)
}
