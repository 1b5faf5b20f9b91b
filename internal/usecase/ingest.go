package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/marcelmurilo1-jpg/saas-milhas/internal/domain"
	"github.com/marcelmurilo1-jpg/saas-milhas/internal/ports"
)

// IngestDeps wires all driven adapters into the ingest workflow.
type IngestDeps struct {
	Source      ports.FeedSource
	Fetcher     ports.PageFetcher
	Resolver    ports.ExtractorResolver
	Detector    ports.ExpirationDetector
	Repository  ports.PromotionRepository
	Notifier    ports.Notifier
	Logger      *slog.Logger
	Location    *time.Location
	Concurrency int
	Now         func() time.Time
}

// Ingest scrapes the promotions a day's feeds announce, infers their
// validity and stores them.
type Ingest struct {
	source      ports.FeedSource
	fetcher     ports.PageFetcher
	resolver    ports.ExtractorResolver
	detector    ports.ExpirationDetector
	repository  ports.PromotionRepository
	notifier    ports.Notifier
	logger      *slog.Logger
	loc         *time.Location
	concurrency int
	now         func() time.Time
}

// NewIngest constructs the orchestration component.
func NewIngest(deps IngestDeps) *Ingest {
	i := &Ingest{
		source:      deps.Source,
		fetcher:     deps.Fetcher,
		resolver:    deps.Resolver,
		detector:    deps.Detector,
		repository:  deps.Repository,
		notifier:    deps.Notifier,
		logger:      deps.Logger,
		loc:         deps.Location,
		concurrency: deps.Concurrency,
		now:         deps.Now,
	}
	if i.logger == nil {
		i.logger = slog.Default()
	}
	if i.loc == nil {
		i.loc = time.UTC
	}
	if i.concurrency <= 0 {
		i.concurrency = 1
	}
	if i.now == nil {
		i.now = time.Now
	}
	return i
}

// Run processes every entry published on day. A failing article is logged
// and counted without aborting the others.
func (i *Ingest) Run(ctx context.Context, day time.Time) (domain.IngestReport, error) {
	var report domain.IngestReport
	if i.source == nil {
		return report, nil
	}

	entries, err := i.source.EntriesFor(ctx, day.In(i.loc))
	if err != nil {
		return report, fmt.Errorf("list entries: %w", err)
	}
	report.Found = len(entries)
	if len(entries) == 0 {
		i.logger.Info("no promotions published", "day", day.In(i.loc).Format("2006-01-02"))
		return report, nil
	}

	var (
		mu    sync.Mutex
		saved = make([]*domain.Promotion, len(entries))
		g     errgroup.Group
	)
	g.SetLimit(i.concurrency)

	for idx, entry := range entries {
		g.Go(func() error {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			promo, err := i.process(ctx, entry)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				report.Failed++
				i.logger.Warn("promotion skipped", "url", entry.Link, "site", entry.Site, "error", err)
				return nil
			}
			report.Saved++
			saved[idx] = &promo
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return report, err
	}

	i.logger.Info("ingest finished", "found", report.Found, "saved", report.Saved, "failed", report.Failed)

	if i.notifier == nil || report.Saved == 0 {
		return report, nil
	}
	if err := i.notifier.PublishDigest(ctx, buildDigestMessage(compact(saved), i.loc)); err != nil {
		return report, fmt.Errorf("publish digest: %w", err)
	}
	return report, nil
}

func (i *Ingest) process(ctx context.Context, entry domain.FeedEntry) (domain.Promotion, error) {
	if i.fetcher == nil || i.resolver == nil {
		return domain.Promotion{}, errors.New("ingest is missing a fetcher or resolver")
	}

	page, err := i.fetcher.Fetch(ctx, entry.Link)
	if err != nil {
		return domain.Promotion{}, fmt.Errorf("fetch: %w", err)
	}

	extractor, err := i.resolver.ExtractorFor(entry.Site)
	if err != nil {
		return domain.Promotion{}, err
	}
	promo, err := extractor.Extract(ctx, entry, page)
	if err != nil {
		return domain.Promotion{}, fmt.Errorf("extract: %w", err)
	}

	promo.ScrapedAt = i.now().In(i.loc)
	if i.detector != nil {
		if until, ok := i.detector.Infer(promo.ContentText, anchorFor(promo, entry)); ok {
			promo.ValidUntil = &until
		}
	}

	if i.repository != nil {
		id, err := i.repository.Upsert(ctx, promo)
		if err != nil {
			return domain.Promotion{}, err
		}
		promo.ID = id
	}
	return promo, nil
}

// anchorFor prefers the full publication instant and falls back to the feed
// date, then to the calendar day that gets persisted.
func anchorFor(promo domain.Promotion, entry domain.FeedEntry) time.Time {
	switch {
	case !promo.PublishedAt.IsZero():
		return promo.PublishedAt
	case !entry.Published.IsZero():
		return entry.Published
	case promo.DatePublished != nil:
		return *promo.DatePublished
	default:
		return time.Time{}
	}
}

func compact(promos []*domain.Promotion) []domain.Promotion {
	out := make([]domain.Promotion, 0, len(promos))
	for _, p := range promos {
		if p != nil {
			out = append(out, *p)
		}
	}
	return out
}

func buildDigestMessage(promos []domain.Promotion, loc *time.Location) string {
	if len(promos) == 0 {
		return ""
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Fly Wise: %d promoções novas\n\n", len(promos))
	for _, promo := range promos {
		fmt.Fprintf(&b, "- %s\n", promo.Title)
		if promo.ValidUntil != nil {
			fmt.Fprintf(&b, "expira em %s\n", promo.ValidUntil.In(loc).Format("02/01/2006 15:04"))
		} else {
			b.WriteString("sem data de expiração\n")
		}
		fmt.Fprintf(&b, "%s\n\n", promo.URL)
	}
	return strings.TrimRight(b.String(), "\n")
}
