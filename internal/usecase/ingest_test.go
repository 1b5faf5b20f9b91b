package usecase

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/marcelmurilo1-jpg/saas-milhas/internal/domain"
	"github.com/marcelmurilo1-jpg/saas-milhas/internal/ports"
)

var silent = slog.New(slog.NewTextHandler(io.Discard, nil))

type fakeSource struct {
	entries []domain.FeedEntry
	err     error
	gotDay  time.Time
}

func (f *fakeSource) EntriesFor(_ context.Context, day time.Time) ([]domain.FeedEntry, error) {
	f.gotDay = day
	return f.entries, f.err
}

type fakeFetcher struct {
	pages map[string]string
}

func (f fakeFetcher) Fetch(_ context.Context, pageURL string) ([]byte, error) {
	page, ok := f.pages[pageURL]
	if !ok {
		return nil, errors.New("404")
	}
	return []byte(page), nil
}

type textExtractor struct{}

func (textExtractor) Extract(_ context.Context, entry domain.FeedEntry, page []byte) (domain.Promotion, error) {
	return domain.Promotion{URL: entry.Link, Title: entry.FeedTitle, ContentText: string(page)}, nil
}

type fakeResolver struct{}

func (fakeResolver) ExtractorFor(site string) (ports.PageExtractor, error) {
	if site == "unknown" {
		return nil, errors.New("no extractor")
	}
	return textExtractor{}, nil
}

type fakeDetector struct {
	until   time.Time
	anchors []time.Time
	mu      sync.Mutex
}

func (f *fakeDetector) Infer(text string, anchor time.Time) (time.Time, bool) {
	f.mu.Lock()
	f.anchors = append(f.anchors, anchor)
	f.mu.Unlock()
	if strings.Contains(text, "válida") {
		return f.until, true
	}
	return time.Time{}, false
}

type fakeRepo struct {
	mu    sync.Mutex
	saved map[string]domain.Promotion
	err   error
}

func (f *fakeRepo) Upsert(_ context.Context, promo domain.Promotion) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saved == nil {
		f.saved = map[string]domain.Promotion{}
	}
	f.saved[promo.URL] = promo
	return int64(len(f.saved)), nil
}

func (f *fakeRepo) ListActive(context.Context, time.Time) ([]domain.Promotion, error) {
	return nil, nil
}

func (f *fakeRepo) Get(context.Context, int64) (domain.Promotion, error) {
	return domain.Promotion{}, nil
}

type fakeNotifier struct {
	digests []string
}

func (f *fakeNotifier) PublishDigest(_ context.Context, digest string) error {
	f.digests = append(f.digests, digest)
	return nil
}

func TestIngestRun(t *testing.T) {
	t.Parallel()

	loc := time.FixedZone("BRT", -3*3600)
	published := time.Date(2025, 9, 10, 8, 0, 0, 0, loc)
	until := time.Date(2025, 9, 14, 23, 59, 59, 0, loc)

	source := &fakeSource{entries: []domain.FeedEntry{
		{Site: "blog", Link: "https://x/a", FeedTitle: "Promo A", Published: published},
		{Site: "blog", Link: "https://x/b", FeedTitle: "Promo B", Published: published},
		{Site: "blog", Link: "https://x/missing", FeedTitle: "Missing"},
		{Site: "unknown", Link: "https://x/c", FeedTitle: "Promo C"},
	}}
	detector := &fakeDetector{until: until}
	repo := &fakeRepo{}
	notifier := &fakeNotifier{}
	scraped := time.Date(2025, 9, 10, 12, 0, 0, 0, time.UTC)

	ingest := NewIngest(IngestDeps{
		Source: source,
		Fetcher: fakeFetcher{pages: map[string]string{
			"https://x/a": "Oferta válida até domingo",
			"https://x/b": "Sem prazo",
			"https://x/c": "qualquer",
		}},
		Resolver:    fakeResolver{},
		Detector:    detector,
		Repository:  repo,
		Notifier:    notifier,
		Logger:      silent,
		Location:    loc,
		Concurrency: 2,
		Now:         func() time.Time { return scraped },
	})

	report, err := ingest.Run(context.Background(), time.Date(2025, 9, 10, 15, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report != (domain.IngestReport{Found: 4, Saved: 2, Failed: 2}) {
		t.Fatalf("unexpected report %+v", report)
	}
	if source.gotDay.Location() != loc {
		t.Fatalf("day not converted to local zone: %s", source.gotDay)
	}

	a := repo.saved["https://x/a"]
	if a.ValidUntil == nil || !a.ValidUntil.Equal(until) {
		t.Fatalf("unexpected validity %v", a.ValidUntil)
	}
	if !a.ScrapedAt.Equal(scraped) {
		t.Fatalf("unexpected scraped_at %s", a.ScrapedAt)
	}
	if b := repo.saved["https://x/b"]; b.ValidUntil != nil {
		t.Fatalf("expected no validity, got %v", b.ValidUntil)
	}
	for _, anchor := range detector.anchors {
		if !anchor.Equal(published) {
			t.Fatalf("expected feed date as anchor, got %s", anchor)
		}
	}

	if len(notifier.digests) != 1 {
		t.Fatalf("expected one digest, got %d", len(notifier.digests))
	}
	digest := notifier.digests[0]
	for _, want := range []string{"2 promoções novas", "- Promo A\nexpira em 14/09/2025 23:59\nhttps://x/a", "- Promo B\nsem data de expiração"} {
		if !strings.Contains(digest, want) {
			t.Fatalf("digest missing %q:\n%s", want, digest)
		}
	}
}

func TestIngestRunErrors(t *testing.T) {
	t.Parallel()

	ingest := NewIngest(IngestDeps{Source: &fakeSource{err: errors.New("feed down")}, Logger: silent})
	if _, err := ingest.Run(context.Background(), time.Now()); err == nil || !strings.Contains(err.Error(), "feed down") {
		t.Fatalf("expected feed error, got %v", err)
	}

	notifier := &fakeNotifier{}
	ingest = NewIngest(IngestDeps{
		Source:     &fakeSource{entries: []domain.FeedEntry{{Site: "blog", Link: "https://x/a"}}},
		Fetcher:    fakeFetcher{pages: map[string]string{"https://x/a": "texto"}},
		Resolver:   fakeResolver{},
		Repository: &fakeRepo{err: errors.New("db down")},
		Notifier:   notifier,
		Logger:     silent,
	})
	report, err := ingest.Run(context.Background(), time.Now())
	if err != nil {
		t.Fatalf("per-article failures must not fail the run: %v", err)
	}
	if report.Failed != 1 || report.Saved != 0 {
		t.Fatalf("unexpected report %+v", report)
	}
	if len(notifier.digests) != 0 {
		t.Fatal("no digest expected when nothing was saved")
	}
}

func TestIngestRunCancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ingest := NewIngest(IngestDeps{
		Source:   &fakeSource{entries: []domain.FeedEntry{{Link: "https://x/a"}}},
		Fetcher:  fakeFetcher{},
		Resolver: fakeResolver{},
		Logger:   silent,
	})
	if _, err := ingest.Run(ctx, time.Now()); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestAnchorFor(t *testing.T) {
	t.Parallel()

	published := time.Date(2025, 9, 10, 8, 30, 0, 0, time.UTC)
	feed := time.Date(2025, 9, 10, 9, 0, 0, 0, time.UTC)
	day := time.Date(2025, 9, 10, 0, 0, 0, 0, time.UTC)

	if got := anchorFor(domain.Promotion{PublishedAt: published}, domain.FeedEntry{Published: feed}); !got.Equal(published) {
		t.Fatalf("expected page instant, got %s", got)
	}
	if got := anchorFor(domain.Promotion{DatePublished: &day}, domain.FeedEntry{Published: feed}); !got.Equal(feed) {
		t.Fatalf("expected feed instant, got %s", got)
	}
	if got := anchorFor(domain.Promotion{DatePublished: &day}, domain.FeedEntry{}); !got.Equal(day) {
		t.Fatalf("expected calendar day, got %s", got)
	}
	if got := anchorFor(domain.Promotion{}, domain.FeedEntry{}); !got.IsZero() {
		t.Fatalf("expected zero anchor, got %s", got)
	}
}
