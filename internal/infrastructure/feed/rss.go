package feed

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/mmcdole/gofeed"

	"github.com/marcelmurilo1-jpg/saas-milhas/internal/config"
	"github.com/marcelmurilo1-jpg/saas-milhas/internal/domain"
	"github.com/marcelmurilo1-jpg/saas-milhas/internal/ports"
)

// Reader downloads and parses RSS or Atom feeds.
type Reader struct {
	client    *http.Client
	userAgent string
	loc       *time.Location
}

// NewReader wires an HTTP client; naive feed dates are read in loc.
func NewReader(client *http.Client, userAgent string, loc *time.Location) *Reader {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Reader{client: client, userAgent: userAgent, loc: loc}
}

// Entries returns every dated item of the feed at feedURL.
func (r *Reader) Entries(ctx context.Context, site, feedURL string) ([]domain.FeedEntry, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if r.userAgent != "" {
		req.Header.Set("User-Agent", r.userAgent)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("feed returned %s", resp.Status)
	}

	parsed, err := gofeed.NewParser().Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}

	entries := make([]domain.FeedEntry, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		if item == nil || strings.TrimSpace(item.Link) == "" {
			continue
		}
		published, ok := r.published(item)
		if !ok {
			continue
		}
		entries = append(entries, domain.FeedEntry{
			Site:      site,
			Link:      strings.TrimSpace(item.Link),
			FeedTitle: strings.TrimSpace(item.Title),
			Published: published,
		})
	}
	return entries, nil
}

func (r *Reader) published(item *gofeed.Item) (time.Time, bool) {
	if item.PublishedParsed != nil {
		return item.PublishedParsed.In(r.loc), true
	}
	if item.Published == "" {
		return time.Time{}, false
	}
	t, err := dateparse.ParseIn(item.Published, r.loc)
	if err != nil {
		return time.Time{}, false
	}
	return t.In(r.loc), true
}

// SiteSource lists the articles each configured site published on a day.
type SiteSource struct {
	reader *Reader
	sites  []config.SiteConfig
	logger *slog.Logger
}

var _ ports.FeedSource = (*SiteSource)(nil)

// NewSiteSource wires the feed reader with config-defined sites.
func NewSiteSource(reader *Reader, sites []config.SiteConfig, logger *slog.Logger) *SiteSource {
	if logger == nil {
		logger = slog.Default()
	}
	return &SiteSource{reader: reader, sites: sites, logger: logger}
}

// EntriesFor returns the entries published on day's calendar date, without
// duplicate links, in feed order.
func (s *SiteSource) EntriesFor(ctx context.Context, day time.Time) ([]domain.FeedEntry, error) {
	day = day.In(s.reader.loc)
	s.logger.Debug("poll feeds", "sites", len(s.sites), "day", day.Format("2006-01-02"))

	seen := map[string]struct{}{}
	var aggregated []domain.FeedEntry
	for _, site := range s.sites {
		entries, err := s.reader.Entries(ctx, site.Name, site.FeedURL)
		if err != nil {
			return nil, fmt.Errorf("site %s: %w", site.Name, err)
		}

		kept := 0
		for _, entry := range entries {
			if !sameDay(entry.Published, day) {
				continue
			}
			if _, dup := seen[entry.Link]; dup {
				continue
			}
			seen[entry.Link] = struct{}{}
			aggregated = append(aggregated, entry)
			kept++
		}
		s.logger.Debug("site polled", "site", site.Name, "entries", len(entries), "today", kept)
	}

	return aggregated, nil
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
