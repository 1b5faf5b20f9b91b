package domain

import (
	"encoding/json"
	"time"
)

// Promotion is a scraped promotional article with its inferred validity.
type Promotion struct {
	ID            int64             `json:"id"`
	URL           string            `json:"url"`
	Title         string            `json:"title"`
	DatePublished *time.Time        `json:"date_published,omitempty"`
	Author        string            `json:"author,omitempty"`
	ContentText   string            `json:"content_text"`
	ContentHTML   string            `json:"content_html"`
	Images        []Image           `json:"images_json"`
	Links         []Link            `json:"links_json"`
	JSONLD        []json.RawMessage `json:"-"`
	ScrapedAt     time.Time         `json:"scraped_at"`
	ValidUntil    *time.Time        `json:"valid_until"`

	// PublishedAt is the full publication instant used as the validity anchor.
	// Only the calendar day is persisted.
	PublishedAt time.Time `json:"-"`
}

// Image is an image found in the article body.
type Image struct {
	Src   string `json:"src"`
	Alt   string `json:"alt"`
	Title string `json:"title"`
}

// Link is an anchor found in the article body.
type Link struct {
	Href     string `json:"href"`
	Text     string `json:"text"`
	Internal bool   `json:"internal"`
}

// FeedEntry is an article announced by a site feed.
type FeedEntry struct {
	Site      string
	Link      string
	FeedTitle string
	Published time.Time
}

// ExpiredPromotion is the summary listed by a retention dry run.
type ExpiredPromotion struct {
	ID         int64
	URL        string
	Title      string
	ValidUntil time.Time
}

// RetentionReport counts what a retention pass changed.
type RetentionReport struct {
	Moved   int64
	Deleted int64
	Purged  int64
}

// IngestReport counts what an ingest pass processed.
type IngestReport struct {
	Found  int
	Saved  int
	Failed int
}
