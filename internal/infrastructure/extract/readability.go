package extract

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"

	"github.com/marcelmurilo1-jpg/saas-milhas/internal/domain"
	"github.com/marcelmurilo1-jpg/saas-milhas/internal/strategy"
)

// ReadabilityName identifies the readability strategy.
const ReadabilityName = "readability"

// ReadabilityExtractor locates the article body with go-readability and reads
// metadata from the original page.
type ReadabilityExtractor struct {
	loc *time.Location
}

var _ strategy.Extractor = (*ReadabilityExtractor)(nil)

// NewReadabilityExtractor builds the extractor.
func NewReadabilityExtractor(loc *time.Location) *ReadabilityExtractor {
	if loc == nil {
		loc = time.UTC
	}
	return &ReadabilityExtractor{loc: loc}
}

// Name identifies the strategy inside the registry.
func (x *ReadabilityExtractor) Name() string {
	return ReadabilityName
}

// Extract parses page and fills a promotion for entry.
func (x *ReadabilityExtractor) Extract(_ context.Context, entry domain.FeedEntry, page []byte) (domain.Promotion, error) {
	doc, base, err := parsePage(entry.Link, page)
	if err != nil {
		return domain.Promotion{}, err
	}

	article, err := readability.FromReader(bytes.NewReader(page), base)
	if err != nil {
		return domain.Promotion{}, fmt.Errorf("readability: %w", err)
	}

	body, err := goquery.NewDocumentFromReader(strings.NewReader(article.Content))
	if err != nil {
		return domain.Promotion{}, fmt.Errorf("parse readable content: %w", err)
	}

	container := body.Find("body").First()
	if container.Length() == 0 {
		container = body.Selection
	}

	promo := buildPromotion(entry, doc, container, base, x.loc)
	if promo.Title == untitled && strings.TrimSpace(article.Title) != "" {
		promo.Title = strings.TrimSpace(article.Title)
	}
	return promo, nil
}
