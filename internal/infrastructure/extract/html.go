package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/araddon/dateparse"
	"golang.org/x/net/html"

	"github.com/marcelmurilo1-jpg/saas-milhas/internal/domain"
	"github.com/marcelmurilo1-jpg/saas-milhas/internal/strategy"
)

const (
	// SelectorsName identifies the CSS selector strategy.
	SelectorsName = "selectors"
	untitled      = "Sem título"
	junkTags      = "script, style, iframe, ins, noscript, svg"
)

// DefaultContentSelectors lists the article containers tried in order.
var DefaultContentSelectors = []string{
	"div.td-post-content",
	"div.entry-content",
	"div.post-content",
	"article .entry-content",
	"article",
	"main",
	"div.content",
	"section",
}

var publishedSelectors = []struct {
	selector string
	attr     string
}{
	{`meta[property="article:published_time"]`, "content"},
	{`meta[property="og:article:published_time"]`, "content"},
	{`meta[itemprop="datePublished"]`, "content"},
	{`meta[name="pubdate"]`, "content"},
	{`time[datetime]`, "datetime"},
}

var blockTags = map[string]bool{
	"p": true, "li": true, "h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"blockquote": true, "pre": true, "td": true, "th": true, "caption": true, "figcaption": true,
	"div": true, "section": true, "article": true,
}

// SelectorExtractor pulls article fields out of WordPress-like pages using a
// list of content selectors.
type SelectorExtractor struct {
	name      string
	selectors []string
	loc       *time.Location
	fallback  *ReadabilityExtractor
}

var _ strategy.Extractor = (*SelectorExtractor)(nil)

// NewSelectorExtractor builds the extractor; empty selectors take the defaults.
// Pages whose containers yield no text are retried with readability.
func NewSelectorExtractor(selectors []string, loc *time.Location) *SelectorExtractor {
	if len(selectors) == 0 {
		selectors = DefaultContentSelectors
	}
	if loc == nil {
		loc = time.UTC
	}
	x := &SelectorExtractor{name: SelectorsName, selectors: selectors, loc: loc}
	x.fallback = &ReadabilityExtractor{loc: loc}
	return x
}

// SiteSelectorExtractor is a selector strategy with site-specific selectors,
// registered as "selectors:<site>".
func SiteSelectorExtractor(site string, selectors []string, loc *time.Location) *SelectorExtractor {
	x := NewSelectorExtractor(selectors, loc)
	x.name = SelectorsName + ":" + site
	return x
}

// Name identifies the strategy inside the registry.
func (x *SelectorExtractor) Name() string {
	return x.name
}

// Extract parses page and fills a promotion for entry.
func (x *SelectorExtractor) Extract(ctx context.Context, entry domain.FeedEntry, page []byte) (domain.Promotion, error) {
	doc, base, err := parsePage(entry.Link, page)
	if err != nil {
		return domain.Promotion{}, err
	}

	container := x.container(doc)
	promo := buildPromotion(entry, doc, container, base, x.loc)
	if promo.ContentText == "" && x.fallback != nil {
		if readable, err := x.fallback.Extract(ctx, entry, page); err == nil && readable.ContentText != "" {
			return readable, nil
		}
	}
	return promo, nil
}

func (x *SelectorExtractor) container(doc *goquery.Document) *goquery.Selection {
	for _, sel := range x.selectors {
		if found := doc.Find(sel).First(); found.Length() > 0 {
			return found
		}
	}
	if body := doc.Find("body").First(); body.Length() > 0 {
		return body
	}
	return doc.Selection
}

func parsePage(link string, page []byte) (*goquery.Document, *url.URL, error) {
	base, err := url.Parse(link)
	if err != nil {
		return nil, nil, fmt.Errorf("parse link %s: %w", link, err)
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		return nil, nil, fmt.Errorf("parse document: %w", err)
	}
	return doc, base, nil
}

// buildPromotion reads metadata from doc and the body from container.
func buildPromotion(entry domain.FeedEntry, doc *goquery.Document, container *goquery.Selection, base *url.URL, loc *time.Location) domain.Promotion {
	promo := domain.Promotion{
		URL:    entry.Link,
		Title:  pageTitle(doc, entry.FeedTitle),
		Author: pageAuthor(doc),
		JSONLD: jsonLD(doc),
	}

	promo.PublishedAt = entry.Published
	if promo.PublishedAt.IsZero() {
		promo.PublishedAt = metaPublished(doc, loc)
	}
	if !promo.PublishedAt.IsZero() {
		day := promo.PublishedAt.In(loc)
		day = time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, loc)
		promo.DatePublished = &day
	}

	container.Find(junkTags).Remove()
	promo.ContentText = collectText(container)
	if htmlOut, err := goquery.OuterHtml(container); err == nil {
		promo.ContentHTML = htmlOut
	}
	promo.Images = collectImages(container, base)
	promo.Links = collectLinks(container, base)

	return promo
}

func pageTitle(doc *goquery.Document, feedTitle string) string {
	if heading := doc.Find("h1").First(); heading.Length() > 0 {
		if title := nodeText(heading); title != "" {
			return title
		}
	} else if heading := doc.Find("h2").First(); heading.Length() > 0 {
		if title := nodeText(heading); title != "" {
			return title
		}
	}
	if og, ok := doc.Find(`meta[property="og:title"]`).First().Attr("content"); ok && strings.TrimSpace(og) != "" {
		return strings.TrimSpace(og)
	}
	if feedTitle != "" {
		return feedTitle
	}
	return untitled
}

func pageAuthor(doc *goquery.Document) string {
	for _, sel := range []string{`[rel="author"]`, ".author", ".byline"} {
		if found := doc.Find(sel).First(); found.Length() > 0 {
			return nodeText(found)
		}
	}
	return ""
}

func metaPublished(doc *goquery.Document, loc *time.Location) time.Time {
	for _, candidate := range publishedSelectors {
		value, ok := doc.Find(candidate.selector).First().Attr(candidate.attr)
		if !ok || strings.TrimSpace(value) == "" {
			continue
		}
		if t, err := dateparse.ParseIn(strings.TrimSpace(value), loc); err == nil {
			return t.In(loc)
		}
	}
	return time.Time{}
}

func jsonLD(doc *goquery.Document) []json.RawMessage {
	var blocks []json.RawMessage
	doc.Find(`script[type="application/ld+json"]`).Each(func(_ int, s *goquery.Selection) {
		raw := strings.TrimSpace(s.Text())
		if raw != "" && json.Valid([]byte(raw)) {
			blocks = append(blocks, json.RawMessage(raw))
		}
	})
	return blocks
}

// collectText renders the container as paragraphs separated by blank lines.
// Only innermost block elements are emitted and repeated neighbours are
// dropped.
func collectText(container *goquery.Selection) string {
	var fragments []string
	container.Find("*").Each(func(_ int, s *goquery.Selection) {
		if !blockTags[goquery.NodeName(s)] || hasBlockChild(s) {
			return
		}
		text := nodeText(s)
		if text == "" {
			return
		}
		if n := len(fragments); n > 0 && fragments[n-1] == text {
			return
		}
		fragments = append(fragments, text)
	})
	if len(fragments) == 0 {
		return nodeText(container)
	}
	return strings.Join(fragments, "\n\n")
}

func hasBlockChild(s *goquery.Selection) bool {
	found := false
	s.Find("*").EachWithBreak(func(_ int, child *goquery.Selection) bool {
		if blockTags[goquery.NodeName(child)] {
			found = true
			return false
		}
		return true
	})
	return found
}

// nodeText joins the trimmed text nodes under s with single spaces.
func nodeText(s *goquery.Selection) string {
	var parts []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			if t := strings.Join(strings.Fields(n.Data), " "); t != "" {
				parts = append(parts, t)
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range s.Nodes {
		walk(n)
	}
	return strings.Join(parts, " ")
}

func collectImages(container *goquery.Selection, base *url.URL) []domain.Image {
	images := []domain.Image{}
	container.Find("img").Each(func(_ int, img *goquery.Selection) {
		var src string
		for _, attr := range []string{"src", "data-src", "data-lazy-src", "data-original"} {
			if v, ok := img.Attr(attr); ok && strings.TrimSpace(v) != "" {
				src = strings.TrimSpace(v)
				break
			}
		}
		if src == "" {
			return
		}
		alt, _ := img.Attr("alt")
		title, _ := img.Attr("title")
		images = append(images, domain.Image{Src: resolve(base, src), Alt: alt, Title: title})
	})
	return images
}

func collectLinks(container *goquery.Selection, base *url.URL) []domain.Link {
	links := []domain.Link{}
	siteHost := strings.TrimPrefix(base.Hostname(), "www.")
	container.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		absolute := resolve(base, strings.TrimSpace(href))
		internal := false
		if parsed, err := url.Parse(absolute); err == nil && siteHost != "" {
			internal = strings.HasSuffix(parsed.Hostname(), siteHost)
		}
		links = append(links, domain.Link{Href: absolute, Text: nodeText(a), Internal: internal})
	})
	return links
}

func resolve(base *url.URL, ref string) string {
	parsed, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return base.ResolveReference(parsed).String()
}
