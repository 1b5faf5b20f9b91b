// Package validity infers until when a promotional article stays valid.
//
// An Engine ranks the article paragraphs, reads a candidate instant out of
// each one and keeps the earliest plausible instant relative to the
// publication time. The engine performs no I/O and holds no mutable state, so
// a single instance can be shared between goroutines.
package validity

import (
	"sort"
	"time"
)

const (
	defaultLookBehindDays = 3
	defaultLookAheadDays  = 730
)

// Options configures an Engine. Zero values take the defaults.
type Options struct {
	Vocabulary     Vocabulary
	Location       *time.Location
	LookBehindDays int
	LookAheadDays  int
}

// Engine combines the paragraph selector with the date extractor.
type Engine struct {
	selector   *Selector
	extractor  *Extractor
	lookBehind int
	lookAhead  int
}

// Hit is one instant read from one candidate paragraph.
type Hit struct {
	Snippet string    `json:"snippet"`
	Matcher string    `json:"matcher"`
	At      time.Time `json:"at"`
	// InWindow is false when the instant fell outside the sanity window.
	InWindow bool `json:"in_window"`
}

// Report explains how an expiration was chosen.
type Report struct {
	Anchor     time.Time `json:"published"`
	Candidates []string  `json:"candidates"`
	Hits       []Hit     `json:"hits"`
	ValidUntil time.Time `json:"valid_until"`
	Found      bool      `json:"found"`
}

// New builds an Engine.
func New(opts Options) *Engine {
	if opts.LookBehindDays <= 0 {
		opts.LookBehindDays = defaultLookBehindDays
	}
	if opts.LookAheadDays <= 0 {
		opts.LookAheadDays = defaultLookAheadDays
	}
	return &Engine{
		selector:   NewSelector(opts.Vocabulary),
		extractor:  NewExtractor(opts.Location),
		lookBehind: opts.LookBehindDays,
		lookAhead:  opts.LookAheadDays,
	}
}

// Infer returns the expiration instant for an article published at anchor.
// A zero anchor or empty text yields false.
func (e *Engine) Infer(text string, anchor time.Time) (time.Time, bool) {
	r := e.Explain(text, anchor)
	return r.ValidUntil, r.Found
}

// Explain runs the same inference as Infer and records every step.
func (e *Engine) Explain(text string, anchor time.Time) Report {
	var report Report
	if text == "" || anchor.IsZero() {
		return report
	}

	anchor = anchor.In(e.extractor.Location())
	report.Anchor = anchor
	report.Candidates = e.selector.Select(text)

	earliest := anchor.AddDate(0, 0, -e.lookBehind)
	latest := anchor.AddDate(0, 0, e.lookAhead)

	var pool []time.Time
	for _, snippet := range report.Candidates {
		at, name, ok := e.extractor.extract(snippet, anchor)
		if !ok {
			continue
		}
		hit := Hit{Snippet: snippet, Matcher: name, At: at}
		if !at.Before(earliest) && !at.After(latest) {
			hit.InWindow = true
			pool = append(pool, at)
		}
		report.Hits = append(report.Hits, hit)
	}

	report.ValidUntil, report.Found = choose(pool, anchor)
	return report
}

// choose prefers the earliest instant at or after anchor and otherwise the
// earliest instant overall.
func choose(pool []time.Time, anchor time.Time) (time.Time, bool) {
	if len(pool) == 0 {
		return time.Time{}, false
	}
	sort.Slice(pool, func(i, j int) bool { return pool[i].Before(pool[j]) })
	for _, at := range pool {
		if !at.Before(anchor) {
			return at, true
		}
	}
	return pool[0], true
}
