package validity

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"golang.org/x/text/unicode/norm"
)

// DefaultTimezone is the zone every inferred instant is expressed in.
const DefaultTimezone = "America/Sao_Paulo"

// Matcher names reported by Explain.
const (
	MatchTomorrow  = "tomorrow"
	MatchToday     = "today"
	MatchNumeric   = "numeric-date"
	MatchMonthName = "month-name-date"
	MatchWeekday   = "weekday"
	MatchClockDay  = "clock-weekday"
	MatchLoose     = "loose"
)

// timeSuffix captures an optional trailing "às HH[:MM]". Punctuation may sit
// between the date and the clock, "às" must follow whitespace, and the hour
// must end in "h", ":", a zone, punctuation or the end of the text so counts
// such as "as 10 primeiras" are not read as clocks.
const timeSuffix = `(?:[,;.–-]*\s+(?:.*?\s)??(?:às|as|a)\s*(\d{1,2})` +
	`(?:\s*[:h](\d{2})?|\s*(?:utc|gmt)|\s*$|\s*[^\p{L}\d\s]))?`

const englishMonths = `january|february|march|april|may|june|july|august|september|october|november|december`

var (
	spaceExpr     = regexp.MustCompile(`\s+`)
	monthNameExpr = regexp.MustCompile(`(?i)(\d{1,2})\s+de\s+(\p{L}+)(?:\s+de\s+(\d{4}))?`)

	dayMonthExpr = regexp.MustCompile(`(?i)\b(\d{1,2})(?:st|nd|rd|th)?\s+(` + englishMonths + `)\b(?:,?\s+(\d{4})\b)?`)
	monthDayExpr = regexp.MustCompile(`(?i)\b(` + englishMonths + `)\s+(\d{1,2})(?:st|nd|rd|th)?\b(?:,?\s+(\d{4})\b)?`)
	inDaysExpr   = regexp.MustCompile(`(?:^|\s)(?:em|daqui a|dentro de)\s+(\d{1,3})\s+dias?\b`)
)

type matcher struct {
	name    string
	pattern *regexp.Regexp
	build   func(groups []string, anchor time.Time) (time.Time, bool)
}

// matchers run in order; the first one that builds an instant wins.
var matchers = []matcher{
	{
		name:    MatchTomorrow,
		pattern: regexp.MustCompile(`até\s+amanh[ãa](?:\s*\((\d{1,2})\))?` + timeSuffix),
		build:   untilTomorrow,
	},
	{
		name:    MatchToday,
		pattern: regexp.MustCompile(`até\s+hoje\b` + timeSuffix),
		build:   untilToday,
	},
	{
		name:    MatchNumeric,
		pattern: regexp.MustCompile(`(\d{1,2})/(\d{1,2})(?:/(\d{2,4}))?` + timeSuffix),
		build:   numericDate,
	},
	{
		name: MatchMonthName,
		pattern: regexp.MustCompile(`(?:v[aá]lid[ao]s?\s*)?até\s+(?:o\s+)?(?:dia\s+)?(\d{1,2})` +
			`(\s*(?:%|[:h]\d{0,2}|mil|pontos|milhas))?` +
			`(?:\s+de\s+(\p{L}+)(?:\s+de\s+(\d{4}))?)?` + timeSuffix),
		build: monthNameDate,
	},
	{
		name:    MatchWeekday,
		pattern: regexp.MustCompile(`até\s+(?:o\s+|a\s+|est[ea]\s+|dest[ea]\s+)?(\p{L}[\p{L}-]*)(?:\s*\((\d{1,2})\))?`),
		build:   untilWeekday,
	},
	{
		name: MatchClockDay,
		pattern: regexp.MustCompile(`até\s+(?:[aà]s?\s*)?(\d{1,2})(?:[:h](\d{2}))?\s*h?\s*` +
			`(?:(?:do dia|dest[ea]|do|da|de|no|na)\s+)?(\p{L}[\p{L}-]*)?(?:\s*\((\d{1,2})\))?`),
		build: untilClockOnWeekday,
	},
}

// Extractor reads a single expiration instant out of a short text snippet.
type Extractor struct {
	loc *time.Location
}

// NewExtractor returns an extractor that reports instants in loc. A nil loc
// falls back to DefaultTimezone, or UTC when tzdata is unavailable.
func NewExtractor(loc *time.Location) *Extractor {
	if loc == nil {
		loc = DefaultLocation()
	}
	return &Extractor{loc: loc}
}

// DefaultLocation loads DefaultTimezone.
func DefaultLocation() *time.Location {
	loc, err := time.LoadLocation(DefaultTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Location reports the zone results are expressed in.
func (e *Extractor) Location() *time.Location {
	return e.loc
}

// Extract returns the instant announced in snippet, interpreted relative to
// anchor. It reports false when nothing usable is found.
func (e *Extractor) Extract(snippet string, anchor time.Time) (time.Time, bool) {
	at, _, ok := e.extract(snippet, anchor)
	return at, ok
}

func (e *Extractor) extract(snippet string, anchor time.Time) (at time.Time, name string, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			at, name, ok = time.Time{}, "", false
		}
	}()

	plain := collapseSpace(norm.NFC.String(snippet))
	if plain == "" || anchor.IsZero() {
		return time.Time{}, "", false
	}
	text := strings.ToLower(plain)
	anchor = anchor.In(e.loc)

	for _, m := range matchers {
		for _, groups := range m.pattern.FindAllStringSubmatch(text, -1) {
			if at, ok = m.build(groups, anchor); ok {
				name = m.name
				break
			}
		}
		if ok {
			break
		}
	}

	if !ok {
		at, ok = e.parseLoose(plain, anchor)
		name = MatchLoose
	}
	if !ok {
		return time.Time{}, "", false
	}

	if offset, found := utcOffset(text); found {
		at = reinterpret(at.In(e.loc), offset, e.loc)
	}
	return at.In(e.loc), name, true
}

// parseLoose is the catch-all. Day and month phrases are handed to the
// general date parser with the anchor's year filling a missing one, then the
// whole snippet is tried, then "em N dias" counted from the anchor. A result
// without a zone is read in the extractor's location.
func (e *Extractor) parseLoose(text string, anchor time.Time) (time.Time, bool) {
	translated := translateMonths(text)

	for _, phrase := range datePhrases(translated, anchor.Year()) {
		if at, ok := e.parseIn(phrase, anchor); ok {
			return at, true
		}
	}
	if at, ok := e.parseIn(translated, anchor); ok {
		return at, true
	}

	if m := inDaysExpr.FindStringSubmatch(strings.ToLower(text)); m != nil {
		if days, err := strconv.Atoi(m[1]); err == nil {
			return anchor.AddDate(0, 0, days), true
		}
	}
	return time.Time{}, false
}

func (e *Extractor) parseIn(text string, anchor time.Time) (time.Time, bool) {
	parsed, err := dateparse.ParseIn(text, e.loc)
	if err != nil {
		return time.Time{}, false
	}
	parsed = parsed.In(e.loc)
	if parsed.Year() == 0 {
		parsed = time.Date(anchor.Year(), parsed.Month(), parsed.Day(),
			parsed.Hour(), parsed.Minute(), parsed.Second(), 0, e.loc)
	}
	return parsed, true
}

// datePhrases rewrites every "17 September" or "September 17" in text as
// "17 September <year>", keeping an explicit year when one follows.
func datePhrases(text string, year int) []string {
	var phrases []string
	add := func(day, month, explicitYear string) {
		m, ok := englishMonth(month)
		if !ok {
			return
		}
		y := strconv.Itoa(year)
		if explicitYear != "" {
			y = explicitYear
		}
		phrases = append(phrases, day+" "+m.String()+" "+y)
	}

	for _, m := range dayMonthExpr.FindAllStringSubmatch(text, -1) {
		add(m[1], m[2], m[3])
	}
	for _, m := range monthDayExpr.FindAllStringSubmatch(text, -1) {
		add(m[2], m[1], m[3])
	}
	return phrases
}

func englishMonth(name string) (time.Month, bool) {
	for m := time.January; m <= time.December; m++ {
		if strings.EqualFold(m.String(), name) {
			return m, true
		}
	}
	return 0, false
}

// translateMonths rewrites "17 de setembro de 2025" as "17 September 2025".
func translateMonths(text string) string {
	return monthNameExpr.ReplaceAllStringFunc(text, func(s string) string {
		m := monthNameExpr.FindStringSubmatch(s)
		month, ok := lookupMonth(m[2])
		if !ok {
			return s
		}
		out := m[1] + " " + month.String()
		if m[3] != "" {
			out += " " + m[3]
		}
		return out
	})
}

func collapseSpace(s string) string {
	return strings.TrimSpace(spaceExpr.ReplaceAllString(s, " "))
}

func untilTomorrow(g []string, anchor time.Time) (time.Time, bool) {
	c := readClock(g[2], g[3], 59)
	if day, err := strconv.Atoi(g[1]); err == nil && validDate(anchor.Year(), anchor.Month(), day) {
		return c.on(anchor.Year(), anchor.Month(), day, anchor.Location()), true
	}
	return c.onDay(anchor.AddDate(0, 0, 1)), true
}

func untilToday(g []string, anchor time.Time) (time.Time, bool) {
	return readClock(g[1], g[2], 59).onDay(anchor), true
}

func numericDate(g []string, anchor time.Time) (time.Time, bool) {
	day, err := strconv.Atoi(g[1])
	if err != nil {
		return time.Time{}, false
	}
	month, err := strconv.Atoi(g[2])
	if err != nil {
		return time.Time{}, false
	}

	year := anchor.Year()
	if g[3] != "" {
		if year, err = strconv.Atoi(g[3]); err != nil {
			return time.Time{}, false
		}
		if year < 100 {
			year += 2000
		}
	}

	if !validDate(year, time.Month(month), day) {
		// month-first dates such as 12/25
		if !validDate(year, time.Month(day), month) {
			return time.Time{}, false
		}
		day, month = month, day
	}

	return readClock(g[4], g[5], 0).on(year, time.Month(month), day, anchor.Location()), true
}

func monthNameDate(g []string, anchor time.Time) (time.Time, bool) {
	if g[2] != "" {
		// the number is a clock, a percentage or an amount
		return time.Time{}, false
	}
	day, err := strconv.Atoi(g[1])
	if err != nil {
		return time.Time{}, false
	}

	month := anchor.Month()
	if g[3] != "" {
		m, ok := lookupMonth(g[3])
		if !ok {
			return time.Time{}, false
		}
		month = m
	}

	year := anchor.Year()
	if g[4] != "" {
		if year, err = strconv.Atoi(g[4]); err != nil {
			return time.Time{}, false
		}
	}

	if !validDate(year, month, day) {
		return time.Time{}, false
	}
	return readClock(g[5], g[6], 0).on(year, month, day, anchor.Location()), true
}

func untilWeekday(g []string, anchor time.Time) (time.Time, bool) {
	wd, ok := lookupWeekday(g[1])
	if !ok {
		return time.Time{}, false
	}
	c := readClock("", "", 59)
	if day, err := strconv.Atoi(g[2]); err == nil && validDate(anchor.Year(), anchor.Month(), day) {
		return c.on(anchor.Year(), anchor.Month(), day, anchor.Location()), true
	}
	return c.onDay(nextWeekday(anchor, wd)), true
}

func untilClockOnWeekday(g []string, anchor time.Time) (time.Time, bool) {
	wd, ok := lookupWeekday(g[3])
	if !ok {
		return time.Time{}, false
	}
	c := readClock(g[1], g[2], 0)
	if day, err := strconv.Atoi(g[4]); err == nil && validDate(anchor.Year(), anchor.Month(), day) {
		return c.on(anchor.Year(), anchor.Month(), day, anchor.Location()), true
	}
	return c.onDay(nextWeekday(anchor, wd)), true
}
