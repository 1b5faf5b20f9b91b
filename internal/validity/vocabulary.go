package validity

import (
	"strings"
	"time"
)

const defaultFallbackParagraphs = 8

// Vocabulary holds the phrase lists used to rank article paragraphs.
type Vocabulary struct {
	// PriorityPhrases mark paragraphs that announce the offer period itself.
	PriorityPhrases []string `yaml:"priorityPhrases"`
	// Keywords mark paragraphs that talk about the promotion in general.
	Keywords []string `yaml:"keywords"`
	// FallbackParagraphs is how many leading paragraphs are used when nothing matches.
	FallbackParagraphs int `yaml:"fallbackParagraphs"`
}

// DefaultVocabulary returns the Portuguese phrase lists used for travel promotions.
func DefaultVocabulary() Vocabulary {
	return Vocabulary{
		PriorityPhrases: []string{
			"oferta válida",
			"promoção válida",
			"período de compra",
			"período de emissão",
			"reserva",
			"reservas",
			"oferta válida até",
		},
		Keywords: []string{
			"promo",
			"promoção",
			"promoções",
			"válida",
			"válido",
			"válidos",
			"mecânica",
			"oferta",
			"campanha",
			"últimas horas",
			"últimas",
			"só até",
			"até amanhã",
			"até hoje",
			"somente até",
			"período de compra",
			"período de emissão",
			"oferta válida",
			"reservas",
		},
		FallbackParagraphs: defaultFallbackParagraphs,
	}
}

// Merge fills empty fields of v from base.
func (v Vocabulary) Merge(base Vocabulary) Vocabulary {
	if len(v.PriorityPhrases) == 0 {
		v.PriorityPhrases = base.PriorityPhrases
	}
	if len(v.Keywords) == 0 {
		v.Keywords = base.Keywords
	}
	if v.FallbackParagraphs <= 0 {
		v.FallbackParagraphs = base.FallbackParagraphs
	}
	return v
}

var monthNames = map[string]time.Month{
	"janeiro":   time.January,
	"fevereiro": time.February,
	"março":     time.March,
	"marco":     time.March,
	"abril":     time.April,
	"maio":      time.May,
	"junho":     time.June,
	"julho":     time.July,
	"agosto":    time.August,
	"setembro":  time.September,
	"outubro":   time.October,
	"novembro":  time.November,
	"dezembro":  time.December,
}

var weekdayNames = map[string]time.Weekday{
	"segunda":       time.Monday,
	"segunda-feira": time.Monday,
	"terça":         time.Tuesday,
	"terca":         time.Tuesday,
	"terça-feira":   time.Tuesday,
	"terca-feira":   time.Tuesday,
	"quarta":        time.Wednesday,
	"quarta-feira":  time.Wednesday,
	"quinta":        time.Thursday,
	"quinta-feira":  time.Thursday,
	"sexta":         time.Friday,
	"sexta-feira":   time.Friday,
	"sábado":        time.Saturday,
	"sabado":        time.Saturday,
	"domingo":       time.Sunday,
}

func lookupMonth(name string) (time.Month, bool) {
	m, ok := monthNames[strings.ToLower(name)]
	return m, ok
}

func lookupWeekday(name string) (time.Weekday, bool) {
	wd, ok := weekdayNames[strings.ToLower(name)]
	return wd, ok
}

func lowerAll(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.ToLower(strings.TrimSpace(item))
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}
