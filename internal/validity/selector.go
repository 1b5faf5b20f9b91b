package validity

import "strings"

// Selector picks the paragraphs most likely to announce when an offer ends.
type Selector struct {
	priority []string
	keywords []string
	fallback int
}

// NewSelector builds a selector; empty vocabulary fields take the defaults.
func NewSelector(vocab Vocabulary) *Selector {
	vocab = vocab.Merge(DefaultVocabulary())
	return &Selector{
		priority: lowerAll(vocab.PriorityPhrases),
		keywords: lowerAll(vocab.Keywords),
		fallback: vocab.FallbackParagraphs,
	}
}

// Select returns priority paragraphs first, then keyword paragraphs, both in
// document order. When neither bucket has entries the leading paragraphs are
// returned instead so the caller always has something to parse.
func (s *Selector) Select(text string) []string {
	paragraphs := splitParagraphs(text)

	var priority, normal []string
	for _, p := range paragraphs {
		low := strings.ToLower(p)
		switch {
		case containsAny(low, s.priority):
			priority = append(priority, p)
		case containsAny(low, s.keywords):
			// "até" next to a keyword lands here as well.
			normal = append(normal, p)
		}
	}

	if len(priority) > 0 || len(normal) > 0 {
		return append(priority, normal...)
	}

	if len(paragraphs) > s.fallback {
		paragraphs = paragraphs[:s.fallback]
	}
	return paragraphs
}

func splitParagraphs(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	parts := strings.Split(text, "\n\n")

	paragraphs := make([]string, 0, len(parts))
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			paragraphs = append(paragraphs, part)
		}
	}
	return paragraphs
}

func containsAny(text string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(text, n) {
			return true
		}
	}
	return false
}
