package types

import "strings"

// PassageOrigin marks where a passage was produced.
type PassageOrigin string

const (
	OriginLocal    PassageOrigin = "local"
	OriginExternal PassageOrigin = "external"
)

// Passage is a unit of retrieved or fetched text with provenance and a
// relevance score in [0,1]. Never mutated after creation.
type Passage struct {
	Text     string        `json:"text"`
	Origin   PassageOrigin `json:"origin"`
	Provider string        `json:"provider"`
	Score    float64       `json:"score"`
	Title    string        `json:"title"`
	URL      string        `json:"url,omitempty"`
}

// IdentityKey returns the stable deduplication key of the passage's source:
// the normalized URL when present, otherwise the normalized title. Two
// passages wording the same underlying document differently share a key.
func (p Passage) IdentityKey() string {
	if k := normalizeKey(p.URL); k != "" {
		return k
	}
	return normalizeKey(p.Title)
}

func normalizeKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Source is the user-facing attribution derived from a passage.
type Source struct {
	Title       string `json:"title"`
	IdentityKey string `json:"-"`
	URL         string `json:"url,omitempty"`
}

// SourceFromPassage derives the attribution entry for a surviving passage.
func SourceFromPassage(p Passage) Source {
	title := strings.TrimSpace(p.Title)
	if title == "" {
		title = p.Provider
	}
	return Source{
		Title:       title,
		IdentityKey: p.IdentityKey(),
		URL:         strings.TrimSpace(p.URL),
	}
}

// SourcesFromPassages maps passages to their attribution entries, order preserved.
func SourcesFromPassages(passages []Passage) []Source {
	sources := make([]Source, len(passages))
	for i, p := range passages {
		sources[i] = SourceFromPassage(p)
	}
	return sources
}

// AnswerResult is the final outcome of one question-answer exchange.
// Degraded=true means the answer came from the template fallback, never
// from a successful model invocation.
type AnswerResult struct {
	Answer     string   `json:"answer"`
	Sources    []Source `json:"sources"`
	IsRealTime bool     `json:"is_real_time"`
	Degraded   bool     `json:"degraded"`
}
