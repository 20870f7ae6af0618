package keyword

import (
	"strings"
	"unicode"
)

// Matcher does case-insensitive substring matching of fixed phrases
// against transcribed text.
type Matcher struct {
	phrases []string
}

func New(phrases ...string) Matcher {
	m := Matcher{}
	for _, p := range phrases {
		p = Normalize(p)
		if p == "" {
			continue
		}
		m.phrases = append(m.phrases, p)
	}
	return m
}

// Match returns the first phrase found in text.
func (m Matcher) Match(text string) (string, bool) {
	if len(m.phrases) == 0 {
		return "", false
	}
	t := strings.ToLower(text)
	for _, p := range m.phrases {
		if strings.Contains(t, p) {
			return p, true
		}
	}
	return "", false
}

func (m Matcher) Contains(text string) bool {
	_, ok := m.Match(text)
	return ok
}

func (m Matcher) Phrases() []string {
	return append([]string(nil), m.phrases...)
}

// Normalize lowercases text and trims whitespace and edge punctuation,
// e.g. " Hello! " -> "hello".
func Normalize(text string) string {
	return strings.TrimFunc(strings.ToLower(text), func(r rune) bool {
		return unicode.IsSpace(r) || unicode.IsPunct(r)
	})
}
