package moderation

import (
	"contact-relay/errors"
	"log/slog"
	"strings"
	"unicode"

	goahocorasick "github.com/anknown/ahocorasick"
	"github.com/samber/lo"
)

// Moderator masks forbidden words in relayed message text.
// Matching ignores case, punctuation, spacing and common leet substitutions,
// while the masked output keeps the original layout of the message.
type Moderator struct {
	log          *slog.Logger
	matcher      *goahocorasick.Machine
	censoredChar rune
}

// runeIndex maps the normalized text back to rune positions of the original.
type runeIndex struct {
	normalized []rune
	original   []int
}

// ParseWords splits a comma separated word list, dropping blanks and duplicates.
func ParseWords(raw string) []string {
	words := lo.Map(strings.Split(raw, ","), func(w string, _ int) string {
		return strings.TrimSpace(w)
	})
	return lo.Uniq(lo.Compact(words))
}

// NewModerator builds the Aho-Corasick automaton over the normalized words.
// Words made only of noise are ignored.
func NewModerator(words []string, censoredChar rune, log *slog.Logger) (*Moderator, error) {
	patterns := lo.FilterMap(words, func(word string, _ int) ([]rune, bool) {
		pattern := normalizeRunes([]rune(word))
		return pattern, len(pattern) > 0
	})
	if len(patterns) == 0 {
		return nil, errors.ErrEmptyWords
	}

	m := new(goahocorasick.Machine)
	if err := m.Build(patterns); err != nil {
		return nil, err
	}
	log.Info("Moderation dictionary loaded", "words", len(patterns))
	return &Moderator{log: log, matcher: m, censoredChar: censoredChar}, nil
}

// Censor returns text with every forbidden word masked.
func (m *Moderator) Censor(text string) string {
	censored, _ := m.Inspect(text)
	return censored
}

// Inspect masks forbidden words and reports which ones were found.
func (m *Moderator) Inspect(text string) (string, []string) {
	index := buildIndex(text)
	if len(index.normalized) == 0 {
		return text, nil
	}

	terms := m.matcher.MultiPatternSearch(index.normalized, false)
	if len(terms) == 0 {
		return text, nil
	}

	runes := []rune(text)
	var found []string
	for _, term := range terms {
		start := term.Pos
		end := start + len(term.Word)
		if start < 0 || end > len(index.original) {
			continue
		}
		for i := index.original[start]; i <= index.original[end-1]; i++ {
			runes[i] = m.censoredChar
		}
		found = append(found, string(term.Word))
	}

	m.log.Debug("Message censored", "words", len(found))
	return string(runes), found
}

func buildIndex(text string) runeIndex {
	runes := []rune(text)
	index := runeIndex{
		normalized: make([]rune, 0, len(runes)),
		original:   make([]int, 0, len(runes)),
	}
	for i, r := range runes {
		clean := simplifyRune(r)
		if isNoise(clean) {
			continue
		}
		index.normalized = append(index.normalized, unicode.ToLower(clean))
		index.original = append(index.original, i)
	}
	return index
}

func normalizeRunes(input []rune) []rune {
	out := make([]rune, 0, len(input))
	for _, r := range input {
		clean := simplifyRune(r)
		if isNoise(clean) {
			continue
		}
		out = append(out, unicode.ToLower(clean))
	}
	return out
}

// simplifyRune undoes common leet substitutions.
func simplifyRune(r rune) rune {
	switch r {
	case '4', '@':
		return 'a'
	case '3', '€':
		return 'e'
	case '1', '!', '|':
		return 'i'
	case '0':
		return 'o'
	case '5', '$':
		return 's'
	default:
		return r
	}
}

func isNoise(r rune) bool {
	return unicode.IsPunct(r) || unicode.IsSpace(r) || unicode.IsSymbol(r)
}
