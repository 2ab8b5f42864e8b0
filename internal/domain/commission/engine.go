package commission

import (
	"bytes"
	"strings"
	"unicode"

	"github.com/cloudflare/ahocorasick"
)

// keywordMatch is one fragment hit with its precedence.
type keywordMatch struct {
	Fragment string
	Channel  string
	Priority int // Higher wins; derived from keyword order
}

// keywordEngine matches all fragments against a channel name in a single pass using
// the Aho-Corasick automaton and returns the highest-priority hit.
type keywordEngine struct {
	matcher  *ahocorasick.Matcher
	patterns [][]byte
	metadata [][]keywordMatch // Several keywords may share a normalized fragment
}

func newKeywordEngine(keywords []Keyword) *keywordEngine {
	e := &keywordEngine{}
	index := make(map[string]int, len(keywords))

	for i, kw := range keywords {
		pattern := normalizeKey(kw.Fragment)
		if pattern == "" {
			continue
		}
		m := keywordMatch{
			Fragment: kw.Fragment,
			Channel:  kw.Channel,
			Priority: len(keywords) - i,
		}
		if idx, ok := index[pattern]; ok {
			e.metadata[idx] = append(e.metadata[idx], m)
			continue
		}
		index[pattern] = len(e.patterns)
		e.patterns = append(e.patterns, []byte(pattern))
		e.metadata = append(e.metadata, []keywordMatch{m})
	}

	if len(e.patterns) > 0 {
		e.matcher = ahocorasick.NewMatcher(e.patterns)
	}
	return e
}

// Match returns the best keyword contained in channel, or nil.
func (e *keywordEngine) Match(channel string) *keywordMatch {
	if e.matcher == nil {
		return nil
	}
	input := []byte(normalizeKey(channel))
	if len(input) == 0 {
		return nil
	}

	var best *keywordMatch
	for _, idx := range e.matcher.MatchThreadSafe(input) {
		if idx < 0 || idx >= len(e.metadata) || !bytes.Contains(input, e.patterns[idx]) {
			continue
		}
		for i := range e.metadata[idx] {
			m := e.metadata[idx][i]
			if best == nil || m.Priority > best.Priority {
				best = &m
			}
		}
	}
	return best
}

// normalizeKey removes all whitespace and upper-cases Latin letters.
func normalizeKey(s string) string {
	return strings.ToUpper(strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s))
}
