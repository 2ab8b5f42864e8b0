package commission

import (
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/shopspring/decimal"
)

// suggestionThreshold is the minimum similarity score (0-100) for a suggestion.
const suggestionThreshold = 50

// ChannelReconciliation shows how one observed channel was priced.
type ChannelReconciliation struct {
	Channel    string          `json:"channel"`
	Rate       decimal.Decimal `json:"rate"`
	Source     Source          `json:"source"`
	Fragment   string          `json:"fragment,omitempty"`
	MatchedTo  string          `json:"matched_to,omitempty"`
	Revenue    decimal.Decimal `json:"revenue"`
	Commission decimal.Decimal `json:"commission"`
	Suggestion string          `json:"suggestion,omitempty"` // Closest known channel for unpriced rows
	Score      int             `json:"score,omitempty"`
}

// Reconcile resolves every observed channel and, for channels that fell through to a zero
// rate, suggests the closest known channel. Rows are sorted by revenue, then name.
func (r *Resolver) Reconcile(revenue map[string]decimal.Decimal) []ChannelReconciliation {
	known := r.KnownChannels()
	out := make([]ChannelReconciliation, 0, len(revenue))

	for channel, rev := range revenue {
		res := r.Resolve(channel)
		row := ChannelReconciliation{
			Channel:    channel,
			Rate:       res.Rate,
			Source:     res.Source,
			Fragment:   res.Fragment,
			MatchedTo:  res.Channel,
			Revenue:    rev,
			Commission: rev.Mul(res.Rate),
		}
		if res.Source == SourceNone {
			row.Suggestion, row.Score = suggest(channel, known)
		}
		out = append(out, row)
	}

	sort.Slice(out, func(i, j int) bool {
		if c := out[i].Revenue.Cmp(out[j].Revenue); c != 0 {
			return c > 0
		}
		return out[i].Channel < out[j].Channel
	})
	return out
}

// suggest returns the most similar known channel above the threshold. Ties keep the
// earlier candidate.
func suggest(channel string, known []string) (string, int) {
	needle := normalizeKey(channel)
	if needle == "" {
		return "", 0
	}

	best, bestScore := "", suggestionThreshold-1
	for _, candidate := range known {
		score := similarity(needle, normalizeKey(candidate))
		if score > bestScore {
			best, bestScore = candidate, score
		}
	}
	if best == "" {
		return "", 0
	}
	return best, bestScore
}

// similarity scores two normalized names from 0 to 100 using containment, edit distance
// and subsequence rank, keeping the best of the three.
func similarity(s1, s2 string) int {
	if s1 == s2 {
		return 100
	}
	l1, l2 := utf8.RuneCountInString(s1), utf8.RuneCountInString(s2)
	if l1 == 0 || l2 == 0 {
		return 0
	}

	if strings.Contains(s1, s2) {
		return 75 + 25*l2/l1
	}
	if strings.Contains(s2, s1) {
		return 75 + 25*l1/l2
	}

	maxLen := max(l1, l2)
	distance := fuzzy.LevenshteinDistance(s1, s2)
	levenshteinScore := 100 * (maxLen - distance) / maxLen

	rankScore := 0
	if rank := fuzzy.RankMatch(s2, s1); rank >= 0 && rank < l1 {
		rankScore = 60 - rank*40/l1
	}

	if levenshteinScore > rankScore {
		return levenshteinScore
	}
	return rankScore
}
