package commission

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Source records which resolution step produced a rate.
type Source int

const (
	SourceNone Source = iota
	SourceOverride
	SourceDefault
	SourceKeyword
)

func (s Source) String() string {
	switch s {
	case SourceOverride:
		return "override"
	case SourceDefault:
		return "default"
	case SourceKeyword:
		return "keyword"
	default:
		return "none"
	}
}

// MarshalText renders the source by name in JSON output.
func (s Source) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a source name. Unknown names decode to SourceNone.
func (s *Source) UnmarshalText(text []byte) error {
	switch string(text) {
	case "override":
		*s = SourceOverride
	case "default":
		*s = SourceDefault
	case "keyword":
		*s = SourceKeyword
	default:
		*s = SourceNone
	}
	return nil
}

// Resolution is the outcome of resolving one channel.
type Resolution struct {
	Rate     decimal.Decimal `json:"rate"`
	Source   Source          `json:"source"`
	Fragment string          `json:"fragment,omitempty"` // Matched keyword fragment
	Channel  string          `json:"channel,omitempty"`  // Channel whose rate was used
}

// Resolver maps channel names to commission rates. It holds no mutable state and is
// safe for concurrent use.
type Resolver struct {
	base      Table
	overrides Table
	engine    *keywordEngine
}

// NewResolver layers overrides over base, with keywords as the last resort.
func NewResolver(base, overrides Table, keywords []Keyword) *Resolver {
	return &Resolver{
		base:      base,
		overrides: overrides,
		engine:    newKeywordEngine(keywords),
	}
}

// NewDefaultResolver uses the built-in table and keywords with the given overrides.
func NewDefaultResolver(overrides Table) *Resolver {
	base, keywords := Defaults()
	return NewResolver(base, overrides, keywords)
}

// Resolve returns the commission rate for channel. Unknown channels resolve to 0.
func (r *Resolver) Resolve(channel string) Resolution {
	channel = strings.TrimSpace(channel)

	if rate, ok := r.overrides.Rate(channel); ok {
		return Resolution{Rate: rate, Source: SourceOverride, Channel: channel}
	}
	if rate, ok := r.base.Rate(channel); ok {
		return Resolution{Rate: rate, Source: SourceDefault, Channel: channel}
	}
	if m := r.engine.Match(channel); m != nil {
		if rate, ok := r.lookup(m.Channel); ok {
			return Resolution{Rate: rate, Source: SourceKeyword, Fragment: m.Fragment, Channel: m.Channel}
		}
	}
	return Resolution{Rate: decimal.Zero, Source: SourceNone}
}

// lookup applies override-then-default precedence to a keyword's target channel.
func (r *Resolver) lookup(channel string) (decimal.Decimal, bool) {
	if rate, ok := r.overrides.Rate(channel); ok {
		return rate, true
	}
	return r.base.Rate(channel)
}

// KnownChannels lists every channel with an exact rate, overrides first.
func (r *Resolver) KnownChannels() []string {
	seen := make(map[string]bool)
	var out []string
	for _, t := range []Table{r.overrides, r.base} {
		for _, name := range t.Channels() {
			if !seen[name] {
				seen[name] = true
				out = append(out, name)
			}
		}
	}
	return out
}
