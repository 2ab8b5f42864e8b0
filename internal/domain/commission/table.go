// Package commission resolves sales channels to marketplace commission rates.
//
// Resolution is layered: an exact match in the user override table, then in the built-in
// default table, then a whitespace-insensitive keyword fallback, and otherwise a zero rate.
// Unknown channels are not errors; they surface through Reconcile.
package commission

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v2"
)

// Table is an immutable exact channel-name to rate mapping. Rates are clamped to [0, 1].
type Table struct {
	rates map[string]decimal.Decimal
}

// NewTable copies rates into a new Table. Keys are whitespace-trimmed.
func NewTable(rates map[string]decimal.Decimal) Table {
	t := Table{rates: make(map[string]decimal.Decimal, len(rates))}
	for name, rate := range rates {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		t.rates[name] = clampRate(rate)
	}
	return t
}

// Rate looks up an exact channel name.
func (t Table) Rate(channel string) (decimal.Decimal, bool) {
	rate, ok := t.rates[channel]
	return rate, ok
}

// Len returns the number of channels.
func (t Table) Len() int {
	return len(t.rates)
}

// Channels returns the channel names in sorted order.
func (t Table) Channels() []string {
	names := make([]string, 0, len(t.rates))
	for name := range t.rates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Map returns a copy of the rates.
func (t Table) Map() map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(t.rates))
	for k, v := range t.rates {
		out[k] = v
	}
	return out
}

var one = decimal.NewFromInt(1)

func clampRate(rate decimal.Decimal) decimal.Decimal {
	switch {
	case rate.IsNegative():
		return decimal.Zero
	case rate.GreaterThan(one):
		return one
	default:
		return rate
	}
}

// Keyword maps a channel-name fragment to the channel whose rate it implies.
// Earlier keywords take precedence over later ones.
type Keyword struct {
	Fragment string `yaml:"fragment"`
	Channel  string `yaml:"channel"`
}

//go:embed defaults.yaml
var defaultsYAML []byte

type defaultsFile struct {
	Channels []struct {
		Name string `yaml:"name"`
		Rate string `yaml:"rate"`
	} `yaml:"channels"`
	Keywords []Keyword `yaml:"keywords"`
}

var (
	defaultsOnce     sync.Once
	defaultTable     Table
	defaultKeywords  []Keyword
	defaultsParseErr error
)

// Defaults returns the built-in rate table and keyword fragments. The embedded document
// is parsed once; callers receive copies of the keyword slice.
func Defaults() (Table, []Keyword) {
	defaultsOnce.Do(func() {
		defaultTable, defaultKeywords, defaultsParseErr = parseDefaults(defaultsYAML)
	})
	if defaultsParseErr != nil {
		panic(fmt.Sprintf("commission: embedded defaults: %v", defaultsParseErr))
	}
	return defaultTable, append([]Keyword(nil), defaultKeywords...)
}

func parseDefaults(data []byte) (Table, []Keyword, error) {
	var doc defaultsFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return Table{}, nil, fmt.Errorf("parse defaults: %w", err)
	}

	rates := make(map[string]decimal.Decimal, len(doc.Channels))
	for _, ch := range doc.Channels {
		rate, err := decimal.NewFromString(ch.Rate)
		if err != nil {
			return Table{}, nil, fmt.Errorf("channel %q: invalid rate %q: %w", ch.Name, ch.Rate, err)
		}
		rates[ch.Name] = rate
	}
	table := NewTable(rates)

	for _, kw := range doc.Keywords {
		if _, ok := table.Rate(kw.Channel); !ok {
			return Table{}, nil, fmt.Errorf("keyword %q points to unknown channel %q", kw.Fragment, kw.Channel)
		}
	}
	return table, doc.Keywords, nil
}
