package commission

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/channel-profit/internal/domain/import/reader"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestDefaults(t *testing.T) {
	base, keywords := Defaults()

	rate, ok := base.Rate("쿠팡")
	require.True(t, ok)
	assert.True(t, dec("0.1188").Equal(rate))

	rate, ok = base.Rate("쿠팡 로켓그로스")
	require.True(t, ok)
	assert.True(t, dec("0.108").Equal(rate))

	require.NotEmpty(t, keywords)
	assert.Equal(t, "로켓그로스", keywords[0].Fragment, "the growth program is checked before its marketplace")

	keywords[0].Fragment = "mutated"
	_, again := Defaults()
	assert.Equal(t, "로켓그로스", again[0].Fragment, "callers get a copy")
}

func TestParseDefaultsRejectsDanglingKeyword(t *testing.T) {
	doc := []byte(`
channels:
  - name: A
    rate: "0.1"
keywords:
  - fragment: b
    channel: B
`)
	_, _, err := parseDefaults(doc)
	assert.Error(t, err)
}

func TestNewTableClampsRates(t *testing.T) {
	table := NewTable(map[string]decimal.Decimal{
		" 쿠팡 ": dec("0.2"),
		"neg":  dec("-0.1"),
		"big":  dec("3"),
		"  ":   dec("0.1"),
	})

	assert.Equal(t, 3, table.Len())
	rate, ok := table.Rate("쿠팡")
	require.True(t, ok)
	assert.True(t, dec("0.2").Equal(rate))

	rate, _ = table.Rate("neg")
	assert.True(t, rate.IsZero())
	rate, _ = table.Rate("big")
	assert.True(t, dec("1").Equal(rate))
	assert.Equal(t, []string{"big", "neg", "쿠팡"}, table.Channels())
}

func TestResolver_Resolve(t *testing.T) {
	overrides := NewTable(map[string]decimal.Decimal{"쿠팡": dec("0.1")})
	resolver := NewDefaultResolver(overrides)

	tests := []struct {
		name     string
		channel  string
		rate     string
		source   Source
		fragment string
	}{
		{"override beats default", "쿠팡", "0.1", SourceOverride, ""},
		{"exact default", "11번가", "0.13", SourceDefault, ""},
		{"trimmed before exact lookup", "  스마트스토어 ", "0.0563", SourceDefault, ""},
		{"growth fragment beats parent", "쿠팡 로켓 그로스(B2C)", "0.108", SourceKeyword, "로켓그로스"},
		{"keyword target honours override", "쿠팡(주)", "0.1", SourceKeyword, "쿠팡"},
		{"whitespace insensitive", "네이버 스마트 스토어 본점", "0.0563", SourceKeyword, "스마트스토어"},
		{"latin case folded", "g마켓 글로벌", "0.13", SourceKeyword, "G마켓"},
		{"unknown channel", "오프라인 매장", "0", SourceNone, ""},
		{"blank channel", "", "0", SourceNone, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := resolver.Resolve(tt.channel)
			assert.True(t, dec(tt.rate).Equal(res.Rate), "rate %s", res.Rate)
			assert.Equal(t, tt.source, res.Source)
			assert.Equal(t, tt.fragment, res.Fragment)
		})
	}
}

func TestResolver_KeywordOrderIsPrecedence(t *testing.T) {
	base := NewTable(map[string]decimal.Decimal{"parent": dec("0.2"), "child": dec("0.05")})

	specificFirst := NewResolver(base, Table{}, []Keyword{
		{Fragment: "growth", Channel: "child"},
		{Fragment: "market", Channel: "parent"},
	})
	res := specificFirst.Resolve("market growth")
	assert.True(t, dec("0.05").Equal(res.Rate))

	parentFirst := NewResolver(base, Table{}, []Keyword{
		{Fragment: "market", Channel: "parent"},
		{Fragment: "growth", Channel: "child"},
	})
	res = parentFirst.Resolve("market growth")
	assert.True(t, dec("0.2").Equal(res.Rate))
}

func TestResolver_NoKeywords(t *testing.T) {
	r := NewResolver(Table{}, Table{}, nil)
	res := r.Resolve("쿠팡")
	assert.Equal(t, SourceNone, res.Source)
	assert.True(t, res.Rate.IsZero())
}

func TestLoadOverrides(t *testing.T) {
	raw := reader.RawTable{Source: "rates.csv", Rows: [][]reader.Cell{
		{reader.TextCell("채널"), reader.TextCell("수수료율")},
		{reader.TextCell("쿠팡"), reader.TextCell("0.1")},
		{reader.TextCell("11번가"), reader.TextCell("12%")},
		{reader.TextCell("G마켓"), reader.NumberCell(dec("13"))},
		{reader.TextCell(""), reader.TextCell("")},
		{reader.TextCell("bad"), reader.TextCell("abc")},
		{reader.TextCell("쿠팡"), reader.TextCell("0.09")},
	}}

	table, stats, err := LoadOverrides(raw)
	require.NoError(t, err)
	assert.Equal(t, OverrideStats{Loaded: 4, Skipped: 1}, stats)
	assert.Equal(t, 3, table.Len())

	rate, _ := table.Rate("쿠팡")
	assert.True(t, dec("0.09").Equal(rate), "later rows win")
	rate, _ = table.Rate("11번가")
	assert.True(t, dec("0.12").Equal(rate))
	rate, _ = table.Rate("G마켓")
	assert.True(t, dec("0.13").Equal(rate))

	_, _, err = LoadOverrides(reader.RawTable{Rows: [][]reader.Cell{{reader.TextCell("채널"), reader.TextCell("율")}}})
	assert.ErrorIs(t, err, ErrNoOverrides)
}

func TestReconcile(t *testing.T) {
	resolver := NewDefaultResolver(Table{})

	rows := resolver.Reconcile(map[string]decimal.Decimal{
		"쿠팡":     dec("100000"),
		"쿠펑":     dec("5000"),
		"Amazon": dec("5000"),
		"쿠팡 그로스": dec("20000"),
	})
	require.Len(t, rows, 4)

	assert.Equal(t, "쿠팡", rows[0].Channel)
	assert.Equal(t, SourceDefault, rows[0].Source)
	assert.True(t, dec("11880").Equal(rows[0].Commission))

	assert.Equal(t, "쿠팡 그로스", rows[1].Channel)
	assert.Equal(t, SourceKeyword, rows[1].Source)
	assert.Equal(t, "쿠팡 로켓그로스", rows[1].MatchedTo)

	assert.Equal(t, "Amazon", rows[2].Channel, "equal revenue sorts by name")
	assert.Equal(t, SourceNone, rows[2].Source)
	assert.Empty(t, rows[2].Suggestion)

	assert.Equal(t, "쿠펑", rows[3].Channel)
	assert.Equal(t, SourceNone, rows[3].Source)
	assert.Equal(t, "쿠팡", rows[3].Suggestion)
	assert.True(t, rows[3].Commission.IsZero())
}

func TestSimilarity(t *testing.T) {
	assert.Equal(t, 100, similarity("쿠팡", "쿠팡"))
	assert.Greater(t, similarity("쿠팡로켓그로스", "로켓그로스"), 75)
	assert.Equal(t, 0, similarity("", "쿠팡"))
	assert.Less(t, similarity("AMAZON", "G마켓"), suggestionThreshold)
}

func TestSourceString(t *testing.T) {
	text, err := SourceKeyword.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "keyword", string(text))
	assert.Equal(t, "none", SourceNone.String())
}

func TestSourceTextRoundTrip(t *testing.T) {
	for _, s := range []Source{SourceNone, SourceOverride, SourceDefault, SourceKeyword} {
		text, err := s.MarshalText()
		require.NoError(t, err)
		var got Source
		require.NoError(t, got.UnmarshalText(text))
		assert.Equal(t, s, got)
	}
}
