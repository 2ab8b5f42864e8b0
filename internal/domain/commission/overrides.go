package commission

import (
	"errors"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"

	"github.com/FACorreiaa/channel-profit/internal/domain/import/reader"
)

var ErrNoOverrides = errors.New("commission file has no channel/rate rows")

// OverrideStats counts the rows of a commission-rate file.
type OverrideStats struct {
	Loaded  int `json:"loaded"`
	Skipped int `json:"skipped"`
}

var hundred = decimal.NewFromInt(100)

// LoadOverrides reads a two-column commission file: channel name, then rate. Rates are
// fractions; values above 1 or suffixed with % are read as percentages. A leading row
// with a non-numeric rate is taken as the header; later such rows are skipped. Later rows
// win on duplicates.
func LoadOverrides(raw reader.RawTable) (Table, OverrideStats, error) {
	var stats OverrideStats
	rates := make(map[string]decimal.Decimal)

	seenRow := false
	for i := range raw.Rows {
		channel := raw.Cell(i, 0).String()
		if channel == "" && raw.Cell(i, 1).IsEmpty() {
			continue
		}
		first := !seenRow
		seenRow = true

		rate, ok := parseRate(raw.Cell(i, 1))
		if first && !ok {
			continue
		}
		if channel == "" || !ok {
			stats.Skipped++
			continue
		}
		rates[channel] = rate
		stats.Loaded++
	}

	if len(rates) == 0 {
		return Table{}, stats, ErrNoOverrides
	}
	return NewTable(rates), stats, nil
}

func parseRate(c reader.Cell) (decimal.Decimal, bool) {
	var (
		rate    decimal.Decimal
		percent bool
	)
	switch c.Kind {
	case reader.CellNumber:
		rate = c.Number
	case reader.CellText:
		s := strings.Map(func(r rune) rune {
			if unicode.IsSpace(r) || r == ',' {
				return -1
			}
			return r
		}, c.Text)
		if strings.HasSuffix(s, "%") {
			percent = true
			s = strings.TrimSuffix(s, "%")
		}
		d, err := decimal.NewFromString(s)
		if err != nil {
			return decimal.Zero, false
		}
		rate = d
	default:
		return decimal.Zero, false
	}

	if rate.IsNegative() {
		return decimal.Zero, false
	}
	if percent || rate.GreaterThan(one) {
		rate = rate.Div(hundred)
	}
	if rate.GreaterThan(one) {
		return decimal.Zero, false
	}
	return rate, true
}
