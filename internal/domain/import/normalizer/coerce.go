package normalizer

import (
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/shopspring/decimal"

	"github.com/FACorreiaa/channel-profit/internal/domain/import/reader"
)

// CoerceNumber converts a cell to a non-negative decimal. Thousands separators, whitespace,
// the won sign and a trailing 원 are stripped; anything unparseable or negative becomes 0.
func CoerceNumber(c reader.Cell) decimal.Decimal {
	switch c.Kind {
	case reader.CellNumber:
		return nonNegative(c.Number)
	case reader.CellText:
		return nonNegative(parseNumber(c.Text))
	default:
		return decimal.Zero
	}
}

func parseNumber(s string) decimal.Decimal {
	s = strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) || r == ',' || r == '₩' || r == '￦' {
			return -1
		}
		return r
	}, s)
	s = strings.TrimSuffix(s, "원")
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func nonNegative(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

var (
	// 01/19 or 01/19-12, the ECOUNT rendering of a date with a per-day sequence number
	monthDayPattern = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})(?:\s*-\s*\d+)?$`)
	// 2024/01/19, 2024-1-9 or 2024.01.19, optionally followed by a sequence suffix
	yearMonthDayPattern = regexp.MustCompile(`^(\d{4})\s*[./-]\s*(\d{1,2})\s*[./-]\s*(\d{1,2})\.?(?:\s*-\s*\d+)?$`)
)

// dateLayouts are tried after the patterns above.
var dateLayouts = []string{
	"2006-01-02 15:04:05",
	"2006/01/02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02T15:04:05",
	"20060102",
	"2006년 1월 2일",
	"2006년 01월 02일",
	"2006년1월2일",
	"01/02/2006",
	"1/2/2006",
	"06-01-02",
	"06.01.02",
}

// CoerceDate resolves a calendar date from a cell. Month/day text without a year takes
// referenceYear. The result is midnight UTC; ok is false when nothing matches.
func CoerceDate(c reader.Cell, referenceYear int) (time.Time, bool) {
	switch c.Kind {
	case reader.CellDate:
		y, m, d := c.Time.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), true
	case reader.CellNumber:
		if !c.Number.IsInteger() {
			return time.Time{}, false
		}
		return parseDateText(c.Number.String(), referenceYear)
	case reader.CellText:
		return parseDateText(c.Text, referenceYear)
	default:
		return time.Time{}, false
	}
}

func parseDateText(s string, referenceYear int) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}

	if m := monthDayPattern.FindStringSubmatch(s); m != nil {
		if referenceYear <= 0 {
			return time.Time{}, false
		}
		return calendarDate(referenceYear, atoi(m[1]), atoi(m[2]))
	}
	if m := yearMonthDayPattern.FindStringSubmatch(s); m != nil {
		return calendarDate(atoi(m[1]), atoi(m[2]), atoi(m[3]))
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			y, m, d := t.Date()
			return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), true
		}
	}
	return time.Time{}, false
}

// calendarDate rejects dates that time.Date would silently normalize, such as 02/30.
func calendarDate(year, month, day int) (time.Time, bool) {
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, false
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Month() != time.Month(month) || t.Day() != day {
		return time.Time{}, false
	}
	return t, true
}

func atoi(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return -1
	}
	return n
}
