// Package fixedcost loads period operating expenses (advertising, logistics, overhead)
// that are subtracted once at the aggregate level, never joined to individual sales.
package fixedcost

import (
	"errors"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/gocarina/gocsv"
	"github.com/shopspring/decimal"

	"github.com/FACorreiaa/channel-profit/internal/domain/import/reader"
)

var ErrNoCostColumns = errors.New("fixed cost file has no amount column")

// Row is one fixed-cost line after header canonicalization.
type Row struct {
	Month       string `csv:"month"`
	Item        string `csv:"item"`
	Amount      string `csv:"amount"`
	Advertising string `csv:"advertising"`
	Shipping    string `csv:"shipping"`
	Other       string `csv:"other"`
}

// Category names an expense column.
type Category string

const (
	CategoryAmount      Category = "금액"
	CategoryAdvertising Category = "광고비"
	CategoryShipping    Category = "물류비"
	CategoryOther       Category = "기타운영비"
)

// Entry is one signed expense. Compensation lines carry a negative amount.
type Entry struct {
	Month        string          `json:"month,omitempty"` // YYYY-MM, empty when the file has no month column
	Item         string          `json:"item,omitempty"`
	Category     Category        `json:"category"`
	Amount       decimal.Decimal `json:"amount"`
	Compensation bool            `json:"compensation,omitempty"`
	SourceRow    int             `json:"source_row"`
}

// Manual holds fixed costs typed in alongside (or instead of) a file.
type Manual struct {
	Advertising decimal.Decimal `json:"advertising"`
	Shipping    decimal.Decimal `json:"shipping"`
	Other       decimal.Decimal `json:"other"`
}

// Total sums the manual inputs.
func (m Manual) Total() decimal.Decimal {
	return m.Advertising.Add(m.Shipping).Add(m.Other)
}

// Summary is the fixed cost applied to a report.
type Summary struct {
	Total   decimal.Decimal            `json:"total"`
	File    decimal.Decimal            `json:"file"`
	Manual  decimal.Decimal            `json:"manual"`
	ByMonth map[string]decimal.Decimal `json:"by_month"`
	Entries []Entry                    `json:"entries,omitempty"`
}

// Empty returns the zero summary used when no fixed cost is supplied.
func Empty() Summary {
	return Summary{ByMonth: map[string]decimal.Decimal{}}
}

// WithManual adds manual inputs to the total. Manual amounts carry no month.
func (s Summary) WithManual(m Manual) Summary {
	if s.ByMonth == nil {
		s.ByMonth = map[string]decimal.Decimal{}
	}
	s.Manual = s.Manual.Add(m.Total())
	s.Total = s.File.Add(s.Manual)
	return s
}

// Months returns the month keys in ascending order.
func (s Summary) Months() []string {
	months := make([]string, 0, len(s.ByMonth))
	for m := range s.ByMonth {
		months = append(months, m)
	}
	sort.Strings(months)
	return months
}

// ForMonth returns the fixed cost booked to a YYYY-MM key.
func (s Summary) ForMonth(month string) decimal.Decimal {
	return s.ByMonth[month]
}

// columnRules canonicalize header text to Row tags. A header equal to a token claims its
// key before any header that merely contains one; otherwise the first matching rule wins.
var columnRules = []struct {
	key    string
	tokens []string
}{
	{"advertising", []string{"광고"}},
	{"shipping", []string{"물류", "배송", "택배"}},
	{"other", []string{"기타"}},
	{"item", []string{"항목", "구분", "내역", "계정"}},
	{"amount", []string{"금액", "비용", "고정비"}},
	{"month", []string{"년월", "월", "기간", "일자"}},
}

var amountKeys = map[string]bool{"amount": true, "advertising": true, "shipping": true, "other": true}

const headerScanRows = 10

// Load reads a fixed-cost table. The header row is the first of the leading rows with an
// expense column. referenceYear completes month cells such as "3월".
func Load(raw reader.RawTable, referenceYear int) (Summary, error) {
	headerRow, keys := findHeader(raw)
	if headerRow < 0 {
		return Empty(), ErrNoCostColumns
	}

	width := len(keys)
	records := make([][]string, 0, len(raw.Rows)-headerRow)
	records = append(records, keys)
	for i := headerRow + 1; i < len(raw.Rows); i++ {
		rec := make([]string, width)
		for j := 0; j < width; j++ {
			rec[j] = cellText(raw.Cell(i, j))
		}
		records = append(records, rec)
	}

	var rows []Row
	if err := gocsv.UnmarshalCSV(&tableCSVReader{rows: records}, &rows); err != nil {
		return Empty(), fmt.Errorf("decode fixed cost rows: %w", err)
	}

	summary := Empty()
	for i, row := range rows {
		sourceRow := headerRow + i + 2
		month := parseMonth(row.Month, referenceYear)
		item := strings.TrimSpace(row.Item)
		compensation := strings.Contains(item, "보상")

		for _, col := range []struct {
			category Category
			value    string
		}{
			{CategoryAmount, row.Amount},
			{CategoryAdvertising, row.Advertising},
			{CategoryShipping, row.Shipping},
			{CategoryOther, row.Other},
		} {
			amount := parseAmount(col.value)
			if amount.IsZero() {
				continue
			}
			if compensation {
				amount = amount.Abs().Neg()
			}
			summary.Entries = append(summary.Entries, Entry{
				Month:        month,
				Item:         item,
				Category:     col.category,
				Amount:       amount,
				Compensation: compensation,
				SourceRow:    sourceRow,
			})
			summary.File = summary.File.Add(amount)
			if month != "" {
				summary.ByMonth[month] = summary.ByMonth[month].Add(amount)
			}
		}
	}
	summary.Total = summary.File
	return summary, nil
}

func findHeader(raw reader.RawTable) (int, []string) {
	limit := min(headerScanRows, len(raw.Rows))
	for i := 0; i < limit; i++ {
		keys := make([]string, raw.Width())
		seen := make(map[string]bool)
		hasAmount := false
		for _, exact := range []bool{true, false} {
			for j := range keys {
				if keys[j] != "" {
					continue
				}
				key := canonicalKey(raw.Cell(i, j), exact)
				if key == "" || seen[key] {
					continue
				}
				seen[key] = true
				keys[j] = key
				hasAmount = hasAmount || amountKeys[key]
			}
		}
		if hasAmount {
			return i, keys
		}
	}
	return -1, nil
}

func canonicalKey(c reader.Cell, exact bool) string {
	if c.Kind != reader.CellText {
		return ""
	}
	name := strings.Join(strings.Fields(c.Text), "")
	for _, rule := range columnRules {
		for _, tok := range rule.tokens {
			if name == tok || (!exact && strings.Contains(name, tok)) {
				return rule.key
			}
		}
	}
	return ""
}

func cellText(c reader.Cell) string {
	switch c.Kind {
	case reader.CellDate:
		return c.Time.Format("2006-01")
	case reader.CellNumber:
		return c.Number.String()
	default:
		return strings.TrimSpace(c.Text)
	}
}

// parseAmount keeps the sign; unparseable text is 0.
func parseAmount(s string) decimal.Decimal {
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

var (
	yearMonthPattern = regexp.MustCompile(`^(\d{4})\s*(?:[-./]|년)\s*(\d{1,2})`)
	compactPattern   = regexp.MustCompile(`^(\d{4})(\d{2})$`)
	monthOnlyPattern = regexp.MustCompile(`^(\d{1,2})\s*월`)
)

// parseMonth normalizes a month cell to YYYY-MM, or "" when it carries no month.
func parseMonth(s string, referenceYear int) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	var year, month int
	if m := yearMonthPattern.FindStringSubmatch(s); m != nil {
		year, month = atoi(m[1]), atoi(m[2])
	} else if m := compactPattern.FindStringSubmatch(s); m != nil {
		year, month = atoi(m[1]), atoi(m[2])
	} else if m := monthOnlyPattern.FindStringSubmatch(s); m != nil && referenceYear > 0 {
		year, month = referenceYear, atoi(m[1])
	}
	if year <= 0 || month < 1 || month > 12 {
		return ""
	}
	return fmt.Sprintf("%04d-%02d", year, month)
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

// tableCSVReader feeds already-decoded rows to gocsv.
type tableCSVReader struct {
	rows [][]string
	pos  int
}

func (r *tableCSVReader) Read() ([]string, error) {
	if r.pos >= len(r.rows) {
		return nil, io.EOF
	}
	row := r.rows[r.pos]
	r.pos++
	return row, nil
}

func (r *tableCSVReader) ReadAll() ([][]string, error) {
	rest := r.rows[r.pos:]
	r.pos = len(r.rows)
	return rest, nil
}
