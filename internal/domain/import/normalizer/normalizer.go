// Package normalizer maps resolved header tables to canonical sales records.
package normalizer

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/FACorreiaa/channel-profit/internal/domain/import/header"
	"github.com/FACorreiaa/channel-profit/internal/domain/import/reader"
)

const (
	UnknownChannel = "미지정"
	UnnamedProduct = "상품명없음"
)

var ErrReferenceYearRequired = errors.New("reference year is required")

// SalesRecord is one normalized row of commercial activity. Quantity, UnitPrice and
// UnitCost are always finite and non-negative.
type SalesRecord struct {
	Date        time.Time       `json:"date"`
	Channel     string          `json:"channel"`
	ProductName string          `json:"product_name"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	UnitCost    decimal.Decimal `json:"unit_cost"`
	// SalesAmount is set when the sheet has no unit price and revenue comes from a sales
	// amount column. UnitPrice is then a rounded quotient for display only.
	SalesAmount  *decimal.Decimal `json:"sales_amount,omitempty"`
	SourceOrigin string           `json:"source_origin"`
	SourceRow    int              `json:"source_row"`
}

// Revenue is the sheet's sales amount when present, else quantity times unit price.
func (r SalesRecord) Revenue() decimal.Decimal {
	if r.SalesAmount != nil {
		return *r.SalesAmount
	}
	return r.Quantity.Mul(r.UnitPrice)
}

// Options configures normalization.
type Options struct {
	// ReferenceYear completes month/day dates that carry no year.
	ReferenceYear int
	// TotalMarkers drop rows whose first or second cell contains one of them.
	TotalMarkers []string
	// ProgramToken in a sheet or file name relabels every row to ProgramChannel.
	ProgramToken   string
	ProgramChannel string
}

// DefaultOptions returns the Korean marker set for the given reference year.
func DefaultOptions(referenceYear int) Options {
	return Options{
		ReferenceYear:  referenceYear,
		TotalMarkers:   []string{"합계", "소계", "총계"},
		ProgramToken:   "그로스",
		ProgramChannel: "쿠팡 로켓그로스",
	}
}

// Stats counts what happened to every data row of a table.
type Stats struct {
	Total        int `json:"total"`
	Kept         int `json:"kept"`
	DroppedBlank int `json:"dropped_blank"`
	DroppedTotal int `json:"dropped_total"`
	DroppedDate  int `json:"dropped_date"`
}

// Add accumulates other into s.
func (s *Stats) Add(other Stats) {
	s.Total += other.Total
	s.Kept += other.Kept
	s.DroppedBlank += other.DroppedBlank
	s.DroppedTotal += other.DroppedTotal
	s.DroppedDate += other.DroppedDate
}

// Result holds the records of one table and its row accounting.
type Result struct {
	Records []SalesRecord
	Stats   Stats
}

// Normalizer converts resolved tables into SalesRecords.
type Normalizer struct {
	opts Options
}

// New validates opts and returns a Normalizer.
func New(opts Options) (*Normalizer, error) {
	if opts.ReferenceYear <= 0 {
		return nil, ErrReferenceYearRequired
	}
	return &Normalizer{opts: opts}, nil
}

// Normalize maps every data row of t. Rows never fail: bad numbers become 0 and rows
// without a resolvable date are dropped and counted.
func (n *Normalizer) Normalize(t header.Table) Result {
	res := Result{Records: make([]SalesRecord, 0, len(t.Rows))}
	relabel := n.isProgramSheet(t)
	origin := t.Origin()

	for _, row := range t.Rows {
		res.Stats.Total++

		if isBlank(row.Cells) {
			res.Stats.DroppedBlank++
			continue
		}
		if n.isTotalRow(row) {
			res.Stats.DroppedTotal++
			continue
		}

		date, ok := n.date(t.Mapping, row)
		if !ok {
			res.Stats.DroppedDate++
			continue
		}

		rec := SalesRecord{
			Date:         date,
			Channel:      text(t.Mapping, row, header.FieldChannel),
			ProductName:  cleanName(text(t.Mapping, row, header.FieldProduct)),
			UnitCost:     number(t.Mapping, row, header.FieldUnitCost),
			SourceOrigin: origin,
			SourceRow:    row.Index + 1,
		}
		if rec.Channel == "" {
			rec.Channel = UnknownChannel
		}
		if relabel {
			rec.Channel = n.opts.ProgramChannel
		}
		if rec.ProductName == "" {
			rec.ProductName = UnnamedProduct
		}
		rec.Quantity, rec.UnitPrice, rec.SalesAmount = quantityAndPrice(t.Mapping, row)

		res.Records = append(res.Records, rec)
		res.Stats.Kept++
	}
	return res
}

func (n *Normalizer) isProgramSheet(t header.Table) bool {
	token := n.opts.ProgramToken
	if token == "" || n.opts.ProgramChannel == "" {
		return false
	}
	return strings.Contains(t.Sheet, token) || strings.Contains(t.Source, token)
}

func (n *Normalizer) isTotalRow(row header.Row) bool {
	for col := 0; col < 2; col++ {
		cell := row.Cell(col)
		if cell.Kind != reader.CellText {
			continue
		}
		s := strings.Join(strings.Fields(cell.Text), "")
		for _, marker := range n.opts.TotalMarkers {
			if strings.Contains(s, marker) {
				return true
			}
		}
	}
	return false
}

func (n *Normalizer) date(m header.FieldMap, row header.Row) (time.Time, bool) {
	col, ok := m.Column(header.FieldDate)
	if !ok {
		return time.Time{}, false
	}
	return CoerceDate(row.Cell(col), n.opts.ReferenceYear)
}

// quantityAndPrice derives the unit price from a sales amount when no price column exists,
// returning the amount so revenue stays exact. A missing quantity column counts each line
// as one unit.
func quantityAndPrice(m header.FieldMap, row header.Row) (decimal.Decimal, decimal.Decimal, *decimal.Decimal) {
	qty := decimal.NewFromInt(1)
	if _, ok := m.Column(header.FieldQuantity); ok {
		qty = number(m, row, header.FieldQuantity)
	}

	if _, ok := m.Column(header.FieldUnitPrice); ok {
		return qty, number(m, row, header.FieldUnitPrice), nil
	}
	if _, ok := m.Column(header.FieldSalesAmount); !ok {
		return qty, decimal.Zero, nil
	}

	amount := number(m, row, header.FieldSalesAmount)
	if qty.IsZero() {
		return decimal.NewFromInt(1), amount, &amount
	}
	return qty, amount.DivRound(qty, 8), &amount
}

func number(m header.FieldMap, row header.Row, f header.Field) decimal.Decimal {
	col, ok := m.Column(f)
	if !ok {
		return decimal.Zero
	}
	return CoerceNumber(row.Cell(col))
}

func text(m header.FieldMap, row header.Row, f header.Field) string {
	col, ok := m.Column(f)
	if !ok {
		return ""
	}
	return row.Cell(col).String()
}

// cleanName trims and collapses internal whitespace.
func cleanName(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func isBlank(cells []reader.Cell) bool {
	for _, c := range cells {
		if !c.IsEmpty() {
			return false
		}
	}
	return true
}
