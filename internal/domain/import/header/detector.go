// Package header locates column headers inside irregular spreadsheet tables.
//
// Resolution is two-staged: a Detector classifies the table layout and a Builder
// for that layout produces the named columns and data rows.
package header

import (
	"errors"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/FACorreiaa/channel-profit/internal/domain/import/reader"
)

// Layout is the detected shape of a raw table.
type Layout int

const (
	LayoutUnrecognized Layout = iota
	LayoutPositional
	LayoutKeyword
)

func (l Layout) String() string {
	switch l {
	case LayoutPositional:
		return "positional"
	case LayoutKeyword:
		return "keyword"
	default:
		return "unrecognized"
	}
}

var (
	ErrUnrecognizedLayout = errors.New("no recognizable header")
	ErrMissingRequired    = errors.New("required column missing")
)

// Detection describes where the header lives. Row indexes are 0-based; GroupRow and
// SubRow are -1 when the header is a single row.
type Detection struct {
	Layout    Layout
	HeaderRow int
	GroupRow  int
	SubRow    int
	DataStart int
	Columns   []string
	Mapping   FieldMap
	Err       error
}

// Detector classifies raw tables. Keyword headers are preferred; the fixed positional
// export format is only assumed when no marker-matched header maps the required columns.
type Detector struct {
	ScanRows        int      // Rows scanned for a marker (default 10)
	Markers         []string // Header marker tokens
	PositionalWidth int      // Minimum width for the positional layout (default 8)
	DateToken       string   // Banner token validating the positional layout
}

// NewDetector returns a Detector tuned for ECOUNT-style exports.
func NewDetector() *Detector {
	return &Detector{
		ScanRows:        10,
		Markers:         []string{"금액", "거래처명"},
		PositionalWidth: 8,
		DateToken:       "일자",
	}
}

// PositionalDataStart is the fixed row offset after the two-row banner.
const PositionalDataStart = 2

// Detect inspects t and reports its layout.
func (d *Detector) Detect(t reader.RawTable) Detection {
	det, found := d.detectKeyword(t)
	if found && det.Mapping.HasRequired() {
		return det
	}

	if d.isPositional(t) {
		return Detection{
			Layout:    LayoutPositional,
			HeaderRow: 0,
			GroupRow:  -1,
			SubRow:    -1,
			DataStart: PositionalDataStart,
			Mapping:   positionalMapping(),
		}
	}

	out := Detection{Layout: LayoutUnrecognized, HeaderRow: -1, GroupRow: -1, SubRow: -1, Err: ErrUnrecognizedLayout}
	if found {
		out.Columns = det.Columns
		out.Mapping = det.Mapping
		out.Err = ErrMissingRequired
	}
	return out
}

func (d *Detector) isPositional(t reader.RawTable) bool {
	if t.Width() < d.PositionalWidth || len(t.Rows) <= PositionalDataStart {
		return false
	}
	for row := 0; row < PositionalDataStart; row++ {
		if strings.Contains(compact(t.Cell(row, 0).String()), d.DateToken) {
			return true
		}
	}
	return false
}

// detectKeyword returns the first marker row whose header maps every required field.
// Marker rows that fail, such as a title banner mentioning 금액, do not stop the scan;
// when none passes, the first candidate is returned so the caller can report what is missing.
func (d *Detector) detectKeyword(t reader.RawTable) (Detection, bool) {
	limit := d.ScanRows
	if limit <= 0 || limit > len(t.Rows) {
		limit = len(t.Rows)
	}

	var first Detection
	found := false
	for i := 0; i < limit; i++ {
		if !d.hasMarker(t.Rows[i]) {
			continue
		}
		det := keywordHeader(t, i)
		if det.Mapping.HasRequired() {
			return det, true
		}
		if !found {
			first, found = det, true
		}
	}
	return first, found
}

func keywordHeader(t reader.RawTable, i int) Detection {
	det := Detection{Layout: LayoutKeyword, HeaderRow: i, GroupRow: -1, SubRow: -1, DataStart: i + 1}
	width := t.Width()

	switch {
	case i+1 < len(t.Rows) && isSubHeaderRow(t.Rows[i], t.Rows[i+1]):
		det.GroupRow, det.SubRow = i, i+1
		det.DataStart = i + 2
		det.Columns = mergeHeaderRows(t.Rows[i], t.Rows[i+1], width)
	case i > 0 && isGroupHeaderRow(t.Rows[i-1]):
		det.GroupRow, det.SubRow = i-1, i
		det.Columns = mergeHeaderRows(t.Rows[i-1], t.Rows[i], width)
	default:
		det.Columns = singleHeaderRow(t.Rows[i], width)
	}
	det.Mapping = MapColumns(det.Columns)
	return det
}

func (d *Detector) hasMarker(row []reader.Cell) bool {
	for _, c := range row {
		if c.Kind != reader.CellText {
			continue
		}
		text := compact(c.Text)
		for _, m := range d.Markers {
			if strings.Contains(text, m) {
				return true
			}
		}
	}
	return false
}

// isSubHeaderRow reports whether sub completes group as a two-row header: only label-like
// text cells, at least one field token, and at least one label sitting under a blank group cell.
func isSubHeaderRow(group, sub []reader.Cell) bool {
	tokens, underBlank := 0, false
	for j, c := range sub {
		if c.IsEmpty() {
			continue
		}
		if !isLabel(c) {
			return false
		}
		if hasFieldToken(c.Text) {
			tokens++
		}
		if j >= len(group) || group[j].IsEmpty() {
			underBlank = true
		}
	}
	return tokens > 0 && underBlank
}

// isGroupHeaderRow reports a row holding only labels, either two or more of them or a single
// one away from column 0. A lone label in column 0 is a banner such as a company name.
func isGroupHeaderRow(row []reader.Cell) bool {
	labels, first := 0, -1
	for j, c := range row {
		if c.IsEmpty() {
			continue
		}
		if !isLabel(c) {
			return false
		}
		if first < 0 {
			first = j
		}
		labels++
	}
	return labels >= 2 || (labels == 1 && first > 0)
}

// isLabel reports a text cell that does not start like a number or date.
func isLabel(c reader.Cell) bool {
	if c.Kind != reader.CellText {
		return false
	}
	r, size := utf8.DecodeRuneInString(c.String())
	if size == 0 {
		return false
	}
	return !unicode.IsDigit(r) && r != '-' && r != '+'
}

func singleHeaderRow(row []reader.Cell, width int) []string {
	cols := make([]string, width)
	for j := 0; j < width && j < len(row); j++ {
		cols[j] = row[j].String()
	}
	return cols
}

// mergeHeaderRows joins a group row and a sub-header row column by column. A blank group
// cell inherits the last non-blank group label to its left only when that label spans
// a sub-header itself, which is how horizontally merged cells come out of a workbook.
func mergeHeaderRows(group, sub []reader.Cell, width int) []string {
	at := func(row []reader.Cell, j int) string {
		if j < len(row) {
			return row[j].String()
		}
		return ""
	}

	cols := make([]string, width)
	fill, fillSpans := "", false
	for j := 0; j < width; j++ {
		g, s := at(group, j), at(sub, j)
		if g != "" {
			fill, fillSpans = g, s != ""
		} else if s != "" && fillSpans {
			g = fill
		}
		cols[j] = g + s
	}
	return cols
}

func positionalMapping() FieldMap {
	return FieldMap{
		FieldDate:      0,
		FieldChannel:   1,
		FieldProduct:   3,
		FieldQuantity:  4,
		FieldUnitPrice: 5,
		FieldUnitCost:  7,
	}
}
