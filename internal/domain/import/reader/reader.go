// Package reader turns uploaded byte streams of unknown format into raw, untyped tables.
// Workbooks yield one table per sheet; delimited text yields a single synthetic sheet.
package reader

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// CellKind identifies what a raw cell holds.
type CellKind int

const (
	CellEmpty CellKind = iota
	CellText
	CellNumber
	CellDate
)

// Cell is a single untyped value from a source table.
type Cell struct {
	Kind   CellKind
	Text   string          // Original text as it appeared in the source
	Number decimal.Decimal // Set when Kind == CellNumber
	Time   time.Time       // Set when Kind == CellDate
}

// TextCell builds a cell from raw text, leaving typing to later stages.
func TextCell(s string) Cell {
	if strings.TrimSpace(s) == "" {
		return Cell{Kind: CellEmpty, Text: s}
	}
	return Cell{Kind: CellText, Text: s}
}

// NumberCell builds a numeric cell.
func NumberCell(d decimal.Decimal) Cell {
	return Cell{Kind: CellNumber, Number: d, Text: d.String()}
}

// DateCell builds a date cell.
func DateCell(t time.Time) Cell {
	return Cell{Kind: CellDate, Time: t, Text: t.Format("2006-01-02")}
}

// IsEmpty reports whether the cell carries no value.
func (c Cell) IsEmpty() bool {
	return c.Kind == CellEmpty || (c.Kind == CellText && strings.TrimSpace(c.Text) == "")
}

// String returns the cell's display text.
func (c Cell) String() string {
	return strings.TrimSpace(c.Text)
}

// RawTable is an ordered sequence of rows with no header assumed.
type RawTable struct {
	Source string // File name the table came from
	Sheet  string // Sheet name, or the file name for delimited text
	Rows   [][]Cell
}

// Origin returns the provenance tag "file/sheet".
func (t RawTable) Origin() string {
	if t.Sheet == "" || t.Sheet == t.Source {
		return t.Source
	}
	return t.Source + "/" + t.Sheet
}

// Width returns the widest row length.
func (t RawTable) Width() int {
	w := 0
	for _, r := range t.Rows {
		if len(r) > w {
			w = len(r)
		}
	}
	return w
}

// Cell returns the cell at (row, col), or an empty cell when out of range.
func (t RawTable) Cell(row, col int) Cell {
	if row < 0 || row >= len(t.Rows) || col < 0 || col >= len(t.Rows[row]) {
		return Cell{}
	}
	return t.Rows[row][col]
}

// OutcomeKind tags the result of reading one file.
type OutcomeKind int

const (
	OutcomeSuccess OutcomeKind = iota
	OutcomeEmpty
	OutcomeUnreadable
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSuccess:
		return "success"
	case OutcomeEmpty:
		return "empty"
	case OutcomeUnreadable:
		return "unreadable"
	default:
		return "unknown"
	}
}

// Outcome is the typed result of reading a single file. Tables is only set on success;
// Err carries the reason for empty or unreadable outcomes.
type Outcome struct {
	Name     string
	Kind     OutcomeKind
	Format   string // "xlsx" or "delimited"
	Encoding string // Text encoding used for delimited files
	Tables   []RawTable
	Err      error
}

var (
	ErrEmptyFile      = errors.New("file is empty")
	ErrNoRows         = errors.New("file contains no rows")
	ErrUnreadableFile = errors.New("file matches no supported format or encoding")
)

// Reader opens uploaded files. The zero value is ready to use.
type Reader struct {
	// Encodings overrides the text encoding fallback order.
	Encodings []TextEncoding
}

// New returns a Reader with the default fallback order.
func New() *Reader {
	return &Reader{}
}

// Read parses data as a workbook first, then as delimited text in each candidate encoding.
// It never panics; parser panics surface as OutcomeUnreadable.
func (r *Reader) Read(name string, data []byte) Outcome {
	out := Outcome{Name: name}
	if len(data) == 0 {
		out.Kind = OutcomeEmpty
		out.Err = ErrEmptyFile
		return out
	}

	tables, err := safely(func() ([]RawTable, error) { return readWorkbook(name, data) })
	if err == nil {
		return finish(out, "xlsx", "", tables)
	}
	lastErr := fmt.Errorf("xlsx: %w", err)

	encodings := r.Encodings
	if len(encodings) == 0 {
		encodings = DefaultEncodings()
	}
	for _, enc := range encodings {
		text, decErr := enc.Decode(data)
		if decErr != nil {
			lastErr = fmt.Errorf("%s: %w", enc.Name, decErr)
			continue
		}
		tables, err = safely(func() ([]RawTable, error) { return readDelimited(name, text) })
		if err != nil {
			lastErr = fmt.Errorf("%s: %w", enc.Name, err)
			continue
		}
		return finish(out, "delimited", enc.Name, tables)
	}

	out.Kind = OutcomeUnreadable
	out.Err = fmt.Errorf("%w: %v", ErrUnreadableFile, lastErr)
	return out
}

func finish(out Outcome, format, encoding string, tables []RawTable) Outcome {
	out.Format = format
	out.Encoding = encoding
	for _, t := range tables {
		if hasValues(t) {
			out.Tables = append(out.Tables, t)
		}
	}
	if len(out.Tables) == 0 {
		out.Kind = OutcomeEmpty
		out.Err = ErrNoRows
		return out
	}
	out.Kind = OutcomeSuccess
	return out
}

func hasValues(t RawTable) bool {
	for _, row := range t.Rows {
		for _, c := range row {
			if !c.IsEmpty() {
				return true
			}
		}
	}
	return false
}

// safely runs fn and converts a panic into an error.
func safely(fn func() ([]RawTable, error)) (tables []RawTable, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			tables = nil
			err = fmt.Errorf("parser panic: %v", rec)
		}
	}()
	return fn()
}
