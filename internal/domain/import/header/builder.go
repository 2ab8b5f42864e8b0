package header

import (
	"fmt"

	"github.com/FACorreiaa/channel-profit/internal/domain/import/reader"
)

// Row is a data row with its original 0-based index in the raw table.
type Row struct {
	Index int
	Cells []reader.Cell
}

// Cell returns the cell at col, or an empty cell when the row is short.
func (r Row) Cell(col int) reader.Cell {
	if col < 0 || col >= len(r.Cells) {
		return reader.Cell{}
	}
	return r.Cells[col]
}

// Table is a raw table with resolved columns and only the rows below the header.
type Table struct {
	Source     string
	Sheet      string
	Layout     Layout
	Columns    []string
	Mapping    FieldMap
	HeaderRows int
	Rows       []Row
}

// Origin returns the provenance tag "file/sheet".
func (t Table) Origin() string {
	return reader.RawTable{Source: t.Source, Sheet: t.Sheet}.Origin()
}

// Builder produces a Table for one detected layout.
type Builder interface {
	Build(raw reader.RawTable, det Detection) (Table, error)
}

// PositionalBuilder handles the fixed export format with a two-row banner.
type PositionalBuilder struct{}

func (PositionalBuilder) Build(raw reader.RawTable, det Detection) (Table, error) {
	if det.Layout != LayoutPositional {
		return Table{}, fmt.Errorf("positional builder given %s layout", det.Layout)
	}
	cols := make([]string, raw.Width())
	for j := range cols {
		cols[j] = raw.Cell(det.HeaderRow, j).String()
	}
	if sub := det.HeaderRow + 1; sub < det.DataStart {
		for j := range cols {
			cols[j] += raw.Cell(sub, j).String()
		}
	}
	return Table{
		Source:     raw.Source,
		Sheet:      raw.Sheet,
		Layout:     LayoutPositional,
		Columns:    cols,
		Mapping:    det.Mapping,
		HeaderRows: det.DataStart,
		Rows:       dataRows(raw, det.DataStart),
	}, nil
}

// KeywordBuilder handles tables whose header row was found by marker scan.
type KeywordBuilder struct{}

func (KeywordBuilder) Build(raw reader.RawTable, det Detection) (Table, error) {
	if det.Layout != LayoutKeyword {
		return Table{}, fmt.Errorf("keyword builder given %s layout", det.Layout)
	}
	if !det.Mapping.HasRequired() {
		return Table{}, ErrMissingRequired
	}
	headerRows := 1
	if det.SubRow >= 0 {
		headerRows = 2
	}
	return Table{
		Source:     raw.Source,
		Sheet:      raw.Sheet,
		Layout:     LayoutKeyword,
		Columns:    det.Columns,
		Mapping:    det.Mapping,
		HeaderRows: headerRows,
		Rows:       dataRows(raw, det.DataStart),
	}, nil
}

func dataRows(raw reader.RawTable, start int) []Row {
	if start >= len(raw.Rows) {
		return nil
	}
	rows := make([]Row, 0, len(raw.Rows)-start)
	for i := start; i < len(raw.Rows); i++ {
		rows = append(rows, Row{Index: i, Cells: raw.Rows[i]})
	}
	return rows
}

// Resolver pairs a Detector with a Builder per layout.
type Resolver struct {
	detector *Detector
	builders map[Layout]Builder
}

// NewResolver returns a Resolver using d, or the default Detector when d is nil.
func NewResolver(d *Detector) *Resolver {
	if d == nil {
		d = NewDetector()
	}
	return &Resolver{
		detector: d,
		builders: map[Layout]Builder{
			LayoutPositional: PositionalBuilder{},
			LayoutKeyword:    KeywordBuilder{},
		},
	}
}

// Resolve detects the layout of raw and builds the resolved table. Unrecognized
// tables return the detection error so the caller can skip the sheet.
func (r *Resolver) Resolve(raw reader.RawTable) (Table, Detection, error) {
	det := r.detector.Detect(raw)
	builder, ok := r.builders[det.Layout]
	if !ok {
		err := det.Err
		if err == nil {
			err = ErrUnrecognizedLayout
		}
		return Table{}, det, fmt.Errorf("%s: %w", raw.Origin(), err)
	}
	table, err := builder.Build(raw, det)
	if err != nil {
		return Table{}, det, fmt.Errorf("%s: %w", raw.Origin(), err)
	}
	return table, det, nil
}
