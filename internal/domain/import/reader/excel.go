package reader

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// builtInDateFormats are the excelize built-in number format IDs that render dates.
var builtInDateFormats = map[int]bool{
	14: true, 15: true, 16: true, 17: true, 18: true, 19: true, 20: true, 21: true, 22: true,
	27: true, 30: true, 36: true, 45: true, 46: true, 47: true, 50: true, 57: true,
}

// readWorkbook reads every sheet of an xlsx workbook without assuming a header.
func readWorkbook(name string, data []byte) ([]RawTable, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	date1904 := false
	if props, err := f.GetWorkbookProps(); err == nil && props.Date1904 != nil {
		date1904 = *props.Date1904
	}

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}

	wb := &workbook{file: f, date1904: date1904, dateStyles: make(map[int]bool)}
	tables := make([]RawTable, 0, len(sheets))
	for _, sheet := range sheets {
		rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
		if err != nil {
			return nil, fmt.Errorf("sheet %s: %w", sheet, err)
		}
		table := RawTable{Source: name, Sheet: sheet, Rows: make([][]Cell, len(rows))}
		for i, row := range rows {
			cells := make([]Cell, len(row))
			for j, value := range row {
				cells[j] = wb.cell(sheet, i, j, value)
			}
			table.Rows[i] = cells
		}
		tables = append(tables, table)
	}
	return tables, nil
}

type workbook struct {
	file       *excelize.File
	date1904   bool
	dateStyles map[int]bool // style ID -> renders as date
}

func (w *workbook) cell(sheet string, row, col int, raw string) Cell {
	if strings.TrimSpace(raw) == "" {
		return Cell{Kind: CellEmpty}
	}
	ref, err := excelize.CoordinatesToCellName(col+1, row+1)
	if err != nil {
		return TextCell(raw)
	}

	cellType, err := w.file.GetCellType(sheet, ref)
	if err != nil {
		return TextCell(raw)
	}
	switch cellType {
	case excelize.CellTypeSharedString, excelize.CellTypeInlineString, excelize.CellTypeBool, excelize.CellTypeError:
		return TextCell(raw)
	}

	num, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return TextCell(raw)
	}

	if w.isDateStyle(sheet, ref) {
		f, _ := num.Float64()
		if t, err := excelize.ExcelDateToTime(f, w.date1904); err == nil {
			return Cell{Kind: CellDate, Time: t, Text: raw}
		}
	}
	return Cell{Kind: CellNumber, Number: num, Text: raw}
}

func (w *workbook) isDateStyle(sheet, ref string) bool {
	styleID, err := w.file.GetCellStyle(sheet, ref)
	if err != nil || styleID == 0 {
		return false
	}
	if isDate, ok := w.dateStyles[styleID]; ok {
		return isDate
	}

	isDate := false
	if style, err := w.file.GetStyle(styleID); err == nil && style != nil {
		if style.CustomNumFmt != nil {
			isDate = isDateFormatCode(*style.CustomNumFmt)
		} else {
			isDate = builtInDateFormats[style.NumFmt]
		}
	}
	w.dateStyles[styleID] = isDate
	return isDate
}

// isDateFormatCode reports whether a custom number format renders a calendar date.
// Quoted literals and bracketed sections such as [Red] or [$-409] are ignored.
func isDateFormatCode(code string) bool {
	var b strings.Builder
	inQuote, inBracket := false, false
	for _, r := range strings.ToLower(code) {
		switch {
		case r == '"':
			inQuote = !inQuote
		case inQuote:
		case r == '[':
			inBracket = true
		case r == ']':
			inBracket = false
		case inBracket:
		default:
			b.WriteRune(r)
		}
	}
	stripped := b.String()
	if strings.Contains(stripped, "general") {
		return false
	}
	return strings.ContainsAny(stripped, "yd") || (strings.Contains(stripped, "m") && !strings.Contains(stripped, "h") && !strings.Contains(stripped, "s"))
}
