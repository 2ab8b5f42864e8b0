// Package export renders a built report as an .xlsx workbook.
package export

import (
	"bytes"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/FACorreiaa/channel-profit/internal/domain/report/service"
	"github.com/FACorreiaa/channel-profit/pkg/money"
)

// Sheet names, in workbook order.
const (
	SheetSummary        = "요약"
	SheetChannels       = "채널별"
	SheetProducts       = "상품순위"
	SheetMonths         = "월별"
	SheetReconciliation = "수수료검증"
	SheetDetail         = "상세데이터"
	SheetDiagnostics    = "진단"
)

// ContentType is the MIME type of the workbook.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type kind int

const (
	kindText kind = iota
	kindMoney
	kindNumber
	kindPercent // fraction rendered as 12.34%
	kindDate
	kindInt
)

type column struct {
	title string
	kind  kind
	width float64
}

type styles struct {
	header  int
	byKind  map[kind]int
	section int
}

func newStyles(f *excelize.File) (styles, error) {
	s := styles{byKind: make(map[kind]int)}
	var err error

	if s.header, err = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#E2E8F0"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	}); err != nil {
		return s, err
	}
	if s.section, err = f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true, Size: 12}}); err != nil {
		return s, err
	}

	moneyFmt, numberFmt, dateFmt := "#,##0", "#,##0.##", "yyyy-mm-dd"
	for k, style := range map[kind]*excelize.Style{
		kindMoney:   {CustomNumFmt: &moneyFmt},
		kindNumber:  {CustomNumFmt: &numberFmt},
		kindPercent: {NumFmt: 10}, // 0.00%
		kindDate:    {CustomNumFmt: &dateFmt},
		kindInt:     {NumFmt: 1}, // 0
	} {
		id, err := f.NewStyle(style)
		if err != nil {
			return s, err
		}
		s.byKind[k] = id
	}
	return s, nil
}

// Workbook builds the report workbook. The caller closes the returned file.
func Workbook(rep *service.Report) (*excelize.File, error) {
	if rep == nil {
		return nil, fmt.Errorf("export: nil report")
	}

	f := excelize.NewFile()
	st, err := newStyles(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("export: create styles: %w", err)
	}
	if err := f.SetSheetName("Sheet1", SheetSummary); err != nil {
		f.Close()
		return nil, err
	}

	steps := []func(*excelize.File, styles, *service.Report) error{
		writeSummary,
		writeChannels,
		writeProducts,
		writeMonths,
		writeReconciliation,
		writeDetail,
		writeDiagnostics,
	}
	for _, step := range steps {
		if err := step(f, st, rep); err != nil {
			f.Close()
			return nil, fmt.Errorf("export: %w", err)
		}
	}
	f.SetActiveSheet(0)
	return f, nil
}

// Bytes renders the workbook into memory.
func Bytes(rep *service.Report) ([]byte, error) {
	f, err := Workbook(rep)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("export: write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// FileName names the download after the report's generation date.
func FileName(rep *service.Report) string {
	return fmt.Sprintf("channel-profit-%s.xlsx", rep.GeneratedAt.Format("20060102"))
}

func writeSummary(f *excelize.File, st styles, rep *service.Report) error {
	t := rep.Metrics.Totals
	kpis := []struct {
		label string
		value decimal.Decimal
		kind  kind
		shown string
	}{
		{"총매출", t.TotalSales, kindMoney, rep.Headline.TotalSales},
		{"총원가", t.TotalCost, kindMoney, money.FormatWon(t.TotalCost)},
		{"총수수료", t.TotalCommission, kindMoney, rep.Headline.TotalCommission},
		{"매출총이익", t.TotalGrossProfit, kindMoney, rep.Headline.TotalGrossProfit},
		{"매출총이익률", t.GrossMargin, kindPercent, rep.Headline.GrossMargin},
		{"고정비", t.TotalFixedCost, kindMoney, rep.Headline.TotalFixedCost},
		{"순이익", t.NetProfit, kindMoney, rep.Headline.NetProfit},
		{"순이익률", t.NetMargin, kindPercent, rep.Headline.NetMargin},
		{"판매 건수", decimal.NewFromInt(int64(t.Records)), kindInt, fmt.Sprintf("%d", t.Records)},
	}

	cols := []column{{"항목", kindText, 16}, {"값", kindMoney, 18}, {"표시", kindText, 18}}
	rows := make([][]any, 0, len(kpis))
	for _, k := range kpis {
		var value any = k.value
		if k.kind != kindMoney {
			value = cellValue(k.value, k.kind)
		}
		rows = append(rows, []any{k.label, value, k.shown})
	}
	if err := writeTable(f, st, SheetSummary, 1, cols, rows); err != nil {
		return err
	}
	// Ratios and counts in the value column need their own formats.
	for i, k := range kpis {
		if k.kind == kindMoney {
			continue
		}
		cell, _ := excelize.CoordinatesToCellName(2, i+2)
		if err := f.SetCellStyle(SheetSummary, cell, cell, st.byKind[k.kind]); err != nil {
			return err
		}
	}

	start := len(kpis) + 3
	if err := f.SetCellValue(SheetSummary, fmt.Sprintf("A%d", start), "손익 흐름"); err != nil {
		return err
	}
	if err := f.SetCellStyle(SheetSummary, fmt.Sprintf("A%d", start), fmt.Sprintf("A%d", start), st.section); err != nil {
		return err
	}
	steps := make([][]any, 0, len(rep.Metrics.Waterfall))
	for _, s := range rep.Metrics.Waterfall {
		steps = append(steps, []any{s.Label, s.Amount, string(s.Kind)})
	}
	return writeTable(f, st, SheetSummary, start+1,
		[]column{{"단계", kindText, 16}, {"금액", kindMoney, 18}, {"구분", kindText, 18}}, steps)
}

func writeChannels(f *excelize.File, st styles, rep *service.Report) error {
	cols := []column{
		{"채널", kindText, 22}, {"건수", kindInt, 8}, {"수량", kindNumber, 10},
		{"매출", kindMoney, 16}, {"원가", kindMoney, 16}, {"수수료", kindMoney, 14},
		{"매출총이익", kindMoney, 16}, {"이익률", kindPercent, 10}, {"매출비중", kindPercent, 10},
	}
	rows := make([][]any, 0, len(rep.Metrics.Channels))
	for _, c := range rep.Metrics.Channels {
		rows = append(rows, []any{c.Channel, c.Rows, c.Quantity, c.Revenue, c.Cost, c.Commission, c.GrossProfit, c.Margin, c.Share})
	}
	return newSheet(f, st, SheetChannels, cols, rows)
}

func writeProducts(f *excelize.File, st styles, rep *service.Report) error {
	cols := []column{
		{"순위", kindInt, 6}, {"상품명", kindText, 30}, {"수량", kindNumber, 10},
		{"매출", kindMoney, 16}, {"매출총이익", kindMoney, 16}, {"이익률", kindPercent, 10},
	}
	rows := make([][]any, 0, len(rep.Metrics.Products))
	for _, p := range rep.Metrics.Products {
		rows = append(rows, []any{p.Rank, p.ProductName, p.Quantity, p.Revenue, p.GrossProfit, p.Margin})
	}
	return newSheet(f, st, SheetProducts, cols, rows)
}

func writeMonths(f *excelize.File, st styles, rep *service.Report) error {
	cols := []column{
		{"월", kindText, 10}, {"수량", kindNumber, 10}, {"매출", kindMoney, 16},
		{"원가", kindMoney, 16}, {"수수료", kindMoney, 14}, {"매출총이익", kindMoney, 16},
		{"고정비", kindMoney, 14}, {"순이익", kindMoney, 16}, {"이익률", kindPercent, 10},
	}
	rows := make([][]any, 0, len(rep.Metrics.Months))
	for _, m := range rep.Metrics.Months {
		rows = append(rows, []any{m.Month, m.Quantity, m.Revenue, m.Cost, m.Commission, m.GrossProfit, m.FixedCost, m.NetProfit, m.Margin})
	}
	return newSheet(f, st, SheetMonths, cols, rows)
}

func writeReconciliation(f *excelize.File, st styles, rep *service.Report) error {
	cols := []column{
		{"채널", kindText, 22}, {"수수료율", kindPercent, 10}, {"근거", kindText, 10},
		{"키워드", kindText, 14}, {"적용 채널", kindText, 18}, {"매출", kindMoney, 16},
		{"수수료", kindMoney, 14}, {"유사 채널", kindText, 18},
	}
	rows := make([][]any, 0, len(rep.Metrics.Reconciliation))
	for _, r := range rep.Metrics.Reconciliation {
		rows = append(rows, []any{r.Channel, r.Rate, r.Source.String(), r.Fragment, r.MatchedTo, r.Revenue, r.Commission, r.Suggestion})
	}
	return newSheet(f, st, SheetReconciliation, cols, rows)
}

func writeDetail(f *excelize.File, st styles, rep *service.Report) error {
	cols := []column{
		{"일자", kindDate, 12}, {"채널", kindText, 20}, {"상품명", kindText, 30},
		{"수량", kindNumber, 8}, {"단가", kindMoney, 12}, {"원가단가", kindMoney, 12},
		{"매출", kindMoney, 14}, {"총원가", kindMoney, 14}, {"수수료율", kindPercent, 10},
		{"수수료", kindMoney, 12}, {"매출총이익", kindMoney, 14}, {"출처", kindText, 28}, {"행", kindInt, 6},
	}
	rows := make([][]any, 0, len(rep.Records))
	for _, r := range rep.Records {
		rows = append(rows, []any{
			r.Date, r.Channel, r.ProductName, r.Quantity, r.UnitPrice, r.UnitCost,
			r.GrossRevenue, r.TotalCost, r.CommissionRate, r.CommissionAmount, r.GrossProfit,
			r.SourceOrigin, r.SourceRow,
		})
	}
	return newSheet(f, st, SheetDetail, cols, rows)
}

func writeDiagnostics(f *excelize.File, st styles, rep *service.Report) error {
	cols := []column{
		{"구분", kindText, 12}, {"대상", kindText, 32}, {"결과", kindText, 14}, {"내용", kindText, 60},
	}
	d := rep.Diagnostics
	rows := make([][]any, 0, len(d.Files)+len(d.Sheets)+len(d.Warnings))
	for _, fo := range d.Files {
		rows = append(rows, []any{"파일:" + fo.Role, fo.Name, fo.Outcome, fo.Error})
	}
	for _, so := range d.Sheets {
		detail := so.Reason
		if !so.Skipped {
			detail = fmt.Sprintf("kept %d / total %d", so.Stats.Kept, so.Stats.Total)
		}
		rows = append(rows, []any{"시트", so.Origin, so.Layout, detail})
	}
	for _, w := range d.Warnings {
		rows = append(rows, []any{"경고", "", "", w})
	}
	return newSheet(f, st, SheetDiagnostics, cols, rows)
}

func newSheet(f *excelize.File, st styles, name string, cols []column, rows [][]any) error {
	if _, err := f.NewSheet(name); err != nil {
		return err
	}
	if err := writeTable(f, st, name, 1, cols, rows); err != nil {
		return err
	}
	return f.SetPanes(name, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})
}

// writeTable writes a header row at headerRow followed by rows, styling each column by kind.
func writeTable(f *excelize.File, st styles, sheet string, headerRow int, cols []column, rows [][]any) error {
	titles := make([]any, len(cols))
	for i, c := range cols {
		titles[i] = c.title
	}
	first, _ := excelize.CoordinatesToCellName(1, headerRow)
	if err := f.SetSheetRow(sheet, first, &titles); err != nil {
		return err
	}
	last, _ := excelize.CoordinatesToCellName(len(cols), headerRow)
	if err := f.SetCellStyle(sheet, first, last, st.header); err != nil {
		return err
	}

	for i, row := range rows {
		values := make([]any, len(row))
		for j, v := range row {
			values[j] = cellValue(v, cols[j].kind)
		}
		cell, _ := excelize.CoordinatesToCellName(1, headerRow+1+i)
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return err
		}
	}

	for i, c := range cols {
		name, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		if err := f.SetColWidth(sheet, name, name, c.width); err != nil {
			return err
		}
		style, ok := st.byKind[c.kind]
		if !ok || len(rows) == 0 {
			continue
		}
		top := fmt.Sprintf("%s%d", name, headerRow+1)
		bottom := fmt.Sprintf("%s%d", name, headerRow+len(rows))
		if err := f.SetCellStyle(sheet, top, bottom, style); err != nil {
			return err
		}
	}
	return nil
}

// cellValue converts report values to what excelize stores natively. Money is written
// as whole won; other decimals as floats.
func cellValue(v any, k kind) any {
	switch x := v.(type) {
	case decimal.Decimal:
		if k == kindMoney {
			return x.Round(0).IntPart()
		}
		return x.InexactFloat64()
	case time.Time:
		return x
	default:
		return v
	}
}
