package export

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/FACorreiaa/channel-profit/internal/domain/fixedcost"
	"github.com/FACorreiaa/channel-profit/internal/domain/report/service"
)

func dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return d
}

func buildReport(t *testing.T) *service.Report {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := service.NewService(service.Options{ReferenceYear: 2025, TopN: 10}, logger).
		WithClock(func() time.Time { return time.Date(2025, time.March, 4, 9, 0, 0, 0, time.UTC) })

	data := "일자,거래처명,품목명,수량,단가,원가\n" +
		"2025-01-05,쿠팡,텀블러,1,\"100,000\",40000\n" +
		"2025-02-11,스마트스토어,머그컵,2,15000,6000\n" +
		"2025-02-12,동네가게,머그컵,1,10000,5000\n"
	rep, err := svc.Build(context.Background(), service.Batch{
		Sales:  []service.File{{Name: "sales.csv", Data: []byte(data)}},
		Manual: fixedcost.Manual{Advertising: dec(t, "5000")},
	})
	require.NoError(t, err)
	return rep
}

func TestWorkbook(t *testing.T) {
	rep := buildReport(t)

	raw, err := Bytes(rep)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(raw))
	require.NoError(t, err)
	defer f.Close()

	t.Run("sheet order", func(t *testing.T) {
		assert.Equal(t, []string{
			SheetSummary, SheetChannels, SheetProducts, SheetMonths,
			SheetReconciliation, SheetDetail, SheetDiagnostics,
		}, f.GetSheetList())
	})

	t.Run("summary values", func(t *testing.T) {
		label, err := f.GetCellValue(SheetSummary, "A2")
		require.NoError(t, err)
		assert.Equal(t, "총매출", label)

		sales, err := f.GetCellValue(SheetSummary, "B2", excelize.Options{RawCellValue: true})
		require.NoError(t, err)
		assert.Equal(t, "140000", sales)

		shown, err := f.GetCellValue(SheetSummary, "C2")
		require.NoError(t, err)
		assert.Equal(t, "₩140,000", shown)
	})

	t.Run("channel rows follow revenue order", func(t *testing.T) {
		rows, err := f.GetRows(SheetChannels)
		require.NoError(t, err)
		require.Len(t, rows, 4)
		assert.Equal(t, "채널", rows[0][0])
		assert.Equal(t, "쿠팡", rows[1][0])
		assert.Equal(t, "스마트스토어", rows[2][0])
	})

	t.Run("detail has one row per record", func(t *testing.T) {
		rows, err := f.GetRows(SheetDetail)
		require.NoError(t, err)
		assert.Len(t, rows, len(rep.Records)+1)

		commission, err := f.GetCellValue(SheetDetail, "J2", excelize.Options{RawCellValue: true})
		require.NoError(t, err)
		assert.Equal(t, "11880", commission)
	})

	t.Run("reconciliation lists every channel", func(t *testing.T) {
		rows, err := f.GetRows(SheetReconciliation)
		require.NoError(t, err)
		assert.Len(t, rows, len(rep.Metrics.Reconciliation)+1)
	})
}

func TestWorkbook_NilReport(t *testing.T) {
	_, err := Workbook(nil)
	assert.Error(t, err)
}

func TestFileName(t *testing.T) {
	rep := &service.Report{GeneratedAt: time.Date(2025, time.March, 4, 0, 0, 0, 0, time.UTC)}
	assert.Equal(t, "channel-profit-20250304.xlsx", FileName(rep))
}
