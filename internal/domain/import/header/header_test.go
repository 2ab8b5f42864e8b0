package header

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/channel-profit/internal/domain/import/reader"
)

func textRow(values ...string) []reader.Cell {
	row := make([]reader.Cell, len(values))
	for i, v := range values {
		row[i] = reader.TextCell(v)
	}
	return row
}

func table(rows ...[]reader.Cell) reader.RawTable {
	return reader.RawTable{Source: "sales.xlsx", Sheet: "Sheet1", Rows: rows}
}

func TestMapColumns(t *testing.T) {
	tests := []struct {
		name    string
		columns []string
		want    FieldMap
	}{
		{
			name:    "ecount keyword header",
			columns: []string{"일자", "거래처명", "품목코드", "품목명", "수량", "단가", "공급가액", "입고단가"},
			want: FieldMap{
				FieldDate: 0, FieldChannel: 1, FieldProduct: 3, FieldQuantity: 4,
				FieldUnitPrice: 5, FieldSalesAmount: 6, FieldUnitCost: 7,
			},
		},
		{
			name:    "order independent",
			columns: []string{"판매금액", "상품명", "판매처", "판매일"},
			want:    FieldMap{FieldSalesAmount: 0, FieldProduct: 1, FieldChannel: 2, FieldDate: 3},
		},
		{
			name:    "cost rule claims purchase price before unit price",
			columns: []string{"날짜", "매입단가", "판매단가"},
			want:    FieldMap{FieldDate: 0, FieldUnitCost: 1, FieldUnitPrice: 2},
		},
		{
			name:    "first column wins per field",
			columns: []string{"일자", "날짜", "수량", "수량2"},
			want:    FieldMap{FieldDate: 0, FieldQuantity: 2},
		},
		{
			name:    "code columns are not names",
			columns: []string{"거래처코드", "거래처명", "상품코드", "상품명"},
			want:    FieldMap{FieldChannel: 1, FieldProduct: 3},
		},
		{
			name:    "case sensitive",
			columns: []string{"Date", "QTY"},
			want:    FieldMap{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MapColumns(tt.columns))
		})
	}
}

func TestDetectKeywordWithBanner(t *testing.T) {
	raw := table(
		textRow("회사명 : 테스트상사"),
		textRow(""),
		textRow("일자", "거래처명", "품목명", "수량", "단가"),
		textRow("2024-01-02", "쿠팡", "상품A", "3", "1,000"),
	)

	det := NewDetector().Detect(raw)
	require.Equal(t, LayoutKeyword, det.Layout)
	assert.Equal(t, 2, det.HeaderRow)
	assert.Equal(t, 3, det.DataStart)
	assert.Equal(t, -1, det.SubRow, "a data row is not a sub-header")

	tbl, _, err := NewResolver(nil).Resolve(raw)
	require.NoError(t, err)
	require.Len(t, tbl.Rows, 1)
	assert.Equal(t, 3, tbl.Rows[0].Index)
	assert.Equal(t, "쿠팡", tbl.Rows[0].Cell(tbl.Mapping[FieldChannel]).String())
}

func TestDetectSkipsMarkerBanner(t *testing.T) {
	raw := table(
		textRow("2024년 1월 판매금액 보고서"),
		textRow(""),
		textRow("일자", "거래처명", "품목명", "수량", "단가"),
		textRow("2024-01-02", "쿠팡", "상품A", "3", "1,000"),
	)

	det := NewDetector().Detect(raw)
	require.Equal(t, LayoutKeyword, det.Layout)
	require.NoError(t, det.Err)
	assert.Equal(t, 2, det.HeaderRow)
	assert.Equal(t, 0, det.Mapping[FieldDate])

	tbl, _, err := NewResolver(nil).Resolve(raw)
	require.NoError(t, err)
	assert.Len(t, tbl.Rows, 1)
}

func TestDetectMergedTwoRowHeader(t *testing.T) {
	t.Run("marker in group row", func(t *testing.T) {
		raw := table(
			textRow("일자", "거래처명", "판매", "", "", "원가"),
			textRow("", "", "수량", "단가", "금액", ""),
			textRow("2024-01-02", "쿠팡", "2", "500", "1000", "200"),
		)
		det := NewDetector().Detect(raw)

		require.Equal(t, LayoutKeyword, det.Layout)
		assert.Equal(t, 0, det.GroupRow)
		assert.Equal(t, 1, det.SubRow)
		assert.Equal(t, 2, det.DataStart)
		assert.Equal(t, []string{"일자", "거래처명", "판매수량", "판매단가", "판매금액", "원가"}, det.Columns)
		assert.Equal(t, 2, det.Mapping[FieldQuantity])
		assert.Equal(t, 3, det.Mapping[FieldUnitPrice])
		assert.Equal(t, 4, det.Mapping[FieldSalesAmount])
		assert.Equal(t, 5, det.Mapping[FieldUnitCost])
	})

	t.Run("marker in sub row", func(t *testing.T) {
		raw := table(
			textRow("", "", "매출", ""),
			textRow("일자", "거래처명", "수량", "금액"),
			textRow("2024-01-02", "쿠팡", "2", "1000"),
		)
		det := NewDetector().Detect(raw)

		require.Equal(t, LayoutKeyword, det.Layout)
		assert.Equal(t, 0, det.GroupRow)
		assert.Equal(t, []string{"일자", "거래처명", "매출수량", "매출금액"}, det.Columns)
		assert.Equal(t, 3, det.Mapping[FieldSalesAmount])
	})
}

func TestMergeHeaderRowsFill(t *testing.T) {
	group := textRow("일자", "거래처명", "", "판매", "")
	sub := textRow("", "", "품목명", "수량", "금액")

	cols := mergeHeaderRows(group, sub, 5)
	assert.Equal(t, []string{"일자", "거래처명", "품목명", "판매수량", "판매금액"}, cols,
		"a standalone group label does not leak into its neighbour")
}

func TestDetectPositional(t *testing.T) {
	day := reader.DateCell(time.Date(2024, 1, 19, 0, 0, 0, 0, time.UTC))
	qty := reader.NumberCell(decimal.NewFromInt(2))
	raw := table(
		textRow("일자-No.", "거래처", "품목코드", "품목", "수량", "단가", "공급가액", "원가"),
		textRow("", "", "", "", "", "", "", ""),
		[]reader.Cell{day, reader.TextCell("쿠팡"), reader.TextCell("P-1"), reader.TextCell("상품A"), qty,
			reader.NumberCell(decimal.NewFromInt(1000)), reader.NumberCell(decimal.NewFromInt(2000)),
			reader.NumberCell(decimal.NewFromInt(400))},
	)

	det := NewDetector().Detect(raw)
	require.Equal(t, LayoutPositional, det.Layout, "no marker header, so the fixed format applies")
	assert.Equal(t, PositionalDataStart, det.DataStart)

	tbl, _, err := NewResolver(nil).Resolve(raw)
	require.NoError(t, err)
	require.Len(t, tbl.Rows, 1)
	assert.Equal(t, 7, tbl.Mapping[FieldUnitCost])
	assert.Equal(t, 3, tbl.Mapping[FieldProduct])
	assert.Equal(t, 2, tbl.HeaderRows)
}

func TestDetectUnrecognized(t *testing.T) {
	t.Run("no marker and narrow", func(t *testing.T) {
		raw := table(textRow("a", "b"), textRow("1", "2"))
		det := NewDetector().Detect(raw)
		assert.Equal(t, LayoutUnrecognized, det.Layout)
		assert.ErrorIs(t, det.Err, ErrUnrecognizedLayout)
	})

	t.Run("wide table without date banner", func(t *testing.T) {
		raw := table(
			textRow("a", "b", "c", "d", "e", "f", "g", "h"),
			textRow("", "", "", "", "", "", "", ""),
			textRow("1", "2", "3", "4", "5", "6", "7", "8"),
		)
		assert.Equal(t, LayoutUnrecognized, NewDetector().Detect(raw).Layout)
	})

	t.Run("marker without required columns", func(t *testing.T) {
		raw := table(textRow("거래처명", "금액"), textRow("쿠팡", "100"))
		det := NewDetector().Detect(raw)
		assert.Equal(t, LayoutUnrecognized, det.Layout)
		assert.ErrorIs(t, det.Err, ErrMissingRequired)

		_, _, err := NewResolver(nil).Resolve(raw)
		assert.ErrorIs(t, err, ErrMissingRequired)
	})

	t.Run("marker beyond scan window", func(t *testing.T) {
		rows := make([][]reader.Cell, 0, 12)
		for i := 0; i < 11; i++ {
			rows = append(rows, textRow("메모"))
		}
		rows = append(rows, textRow("일자", "거래처명", "수량"))
		assert.Equal(t, LayoutUnrecognized, NewDetector().Detect(table(rows...)).Layout)
	})
}

func TestBuilderRejectsWrongLayout(t *testing.T) {
	_, err := KeywordBuilder{}.Build(table(), Detection{Layout: LayoutPositional})
	assert.Error(t, err)
	_, err = PositionalBuilder{}.Build(table(), Detection{Layout: LayoutKeyword})
	assert.Error(t, err)
}
