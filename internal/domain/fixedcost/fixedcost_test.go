package fixedcost

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/channel-profit/internal/domain/import/reader"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func textRow(values ...string) []reader.Cell {
	row := make([]reader.Cell, len(values))
	for i, v := range values {
		row[i] = reader.TextCell(v)
	}
	return row
}

func TestLoad_AmountAndCompensation(t *testing.T) {
	raw := reader.RawTable{Source: "fixed.xlsx", Rows: [][]reader.Cell{
		textRow("2025 운영 현황"),
		textRow("월", "항목", "금액"),
		textRow("2025-01", "광고비", "1,000,000"),
		textRow("2025.01", "물류 보상", "200,000"),
		textRow("2025년 2월", "임대료", "500,000원"),
		{reader.DateCell(time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)), reader.TextCell("임대료"), reader.NumberCell(dec("500000"))},
		textRow("", "", ""),
	}}

	summary, err := Load(raw, 2025)
	require.NoError(t, err)

	assert.True(t, dec("1800000").Equal(summary.Total), "total %s", summary.Total)
	assert.Equal(t, []string{"2025-01", "2025-02", "2025-03"}, summary.Months())
	assert.True(t, dec("800000").Equal(summary.ForMonth("2025-01")))
	assert.True(t, dec("500000").Equal(summary.ForMonth("2025-03")))
	assert.True(t, summary.ForMonth("2024-12").IsZero())

	require.Len(t, summary.Entries, 4)
	assert.True(t, summary.Entries[1].Compensation)
	assert.True(t, dec("-200000").Equal(summary.Entries[1].Amount))
	assert.Equal(t, 4, summary.Entries[1].SourceRow)
}

func TestLoad_ItemHeaderMentioningCost(t *testing.T) {
	tests := []struct {
		name string
		rows [][]reader.Cell
	}{
		{"item column first", [][]reader.Cell{
			textRow("비용항목", "금액"),
			textRow("광고비", "500,000"),
			textRow("물류비", "300,000"),
		}},
		{"amount column first", [][]reader.Cell{
			textRow("금액", "비용항목"),
			textRow("500,000", "광고비"),
			textRow("300,000", "물류비"),
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			summary, err := Load(reader.RawTable{Source: "fixed.csv", Rows: tt.rows}, 2025)
			require.NoError(t, err)
			assert.True(t, dec("800000").Equal(summary.Total), "total %s", summary.Total)
			require.Len(t, summary.Entries, 2)
			assert.Equal(t, "광고비", summary.Entries[0].Item)
			assert.Equal(t, CategoryAmount, summary.Entries[0].Category)
		})
	}
}

func TestLoad_CategoryColumns(t *testing.T) {
	raw := reader.RawTable{Source: "fixed.csv", Rows: [][]reader.Cell{
		textRow("기간", "광고비", "물류비", "기타운영비"),
		textRow("3월", "100", "50", "25"),
		textRow("", "10", "", ""),
	}}

	summary, err := Load(raw, 2024)
	require.NoError(t, err)
	assert.True(t, dec("185").Equal(summary.Total))
	assert.True(t, dec("175").Equal(summary.ForMonth("2024-03")))
	assert.Len(t, summary.ByMonth, 1, "rows without a month only count toward the total")

	categories := make([]Category, 0, len(summary.Entries))
	for _, e := range summary.Entries {
		categories = append(categories, e.Category)
	}
	assert.Equal(t, []Category{CategoryAdvertising, CategoryShipping, CategoryOther, CategoryAdvertising}, categories)
}

func TestLoad_NoCostColumns(t *testing.T) {
	raw := reader.RawTable{Rows: [][]reader.Cell{textRow("월", "항목"), textRow("2025-01", "x")}}
	summary, err := Load(raw, 2025)
	assert.ErrorIs(t, err, ErrNoCostColumns)
	assert.True(t, summary.Total.IsZero())
	assert.NotNil(t, summary.ByMonth)
}

func TestSummary_WithManual(t *testing.T) {
	t.Run("manual only", func(t *testing.T) {
		s := Empty().WithManual(Manual{Advertising: dec("100"), Shipping: dec("20"), Other: dec("3")})
		assert.True(t, dec("123").Equal(s.Total))
		assert.True(t, s.File.IsZero())
		assert.Empty(t, s.Months())
	})

	t.Run("file plus manual", func(t *testing.T) {
		raw := reader.RawTable{Rows: [][]reader.Cell{textRow("금액"), textRow("1000")}}
		s, err := Load(raw, 2025)
		require.NoError(t, err)
		s = s.WithManual(Manual{Other: dec("500")})
		assert.True(t, dec("1500").Equal(s.Total))
		assert.True(t, dec("1000").Equal(s.File))
		assert.True(t, dec("500").Equal(s.Manual))
	})

	t.Run("absent file is zero", func(t *testing.T) {
		s := Empty().WithManual(Manual{})
		assert.True(t, s.Total.IsZero())
	})
}

func TestParseMonth(t *testing.T) {
	tests := []struct {
		in   string
		year int
		want string
	}{
		{"2024-01", 0, "2024-01"},
		{"2024.1", 0, "2024-01"},
		{"2024/12", 0, "2024-12"},
		{"2024년 3월", 0, "2024-03"},
		{"202405", 0, "2024-05"},
		{"7월", 2023, "2023-07"},
		{"7월", 0, ""},
		{"2024-13", 0, ""},
		{"상반기", 2024, ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, parseMonth(tt.in, tt.year))
		})
	}
}
