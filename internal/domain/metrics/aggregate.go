package metrics

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/FACorreiaa/channel-profit/internal/domain/commission"
	"github.com/FACorreiaa/channel-profit/internal/domain/fixedcost"
)

// ChannelSummary aggregates one sales channel.
type ChannelSummary struct {
	Channel       string          `json:"channel"`
	Rows          int             `json:"rows"`
	Quantity      decimal.Decimal `json:"quantity"`
	Revenue       decimal.Decimal `json:"revenue"`
	Cost          decimal.Decimal `json:"cost"`
	Commission    decimal.Decimal `json:"commission"`
	GrossProfit   decimal.Decimal `json:"gross_profit"`
	Margin        decimal.Decimal `json:"margin"`         // GrossProfit / Revenue
	MarginPercent decimal.Decimal `json:"margin_percent"` // Margin * 100, 2dp
	Share         decimal.Decimal `json:"share"`          // Revenue / total sales
}

// ProductSummary aggregates one product for the ranking view.
type ProductSummary struct {
	Rank          int             `json:"rank"`
	ProductName   string          `json:"product_name"`
	Quantity      decimal.Decimal `json:"quantity"`
	Revenue       decimal.Decimal `json:"revenue"`
	GrossProfit   decimal.Decimal `json:"gross_profit"`
	Margin        decimal.Decimal `json:"margin"`
	MarginPercent decimal.Decimal `json:"margin_percent"`
}

// MonthSummary aggregates one calendar month. FixedCost is the part of the fixed cost
// booked to this month; costs without a month only reach the totals.
type MonthSummary struct {
	Month         string          `json:"month"` // YYYY-MM
	Quantity      decimal.Decimal `json:"quantity"`
	Revenue       decimal.Decimal `json:"revenue"`
	Cost          decimal.Decimal `json:"cost"`
	Commission    decimal.Decimal `json:"commission"`
	GrossProfit   decimal.Decimal `json:"gross_profit"`
	FixedCost     decimal.Decimal `json:"fixed_cost"`
	NetProfit     decimal.Decimal `json:"net_profit"`
	Margin        decimal.Decimal `json:"margin"`
	MarginPercent decimal.Decimal `json:"margin_percent"`
}

// Totals holds the grand totals. Margins are 0 when TotalSales is 0.
type Totals struct {
	Records            int             `json:"records"`
	TotalQuantity      decimal.Decimal `json:"total_quantity"`
	TotalSales         decimal.Decimal `json:"total_sales"`
	TotalCost          decimal.Decimal `json:"total_cost"`
	TotalCommission    decimal.Decimal `json:"total_commission"`
	TotalGrossProfit   decimal.Decimal `json:"total_gross_profit"`
	GrossMargin        decimal.Decimal `json:"gross_margin"`
	GrossMarginPercent decimal.Decimal `json:"gross_margin_percent"`
	TotalFixedCost     decimal.Decimal `json:"total_fixed_cost"`
	NetProfit          decimal.Decimal `json:"net_profit"`
	NetMargin          decimal.Decimal `json:"net_margin"`
	NetMarginPercent   decimal.Decimal `json:"net_margin_percent"`
}

// StepKind tells a renderer whether a waterfall bar is a running total or a deduction.
type StepKind string

const (
	StepTotal     StepKind = "total"
	StepDeduction StepKind = "deduction"
)

// WaterfallStep is one bar of the revenue to net profit waterfall. Deductions are negative.
type WaterfallStep struct {
	Label  string          `json:"label"`
	Kind   StepKind        `json:"kind"`
	Amount decimal.Decimal `json:"amount"`
}

// Report is the full set of aggregate views.
type Report struct {
	Totals         Totals                             `json:"totals"`
	Channels       []ChannelSummary                   `json:"channels"`
	Products       []ProductSummary                   `json:"products"`
	Months         []MonthSummary                     `json:"months"`
	Waterfall      []WaterfallStep                    `json:"waterfall"`
	Reconciliation []commission.ChannelReconciliation `json:"reconciliation"`
	FixedCost      fixedcost.Summary                  `json:"fixed_cost"`
}

// Build aggregates enriched records and applies the fixed cost. topN limits the product
// ranking; zero or less keeps every product. Empty input yields all-zero aggregates.
func Build(records []EnrichedRecord, fixed fixedcost.Summary, topN int) Report {
	if fixed.ByMonth == nil {
		fixed.ByMonth = map[string]decimal.Decimal{}
	}

	totals := Totals{Records: len(records)}
	channels := make(map[string]*ChannelSummary)
	products := make(map[string]*ProductSummary)
	months := make(map[string]*MonthSummary)

	for _, r := range records {
		totals.TotalQuantity = totals.TotalQuantity.Add(r.Quantity)
		totals.TotalSales = totals.TotalSales.Add(r.GrossRevenue)
		totals.TotalCost = totals.TotalCost.Add(r.TotalCost)
		totals.TotalCommission = totals.TotalCommission.Add(r.CommissionAmount)
		totals.TotalGrossProfit = totals.TotalGrossProfit.Add(r.GrossProfit)

		ch, ok := channels[r.Channel]
		if !ok {
			ch = &ChannelSummary{Channel: r.Channel}
			channels[r.Channel] = ch
		}
		ch.Rows++
		ch.Quantity = ch.Quantity.Add(r.Quantity)
		ch.Revenue = ch.Revenue.Add(r.GrossRevenue)
		ch.Cost = ch.Cost.Add(r.TotalCost)
		ch.Commission = ch.Commission.Add(r.CommissionAmount)
		ch.GrossProfit = ch.GrossProfit.Add(r.GrossProfit)

		p, ok := products[r.ProductName]
		if !ok {
			p = &ProductSummary{ProductName: r.ProductName}
			products[r.ProductName] = p
		}
		p.Quantity = p.Quantity.Add(r.Quantity)
		p.Revenue = p.Revenue.Add(r.GrossRevenue)
		p.GrossProfit = p.GrossProfit.Add(r.GrossProfit)

		m := monthEntry(months, r.Month())
		m.Quantity = m.Quantity.Add(r.Quantity)
		m.Revenue = m.Revenue.Add(r.GrossRevenue)
		m.Cost = m.Cost.Add(r.TotalCost)
		m.Commission = m.Commission.Add(r.CommissionAmount)
		m.GrossProfit = m.GrossProfit.Add(r.GrossProfit)
	}
	for month, amount := range fixed.ByMonth {
		m := monthEntry(months, month)
		m.FixedCost = m.FixedCost.Add(amount)
	}

	totals.TotalFixedCost = fixed.Total
	totals.NetProfit = totals.TotalGrossProfit.Sub(totals.TotalFixedCost)
	totals.GrossMargin = ratio(totals.TotalGrossProfit, totals.TotalSales)
	totals.GrossMarginPercent = Percent(totals.GrossMargin)
	totals.NetMargin = ratio(totals.NetProfit, totals.TotalSales)
	totals.NetMarginPercent = Percent(totals.NetMargin)

	return Report{
		Totals:         totals,
		Channels:       channelRows(channels, totals.TotalSales),
		Products:       productRows(products, topN),
		Months:         monthRows(months),
		Waterfall:      waterfall(totals),
		Reconciliation: []commission.ChannelReconciliation{},
		FixedCost:      fixed,
	}
}

func monthEntry(months map[string]*MonthSummary, key string) *MonthSummary {
	m, ok := months[key]
	if !ok {
		m = &MonthSummary{Month: key}
		months[key] = m
	}
	return m
}

func channelRows(channels map[string]*ChannelSummary, totalSales decimal.Decimal) []ChannelSummary {
	out := make([]ChannelSummary, 0, len(channels))
	for _, ch := range channels {
		ch.Margin = ratio(ch.GrossProfit, ch.Revenue)
		ch.MarginPercent = Percent(ch.Margin)
		ch.Share = ratio(ch.Revenue, totalSales)
		out = append(out, *ch)
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].Revenue.Cmp(out[j].Revenue); c != 0 {
			return c > 0
		}
		return out[i].Channel < out[j].Channel
	})
	return out
}

func productRows(products map[string]*ProductSummary, topN int) []ProductSummary {
	out := make([]ProductSummary, 0, len(products))
	for _, p := range products {
		p.Margin = ratio(p.GrossProfit, p.Revenue)
		p.MarginPercent = Percent(p.Margin)
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].Revenue.Cmp(out[j].Revenue); c != 0 {
			return c > 0
		}
		return out[i].ProductName < out[j].ProductName
	})
	if topN > 0 && len(out) > topN {
		out = out[:topN]
	}
	for i := range out {
		out[i].Rank = i + 1
	}
	return out
}

func monthRows(months map[string]*MonthSummary) []MonthSummary {
	out := make([]MonthSummary, 0, len(months))
	for _, m := range months {
		m.NetProfit = m.GrossProfit.Sub(m.FixedCost)
		m.Margin = ratio(m.GrossProfit, m.Revenue)
		m.MarginPercent = Percent(m.Margin)
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month < out[j].Month })
	return out
}

func waterfall(t Totals) []WaterfallStep {
	return []WaterfallStep{
		{Label: "매출", Kind: StepTotal, Amount: t.TotalSales},
		{Label: "원가", Kind: StepDeduction, Amount: t.TotalCost.Neg()},
		{Label: "수수료", Kind: StepDeduction, Amount: t.TotalCommission.Neg()},
		{Label: "매출총이익", Kind: StepTotal, Amount: t.TotalGrossProfit},
		{Label: "고정비", Kind: StepDeduction, Amount: t.TotalFixedCost.Neg()},
		{Label: "순이익", Kind: StepTotal, Amount: t.NetProfit},
	}
}
