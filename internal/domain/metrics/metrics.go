// Package metrics derives per-row profit figures and the aggregate views of a report.
// Everything here is pure: identical input rows and rates always yield identical output.
package metrics

import (
	"github.com/shopspring/decimal"

	"github.com/FACorreiaa/channel-profit/internal/domain/commission"
	"github.com/FACorreiaa/channel-profit/internal/domain/import/normalizer"
)

// RateResolver resolves a channel name to its commission rate.
type RateResolver interface {
	Resolve(channel string) commission.Resolution
}

// EnrichedRecord is a sales record with its revenue, cost, commission and profit.
// GrossProfit may be negative.
type EnrichedRecord struct {
	normalizer.SalesRecord
	GrossRevenue     decimal.Decimal   `json:"gross_revenue"`
	TotalCost        decimal.Decimal   `json:"total_cost"`
	CommissionRate   decimal.Decimal   `json:"commission_rate"`
	CommissionAmount decimal.Decimal   `json:"commission_amount"`
	GrossProfit      decimal.Decimal   `json:"gross_profit"`
	RateSource       commission.Source `json:"rate_source"`
}

// Month returns the YYYY-MM key of the record's date.
func (r EnrichedRecord) Month() string {
	return r.Date.Format("2006-01")
}

// Enrich resolves each record's commission rate and computes its derived amounts.
func Enrich(records []normalizer.SalesRecord, rates RateResolver) []EnrichedRecord {
	out := make([]EnrichedRecord, 0, len(records))
	cache := make(map[string]commission.Resolution)

	for _, rec := range records {
		res, ok := cache[rec.Channel]
		if !ok {
			res = rates.Resolve(rec.Channel)
			cache[rec.Channel] = res
		}

		revenue := rec.Revenue()
		cost := rec.Quantity.Mul(rec.UnitCost)
		fee := revenue.Mul(res.Rate)

		out = append(out, EnrichedRecord{
			SalesRecord:      rec,
			GrossRevenue:     revenue,
			TotalCost:        cost,
			CommissionRate:   res.Rate,
			CommissionAmount: fee,
			GrossProfit:      revenue.Sub(cost).Sub(fee),
			RateSource:       res.Source,
		})
	}
	return out
}

// RevenueByChannel sums gross revenue per channel.
func RevenueByChannel(records []EnrichedRecord) map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal)
	for _, r := range records {
		out[r.Channel] = out[r.Channel].Add(r.GrossRevenue)
	}
	return out
}

var hundred = decimal.NewFromInt(100)

// ratio returns part/whole, or 0 when whole is 0.
func ratio(part, whole decimal.Decimal) decimal.Decimal {
	if whole.IsZero() {
		return decimal.Zero
	}
	return part.DivRound(whole, 6)
}

// Percent renders a fraction as a percentage rounded to two decimals.
func Percent(fraction decimal.Decimal) decimal.Decimal {
	return fraction.Mul(hundred).Round(2)
}
