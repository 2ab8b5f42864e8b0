package money

import (
	"github.com/brianvoe/gofakeit/v6"
	"github.com/shopspring/decimal"
)

// TestDataGenerator generates realistic KRW amounts using gofakeit.
type TestDataGenerator struct {
	faker *gofakeit.Faker
}

// NewTestDataGenerator creates a new test data generator with a random seed.
func NewTestDataGenerator() *TestDataGenerator {
	return &TestDataGenerator{
		faker: gofakeit.New(0), // Random seed
	}
}

// NewTestDataGeneratorWithSeed creates a generator with a specific seed for reproducibility.
func NewTestDataGeneratorWithSeed(seed int64) *TestDataGenerator {
	return &TestDataGenerator{
		faker: gofakeit.New(seed),
	}
}

// Faker exposes the underlying faker so fixtures built on top share one seed.
func (g *TestDataGenerator) Faker() *gofakeit.Faker {
	return g.faker
}

// RandomAmount generates a random Money value between minWon and maxWon inclusive.
func (g *TestDataGenerator) RandomAmount(minWon, maxWon int64) *Money {
	if minWon > maxWon {
		minWon, maxWon = maxWon, minWon
	}
	won := g.faker.Int64() % (maxWon - minWon + 1)
	if won < 0 {
		won = -won
	}
	return New(minWon+won, KRW)
}

// UnitPrice generates a retail unit price rounded to 100 won (₩1,000 - ₩200,000).
func (g *TestDataGenerator) UnitPrice() decimal.Decimal {
	return roundTo(g.RandomAmount(1000, 200000).ToDecimal(), 100)
}

// UnitCost generates a cost of goods between 30% and 80% of price, rounded to 10 won.
func (g *TestDataGenerator) UnitCost(price decimal.Decimal) decimal.Decimal {
	pct := decimal.NewFromInt(int64(g.faker.Number(30, 80)))
	return roundTo(price.Mul(pct).Div(decimal.NewFromInt(100)), 10)
}

// Quantity generates an order quantity (1-20).
func (g *TestDataGenerator) Quantity() decimal.Decimal {
	return decimal.NewFromInt(int64(g.faker.Number(1, 20)))
}

// FixedCost generates a monthly operating expense (₩100,000 - ₩5,000,000).
func (g *TestDataGenerator) FixedCost() decimal.Decimal {
	return roundTo(g.RandomAmount(100000, 5000000).ToDecimal(), 1000)
}

func roundTo(d decimal.Decimal, unit int64) decimal.Decimal {
	u := decimal.NewFromInt(unit)
	return d.Div(u).Round(0).Mul(u)
}
