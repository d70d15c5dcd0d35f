package pricing

import "github.com/shopspring/decimal"

// Tier is a bulk price break: once the ordered quantity reaches Threshold,
// the line is charged at UnitPriceCents instead of the regular unit price.
type Tier struct {
	UnitPriceCents int64
	Threshold      int
}

// Quote is the effective pricing for a single line.
type Quote struct {
	ActiveUnitPriceCents int64
	BulkActive           bool
	SavingsPerUnitCents  int64
	SavingsPercent       decimal.Decimal
	OriginalTotalCents   int64
	EffectiveTotalCents  int64
}

// Compute derives the effective unit price and savings for a line. It is a
// pure function and assumes the caller validated quantity and prices as
// non-negative. The threshold boundary is inclusive: quantity equal to the
// threshold activates the tier.
func Compute(quantity int, unitPriceCents int64, bulk *Tier) Quote {
	quote := Quote{
		ActiveUnitPriceCents: unitPriceCents,
		SavingsPercent:       decimal.Zero,
		OriginalTotalCents:   unitPriceCents * int64(quantity),
	}

	if bulk != nil && quantity >= bulk.Threshold {
		quote.BulkActive = true
		quote.ActiveUnitPriceCents = bulk.UnitPriceCents
		quote.SavingsPerUnitCents = unitPriceCents - bulk.UnitPriceCents
		if unitPriceCents != 0 {
			quote.SavingsPercent = decimal.NewFromInt(quote.SavingsPerUnitCents).
				Div(decimal.NewFromInt(unitPriceCents)).
				Mul(decimal.NewFromInt(100))
		}
	}

	quote.EffectiveTotalCents = quote.ActiveUnitPriceCents * int64(quantity)
	return quote
}

// LineInput is one cart line for whole-cart summarization.
type LineInput struct {
	Quantity       int
	UnitPriceCents int64
	Bulk           *Tier
}

// Summary aggregates per-line quotes for a whole cart.
type Summary struct {
	OriginalTotalCents  int64
	EffectiveTotalCents int64
	SavingsCents        int64
	Lines               []Quote
}

// Summarize reuses Compute per line and sums the totals, so a cart summary
// can never disagree with its per-line quotes.
func Summarize(lines []LineInput) Summary {
	summary := Summary{Lines: make([]Quote, 0, len(lines))}
	for _, line := range lines {
		quote := Compute(line.Quantity, line.UnitPriceCents, line.Bulk)
		summary.Lines = append(summary.Lines, quote)
		summary.OriginalTotalCents += quote.OriginalTotalCents
		summary.EffectiveTotalCents += quote.EffectiveTotalCents
		summary.SavingsCents += quote.OriginalTotalCents - quote.EffectiveTotalCents
	}
	return summary
}
