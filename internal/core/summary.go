package core

import "github.com/shopspring/decimal"

// DefaultLowPercent is the remaining share below which an allocation is flagged.
var DefaultLowPercent = decimal.NewFromInt(20)

// AllocationSummary is the display state of one allocation card.
type AllocationSummary struct {
	Type      AllocationType
	Name      string
	Budget    Money
	Used      Money
	Remaining Money
	// Low is set when Remaining falls below the warning threshold.
	Low bool
}

// IsLow reports whether remaining is below lowPercent of total.
func IsLow(remaining, total Money, lowPercent decimal.Decimal) bool {
	return remaining.LessThan(total.Percent(lowPercent))
}

// Summarize computes the per-allocation summary in display order.
func Summarize(allocs Allocations, l Ledger, lowPercent decimal.Decimal) []AllocationSummary {
	out := make([]AllocationSummary, 0, allocs.Len())
	for _, a := range allocs.List() {
		used := l.TotalUsed(a.Type)
		remaining := a.Total.Sub(used)
		out = append(out, AllocationSummary{
			Type:      a.Type,
			Name:      a.Name,
			Budget:    a.Total,
			Used:      used,
			Remaining: remaining,
			Low:       IsLow(remaining, a.Total, lowPercent),
		})
	}
	return out
}
