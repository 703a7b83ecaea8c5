package ledger

import (
	_ "embed"
	"encoding/json"
	"fmt"

	"allocation-tracker/internal/core"
)

//go:embed seed.json
var seedJSON []byte

// HistoricalSeed returns the payments recorded before the tracker existed.
// Each call returns a fresh copy.
func HistoricalSeed() (core.Ledger, error) {
	var l core.Ledger
	if err := json.Unmarshal(seedJSON, &l); err != nil {
		return nil, fmt.Errorf("decode historical seed: %w", err)
	}
	return l, nil
}

// initialLedger builds the first-run state for allocs, keeping only seed
// entries whose type is configured.
func initialLedger(allocs core.Allocations, seed core.Ledger) core.Ledger {
	l := core.NewLedger(allocs.Types())
	for t, recs := range seed {
		if _, ok := allocs.Get(t); ok {
			l[t] = append([]core.PaymentRecord{}, recs...)
		}
	}
	return l
}
