package core

import (
	"fmt"
	"sort"
)

// ZeroPolicy decides whether a zero-amount payment is admitted.
type ZeroPolicy string

const (
	// AllowZero admits "RM 0.00" placeholder entries, e.g. a transfer with no allocation.
	AllowZero ZeroPolicy = "allow"
	// RejectZero requires strictly positive amounts.
	RejectZero ZeroPolicy = "reject"
)

func (p ZeroPolicy) IsValid() bool {
	return p == AllowZero || p == RejectZero
}

// Ledger maps each allocation type to its payments in insertion order.
type Ledger map[AllocationType][]PaymentRecord

// HistoryEntry is a record annotated with the allocation it belongs to.
type HistoryEntry struct {
	Type AllocationType
	Name string
	PaymentRecord
}

// NewLedger returns a ledger with an empty sequence for every type.
func NewLedger(types []AllocationType) Ledger {
	l := make(Ledger, len(types))
	for _, t := range types {
		l[t] = []PaymentRecord{}
	}
	return l
}

// Clone returns a deep copy; record slices are not shared.
func (l Ledger) Clone() Ledger {
	out := make(Ledger, len(l))
	for t, recs := range l {
		out[t] = append([]PaymentRecord{}, recs...)
	}
	return out
}

// Ensure adds empty sequences for configured types missing from l.
func (l Ledger) Ensure(types []AllocationType) {
	for _, t := range types {
		if l[t] == nil {
			l[t] = []PaymentRecord{}
		}
	}
}

// TotalUsed sums every amount recorded against t.
func (l Ledger) TotalUsed(t AllocationType) Money {
	total := Zero
	for _, p := range l[t] {
		total = total.Add(p.Amount)
	}
	return total
}

// Count returns the number of records across all types.
func (l Ledger) Count() int {
	n := 0
	for _, recs := range l {
		n += len(recs)
	}
	return n
}

// Remaining is the allocation budget minus everything used so far.
func Remaining(a Allocation, l Ledger) Money {
	return a.Total.Sub(l.TotalUsed(a.Type))
}

// ValidateAmount checks the amount alone against policy.
func ValidateAmount(amount Money, policy ZeroPolicy) error {
	if amount.IsNegative() || (policy == RejectZero && amount.IsZero()) {
		return InvalidAmount(policy)
	}
	return nil
}

// InvalidAmount is the error for a missing, malformed or out-of-range amount.
func InvalidAmount(policy ZeroPolicy) error {
	msg := "Please enter a valid amount (0 or greater)"
	if policy == RejectZero {
		msg = "Please enter a valid amount greater than 0"
	}
	return &ValidationError{Field: "amount", Message: msg, Err: ErrInvalidAmount}
}

// ValidatePayment checks that a payment can be admitted against a.
// It performs no mutation.
func ValidatePayment(a Allocation, l Ledger, amount Money, notes string, policy ZeroPolicy) error {
	if err := ValidateAmount(amount, policy); err != nil {
		return err
	}
	remaining := Remaining(a, l)
	if amount.GreaterThan(remaining) {
		return &ValidationError{
			Field:   "amount",
			Message: fmt.Sprintf("Payment exceeds remaining allocation! Only %s left.", remaining.Format()),
			Err:     ErrExceedsRemaining,
		}
	}
	return validateNotes(notes)
}

// UnknownAllocation builds the error for a type that is not configured.
func UnknownAllocation(t AllocationType) error {
	return &ValidationError{
		Field:   "type",
		Message: fmt.Sprintf("Unknown allocation %q", string(t)),
		Err:     ErrUnknownAllocation,
	}
}

// History flattens l into display order: most recent first, ties kept in
// insertion order. Insertion order across types follows allocs, then any
// persisted types that are no longer configured, by key.
func History(allocs Allocations, l Ledger) []HistoryEntry {
	types := allocs.Types()
	var extra []AllocationType
	for t := range l {
		if _, ok := allocs.Get(t); !ok {
			extra = append(extra, t)
		}
	}
	sort.Slice(extra, func(i, j int) bool { return extra[i] < extra[j] })
	types = append(types, extra...)

	out := make([]HistoryEntry, 0, l.Count())
	for _, t := range types {
		name := string(t)
		if a, ok := allocs.Get(t); ok {
			name = a.Name
		}
		for _, p := range l[t] {
			out = append(out, HistoryEntry{Type: t, Name: name, PaymentRecord: p})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date.After(out[j].Date)
	})
	return out
}
