package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	HirePurchase AllocationType = "hp"
	Mortgage     AllocationType = "mortgage"
)

type (
	// AllocationType identifies one fixed budget pool.
	AllocationType string

	Allocation struct {
		Type  AllocationType
		Name  string
		Total Money
	}

	// PaymentRecord is a single logged disbursement. Records are never mutated.
	PaymentRecord struct {
		Amount      Money     `json:"amount"`
		Date        time.Time `json:"date"`
		DisplayDate string    `json:"displayDate"`
		Notes       string    `json:"notes"`
	}

	// Allocations is the static, ordered set of budget pools.
	Allocations struct {
		order  []AllocationType
		byType map[AllocationType]Allocation
	}
)

// DisplayDateLayout renders dates as "18 Dec 2024".
const DisplayDateLayout = "02 Jan 2006"

const maxNotesLength = 500

var (
	ErrEmptyAllocationType = errors.New("empty allocation type")
	ErrDuplicateAllocation = errors.New("duplicate allocation type")
	ErrNegativeBudget      = errors.New("allocation budget cannot be negative")
)

// NewAllocations builds an ordered allocation set. Declaration order is display order.
func NewAllocations(list ...Allocation) (Allocations, error) {
	a := Allocations{byType: make(map[AllocationType]Allocation, len(list))}
	for _, al := range list {
		al.Type = AllocationType(strings.TrimSpace(string(al.Type)))
		if al.Type == "" {
			return Allocations{}, ErrEmptyAllocationType
		}
		if _, dup := a.byType[al.Type]; dup {
			return Allocations{}, fmt.Errorf("%w: %s", ErrDuplicateAllocation, al.Type)
		}
		if al.Total.IsNegative() {
			return Allocations{}, fmt.Errorf("%w: %s", ErrNegativeBudget, al.Type)
		}
		if strings.TrimSpace(al.Name) == "" {
			al.Name = string(al.Type)
		}
		a.order = append(a.order, al.Type)
		a.byType[al.Type] = al
	}
	return a, nil
}

// DefaultAllocations returns the hire-purchase and mortgage pools.
func DefaultAllocations() Allocations {
	a, _ := NewAllocations(
		Allocation{Type: HirePurchase, Name: "Hire Purchase", Total: MoneyFromInt(33000)},
		Allocation{Type: Mortgage, Name: "Mortgage", Total: MoneyFromInt(10000)},
	)
	return a
}

// Get returns the allocation for t.
func (a Allocations) Get(t AllocationType) (Allocation, bool) {
	al, ok := a.byType[t]
	return al, ok
}

// Types returns allocation keys in display order.
func (a Allocations) Types() []AllocationType {
	return append([]AllocationType(nil), a.order...)
}

// List returns allocations in display order.
func (a Allocations) List() []Allocation {
	out := make([]Allocation, 0, len(a.order))
	for _, t := range a.order {
		out = append(out, a.byType[t])
	}
	return out
}

func (a Allocations) Len() int { return len(a.order) }

// NewPaymentRecord stamps a record with now, rendering the display date in loc.
func NewPaymentRecord(amount Money, notes string, now time.Time, loc *time.Location) PaymentRecord {
	if loc == nil {
		loc = time.Local
	}
	return PaymentRecord{
		Amount:      amount,
		Date:        now.UTC(),
		DisplayDate: now.In(loc).Format(DisplayDateLayout),
		Notes:       strings.TrimSpace(notes),
	}
}

func validateNotes(notes string) error {
	if utf8.RuneCountInString(notes) > maxNotesLength {
		return &ValidationError{Field: "notes", Message: fmt.Sprintf("Notes too long (max %d characters)", maxNotesLength)}
	}
	return nil
}
