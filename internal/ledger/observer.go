package ledger

import (
	"context"
	"time"

	"allocation-tracker/internal/core"
)

type EventKind string

const (
	EventPaymentAdded EventKind = "payment.added"
	EventLedgerReset  EventKind = "ledger.reset"
)

// Event describes a committed mutation. Record and Remaining are only set
// for EventPaymentAdded.
type Event struct {
	Kind      EventKind
	Type      core.AllocationType
	Name      string
	Record    core.PaymentRecord
	Remaining core.Money
	At        time.Time
}

// Observer is notified after a mutation has been persisted.
type Observer interface {
	LedgerChanged(ctx context.Context, ev Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ctx context.Context, ev Event)

func (f ObserverFunc) LedgerChanged(ctx context.Context, ev Event) { f(ctx, ev) }
