package adapters

import (
	"context"
	"errors"
	"testing"
	"time"

	"allocation-tracker/internal/amqp"
	"allocation-tracker/internal/core"
	"allocation-tracker/internal/ledger"
	"allocation-tracker/internal/log"
)

type fakePublisher struct {
	msgs []*amqp.LedgerEventMessage
	err  error
}

func (f *fakePublisher) PublishLedgerEvent(_ context.Context, msg *amqp.LedgerEventMessage) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msg)
	return nil
}

func TestLedgerEventPublisher(t *testing.T) {
	fake := &fakePublisher{}
	p := NewLedgerEventPublisher(fake, log.Discard())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p.LedgerChanged(ctx, ledger.Event{
		Kind:      ledger.EventPaymentAdded,
		Type:      core.HirePurchase,
		Name:      "Hire Purchase",
		Record:    core.PaymentRecord{Amount: core.MoneyFromInt(3000), Notes: "first"},
		Remaining: core.MoneyFromInt(30000),
	})
	p.LedgerChanged(ctx, ledger.Event{Kind: ledger.EventLedgerReset, At: time.Now()})
	p.LedgerChanged(ctx, ledger.Event{Kind: "something.else"})

	if len(fake.msgs) != 2 {
		t.Fatalf("published %d messages, want 2", len(fake.msgs))
	}
	if fake.msgs[0].Kind != amqp.KindPaymentAdded || fake.msgs[0].Allocation != "hp" || fake.msgs[0].Notes != "first" {
		t.Errorf("unexpected payment message: %+v", fake.msgs[0])
	}
	if fake.msgs[1].Kind != amqp.KindLedgerReset {
		t.Errorf("unexpected reset message: %+v", fake.msgs[1])
	}
}

func TestLedgerEventPublisherSwallowsErrors(t *testing.T) {
	fake := &fakePublisher{err: errors.New("broker down")}
	p := NewLedgerEventPublisher(fake, log.Discard())

	// must not panic or block
	p.LedgerChanged(context.Background(), ledger.Event{Kind: ledger.EventLedgerReset})
	if len(fake.msgs) != 0 {
		t.Error("nothing should be recorded on failure")
	}
}
