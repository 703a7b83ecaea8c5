package adapters

import (
	"context"

	"allocation-tracker/internal/amqp"
	"allocation-tracker/internal/ledger"
	"allocation-tracker/internal/log"
)

// EventPublisher is satisfied by *amqp.Client.
type EventPublisher interface {
	PublishLedgerEvent(ctx context.Context, msg *amqp.LedgerEventMessage) error
}

// LedgerEventPublisher forwards committed ledger mutations to the message
// broker so the export worker can mirror them. Publish failures are logged;
// the ledger has already been persisted.
type LedgerEventPublisher struct {
	publisher EventPublisher
	logger    *log.Logger
}

var _ ledger.Observer = (*LedgerEventPublisher)(nil)

func NewLedgerEventPublisher(publisher EventPublisher, logger *log.Logger) *LedgerEventPublisher {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &LedgerEventPublisher{
		publisher: publisher,
		logger:    logger.WithComponent(log.ComponentAMQP),
	}
}

// LedgerChanged implements ledger.Observer
func (p *LedgerEventPublisher) LedgerChanged(ctx context.Context, ev ledger.Event) {
	msg := ToMessage(ev)
	if msg == nil {
		return
	}
	// request cancellation must not drop an event for an already persisted change
	if err := p.publisher.PublishLedgerEvent(context.WithoutCancel(ctx), msg); err != nil {
		p.logger.ErrorContext(ctx, "Failed to publish ledger event",
			log.FieldOperation, log.OpPublish,
			log.FieldEventKind, msg.Kind,
			log.FieldMessageID, msg.ID,
			log.FieldError, err)
		return
	}
	p.logger.DebugContext(ctx, "Published ledger event",
		log.FieldEventKind, msg.Kind,
		log.FieldMessageID, msg.ID)
}

// ToMessage maps a ledger event to its wire form; unknown kinds map to nil.
func ToMessage(ev ledger.Event) *amqp.LedgerEventMessage {
	switch ev.Kind {
	case ledger.EventPaymentAdded:
		return amqp.NewPaymentAddedMessage(string(ev.Type), ev.Name, ev.Record, ev.Remaining)
	case ledger.EventLedgerReset:
		return amqp.NewLedgerResetMessage(ev.At)
	default:
		return nil
	}
}
