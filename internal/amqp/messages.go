package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"allocation-tracker/internal/core"
)

// Ledger event kinds, also used as message types on the wire.
const (
	KindPaymentAdded = "payment.added"
	KindLedgerReset  = "ledger.reset"
)

// LedgerEventMessage is published after every committed ledger mutation.
// Payment fields are zero for resets.
type LedgerEventMessage struct {
	ID             string     `json:"id"`
	Kind           string     `json:"kind"`
	Allocation     string     `json:"allocation,omitempty"`
	AllocationName string     `json:"allocation_name,omitempty"`
	Amount         core.Money `json:"amount"`
	Remaining      core.Money `json:"remaining"`
	Notes          string     `json:"notes,omitempty"`
	Date           time.Time  `json:"date"`
	DisplayDate    string     `json:"display_date,omitempty"`
	Timestamp      time.Time  `json:"timestamp"`
}

// NewPaymentAddedMessage builds the message for a recorded payment.
func NewPaymentAddedMessage(allocation, name string, rec core.PaymentRecord, remaining core.Money) *LedgerEventMessage {
	return &LedgerEventMessage{
		ID:             uuid.NewString(),
		Kind:           KindPaymentAdded,
		Allocation:     allocation,
		AllocationName: name,
		Amount:         rec.Amount,
		Remaining:      remaining,
		Notes:          rec.Notes,
		Date:           rec.Date,
		DisplayDate:    rec.DisplayDate,
		Timestamp:      time.Now(),
	}
}

// NewLedgerResetMessage builds the message for a full reset.
func NewLedgerResetMessage(at time.Time) *LedgerEventMessage {
	return &LedgerEventMessage{
		ID:        uuid.NewString(),
		Kind:      KindLedgerReset,
		Amount:    core.Zero,
		Remaining: core.Zero,
		Date:      at,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *LedgerEventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// LedgerEventMessageFromJSON parses and checks a message body.
func LedgerEventMessageFromJSON(data []byte) (*LedgerEventMessage, error) {
	var msg LedgerEventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	switch msg.Kind {
	case KindPaymentAdded:
		if msg.Allocation == "" {
			return nil, fmt.Errorf("payment message %s has no allocation", msg.ID)
		}
	case KindLedgerReset:
	default:
		return nil, fmt.Errorf("unknown message kind %q", msg.Kind)
	}
	return &msg, nil
}
