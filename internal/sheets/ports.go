package sheets

import (
	"context"
	"time"

	"allocation-tracker/internal/core"
)

// Row is one ledger event as exported to a spreadsheet.
type Row struct {
	EventID     string
	Kind        string
	Allocation  string
	Name        string
	Amount      core.Money
	Remaining   core.Money
	Notes       string
	Date        time.Time
	DisplayDate string
}

// Ports for outbound adapters.
type (
	// EventWriter appends ledger events. Writing an EventID that is already
	// present is a no-op, so redelivered messages do not duplicate rows.
	EventWriter interface {
		AppendEvent(ctx context.Context, row Row) (rowRef string, err error)
	}

	// EventLister reads exported events back, oldest first.
	EventLister interface {
		ListEvents(ctx context.Context) ([]Row, error)
	}
)
