package google

import (
	"testing"
	"time"

	"allocation-tracker/internal/core"
	"allocation-tracker/internal/sheets"
)

func TestEventRow(t *testing.T) {
	date := time.Date(2024, 12, 30, 0, 0, 0, 0, time.UTC)
	row := eventRow(sheets.Row{
		EventID:     "evt-1",
		Kind:        "payment.added",
		Allocation:  "hp",
		Name:        "Hire Purchase",
		Amount:      core.MoneyFromInt(3000),
		Remaining:   core.MoneyFromInt(30000),
		Notes:       "First payment Dec",
		Date:        date,
		DisplayDate: "30 Dec 2024",
	})
	if len(row) != len(header) {
		t.Fatalf("row has %d columns, header has %d", len(row), len(header))
	}
	if row[0] != "30 Dec 2024" || row[1] != "Hire Purchase" || row[2] != 3000.0 || row[6] != "evt-1" {
		t.Errorf("unexpected row: %v", row)
	}

	reset := eventRow(sheets.Row{EventID: "evt-2", Kind: "ledger.reset", Date: date})
	if reset[4] != "Ledger reset" || reset[2] != "" {
		t.Errorf("unexpected reset row: %v", reset)
	}
}

func TestParseRows(t *testing.T) {
	values := [][]any{
		header,
		{"30 Dec 2024", "Hire Purchase", "3,000.00", "30000", "First payment Dec", "payment.added", "evt-1", "2024-12-30T00:00:00Z"},
		{},
		{"31 Dec 2024", "", "", "", "Ledger reset", "ledger.reset", "evt-2", "2024-12-31T00:00:00Z"},
		{"no id row"},
	}
	rows, err := parseRows(values)
	if err != nil {
		t.Fatalf("parseRows() error = %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0].EventID != "evt-1" || !rows[0].Amount.Equal(core.MoneyFromInt(3000)) || rows[0].Name != "Hire Purchase" {
		t.Errorf("unexpected first row: %+v", rows[0])
	}
	if rows[1].Kind != "ledger.reset" || !rows[1].Amount.IsZero() {
		t.Errorf("unexpected reset row: %+v", rows[1])
	}

	if _, err := parseRows([][]any{{"x", "y", "lots", "", "", "payment.added", "evt-3"}}); err == nil {
		t.Error("expected error for invalid amount")
	}
}
