package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"allocation-tracker/internal/config"
	"allocation-tracker/internal/core"
	"allocation-tracker/internal/log"
)

func TestConfirm(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"y\n", true},
		{"YES\n", true},
		{"n\n", false},
		{"\n", false},
		{"", false},
		{"y", true},
	}
	for _, tt := range tests {
		var out bytes.Buffer
		got, err := Confirm(strings.NewReader(tt.input), &out, "Reset?")
		if err != nil {
			t.Fatalf("Confirm(%q) error = %v", tt.input, err)
		}
		if got != tt.want {
			t.Errorf("Confirm(%q) = %v, want %v", tt.input, got, tt.want)
		}
		if out.String() != "Reset? [y/N]: " {
			t.Errorf("prompt = %q", out.String())
		}
	}
}

func TestOpenLedgerSQLite(t *testing.T) {
	t.Setenv("DATA_BACKEND", "sqlite")
	t.Setenv("SQLITE_DB_PATH", filepath.Join(t.TempDir(), "ledger.db"))
	t.Setenv("SEED_HISTORY", "true")

	cfg, err := LoadAndValidateConfig()
	if err != nil {
		t.Fatalf("LoadAndValidateConfig() error = %v", err)
	}

	ctx := context.Background()
	h, err := OpenLedger(ctx, cfg, log.Discard())
	if err != nil {
		t.Fatalf("OpenLedger() error = %v", err)
	}
	used := h.Service.TotalUsed(core.HirePurchase)
	if !used.Equal(core.MoneyFromInt(5800)) {
		t.Errorf("seeded hp used = %s, want 5800", used)
	}
	if _, err := h.Service.AddPayment(ctx, core.Mortgage, core.MoneyFromInt(100), "cli"); err != nil {
		t.Fatalf("AddPayment() error = %v", err)
	}
	if err := h.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	// the payment survives a reopen
	h, err = OpenLedger(ctx, cfg, log.Discard())
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer h.Close()
	if got := h.Service.TotalUsed(core.Mortgage); !got.Equal(core.MoneyFromInt(4324)) {
		t.Errorf("mortgage used = %s, want 4324", got)
	}
}

func TestOpenLedgerCustomAllocations(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("DATA_BACKEND", "sqlite")
	t.Setenv("SQLITE_DB_PATH", filepath.Join(dir, "ledger.db"))
	t.Setenv("SEED_HISTORY", "false")
	t.Setenv("ALLOCATIONS_FILE", writeFile(t, dir, "allocations.toml", `
[[allocation]]
type = "car"
name = "Car Loan"
total = 5000
`))

	cfg := config.Load()
	h, err := OpenLedger(context.Background(), cfg, log.Discard())
	if err != nil {
		t.Fatalf("OpenLedger() error = %v", err)
	}
	defer h.Close()

	summary := h.Service.Summary()
	if len(summary) != 1 || summary[0].Name != "Car Loan" || !summary[0].Remaining.Equal(core.MoneyFromInt(5000)) {
		t.Errorf("summary = %+v", summary)
	}
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}
