package http

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"allocation-tracker/internal/core"
)

func TestRequestBodyParser(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		contentType string
		key         string
		want        string
		wantJSON    bool
	}{
		{"form", "type=hp&amount=3000", "application/x-www-form-urlencoded", "amount", "3000", false},
		{"json number", `{"amount": 2800.5}`, "application/json", "amount", "2800.5", true},
		{"json string", `{"notes": "  Dec  "}`, "application/json", "notes", "Dec", true},
		{"control characters stripped", "notes=a%00b", "application/x-www-form-urlencoded", "notes", "ab", false},
		{"missing key", "type=hp", "application/x-www-form-urlencoded", "notes", "", false},
		{"empty body", "", "", "amount", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/payments", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", tt.contentType)
			p := NewRequestBodyParser(req)
			if err := p.Parse(); err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			if got := p.Get(tt.key); got != tt.want {
				t.Errorf("Get(%q) = %q, want %q", tt.key, got, tt.want)
			}
			if p.IsJSON() != tt.wantJSON {
				t.Errorf("IsJSON() = %v", p.IsJSON())
			}
		})
	}
}

func TestRequestBodyParserRejectsOversizedBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/payments", strings.NewReader("notes="+strings.Repeat("a", maxBodyBytes)))
	p := NewRequestBodyParser(req)
	if err := p.Parse(); !errors.Is(err, errBodyTooLarge) {
		t.Fatalf("Parse() error = %v, want errBodyTooLarge", err)
	}
}

func TestParsePaymentRequest(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/payments", strings.NewReader("type=hp&amount=2800,50&notes=Jan"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	got, err := ParsePaymentRequest(NewRequestBodyParser(req), core.AllowZero)
	if err != nil {
		t.Fatalf("ParsePaymentRequest() error = %v", err)
	}
	want, _ := core.ParseMoney("2800.50")
	if got.Type != core.HirePurchase || !got.Amount.Equal(want) || got.Notes != "Jan" {
		t.Errorf("got %+v", got)
	}
}

func TestParsePaymentRequestInvalidAmount(t *testing.T) {
	for _, policy := range []core.ZeroPolicy{core.AllowZero, core.RejectZero} {
		req := httptest.NewRequest(http.MethodPost, "/payments", strings.NewReader("type=hp&amount="))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

		_, err := ParsePaymentRequest(NewRequestBodyParser(req), policy)
		if !errors.Is(err, core.ErrInvalidAmount) || !core.IsValidation(err) {
			t.Errorf("policy %s: error = %v", policy, err)
		}
	}
}

func TestHistoryAmount(t *testing.T) {
	if got := historyAmount(core.Zero); got != "RM 0.00" {
		t.Errorf("zero = %q", got)
	}
	if got := historyAmount(core.MoneyFromInt(2524)); got != "-RM 2,524.00" {
		t.Errorf("debit = %q", got)
	}
}

func TestSanitizeInput(t *testing.T) {
	if got := sanitizeInput("  a\x07b\tc  "); got != "ab\tc" {
		t.Errorf("sanitizeInput() = %q", got)
	}
}
