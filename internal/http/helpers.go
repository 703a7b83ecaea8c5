package http

import (
	"strings"

	"allocation-tracker/internal/core"
)

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

type cardView struct {
	Type      string
	Name      string
	Budget    string
	Used      string
	Remaining string
	Low       bool
}

type historyView struct {
	Type        string
	Name        string
	DisplayDate string
	Notes       string
	Amount      string
	Zero        bool
}

func cardViews(summary []core.AllocationSummary) []cardView {
	out := make([]cardView, 0, len(summary))
	for _, s := range summary {
		out = append(out, cardView{
			Type:      string(s.Type),
			Name:      s.Name,
			Budget:    s.Budget.Format(),
			Used:      s.Used.Format(),
			Remaining: s.Remaining.Format(),
			Low:       s.Low,
		})
	}
	return out
}

func historyViews(history []core.HistoryEntry) []historyView {
	out := make([]historyView, 0, len(history))
	for _, h := range history {
		out = append(out, historyView{
			Type:        string(h.Type),
			Name:        h.Name,
			DisplayDate: h.DisplayDate,
			Notes:       h.Notes,
			Amount:      historyAmount(h.Amount),
			Zero:        h.Amount.IsZero(),
		})
	}
	return out
}

// historyAmount renders a disbursement as a debit; zero entries stay unsigned.
func historyAmount(m core.Money) string {
	if m.IsZero() {
		return core.Zero.Format()
	}
	return "-" + m.Format()
}

// summaryJSON is the /api/summary representation.
type summaryJSON struct {
	Type      core.AllocationType `json:"type"`
	Name      string              `json:"name"`
	Budget    core.Money          `json:"budget"`
	Used      core.Money          `json:"used"`
	Remaining core.Money          `json:"remaining"`
	Low       bool                `json:"low"`
}

func summaryPayload(summary []core.AllocationSummary) []summaryJSON {
	out := make([]summaryJSON, 0, len(summary))
	for _, s := range summary {
		out = append(out, summaryJSON{
			Type:      s.Type,
			Name:      s.Name,
			Budget:    s.Budget,
			Used:      s.Used,
			Remaining: s.Remaining,
			Low:       s.Low,
		})
	}
	return out
}
