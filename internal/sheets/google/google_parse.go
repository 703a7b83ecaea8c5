package google

import (
	"fmt"
	"strings"
	"time"

	"allocation-tracker/internal/core"
	"allocation-tracker/internal/sheets"
)

// Column layout of the payments sheet.
var header = []any{"Date", "Allocation", "Amount", "Remaining", "Notes", "Event", "Event ID", "Timestamp"}

const idColumn = "G"

func eventRow(r sheets.Row) []any {
	if r.Kind == "ledger.reset" {
		return []any{r.Date.Format(core.DisplayDateLayout), "", "", "", "Ledger reset", r.Kind, r.EventID, r.Date.Format(time.RFC3339)}
	}
	return []any{
		r.DisplayDate,
		r.Name,
		r.Amount.Float64(),
		r.Remaining.Float64(),
		r.Notes,
		r.Kind,
		r.EventID,
		r.Date.Format(time.RFC3339),
	}
}

// parseRows converts a values matrix (as returned by Sheets API) back into
// rows. The header row and blank rows are skipped.
func parseRows(values [][]any) ([]sheets.Row, error) {
	var out []sheets.Row
	for i, raw := range values {
		row := toStrings(raw)
		if len(row) == 0 || (i == 0 && safeGet(row, 0) == "Date") {
			continue
		}
		id := safeGet(row, 6)
		if id == "" {
			continue
		}
		r := sheets.Row{
			DisplayDate: safeGet(row, 0),
			Name:        safeGet(row, 1),
			Notes:       safeGet(row, 4),
			Kind:        safeGet(row, 5),
			EventID:     id,
		}
		if v := safeGet(row, 2); v != "" {
			m, err := core.ParseMoney(strings.ReplaceAll(v, ",", ""))
			if err != nil {
				return nil, fmt.Errorf("row %d: invalid amount %q", i+1, v)
			}
			r.Amount = m
		}
		if v := safeGet(row, 3); v != "" {
			m, err := core.ParseMoney(strings.ReplaceAll(v, ",", ""))
			if err != nil {
				return nil, fmt.Errorf("row %d: invalid remaining %q", i+1, v)
			}
			r.Remaining = m
		}
		if v := safeGet(row, 7); v != "" {
			ts, err := time.Parse(time.RFC3339, v)
			if err != nil {
				return nil, fmt.Errorf("row %d: invalid timestamp %q", i+1, v)
			}
			r.Date = ts
		}
		out = append(out, r)
	}
	return out, nil
}

func toStrings(in []any) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

func safeGet(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}
