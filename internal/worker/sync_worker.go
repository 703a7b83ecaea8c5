package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"allocation-tracker/internal/amqp"
	"allocation-tracker/internal/sheets"
)

// SyncWorker mirrors ledger events into a spreadsheet.
type SyncWorker struct {
	sheets sheets.EventWriter

	synced atomic.Int64
	failed atomic.Int64
}

func NewSyncWorker(writer sheets.EventWriter) *SyncWorker {
	return &SyncWorker{sheets: writer}
}

// HandleLedgerEvent processes a single ledger event message from AMQP. An
// error makes the consumer requeue the message.
func (w *SyncWorker) HandleLedgerEvent(ctx context.Context, msg *amqp.LedgerEventMessage) error {
	slog.InfoContext(ctx, "Processing ledger event",
		"message_id", msg.ID,
		"kind", msg.Kind,
		"allocation", msg.Allocation)

	row := sheets.Row{
		EventID:     msg.ID,
		Kind:        msg.Kind,
		Allocation:  msg.Allocation,
		Name:        msg.AllocationName,
		Amount:      msg.Amount,
		Remaining:   msg.Remaining,
		Notes:       msg.Notes,
		Date:        msg.Date,
		DisplayDate: msg.DisplayDate,
	}

	ref, err := w.sheets.AppendEvent(ctx, row)
	if err != nil {
		w.failed.Add(1)
		return fmt.Errorf("append to sheets: %w", err)
	}
	w.synced.Add(1)

	slog.InfoContext(ctx, "Successfully synced ledger event",
		"message_id", msg.ID,
		"sheets_ref", ref,
		"amount", msg.Amount.String())
	return nil
}

// Stats returns how many events were exported and how many failed since start.
func (w *SyncWorker) Stats() (synced, failed int64) {
	return w.synced.Load(), w.failed.Load()
}

// ReportStats logs counters every interval until ctx is done.
func (w *SyncWorker) ReportStats(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			synced, failed := w.Stats()
			slog.InfoContext(ctx, "Sync worker status", "synced", synced, "failed", failed)
		}
	}
}
