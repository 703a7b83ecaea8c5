package http

import (
	"bytes"
	"context"
	"errors"
	"html/template"
	"io/fs"
	"net/http"
	"time"

	"allocation-tracker/internal/core"
	"allocation-tracker/internal/log"
)

var templateFuncs = template.FuncMap{
	"remainingClass": func(low bool) string {
		if low {
			return "remaining low"
		}
		return "remaining"
	},
}

type pageData struct {
	Cards   []cardView
	History []historyView
}

func (s *Server) pageData() pageData {
	return pageData{
		Cards:   cardViews(s.ledger.Summary()),
		History: historyViews(s.ledger.History()),
	}
}

// render executes into a buffer first so a template error never leaves a
// half-written page.
func (s *Server) render(w http.ResponseWriter, r *http.Request, name string, data any) {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		s.logger.ErrorContext(r.Context(), "Template execution failed",
			log.FieldOperation, log.OpRender,
			"template", name,
			log.FieldError, err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-cache")
	s.render(w, r, "index.html", s.pageData())
}

func (s *Server) handleSummaryPartial(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, "summary", s.pageData())
}

func (s *Server) handleHistoryPartial(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, "history", s.pageData())
}

func (s *Server) handleCreatePayment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	parser := NewRequestBodyParser(r)
	asJSON := wantsJSON(r, parser)

	req, err := ParsePaymentRequest(parser, s.ledger.Policy())
	if err != nil {
		s.writeError(w, r, asJSON, err)
		return
	}

	rec, err := s.ledger.AddPayment(ctx, req.Type, req.Amount, req.Notes)
	if err != nil {
		s.writeError(w, r, asJSON, err)
		return
	}
	remaining, _ := s.ledger.Remaining(req.Type)

	if asJSON {
		writeJSON(w, http.StatusCreated, map[string]any{
			"type":      req.Type,
			"record":    rec,
			"remaining": remaining,
		})
		return
	}
	// the empty body clears the form's error slot
	NewHTMXResponse().
		TriggerPaymentCreated(string(req.Type), remaining.Format()).
		TriggerSuccessNotification("Payment of " + rec.Amount.Format() + " recorded").
		BodyHTML("").
		Write(w)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	parser := NewRequestBodyParser(r)
	asJSON := wantsJSON(r, parser)
	if err := parser.Parse(); err != nil {
		s.writeError(w, r, asJSON, err)
		return
	}
	if parser.Get("confirm") != "yes" {
		const msg = "Reset requires confirmation"
		if asJSON {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
			return
		}
		BadRequestError(msg).Write(w)
		return
	}

	if err := s.ledger.Reset(r.Context()); err != nil {
		s.writeError(w, r, asJSON, err)
		return
	}

	if asJSON {
		writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
		return
	}
	NewHTMXResponse().
		TriggerLedgerReset().
		TriggerSuccessNotification("Month reset! Ready for new payments.").
		BodyHTML("").
		Write(w)
}

// writeError maps ledger errors onto status codes: validation failures are
// the user's to fix, anything else is ours.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, asJSON bool, err error) {
	status := http.StatusInternalServerError
	msg := "Something went wrong, please try again"

	var ve *core.ValidationError
	switch {
	case errors.As(err, &ve):
		status = http.StatusUnprocessableEntity
		msg = ve.Error()
	case errors.Is(err, errBodyTooLarge):
		status = http.StatusRequestEntityTooLarge
		msg = "Request too large"
	case errors.Is(err, errMalformedBody):
		status = http.StatusBadRequest
		msg = "Invalid request format"
	default:
		s.logger.ErrorContext(r.Context(), "Ledger operation failed",
			log.FieldPath, r.URL.Path,
			log.FieldError, err)
	}

	if asJSON {
		writeJSON(w, status, map[string]string{"error": msg})
		return
	}
	ErrorResponse(status, msg).Write(w)
}

func (s *Server) handleExportLedger(w http.ResponseWriter, r *http.Request) {
	data, err := s.ledger.Export()
	if err != nil {
		s.writeError(w, r, true, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `inline; filename="allocationData.json"`)
	_, _ = w.Write(data)
}

func (s *Server) handleSummaryJSON(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, summaryPayload(s.ledger.Summary()))
}

func (s *Server) handleServiceWorker(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/javascript; charset=utf-8")
	w.Header().Set("Service-Worker-Allowed", "/")
	w.Header().Set("Cache-Control", "no-cache")
	_, _ = w.Write(s.swScript)
}

func (s *Server) handleWebManifest(w http.ResponseWriter, r *http.Request) {
	data, err := fs.ReadFile(s.static, "manifest.json")
	if err != nil {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/manifest+json")
	w.Header().Set("Cache-Control", "no-cache")
	_, _ = w.Write(data)
}

// shellAsset serves one embedded file at the worker's scope root.
func (s *Server) shellAsset(name string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-cache")
		http.ServeFileFS(w, r, s.static, name)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.startedAt).Round(time.Second).String(),
	})
}

// handleReady verifies the ledger store is reachable.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status, code := "ready", http.StatusOK
	checks := map[string]string{"templates": "ok", "store": "ok"}
	if err := s.ledger.Ping(ctx); err != nil {
		checks["store"] = "failed: " + err.Error()
		status, code = "not_ready", http.StatusServiceUnavailable
	}

	writeJSON(w, code, map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	})
}
