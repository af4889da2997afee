package http

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"ledgerfusion/internal/core"
	"ledgerfusion/internal/report"
)

func (s *Server) handleAddRecord(w http.ResponseWriter, r *http.Request) {
	if !s.hasSession(r, manageScope) {
		http.Redirect(w, r, "/manage", http.StatusSeeOther)
		return
	}
	if err := r.ParseForm(); err != nil {
		htmlError(w, http.StatusBadRequest, "invalid request")
		return
	}

	tx, err := parseTransactionForm(r.Form.Get, time.Now())
	if err != nil {
		http.Redirect(w, r, "/manage?error="+url.QueryEscape(err.Error()), http.StatusSeeOther)
		return
	}

	month, err := s.records.AddTransaction(r.Context(), tx)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to append transaction",
			"category", tx.Category, "error", err)
		http.Redirect(w, r, "/manage?error="+url.QueryEscape("failed to save record"), http.StatusSeeOther)
		return
	}

	s.summaryCache.Delete(month)
	http.Redirect(w, r, "/manage?notice="+url.QueryEscape("saved to "+month), http.StatusSeeOther)
}

func (s *Server) handleExportReport(w http.ResponseWriter, r *http.Request) {
	if !s.hasSession(r, manageScope) {
		http.Redirect(w, r, "/manage", http.StatusSeeOther)
		return
	}
	if err := r.ParseForm(); err != nil {
		htmlError(w, http.StatusBadRequest, "invalid request")
		return
	}
	ctx := r.Context()

	var id string
	var err error
	switch {
	case r.Form.Get("year") != "":
		var year int
		year, err = strconv.Atoi(strings.TrimSpace(r.Form.Get("year")))
		if err != nil {
			http.Redirect(w, r, "/manage?error="+url.QueryEscape("invalid year"), http.StatusSeeOther)
			return
		}
		id, err = s.exporter.ExportYear(ctx, year)
	case r.Form.Get("start") != "" && r.Form.Get("end") != "":
		id, err = s.exporter.ExportRange(ctx,
			strings.TrimSpace(r.Form.Get("start")),
			strings.TrimSpace(r.Form.Get("end")))
	case r.Form.Get("month") != "":
		id, err = s.exporter.ExportMonth(ctx, strings.TrimSpace(r.Form.Get("month")))
	default:
		http.Redirect(w, r, "/manage?error="+url.QueryEscape("choose a month, range, or year"), http.StatusSeeOther)
		return
	}

	if err != nil {
		if errors.Is(err, report.ErrNoData) {
			http.Redirect(w, r, "/manage?error="+url.QueryEscape("no records in that period"), http.StatusSeeOther)
			return
		}
		if errors.Is(err, core.ErrInvalidMonth) || errors.Is(err, core.ErrInvalidYear) {
			http.Redirect(w, r, "/manage?error="+url.QueryEscape("invalid period"), http.StatusSeeOther)
			return
		}
		slog.ErrorContext(ctx, "Report export failed", "error", err)
		http.Redirect(w, r, "/manage?error="+url.QueryEscape("export failed"), http.StatusSeeOther)
		return
	}

	http.Redirect(w, r, "/report/"+id, http.StatusSeeOther)
}

// parseTransactionForm builds a transaction from form values. The date field
// accepts "YYYY-MM-DD" and the shorthands "1" for today, "-1" for yesterday,
// "-2" and "-3" for the days before.
func parseTransactionForm(get func(string) string, now time.Time) (core.Transaction, error) {
	date, err := parseDateField(sanitizeInput(get("date")), now)
	if err != nil {
		return core.Transaction{}, err
	}
	amount, err := core.ParseAmount(sanitizeInput(get("amount")))
	if err != nil {
		return core.Transaction{}, err
	}
	kind, err := core.ParseKind(sanitizeInput(get("type")))
	if err != nil {
		return core.Transaction{}, err
	}

	tx := core.Transaction{
		Date:     date,
		Category: sanitizeInput(get("category")),
		Amount:   amount,
		Kind:     kind,
		Note:     sanitizeInput(get("note")),
	}
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, err
	}
	return tx, nil
}

func parseDateField(raw string, now time.Time) (time.Time, error) {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	switch raw {
	case "", "1":
		return today, nil
	case "-1":
		return today.AddDate(0, 0, -1), nil
	case "-2":
		return today.AddDate(0, 0, -2), nil
	case "-3":
		return today.AddDate(0, 0, -3), nil
	}
	return core.ParseDate(raw)
}
