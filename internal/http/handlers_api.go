package http

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"ledgerfusion/internal/core"
	"ledgerfusion/internal/report"
)

// monthSummary is the JSON shape of GET /api/report/{month}. An empty month
// yields the zero-valued summary, not an error.
type monthSummary struct {
	Month             string             `json:"month"`
	Income            float64            `json:"income"`
	Expense           float64            `json:"expense"`
	Net               float64            `json:"net"`
	IncomeByCategory  map[string]float64 `json:"income_by_category"`
	ExpenseByCategory map[string]float64 `json:"expense_by_category"`
	TransactionCount  int                `json:"transaction_count"`
}

// withAPIKey guards API handlers with the X-API-Key header.
func (s *Server) withAPIKey(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.apiKey == "" {
			writeJSONError(w, http.StatusServiceUnavailable, "API disabled")
			return
		}
		key := r.Header.Get("X-API-Key")
		if subtle.ConstantTimeCompare([]byte(key), []byte(s.apiKey)) != 1 {
			slog.WarnContext(r.Context(), "API request with bad key",
				"path", r.URL.Path,
				"client_ip", s.detector.ExtractClientIP(r))
			writeJSONError(w, http.StatusUnauthorized, "invalid API key")
			return
		}
		next(w, r)
	}
}

func (s *Server) handleAPIPing(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type apiAddRequest struct {
	Date     string `json:"date"`
	Category string `json:"category"`
	Amount   string `json:"amount"`
	Type     string `json:"type"`
	Note     string `json:"note"`
}

func (s *Server) handleAPIAdd(w http.ResponseWriter, r *http.Request) {
	var req apiAddRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	tx, err := parseTransactionForm(func(field string) string {
		switch field {
		case "date":
			return req.Date
		case "category":
			return req.Category
		case "amount":
			return req.Amount
		case "type":
			return req.Type
		case "note":
			return req.Note
		}
		return ""
	}, time.Now())
	if err != nil {
		writeJSONError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	month, err := s.records.AddTransaction(r.Context(), tx)
	if err != nil {
		slog.ErrorContext(r.Context(), "API append failed", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "failed to save record")
		return
	}
	s.summaryCache.Delete(month)

	writeJSON(w, http.StatusCreated, map[string]string{"month": month})
}

type apiExportRequest struct {
	Month string `json:"month"`
	Start string `json:"start"`
	End   string `json:"end"`
	Year  int    `json:"year"`
}

func (s *Server) handleAPIExport(w http.ResponseWriter, r *http.Request) {
	var req apiExportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	ctx := r.Context()
	var id string
	var err error
	switch {
	case req.Year != 0:
		id, err = s.exporter.ExportYear(ctx, req.Year)
	case req.Start != "" && req.End != "":
		id, err = s.exporter.ExportRange(ctx, req.Start, req.End)
	case req.Month != "":
		id, err = s.exporter.ExportMonth(ctx, req.Month)
	default:
		writeJSONError(w, http.StatusBadRequest, "specify month, start/end, or year")
		return
	}

	if err != nil {
		switch {
		case errors.Is(err, report.ErrNoData):
			writeJSONError(w, http.StatusNotFound, "no records in that period")
		case errors.Is(err, core.ErrInvalidMonth), errors.Is(err, core.ErrInvalidYear):
			writeJSONError(w, http.StatusUnprocessableEntity, "invalid period")
		default:
			slog.ErrorContext(ctx, "API export failed", "error", err)
			writeJSONError(w, http.StatusInternalServerError, "export failed")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"report": id})
}

func (s *Server) handleAPIReport(w http.ResponseWriter, r *http.Request) {
	month := r.PathValue("month")
	if _, err := core.ParseMonth(month); err != nil {
		writeJSONError(w, http.StatusUnprocessableEntity, "invalid month key")
		return
	}

	if summary, ok := s.summaryCache.Get(month); ok {
		writeJSON(w, http.StatusOK, summary)
		return
	}

	txs, err := s.store.Load(r.Context(), month)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to load month", "month", month, "error", err)
		writeJSONError(w, http.StatusInternalServerError, "failed to load month")
		return
	}

	summary := buildMonthSummary(month, txs)
	s.summaryCache.Set(month, summary)
	writeJSON(w, http.StatusOK, summary)
}

func buildMonthSummary(month string, txs []core.Transaction) monthSummary {
	periodReport := core.Summarize(month, txs)
	summary := monthSummary{
		Month:             month,
		Income:            periodReport.Income.Float(),
		Expense:           periodReport.Expense.Float(),
		Net:               periodReport.Net.Float(),
		IncomeByCategory:  map[string]float64{},
		ExpenseByCategory: map[string]float64{},
		TransactionCount:  len(txs),
	}
	for _, c := range periodReport.IncomeByCategory {
		summary.IncomeByCategory[c.Name] = c.Amount.Float()
	}
	for _, c := range periodReport.ExpenseByCategory {
		summary.ExpenseByCategory[c.Name] = c.Amount.Float()
	}
	return summary
}

type apiFiles struct {
	Months  []string `json:"months"`
	Reports []string `json:"reports"`
}

func (s *Server) handleAPIFiles(w http.ResponseWriter, r *http.Request) {
	months, err := s.store.Months()
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to list months", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "failed to list months")
		return
	}
	reports, err := s.exporter.List()
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to list reports", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "failed to list reports")
		return
	}

	files := apiFiles{Months: months, Reports: make([]string, 0, len(reports))}
	for _, rep := range reports {
		files.Reports = append(files.Reports, rep.ID)
	}
	writeJSON(w, http.StatusOK, files)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode JSON response", "error", err)
	}
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
