package http

import (
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"os"
	"time"

	"ledgerfusion/internal/auth"
	"ledgerfusion/internal/core"
	"ledgerfusion/internal/report"
)

type indexData struct {
	Reports []report.ReportInfo
	Error   string
	Notice  string
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	reports, err := s.exporter.List()
	if err != nil {
		slog.ErrorContext(ctx, "Failed to list reports", "error", err)
	}

	s.render(w, r, "index.html", indexData{
		Reports: reports,
		Error:   r.URL.Query().Get("error"),
		Notice:  r.URL.Query().Get("notice"),
	})
}

type manageData struct {
	Today        string
	CurrentMonth string
	Months       []string
	Categories   []string
	Reports      []report.ReportInfo
	Transactions []core.Transaction
	Month        string
	Error        string
	Notice       string
}

func (s *Server) handleManage(w http.ResponseWriter, r *http.Request) {
	if !s.hasSession(r, manageScope) {
		s.render(w, r, "login.html", loginData{ReportID: manageScope, Action: "/report/" + manageScope})
		return
	}

	ctx := r.Context()
	months, err := s.store.Months()
	if err != nil {
		slog.ErrorContext(ctx, "Failed to list months", "error", err)
		http.Error(w, "failed to list months", http.StatusInternalServerError)
		return
	}
	categories, _ := s.store.Categories(ctx)
	reports, _ := s.exporter.List()

	// Show the requested month, defaulting to the latest one on file.
	month := r.URL.Query().Get("month")
	if month == "" && len(months) > 0 {
		month = months[len(months)-1]
	}
	var txs []core.Transaction
	if month != "" {
		if txs, err = s.store.Load(ctx, month); err != nil {
			slog.ErrorContext(ctx, "Failed to load month", "month", month, "error", err)
		}
	}

	now := time.Now()
	s.render(w, r, "manage.html", manageData{
		Today:        now.Format(core.DateLayout),
		CurrentMonth: now.Format(core.MonthLayout),
		Months:       months,
		Categories:   categories,
		Reports:      reports,
		Transactions: txs,
		Month:        month,
		Error:        r.URL.Query().Get("error"),
		Notice:       r.URL.Query().Get("notice"),
	})
}

type loginData struct {
	ReportID string
	Action   string
	Error    string
}

type reportViewData struct {
	ReportID string
	Content  template.HTML
	IsMonth  bool
}

func (s *Server) handleReportView(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if !s.hasSession(r, id) {
		s.render(w, r, "login.html", loginData{ReportID: id, Action: "/report/" + id})
		return
	}
	s.serveReport(w, r, id)
}

func (s *Server) handleReportLogin(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := r.ParseForm(); err != nil {
		htmlError(w, http.StatusBadRequest, "invalid request")
		return
	}

	password := r.Form.Get("password")
	if err := s.policy.Verify(id, password); err != nil {
		if errors.Is(err, auth.ErrNoCredential) {
			slog.ErrorContext(r.Context(), "No credential configured", "report", id)
			htmlError(w, http.StatusInternalServerError, "access not configured")
			return
		}
		slog.WarnContext(r.Context(), "Report login failed",
			"report", id,
			"client_ip", s.detector.ExtractClientIP(r))
		s.render(w, r, "login.html", loginData{
			ReportID: id,
			Action:   "/report/" + id,
			Error:    "Wrong password",
		})
		return
	}

	token, err := s.sessions.Issue(r.Context(), id)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to issue session", "report", id, "error", err)
		htmlError(w, http.StatusInternalServerError, "session error")
		return
	}
	s.setSessionCookie(w, token)

	if id == manageScope {
		http.Redirect(w, r, "/manage", http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, "/report/"+id, http.StatusSeeOther)
}

func (s *Server) serveReport(w http.ResponseWriter, r *http.Request, id string) {
	source, err := s.exporter.Read(id)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			// Try a fresh export for month identifiers that exist on file.
			if _, exportErr := s.exporter.ExportMonth(r.Context(), id); exportErr == nil {
				source, err = s.exporter.Read(id)
			}
		}
		if err != nil {
			http.NotFound(w, r)
			return
		}
	}

	content, err := renderMarkdown(source)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to render report", "report", id, "error", err)
		http.Error(w, "failed to render report", http.StatusInternalServerError)
		return
	}

	_, isMonth := s.store.ModTime(id)
	s.render(w, r, "report_view.html", reportViewData{
		ReportID: id,
		Content:  content,
		IsMonth:  isMonth,
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(sessionCookie); err == nil {
		if err := s.sessions.Revoke(r.Context(), cookie.Value); err != nil {
			slog.WarnContext(r.Context(), "Failed to revoke session", "error", err)
		}
	}
	clearSessionCookie(w)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleDownloadMarkdown(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if !s.hasSession(r, id) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	path := s.exporter.ReportPath(id)
	if _, err := os.Stat(path); err != nil {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Disposition", `attachment; filename="`+id+`.md"`)
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	http.ServeFile(w, r, path)
}

func (s *Server) handleDownloadTable(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if !s.hasSession(r, id) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	if _, err := core.ParseMonth(id); err != nil {
		http.NotFound(w, r)
		return
	}
	path := s.store.TablePath(id)
	if _, err := os.Stat(path); err != nil {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Disposition", `attachment; filename="`+id+`.csv"`)
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	http.ServeFile(w, r, path)
}
