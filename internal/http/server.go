// Package http serves the ledger web UI, the report pages, and the JSON API.
package http

import (
	"context"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"ledgerfusion/internal/auth"
	"ledgerfusion/internal/cache"
	"ledgerfusion/internal/middleware/ratelimit"
	"ledgerfusion/internal/middleware/security"
	"ledgerfusion/internal/middleware/trace"
	"ledgerfusion/internal/report"
	"ledgerfusion/internal/services"
	"ledgerfusion/internal/storage"
	appweb "ledgerfusion/web"
)

const sessionCookie = "ledger_session"

// Options carries the server dependencies.
type Options struct {
	Addr     string
	Records  *services.RecordService
	Store    *storage.MonthStore
	Exporter *report.Exporter
	Policy   *auth.AccessPolicy
	Sessions *storage.SessionStore
	APIKey   string
}

type Server struct {
	http.Server
	templates *template.Template
	records   *services.RecordService
	store     *storage.MonthStore
	exporter  *report.Exporter
	policy    *auth.AccessPolicy
	sessions  *storage.SessionStore
	apiKey    string

	limiter  *ratelimit.Limiter
	detector *security.Detector
	tracer   *trace.Middleware
	started  time.Time

	// Cached month summaries for the JSON API, invalidated on append.
	summaryCache *cache.LRUCache[monthSummary]
	cacheManager *cache.Manager

	shutdownOnce sync.Once
}

// NewServer configures routes and templates, returning a ready-to-run server.
func NewServer(opts Options) *Server {
	mux := http.NewServeMux()

	s := &Server{
		records:      opts.Records,
		store:        opts.Store,
		exporter:     opts.Exporter,
		policy:       opts.Policy,
		sessions:     opts.Sessions,
		apiKey:       opts.APIKey,
		limiter:      ratelimit.NewLimiter(ratelimit.DefaultConfig()),
		detector:     security.NewDetector(),
		summaryCache: cache.NewLRUCache[monthSummary](100, 5*time.Minute),
		cacheManager: cache.NewManager(),
		started:      time.Now(),
	}
	s.tracer = trace.NewMiddleware(s.detector.ExtractClientIP)
	s.cacheManager.Register(s.summaryCache)
	s.cacheManager.StartCleanup(10 * time.Minute)

	// Parse embedded templates at startup.
	t, err := template.ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		slog.Warn("Failed parsing templates", "error", err)
	}
	s.templates = t

	// Static assets (served from embedded FS)
	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("GET /static/", security.CacheStatic(3600, static))
	} else {
		slog.Warn("Failed to mount embedded static FS", "error", err)
	}

	// Exported reports and their chart images.
	reports := http.StripPrefix("/reports/", http.FileServer(http.Dir(s.exporter.Dir())))
	mux.Handle("GET /reports/", reports)

	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /manage", s.handleManage)
	mux.HandleFunc("POST /add-record", s.handleAddRecord)
	mux.HandleFunc("POST /export-report", s.handleExportReport)
	mux.HandleFunc("GET /report/{id}", s.handleReportView)
	mux.HandleFunc("POST /report/{id}", s.handleReportLogin)
	mux.HandleFunc("GET /logout", s.handleLogout)
	mux.HandleFunc("GET /download/md/{id}", s.handleDownloadMarkdown)
	mux.HandleFunc("GET /download/csv/{id}", s.handleDownloadTable)

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	mux.HandleFunc("GET /api/ping", s.withAPIKey(s.handleAPIPing))
	mux.HandleFunc("POST /api/add", s.withAPIKey(s.handleAPIAdd))
	mux.HandleFunc("POST /api/export", s.withAPIKey(s.handleAPIExport))
	mux.HandleFunc("GET /api/report/{month}", s.withAPIKey(s.handleAPIReport))
	mux.HandleFunc("GET /api/files", s.withAPIKey(s.handleAPIFiles))

	headers := security.DefaultHeaderPolicy()

	handler := s.withWriteRateLimit(mux)
	handler = s.tracer.Middleware(handler)
	handler = headers.Middleware(handler)
	handler = s.detector.BlockProbes(handler)

	s.Server = http.Server{
		Addr:              opts.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// withWriteRateLimit limits POST and API traffic per client IP.
func (s *Server) withWriteRateLimit(next http.Handler) http.Handler {
	limited := s.limiter.Middleware(s.detector.ExtractClientIP, nil)(next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost || isAPIPath(r.URL.Path) {
			limited.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func isAPIPath(path string) bool {
	return len(path) >= 5 && path[:5] == "/api/"
}

// Shutdown gracefully shuts down the server and cleanup routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		s.cacheManager.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if _, err := s.store.Months(); err != nil {
		slog.ErrorContext(r.Context(), "Readiness check failed", "error", err)
		http.Error(w, "not ready", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// handleMetrics exposes request, security, and cache counters in a
// Prometheus-like text format.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	traceMetrics := s.tracer.GetMetrics()
	securityMetrics := s.detector.GetMetrics()

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)

	fmt.Fprintf(w, "# HELP http_requests_total Total number of HTTP requests\n")
	fmt.Fprintf(w, "# TYPE http_requests_total counter\n")
	fmt.Fprintf(w, "http_requests_total %d\n\n", traceMetrics.TotalRequests)

	fmt.Fprintf(w, "# HELP http_last_response_time_us Last response time in microseconds\n")
	fmt.Fprintf(w, "# TYPE http_last_response_time_us gauge\n")
	fmt.Fprintf(w, "http_last_response_time_us %d\n\n", traceMetrics.AverageResponseTime)

	fmt.Fprintf(w, "# HELP blocked_requests_total Total probe requests rejected\n")
	fmt.Fprintf(w, "# TYPE blocked_requests_total counter\n")
	fmt.Fprintf(w, "blocked_requests_total %d\n\n", securityMetrics.BlockedRequests)

	fmt.Fprintf(w, "# HELP suspicious_requests_total Total suspicious requests detected\n")
	fmt.Fprintf(w, "# TYPE suspicious_requests_total counter\n")
	fmt.Fprintf(w, "suspicious_requests_total %d\n\n", securityMetrics.SuspiciousRequests)

	fmt.Fprintf(w, "# HELP active_rate_limit_clients Currently tracked rate limit clients\n")
	fmt.Fprintf(w, "# TYPE active_rate_limit_clients gauge\n")
	fmt.Fprintf(w, "active_rate_limit_clients %d\n\n", s.limiter.ActiveClients())

	fmt.Fprintf(w, "# HELP cache_entries Current month-summary cache entries\n")
	fmt.Fprintf(w, "# TYPE cache_entries gauge\n")
	fmt.Fprintf(w, "cache_entries %d\n\n", s.summaryCache.Size())

	fmt.Fprintf(w, "# HELP uptime_seconds Application uptime in seconds\n")
	fmt.Fprintf(w, "# TYPE uptime_seconds gauge\n")
	fmt.Fprintf(w, "uptime_seconds %.0f\n", time.Since(s.started).Seconds())
}
