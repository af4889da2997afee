package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"ledgerfusion/internal/auth"
	"ledgerfusion/internal/core"
	"ledgerfusion/internal/report"
	"ledgerfusion/internal/services"
	"ledgerfusion/internal/storage"
)

const (
	testPassword = "letmein"
	testAPIKey   = "test-api-key"
)

// noCharts keeps report exports chart-free in tests.
type noCharts struct{}

func (noCharts) Pie(string, string, []report.LabelValue) (string, error) { return "", nil }
func (noCharts) Line(string, string, []report.LineSeries) (string, error) {
	return "", nil
}

type testEnv struct {
	srv      *Server
	store    *storage.MonthStore
	exporter *report.Exporter
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store, err := storage.NewMonthStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewMonthStore: %v", err)
	}
	renderer := report.NewRenderer(noCharts{})
	exporter, err := report.NewExporter(store, renderer, t.TempDir())
	if err != nil {
		t.Fatalf("NewExporter: %v", err)
	}

	db, err := storage.OpenAuthDB(filepath.Join(t.TempDir(), "auth.db"))
	if err != nil {
		t.Fatalf("OpenAuthDB: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	sessions := storage.NewSessionStore(db, time.Hour)

	policy, err := auth.NewPolicy(testPassword, nil)
	if err != nil {
		t.Fatalf("NewPolicy: %v", err)
	}

	records := services.NewRecordService(store, nil, nil, exporter)

	srv := NewServer(Options{
		Addr:     ":0",
		Records:  records,
		Store:    store,
		Exporter: exporter,
		Policy:   policy,
		Sessions: sessions,
		APIKey:   testAPIKey,
	})
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	})

	return &testEnv{srv: srv, store: store, exporter: exporter}
}

func (e *testEnv) do(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	e.srv.Handler.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) seed(t *testing.T, day, category, amount, kind string) {
	t.Helper()
	d, err := core.ParseDate(day)
	if err != nil {
		t.Fatalf("ParseDate(%q): %v", day, err)
	}
	m, err := core.ParseAmount(amount)
	if err != nil {
		t.Fatalf("ParseAmount(%q): %v", amount, err)
	}
	k, err := core.ParseKind(kind)
	if err != nil {
		t.Fatalf("ParseKind(%q): %v", kind, err)
	}
	tx := core.Transaction{Date: d, Category: category, Amount: m, Kind: k}
	if err := e.store.Append(context.Background(), tx); err != nil {
		t.Fatalf("Append: %v", err)
	}
}

// login posts the report password and returns the session cookie.
func (e *testEnv) login(t *testing.T, reportID string) *http.Cookie {
	t.Helper()
	form := url.Values{"password": {testPassword}}
	req := httptest.NewRequest(http.MethodPost, "/report/"+reportID,
		strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := e.do(t, req)
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("login status = %d, want %d (body %q)", rec.Code, http.StatusSeeOther, rec.Body.String())
	}
	for _, c := range rec.Result().Cookies() {
		if c.Name == sessionCookie {
			return c
		}
	}
	t.Fatal("login did not set a session cookie")
	return nil
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Fatalf("healthz = %d %q, want 200 ok", rec.Code, rec.Body.String())
	}
}

func TestIndexRenders(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("index status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Reports") {
		t.Fatal("index page missing the reports section")
	}
}

func TestAddRecord(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.login(t, manageScope)

	form := url.Values{
		"date":     {"2024-03-10"},
		"category": {"food"},
		"amount":   {"12.50"},
		"type":     {"expense"},
		"note":     {"lunch"},
	}
	req := httptest.NewRequest(http.MethodPost, "/add-record", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.AddCookie(cookie)
	rec := env.do(t, req)

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusSeeOther)
	}
	loc := rec.Header().Get("Location")
	if !strings.HasPrefix(loc, "/manage?notice=") {
		t.Fatalf("Location = %q, want a notice redirect", loc)
	}

	txs, err := env.store.Load(context.Background(), "2024-03")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(txs) != 1 || txs[0].Category != "food" || txs[0].Amount.Cents != 1250 {
		t.Fatalf("stored transactions = %+v", txs)
	}
}

func TestAddRecordRequiresSession(t *testing.T) {
	env := newTestEnv(t)

	form := url.Values{
		"date":     {"2024-03-10"},
		"category": {"food"},
		"amount":   {"12.50"},
		"type":     {"expense"},
	}
	req := httptest.NewRequest(http.MethodPost, "/add-record", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := env.do(t, req)

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusSeeOther)
	}
	if got := rec.Header().Get("Location"); got != "/manage" {
		t.Fatalf("Location = %q, want /manage", got)
	}
	txs, err := env.store.Load(context.Background(), "2024-03")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(txs) != 0 {
		t.Fatalf("record stored without a session: %+v", txs)
	}
}

func TestAddRecordInvalidAmount(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.login(t, manageScope)

	form := url.Values{
		"date":     {"2024-03-10"},
		"category": {"food"},
		"amount":   {"abc"},
		"type":     {"expense"},
	}
	req := httptest.NewRequest(http.MethodPost, "/add-record", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.AddCookie(cookie)
	rec := env.do(t, req)

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusSeeOther)
	}
	if !strings.HasPrefix(rec.Header().Get("Location"), "/manage?error=") {
		t.Fatalf("Location = %q, want an error redirect", rec.Header().Get("Location"))
	}
}

func TestExportReportRedirects(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, "2024-03-05", "food", "20.00", "expense")
	cookie := env.login(t, manageScope)

	form := url.Values{"month": {"2024-03"}}
	req := httptest.NewRequest(http.MethodPost, "/export-report", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.AddCookie(cookie)
	rec := env.do(t, req)

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusSeeOther)
	}
	if got := rec.Header().Get("Location"); got != "/report/2024-03" {
		t.Fatalf("Location = %q, want /report/2024-03", got)
	}
	if _, err := env.exporter.Read("2024-03"); err != nil {
		t.Fatalf("report not written: %v", err)
	}
}

func TestExportReportNoData(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.login(t, manageScope)

	form := url.Values{"month": {"2030-01"}}
	req := httptest.NewRequest(http.MethodPost, "/export-report", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.AddCookie(cookie)
	rec := env.do(t, req)

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusSeeOther)
	}
	if !strings.HasPrefix(rec.Header().Get("Location"), "/manage?error=") {
		t.Fatalf("Location = %q, want an error redirect", rec.Header().Get("Location"))
	}
}

func TestReportViewRequiresLogin(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, "2024-03-05", "food", "20.00", "expense")
	if _, err := env.exporter.ExportMonth(context.Background(), "2024-03"); err != nil {
		t.Fatalf("ExportMonth: %v", err)
	}

	rec := env.do(t, httptest.NewRequest(http.MethodGet, "/report/2024-03", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "password") {
		t.Fatal("expected the login form without a session")
	}
}

func TestReportLoginWrongPassword(t *testing.T) {
	env := newTestEnv(t)

	form := url.Values{"password": {"nope"}}
	req := httptest.NewRequest(http.MethodPost, "/report/2024-03", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := env.do(t, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Wrong password") {
		t.Fatal("expected the login form with an error message")
	}
	for _, c := range rec.Result().Cookies() {
		if c.Name == sessionCookie {
			t.Fatal("wrong password must not set a session cookie")
		}
	}
}

func TestReportLoginAndView(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, "2024-03-05", "food", "20.00", "expense")
	if _, err := env.exporter.ExportMonth(context.Background(), "2024-03"); err != nil {
		t.Fatalf("ExportMonth: %v", err)
	}

	cookie := env.login(t, "2024-03")

	req := httptest.NewRequest(http.MethodGet, "/report/2024-03", nil)
	req.AddCookie(cookie)
	rec := env.do(t, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "Ledger report 2024-03") {
		t.Fatalf("report heading missing from body:\n%s", body)
	}
	if strings.Contains(body, `name="password"`) {
		t.Fatal("got the login form despite a valid session")
	}
}

func TestReportViewExportsOnDemand(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, "2024-03-05", "food", "20.00", "expense")
	// No export beforehand: viewing should trigger one.

	cookie := env.login(t, "2024-03")
	req := httptest.NewRequest(http.MethodGet, "/report/2024-03", nil)
	req.AddCookie(cookie)
	rec := env.do(t, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if _, err := env.exporter.Read("2024-03"); err != nil {
		t.Fatalf("on-demand export did not write the report: %v", err)
	}
}

func TestSessionBoundToReport(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, "2024-03-05", "food", "20.00", "expense")
	env.seed(t, "2024-04-02", "food", "30.00", "expense")
	ctx := context.Background()
	if _, err := env.exporter.ExportMonth(ctx, "2024-03"); err != nil {
		t.Fatalf("ExportMonth: %v", err)
	}
	if _, err := env.exporter.ExportMonth(ctx, "2024-04"); err != nil {
		t.Fatalf("ExportMonth: %v", err)
	}

	cookie := env.login(t, "2024-03")
	req := httptest.NewRequest(http.MethodGet, "/report/2024-04", nil)
	req.AddCookie(cookie)
	rec := env.do(t, req)

	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "password") {
		t.Fatalf("expected the login form for another report, got %d", rec.Code)
	}
}

func TestLogoutClearsSession(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, "2024-03-05", "food", "20.00", "expense")
	cookie := env.login(t, "2024-03")

	req := httptest.NewRequest(http.MethodGet, "/logout", nil)
	req.AddCookie(cookie)
	rec := env.do(t, req)
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("logout status = %d, want %d", rec.Code, http.StatusSeeOther)
	}

	// The revoked token no longer opens the report.
	req = httptest.NewRequest(http.MethodGet, "/report/2024-03", nil)
	req.AddCookie(cookie)
	rec = env.do(t, req)
	if !strings.Contains(rec.Body.String(), "password") {
		t.Fatal("revoked session still opens the report")
	}
}

func TestManageRequiresSession(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, httptest.NewRequest(http.MethodGet, "/manage", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "password") {
		t.Fatalf("expected the login form, got %d", rec.Code)
	}
}

func TestManagePage(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, "2024-03-05", "food", "20.00", "expense")
	cookie := env.login(t, manageScope)

	req := httptest.NewRequest(http.MethodGet, "/manage", nil)
	req.AddCookie(cookie)
	rec := env.do(t, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "2024-03") {
		t.Fatal("manage page missing the seeded month")
	}
}

func TestDownloadsRequireSession(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, "2024-03-05", "food", "20.00", "expense")

	for _, path := range []string{"/download/md/2024-03", "/download/csv/2024-03"} {
		rec := env.do(t, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("GET %s = %d, want %d", path, rec.Code, http.StatusUnauthorized)
		}
	}
}

func TestDownloadTable(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, "2024-03-05", "food", "20.00", "expense")
	cookie := env.login(t, "2024-03")

	req := httptest.NewRequest(http.MethodGet, "/download/csv/2024-03", nil)
	req.AddCookie(cookie)
	rec := env.do(t, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "date,category,amount,type,note") {
		t.Fatal("csv download missing the header row")
	}
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t)

	// One served request, one blocked probe, one suspicious scanner.
	env.do(t, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	env.do(t, httptest.NewRequest(http.MethodGet, "/wp-admin", nil))
	scan := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	scan.Header.Set("User-Agent", "sqlmap/1.7")
	env.do(t, scan)

	rec := env.do(t, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{
		"http_requests_total",
		"blocked_requests_total 1",
		"suspicious_requests_total 1",
		"active_rate_limit_clients",
		"cache_entries 0",
		"uptime_seconds",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics output missing %q\n%s", want, body)
		}
	}
}

func TestBlockedProbePaths(t *testing.T) {
	env := newTestEnv(t)
	for _, path := range []string{"/wp-admin", "/.env", "/phpmyadmin/index.php"} {
		rec := env.do(t, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusNotFound {
			t.Fatalf("GET %s = %d, want %d", path, rec.Code, http.StatusNotFound)
		}
	}
}

func TestAPIKeyRequired(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, httptest.NewRequest(http.MethodGet, "/api/ping", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status without key = %d, want %d", rec.Code, http.StatusUnauthorized)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/ping", nil)
	req.Header.Set("X-API-Key", "wrong")
	if rec := env.do(t, req); rec.Code != http.StatusUnauthorized {
		t.Fatalf("status with wrong key = %d, want %d", rec.Code, http.StatusUnauthorized)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/ping", nil)
	req.Header.Set("X-API-Key", testAPIKey)
	rec = env.do(t, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status with key = %d, want 200", rec.Code)
	}
	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp["status"] != "ok" {
		t.Fatalf("ping = %v", resp)
	}
}

func (e *testEnv) apiRequest(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	req.Header.Set("X-API-Key", testAPIKey)
	return e.do(t, req)
}

func TestAPIAdd(t *testing.T) {
	env := newTestEnv(t)

	body := `{"date":"2024-03-10","category":"food","amount":"12.50","type":"expense","note":"lunch"}`
	rec := env.apiRequest(t, http.MethodPost, "/api/add", body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d (body %q)", rec.Code, http.StatusCreated, rec.Body.String())
	}
	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp["month"] != "2024-03" {
		t.Fatalf("month = %q, want 2024-03", resp["month"])
	}

	txs, err := env.store.Load(context.Background(), "2024-03")
	if err != nil || len(txs) != 1 {
		t.Fatalf("Load = %v, %v", txs, err)
	}
}

func TestAPIAddInvalid(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name string
		body string
		want int
	}{
		{"bad json", `{`, http.StatusBadRequest},
		{"bad amount", `{"date":"2024-03-10","category":"food","amount":"x","type":"expense"}`, http.StatusUnprocessableEntity},
		{"bad kind", `{"date":"2024-03-10","category":"food","amount":"1.00","type":"loan"}`, http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.apiRequest(t, http.MethodPost, "/api/add", tt.body)
			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestAPIReportSummary(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, "2024-03-01", "salary", "1000.00", "income")
	env.seed(t, "2024-03-05", "food", "20.00", "expense")
	env.seed(t, "2024-03-12", "food", "30.00", "expense")

	rec := env.apiRequest(t, http.MethodGet, "/api/report/2024-03", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var sum monthSummary
	if err := json.Unmarshal(rec.Body.Bytes(), &sum); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if sum.Income != 1000 || sum.Expense != 50 || sum.Net != 950 {
		t.Fatalf("summary = %+v", sum)
	}
	if sum.ExpenseByCategory["food"] != 50 {
		t.Fatalf("food total = %v, want 50", sum.ExpenseByCategory["food"])
	}
	if sum.TransactionCount != 3 {
		t.Fatalf("transaction count = %d, want 3", sum.TransactionCount)
	}
}

func TestAPIReportEmptyMonth(t *testing.T) {
	env := newTestEnv(t)

	rec := env.apiRequest(t, http.MethodGet, "/api/report/2030-01", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var sum monthSummary
	if err := json.Unmarshal(rec.Body.Bytes(), &sum); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if sum.Income != 0 || sum.Expense != 0 || sum.TransactionCount != 0 {
		t.Fatalf("empty month summary = %+v", sum)
	}
	if sum.IncomeByCategory == nil || sum.ExpenseByCategory == nil {
		t.Fatal("category maps must be present, not null")
	}
}

func TestAPIReportInvalidMonth(t *testing.T) {
	env := newTestEnv(t)
	rec := env.apiRequest(t, http.MethodGet, "/api/report/march", "")
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusUnprocessableEntity)
	}
}

func TestAPIReportCacheInvalidation(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, "2024-03-05", "food", "20.00", "expense")

	rec := env.apiRequest(t, http.MethodGet, "/api/report/2024-03", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	// Appending through the API must evict the cached summary.
	body := `{"date":"2024-03-06","category":"food","amount":"10.00","type":"expense"}`
	if rec := env.apiRequest(t, http.MethodPost, "/api/add", body); rec.Code != http.StatusCreated {
		t.Fatalf("add status = %d", rec.Code)
	}

	rec = env.apiRequest(t, http.MethodGet, "/api/report/2024-03", "")
	var sum monthSummary
	if err := json.Unmarshal(rec.Body.Bytes(), &sum); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if sum.Expense != 30 {
		t.Fatalf("expense after append = %v, want 30", sum.Expense)
	}
}

func TestAPIExport(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, "2024-03-05", "food", "20.00", "expense")

	rec := env.apiRequest(t, http.MethodPost, "/api/export", `{"month":"2024-03"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %q)", rec.Code, rec.Body.String())
	}
	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp["report"] != "2024-03" {
		t.Fatalf("report = %q, want 2024-03", resp["report"])
	}

	rec = env.apiRequest(t, http.MethodPost, "/api/export", `{"month":"2030-01"}`)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("empty month status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestAPIFiles(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, "2024-03-05", "food", "20.00", "expense")
	if _, err := env.exporter.ExportMonth(context.Background(), "2024-03"); err != nil {
		t.Fatalf("ExportMonth: %v", err)
	}

	rec := env.apiRequest(t, http.MethodGet, "/api/files", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var files apiFiles
	if err := json.Unmarshal(rec.Body.Bytes(), &files); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(files.Months) != 1 || files.Months[0] != "2024-03" {
		t.Fatalf("months = %v", files.Months)
	}
	if len(files.Reports) != 1 || files.Reports[0] != "2024-03" {
		t.Fatalf("reports = %v", files.Reports)
	}
}

func TestAPIDisabledWithoutKey(t *testing.T) {
	store, err := storage.NewMonthStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewMonthStore: %v", err)
	}
	exporter, err := report.NewExporter(store, report.NewRenderer(noCharts{}), t.TempDir())
	if err != nil {
		t.Fatalf("NewExporter: %v", err)
	}
	db, err := storage.OpenAuthDB(filepath.Join(t.TempDir(), "auth.db"))
	if err != nil {
		t.Fatalf("OpenAuthDB: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	policy, err := auth.NewPolicy(testPassword, nil)
	if err != nil {
		t.Fatalf("NewPolicy: %v", err)
	}

	srv := NewServer(Options{
		Addr:     ":0",
		Records:  services.NewRecordService(store, nil, nil, exporter),
		Store:    store,
		Exporter: exporter,
		Policy:   policy,
		Sessions: storage.NewSessionStore(db, time.Hour),
	})
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/ping", nil)
	req.Header.Set("X-API-Key", "anything")
	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}
}

func TestParseDateField(t *testing.T) {
	now := time.Date(2024, 3, 15, 13, 45, 0, 0, time.UTC)
	tests := []struct {
		in   string
		want string
	}{
		{"", "2024-03-15"},
		{"1", "2024-03-15"},
		{"-1", "2024-03-14"},
		{"-2", "2024-03-13"},
		{"-3", "2024-03-12"},
		{"2024-02-29", "2024-02-29"},
	}
	for _, tt := range tests {
		got, err := parseDateField(tt.in, now)
		if err != nil {
			t.Fatalf("parseDateField(%q): %v", tt.in, err)
		}
		if got.Format(core.DateLayout) != tt.want {
			t.Fatalf("parseDateField(%q) = %s, want %s", tt.in, got.Format(core.DateLayout), tt.want)
		}
	}

	if _, err := parseDateField("yesterday", now); err == nil {
		t.Fatal("expected an error for unparseable input")
	}
}

func TestSanitizeInput(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"  food  ", "food"},
		{"a\x00b", "ab"},
		{"tab\tok", "tab\tok"},
		{"line\nbreak", "linebreak"},
	}
	for _, tt := range tests {
		if got := sanitizeInput(tt.in); got != tt.want {
			t.Fatalf("sanitizeInput(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
