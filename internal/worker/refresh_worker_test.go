package worker

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"ledgerfusion/internal/amqp"
	"ledgerfusion/internal/report"
)

type fakeMonths struct {
	months []string
	times  map[string]time.Time
}

func (f *fakeMonths) Months() ([]string, error) { return f.months, nil }

func (f *fakeMonths) ModTime(month string) (time.Time, bool) {
	t, ok := f.times[month]
	return t, ok
}

type fakeExporter struct {
	exported []string
	times    map[string]time.Time
	fail     map[string]error
}

func (f *fakeExporter) ExportMonth(_ context.Context, month string) (string, error) {
	if err := f.fail[month]; err != nil {
		return "", err
	}
	f.exported = append(f.exported, month)
	return month, nil
}

func (f *fakeExporter) ModTime(id string) (time.Time, bool) {
	t, ok := f.times[id]
	return t, ok
}

func TestHandleRefreshMessage(t *testing.T) {
	exp := &fakeExporter{}
	w := NewRefreshWorker(&fakeMonths{}, exp)

	msg := amqp.NewReportRefreshMessage("2024-01", amqp.ReasonAppend)
	if err := w.HandleRefreshMessage(context.Background(), msg); err != nil {
		t.Fatalf("HandleRefreshMessage() error = %v", err)
	}
	if len(exp.exported) != 1 || exp.exported[0] != "2024-01" {
		t.Errorf("exported = %v, want [2024-01]", exp.exported)
	}
}

func TestHandleRefreshMessageEmptyMonth(t *testing.T) {
	exp := &fakeExporter{fail: map[string]error{
		"2024-01": fmt.Errorf("month 2024-01: %w", report.ErrNoData),
	}}
	w := NewRefreshWorker(&fakeMonths{}, exp)

	msg := amqp.NewReportRefreshMessage("2024-01", amqp.ReasonAppend)
	if err := w.HandleRefreshMessage(context.Background(), msg); err != nil {
		t.Errorf("HandleRefreshMessage() for empty month error = %v, want nil", err)
	}
}

func TestHandleRefreshMessageExportError(t *testing.T) {
	exp := &fakeExporter{fail: map[string]error{
		"2024-01": errors.New("disk full"),
	}}
	w := NewRefreshWorker(&fakeMonths{}, exp)

	msg := amqp.NewReportRefreshMessage("2024-01", amqp.ReasonAppend)
	if err := w.HandleRefreshMessage(context.Background(), msg); err == nil {
		t.Error("HandleRefreshMessage() error = nil, want export failure")
	}
}

func TestProcessStaleReports(t *testing.T) {
	now := time.Now()
	months := &fakeMonths{
		months: []string{"2024-01", "2024-02", "2024-03"},
		times: map[string]time.Time{
			"2024-01": now,                       // newer than its report
			"2024-02": now.Add(-2 * time.Hour),   // report is current
			"2024-03": now,                       // never exported
		},
	}
	exp := &fakeExporter{times: map[string]time.Time{
		"2024-01": now.Add(-time.Hour),
		"2024-02": now.Add(-time.Hour),
	}}
	w := NewRefreshWorker(months, exp)

	n, err := w.ProcessStaleReports(context.Background())
	if err != nil {
		t.Fatalf("ProcessStaleReports() error = %v", err)
	}
	if n != 2 {
		t.Errorf("ProcessStaleReports() = %d, want 2", n)
	}
	want := map[string]bool{"2024-01": true, "2024-03": true}
	for _, m := range exp.exported {
		if !want[m] {
			t.Errorf("unexpected export of %s", m)
		}
	}
	if len(exp.exported) != 2 {
		t.Errorf("exported = %v, want 2024-01 and 2024-03", exp.exported)
	}
}

func TestProcessStaleReportsSkipsEmpty(t *testing.T) {
	now := time.Now()
	months := &fakeMonths{
		months: []string{"2024-01"},
		times:  map[string]time.Time{"2024-01": now},
	}
	exp := &fakeExporter{fail: map[string]error{
		"2024-01": fmt.Errorf("month 2024-01: %w", report.ErrNoData),
	}}
	w := NewRefreshWorker(months, exp)

	n, err := w.ProcessStaleReports(context.Background())
	if err != nil {
		t.Fatalf("ProcessStaleReports() error = %v", err)
	}
	if n != 0 {
		t.Errorf("ProcessStaleReports() = %d, want 0", n)
	}
}
