// Package worker re-exports reports in the background: on queue messages
// after appends, and on a periodic pass that catches reports gone stale.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"ledgerfusion/internal/amqp"
	"ledgerfusion/internal/report"
)

// MonthLister enumerates the months with a table and their last write time.
type MonthLister interface {
	Months() ([]string, error)
	ModTime(month string) (time.Time, bool)
}

// Exporter re-renders reports.
type Exporter interface {
	ExportMonth(ctx context.Context, month string) (string, error)
	ModTime(id string) (time.Time, bool)
}

// RefreshWorker rebuilds month reports whose table has newer data.
type RefreshWorker struct {
	months   MonthLister
	exporter Exporter
}

func NewRefreshWorker(months MonthLister, exporter Exporter) *RefreshWorker {
	return &RefreshWorker{months: months, exporter: exporter}
}

// HandleRefreshMessage processes one refresh request from the queue.
// A month whose table has since become empty is not an error.
func (w *RefreshWorker) HandleRefreshMessage(ctx context.Context, msg *amqp.ReportRefreshMessage) error {
	slog.InfoContext(ctx, "Processing refresh message",
		"month", msg.Month,
		"reason", msg.Reason)

	if _, err := w.exporter.ExportMonth(ctx, msg.Month); err != nil {
		if errors.Is(err, report.ErrNoData) {
			slog.WarnContext(ctx, "Refresh requested for empty month", "month", msg.Month)
			return nil
		}
		return fmt.Errorf("export month %s: %w", msg.Month, err)
	}
	return nil
}

// ProcessStaleReports re-exports every month whose table is newer than its
// report. This is a backup mechanism in case queue messages are lost.
// Returns how many reports were rebuilt.
func (w *RefreshWorker) ProcessStaleReports(ctx context.Context) (int, error) {
	months, err := w.months.Months()
	if err != nil {
		return 0, fmt.Errorf("list months: %w", err)
	}

	refreshed := 0
	for _, month := range months {
		if ctx.Err() != nil {
			return refreshed, ctx.Err()
		}
		tableTime, ok := w.months.ModTime(month)
		if !ok {
			continue
		}
		reportTime, exported := w.exporter.ModTime(month)
		if exported && !tableTime.After(reportTime) {
			continue
		}

		if _, err := w.exporter.ExportMonth(ctx, month); err != nil {
			if errors.Is(err, report.ErrNoData) {
				continue
			}
			slog.ErrorContext(ctx, "Failed to refresh stale report",
				"month", month, "error", err)
			continue
		}
		refreshed++
		slog.InfoContext(ctx, "Refreshed stale report", "month", month)
	}

	if refreshed > 0 {
		slog.InfoContext(ctx, "Stale report pass complete", "refreshed", refreshed)
	}
	return refreshed, nil
}

// Run consumes refresh messages and runs the stale pass every interval,
// until ctx is cancelled. consume is nil when no queue is configured; the
// periodic pass still runs.
func (w *RefreshWorker) Run(ctx context.Context, consume func(context.Context, func(*amqp.ReportRefreshMessage) error) error, interval time.Duration) error {
	if consume != nil {
		go func() {
			for {
				err := consume(ctx, func(msg *amqp.ReportRefreshMessage) error {
					return w.HandleRefreshMessage(ctx, msg)
				})
				if ctx.Err() != nil {
					return
				}
				if amqp.IsConnectionError(err) {
					slog.ErrorContext(ctx, "Consumer connection lost, retrying", "error", err)
					time.Sleep(5 * time.Second)
					continue
				}
				slog.ErrorContext(ctx, "Consumer stopped", "error", err)
				return
			}
		}()
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := w.ProcessStaleReports(ctx); err != nil && !errors.Is(err, context.Canceled) {
				slog.ErrorContext(ctx, "Stale report pass failed", "error", err)
			}
		}
	}
}
