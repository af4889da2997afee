// Package services orchestrates ledger operations across the month tables,
// the mirror, and the report refresh queue.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"ledgerfusion/internal/amqp"
	"ledgerfusion/internal/core"
	"ledgerfusion/internal/log"
	"ledgerfusion/internal/mirror"
	"ledgerfusion/internal/report"
	"ledgerfusion/internal/storage"
)

// RefreshPublisher requests an async re-export of one month's report.
type RefreshPublisher interface {
	PublishReportRefresh(ctx context.Context, month, reason string) error
}

// MonthExporter re-renders the report for one month.
type MonthExporter interface {
	ExportMonth(ctx context.Context, month string) (string, error)
}

// RecordService appends transactions and keeps downstream copies fresh.
// The month table is the source of truth: once the append lands, mirror and
// refresh failures are logged but never surfaced to the caller.
type RecordService struct {
	store     *storage.MonthStore
	mirror    mirror.TransactionMirror
	publisher RefreshPublisher
	exporter  MonthExporter
	slogger   *log.StructuredLogger
}

// NewRecordService wires the service. mirror and publisher may be nil; with
// a nil publisher the report is re-exported inline after each append.
func NewRecordService(store *storage.MonthStore, m mirror.TransactionMirror, publisher RefreshPublisher, exporter MonthExporter) *RecordService {
	return &RecordService{
		store:     store,
		mirror:    m,
		publisher: publisher,
		exporter:  exporter,
		slogger:   log.NewStructuredLogger(log.New(log.Config{Component: log.ComponentLedger})),
	}
}

// AddTransaction appends the transaction and triggers a report refresh for
// its month. Returns the month key the transaction landed in.
func (s *RecordService) AddTransaction(ctx context.Context, tx core.Transaction) (string, error) {
	if err := s.store.Append(ctx, tx); err != nil {
		return "", fmt.Errorf("append transaction: %w", err)
	}
	month := tx.Month()
	s.slogger.LogTransactionAppended(ctx, month, tx.Category, string(tx.Kind), tx.Amount.Cents)

	if s.mirror != nil {
		if ref, err := s.mirror.Append(ctx, tx); err != nil {
			slog.ErrorContext(ctx, "Failed to mirror transaction",
				"month", month, "error", err)
			// Don't fail the request - the table append succeeded
		} else {
			slog.DebugContext(ctx, "Transaction mirrored", "month", month, "ref", ref)
		}
	}

	s.refreshReport(ctx, month)
	return month, nil
}

// refreshReport publishes a refresh message, falling back to an inline
// export when no queue is configured.
func (s *RecordService) refreshReport(ctx context.Context, month string) {
	if s.publisher != nil {
		if err := s.publisher.PublishReportRefresh(ctx, month, amqp.ReasonAppend); err != nil {
			slog.ErrorContext(ctx, "Failed to publish refresh message",
				"month", month, "error", err)
		} else {
			return
		}
	}
	if s.exporter == nil {
		return
	}
	if _, err := s.exporter.ExportMonth(ctx, month); err != nil && !errors.Is(err, report.ErrNoData) {
		slog.ErrorContext(ctx, "Failed to export report inline",
			"month", month, "error", err)
	}
}

// Store exposes the underlying month store for read paths.
func (s *RecordService) Store() *storage.MonthStore { return s.store }
