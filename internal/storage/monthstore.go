// Package storage persists ledger data: one delimited month table per
// calendar month for transactions, and a small SQLite database for sessions.
package storage

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"ledgerfusion/internal/core"
)

// ErrNotFound marks a requested file that does not exist. Load paths treat a
// missing month as an empty result instead; this sentinel is for report-view
// and download paths where absence is an error.
var ErrNotFound = errors.New("not found")

var tableHeader = []string{"date", "category", "amount", "type", "note"}

// MonthStore keeps one CSV table per month under a data directory, keyed by
// "YYYY-MM". Appends write a single row; the table is created with its header
// on first write. Concurrent writers are not coordinated.
type MonthStore struct {
	dir string
}

func NewMonthStore(dir string) (*MonthStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	return &MonthStore{dir: dir}, nil
}

// Dir returns the data directory.
func (s *MonthStore) Dir() string { return s.dir }

// TablePath returns the table file path for a month key.
func (s *MonthStore) TablePath(month string) string {
	return filepath.Join(s.dir, month+".csv")
}

// Append validates the transaction and appends one row to its month table.
func (s *MonthStore) Append(ctx context.Context, tx core.Transaction) error {
	if err := tx.Validate(); err != nil {
		return err
	}
	path := s.TablePath(tx.Month())

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open month table %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat month table %s: %w", path, err)
	}

	w := csv.NewWriter(f)
	if info.Size() == 0 {
		if err := w.Write(tableHeader); err != nil {
			return fmt.Errorf("write table header: %w", err)
		}
	}
	row := []string{
		tx.Date.Format(core.DateLayout),
		tx.Category,
		tx.Amount.String(),
		string(tx.Kind),
		tx.Note,
	}
	if err := w.Write(row); err != nil {
		return fmt.Errorf("append row to %s: %w", path, err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush month table %s: %w", path, err)
	}

	slog.InfoContext(ctx, "Transaction appended",
		"month", tx.Month(),
		"category", tx.Category,
		"amount", tx.Amount.String(),
		"kind", tx.Kind)
	return nil
}

// Load reads the transactions of one month in row order. A missing table
// yields an empty slice, not an error.
func (s *MonthStore) Load(ctx context.Context, month string) ([]core.Transaction, error) {
	if _, err := core.ParseMonth(month); err != nil {
		return nil, err
	}
	f, err := os.Open(s.TablePath(month))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open month table for %s: %w", month, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = len(tableHeader)
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read month table for %s: %w", month, err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	txs := make([]core.Transaction, 0, len(records)-1)
	for i, rec := range records[1:] {
		tx, err := parseRow(rec)
		if err != nil {
			return nil, fmt.Errorf("month table %s row %d: %w", month, i+1, err)
		}
		txs = append(txs, tx)
	}
	return txs, nil
}

// LoadRange loads several months at once, in the given order. Months without
// a table come back with an empty transaction list.
func (s *MonthStore) LoadRange(ctx context.Context, months []string) ([]core.MonthTransactions, error) {
	out := make([]core.MonthTransactions, 0, len(months))
	for _, month := range months {
		txs, err := s.Load(ctx, month)
		if err != nil {
			return nil, err
		}
		out = append(out, core.MonthTransactions{Month: month, Transactions: txs})
	}
	return out, nil
}

// Months lists the month keys that have a table, ascending.
func (s *MonthStore) Months() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("read data directory: %w", err)
	}
	var months []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".csv") {
			continue
		}
		month := strings.TrimSuffix(name, ".csv")
		if _, err := core.ParseMonth(month); err != nil {
			continue
		}
		months = append(months, month)
	}
	sort.Strings(months)
	return months, nil
}

// Categories collects the distinct categories used across all month tables,
// sorted. Unreadable tables are skipped with a warning.
func (s *MonthStore) Categories(ctx context.Context) ([]string, error) {
	months, err := s.Months()
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{})
	for _, month := range months {
		txs, err := s.Load(ctx, month)
		if err != nil {
			slog.WarnContext(ctx, "Skipping unreadable month table", "month", month, "error", err)
			continue
		}
		for _, tx := range txs {
			seen[tx.Category] = struct{}{}
		}
	}
	categories := make([]string, 0, len(seen))
	for c := range seen {
		categories = append(categories, c)
	}
	sort.Strings(categories)
	return categories, nil
}

// ModTime returns the last modification time of a month table, or false when
// the table does not exist. Used to detect reports gone stale.
func (s *MonthStore) ModTime(month string) (time.Time, bool) {
	info, err := os.Stat(s.TablePath(month))
	if err != nil {
		return time.Time{}, false
	}
	return info.ModTime(), true
}

func parseRow(rec []string) (core.Transaction, error) {
	day, err := core.ParseDate(rec[0])
	if err != nil {
		return core.Transaction{}, err
	}
	amount, err := core.ParseAmount(rec[2])
	if err != nil {
		return core.Transaction{}, err
	}
	kind, err := core.ParseKind(rec[3])
	if err != nil {
		return core.Transaction{}, err
	}
	tx := core.Transaction{
		Date:     day,
		Category: strings.TrimSpace(rec[1]),
		Amount:   amount,
		Kind:     kind,
		Note:     rec[4],
	}
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, err
	}
	return tx, nil
}
