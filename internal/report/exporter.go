package report

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"ledgerfusion/internal/core"
)

// ErrNoData marks an export request for a period with no transactions.
// Nothing is written in that case.
var ErrNoData = errors.New("no data for period")

// TableSource provides transactions per month key.
type TableSource interface {
	Load(ctx context.Context, month string) ([]core.Transaction, error)
	LoadRange(ctx context.Context, months []string) ([]core.MonthTransactions, error)
}

// ReportInfo describes one exported report on disk.
type ReportInfo struct {
	ID      string
	ModTime time.Time
}

// Exporter renders reports and writes them, with their charts, into the
// report directory as "<id>.md".
type Exporter struct {
	source   TableSource
	renderer *Renderer
	dir      string
}

func NewExporter(source TableSource, renderer *Renderer, dir string) (*Exporter, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create report directory: %w", err)
	}
	return &Exporter{source: source, renderer: renderer, dir: dir}, nil
}

// Dir returns the report directory.
func (e *Exporter) Dir() string { return e.dir }

// ReportPath returns the Markdown path for a report identifier.
func (e *Exporter) ReportPath(id string) string {
	return filepath.Join(e.dir, id+".md")
}

// RangeID builds the report identifier for a month range.
func RangeID(start, end string) string {
	if start == end {
		return start
	}
	return start + "_to_" + end
}

// YearID builds the report identifier for an annual report.
func YearID(year int) string {
	return fmt.Sprintf("%d_annual", year)
}

// ExportMonth renders and writes the report for one month, returning its
// identifier. A month without transactions yields ErrNoData.
func (e *Exporter) ExportMonth(ctx context.Context, month string) (string, error) {
	if _, err := core.ParseMonth(month); err != nil {
		return "", err
	}
	txs, err := e.source.Load(ctx, month)
	if err != nil {
		return "", err
	}
	if len(txs) == 0 {
		return "", fmt.Errorf("month %s: %w", month, ErrNoData)
	}

	md, err := e.renderer.RenderMonth(month, txs)
	if err != nil {
		return "", fmt.Errorf("render report for %s: %w", month, err)
	}
	if err := e.write(month, md); err != nil {
		return "", err
	}
	slog.InfoContext(ctx, "Report exported", "report", month, "transactions", len(txs))
	return month, nil
}

// ExportRange renders a merged report across [start, end] inclusive.
// ErrNoData when every month in the range is empty.
func (e *Exporter) ExportRange(ctx context.Context, start, end string) (string, error) {
	keys, err := core.MonthsInRange(start, end)
	if err != nil {
		return "", err
	}
	return e.exportMulti(ctx, RangeID(start, end), keys)
}

// ExportYear renders the annual report for year.
func (e *Exporter) ExportYear(ctx context.Context, year int) (string, error) {
	keys, err := core.MonthsInYear(strconv.Itoa(year))
	if err != nil {
		return "", err
	}
	return e.exportMulti(ctx, YearID(year), keys)
}

func (e *Exporter) exportMulti(ctx context.Context, id string, keys []string) (string, error) {
	months, err := e.source.LoadRange(ctx, keys)
	if err != nil {
		return "", err
	}
	total := 0
	for _, m := range months {
		total += len(m.Transactions)
	}
	if total == 0 {
		return "", fmt.Errorf("range %s: %w", id, ErrNoData)
	}

	md, err := e.renderer.RenderRange(id, months)
	if err != nil {
		return "", fmt.Errorf("render report for %s: %w", id, err)
	}
	if err := e.write(id, md); err != nil {
		return "", err
	}
	slog.InfoContext(ctx, "Report exported", "report", id, "months", len(keys), "transactions", total)
	return id, nil
}

func (e *Exporter) write(id, md string) error {
	path := e.ReportPath(id)
	if err := os.WriteFile(path, []byte(md), 0o644); err != nil {
		return fmt.Errorf("write report %s: %w", path, err)
	}
	return nil
}

// Read returns the Markdown of an exported report.
func (e *Exporter) Read(id string) ([]byte, error) {
	data, err := os.ReadFile(e.ReportPath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("report %s: %w", id, os.ErrNotExist)
		}
		return nil, fmt.Errorf("read report %s: %w", id, err)
	}
	return data, nil
}

// ModTime returns the write time of a report, or false when it has not been
// exported.
func (e *Exporter) ModTime(id string) (time.Time, bool) {
	info, err := os.Stat(e.ReportPath(id))
	if err != nil {
		return time.Time{}, false
	}
	return info.ModTime(), true
}

// List returns the exported reports, newest first.
func (e *Exporter) List() ([]ReportInfo, error) {
	entries, err := os.ReadDir(e.dir)
	if err != nil {
		return nil, fmt.Errorf("read report directory: %w", err)
	}
	var reports []ReportInfo
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".md") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		reports = append(reports, ReportInfo{
			ID:      strings.TrimSuffix(name, ".md"),
			ModTime: info.ModTime(),
		})
	}
	sort.Slice(reports, func(i, j int) bool { return reports[i].ModTime.After(reports[j].ModTime) })
	return reports, nil
}
