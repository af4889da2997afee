// Command ledger is the terminal companion to the web app: it appends
// records to the month tables and exports reports without going through
// the server.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"ledgerfusion/internal/cli"
	"ledgerfusion/internal/config"
	"ledgerfusion/internal/core"
	"ledgerfusion/internal/report"
	"ledgerfusion/internal/services"
	"ledgerfusion/internal/storage"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger()
	cfg := cli.LoadAndValidateConfig(logger)

	root := newRootCmd(cfg)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "ledger",
		Short:         "Personal ledger on CSV month tables",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(newAddCmd(cfg))
	cmd.AddCommand(newListCmd(cfg))
	cmd.AddCommand(newReportCmd(cfg))
	cmd.AddCommand(newExportCmd(cfg))
	cmd.AddCommand(newCategoryCmd(cfg))

	return cmd
}

func openStore(cfg *config.Config) (*storage.MonthStore, error) {
	return storage.NewMonthStore(cfg.DataDir)
}

func openExporter(cfg *config.Config, store *storage.MonthStore) (*report.Exporter, error) {
	charts, err := report.NewPNGChartRenderer(cfg.ReportDir)
	if err != nil {
		return nil, err
	}
	return report.NewExporter(store, report.NewRenderer(charts), cfg.ReportDir)
}

type addCmd struct {
	cfg      *config.Config
	date     string
	category string
	amount   string
	kind     string
	note     string
}

func newAddCmd(cfg *config.Config) *cobra.Command {
	ac := &addCmd{cfg: cfg}
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Append a record to its month table",
		RunE:  ac.run,
	}

	cmd.Flags().StringVar(&ac.date, "date", "", "Date YYYY-MM-DD, or 1 for today, -1 for yesterday, -2, -3")
	cmd.Flags().StringVar(&ac.category, "category", "", "Category of the record")
	cmd.Flags().StringVar(&ac.amount, "amount", "", "Amount, e.g. 12.50")
	cmd.Flags().StringVar(&ac.kind, "type", "expense", "Record type: expense or income")
	cmd.Flags().StringVar(&ac.note, "note", "", "Optional note")

	_ = cmd.MarkFlagRequired("category")
	_ = cmd.MarkFlagRequired("amount")

	return cmd
}

func (ac *addCmd) run(cmd *cobra.Command, args []string) error {
	date, err := parseDateArg(ac.date, time.Now())
	if err != nil {
		return err
	}
	amount, err := core.ParseAmount(ac.amount)
	if err != nil {
		return err
	}
	kind, err := core.ParseKind(ac.kind)
	if err != nil {
		return err
	}
	tx := core.Transaction{
		Date:     date,
		Category: ac.category,
		Amount:   amount,
		Kind:     kind,
		Note:     ac.note,
	}

	store, err := openStore(ac.cfg)
	if err != nil {
		return err
	}
	exporter, err := openExporter(ac.cfg, store)
	if err != nil {
		return err
	}
	records := services.NewRecordService(store, nil, nil, exporter)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	month, err := records.AddTransaction(ctx, tx)
	if err != nil {
		return err
	}
	fmt.Printf("Saved %s %s (%s) to %s\n", tx.Amount, tx.Category, tx.Kind, month)
	return nil
}

type listCmd struct {
	cfg   *config.Config
	month string
}

func newListCmd(cfg *config.Config) *cobra.Command {
	lc := &listCmd{cfg: cfg}
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Print the records of one month",
		RunE:  lc.run,
	}
	cmd.Flags().StringVar(&lc.month, "month", "", "Month YYYY-MM (default: latest on file)")
	return cmd
}

func (lc *listCmd) run(cmd *cobra.Command, args []string) error {
	store, err := openStore(lc.cfg)
	if err != nil {
		return err
	}
	month, err := resolveMonth(store, lc.month)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	txs, err := store.Load(ctx, month)
	if err != nil {
		return err
	}
	if len(txs) == 0 {
		fmt.Printf("No records in %s\n", month)
		return nil
	}
	for _, tx := range txs {
		fmt.Printf("%s  %-16s %10s  %-7s %s\n",
			tx.Date.Format(core.DateLayout), tx.Category, tx.Amount.String(), tx.Kind, tx.Note)
	}
	return nil
}

type reportCmd struct {
	cfg    *config.Config
	month  string
	months int
	start  string
	end    string
	year   string
}

func newReportCmd(cfg *config.Config) *cobra.Command {
	rc := &reportCmd{cfg: cfg}
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print income, expense, and net for a month, range, or year",
		RunE:  rc.run,
	}

	cmd.Flags().StringVar(&rc.month, "month", "", "Month YYYY-MM (default: latest on file)")
	cmd.Flags().IntVar(&rc.months, "months", 0, "Last N months on file")
	cmd.Flags().StringVar(&rc.start, "start", "", "Range start YYYY-MM")
	cmd.Flags().StringVar(&rc.end, "end", "", "Range end YYYY-MM")
	cmd.Flags().StringVar(&rc.year, "year", "", "Whole year YYYY")

	return cmd
}

func (rc *reportCmd) run(cmd *cobra.Command, args []string) error {
	store, err := openStore(rc.cfg)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var months []string
	var period string
	switch {
	case rc.year != "":
		if months, err = core.MonthsInYear(rc.year); err != nil {
			return err
		}
		period = rc.year
	case rc.start != "" && rc.end != "":
		if months, err = core.MonthsInRange(rc.start, rc.end); err != nil {
			return err
		}
		period = rc.start + " to " + rc.end
	case rc.months > 0:
		onFile, err := store.Months()
		if err != nil {
			return err
		}
		if len(onFile) == 0 {
			return fmt.Errorf("no month tables on file yet")
		}
		if rc.months < len(onFile) {
			onFile = onFile[len(onFile)-rc.months:]
		}
		months = onFile
		period = fmt.Sprintf("last %d months", len(months))
	default:
		month, err := resolveMonth(store, rc.month)
		if err != nil {
			return err
		}
		months = []string{month}
		period = month
	}

	loaded, err := store.LoadRange(ctx, months)
	if err != nil {
		return err
	}
	total, perMonth := core.SummarizeRange(period, loaded)

	fmt.Printf("%s: income %s, expense %s, net %s\n",
		total.Period, total.Income, total.Expense, total.Net)
	if len(months) > 1 {
		for _, rep := range perMonth {
			fmt.Printf("  %s: income %s, expense %s, net %s\n",
				rep.Period, rep.Income, rep.Expense, rep.Net)
		}
	}
	for _, ca := range total.ExpenseByCategory {
		fmt.Printf("  %-16s %10s\n", ca.Name, ca.Amount.String())
	}
	return nil
}

type exportCmd struct {
	cfg   *config.Config
	month string
	start string
	end   string
	year  int
}

func newExportCmd(cfg *config.Config) *cobra.Command {
	ec := &exportCmd{cfg: cfg}
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export a markdown report with charts",
		RunE:  ec.run,
	}

	cmd.Flags().StringVar(&ec.month, "month", "", "Month YYYY-MM")
	cmd.Flags().StringVar(&ec.start, "start", "", "Range start YYYY-MM")
	cmd.Flags().StringVar(&ec.end, "end", "", "Range end YYYY-MM")
	cmd.Flags().IntVar(&ec.year, "year", 0, "Whole year YYYY")

	return cmd
}

func (ec *exportCmd) run(cmd *cobra.Command, args []string) error {
	store, err := openStore(ec.cfg)
	if err != nil {
		return err
	}
	exporter, err := openExporter(ec.cfg, store)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	var id string
	switch {
	case ec.year != 0:
		id, err = exporter.ExportYear(ctx, ec.year)
	case ec.start != "" && ec.end != "":
		id, err = exporter.ExportRange(ctx, ec.start, ec.end)
	case ec.month != "":
		id, err = exporter.ExportMonth(ctx, ec.month)
	default:
		return fmt.Errorf("specify --month, --start/--end, or --year")
	}
	if err != nil {
		return err
	}

	fmt.Printf("Exported %s\n", exporter.ReportPath(id))
	return nil
}

func newCategoryCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "category",
		Short: "List every category used so far",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(cfg)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			cats, err := store.Categories(ctx)
			if err != nil {
				return err
			}
			for _, c := range cats {
				fmt.Println(c)
			}
			return nil
		},
	}
}

// resolveMonth defaults to the latest month on file when none is given.
func resolveMonth(store *storage.MonthStore, month string) (string, error) {
	if month != "" {
		if _, err := core.ParseMonth(month); err != nil {
			return "", err
		}
		return month, nil
	}
	months, err := store.Months()
	if err != nil {
		return "", err
	}
	if len(months) == 0 {
		return "", fmt.Errorf("no month tables on file yet")
	}
	return months[len(months)-1], nil
}

// parseDateArg accepts YYYY-MM-DD and the same shorthands the web form
// takes: empty or "1" for today, "-1" through "-3" for recent days.
func parseDateArg(raw string, now time.Time) (time.Time, error) {
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
