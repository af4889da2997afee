package report

import (
	"fmt"
	"strings"

	"ledgerfusion/internal/core"
)

// Renderer turns ledger data into Markdown with chart references. Output is
// deterministic for the same input so re-rendering an unchanged month writes
// an identical report.
type Renderer struct {
	charts ChartRenderer
}

func NewRenderer(charts ChartRenderer) *Renderer {
	return &Renderer{charts: charts}
}

// RenderMonth renders a single month report. The caller guarantees at least
// one transaction.
func (r *Renderer) RenderMonth(month string, txs []core.Transaction) (string, error) {
	summary := core.Summarize(month, txs)
	weeks := core.WeeklyBreakdown(txs)
	daily := core.DailyExpenseSeries(txs)

	var b strings.Builder
	fmt.Fprintf(&b, "# Ledger report %s\n\n", month)

	if len(weeks) > 0 {
		b.WriteString("## Weekly breakdown\n\n")
	}
	for _, week := range weeks {
		fmt.Fprintf(&b, "### Week %d (%s to %s)\n\n", week.Index, week.Start, week.End)
		writeCategoryTable(&b, week.Expense)
		fmt.Fprintf(&b, "Week total: **%s**\n\n", week.Total)

		chartName, err := r.charts.Pie(
			fmt.Sprintf("%s_week%d_pie", month, week.Index),
			fmt.Sprintf("Week %d expenses", week.Index),
			categoryValues(week.Expense))
		if err != nil {
			return "", err
		}
		writeImage(&b, fmt.Sprintf("Week %d expenses", week.Index), chartName)
	}

	writeTransactionTable(&b, txs)

	if err := r.writePeriodSections(&b, month, summary, daily); err != nil {
		return "", err
	}
	return b.String(), nil
}

// RenderRange renders a multi-month report under periodID: one section per
// non-empty month, then merged totals across the whole range.
func (r *Renderer) RenderRange(periodID string, months []core.MonthTransactions) (string, error) {
	total, perMonth := core.SummarizeRange(periodID, months)

	var b strings.Builder
	fmt.Fprintf(&b, "# Ledger report %s\n\n", periodID)

	byMonth := make(map[string][]core.Transaction, len(months))
	for _, m := range months {
		byMonth[m.Month] = m.Transactions
	}

	for _, monthReport := range perMonth {
		fmt.Fprintf(&b, "## %s\n\n", monthReport.Period)
		writeSummaryList(&b, monthReport)
		writeCategorySection(&b, "Expenses by category", monthReport.ExpenseByCategory)

		pieName, err := r.charts.Pie(
			fmt.Sprintf("%s_%s_pie", monthReport.Period, periodID),
			fmt.Sprintf("%s expenses", monthReport.Period),
			categoryValues(monthReport.ExpenseByCategory))
		if err != nil {
			return "", err
		}
		writeImage(&b, fmt.Sprintf("%s expenses", monthReport.Period), pieName)

		lineName, err := r.charts.Line(
			fmt.Sprintf("%s_%s_line", monthReport.Period, periodID),
			fmt.Sprintf("%s cumulative expense", monthReport.Period),
			[]LineSeries{cumulativeSeries("Cumulative expense", core.DailyExpenseSeries(byMonth[monthReport.Period]))})
		if err != nil {
			return "", err
		}
		writeImage(&b, fmt.Sprintf("%s cumulative expense", monthReport.Period), lineName)
	}

	b.WriteString("## Totals\n\n")
	writeSummaryList(&b, total)
	writeCategorySection(&b, "Expenses by category", total.ExpenseByCategory)
	writeCategorySection(&b, "Income by category", total.IncomeByCategory)

	totalPie, err := r.charts.Pie(periodID+"_total_pie", "Total expenses by category",
		categoryValues(total.ExpenseByCategory))
	if err != nil {
		return "", err
	}
	writeImage(&b, "Total expenses by category", totalPie)

	incomePie, err := r.charts.Pie(periodID+"_total_income_pie", "Total income by category",
		categoryValues(total.IncomeByCategory))
	if err != nil {
		return "", err
	}
	writeImage(&b, "Total income by category", incomePie)

	var allDaily []core.DayAmount
	for _, m := range months {
		allDaily = append(allDaily, core.DailyExpenseSeries(m.Transactions)...)
	}
	totalLine, err := r.charts.Line(periodID+"_total_line", "Cumulative expense",
		[]LineSeries{cumulativeSeries("Cumulative expense", allDaily)})
	if err != nil {
		return "", err
	}
	writeImage(&b, "Cumulative expense", totalLine)

	monthlyChart, err := r.monthlyTotalsChart(periodID, perMonth)
	if err != nil {
		return "", err
	}
	writeImage(&b, "Income and expense by month", monthlyChart)

	return b.String(), nil
}

func (r *Renderer) writePeriodSections(b *strings.Builder, period string, summary core.PeriodReport, daily []core.DayAmount) error {
	writeCategorySection(b, "Expenses by category", summary.ExpenseByCategory)
	writeCategorySection(b, "Income by category", summary.IncomeByCategory)

	b.WriteString("## Summary\n\n")
	writeSummaryList(b, summary)

	pieName, err := r.charts.Pie(period+"_pie", "Expenses by category",
		categoryValues(summary.ExpenseByCategory))
	if err != nil {
		return err
	}
	writeImage(b, "Expenses by category", pieName)

	lineName, err := r.charts.Line(period+"_line", "Cumulative expense",
		[]LineSeries{cumulativeSeries("Cumulative expense", daily)})
	if err != nil {
		return err
	}
	writeImage(b, "Cumulative expense", lineName)

	dailyName, err := r.charts.Line(period+"_daily_line", "Daily expense",
		[]LineSeries{dailySeries("Daily expense", daily)})
	if err != nil {
		return err
	}
	writeImage(b, "Daily expense", dailyName)
	return nil
}

// monthlyTotalsChart plots income and expense per month across the range.
func (r *Renderer) monthlyTotalsChart(periodID string, perMonth []core.PeriodReport) (string, error) {
	income := LineSeries{Name: "Income"}
	expense := LineSeries{Name: "Expense"}
	for _, m := range perMonth {
		start, err := core.ParseMonth(m.Period)
		if err != nil {
			return "", err
		}
		income.Points = append(income.Points, TimePoint{Date: start, Value: m.Income.Float()})
		expense.Points = append(expense.Points, TimePoint{Date: start, Value: m.Expense.Float()})
	}
	return r.charts.Line(periodID+"_monthly_income_expense", "Income and expense by month",
		[]LineSeries{income, expense})
}

func writeTransactionTable(b *strings.Builder, txs []core.Transaction) {
	b.WriteString("## Transactions\n\n")
	b.WriteString("| Date | Category | Amount | Type | Note |\n")
	b.WriteString("|------|----------|--------|------|------|\n")
	for _, tx := range txs {
		fmt.Fprintf(b, "| %s | %s | %s | %s | %s |\n",
			tx.Date.Format(core.DateLayout), tx.Category, tx.Amount, tx.Kind, escapeCell(tx.Note))
	}
	b.WriteString("\n")
}

func writeCategorySection(b *strings.Builder, title string, summary core.CategorySummary) {
	if len(summary) == 0 {
		return
	}
	fmt.Fprintf(b, "## %s\n\n", title)
	writeCategoryTable(b, summary)
}

func writeCategoryTable(b *strings.Builder, summary core.CategorySummary) {
	b.WriteString("| Category | Amount |\n")
	b.WriteString("|----------|--------|\n")
	for _, c := range summary {
		fmt.Fprintf(b, "| %s | %s |\n", c.Name, c.Amount)
	}
	b.WriteString("\n")
}

func writeSummaryList(b *strings.Builder, report core.PeriodReport) {
	fmt.Fprintf(b, "- Total income: **%s**\n", report.Income)
	fmt.Fprintf(b, "- Total expense: **%s**\n", report.Expense)
	fmt.Fprintf(b, "- Net: **%s**\n\n", report.Net)
}

func writeImage(b *strings.Builder, alt, fileName string) {
	if fileName == "" {
		return
	}
	fmt.Fprintf(b, "![%s](%s)\n\n", alt, fileName)
}

func categoryValues(summary core.CategorySummary) []LabelValue {
	values := make([]LabelValue, 0, len(summary))
	for _, c := range summary {
		values = append(values, LabelValue{Label: c.Name, Value: c.Amount.Float()})
	}
	return values
}

func cumulativeSeries(name string, daily []core.DayAmount) LineSeries {
	s := LineSeries{Name: name, Points: make([]TimePoint, 0, len(daily))}
	var running core.Money
	for _, d := range daily {
		running = running.Add(d.Amount)
		s.Points = append(s.Points, TimePoint{Date: d.Date, Value: running.Float()})
	}
	return s
}

func dailySeries(name string, daily []core.DayAmount) LineSeries {
	s := LineSeries{Name: name, Points: make([]TimePoint, 0, len(daily))}
	for _, d := range daily {
		s.Points = append(s.Points, TimePoint{Date: d.Date, Value: d.Amount.Float()})
	}
	return s
}

// escapeCell keeps user notes from breaking the pipe table.
func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "|", "\\|")
	return strings.ReplaceAll(s, "\n", " ")
}
