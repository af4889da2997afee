package core

import (
	"sort"
	"time"
)

// MonthTransactions pairs a month key with its loaded rows, for multi-month
// aggregation.
type MonthTransactions struct {
	Month        string
	Transactions []Transaction
}

// DayAmount is one point of a daily expense series.
type DayAmount struct {
	Date   time.Time
	Amount Money
}

// Summarize computes the period report for a set of transactions: totals per
// kind, net = income - expense, and a category summary per kind. An empty
// input yields zero totals and empty summaries.
func Summarize(period string, txs []Transaction) PeriodReport {
	rep := PeriodReport{
		Period:            period,
		IncomeByCategory:  summarizeCategories(txs, KindIncome),
		ExpenseByCategory: summarizeCategories(txs, KindExpense),
	}
	rep.Income = rep.IncomeByCategory.Total()
	rep.Expense = rep.ExpenseByCategory.Total()
	rep.Net = rep.Income.Sub(rep.Expense)
	return rep
}

// SummarizeRange aggregates months in ascending key order. Months with no
// transactions are skipped and do not appear in the per-month breakdown.
// Matching categories are merged across months by adding their amounts.
func SummarizeRange(period string, months []MonthTransactions) (PeriodReport, []PeriodReport) {
	sorted := make([]MonthTransactions, len(months))
	copy(sorted, months)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Month < sorted[j].Month })

	total := PeriodReport{Period: period}
	var perMonth []PeriodReport
	for _, mt := range sorted {
		if len(mt.Transactions) == 0 {
			continue
		}
		rep := Summarize(mt.Month, mt.Transactions)
		perMonth = append(perMonth, rep)
		total.Income = total.Income.Add(rep.Income)
		total.Expense = total.Expense.Add(rep.Expense)
		total.IncomeByCategory = mergeSummaries(total.IncomeByCategory, rep.IncomeByCategory)
		total.ExpenseByCategory = mergeSummaries(total.ExpenseByCategory, rep.ExpenseByCategory)
	}
	total.Net = total.Income.Sub(total.Expense)
	return total, perMonth
}

// WeeklyBreakdown splits one month's transactions into consecutive 7-day
// windows by day of month (1-7, 8-14, ...), the last window truncated to the
// month's last transaction date. Windows without expense rows are omitted.
// These are deliberately not ISO calendar weeks.
func WeeklyBreakdown(txs []Transaction) []WeekSummary {
	if len(txs) == 0 {
		return nil
	}
	minDate, maxDate := txs[0].Date, txs[0].Date
	for _, tx := range txs[1:] {
		if tx.Date.Before(minDate) {
			minDate = tx.Date
		}
		if tx.Date.After(maxDate) {
			maxDate = tx.Date
		}
	}
	start := time.Date(minDate.Year(), minDate.Month(), 1, 0, 0, 0, 0, minDate.Location())

	var weeks []WeekSummary
	for index := 1; !start.After(maxDate); index++ {
		end := start.AddDate(0, 0, 6)
		if end.After(maxDate) {
			end = maxDate
		}
		var window []Transaction
		for _, tx := range txs {
			if tx.Kind != KindExpense {
				continue
			}
			if tx.Date.Before(start) || tx.Date.After(end) {
				continue
			}
			window = append(window, tx)
		}
		if len(window) > 0 {
			summary := summarizeCategories(window, KindExpense)
			weeks = append(weeks, WeekSummary{
				Index:   index,
				Start:   start.Format(DateLayout),
				End:     end.Format(DateLayout),
				Expense: summary,
				Total:   summary.Total(),
			})
		}
		start = end.AddDate(0, 0, 1)
	}
	return weeks
}

// DailyExpenseSeries groups expense amounts by day, ascending by date. Used
// for the daily and cumulative line charts.
func DailyExpenseSeries(txs []Transaction) []DayAmount {
	byDay := make(map[time.Time]Money)
	for _, tx := range txs {
		if tx.Kind != KindExpense {
			continue
		}
		day := time.Date(tx.Date.Year(), tx.Date.Month(), tx.Date.Day(), 0, 0, 0, 0, time.UTC)
		byDay[day] = byDay[day].Add(tx.Amount)
	}
	series := make([]DayAmount, 0, len(byDay))
	for day, amount := range byDay {
		series = append(series, DayAmount{Date: day, Amount: amount})
	}
	sort.Slice(series, func(i, j int) bool { return series[i].Date.Before(series[j].Date) })
	return series
}

// summarizeCategories sums amounts by category for one kind, descending by
// amount. Ties keep first-appearance order (stable sort).
func summarizeCategories(txs []Transaction, kind Kind) CategorySummary {
	sums := make(map[string]int64)
	var order []string
	for _, tx := range txs {
		if tx.Kind != kind {
			continue
		}
		if _, seen := sums[tx.Category]; !seen {
			order = append(order, tx.Category)
		}
		sums[tx.Category] += tx.Amount.Cents
	}
	summary := make(CategorySummary, 0, len(order))
	for _, name := range order {
		summary = append(summary, CategoryAmount{Name: name, Amount: Money{Cents: sums[name]}})
	}
	sort.SliceStable(summary, func(i, j int) bool {
		return summary[i].Amount.Cents > summary[j].Amount.Cents
	})
	return summary
}

func mergeSummaries(into, from CategorySummary) CategorySummary {
	merged := make(CategorySummary, len(into))
	copy(merged, into)
	for _, ca := range from {
		found := false
		for i := range merged {
			if merged[i].Name == ca.Name {
				merged[i].Amount = merged[i].Amount.Add(ca.Amount)
				found = true
				break
			}
		}
		if !found {
			merged = append(merged, ca)
		}
	}
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Amount.Cents > merged[j].Amount.Cents
	})
	return merged
}
