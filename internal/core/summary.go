package core

// CategoryAmount is one row of a category summary.
type CategoryAmount struct {
	Name   string
	Amount Money
}

// CategorySummary maps categories to summed amounts for one kind within a
// window, ordered descending by amount with stable ties.
type CategorySummary []CategoryAmount

// Total returns the sum of all category amounts.
func (cs CategorySummary) Total() Money {
	var total Money
	for _, ca := range cs {
		total = total.Add(ca.Amount)
	}
	return total
}

// Get looks up a category by name.
func (cs CategorySummary) Get(name string) (Money, bool) {
	for _, ca := range cs {
		if ca.Name == name {
			return ca.Amount, true
		}
	}
	return Money{}, false
}

// PeriodReport aggregates one or more months: totals per kind, the derived
// net, and a category summary per kind. Period is the identifier the report
// was computed for ("2025-09", "2025_annual", ...).
type PeriodReport struct {
	Period            string
	Income            Money
	Expense           Money
	Net               Money
	IncomeByCategory  CategorySummary
	ExpenseByCategory CategorySummary
}

// WeekSummary is the expense summary for one day-of-month window of a single
// month: days 1-7, 8-14, and so on. Index is 1-based and positional, so a
// window without expenses keeps its number even though it is not reported.
type WeekSummary struct {
	Index   int
	Start   string // YYYY-MM-DD
	End     string // YYYY-MM-DD
	Expense CategorySummary
	Total   Money
}
