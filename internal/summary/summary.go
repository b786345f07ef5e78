// Package summary derives read-only aggregates from a set of transactions.
//
// Every function here is pure: no clock reads, no I/O, no shared state. The
// caller supplies "now" where the current month matters.
package summary

import (
	"time"

	"github.com/shopspring/decimal"

	"expensetracker/internal/core"
)

var hundred = decimal.NewFromInt(100)

type (
	// MonthSummary covers one calendar month.
	MonthSummary struct {
		Year             int
		Month            time.Month
		Income           decimal.Decimal
		Expense          decimal.Decimal
		Balance          decimal.Decimal
		ExpenseRatio     decimal.Decimal
		TransactionCount int
		Transactions     []core.Transaction
	}

	// Summary is the all-time totals folded together with the current month.
	Summary struct {
		TotalIncome  decimal.Decimal
		TotalExpense decimal.Decimal
		TotalBalance decimal.Decimal
		Month        MonthSummary
	}
)

// Compute totals txs and folds in the calendar month containing now.
func Compute(txs []core.Transaction, now time.Time) Summary {
	income, expense := totals(txs)
	now = now.UTC()
	return Summary{
		TotalIncome:  income,
		TotalExpense: expense,
		TotalBalance: income.Sub(expense),
		Month:        Monthly(txs, now.Year(), now.Month()),
	}
}

// Monthly aggregates the transactions dated inside the given month.
// With no income in the month the expense ratio is 0, whatever the expenses.
func Monthly(txs []core.Transaction, year int, month time.Month) MonthSummary {
	start, end := MonthBounds(year, month)
	in := make([]core.Transaction, 0)
	for _, t := range txs {
		d := t.Date.UTC()
		if !d.Before(start) && d.Before(end) {
			in = append(in, t)
		}
	}
	core.SortNewestFirst(in)

	income, expense := totals(in)
	return MonthSummary{
		Year:             start.Year(),
		Month:            start.Month(),
		Income:           income,
		Expense:          expense,
		Balance:          income.Sub(expense),
		ExpenseRatio:     Ratio(income, expense),
		TransactionCount: len(in),
		Transactions:     in,
	}
}

// Ratio is expense as a percentage of income, 0 when income is not positive.
func Ratio(income, expense decimal.Decimal) decimal.Decimal {
	if !income.IsPositive() {
		return decimal.Zero
	}
	return expense.Div(income).Mul(hundred)
}

// FilterByKind keeps transactions of kind k in input order. "all" keeps
// everything.
func FilterByKind(txs []core.Transaction, k string) []core.Transaction {
	out := make([]core.Transaction, 0, len(txs))
	if k == core.KindAll {
		return append(out, txs...)
	}
	for _, t := range txs {
		if string(t.Kind) == k {
			out = append(out, t)
		}
	}
	return out
}

// Sort returns a copy of txs ordered newest first. txs is left untouched.
func Sort(txs []core.Transaction) []core.Transaction {
	out := append(make([]core.Transaction, 0, len(txs)), txs...)
	core.SortNewestFirst(out)
	return out
}

// MonthBounds returns [first instant of the month, first instant of the next
// month) in UTC. Out-of-range months roll over the way time.Date does.
func MonthBounds(year int, month time.Month) (time.Time, time.Time) {
	start := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 1, 0)
}

func totals(txs []core.Transaction) (income, expense decimal.Decimal) {
	income, expense = decimal.Zero, decimal.Zero
	for _, t := range txs {
		switch t.Kind {
		case core.Income:
			income = income.Add(t.Amount)
		case core.Expense:
			expense = expense.Add(t.Amount)
		}
	}
	return income, expense
}
