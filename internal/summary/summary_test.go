package summary

import (
	"math/rand"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"expensetracker/internal/core"
)

func tx(id string, kind core.Kind, amount string, date time.Time) core.Transaction {
	return core.Transaction{
		ID:        id,
		Kind:      kind,
		Amount:    decimal.RequireFromString(amount),
		Date:      date,
		CreatedAt: date,
	}
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestSalaryAndGroceriesScenario(t *testing.T) {
	txs := []core.Transaction{
		tx("salary", core.Income, "5000", day(2024, 3, 5)),
		tx("groceries", core.Expense, "150", day(2024, 3, 10)),
	}

	s := Compute(txs, day(2024, 3, 20))
	assert.True(t, s.TotalIncome.Equal(decimal.NewFromInt(5000)))
	assert.True(t, s.TotalExpense.Equal(decimal.NewFromInt(150)))
	assert.True(t, s.TotalBalance.Equal(decimal.NewFromInt(4850)))

	m := Monthly(txs, 2024, time.March)
	assert.True(t, m.Income.Equal(decimal.NewFromInt(5000)))
	assert.True(t, m.Expense.Equal(decimal.NewFromInt(150)))
	assert.True(t, m.Balance.Equal(decimal.NewFromInt(4850)))
	assert.True(t, m.ExpenseRatio.Equal(decimal.NewFromInt(3)), "ratio was %s", m.ExpenseRatio)
	assert.Equal(t, 2, m.TransactionCount)
	require.Len(t, m.Transactions, 2)
	assert.Equal(t, "groceries", m.Transactions[0].ID)
}

func TestZeroIncomeRatioIsZero(t *testing.T) {
	txs := []core.Transaction{
		tx("rent", core.Expense, "900", day(2024, 2, 1)),
		tx("food", core.Expense, "80.25", day(2024, 2, 29)),
	}
	m := Monthly(txs, 2024, time.February)
	assert.True(t, m.ExpenseRatio.IsZero())
	assert.True(t, m.Balance.Equal(decimal.RequireFromString("-980.25")))

	empty := Monthly(nil, 2024, time.February)
	assert.True(t, empty.ExpenseRatio.IsZero())
	assert.Equal(t, 0, empty.TransactionCount)
	assert.NotNil(t, empty.Transactions)
}

func TestMonthlyBoundaries(t *testing.T) {
	lastInstant := day(2024, 3, 1).Add(-time.Nanosecond)
	txs := []core.Transaction{
		tx("jan31", core.Expense, "1", day(2024, 1, 31).Add(23*time.Hour)),
		tx("feb1", core.Expense, "2", day(2024, 2, 1)),
		tx("feb29late", core.Expense, "4", lastInstant),
		tx("mar1", core.Expense, "8", day(2024, 3, 1)),
	}
	m := Monthly(txs, 2024, time.February)
	assert.Equal(t, 2, m.TransactionCount)
	assert.True(t, m.Expense.Equal(decimal.NewFromInt(6)))
}

func TestMonthlyDecemberRollover(t *testing.T) {
	txs := []core.Transaction{
		tx("dec31", core.Income, "10", day(2023, 12, 31).Add(12*time.Hour)),
		tx("jan1", core.Income, "20", day(2024, 1, 1)),
	}
	m := Monthly(txs, 2023, time.December)
	assert.Equal(t, 1, m.TransactionCount)
	assert.Equal(t, "dec31", m.Transactions[0].ID)
	assert.Equal(t, 2023, m.Year)
	assert.Equal(t, time.December, m.Month)
}

func TestMonthlyBucketsInUTC(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*60*60)
	// 00:30 on the 1st in UTC+2 is still the previous month in UTC.
	local := time.Date(2024, 4, 1, 0, 30, 0, 0, loc)
	m := Monthly([]core.Transaction{tx("x", core.Income, "1", local)}, 2024, time.March)
	assert.Equal(t, 1, m.TransactionCount)
}

func TestMonthBounds(t *testing.T) {
	start, end := MonthBounds(2024, time.February)
	assert.Equal(t, day(2024, 2, 1), start)
	assert.Equal(t, day(2024, 3, 1), end)

	start, end = MonthBounds(2024, time.December)
	assert.Equal(t, day(2024, 12, 1), start)
	assert.Equal(t, day(2025, 1, 1), end)
}

func TestBalanceIsIncomeMinusExpense(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	for i := 0; i < 50; i++ {
		var txs []core.Transaction
		for j := 0; j < r.Intn(40); j++ {
			kind := core.Income
			if r.Intn(2) == 0 {
				kind = core.Expense
			}
			amount := decimal.New(int64(r.Intn(100000)+1), -2)
			txs = append(txs, core.Transaction{Kind: kind, Amount: amount, Date: day(2024, time.Month(r.Intn(12)+1), r.Intn(28)+1)})
		}
		s := Compute(txs, day(2024, 6, 1))
		assert.True(t, s.TotalBalance.Equal(s.TotalIncome.Sub(s.TotalExpense)))
		assert.False(t, s.TotalIncome.IsNegative())
		assert.False(t, s.TotalExpense.IsNegative())
		if s.Month.Income.IsZero() {
			assert.True(t, s.Month.ExpenseRatio.IsZero())
		}
	}
}

func TestComputeIsPure(t *testing.T) {
	txs := []core.Transaction{
		tx("a", core.Income, "1", day(2024, 3, 1)),
		tx("b", core.Expense, "2", day(2024, 3, 2)),
	}
	before := append([]core.Transaction(nil), txs...)
	first := Compute(txs, day(2024, 3, 3))
	second := Compute(txs, day(2024, 3, 3))

	assert.Equal(t, before, txs, "input must not be reordered")
	assert.True(t, first.TotalBalance.Equal(second.TotalBalance))
	assert.Equal(t, first.Month.TransactionCount, second.Month.TransactionCount)
}

func TestFilterByKind(t *testing.T) {
	txs := []core.Transaction{
		tx("a", core.Income, "1", day(2024, 3, 1)),
		tx("b", core.Expense, "2", day(2024, 3, 2)),
		tx("c", core.Income, "3", day(2024, 3, 3)),
	}
	assert.Len(t, FilterByKind(txs, "all"), 3)

	got := FilterByKind(txs, "income")
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].ID)
	assert.Equal(t, "c", got[1].ID)

	assert.Empty(t, FilterByKind(txs, "transfer"))
}

func TestSortTieBreaksOnCreatedAt(t *testing.T) {
	older := tx("older", core.Expense, "1", day(2024, 5, 1))
	newer := tx("newer", core.Expense, "1", day(2024, 5, 1))
	newer.CreatedAt = newer.CreatedAt.Add(time.Minute)
	latest := tx("latest", core.Income, "1", day(2024, 5, 2))

	in := []core.Transaction{older, newer, latest}
	out := Sort(in)

	ids := []string{out[0].ID, out[1].ID, out[2].ID}
	assert.Equal(t, []string{"latest", "newer", "older"}, ids)
	assert.Equal(t, "older", in[0].ID)
}
