package http

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"expensetracker/internal/core"
	"expensetracker/internal/services"
	"expensetracker/internal/summary"
)

type (
	transactionView struct {
		ID        string      `json:"id"`
		Title     string      `json:"title"`
		Amount    json.Number `json:"amount"`
		Kind      string      `json:"kind"`
		Category  string      `json:"category"`
		Date      time.Time   `json:"date"`
		CreatedAt time.Time   `json:"createdAt"`
		UpdatedAt time.Time   `json:"updatedAt"`
	}

	userView struct {
		ID        string    `json:"id"`
		Name      string    `json:"name"`
		Email     string    `json:"email"`
		CreatedAt time.Time `json:"createdAt"`
	}

	removedView struct {
		ID    string `json:"id"`
		Title string `json:"title"`
	}

	categoriesView struct {
		Income  []string `json:"income"`
		Expense []string `json:"expense"`
	}

	monthView struct {
		MonthIncome      json.Number `json:"monthIncome"`
		MonthExpense     json.Number `json:"monthExpense"`
		MonthBalance     json.Number `json:"monthBalance"`
		ExpenseRatio     json.Number `json:"expenseRatio"`
		TransactionCount int         `json:"transactionCount"`
	}
)

// number renders an exact decimal as a JSON number.
func number(d decimal.Decimal) json.Number {
	return json.Number(d.String())
}

// ratio is rounded for display; the engine keeps full precision.
func ratio(d decimal.Decimal) json.Number {
	return json.Number(d.Round(2).String())
}

func newTransactionView(t core.Transaction) transactionView {
	return transactionView{
		ID:        t.ID,
		Title:     t.Title,
		Amount:    number(t.Amount),
		Kind:      string(t.Kind),
		Category:  t.Category,
		Date:      t.Date.UTC(),
		CreatedAt: t.CreatedAt.UTC(),
		UpdatedAt: t.UpdatedAt.UTC(),
	}
}

func newTransactionViews(txs []core.Transaction) []transactionView {
	out := make([]transactionView, 0, len(txs))
	for _, t := range txs {
		out = append(out, newTransactionView(t))
	}
	return out
}

func newUserView(u core.User) userView {
	return userView{ID: u.ID, Name: u.Name, Email: u.Email, CreatedAt: u.CreatedAt.UTC()}
}

func newCategoriesView(c services.Categories) categoriesView {
	return categoriesView{Income: c.Income, Expense: c.Expense}
}

func newMonthView(m summary.MonthSummary) monthView {
	return monthView{
		MonthIncome:      number(m.Income),
		MonthExpense:     number(m.Expense),
		MonthBalance:     number(m.Balance),
		ExpenseRatio:     ratio(m.ExpenseRatio),
		TransactionCount: m.TransactionCount,
	}
}
