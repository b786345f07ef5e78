package http

import (
	"net/http"

	"expensetracker/internal/auth"
	"expensetracker/internal/core"
)

const notFoundTransaction = "Transaction not found"

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	f, err := ParseListFilter(r.URL.Query())
	if err != nil {
		s.writeError(w, r, err, "")
		return
	}

	page, err := s.transactions.List(r.Context(), auth.OwnerFrom(r.Context()), f)
	if err != nil {
		s.writeError(w, r, err, "")
		return
	}

	NewJSONResponse().
		Field("count", len(page.Items)).
		Field("total", page.Total).
		Field("totalPages", page.TotalPages()).
		Field("currentPage", page.CurrentPage()).
		Data(newTransactionViews(page.Items)).
		Write(w)
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	t, err := s.transactions.Get(r.Context(), auth.OwnerFrom(r.Context()), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err, notFoundTransaction)
		return
	}
	NewJSONResponse().Data(newTransactionView(t)).Write(w)
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err, "")
		return
	}
	f, err := req.fields()
	if err != nil {
		s.writeError(w, r, err, "")
		return
	}

	t, err := s.transactions.Create(r.Context(), auth.OwnerFrom(r.Context()), f)
	if err != nil {
		s.writeError(w, r, err, "")
		return
	}

	NewJSONResponse().
		Status(http.StatusCreated).
		Message("Transaction created successfully").
		Data(newTransactionView(t)).
		Write(w)
}

// handleUpdateTransaction serves both PUT and PATCH; either way only the
// keys present in the body are changed.
func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err, "")
		return
	}
	f, err := req.fields()
	if err != nil {
		s.writeError(w, r, err, "")
		return
	}

	t, err := s.transactions.Update(r.Context(), auth.OwnerFrom(r.Context()), r.PathValue("id"), core.Patch(f))
	if err != nil {
		s.writeError(w, r, err, notFoundTransaction)
		return
	}

	NewJSONResponse().
		Message("Transaction updated successfully").
		Data(newTransactionView(t)).
		Write(w)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	removed, err := s.transactions.Delete(r.Context(), auth.OwnerFrom(r.Context()), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err, notFoundTransaction)
		return
	}

	NewJSONResponse().
		Message("Transaction deleted successfully").
		Data(removedView{ID: removed.ID, Title: removed.Title}).
		Write(w)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	sum, err := s.transactions.Summary(r.Context(), auth.OwnerFrom(r.Context()))
	if err != nil {
		s.writeError(w, r, err, "")
		return
	}

	NewJSONResponse().
		Field("totalBalance", number(sum.TotalBalance)).
		Field("totalIncome", number(sum.TotalIncome)).
		Field("totalExpense", number(sum.TotalExpense)).
		Field("monthIncome", number(sum.Month.Income)).
		Field("monthExpense", number(sum.Month.Expense)).
		Field("monthBalance", number(sum.Month.Balance)).
		Field("expenseRatio", ratio(sum.Month.ExpenseRatio)).
		Write(w)
}

func (s *Server) handleMonthly(w http.ResponseWriter, r *http.Request) {
	year, month, err := ParseMonthParams(r.URL.Query())
	if err != nil {
		s.writeError(w, r, err, "")
		return
	}

	m, err := s.transactions.Monthly(r.Context(), auth.OwnerFrom(r.Context()), year, month)
	if err != nil {
		s.writeError(w, r, err, "")
		return
	}

	NewJSONResponse().
		Field("year", m.Year).
		Field("month", int(m.Month)).
		Field("summary", newMonthView(m)).
		Field("transactions", newTransactionViews(m.Transactions)).
		Write(w)
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Data(newCategoriesView(s.transactions.Categories())).Write(w)
}
