package services

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"expensetracker/internal/amqp"
	"expensetracker/internal/core"
	"expensetracker/internal/storage"
	"expensetracker/internal/storage/memory"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []*amqp.TransactionEvent
	err    error
}

func (p *recordingPublisher) PublishTransactionEvent(_ context.Context, e *amqp.TransactionEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return p.err
}

func (p *recordingPublisher) types() []amqp.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]amqp.EventType, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

var clock = time.Date(2024, 3, 20, 10, 0, 0, 0, time.UTC)

// backends runs fn once per store implementation.
func backends(t *testing.T, fn func(t *testing.T, svc *TransactionService, pub *recordingPublisher)) {
	t.Run("memory", func(t *testing.T) {
		pub := &recordingPublisher{}
		fn(t, NewTransactionService(memory.New(), pub, WithClock(func() time.Time { return clock })), pub)
	})
	t.Run("sqlite", func(t *testing.T) {
		repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "svc.db"), nil)
		require.NoError(t, err)
		t.Cleanup(func() { repo.Close() })
		pub := &recordingPublisher{}
		fn(t, NewTransactionService(repo, pub, WithClock(func() time.Time { return clock })), pub)
	})
}

func ptr[T any](v T) *T { return &v }

func fields(title, amount, kind, category, date string) core.Fields {
	d, _ := time.Parse("2006-01-02", date)
	return core.Fields{
		Title:    ptr(title),
		Amount:   ptr(decimal.RequireFromString(amount)),
		Kind:     ptr(kind),
		Category: ptr(category),
		Date:     &d,
	}
}

func TestCreateGetRoundTrip(t *testing.T) {
	backends(t, func(t *testing.T, svc *TransactionService, pub *recordingPublisher) {
		ctx := context.Background()
		created, err := svc.Create(ctx, "alice", fields("  Salary ", "5000", "Income", "Salary", "2024-03-05"))
		require.NoError(t, err)

		got, err := svc.Get(ctx, "alice", created.ID)
		require.NoError(t, err)
		assert.Equal(t, created.ID, got.ID)
		assert.Equal(t, "Salary", got.Title)
		assert.True(t, created.Amount.Equal(got.Amount))
		assert.Equal(t, created.Kind, got.Kind)
		assert.Equal(t, created.Category, got.Category)
		assert.True(t, created.Date.Equal(got.Date))
		assert.True(t, created.CreatedAt.Equal(got.CreatedAt))
		assert.Equal(t, "alice", got.Owner)

		assert.Equal(t, []amqp.EventType{amqp.EventCreated}, pub.types())
	})
}

func TestScenarioSummary(t *testing.T) {
	backends(t, func(t *testing.T, svc *TransactionService, _ *recordingPublisher) {
		ctx := context.Background()
		_, err := svc.Create(ctx, "alice", fields("Salary", "5000", "income", "Salary", "2024-03-05"))
		require.NoError(t, err)
		_, err = svc.Create(ctx, "alice", fields("Groceries", "150", "expense", "Food & Dining", "2024-03-10"))
		require.NoError(t, err)

		s, err := svc.Summary(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, "5000", s.TotalIncome.String())
		assert.Equal(t, "150", s.TotalExpense.String())
		assert.Equal(t, "4850", s.TotalBalance.String())
		assert.Equal(t, 2, s.Month.TransactionCount, "clock is in March 2024")

		m, err := svc.Monthly(ctx, "alice", 2024, 3)
		require.NoError(t, err)
		assert.Equal(t, "5000", m.Income.String())
		assert.Equal(t, "150", m.Expense.String())
		assert.Equal(t, "4850", m.Balance.String())
		assert.True(t, m.ExpenseRatio.Equal(decimal.NewFromInt(3)))
		assert.Equal(t, 2, m.TransactionCount)
		assert.Equal(t, "Groceries", m.Transactions[0].Title)

		other, err := svc.Summary(ctx, "bob")
		require.NoError(t, err)
		assert.True(t, other.TotalBalance.IsZero())
	})
}

func TestMonthlyDefaultsAndValidation(t *testing.T) {
	backends(t, func(t *testing.T, svc *TransactionService, _ *recordingPublisher) {
		ctx := context.Background()
		_, err := svc.Create(ctx, "alice", fields("Rent", "900", "expense", "Bills & Utilities", "2024-03-31"))
		require.NoError(t, err)
		_, err = svc.Create(ctx, "alice", fields("Rent", "900", "expense", "Bills & Utilities", "2024-04-01"))
		require.NoError(t, err)

		m, err := svc.Monthly(ctx, "alice", 0, 0)
		require.NoError(t, err)
		assert.Equal(t, 2024, m.Year)
		assert.Equal(t, time.March, m.Month)
		assert.Equal(t, 1, m.TransactionCount)
		assert.True(t, m.ExpenseRatio.IsZero(), "no income means ratio 0")

		_, err = svc.Monthly(ctx, "alice", 2024, 13)
		assert.True(t, core.IsValidation(err))
	})
}

func TestCategoryRejection(t *testing.T) {
	backends(t, func(t *testing.T, svc *TransactionService, pub *recordingPublisher) {
		_, err := svc.Create(context.Background(), "alice", fields("Oops", "10", "expense", "Salary", "2024-03-05"))
		assert.True(t, core.IsValidation(err))

		page, err := svc.List(context.Background(), "alice", core.ListFilter{})
		require.NoError(t, err)
		assert.Zero(t, page.Total, "rejected create must not persist")
		assert.Empty(t, pub.types())
	})
}

func TestAmountBoundaries(t *testing.T) {
	backends(t, func(t *testing.T, svc *TransactionService, _ *recordingPublisher) {
		ctx := context.Background()
		for _, bad := range []string{"0", "-5"} {
			_, err := svc.Create(ctx, "alice", fields("x", bad, "expense", "Other", "2024-03-05"))
			assert.True(t, core.IsValidation(err), "amount %s", bad)
		}
		_, err := svc.Create(ctx, "alice", fields("x", "0.01", "expense", "Other", "2024-03-05"))
		assert.NoError(t, err)
	})
}

func TestEmptyUpdateIsNoop(t *testing.T) {
	backends(t, func(t *testing.T, svc *TransactionService, pub *recordingPublisher) {
		ctx := context.Background()
		created, err := svc.Create(ctx, "alice", fields("Salary", "5000", "income", "Salary", "2024-03-05"))
		require.NoError(t, err)

		got, err := svc.Update(ctx, "alice", created.ID, core.Patch{})
		require.NoError(t, err)
		assert.Equal(t, created.Title, got.Title)
		assert.True(t, created.Amount.Equal(got.Amount))
		assert.True(t, created.UpdatedAt.Equal(got.UpdatedAt))
		assert.Equal(t, []amqp.EventType{amqp.EventCreated}, pub.types())
	})
}

func TestUpdateRevalidates(t *testing.T) {
	backends(t, func(t *testing.T, svc *TransactionService, pub *recordingPublisher) {
		ctx := context.Background()
		created, err := svc.Create(ctx, "alice", fields("Salary", "5000", "income", "Salary", "2024-03-05"))
		require.NoError(t, err)

		_, err = svc.Update(ctx, "alice", created.ID, core.Patch{Kind: ptr("expense")})
		assert.True(t, core.IsValidation(err))

		_, err = svc.Update(ctx, "alice", created.ID, core.Patch{Title: ptr("  ")})
		assert.True(t, core.IsValidation(err))

		got, err := svc.Get(ctx, "alice", created.ID)
		require.NoError(t, err)
		assert.Equal(t, core.Income, got.Kind, "rejected update must not persist")

		updated, err := svc.Update(ctx, "alice", created.ID, core.Patch{
			Kind:     ptr("expense"),
			Category: ptr("Travel"),
			Amount:   ptr(decimal.RequireFromString("12.5")),
		})
		require.NoError(t, err)
		assert.Equal(t, core.Expense, updated.Kind)
		assert.Equal(t, "Travel", updated.Category)
		assert.Equal(t, "Salary", updated.Title)

		got, err = svc.Get(ctx, "alice", created.ID)
		require.NoError(t, err)
		assert.Equal(t, "12.5", got.Amount.String())
		assert.Equal(t, []amqp.EventType{amqp.EventCreated, amqp.EventUpdated}, pub.types())
	})
}

func TestDeleteThenGet(t *testing.T) {
	backends(t, func(t *testing.T, svc *TransactionService, pub *recordingPublisher) {
		ctx := context.Background()
		created, err := svc.Create(ctx, "alice", fields("Taxi", "20", "expense", "Transportation", "2024-03-05"))
		require.NoError(t, err)

		removed, err := svc.Delete(ctx, "alice", created.ID)
		require.NoError(t, err)
		assert.Equal(t, core.Removed{ID: created.ID, Title: "Taxi"}, removed)

		_, err = svc.Get(ctx, "alice", created.ID)
		assert.ErrorIs(t, err, core.ErrNotFound)
		assert.Equal(t, []amqp.EventType{amqp.EventCreated, amqp.EventDeleted}, pub.types())
	})
}

func TestCrossOwnerIsolation(t *testing.T) {
	backends(t, func(t *testing.T, svc *TransactionService, _ *recordingPublisher) {
		ctx := context.Background()
		created, err := svc.Create(ctx, "alice", fields("Salary", "5000", "income", "Salary", "2024-03-05"))
		require.NoError(t, err)

		_, err = svc.Get(ctx, "bob", created.ID)
		assert.ErrorIs(t, err, core.ErrNotFound)
		_, err = svc.Update(ctx, "bob", created.ID, core.Patch{Title: ptr("mine")})
		assert.ErrorIs(t, err, core.ErrNotFound)
		_, err = svc.Update(ctx, "bob", created.ID, core.Patch{})
		assert.ErrorIs(t, err, core.ErrNotFound)
		_, err = svc.Delete(ctx, "bob", created.ID)
		assert.ErrorIs(t, err, core.ErrNotFound)

		got, err := svc.Get(ctx, "alice", created.ID)
		require.NoError(t, err)
		assert.Equal(t, "Salary", got.Title)
	})
}

func TestPagination(t *testing.T) {
	backends(t, func(t *testing.T, svc *TransactionService, _ *recordingPublisher) {
		ctx := context.Background()
		for i := 0; i < 150; i++ {
			date := fmt.Sprintf("2024-%02d-%02d", i%12+1, i%28+1)
			_, err := svc.Create(ctx, "alice", fields(fmt.Sprintf("t%d", i), "1", "expense", "Other", date))
			require.NoError(t, err)
		}

		page, err := svc.List(ctx, "alice", core.ListFilter{Limit: 100, Offset: 0})
		require.NoError(t, err)
		assert.Len(t, page.Items, 100)
		assert.Equal(t, 150, page.Total)
		assert.Equal(t, 2, page.TotalPages())

		_, err = svc.List(ctx, "alice", core.ListFilter{Limit: 5000})
		assert.True(t, core.IsValidation(err))

		all, err := svc.Export(ctx, "alice", core.ListFilter{Limit: 10})
		require.NoError(t, err)
		assert.Len(t, all, 150)
	})
}

func TestUnauthorizedBeforeStore(t *testing.T) {
	svc := NewTransactionService(panicStore{}, nil)
	ctx := context.Background()

	_, err := svc.Create(ctx, "", fields("x", "1", "expense", "Other", "2024-03-05"))
	assert.ErrorIs(t, err, core.ErrUnauthorized)
	_, err = svc.Get(ctx, "", "id")
	assert.ErrorIs(t, err, core.ErrUnauthorized)
	_, err = svc.List(ctx, "", core.ListFilter{})
	assert.ErrorIs(t, err, core.ErrUnauthorized)
	_, err = svc.Update(ctx, "", "id", core.Patch{})
	assert.ErrorIs(t, err, core.ErrUnauthorized)
	_, err = svc.Delete(ctx, "", "id")
	assert.ErrorIs(t, err, core.ErrUnauthorized)
	_, err = svc.Summary(ctx, "")
	assert.ErrorIs(t, err, core.ErrUnauthorized)
	_, err = svc.Monthly(ctx, "", 2024, 3)
	assert.ErrorIs(t, err, core.ErrUnauthorized)
	_, err = svc.Export(ctx, "", core.ListFilter{})
	assert.ErrorIs(t, err, core.ErrUnauthorized)
}

func TestPublishFailureDoesNotFailWrite(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("broker down")}
	svc := NewTransactionService(memory.New(), pub)
	created, err := svc.Create(context.Background(), "alice", fields("x", "1", "expense", "Other", "2024-03-05"))
	require.NoError(t, err)

	_, err = svc.Get(context.Background(), "alice", created.ID)
	assert.NoError(t, err)
}

func TestStoreUnavailableSurfaces(t *testing.T) {
	svc := NewTransactionService(failingStore{}, nil)
	_, err := svc.Summary(context.Background(), "alice")
	assert.ErrorIs(t, err, core.ErrStoreUnavailable)
	_, err = svc.Create(context.Background(), "alice", fields("x", "1", "expense", "Other", "2024-03-05"))
	assert.ErrorIs(t, err, core.ErrStoreUnavailable)
}

func TestCategories(t *testing.T) {
	c := NewTransactionService(memory.New(), nil).Categories()
	assert.Contains(t, c.Income, "Salary")
	assert.Contains(t, c.Expense, "Food & Dining")
}

type panicStore struct{}

func (panicStore) Insert(context.Context, core.Transaction) error { panic("store touched") }
func (panicStore) Get(context.Context, string, string) (core.Transaction, error) {
	panic("store touched")
}
func (panicStore) List(context.Context, string, core.ListFilter) (core.Page, error) {
	panic("store touched")
}
func (panicStore) Update(context.Context, string, string, core.UpdateFunc) (core.Transaction, error) {
	panic("store touched")
}
func (panicStore) Delete(context.Context, string, string) (core.Removed, error) {
	panic("store touched")
}

type failingStore struct{ panicStore }

func (failingStore) Insert(context.Context, core.Transaction) error {
	return fmt.Errorf("insert: %w", core.ErrStoreUnavailable)
}
func (failingStore) List(context.Context, string, core.ListFilter) (core.Page, error) {
	return core.Page{}, fmt.Errorf("list: %w", core.ErrStoreUnavailable)
}
