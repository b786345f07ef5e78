package services

import (
	"context"
	"fmt"
	"time"

	"expensetracker/internal/amqp"
	"expensetracker/internal/core"
	"expensetracker/internal/log"
	"expensetracker/internal/summary"
)

// TransactionStore is the owner-scoped record store. Every method filters on
// owner; a record owned by someone else is reported as core.ErrNotFound.
type TransactionStore interface {
	Insert(ctx context.Context, t core.Transaction) error
	Get(ctx context.Context, owner, id string) (core.Transaction, error)
	List(ctx context.Context, owner string, f core.ListFilter) (core.Page, error)
	Update(ctx context.Context, owner, id string, fn core.UpdateFunc) (core.Transaction, error)
	Delete(ctx context.Context, owner, id string) (core.Removed, error)
}

// EventPublisher announces committed changes. It may be nil.
type EventPublisher interface {
	PublishTransactionEvent(ctx context.Context, e *amqp.TransactionEvent) error
}

type Categories struct {
	Income  []string
	Expense []string
}

type Option func(*TransactionService)

func WithClock(now func() time.Time) Option {
	return func(s *TransactionService) { s.now = now }
}

func WithRegistry(reg *core.Registry) Option {
	return func(s *TransactionService) { s.registry = reg }
}

func WithLogger(l *log.Logger) Option {
	return func(s *TransactionService) { s.logger = l.WithComponent(log.ComponentTransaction) }
}

// TransactionService applies the transaction rules on top of a store and
// feeds the aggregation engine.
type TransactionService struct {
	store     TransactionStore
	publisher EventPublisher
	registry  *core.Registry
	now       func() time.Time
	logger    *log.Logger
}

func NewTransactionService(store TransactionStore, publisher EventPublisher, opts ...Option) *TransactionService {
	s := &TransactionService{
		store:     store,
		publisher: publisher,
		registry:  core.DefaultRegistry(),
		now:       time.Now,
		logger:    log.Discard().WithComponent(log.ComponentTransaction),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *TransactionService) Create(ctx context.Context, owner string, f core.Fields) (core.Transaction, error) {
	if owner == "" {
		return core.Transaction{}, core.ErrUnauthorized
	}
	t, err := core.NewTransaction(s.registry, owner, f, s.now())
	if err != nil {
		return core.Transaction{}, err
	}
	if err := s.store.Insert(ctx, t); err != nil {
		return core.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}

	s.logger.InfoContext(ctx, "Transaction created",
		log.NewFields().WithTransaction(owner, t.ID, string(t.Kind), t.Category).WithOperation(log.OpCreate).ToSlice()...)
	s.publish(ctx, amqp.EventCreated, t.ID, owner, t.Title)
	return t, nil
}

func (s *TransactionService) Get(ctx context.Context, owner, id string) (core.Transaction, error) {
	if owner == "" {
		return core.Transaction{}, core.ErrUnauthorized
	}
	return s.store.Get(ctx, owner, id)
}

func (s *TransactionService) List(ctx context.Context, owner string, f core.ListFilter) (core.Page, error) {
	if owner == "" {
		return core.Page{}, core.ErrUnauthorized
	}
	f, err := f.Normalize()
	if err != nil {
		return core.Page{}, err
	}
	return s.store.List(ctx, owner, f)
}

// Update applies p atomically. An empty patch returns the stored record
// untouched and publishes nothing.
func (s *TransactionService) Update(ctx context.Context, owner, id string, p core.Patch) (core.Transaction, error) {
	if owner == "" {
		return core.Transaction{}, core.ErrUnauthorized
	}
	now := s.now()
	changed := false
	t, err := s.store.Update(ctx, owner, id, func(cur core.Transaction) (core.Transaction, bool, error) {
		next, ok, err := cur.Apply(s.registry, p, now)
		changed = ok
		return next, ok, err
	})
	if err != nil {
		return core.Transaction{}, err
	}
	if changed {
		s.logger.InfoContext(ctx, "Transaction updated",
			log.NewFields().WithTransaction(owner, t.ID, string(t.Kind), t.Category).WithOperation(log.OpUpdate).ToSlice()...)
		s.publish(ctx, amqp.EventUpdated, t.ID, owner, t.Title)
	}
	return t, nil
}

func (s *TransactionService) Delete(ctx context.Context, owner, id string) (core.Removed, error) {
	if owner == "" {
		return core.Removed{}, core.ErrUnauthorized
	}
	removed, err := s.store.Delete(ctx, owner, id)
	if err != nil {
		return core.Removed{}, err
	}
	s.logger.InfoContext(ctx, "Transaction deleted",
		log.FieldOwner, owner, log.FieldTransaction, removed.ID, log.FieldOperation, log.OpDelete)
	s.publish(ctx, amqp.EventDeleted, removed.ID, owner, removed.Title)
	return removed, nil
}

// Summary recomputes the totals from every transaction the owner has.
func (s *TransactionService) Summary(ctx context.Context, owner string) (summary.Summary, error) {
	if owner == "" {
		return summary.Summary{}, core.ErrUnauthorized
	}
	page, err := s.store.List(ctx, owner, core.ListFilter{Unbounded: true})
	if err != nil {
		return summary.Summary{}, fmt.Errorf("load transactions: %w", err)
	}
	return summary.Compute(page.Items, s.now()), nil
}

// Monthly summarizes one calendar month. Zero year and month mean the
// current month.
func (s *TransactionService) Monthly(ctx context.Context, owner string, year, month int) (summary.MonthSummary, error) {
	if owner == "" {
		return summary.MonthSummary{}, core.ErrUnauthorized
	}
	now := s.now().UTC()
	if year == 0 {
		year = now.Year()
	}
	if month == 0 {
		month = int(now.Month())
	}

	var verr core.ValidationError
	if year < 1 || year > 9999 {
		verr.Add("year", "year must be between 1 and 9999")
	}
	if month < 1 || month > 12 {
		verr.Add("month", "month must be between 1 and 12")
	}
	if verr.HasErrors() {
		return summary.MonthSummary{}, &verr
	}

	start, end := summary.MonthBounds(year, time.Month(month))
	page, err := s.store.List(ctx, owner, core.ListFilter{
		From:      start,
		To:        end.Add(-time.Nanosecond),
		Unbounded: true,
	})
	if err != nil {
		return summary.MonthSummary{}, fmt.Errorf("load month: %w", err)
	}
	return summary.Monthly(page.Items, year, time.Month(month)), nil
}

// Export returns every transaction matching f, ignoring pagination.
func (s *TransactionService) Export(ctx context.Context, owner string, f core.ListFilter) ([]core.Transaction, error) {
	if owner == "" {
		return nil, core.ErrUnauthorized
	}
	f.Limit, f.Offset, f.Unbounded = 0, 0, true
	f, err := f.Normalize()
	if err != nil {
		return nil, err
	}
	page, err := s.store.List(ctx, owner, f)
	if err != nil {
		return nil, fmt.Errorf("export transactions: %w", err)
	}
	s.logger.InfoContext(ctx, "Transactions exported",
		log.FieldOwner, owner, log.FieldCount, len(page.Items), log.FieldOperation, log.OpExport)
	return page.Items, nil
}

func (s *TransactionService) Categories() Categories {
	return Categories{
		Income:  s.registry.CategoriesFor(core.Income),
		Expense: s.registry.CategoriesFor(core.Expense),
	}
}

// publish is best effort: the change is already committed, so a broker
// failure is logged and otherwise ignored.
func (s *TransactionService) publish(ctx context.Context, typ amqp.EventType, id, owner, title string) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishTransactionEvent(ctx, amqp.NewTransactionEvent(typ, id, owner, title)); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish transaction event",
			log.FieldError, err, log.FieldEventType, typ, log.FieldTransaction, id)
	}
}
