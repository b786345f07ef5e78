package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"expensetracker/internal/core"
	"expensetracker/internal/log"
)

// timeLayout is fixed width so TEXT comparison orders chronologically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
	logger  *log.Logger
}

// DSN adds the pragmas every connection needs. Transactions begin
// IMMEDIATE so a read-modify-write takes the write lock up front and waits
// on busy_timeout rather than failing to upgrade mid-transaction.
func DSN(dbPath string) string {
	return "file:" + dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_txlock=immediate"
}

func NewSQLiteRepository(dbPath string, logger *log.Logger) (*SQLiteRepository, error) {
	if logger == nil {
		logger = log.Discard()
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", DSN(dbPath))
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
		logger:  logger.WithComponent(log.ComponentStorage),
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return unavailable("ping", err)
	}
	return nil
}

func (r *SQLiteRepository) Insert(ctx context.Context, t core.Transaction) error {
	if err := r.queries.InsertTransaction(ctx, toRow(t)); err != nil {
		return unavailable("insert transaction", err)
	}
	r.logger.DebugContext(ctx, "Transaction inserted",
		log.NewFields().WithTransaction(t.Owner, t.ID, string(t.Kind), t.Category).ToSlice()...)
	return nil
}

func (r *SQLiteRepository) Get(ctx context.Context, owner, id string) (core.Transaction, error) {
	row, err := r.queries.GetTransaction(ctx, owner, id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, core.ErrNotFound
	}
	if err != nil {
		return core.Transaction{}, unavailable("get transaction", err)
	}
	return fromRow(row)
}

func (r *SQLiteRepository) List(ctx context.Context, owner string, f core.ListFilter) (core.Page, error) {
	where, args := listWhere(owner, f)

	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM transactions"+where, args...).Scan(&total); err != nil {
		return core.Page{}, unavailable("count transactions", err)
	}

	limit := f.Limit
	if f.Unbounded {
		limit = -1
	}
	query := "SELECT " + transactionColumns + " FROM transactions" + where +
		" ORDER BY occurred_at DESC, created_at DESC, id DESC LIMIT ? OFFSET ?"
	rows, err := r.db.QueryContext(ctx, query, append(args, limit, f.Offset)...)
	if err != nil {
		return core.Page{}, unavailable("list transactions", err)
	}
	defer rows.Close()

	items := make([]core.Transaction, 0)
	for rows.Next() {
		row, err := scanTransaction(rows)
		if err != nil {
			return core.Page{}, unavailable("scan transaction", err)
		}
		t, err := fromRow(row)
		if err != nil {
			return core.Page{}, err
		}
		items = append(items, t)
	}
	if err := rows.Err(); err != nil {
		return core.Page{}, unavailable("list transactions", err)
	}

	return core.Page{Items: items, Total: total, Limit: f.Limit, Offset: f.Offset}, nil
}

// Update reads, transforms and writes the record inside one SQL transaction.
// If fn fails nothing is written.
func (r *SQLiteRepository) Update(ctx context.Context, owner, id string, fn core.UpdateFunc) (core.Transaction, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return core.Transaction{}, unavailable("begin update", err)
	}
	defer tx.Rollback()

	q := r.queries.WithTx(tx)
	row, err := q.GetTransaction(ctx, owner, id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, core.ErrNotFound
	}
	if err != nil {
		return core.Transaction{}, unavailable("get transaction", err)
	}
	current, err := fromRow(row)
	if err != nil {
		return core.Transaction{}, err
	}

	next, changed, err := fn(current)
	if err != nil {
		return core.Transaction{}, err
	}
	if !changed {
		return current, nil
	}

	n, err := q.UpdateTransaction(ctx, toRow(next))
	if err != nil {
		return core.Transaction{}, unavailable("update transaction", err)
	}
	if n == 0 {
		return core.Transaction{}, core.ErrNotFound
	}
	if err := tx.Commit(); err != nil {
		return core.Transaction{}, unavailable("commit update", err)
	}
	return next, nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, owner, id string) (core.Removed, error) {
	gotID, title, err := r.queries.DeleteTransaction(ctx, owner, id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Removed{}, core.ErrNotFound
	}
	if err != nil {
		return core.Removed{}, unavailable("delete transaction", err)
	}
	return core.Removed{ID: gotID, Title: title}, nil
}

func (r *SQLiteRepository) CreateUser(ctx context.Context, u core.User) error {
	err := r.queries.InsertUser(ctx, UserRow{
		ID:           u.ID,
		Name:         u.Name,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		CreatedAt:    formatTime(u.CreatedAt),
	})
	if isUniqueViolation(err) {
		return fmt.Errorf("create user: %w", core.ErrConflict)
	}
	if err != nil {
		return unavailable("create user", err)
	}
	return nil
}

func (r *SQLiteRepository) UserByEmail(ctx context.Context, email string) (core.User, error) {
	row, err := r.queries.GetUserByEmail(ctx, email)
	return userFromRow(row, err)
}

func (r *SQLiteRepository) UserByID(ctx context.Context, id string) (core.User, error) {
	row, err := r.queries.GetUserByID(ctx, id)
	return userFromRow(row, err)
}

func listWhere(owner string, f core.ListFilter) (string, []any) {
	var b strings.Builder
	args := []any{owner}
	b.WriteString(" WHERE owner_id = ?")
	if f.Kind != "" {
		b.WriteString(" AND kind = ?")
		args = append(args, string(f.Kind))
	}
	if f.Category != "" {
		b.WriteString(` AND lower(category) LIKE ? ESCAPE '\'`)
		args = append(args, "%"+escapeLike(strings.ToLower(f.Category))+"%")
	}
	if !f.From.IsZero() {
		b.WriteString(" AND occurred_at >= ?")
		args = append(args, formatTime(f.From))
	}
	if !f.To.IsZero() {
		b.WriteString(" AND occurred_at <= ?")
		args = append(args, formatTime(f.To))
	}
	return b.String(), args
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

func toRow(t core.Transaction) TransactionRow {
	return TransactionRow{
		ID:         t.ID,
		OwnerID:    t.Owner,
		Title:      t.Title,
		Amount:     t.Amount.String(),
		Kind:       string(t.Kind),
		Category:   t.Category,
		OccurredAt: formatTime(t.Date),
		CreatedAt:  formatTime(t.CreatedAt),
		UpdatedAt:  formatTime(t.UpdatedAt),
	}
}

func fromRow(row TransactionRow) (core.Transaction, error) {
	amount, err := decimal.NewFromString(row.Amount)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("decode amount of %s: %w", row.ID, err)
	}
	t := core.Transaction{
		ID:       row.ID,
		Owner:    row.OwnerID,
		Title:    row.Title,
		Amount:   amount,
		Kind:     core.Kind(row.Kind),
		Category: row.Category,
	}
	if t.Date, err = parseTime(row.OccurredAt); err != nil {
		return core.Transaction{}, err
	}
	if t.CreatedAt, err = parseTime(row.CreatedAt); err != nil {
		return core.Transaction{}, err
	}
	if t.UpdatedAt, err = parseTime(row.UpdatedAt); err != nil {
		return core.Transaction{}, err
	}
	return t, nil
}

func userFromRow(row UserRow, err error) (core.User, error) {
	if errors.Is(err, sql.ErrNoRows) {
		return core.User{}, core.ErrNotFound
	}
	if err != nil {
		return core.User{}, unavailable("get user", err)
	}
	created, err := parseTime(row.CreatedAt)
	if err != nil {
		return core.User{}, err
	}
	return core.User{
		ID:           row.ID,
		Name:         row.Name,
		Email:        row.Email,
		PasswordHash: row.PasswordHash,
		CreatedAt:    created,
	}, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("decode timestamp %q: %w", s, err)
	}
	return t, nil
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, core.ErrStoreUnavailable, err)
}

func isUniqueViolation(err error) bool {
	var serr *sqlite.Error
	if errors.As(err, &serr) {
		return serr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE || serr.Code() == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	}
	return false
}
