package storage

import (
	"context"
	"database/sql"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

type TransactionRow struct {
	ID         string
	OwnerID    string
	Title      string
	Amount     string
	Kind       string
	Category   string
	OccurredAt string
	CreatedAt  string
	UpdatedAt  string
}

type UserRow struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	CreatedAt    string
}

const transactionColumns = `id, owner_id, title, amount, kind, category, occurred_at, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTransaction(s rowScanner) (TransactionRow, error) {
	var i TransactionRow
	err := s.Scan(
		&i.ID,
		&i.OwnerID,
		&i.Title,
		&i.Amount,
		&i.Kind,
		&i.Category,
		&i.OccurredAt,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const insertTransaction = `
INSERT INTO transactions (` + transactionColumns + `)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
`

func (q *Queries) InsertTransaction(ctx context.Context, arg TransactionRow) error {
	_, err := q.db.ExecContext(ctx, insertTransaction,
		arg.ID,
		arg.OwnerID,
		arg.Title,
		arg.Amount,
		arg.Kind,
		arg.Category,
		arg.OccurredAt,
		arg.CreatedAt,
		arg.UpdatedAt,
	)
	return err
}

const getTransaction = `
SELECT ` + transactionColumns + `
FROM transactions
WHERE owner_id = ? AND id = ?
`

func (q *Queries) GetTransaction(ctx context.Context, ownerID, id string) (TransactionRow, error) {
	return scanTransaction(q.db.QueryRowContext(ctx, getTransaction, ownerID, id))
}

const updateTransaction = `
UPDATE transactions
SET title = ?, amount = ?, kind = ?, category = ?, occurred_at = ?, updated_at = ?
WHERE owner_id = ? AND id = ?
`

func (q *Queries) UpdateTransaction(ctx context.Context, arg TransactionRow) (int64, error) {
	res, err := q.db.ExecContext(ctx, updateTransaction,
		arg.Title,
		arg.Amount,
		arg.Kind,
		arg.Category,
		arg.OccurredAt,
		arg.UpdatedAt,
		arg.OwnerID,
		arg.ID,
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const deleteTransaction = `
DELETE FROM transactions
WHERE owner_id = ? AND id = ?
RETURNING id, title
`

func (q *Queries) DeleteTransaction(ctx context.Context, ownerID, id string) (string, string, error) {
	var gotID, title string
	err := q.db.QueryRowContext(ctx, deleteTransaction, ownerID, id).Scan(&gotID, &title)
	return gotID, title, err
}

const insertUser = `
INSERT INTO users (id, name, email, password_hash, created_at)
VALUES (?, ?, ?, ?, ?)
`

func (q *Queries) InsertUser(ctx context.Context, arg UserRow) error {
	_, err := q.db.ExecContext(ctx, insertUser, arg.ID, arg.Name, arg.Email, arg.PasswordHash, arg.CreatedAt)
	return err
}

const getUserByEmail = `
SELECT id, name, email, password_hash, created_at
FROM users
WHERE email = ?
`

func (q *Queries) GetUserByEmail(ctx context.Context, email string) (UserRow, error) {
	var i UserRow
	err := q.db.QueryRowContext(ctx, getUserByEmail, email).Scan(&i.ID, &i.Name, &i.Email, &i.PasswordHash, &i.CreatedAt)
	return i, err
}

const getUserByID = `
SELECT id, name, email, password_hash, created_at
FROM users
WHERE id = ?
`

func (q *Queries) GetUserByID(ctx context.Context, id string) (UserRow, error) {
	var i UserRow
	err := q.db.QueryRowContext(ctx, getUserByID, id).Scan(&i.ID, &i.Name, &i.Email, &i.PasswordHash, &i.CreatedAt)
	return i, err
}
