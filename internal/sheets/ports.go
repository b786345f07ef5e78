package sheets

import (
	"context"

	"expensetracker/internal/core"
)

// TransactionMirror keeps an external copy of transactions in step with the
// store. Implementations must treat Remove of an unknown id as success.
type TransactionMirror interface {
	Upsert(ctx context.Context, t core.Transaction) error
	Remove(ctx context.Context, id string) error
}
