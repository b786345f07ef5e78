package worker

import (
	"context"
	"errors"
	"fmt"

	"expensetracker/internal/amqp"
	"expensetracker/internal/core"
	"expensetracker/internal/log"
	"expensetracker/internal/sheets"
)

// TransactionReader is the slice of the store the worker needs.
type TransactionReader interface {
	Get(ctx context.Context, owner, id string) (core.Transaction, error)
	List(ctx context.Context, owner string, f core.ListFilter) (core.Page, error)
}

// MirrorWorker applies transaction events to a spreadsheet mirror. Events
// carry ids only, so the current record is always read back from the store.
type MirrorWorker struct {
	store  TransactionReader
	mirror sheets.TransactionMirror
	logger *log.Logger
}

func NewMirrorWorker(store TransactionReader, mirror sheets.TransactionMirror, logger *log.Logger) *MirrorWorker {
	if logger == nil {
		logger = log.Discard()
	}
	return &MirrorWorker{
		store:  store,
		mirror: mirror,
		logger: logger.WithComponent(log.ComponentWorker),
	}
}

// HandleEvent is safe to replay: upserts overwrite and removes of missing
// rows succeed.
func (w *MirrorWorker) HandleEvent(ctx context.Context, e *amqp.TransactionEvent) error {
	w.logger.DebugContext(ctx, "Processing transaction event",
		log.FieldEventType, e.Type, log.FieldTransaction, e.ID)

	switch e.Type {
	case amqp.EventCreated, amqp.EventUpdated:
		t, err := w.store.Get(ctx, e.Owner, e.ID)
		if errors.Is(err, core.ErrNotFound) {
			// Deleted before we got here; the delete event will clean up.
			w.logger.InfoContext(ctx, "Transaction gone, skipping mirror", log.FieldTransaction, e.ID)
			return nil
		}
		if err != nil {
			return fmt.Errorf("load transaction: %w", err)
		}
		if err := w.mirror.Upsert(ctx, t); err != nil {
			return fmt.Errorf("mirror upsert: %w", err)
		}
	case amqp.EventDeleted:
		if err := w.mirror.Remove(ctx, e.ID); err != nil {
			return fmt.Errorf("mirror remove: %w", err)
		}
	default:
		return fmt.Errorf("unknown event type %q", e.Type)
	}

	w.logger.InfoContext(ctx, "Transaction mirrored",
		log.FieldEventType, e.Type, log.FieldTransaction, e.ID, log.FieldOperation, log.OpSync)
	return nil
}

// Resync pushes every transaction of owner to the mirror. It is the backstop
// for events lost while the worker was down.
func (w *MirrorWorker) Resync(ctx context.Context, owner string) (int, error) {
	page, err := w.store.List(ctx, owner, core.ListFilter{Unbounded: true})
	if err != nil {
		return 0, fmt.Errorf("list transactions: %w", err)
	}
	for i, t := range page.Items {
		if err := ctx.Err(); err != nil {
			return i, err
		}
		if err := w.mirror.Upsert(ctx, t); err != nil {
			return i, fmt.Errorf("mirror upsert %s: %w", t.ID, err)
		}
	}
	w.logger.InfoContext(ctx, "Resync complete", log.FieldOwner, owner, log.FieldCount, len(page.Items))
	return len(page.Items), nil
}
