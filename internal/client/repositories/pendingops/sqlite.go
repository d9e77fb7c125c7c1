package pendingops

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/mpetrovs/tabchat/internal/client/models"
	"github.com/mpetrovs/tabchat/internal/dbx"
)

// SQLiteRepository implements Repository over the local SQLite database.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository returns a new SQLiteRepository bound to db.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Enqueue appends op to the queue. The autoincrement id provides the FIFO
// position.
func (r *SQLiteRepository) Enqueue(ctx context.Context, op *models.PendingOperation) error {
	query := `INSERT INTO pending_operations (kind, payload, attempts, next_attempt_at, created_at)
			VALUES (?, ?, ?, ?, ?)`
	createdAt := op.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	_, err := r.db.ExecContext(ctx, query,
		string(op.Kind), []byte(op.Payload), op.Attempts, op.NextAttemptAt.UnixMilli(), createdAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to enqueue operation: %w", err)
	}
	return nil
}

// TakeReady selects and deletes ready operations inside one transaction, so
// a crash mid-replay never loses the snapshot and never replays it twice
// from the same queue state.
func (r *SQLiteRepository) TakeReady(ctx context.Context, now time.Time) ([]*models.PendingOperation, error) {
	var result []*models.PendingOperation

	err := dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		query := `SELECT id, kind, payload, attempts, next_attempt_at, created_at
				FROM pending_operations WHERE next_attempt_at <= ? ORDER BY id`
		rows, err := tx.QueryContext(ctx, query, now.UnixMilli())
		if err != nil {
			return fmt.Errorf("failed to select operations: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			op := &models.PendingOperation{}
			var kind string
			var nextAttempt, createdAt int64
			if err := rows.Scan(&op.ID, &kind, (*[]byte)(&op.Payload), &op.Attempts, &nextAttempt, &createdAt); err != nil {
				return err
			}
			op.Kind = models.OperationKind(kind)
			op.NextAttemptAt = time.UnixMilli(nextAttempt)
			op.CreatedAt = time.UnixMilli(createdAt)
			result = append(result, op)
		}
		if err := rows.Err(); err != nil {
			return err
		}

		for _, op := range result {
			if _, err := tx.ExecContext(ctx, `DELETE FROM pending_operations WHERE id = ?`, op.ID); err != nil {
				return fmt.Errorf("failed to remove operation %d: %w", op.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Requeue appends op back with attempts+1. The new autoincrement id places
// it behind everything queued since, matching at-least-once semantics.
func (r *SQLiteRepository) Requeue(ctx context.Context, op *models.PendingOperation, nextAttempt time.Time) error {
	query := `INSERT INTO pending_operations (kind, payload, attempts, next_attempt_at, created_at)
			VALUES (?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		string(op.Kind), []byte(op.Payload), op.Attempts+1, nextAttempt.UnixMilli(), op.CreatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to requeue operation: %w", err)
	}
	return nil
}

// Count returns the number of queued operations.
func (r *SQLiteRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM pending_operations`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count operations: %w", err)
	}
	return n, nil
}
