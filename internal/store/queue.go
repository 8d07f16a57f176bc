package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mkravets/unimarket/internal/model"
)

// EnqueueOp appends an operation to the pending queue with the given
// creation timestamp.
func (s *Store) EnqueueOp(ctx context.Context, kind model.OpKind, payload any, correlationID string, createdAt time.Time) (int64, error) {
	return enqueueOp(ctx, s.conn, kind, payload, correlationID, createdAt)
}

// EnqueueOp appends an operation inside the repository's write transaction,
// so the optimistic mutation and its queued intent commit together.
func (tx *Tx) EnqueueOp(ctx context.Context, kind model.OpKind, payload any, correlationID string, createdAt time.Time) (int64, error) {
	return enqueueOp(ctx, tx.tx, kind, payload, correlationID, createdAt)
}

func enqueueOp(ctx context.Context, q dbtx, kind model.OpKind, payload any, correlationID string, createdAt time.Time) (int64, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal %s payload: %w", kind, err)
	}

	res, err := q.ExecContext(ctx, `
	INSERT INTO pending_ops (kind, payload, correlation_id, created_at)
	VALUES (?, ?, ?, ?)
	`, string(kind), string(raw), correlationID, createdAt.UnixNano())
	if err != nil {
		return 0, fmt.Errorf("failed to enqueue %s operation: %w", kind, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read operation id: %w", err)
	}
	return id, nil
}

// PendingOps returns every queued operation ordered by ascending creation
// time, id as tiebreak. This ordering is the queue's core invariant:
// operations on the same entity must replay in the order the user issued
// them, or remote state diverges from intent.
func (s *Store) PendingOps(ctx context.Context) ([]model.PendingOp, error) {
	rows, err := s.conn.QueryContext(ctx, `
	SELECT id, kind, payload, correlation_id, created_at
	FROM pending_ops
	ORDER BY created_at ASC, id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending operations: %w", err)
	}
	defer rows.Close()

	var ops []model.PendingOp
	for rows.Next() {
		var op model.PendingOp
		var kind, payload string
		var createdAt int64
		if err := rows.Scan(&op.ID, &kind, &payload, &op.CorrelationID, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan pending operation: %w", err)
		}
		op.Kind = model.OpKind(kind)
		op.Payload = json.RawMessage(payload)
		op.CreatedAt = time.Unix(0, createdAt)
		ops = append(ops, op)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating pending operations: %w", err)
	}
	return ops, nil
}

// RemoveOp deletes an operation after successful or intentionally abandoned
// replay. Idempotent.
func (s *Store) RemoveOp(ctx context.Context, id int64) error {
	_, err := s.conn.ExecContext(ctx, "DELETE FROM pending_ops WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to remove operation %d: %w", id, err)
	}
	return nil
}

// PendingCount returns the queue depth.
func (s *Store) PendingCount(ctx context.Context) (int, error) {
	var count int
	err := s.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM pending_ops").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count pending operations: %w", err)
	}
	return count, nil
}
