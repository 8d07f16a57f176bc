package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mkravets/unimarket/internal/model"
)

// DeadOp is a pending operation retired after a permanent replay failure.
type DeadOp struct {
	ID            int64
	OpID          int64
	Kind          model.OpKind
	Payload       json.RawMessage
	CorrelationID string
	CreatedAt     time.Time
	FailedAt      time.Time
	Reason        string
}

// DeadLetter moves an operation out of the pending queue into dead_ops in a
// single transaction. Retrying a permanently failing operation forever would
// head-of-line-block everything queued after it; retiring it keeps the queue
// draining while preserving the failed intent for inspection.
func (s *Store) DeadLetter(ctx context.Context, op model.PendingOp, failedAt time.Time, reason string) error {
	return s.WithTx(ctx, func(tx *Tx) error {
		_, err := tx.tx.ExecContext(ctx, `
		INSERT INTO dead_ops (op_id, kind, payload, correlation_id, created_at, failed_at, reason)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		`,
			op.ID,
			string(op.Kind),
			string(op.Payload),
			op.CorrelationID,
			op.CreatedAt.UnixNano(),
			formatTime(failedAt),
			reason,
		)
		if err != nil {
			return fmt.Errorf("failed to dead-letter operation %d: %w", op.ID, err)
		}

		if _, err := tx.tx.ExecContext(ctx, "DELETE FROM pending_ops WHERE id = ?", op.ID); err != nil {
			return fmt.Errorf("failed to remove dead-lettered operation %d: %w", op.ID, err)
		}
		return nil
	})
}

// ListDeadOps returns retired operations, oldest failure first.
func (s *Store) ListDeadOps(ctx context.Context) ([]DeadOp, error) {
	rows, err := s.conn.QueryContext(ctx, `
	SELECT id, op_id, kind, payload, correlation_id, created_at, failed_at, reason
	FROM dead_ops
	ORDER BY id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query dead operations: %w", err)
	}
	defer rows.Close()

	var ops []DeadOp
	for rows.Next() {
		var d DeadOp
		var kind, payload, failedAt string
		var createdAt int64
		err := rows.Scan(&d.ID, &d.OpID, &kind, &payload, &d.CorrelationID,
			&createdAt, &failedAt, &d.Reason)
		if err != nil {
			return nil, fmt.Errorf("failed to scan dead operation: %w", err)
		}
		d.Kind = model.OpKind(kind)
		d.Payload = json.RawMessage(payload)
		d.CreatedAt = time.Unix(0, createdAt)
		d.FailedAt = parseTime(failedAt)
		ops = append(ops, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating dead operations: %w", err)
	}
	return ops, nil
}

// DeadCount returns the number of retired operations.
func (s *Store) DeadCount(ctx context.Context) (int, error) {
	var count int
	err := s.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM dead_ops").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count dead operations: %w", err)
	}
	return count, nil
}
