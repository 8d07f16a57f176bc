package store

import (
	"context"
	"fmt"

	"github.com/mkravets/unimarket/internal/model"
)

// InsertReview writes a pending review inside the repository's write
// transaction and returns its local id.
func (tx *Tx) InsertReview(ctx context.Context, r *model.Review) (int64, error) {
	if err := r.Validate(); err != nil {
		return 0, fmt.Errorf("invalid review: %w", err)
	}

	res, err := tx.tx.ExecContext(ctx, `
	INSERT INTO reviews (target_user_id, reviewer_id, order_id, rating, comment, created_at, status)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		r.TargetUserID,
		r.ReviewerID,
		r.OrderID,
		r.Rating,
		r.Comment,
		formatTime(r.CreatedAt),
		string(model.ReviewPending),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert review: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read review id: %w", err)
	}
	return id, nil
}

// SetReviewStatus flips a review's local sync state after a replay attempt.
func (s *Store) SetReviewStatus(ctx context.Context, id int64, status model.ReviewStatus) error {
	_, err := s.conn.ExecContext(ctx,
		"UPDATE reviews SET status = ? WHERE id = ?", string(status), id)
	if err != nil {
		return fmt.Errorf("failed to set review %d status: %w", id, err)
	}
	return nil
}

// ListReviews returns local reviews, oldest first.
func (s *Store) ListReviews(ctx context.Context) ([]model.Review, error) {
	rows, err := s.conn.QueryContext(ctx, `
	SELECT id, target_user_id, reviewer_id, order_id, rating, comment, created_at, status
	FROM reviews
	ORDER BY id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query reviews: %w", err)
	}
	defer rows.Close()

	var reviews []model.Review
	for rows.Next() {
		var r model.Review
		var createdAt, status string
		err := rows.Scan(&r.ID, &r.TargetUserID, &r.ReviewerID, &r.OrderID,
			&r.Rating, &r.Comment, &createdAt, &status)
		if err != nil {
			return nil, fmt.Errorf("failed to scan review: %w", err)
		}
		r.CreatedAt = parseTime(createdAt)
		r.Status = model.ReviewStatus(status)
		reviews = append(reviews, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating reviews: %w", err)
	}
	return reviews, nil
}
