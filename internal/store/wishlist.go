package store

import (
	"context"
	"fmt"
	"time"

	"github.com/mkravets/unimarket/internal/model"
)

// WishlistContains reports whether the product is in the local wishlist.
func (s *Store) WishlistContains(ctx context.Context, productID string) (bool, error) {
	var count int
	err := s.conn.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM wishlist WHERE product_id = ?", productID).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to query wishlist: %w", err)
	}
	return count > 0, nil
}

// ListWishlist returns all local wishlist entries, oldest first.
func (s *Store) ListWishlist(ctx context.Context) ([]model.WishlistEntry, error) {
	rows, err := s.conn.QueryContext(ctx,
		"SELECT product_id, added_at FROM wishlist ORDER BY added_at ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to query wishlist: %w", err)
	}
	defer rows.Close()

	var entries []model.WishlistEntry
	for rows.Next() {
		var e model.WishlistEntry
		var addedAt string
		if err := rows.Scan(&e.ProductID, &addedAt); err != nil {
			return nil, fmt.Errorf("failed to scan wishlist entry: %w", err)
		}
		e.AddedAt = parseTime(addedAt)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating wishlist: %w", err)
	}
	return entries, nil
}

// AddWishlist inserts a membership row. Idempotent.
func (tx *Tx) AddWishlist(ctx context.Context, productID string, addedAt time.Time) error {
	_, err := tx.tx.ExecContext(ctx, `
	INSERT INTO wishlist (product_id, added_at) VALUES (?, ?)
	ON CONFLICT(product_id) DO NOTHING
	`, productID, formatTime(addedAt))
	if err != nil {
		return fmt.Errorf("failed to add wishlist entry %s: %w", productID, err)
	}
	return nil
}

// RemoveWishlist deletes a membership row. Idempotent.
func (tx *Tx) RemoveWishlist(ctx context.Context, productID string) error {
	_, err := tx.tx.ExecContext(ctx,
		"DELETE FROM wishlist WHERE product_id = ?", productID)
	if err != nil {
		return fmt.Errorf("failed to remove wishlist entry %s: %w", productID, err)
	}
	return nil
}
