package store

import (
	"context"
	"fmt"

	"github.com/mkravets/unimarket/internal/model"
)

// InsertOrder writes an optimistic order row inside the repository's write
// transaction.
func (tx *Tx) InsertOrder(ctx context.Context, o *model.Order) error {
	_, err := tx.tx.ExecContext(ctx, `
	INSERT INTO orders (id, buyer_id, seller_id, product_id, order_date, price, status)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		o.ID,
		o.BuyerID,
		o.SellerID,
		o.ProductID,
		formatTime(o.OrderDate),
		o.Price,
		o.Status,
	)
	if err != nil {
		return fmt.Errorf("failed to insert order %s: %w", o.ID, err)
	}
	return nil
}

// SetOrderDate overwrites an order's date with the backend's authoritative
// server timestamp once the order has been replayed.
func (s *Store) SetOrderDate(ctx context.Context, id string, orderDate string) error {
	_, err := s.conn.ExecContext(ctx,
		"UPDATE orders SET order_date = ? WHERE id = ?", orderDate, id)
	if err != nil {
		return fmt.Errorf("failed to set order %s date: %w", id, err)
	}
	return nil
}

// ListOrders returns cached orders, newest first.
func (s *Store) ListOrders(ctx context.Context) ([]model.Order, error) {
	rows, err := s.conn.QueryContext(ctx, `
	SELECT id, buyer_id, seller_id, product_id, order_date, price, status
	FROM orders
	ORDER BY order_date DESC, id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	var orders []model.Order
	for rows.Next() {
		var o model.Order
		var orderDate string
		err := rows.Scan(&o.ID, &o.BuyerID, &o.SellerID, &o.ProductID,
			&orderDate, &o.Price, &o.Status)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		o.OrderDate = parseTime(orderDate)
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating orders: %w", err)
	}
	return orders, nil
}

// GetOrder retrieves a single cached order.
// Returns ErrNotFound if the order is not cached.
func (s *Store) GetOrder(ctx context.Context, id string) (*model.Order, error) {
	row := s.conn.QueryRowContext(ctx, `
	SELECT id, buyer_id, seller_id, product_id, order_date, price, status
	FROM orders
	WHERE id = ?
	`, id)

	var o model.Order
	var orderDate string
	err := row.Scan(&o.ID, &o.BuyerID, &o.SellerID, &o.ProductID,
		&orderDate, &o.Price, &o.Status)
	if err != nil {
		if isNoRows(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get order %s: %w", id, err)
	}
	o.OrderDate = parseTime(orderDate)
	return &o, nil
}
