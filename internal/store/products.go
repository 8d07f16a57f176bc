package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mkravets/unimarket/internal/model"
)

// ErrNotFound indicates the requested entity is not in the cache.
var ErrNotFound = errors.New("not found")

// ReplaceProducts merges a freshly fetched product set into the cache,
// stamping every row with cachedAt. Rows no longer present remotely are
// removed so the cache mirrors the collection.
func (s *Store) ReplaceProducts(ctx context.Context, products []model.Product, cachedAt time.Time) error {
	return s.WithTx(ctx, func(tx *Tx) error {
		if _, err := tx.tx.ExecContext(ctx, "DELETE FROM products"); err != nil {
			return fmt.Errorf("failed to clear products: %w", err)
		}
		for i := range products {
			if err := upsertProduct(ctx, tx.tx, &products[i], cachedAt); err != nil {
				return err
			}
		}
		return nil
	})
}

func upsertProduct(ctx context.Context, q dbtx, p *model.Product, cachedAt time.Time) error {
	if err := p.Validate(); err != nil {
		return fmt.Errorf("invalid product: %w", err)
	}

	imagesJSON, err := json.Marshal(p.Images)
	if err != nil {
		return fmt.Errorf("failed to marshal images: %w", err)
	}
	labelsJSON, err := json.Marshal(p.Labels)
	if err != nil {
		return fmt.Errorf("failed to marshal labels: %w", err)
	}

	query := `
	INSERT INTO products (
		id, seller_id, title, description, price,
		images, labels, status, created_at, updated_at, cached_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		seller_id = excluded.seller_id,
		title = excluded.title,
		description = excluded.description,
		price = excluded.price,
		images = excluded.images,
		labels = excluded.labels,
		status = excluded.status,
		created_at = excluded.created_at,
		updated_at = excluded.updated_at,
		cached_at = excluded.cached_at
	`

	_, err = q.ExecContext(ctx, query,
		p.ID,
		p.SellerID,
		p.Title,
		p.Description,
		p.Price,
		string(imagesJSON),
		string(labelsJSON),
		string(p.Status),
		formatTime(p.CreatedAt),
		formatTime(p.UpdatedAt),
		cachedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert product %s: %w", p.ID, err)
	}
	return nil
}

// InsertProduct writes a single locally published product into the cache.
func (tx *Tx) InsertProduct(ctx context.Context, p *model.Product, cachedAt time.Time) error {
	return upsertProduct(ctx, tx.tx, p, cachedAt)
}

const productColumns = `id, seller_id, title, description, price,
	images, labels, status, created_at, updated_at, cached_at`

// ListProducts returns every cached product ordered by creation time
// descending (newest listings first).
func (s *Store) ListProducts(ctx context.Context) ([]model.Product, error) {
	rows, err := s.conn.QueryContext(ctx, `
	SELECT `+productColumns+`
	FROM products
	ORDER BY created_at DESC, id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	return scanProducts(rows)
}

// GetProduct retrieves a single cached product.
// Returns ErrNotFound if the product is not cached.
func (s *Store) GetProduct(ctx context.Context, id string) (*model.Product, error) {
	row := s.conn.QueryRowContext(ctx, `
	SELECT `+productColumns+`
	FROM products
	WHERE id = ?
	`, id)

	p, err := scanProduct(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get product %s: %w", id, err)
	}
	return p, nil
}

// SetProductStatus updates a cached product's status field.
func (s *Store) SetProductStatus(ctx context.Context, id string, status model.ProductStatus) error {
	return setProductStatus(ctx, s.conn, id, status)
}

// SetProductStatus is the transactional variant used by the repository's
// optimistic write path.
func (tx *Tx) SetProductStatus(ctx context.Context, id string, status model.ProductStatus) error {
	return setProductStatus(ctx, tx.tx, id, status)
}

func setProductStatus(ctx context.Context, q dbtx, id string, status model.ProductStatus) error {
	_, err := q.ExecContext(ctx, `UPDATE products SET status = ? WHERE id = ?`, string(status), id)
	if err != nil {
		return fmt.Errorf("failed to set product %s status: %w", id, err)
	}
	return nil
}

// OldestCacheTimestamp returns the minimum cached_at across all products.
// Returns ok=false when the cache is empty.
//
// The TTL policy is collection-wide: one shared freshness horizon in exchange
// for a single round trip per refresh.
func (s *Store) OldestCacheTimestamp(ctx context.Context) (time.Time, bool, error) {
	var min sql.NullInt64
	err := s.conn.QueryRowContext(ctx, "SELECT MIN(cached_at) FROM products").Scan(&min)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("failed to query cache timestamp: %w", err)
	}
	if !min.Valid {
		return time.Time{}, false, nil
	}
	return time.Unix(0, min.Int64), true, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (*model.Product, error) {
	var p model.Product
	var imagesJSON, labelsJSON, status string
	var createdAt, updatedAt string
	var cachedAt int64

	err := row.Scan(
		&p.ID,
		&p.SellerID,
		&p.Title,
		&p.Description,
		&p.Price,
		&imagesJSON,
		&labelsJSON,
		&status,
		&createdAt,
		&updatedAt,
		&cachedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(imagesJSON), &p.Images); err != nil {
		return nil, fmt.Errorf("failed to unmarshal images: %w", err)
	}
	if err := json.Unmarshal([]byte(labelsJSON), &p.Labels); err != nil {
		return nil, fmt.Errorf("failed to unmarshal labels: %w", err)
	}

	p.Status = model.ProductStatus(status)
	p.CreatedAt = parseTime(createdAt)
	p.UpdatedAt = parseTime(updatedAt)
	p.CachedAt = time.Unix(0, cachedAt)
	return &p, nil
}

func scanProducts(rows *sql.Rows) ([]model.Product, error) {
	var products []model.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating products: %w", err)
	}
	return products, nil
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
