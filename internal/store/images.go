package store

import (
	"context"
	"fmt"

	"github.com/mkravets/unimarket/internal/model"
)

// InsertImageUpload records a requested upload in pending state, inside the
// repository's write transaction. The correlation id must match the queued
// upload operation.
func (tx *Tx) InsertImageUpload(ctx context.Context, u *model.ImageUpload) error {
	_, err := tx.tx.ExecContext(ctx, `
	INSERT INTO image_uploads (correlation_id, local_path, remote_path, state, remote_url, created_at)
	VALUES (?, ?, ?, ?, ?, ?)
	`,
		u.CorrelationID,
		u.LocalPath,
		u.RemotePath,
		string(model.UploadPending),
		"",
		formatTime(u.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert image upload %s: %w", u.CorrelationID, err)
	}
	return nil
}

// ResolveImageUpload records the outcome of an upload attempt. remoteURL is
// only meaningful for UploadSuccess.
func (s *Store) ResolveImageUpload(ctx context.Context, correlationID string, state model.UploadState, remoteURL string) error {
	_, err := s.conn.ExecContext(ctx, `
	UPDATE image_uploads SET state = ?, remote_url = ? WHERE correlation_id = ?
	`, string(state), remoteURL, correlationID)
	if err != nil {
		return fmt.Errorf("failed to resolve image upload %s: %w", correlationID, err)
	}
	return nil
}

// GetImageUpload retrieves an upload record by correlation id.
// Returns ErrNotFound if no record exists.
func (s *Store) GetImageUpload(ctx context.Context, correlationID string) (*model.ImageUpload, error) {
	row := s.conn.QueryRowContext(ctx, `
	SELECT id, correlation_id, local_path, remote_path, state, remote_url, created_at
	FROM image_uploads
	WHERE correlation_id = ?
	`, correlationID)

	var u model.ImageUpload
	var state, createdAt string
	err := row.Scan(&u.ID, &u.CorrelationID, &u.LocalPath, &u.RemotePath,
		&state, &u.RemoteURL, &createdAt)
	if err != nil {
		if isNoRows(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get image upload %s: %w", correlationID, err)
	}
	u.State = model.UploadState(state)
	u.CreatedAt = parseTime(createdAt)
	return &u, nil
}

// ListImageUploads returns all upload records, oldest first.
func (s *Store) ListImageUploads(ctx context.Context) ([]model.ImageUpload, error) {
	rows, err := s.conn.QueryContext(ctx, `
	SELECT id, correlation_id, local_path, remote_path, state, remote_url, created_at
	FROM image_uploads
	ORDER BY id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query image uploads: %w", err)
	}
	defer rows.Close()

	var uploads []model.ImageUpload
	for rows.Next() {
		var u model.ImageUpload
		var state, createdAt string
		err := rows.Scan(&u.ID, &u.CorrelationID, &u.LocalPath, &u.RemotePath,
			&state, &u.RemoteURL, &createdAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan image upload: %w", err)
		}
		u.State = model.UploadState(state)
		u.CreatedAt = parseTime(createdAt)
		uploads = append(uploads, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating image uploads: %w", err)
	}
	return uploads, nil
}

// ClearImageUpload deletes a record once the consumer has observed its
// outcome. The worker never deletes records itself.
func (s *Store) ClearImageUpload(ctx context.Context, correlationID string) error {
	_, err := s.conn.ExecContext(ctx,
		"DELETE FROM image_uploads WHERE correlation_id = ?", correlationID)
	if err != nil {
		return fmt.Errorf("failed to clear image upload %s: %w", correlationID, err)
	}
	return nil
}
