package asset

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists asset records, grounded on the teacher's
// internal/repository/asset_repository.go with the workspace scoping
// dropped (see model.go).
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository returns a Repository backed by db.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// Create inserts asset, filling in CreatedAt.
func (r *Repository) Create(ctx context.Context, a *Asset) error {
	query := `
		INSERT INTO assets (
			id, uploaded_by, filename, content_type, size, url, thumbnail_url, width, height
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at
	`
	return r.db.QueryRow(ctx, query,
		a.ID, a.UploadedBy, a.Filename, a.ContentType, a.Size, a.URL, a.ThumbnailURL, a.Width, a.Height,
	).Scan(&a.CreatedAt)
}

// GetByID retrieves an asset by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*Asset, error) {
	query := `
		SELECT id, uploaded_by, filename, content_type, size, url, thumbnail_url, width, height, created_at, deleted_at
		FROM assets
		WHERE id = $1 AND deleted_at IS NULL
	`
	return r.scan(r.db.QueryRow(ctx, query, id))
}

// ListByUploader returns every non-deleted asset uploaded by userID, newest
// first.
func (r *Repository) ListByUploader(ctx context.Context, userID uuid.UUID) ([]Asset, error) {
	query := `
		SELECT id, uploaded_by, filename, content_type, size, url, thumbnail_url, width, height, created_at, deleted_at
		FROM assets
		WHERE uploaded_by = $1 AND deleted_at IS NULL
		ORDER BY created_at DESC
	`
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query assets: %w", err)
	}
	defer rows.Close()

	var assets []Asset
	for rows.Next() {
		a, err := r.scanRow(rows)
		if err != nil {
			return nil, err
		}
		assets = append(assets, *a)
	}
	return assets, rows.Err()
}

// Delete soft-deletes an asset.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE assets SET deleted_at = NOW() WHERE id = $1 AND deleted_at IS NULL`
	result, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete asset: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("asset not found or already deleted")
	}
	return nil
}

func (r *Repository) scan(row pgx.Row) (*Asset, error) {
	var a Asset
	err := row.Scan(&a.ID, &a.UploadedBy, &a.Filename, &a.ContentType, &a.Size, &a.URL, &a.ThumbnailURL, &a.Width, &a.Height, &a.CreatedAt, &a.DeletedAt)
	if err == pgx.ErrNoRows {
		return nil, fmt.Errorf("asset not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan asset: %w", err)
	}
	return &a, nil
}

func (r *Repository) scanRow(rows pgx.Rows) (*Asset, error) {
	var a Asset
	err := rows.Scan(&a.ID, &a.UploadedBy, &a.Filename, &a.ContentType, &a.Size, &a.URL, &a.ThumbnailURL, &a.Width, &a.Height, &a.CreatedAt, &a.DeletedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to scan asset: %w", err)
	}
	return &a, nil
}
