package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jonesrussell/gomirror/internal/domain"
)

// ResourceRepository handles database operations for cached resources and
// per-article resource maps.
type ResourceRepository struct {
	db *sqlx.DB
}

// NewResourceRepository creates a new resource repository.
func NewResourceRepository(db *sqlx.DB) *ResourceRepository {
	return &ResourceRepository{db: db}
}

// GetCachedResource retrieves the cached resource for (accountID, sourceURL).
// Returns (nil, nil) when the resource has not been harvested yet.
func (r *ResourceRepository) GetCachedResource(
	ctx context.Context,
	accountID, sourceURL string,
) (*domain.CachedResource, error) {
	var res domain.CachedResource
	query := `
		SELECT id, account_id, source_url, local_path, byte_size, mime_type, created_at
		FROM cached_resources
		WHERE account_id = $1 AND source_url = $2
	`

	err := r.db.GetContext(ctx, &res, query, accountID, sourceURL)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get cached resource: %w", err)
	}

	return &res, nil
}

// SaveCachedResource inserts a cached resource; duplicate (account_id,
// source_url) inserts are no-ops so the first stored artifact stays
// authoritative.
func (r *ResourceRepository) SaveCachedResource(ctx context.Context, res *domain.CachedResource) error {
	if res.ID == "" {
		res.ID = uuid.NewString()
	}

	query := `
		INSERT INTO cached_resources (id, account_id, source_url, local_path, byte_size, mime_type)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (account_id, source_url) DO NOTHING
	`

	_, err := r.db.ExecContext(
		ctx,
		query,
		res.ID,
		res.AccountID,
		res.SourceURL,
		res.LocalPath,
		res.ByteSize,
		res.MimeType,
	)
	if err != nil {
		return fmt.Errorf("failed to save cached resource: %w", err)
	}

	return nil
}

// SaveResourceMap upserts the per-article record of rewritten asset URLs.
func (r *ResourceRepository) SaveResourceMap(ctx context.Context, m *domain.ResourceMap) error {
	query := `
		INSERT INTO resource_maps (account_id, article_url, mapping)
		VALUES ($1, $2, $3)
		ON CONFLICT (account_id, article_url) DO UPDATE SET mapping = EXCLUDED.mapping
	`

	_, err := r.db.ExecContext(ctx, query, m.AccountID, m.ArticleURL, m.Mapping)
	if err != nil {
		return fmt.Errorf("failed to save resource map: %w", err)
	}

	return nil
}
