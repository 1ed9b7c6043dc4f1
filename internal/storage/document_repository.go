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

// DocumentRepository handles database operations for cached documents.
type DocumentRepository struct {
	db *sqlx.DB
}

// NewDocumentRepository creates a new document repository.
func NewDocumentRepository(db *sqlx.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

// GetCachedDocument retrieves the cached document for (accountID, url).
// Returns (nil, nil) when no document is cached.
func (r *DocumentRepository) GetCachedDocument(
	ctx context.Context,
	accountID, url string,
) (*domain.CachedDocument, error) {
	var doc domain.CachedDocument
	query := `
		SELECT id, account_id, source_key, url, title, comment_id, local_path, byte_size, created_at
		FROM cached_documents
		WHERE account_id = $1 AND url = $2
	`

	err := r.db.GetContext(ctx, &doc, query, accountID, url)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get cached document: %w", err)
	}

	return &doc, nil
}

// SaveCachedDocument inserts a cached document. A concurrent writer may have
// stored the same (account_id, url) first; the uniqueness constraint makes
// the insert a no-op in that case, which callers treat as a cache hit.
func (r *DocumentRepository) SaveCachedDocument(ctx context.Context, doc *domain.CachedDocument) error {
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}

	query := `
		INSERT INTO cached_documents (id, account_id, source_key, url, title, comment_id, local_path, byte_size)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (account_id, url) DO NOTHING
	`

	_, err := r.db.ExecContext(
		ctx,
		query,
		doc.ID,
		doc.AccountID,
		doc.SourceKey,
		doc.URL,
		doc.Title,
		doc.CommentID,
		doc.LocalPath,
		doc.ByteSize,
	)
	if err != nil {
		return fmt.Errorf("failed to save cached document: %w", err)
	}

	return nil
}

// ListCachedURLs returns every cached article URL for (accountID, sourceKey).
func (r *DocumentRepository) ListCachedURLs(
	ctx context.Context,
	accountID, sourceKey string,
) ([]string, error) {
	var urls []string
	query := `
		SELECT url
		FROM cached_documents
		WHERE account_id = $1 AND source_key = $2
		ORDER BY created_at
	`

	err := r.db.SelectContext(ctx, &urls, query, accountID, sourceKey)
	if err != nil {
		return nil, fmt.Errorf("failed to list cached urls: %w", err)
	}

	return urls, nil
}
