package common

import (
	"context"

	"github.com/jonesrussell/gomirror/internal/domain"
	"github.com/jonesrussell/gomirror/internal/storage"
)

// contentStore composes the document and resource repositories into the
// fetcher's ContentStore interface.
type contentStore struct {
	documents *storage.DocumentRepository
	resources *storage.ResourceRepository
}

func (s *contentStore) GetCachedDocument(
	ctx context.Context,
	accountID, url string,
) (*domain.CachedDocument, error) {
	return s.documents.GetCachedDocument(ctx, accountID, url)
}

func (s *contentStore) SaveCachedDocument(ctx context.Context, doc *domain.CachedDocument) error {
	return s.documents.SaveCachedDocument(ctx, doc)
}

func (s *contentStore) GetCachedResource(
	ctx context.Context,
	accountID, sourceURL string,
) (*domain.CachedResource, error) {
	return s.resources.GetCachedResource(ctx, accountID, sourceURL)
}

func (s *contentStore) SaveCachedResource(ctx context.Context, res *domain.CachedResource) error {
	return s.resources.SaveCachedResource(ctx, res)
}

func (s *contentStore) SaveResourceMap(ctx context.Context, m *domain.ResourceMap) error {
	return s.resources.SaveResourceMap(ctx, m)
}
