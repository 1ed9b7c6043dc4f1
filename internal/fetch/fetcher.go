package fetch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path"
	"strings"

	"github.com/jonesrussell/gomirror/internal/assets"
	"github.com/jonesrussell/gomirror/internal/domain"
	"github.com/jonesrussell/gomirror/internal/logger"
	"github.com/jonesrussell/gomirror/internal/metrics"
	"github.com/jonesrussell/gomirror/internal/rewrite"
)

// Storage layout segments under <accountID>/<sourceKey>/.
const (
	htmlDir     = "html"
	resourceDir = "resources"
)

// ContentStore persists and retrieves cached documents and resources. It is
// the source of truth for "already downloaded".
type ContentStore interface {
	GetCachedDocument(ctx context.Context, accountID, url string) (*domain.CachedDocument, error)
	SaveCachedDocument(ctx context.Context, doc *domain.CachedDocument) error
	GetCachedResource(ctx context.Context, accountID, sourceURL string) (*domain.CachedResource, error)
	SaveCachedResource(ctx context.Context, res *domain.CachedResource) error
	SaveResourceMap(ctx context.Context, m *domain.ResourceMap) error
}

// QuotaGate answers whether additional bytes would exceed the account's
// quota and records storage deltas after successful saves.
type QuotaGate interface {
	WouldFit(ctx context.Context, accountID string, additionalBytes int64) (bool, error)
	RecordUsage(ctx context.Context, accountID string, deltaBytes int64) error
}

// BlobWriter stores raw bytes at a path relative to the storage root.
type BlobWriter interface {
	Write(relPath string, data []byte) (int64, error)
	Exists(relPath string) (bool, error)
}

// Result describes one successfully acquired article.
type Result struct {
	Title     string
	CommentID string
	LocalPath string
	ByteSize  int64
	// HarvestedCount is the number of resources referenced by the rewritten
	// document; zero on a cache hit.
	HarvestedCount int
	// FailedResourceURLs lists assets that could not be harvested. They are
	// left un-rewritten in the stored document.
	FailedResourceURLs []string
	// FromCache reports whether the result came from a previous run.
	FromCache bool
}

// Config holds the fetcher's tunables.
type Config struct {
	// QuotaEstimateBytes is the conservative footprint assumed before the
	// real article size is known. The pre-check is soft: a large article can
	// still exceed quota after passing it, and the overrun is reconciled by
	// the post-save usage report.
	QuotaEstimateBytes int64
	// SessionExpiredMarkers identify the upstream's session-expiry
	// interstitial in a fetched body.
	SessionExpiredMarkers []string
}

// ArticleFetcher runs the full single-article pipeline.
type ArticleFetcher struct {
	store     ContentStore
	quota     QuotaGate
	blobs     BlobWriter
	client    *Client
	extractor *assets.Extractor
	stats     *metrics.Collector
	log       logger.Interface
	cfg       Config
}

// NewArticleFetcher creates a fetcher with the given collaborators.
func NewArticleFetcher(
	store ContentStore,
	quota QuotaGate,
	blobs BlobWriter,
	client *Client,
	extractor *assets.Extractor,
	stats *metrics.Collector,
	log logger.Interface,
	cfg Config,
) *ArticleFetcher {
	return &ArticleFetcher{
		store:     store,
		quota:     quota,
		blobs:     blobs,
		client:    client,
		extractor: extractor,
		stats:     stats,
		log:       log,
		cfg:       cfg,
	}
}

// FetchArticle acquires one article: cache check, quota check, document
// fetch, title extraction, resource harvesting, rewrite, persistence, and
// quota update. Failure modes: ErrQuotaExceeded, ErrSessionExpired,
// HTTPStatusError, NetworkError.
func (f *ArticleFetcher) FetchArticle(
	ctx context.Context,
	accountID, sourceKey, articleURL string,
) (*Result, error) {
	// A cached article short-circuits before any quota or network work, so
	// repeated batch runs are idempotent.
	cached, err := f.store.GetCachedDocument(ctx, accountID, articleURL)
	if err != nil {
		return nil, fmt.Errorf("cache check: %w", err)
	}
	if cached != nil {
		return &Result{
			Title:     cached.Title,
			CommentID: cached.CommentID,
			LocalPath: cached.LocalPath,
			ByteSize:  cached.ByteSize,
			FromCache: true,
		}, nil
	}

	fits, err := f.quota.WouldFit(ctx, accountID, f.cfg.QuotaEstimateBytes)
	if err != nil {
		return nil, fmt.Errorf("quota check: %w", err)
	}
	if !fits {
		return nil, ErrQuotaExceeded
	}

	body, _, err := f.client.Get(ctx, articleURL)
	if err != nil {
		return nil, err
	}

	if f.isSessionExpired(body) {
		return nil, ErrSessionExpired
	}

	title := ExtractTitle(body)
	commentID := ExtractCommentID(body)

	mapping, newResourceBytes, failedURLs := f.harvestResources(ctx, accountID, sourceKey, body)

	if len(mapping) > 0 {
		body = rewrite.Rewrite(body, mapping)
	}

	docPath, err := f.documentPath(accountID, sourceKey, title, articleURL)
	if err != nil {
		return nil, err
	}

	docBytes, err := f.blobs.Write(docPath, body)
	if err != nil {
		return nil, fmt.Errorf("persist document: %w", err)
	}

	doc := &domain.CachedDocument{
		AccountID: accountID,
		SourceKey: sourceKey,
		URL:       articleURL,
		Title:     title,
		CommentID: commentID,
		LocalPath: docPath,
		ByteSize:  docBytes,
	}
	if saveErr := f.store.SaveCachedDocument(ctx, doc); saveErr != nil {
		return nil, fmt.Errorf("register document: %w", saveErr)
	}

	if len(mapping) > 0 {
		resourceMap := &domain.ResourceMap{
			AccountID:  accountID,
			ArticleURL: articleURL,
			Mapping:    mapping,
		}
		if mapErr := f.store.SaveResourceMap(ctx, resourceMap); mapErr != nil {
			return nil, fmt.Errorf("register resource map: %w", mapErr)
		}
	}

	// Report actual combined size; previously-cached resources cost nothing.
	if usageErr := f.quota.RecordUsage(ctx, accountID, docBytes+newResourceBytes); usageErr != nil {
		return nil, fmt.Errorf("record quota usage: %w", usageErr)
	}

	f.stats.RecordArticleStored(docBytes+newResourceBytes, len(mapping))

	f.log.Info("article mirrored",
		"account_id", accountID,
		"url", articleURL,
		"title", title,
		"harvested", len(mapping),
		"failed_resources", len(failedURLs),
	)

	return &Result{
		Title:              title,
		CommentID:          commentID,
		LocalPath:          docPath,
		ByteSize:           docBytes,
		HarvestedCount:     len(mapping),
		FailedResourceURLs: failedURLs,
	}, nil
}

// harvestResources fetches every harvestable asset referenced by the body.
// Asset failures never fail the owning article; they are reported back and
// the asset is left out of the rewrite mapping. Returns the rewrite mapping,
// the byte total of newly fetched assets, and the failed URLs.
func (f *ArticleFetcher) harvestResources(
	ctx context.Context,
	accountID, sourceKey string,
	body []byte,
) (mapping domain.URLPathMap, newBytes int64, failedURLs []string) {
	candidates := f.extractor.Extract(body)
	if len(candidates) == 0 {
		return nil, 0, nil
	}

	mapping = make(domain.URLPathMap, len(candidates))

	for _, candidate := range candidates {
		cached, err := f.store.GetCachedResource(ctx, accountID, candidate)
		if err != nil {
			f.log.Error("resource cache check failed", "url", candidate, "error", err.Error())
			failedURLs = append(failedURLs, candidate)
			continue
		}

		if cached != nil {
			mapping[candidate] = documentRelativePath(cached.LocalPath)
			continue
		}

		localPath, size, fetchErr := f.fetchResource(ctx, accountID, sourceKey, candidate)
		if fetchErr != nil {
			f.log.Warn("resource harvest failed", "url", candidate, "error", fetchErr.Error())
			failedURLs = append(failedURLs, candidate)
			continue
		}

		newBytes += size
		mapping[candidate] = documentRelativePath(localPath)
	}

	return mapping, newBytes, failedURLs
}

// fetchResource downloads one asset, stores it, and registers it with the
// content store. Returns the stored path relative to the storage root.
func (f *ArticleFetcher) fetchResource(
	ctx context.Context,
	accountID, sourceKey, sourceURL string,
) (localPath string, size int64, err error) {
	data, contentType, err := f.client.Get(ctx, sourceURL)
	if err != nil {
		return "", 0, err
	}

	name := assets.AllocateName(sourceURL, contentType)
	localPath = path.Join(accountID, sourceKey, resourceDir, name)

	size, err = f.blobs.Write(localPath, data)
	if err != nil {
		return "", 0, fmt.Errorf("persist resource: %w", err)
	}

	res := &domain.CachedResource{
		AccountID: accountID,
		SourceURL: sourceURL,
		LocalPath: localPath,
		ByteSize:  size,
		MimeType:  contentType,
	}
	if saveErr := f.store.SaveCachedResource(ctx, res); saveErr != nil {
		return "", 0, fmt.Errorf("register resource: %w", saveErr)
	}

	return localPath, size, nil
}

// documentPath picks the storage path for a document. The filename comes from
// the title; when a different article already holds that name, a short URL
// digest is appended so the two never share bytes on disk.
func (f *ArticleFetcher) documentPath(accountID, sourceKey, title, articleURL string) (string, error) {
	docPath := path.Join(accountID, sourceKey, htmlDir, SafeFileName(title)+".html")

	taken, err := f.blobs.Exists(docPath)
	if err != nil {
		return "", fmt.Errorf("check document path: %w", err)
	}
	if !taken {
		return docPath, nil
	}

	digest := sha256.Sum256([]byte(articleURL))
	suffix := hex.EncodeToString(digest[:])[:8]

	return path.Join(accountID, sourceKey, htmlDir, SafeFileName(title)+"-"+suffix+".html"), nil
}

// isSessionExpired reports whether the body is the upstream's session-expiry
// interstitial rather than article content.
func (f *ArticleFetcher) isSessionExpired(body []byte) bool {
	lower := strings.ToLower(string(body))
	for _, marker := range f.cfg.SessionExpiredMarkers {
		if marker != "" && strings.Contains(lower, strings.ToLower(marker)) {
			return true
		}
	}

	return false
}

// documentRelativePath converts a storage-root-relative resource path into a
// reference usable from inside the stored document, which lives one
// directory below the common <accountID>/<sourceKey>/ prefix.
func documentRelativePath(localPath string) string {
	return "../" + path.Join(resourceDir, path.Base(localPath))
}
