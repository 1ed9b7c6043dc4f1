package fetch_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/gomirror/internal/assets"
	"github.com/jonesrussell/gomirror/internal/domain"
	"github.com/jonesrussell/gomirror/internal/fetch"
	"github.com/jonesrussell/gomirror/internal/logger"
	"github.com/jonesrussell/gomirror/internal/metrics"
)

const (
	testAccountID = "acct-1"
	testSourceKey = "daily-digest"
)

// mockContentStore is an in-memory ContentStore recording every save.
type mockContentStore struct {
	documents map[string]*domain.CachedDocument // keyed by URL
	resources map[string]*domain.CachedResource // keyed by source URL
	maps      []*domain.ResourceMap

	docErr error
}

func newMockContentStore() *mockContentStore {
	return &mockContentStore{
		documents: make(map[string]*domain.CachedDocument),
		resources: make(map[string]*domain.CachedResource),
	}
}

func (m *mockContentStore) GetCachedDocument(_ context.Context, _, url string) (*domain.CachedDocument, error) {
	if m.docErr != nil {
		return nil, m.docErr
	}
	return m.documents[url], nil
}

func (m *mockContentStore) SaveCachedDocument(_ context.Context, doc *domain.CachedDocument) error {
	m.documents[doc.URL] = doc
	return nil
}

func (m *mockContentStore) GetCachedResource(_ context.Context, _, sourceURL string) (*domain.CachedResource, error) {
	return m.resources[sourceURL], nil
}

func (m *mockContentStore) SaveCachedResource(_ context.Context, res *domain.CachedResource) error {
	m.resources[res.SourceURL] = res
	return nil
}

func (m *mockContentStore) SaveResourceMap(_ context.Context, rm *domain.ResourceMap) error {
	m.maps = append(m.maps, rm)
	return nil
}

// mockQuotaGate allows or denies admission and accumulates reported usage.
type mockQuotaGate struct {
	fits       bool
	checked    []int64
	recorded   []int64
	totalBytes int64
}

func (m *mockQuotaGate) WouldFit(_ context.Context, _ string, additionalBytes int64) (bool, error) {
	m.checked = append(m.checked, additionalBytes)
	return m.fits, nil
}

func (m *mockQuotaGate) RecordUsage(_ context.Context, _ string, deltaBytes int64) error {
	m.recorded = append(m.recorded, deltaBytes)
	m.totalBytes += deltaBytes
	return nil
}

// mockBlobWriter captures written blobs by path.
type mockBlobWriter struct {
	blobs map[string][]byte
}

func newMockBlobWriter() *mockBlobWriter {
	return &mockBlobWriter{blobs: make(map[string][]byte)}
}

func (m *mockBlobWriter) Write(relPath string, data []byte) (int64, error) {
	m.blobs[relPath] = data
	return int64(len(data)), nil
}

func (m *mockBlobWriter) Exists(relPath string) (bool, error) {
	_, ok := m.blobs[relPath]
	return ok, nil
}

func testFetcher(
	t *testing.T,
	store fetch.ContentStore,
	quota fetch.QuotaGate,
	blobs fetch.BlobWriter,
	allowedHosts []string,
) *fetch.ArticleFetcher {
	t.Helper()

	client := fetch.NewClient(fetch.ClientConfig{
		UserAgent:      "TestAgent/1.0",
		RetryAttempts:  1,
		RetryDelay:     time.Millisecond,
		RequestTimeout: 2 * time.Second,
	})
	extractor := assets.NewExtractor(assets.NewClassifier(allowedHosts))

	return fetch.NewArticleFetcher(store, quota, blobs, client, extractor, metrics.NewCollector(), logger.NewNoOp(), fetch.Config{
		QuotaEstimateBytes:    2 * 1024 * 1024,
		SessionExpiredMarkers: []string{"session expired"},
	})
}

func TestFetchArticleCacheHitSkipsNetwork(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	store := newMockContentStore()
	store.documents[srv.URL] = &domain.CachedDocument{
		AccountID: testAccountID,
		URL:       srv.URL,
		Title:     "Already Here",
		LocalPath: testAccountID + "/" + testSourceKey + "/html/Already Here.html",
		ByteSize:  42,
	}
	quota := &mockQuotaGate{fits: true}

	fetcher := testFetcher(t, store, quota, newMockBlobWriter(), nil)

	res, err := fetcher.FetchArticle(context.Background(), testAccountID, testSourceKey, srv.URL)

	require.NoError(t, err)
	assert.True(t, res.FromCache)
	assert.Equal(t, "Already Here", res.Title)
	assert.Equal(t, int32(0), calls.Load(), "cache hit must not reach the network")
	assert.Empty(t, quota.checked, "cache hit must not consult the quota")
}

func TestFetchArticleQuotaExceededBeforeNetwork(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	fetcher := testFetcher(t, newMockContentStore(), &mockQuotaGate{fits: false}, newMockBlobWriter(), nil)

	_, err := fetcher.FetchArticle(context.Background(), testAccountID, testSourceKey, srv.URL)

	require.ErrorIs(t, err, fetch.ErrQuotaExceeded)
	assert.Equal(t, int32(0), calls.Load(), "quota rejection must happen before any fetch")
}

func TestFetchArticleFullPipeline(t *testing.T) {
	imageBody := strings.Repeat("x", 1000)

	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()

	imageURL := srv.URL + "/img/one?wx_fmt=png"
	articleBody := `<html><head></head><body>
<script>var msg_title = "Morning Update";
var comment_id = "987654";</script>
<img data-src="` + imageURL + `" src="placeholder.gif">
</body></html>`

	mux.HandleFunc("/article", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(articleBody))
	})
	mux.HandleFunc("/img/one", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write([]byte(imageBody))
	})

	store := newMockContentStore()
	quota := &mockQuotaGate{fits: true}
	blobs := newMockBlobWriter()

	fetcher := testFetcher(t, store, quota, blobs, []string{"127.0.0.1"})

	res, err := fetcher.FetchArticle(context.Background(), testAccountID, testSourceKey, srv.URL+"/article")

	require.NoError(t, err)
	assert.False(t, res.FromCache)
	assert.Equal(t, "Morning Update", res.Title)
	assert.Equal(t, "987654", res.CommentID)
	assert.Equal(t, 1, res.HarvestedCount)
	assert.Empty(t, res.FailedResourceURLs)
	assert.Equal(t, testAccountID+"/"+testSourceKey+"/html/Morning Update.html", res.LocalPath)

	// The stored document references the local copy instead of the CDN.
	storedDoc, ok := blobs.blobs[res.LocalPath]
	require.True(t, ok, "document blob must be written")
	assert.NotContains(t, string(storedDoc), imageURL)
	assert.Contains(t, string(storedDoc), "../resources/")

	// The resource was written under resources/ with the hinted extension.
	resource, ok := store.resources[imageURL]
	require.True(t, ok, "resource must be registered")
	assert.True(t, strings.HasSuffix(resource.LocalPath, ".png"))
	assert.Equal(t, int64(len(imageBody)), resource.ByteSize)
	_, ok = blobs.blobs[resource.LocalPath]
	assert.True(t, ok, "resource blob must be written")

	// Document record and rewrite mapping are persisted.
	doc, ok := store.documents[srv.URL+"/article"]
	require.True(t, ok)
	assert.Equal(t, "Morning Update", doc.Title)
	require.Len(t, store.maps, 1)
	assert.Equal(t, srv.URL+"/article", store.maps[0].ArticleURL)
	assert.Contains(t, store.maps[0].Mapping, imageURL)

	// Usage reflects the actual document plus new resource bytes.
	require.Len(t, quota.recorded, 1)
	assert.Equal(t, res.ByteSize+int64(len(imageBody)), quota.recorded[0])
}

func TestFetchArticleReusesCachedResource(t *testing.T) {
	var imageCalls atomic.Int32

	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()

	imageURL := srv.URL + "/img/shared"

	mux.HandleFunc("/article", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><body><img src="` + imageURL + `"></body></html>`))
	})
	mux.HandleFunc("/img/shared", func(w http.ResponseWriter, r *http.Request) {
		imageCalls.Add(1)
		_, _ = w.Write([]byte("png-bytes"))
	})

	store := newMockContentStore()
	store.resources[imageURL] = &domain.CachedResource{
		AccountID: testAccountID,
		SourceURL: imageURL,
		LocalPath: testAccountID + "/" + testSourceKey + "/resources/abcd1234abcd1234.jpg",
		ByteSize:  9,
	}
	quota := &mockQuotaGate{fits: true}
	blobs := newMockBlobWriter()

	fetcher := testFetcher(t, store, quota, blobs, []string{"127.0.0.1"})

	res, err := fetcher.FetchArticle(context.Background(), testAccountID, testSourceKey, srv.URL+"/article")

	require.NoError(t, err)
	assert.Equal(t, 1, res.HarvestedCount)
	assert.Equal(t, int32(0), imageCalls.Load(), "cached resource must not be re-fetched")

	// The rewritten document points at the previously stored copy.
	storedDoc := blobs.blobs[res.LocalPath]
	assert.Contains(t, string(storedDoc), "../resources/abcd1234abcd1234.jpg")

	// Reused resources cost no quota beyond the document itself.
	require.Len(t, quota.recorded, 1)
	assert.Equal(t, res.ByteSize, quota.recorded[0])
}

func TestFetchArticleResourceFailureIsNonFatal(t *testing.T) {
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()

	brokenURL := srv.URL + "/img/broken"

	mux.HandleFunc("/article", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><body><img src="` + brokenURL + `"></body></html>`))
	})
	mux.HandleFunc("/img/broken", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	store := newMockContentStore()
	blobs := newMockBlobWriter()

	fetcher := testFetcher(t, store, &mockQuotaGate{fits: true}, blobs, []string{"127.0.0.1"})

	res, err := fetcher.FetchArticle(context.Background(), testAccountID, testSourceKey, srv.URL+"/article")

	require.NoError(t, err, "a failed asset must not fail the article")
	assert.Equal(t, 0, res.HarvestedCount)
	assert.Equal(t, []string{brokenURL}, res.FailedResourceURLs)

	// The original remote reference is left in place.
	storedDoc := blobs.blobs[res.LocalPath]
	assert.Contains(t, string(storedDoc), brokenURL)
	assert.Empty(t, store.maps, "no mapping is persisted when nothing was rewritten")
}

func TestFetchArticleSessionExpired(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html><body>Session Expired, please sign in again.</body></html>"))
	}))
	defer srv.Close()

	store := newMockContentStore()
	quota := &mockQuotaGate{fits: true}
	blobs := newMockBlobWriter()

	fetcher := testFetcher(t, store, quota, blobs, nil)

	_, err := fetcher.FetchArticle(context.Background(), testAccountID, testSourceKey, srv.URL)

	require.ErrorIs(t, err, fetch.ErrSessionExpired)
	assert.Empty(t, store.documents, "expiry interstitials must not be cached")
	assert.Empty(t, blobs.blobs)
	assert.Empty(t, quota.recorded)
}

func TestFetchArticleDuplicateTitlesGetDistinctPaths(t *testing.T) {
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()

	page := `<html><head><title>Weekly Digest</title></head><body>%s</body></html>`
	mux.HandleFunc("/first", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, page, "first article")
	})
	mux.HandleFunc("/second", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, page, "second article")
	})

	store := newMockContentStore()
	blobs := newMockBlobWriter()

	fetcher := testFetcher(t, store, &mockQuotaGate{fits: true}, blobs, nil)

	first, err := fetcher.FetchArticle(context.Background(), testAccountID, testSourceKey, srv.URL+"/first")
	require.NoError(t, err)

	second, err := fetcher.FetchArticle(context.Background(), testAccountID, testSourceKey, srv.URL+"/second")
	require.NoError(t, err)

	assert.Equal(t, first.Title, second.Title)
	assert.NotEqual(t, first.LocalPath, second.LocalPath,
		"same-title articles must not share a document path")

	// The first article's bytes survive the second save.
	assert.Contains(t, string(blobs.blobs[first.LocalPath]), "first article")
	assert.Contains(t, string(blobs.blobs[second.LocalPath]), "second article")
}

func TestFetchArticleUntitledFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html><body><p>no title anywhere</p></body></html>"))
	}))
	defer srv.Close()

	store := newMockContentStore()
	blobs := newMockBlobWriter()

	fetcher := testFetcher(t, store, &mockQuotaGate{fits: true}, blobs, nil)

	res, err := fetcher.FetchArticle(context.Background(), testAccountID, testSourceKey, srv.URL)

	require.NoError(t, err)
	assert.Equal(t, "Untitled", res.Title)
	assert.Equal(t, testAccountID+"/"+testSourceKey+"/html/Untitled.html", res.LocalPath)
}
