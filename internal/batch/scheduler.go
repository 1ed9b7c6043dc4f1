// Package batch runs many article fetches under bounded concurrency, paced
// request issuance, and cooperative cancellation on session expiry.
package batch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/jonesrussell/gomirror/internal/domain"
	"github.com/jonesrussell/gomirror/internal/fetch"
	"github.com/jonesrussell/gomirror/internal/logger"
	"github.com/jonesrussell/gomirror/internal/metrics"
)

// Concurrency is clamped to this range regardless of the requested value, to
// keep the upstream from being hammered.
const (
	minConcurrency = 1
	maxConcurrency = 3
)

// defaultPacingDelay is the minimum interval between the starts of
// consecutive fetches, independent of concurrency.
const defaultPacingDelay = 500 * time.Millisecond

// ArticleFetcher runs the single-article pipeline.
type ArticleFetcher interface {
	FetchArticle(ctx context.Context, accountID, sourceKey, articleURL string) (*fetch.Result, error)
}

// CachedURLLister provides the up-front snapshot of already-mirrored URLs.
type CachedURLLister interface {
	ListCachedURLs(ctx context.Context, accountID, sourceKey string) ([]string, error)
}

// Scheduler orchestrates batch downloads.
type Scheduler struct {
	fetcher     ArticleFetcher
	lister      CachedURLLister
	stats       *metrics.Collector
	log         logger.Interface
	pacingDelay time.Duration
}

// NewScheduler creates a batch scheduler. A non-positive pacingDelay falls
// back to the default.
func NewScheduler(
	fetcher ArticleFetcher,
	lister CachedURLLister,
	stats *metrics.Collector,
	log logger.Interface,
	pacingDelay time.Duration,
) *Scheduler {
	if pacingDelay <= 0 {
		pacingDelay = defaultPacingDelay
	}

	return &Scheduler{
		fetcher:     fetcher,
		lister:      lister,
		stats:       stats,
		log:         log,
		pacingDelay: pacingDelay,
	}
}

// RunBatch downloads the given article URLs for the account. Already-cached
// URLs are recorded as skipped without further processing; per-article
// failures are captured in the outcome rather than returned. The only error
// path is the up-front cache snapshot. Every input URL appears exactly once
// in the outcome.
func (s *Scheduler) RunBatch(
	ctx context.Context,
	accountID, sourceKey string,
	urls []string,
	concurrency int,
) (*domain.BatchOutcome, error) {
	concurrency = clampConcurrency(concurrency)

	outcome := &domain.BatchOutcome{
		BatchID: uuid.NewString(),
		Total:   len(urls),
	}

	cachedURLs, err := s.lister.ListCachedURLs(ctx, accountID, sourceKey)
	if err != nil {
		return nil, fmt.Errorf("list cached urls: %w", err)
	}

	cachedSet := make(map[string]bool, len(cachedURLs))
	for _, u := range cachedURLs {
		cachedSet[u] = true
	}

	var work []string
	var mu sync.Mutex
	for _, u := range urls {
		if cachedSet[u] {
			outcome.Record(domain.URLResult{URL: u, Status: domain.URLStatusSkipped})
			continue
		}
		work = append(work, u)
	}

	s.log.Info("batch started",
		"batch_id", outcome.BatchID,
		"account_id", accountID,
		"source_key", sourceKey,
		"total", outcome.Total,
		"skipped", outcome.Skipped,
		"concurrency", concurrency,
	)

	// Shared across workers: set once expiry is observed, checked both
	// before dispatching a new item and after every fetch resolves.
	var sessionExpired atomic.Bool

	jobs := make(chan string)
	var wg sync.WaitGroup

	for range concurrency {
		wg.Add(1)

		go func() {
			defer wg.Done()

			for articleURL := range jobs {
				res, fetchErr := s.fetcher.FetchArticle(ctx, accountID, sourceKey, articleURL)

				if errors.Is(fetchErr, fetch.ErrSessionExpired) {
					sessionExpired.Store(true)
				}

				mu.Lock()
				outcome.Record(s.resolve(articleURL, res, fetchErr, &sessionExpired))
				mu.Unlock()
			}
		}()
	}

	dispatched := 0
	for i, articleURL := range work {
		if sessionExpired.Load() {
			mu.Lock()
			outcome.Record(domain.URLResult{
				URL:    articleURL,
				Status: domain.URLStatusFailed,
				Error:  fetch.ErrSessionExpired.Error(),
			})
			mu.Unlock()
			continue
		}

		// Pace the start times of consecutive fetches.
		if dispatched > 0 {
			select {
			case <-ctx.Done():
			case <-time.After(s.pacingDelay):
			}
		}

		// Cancellation stops dispatch; everything not yet handed to a worker
		// is recorded as failed.
		if ctx.Err() != nil {
			mu.Lock()
			for _, remaining := range work[i:] {
				outcome.Record(domain.URLResult{
					URL:    remaining,
					Status: domain.URLStatusFailed,
					Error:  ctx.Err().Error(),
				})
			}
			mu.Unlock()
			break
		}

		jobs <- articleURL
		dispatched++
	}

	close(jobs)
	wg.Wait()

	outcome.SessionExpired = sessionExpired.Load()

	s.stats.RecordBatch(outcome.Completed, outcome.Failed, outcome.Skipped, outcome.SessionExpired)

	s.log.Info("batch finished",
		"batch_id", outcome.BatchID,
		"completed", outcome.Completed,
		"failed", outcome.Failed,
		"skipped", outcome.Skipped,
		"session_expired", outcome.SessionExpired,
	)

	return outcome, nil
}

// resolve classifies one finished fetch. Expiry discovered elsewhere while
// this item was in flight downgrades even a successful fetch to failed, so a
// dead session is never reported as progress.
func (s *Scheduler) resolve(
	articleURL string,
	res *fetch.Result,
	fetchErr error,
	sessionExpired *atomic.Bool,
) domain.URLResult {
	if sessionExpired.Load() {
		return domain.URLResult{
			URL:    articleURL,
			Status: domain.URLStatusFailed,
			Error:  fetch.ErrSessionExpired.Error(),
		}
	}

	if fetchErr != nil {
		return domain.URLResult{
			URL:    articleURL,
			Status: domain.URLStatusFailed,
			Error:  fetchErr.Error(),
		}
	}

	status := domain.URLStatusCompleted
	if res.FromCache {
		// Cached between the snapshot and this fetch, e.g. by an overlapping
		// batch run.
		status = domain.URLStatusSkipped
	}

	return domain.URLResult{
		URL:    articleURL,
		Status: status,
		Title:  res.Title,
	}
}

// clampConcurrency bounds the requested concurrency to [1, 3].
func clampConcurrency(n int) int {
	if n < minConcurrency {
		return minConcurrency
	}
	if n > maxConcurrency {
		return maxConcurrency
	}

	return n
}
