// Package job provides the cron-driven re-mirror scheduler.
package job

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/robfig/cron/v3"

	"github.com/jonesrussell/gomirror/internal/config"
	"github.com/jonesrussell/gomirror/internal/domain"
	"github.com/jonesrussell/gomirror/internal/logger"
)

// BatchRunner runs article batches.
type BatchRunner interface {
	RunBatch(
		ctx context.Context,
		accountID, sourceKey string,
		urls []string,
		concurrency int,
	) (*domain.BatchOutcome, error)
}

// MirrorScheduler re-runs configured URL lists on cron schedules. Runs are
// idempotent: already-mirrored articles are skipped by the batch's cache
// snapshot, so only new entries in a list cost network calls.
type MirrorScheduler struct {
	scheduler BatchRunner
	logger    logger.Interface
	cron      *cron.Cron
	sources   []config.ScheduleSource

	mu      sync.Mutex
	running map[string]bool // guards against overlapping runs per source
}

// NewMirrorScheduler creates a scheduler for the given sources.
func NewMirrorScheduler(
	scheduler BatchRunner,
	log logger.Interface,
	sources []config.ScheduleSource,
) *MirrorScheduler {
	// Standard 5-field cron (minute hour day month weekday).
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

	return &MirrorScheduler{
		scheduler: scheduler,
		logger:    log,
		cron:      cron.New(cron.WithParser(parser), cron.WithChain(cron.Recover(cron.DefaultLogger))),
		sources:   sources,
		running:   make(map[string]bool),
	}
}

// Start registers every source's cron entry and starts the cron runner.
func (s *MirrorScheduler) Start(ctx context.Context) error {
	for _, src := range s.sources {
		_, err := s.cron.AddFunc(src.Cron, func() {
			s.runSource(ctx, src)
		})
		if err != nil {
			return fmt.Errorf("schedule source %s/%s: %w", src.AccountID, src.SourceKey, err)
		}

		s.logger.Info("mirror source scheduled",
			"account_id", src.AccountID,
			"source_key", src.SourceKey,
			"cron", src.Cron,
		)
	}

	s.cron.Start()

	return nil
}

// Stop stops the cron runner and waits for in-flight runs to finish.
func (s *MirrorScheduler) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info("mirror scheduler stopped")
}

// runSource executes one scheduled mirror run.
func (s *MirrorScheduler) runSource(ctx context.Context, src config.ScheduleSource) {
	key := src.AccountID + "/" + src.SourceKey

	s.mu.Lock()
	if s.running[key] {
		s.mu.Unlock()
		s.logger.Warn("previous run still active, skipping tick", "source", key)
		return
	}
	s.running[key] = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.running, key)
		s.mu.Unlock()
	}()

	urls, err := readURLFile(src.URLFile)
	if err != nil {
		s.logger.Error("failed to read url list", "source", key, "error", err.Error())
		return
	}

	if len(urls) == 0 {
		s.logger.Debug("url list empty, nothing to mirror", "source", key)
		return
	}

	outcome, err := s.scheduler.RunBatch(ctx, src.AccountID, src.SourceKey, urls, 0)
	if err != nil {
		s.logger.Error("scheduled batch failed", "source", key, "error", err.Error())
		return
	}

	s.logger.Info("scheduled batch finished",
		"source", key,
		"batch_id", outcome.BatchID,
		"completed", outcome.Completed,
		"failed", outcome.Failed,
		"skipped", outcome.Skipped,
	)
}

// readURLFile parses a newline-separated URL list. Blank lines and
// #-comments are ignored.
func readURLFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open url list: %w", err)
	}
	defer f.Close()

	var urls []string

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		urls = append(urls, line)
	}

	if scanErr := scanner.Err(); scanErr != nil {
		return nil, fmt.Errorf("read url list: %w", scanErr)
	}

	return urls, nil
}
