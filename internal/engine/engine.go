package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/knowledge-engine/bookmarks/internal/config"
	"github.com/knowledge-engine/bookmarks/internal/enricher"
	"github.com/knowledge-engine/bookmarks/internal/fetcher"
	"github.com/knowledge-engine/bookmarks/internal/models"
	"github.com/knowledge-engine/bookmarks/internal/politeness"
	"github.com/knowledge-engine/bookmarks/internal/provider"
	"github.com/knowledge-engine/bookmarks/internal/retry"
	"github.com/knowledge-engine/bookmarks/internal/search"
	"github.com/knowledge-engine/bookmarks/internal/storage"
)

// ErrAlreadyRunning is returned when an enrichment run is started while
// another one is in progress
var ErrAlreadyRunning = errors.New("enrichment already running")

// Engine wires the enrichment pipeline and serves searches over the
// in-memory index of enriched bookmarks
type Engine struct {
	Config    *config.Config
	Logger    *logrus.Entry
	Fetcher   *fetcher.Fetcher
	Robots    *politeness.RobotsPolicy
	Extractor enricher.ContentExtractor
	Embedder  provider.Embedder
	Storage   storage.Store

	// State
	isRunning bool
	cancelRun context.CancelFunc
	corpus    []models.EnrichedBookmark
	mu        sync.RWMutex

	// Stats
	Stats EngineStats
}

type EngineStats struct {
	Enriched  int       `json:"enriched"`
	Embedded  int       `json:"embedded"`
	Skipped   int       `json:"skipped"`
	LastRunID string    `json:"last_run_id,omitempty"`
	LastRun   time.Time `json:"last_run"`
	LastError string    `json:"last_error,omitempty"`
}

// RunReport summarizes one enrichment run
type RunReport struct {
	RunID    string        `json:"run_id"`
	Total    int           `json:"total"`
	Enriched int           `json:"enriched"`
	Embedded int           `json:"embedded"`
	Skipped  int           `json:"skipped"`
	Duration time.Duration `json:"duration"`
}

func NewEngine(cfg *config.Config, logger *logrus.Entry, store storage.Store) (*Engine, error) {
	if store == nil {
		return nil, fmt.Errorf("storage is required")
	}
	if logger == nil {
		logger = logrus.WithField("component", "engine")
	}

	ft := fetcher.NewFetcher(cfg.Fetcher)

	var opts []fetcher.ExtractorOption
	var robots *politeness.RobotsPolicy
	if cfg.Fetcher.RespectRobots {
		robots = politeness.NewRobotsPolicy(cfg.Fetcher, logger.WithField("component", "robots_policy"))
		opts = append(opts, fetcher.WithRobots(robots))
	}

	extractor := fetcher.NewExtractor(ft, retry.Policy{
		Attempts: cfg.Fetcher.Retries,
		Timeout:  cfg.Fetcher.Timeout,
		Backoff:  cfg.Fetcher.RetryBackoff,
	}, logger.WithField("component", "extractor"), opts...)

	// Backend is created lazily on the first embedding request
	embedder := provider.NewProvider(cfg.Embedding, nil, logger.WithField("component", "provider"))

	return &Engine{
		Config:    cfg,
		Logger:    logger,
		Fetcher:   ft,
		Robots:    robots,
		Extractor: extractor,
		Embedder:  embedder,
		Storage:   store,
		corpus:    []models.EnrichedBookmark{},
	}, nil
}

// LoadIndex replaces the in-memory index with the persisted enriched records
func (e *Engine) LoadIndex() error {
	records, err := e.Storage.LoadEnriched()
	if err != nil {
		return fmt.Errorf("failed to load enriched bookmarks: %w", err)
	}

	e.mu.Lock()
	e.corpus = records
	e.mu.Unlock()

	e.Logger.WithField("records", len(records)).Info("Loaded search index")
	return nil
}

// Enrich runs a full enrichment pass in the caller's goroutine. The result
// is persisted and becomes the search index only if the run completes; a
// cancelled run leaves both untouched.
func (e *Engine) Enrich(ctx context.Context) (*RunReport, error) {
	ctx, err := e.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer e.finish()

	return e.execute(ctx)
}

// StartEnrich launches an enrichment pass in the background
func (e *Engine) StartEnrich() error {
	ctx, err := e.begin(context.Background())
	if err != nil {
		return err
	}

	go func() {
		defer e.finish()
		if _, err := e.execute(ctx); err != nil {
			e.Logger.WithError(err).Error("Background enrichment failed")
		}
	}()
	return nil
}

func (e *Engine) execute(ctx context.Context) (*RunReport, error) {
	report, err := e.run(ctx)

	e.mu.Lock()
	defer e.mu.Unlock()
	e.Stats.LastRun = time.Now()
	e.Stats.LastRunID = report.RunID
	if err != nil {
		e.Stats.LastError = err.Error()
		return report, err
	}
	e.Stats.Enriched = report.Enriched
	e.Stats.Embedded = report.Embedded
	e.Stats.Skipped = report.Skipped
	e.Stats.LastError = ""
	return report, nil
}

// StopEnrich cancels the current run, if any
func (e *Engine) StopEnrich() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.isRunning && e.cancelRun != nil {
		e.cancelRun()
	}
}

func (e *Engine) begin(parent context.Context) (context.Context, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.isRunning {
		return nil, ErrAlreadyRunning
	}
	ctx, cancel := context.WithCancel(parent)
	e.isRunning = true
	e.cancelRun = cancel
	return ctx, nil
}

func (e *Engine) finish() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.cancelRun != nil {
		e.cancelRun()
	}
	e.isRunning = false
	e.cancelRun = nil
}

func (e *Engine) run(ctx context.Context) (*RunReport, error) {
	start := time.Now()
	report := &RunReport{RunID: uuid.NewString()}
	log := e.Logger.WithField("run_id", report.RunID)

	bookmarks, err := e.Storage.LoadBookmarks()
	if err != nil {
		return report, fmt.Errorf("failed to load bookmarks: %w", err)
	}
	report.Total = len(bookmarks)
	log.WithField("bookmarks", len(bookmarks)).Info("Starting enrichment run")

	enr := enricher.NewEnricher(e.Extractor, e.Embedder, log.WithField("component", "enricher"))
	results, err := enr.EnrichAll(ctx, bookmarks)
	if err != nil {
		log.WithField("processed", len(results)).Warn("Enrichment run cancelled, nothing persisted")
		return report, err
	}

	records := make([]models.EnrichedBookmark, 0, len(results))
	for _, res := range results {
		if res.Skipped() {
			report.Skipped++
			continue
		}
		records = append(records, *res.Record)
		report.Enriched++
		if res.Record.HasEmbedding() {
			report.Embedded++
		}
	}

	if err := e.Storage.SaveEnriched(records); err != nil {
		return report, fmt.Errorf("failed to save enriched bookmarks: %w", err)
	}

	e.mu.Lock()
	e.corpus = records
	e.mu.Unlock()

	report.Duration = time.Since(start)
	log.WithFields(logrus.Fields{
		"enriched": report.Enriched,
		"embedded": report.Embedded,
		"skipped":  report.Skipped,
		"duration": report.Duration,
	}).Info("Enrichment run finished")
	return report, nil
}

// Search ranks the indexed bookmarks against query
func (e *Engine) Search(ctx context.Context, query string, limit int) ([]models.SearchResult, error) {
	return e.searcher().Search(ctx, query, e.Corpus(), limit)
}

// Similar ranks the indexed bookmarks against the stored embedding of site
func (e *Engine) Similar(site string, limit int) ([]models.SearchResult, error) {
	return e.searcher().Similar(e.Corpus(), site, limit)
}

func (e *Engine) searcher() *search.Searcher {
	return search.NewSearcher(e.Embedder, e.Config.Search.DefaultLimit, e.Logger.WithField("component", "search"))
}

// Corpus returns a snapshot of the in-memory index
func (e *Engine) Corpus() []models.EnrichedBookmark {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.corpus
}

func (e *Engine) IsRunning() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.isRunning
}

// GetStats returns a copy of the run statistics
func (e *Engine) GetStats() EngineStats {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.Stats
}
