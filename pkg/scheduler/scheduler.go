package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-pkgz/lgr"
	"golang.org/x/sync/errgroup"

	"github.com/jasonCodeSpace/articles-x-sub002/pkg/domain"
	"github.com/jasonCodeSpace/articles-x-sub002/pkg/ingest"
	"github.com/jasonCodeSpace/articles-x-sub002/pkg/llm"
)

// Scheduler manages periodic ingest runs and post-ingest enrichment.
// Runs are serialized with runMu so a scheduled tick and an HTTP trigger
// never ingest concurrently.
type Scheduler struct {
	ingestor       Ingestor
	articles       ArticleStore
	enricher       Enricher
	ingestInterval time.Duration
	enrichInterval time.Duration
	maxWorkers     int
	enrichBatch    int
	wg             sync.WaitGroup
	cancel         context.CancelFunc
	runMu          sync.Mutex // serialize ingest runs
}

// Ingestor interface for triggering ingestion runs
type Ingestor interface {
	Run(ctx context.Context, opts ingest.RunOptions) (*domain.RunSummary, error)
}

// ArticleStore interface for enrichment persistence
type ArticleStore interface {
	GetUnenriched(ctx context.Context, limit int) ([]*domain.Article, error)
	UpdateEnrichment(ctx context.Context, id int64, summary, category, language string) error
}

// Enricher interface for LLM enrichment
type Enricher interface {
	Summarize(ctx context.Context, article *domain.Article) (*llm.Enrichment, error)
}

// Config holds scheduler configuration
type Config struct {
	IngestInterval time.Duration
	EnrichInterval time.Duration
	MaxWorkers     int
	EnrichBatch    int
}

// NewScheduler creates a new scheduler instance. enricher may be nil, in
// which case the enrichment worker is not started.
func NewScheduler(ingestor Ingestor, articles ArticleStore, enricher Enricher, cfg Config) *Scheduler {
	if cfg.IngestInterval == 0 {
		cfg.IngestInterval = 30 * time.Minute
	}
	if cfg.EnrichInterval == 0 {
		cfg.EnrichInterval = 10 * time.Minute
	}
	if cfg.MaxWorkers == 0 {
		cfg.MaxWorkers = 4
	}
	if cfg.EnrichBatch == 0 {
		cfg.EnrichBatch = 20
	}

	return &Scheduler{
		ingestor:       ingestor,
		articles:       articles,
		enricher:       enricher,
		ingestInterval: cfg.IngestInterval,
		enrichInterval: cfg.EnrichInterval,
		maxWorkers:     cfg.MaxWorkers,
		enrichBatch:    cfg.EnrichBatch,
	}
}

// Start begins the scheduler
func (s *Scheduler) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)

	s.wg.Add(1)
	go s.ingestWorker(ctx)

	if s.enricher != nil {
		s.wg.Add(1)
		go s.enrichWorker(ctx)
	}

	lgr.Printf("[INFO] scheduler started with ingest interval %v, enrich interval %v",
		s.ingestInterval, s.enrichInterval)
}

// Stop gracefully stops the scheduler
func (s *Scheduler) Stop() {
	lgr.Printf("[INFO] stopping scheduler...")
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
	lgr.Printf("[INFO] scheduler stopped")
}

// RunNow triggers an immediate ingest run, waiting for any in-flight run to
// finish first. Used by the HTTP trigger endpoint.
func (s *Scheduler) RunNow(ctx context.Context, opts ingest.RunOptions) (*domain.RunSummary, error) {
	s.runMu.Lock()
	defer s.runMu.Unlock()
	return s.ingestor.Run(ctx, opts)
}

// ingestWorker periodically runs a full ingest cycle
func (s *Scheduler) ingestWorker(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.ingestInterval)
	defer ticker.Stop()

	// run immediately on start
	s.runIngest(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runIngest(ctx)
		}
	}
}

// runIngest performs one scheduled ingest run over the configured lists
func (s *Scheduler) runIngest(ctx context.Context) {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	summary, err := s.ingestor.Run(ctx, ingest.RunOptions{})
	if err != nil {
		lgr.Printf("[ERROR] scheduled ingest run failed: %v", err)
		return
	}
	lgr.Printf("[INFO] scheduled ingest run completed: %d inserted, %d updated, %d skipped across %d lists",
		summary.Inserted, summary.Updated, summary.Skipped, summary.TotalListsProcessed)
}

// enrichWorker periodically enriches articles that have no summary yet
func (s *Scheduler) enrichWorker(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.enrichInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.enrichPending(ctx)
		}
	}
}

// enrichPending processes un-enriched articles through the LLM with a
// bounded worker pool
func (s *Scheduler) enrichPending(ctx context.Context) {
	articles, err := s.articles.GetUnenriched(ctx, s.enrichBatch)
	if err != nil {
		lgr.Printf("[ERROR] failed to get articles for enrichment: %v", err)
		return
	}
	if len(articles) == 0 {
		return
	}

	lgr.Printf("[INFO] enriching %d articles", len(articles))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.maxWorkers)

	for _, a := range articles {
		article := *a
		g.Go(func() error {
			if err := s.enrichArticle(gctx, article); err != nil {
				lgr.Printf("[WARN] failed to enrich article %d (%s): %v", article.ID, article.Slug, err)
			}
			return nil // per-article errors don't abort the batch
		})
	}

	_ = g.Wait()
	lgr.Printf("[INFO] enrichment completed")
}

// enrichArticle runs one article through the LLM and stores the result
func (s *Scheduler) enrichArticle(ctx context.Context, article domain.Article) error {
	enrichment, err := s.enricher.Summarize(ctx, &article)
	if err != nil {
		return fmt.Errorf("summarize: %w", err)
	}

	language := enrichment.Language
	if language == "" {
		language = article.Language
	}

	if err := s.articles.UpdateEnrichment(ctx, article.ID, enrichment.Summary, enrichment.Category, language); err != nil {
		return fmt.Errorf("store enrichment: %w", err)
	}

	lgr.Printf("[DEBUG] enriched article %d: category %q", article.ID, enrichment.Category)
	return nil
}

// EnrichNow triggers immediate enrichment of pending articles
func (s *Scheduler) EnrichNow(ctx context.Context) {
	if s.enricher == nil {
		return
	}
	lgr.Printf("[INFO] triggered immediate enrichment")
	s.enrichPending(ctx)
}
