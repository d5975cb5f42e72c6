package ingest

import (
	"context"
	"errors"
	"time"

	"github.com/go-pkgz/lgr"

	"github.com/jasonCodeSpace/articles-x-sub002/pkg/domain"
	"github.com/jasonCodeSpace/articles-x-sub002/pkg/harvest"
	"github.com/jasonCodeSpace/articles-x-sub002/pkg/timeline"
)

// ErrNoActiveLists is the only error that fails a run outright: nothing to
// ingest after exhausting every list source
var ErrNoActiveLists = errors.New("no active lists to ingest")

// FeedClient fetches raw posts from the upstream list API
type FeedClient interface {
	FetchAllPages(ctx context.Context, listID string) ([]timeline.RawPost, error)
}

// ListRegistry supplies active feed ids and records scan completions
type ListRegistry interface {
	GetActiveListIDs(ctx context.Context) ([]string, error)
	MarkScanned(ctx context.Context, listID string, articlesFound int) error
}

// Config holds orchestrator settings
type Config struct {
	DefaultListIDs []string      // configured fallback when the caller provides none
	ListDelay      time.Duration // fixed pacing between lists
}

// Ingestor drives one ingestion run: resolve lists, fetch posts per list,
// classify and map them, and persist candidates through the upsert engine.
// Per-list and per-record failures are aggregated; the run completes unless
// no lists could be resolved at all.
type Ingestor struct {
	client   FeedClient
	registry ListRegistry
	upserter *Upserter
	cfg      Config
}

// RunOptions control one ingestion run
type RunOptions struct {
	ListIDs []string
	DryRun  bool
}

// NewIngestor creates an ingestion orchestrator
func NewIngestor(client FeedClient, registry ListRegistry, upserter *Upserter, cfg Config) *Ingestor {
	if cfg.ListDelay <= 0 {
		cfg.ListDelay = 2 * time.Second
	}
	return &Ingestor{client: client, registry: registry, upserter: upserter, cfg: cfg}
}

// Run executes one ingestion pass over the resolved lists. The returned
// summary is non-nil even on failure so callers can always report timing.
func (ing *Ingestor) Run(ctx context.Context, opts RunOptions) (*domain.RunSummary, error) {
	start := time.Now()

	summary := &domain.RunSummary{Status: domain.RunCompleted, DryRun: opts.DryRun, Lists: []domain.ListResult{}}

	listIDs, err := ing.resolveLists(ctx, opts.ListIDs)
	if err != nil {
		summary.Status = domain.RunFailed
		summary.ProcessingTimeMs = time.Since(start).Milliseconds()
		return summary, err
	}

	lgr.Printf("[INFO] starting ingest run: %d lists, dry run %v", len(listIDs), opts.DryRun)

	for i, listID := range listIDs {
		result := ing.processList(ctx, listID, opts.DryRun)

		summary.Lists = append(summary.Lists, result.ListResult)
		summary.Inserted += result.stats.Inserted
		summary.Updated += result.stats.Updated
		summary.Skipped += result.stats.Skipped
		summary.TotalPostsProcessed += result.PostsFound

		// fixed pacing between lists to respect the shared upstream rate limit
		if i < len(listIDs)-1 {
			select {
			case <-time.After(ing.cfg.ListDelay):
			case <-ctx.Done():
				summary.ProcessingTimeMs = time.Since(start).Milliseconds()
				summary.TotalListsProcessed = i + 1
				lgr.Printf("[WARN] ingest run canceled after %d lists: %v", i+1, ctx.Err())
				return summary, nil
			}
		}
	}

	summary.TotalListsProcessed = len(listIDs)
	summary.ProcessingTimeMs = time.Since(start).Milliseconds()

	lgr.Printf("[INFO] ingest run completed in %dms: %d inserted, %d updated, %d skipped, %d posts",
		summary.ProcessingTimeMs, summary.Inserted, summary.Updated, summary.Skipped, summary.TotalPostsProcessed)
	return summary, nil
}

// listOutcome pairs the public per-list result with the upsert counters
type listOutcome struct {
	domain.ListResult
	stats domain.UpsertStats
}

// processList fetches, classifies, maps and persists one list. Fetch errors
// are recorded but whatever pages were collected before the failure are still
// processed.
func (ing *Ingestor) processList(ctx context.Context, listID string, dryRun bool) listOutcome {
	result := listOutcome{ListResult: domain.ListResult{ListID: listID, Errors: []string{}}}

	posts, err := ing.client.FetchAllPages(ctx, listID)
	if err != nil {
		lgr.Printf("[WARN] list %s: fetch failed: %v", listID, err)
		result.Errors = append(result.Errors, err.Error())
	}
	result.PostsFound = len(posts)

	var candidates []*domain.Article
	for i := range posts {
		if a := harvest.MapPost(&posts[i], listID); a != nil {
			candidates = append(candidates, a)
		}
	}
	result.ArticlesHarvested = len(candidates)
	lgr.Printf("[INFO] list %s: %d posts, %d article candidates", listID, len(posts), len(candidates))

	if dryRun {
		for i, c := range candidates {
			if i >= 3 {
				break
			}
			lgr.Printf("[INFO] list %s: dry run candidate %q (%s)", listID, c.Title, c.ExternalPostID)
		}
		return result
	}

	result.stats = ing.upserter.BatchUpsert(ctx, candidates)
	result.Errors = append(result.Errors, result.stats.Errors...)

	if ing.registry != nil {
		if err := ing.registry.MarkScanned(ctx, listID, result.ArticlesHarvested); err != nil {
			lgr.Printf("[WARN] list %s: failed to mark scanned: %v", listID, err)
		}
	}
	return result
}

// resolveLists applies the feed resolution precedence: explicit ids, then the
// configured default set, then the registry's active lists
func (ing *Ingestor) resolveLists(ctx context.Context, explicit []string) ([]string, error) {
	if ids := dedupe(explicit); len(ids) > 0 {
		return ids, nil
	}
	if ids := dedupe(ing.cfg.DefaultListIDs); len(ids) > 0 {
		return ids, nil
	}
	if ing.registry != nil {
		ids, err := ing.registry.GetActiveListIDs(ctx)
		if err != nil {
			lgr.Printf("[WARN] list registry lookup failed: %v", err)
		}
		if ids = dedupe(ids); len(ids) > 0 {
			return ids, nil
		}
	}
	return nil, ErrNoActiveLists
}

// dedupe drops empty and repeated ids preserving arrival order
func dedupe(ids []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
