package ingest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jasonCodeSpace/articles-x-sub002/pkg/domain"
	"github.com/jasonCodeSpace/articles-x-sub002/pkg/timeline"
)

// fakeClient serves canned posts per list id
type fakeClient struct {
	posts   map[string][]timeline.RawPost
	errs    map[string]error
	fetched []string
}

func (c *fakeClient) FetchAllPages(_ context.Context, listID string) ([]timeline.RawPost, error) {
	c.fetched = append(c.fetched, listID)
	return c.posts[listID], c.errs[listID]
}

// fakeRegistry supplies active list ids and records scans
type fakeRegistry struct {
	active  []string
	err     error
	scanned map[string]int
}

func (r *fakeRegistry) GetActiveListIDs(_ context.Context) ([]string, error) {
	return r.active, r.err
}

func (r *fakeRegistry) MarkScanned(_ context.Context, listID string, articlesFound int) error {
	if r.scanned == nil {
		r.scanned = map[string]int{}
	}
	r.scanned[listID] = articlesFound
	return nil
}

// articlePost builds a raw post that classifies as an article
func articlePost(id, title string) timeline.RawPost {
	return timeline.RawPost{
		RestID: id,
		Legacy: &timeline.Legacy{
			IDStr:     id,
			FullText:  "text",
			CreatedAt: "Wed Oct 05 21:25:35 +0000 2022",
			User:      &timeline.User{ScreenName: "alice", Name: "Alice"},
		},
		ArticleResults: &timeline.ArticleResults{Result: &timeline.ArticleResult{
			Title:   title,
			Content: "content of " + id,
		}},
	}
}

// plainPost builds a raw post without article content
func plainPost(id string) timeline.RawPost {
	return timeline.RawPost{RestID: id, Legacy: &timeline.Legacy{IDStr: id, FullText: "just a post"}}
}

func newTestIngestor(client *fakeClient, registry *fakeRegistry, store *fakeStore, cfg Config) *Ingestor {
	if cfg.ListDelay == 0 {
		cfg.ListDelay = time.Millisecond
	}
	return NewIngestor(client, registry, NewUpserter(store), cfg)
}

func TestIngestor_Run(t *testing.T) {
	client := &fakeClient{posts: map[string][]timeline.RawPost{
		"l1": {articlePost("100", "First Article"), plainPost("101")},
		"l2": {articlePost("200", "Second Article")},
	}}
	registry := &fakeRegistry{}
	store := newFakeStore()
	ing := newTestIngestor(client, registry, store, Config{DefaultListIDs: []string{"l1", "l2"}})

	summary, err := ing.Run(context.Background(), RunOptions{})
	require.NoError(t, err)

	assert.Equal(t, domain.RunCompleted, summary.Status)
	assert.Equal(t, 2, summary.Inserted)
	assert.Equal(t, 3, summary.TotalPostsProcessed)
	assert.Equal(t, 2, summary.TotalListsProcessed)
	require.Len(t, summary.Lists, 2)
	assert.Equal(t, "l1", summary.Lists[0].ListID)
	assert.Equal(t, 2, summary.Lists[0].PostsFound)
	assert.Equal(t, 1, summary.Lists[0].ArticlesHarvested, "plain posts are filtered out")
	assert.Equal(t, map[string]int{"l1": 1, "l2": 1}, registry.scanned)
}

func TestIngestor_Run_Idempotent(t *testing.T) {
	client := &fakeClient{posts: map[string][]timeline.RawPost{
		"l1": {articlePost("100", "Article")},
	}}
	store := newFakeStore()
	ing := newTestIngestor(client, &fakeRegistry{}, store, Config{DefaultListIDs: []string{"l1"}})

	first, err := ing.Run(context.Background(), RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, first.Inserted)

	second, err := ing.Run(context.Background(), RunOptions{})
	require.NoError(t, err)
	assert.Zero(t, second.Inserted, "re-running over identical posts writes nothing")
	assert.Equal(t, 1, second.Skipped)
}

func TestIngestor_Run_DryRun(t *testing.T) {
	client := &fakeClient{posts: map[string][]timeline.RawPost{
		"l1": {articlePost("100", "Article")},
	}}
	registry := &fakeRegistry{}
	store := newFakeStore()
	ing := newTestIngestor(client, registry, store, Config{DefaultListIDs: []string{"l1"}})

	summary, err := ing.Run(context.Background(), RunOptions{DryRun: true})
	require.NoError(t, err)

	assert.True(t, summary.DryRun)
	assert.Zero(t, summary.Inserted)
	assert.Empty(t, store.created, "dry run must not touch the write path")
	assert.Empty(t, registry.scanned, "dry run must not mark lists scanned")
	assert.Equal(t, 1, summary.Lists[0].ArticlesHarvested, "candidates are still counted")
}

func TestIngestor_Run_ListResolution(t *testing.T) {
	t.Run("explicit ids win", func(t *testing.T) {
		client := &fakeClient{}
		ing := newTestIngestor(client, &fakeRegistry{active: []string{"reg"}}, newFakeStore(),
			Config{DefaultListIDs: []string{"cfg"}})

		_, err := ing.Run(context.Background(), RunOptions{ListIDs: []string{"exp", "exp", ""}})
		require.NoError(t, err)
		assert.Equal(t, []string{"exp"}, client.fetched, "explicit ids deduped, empties dropped")
	})

	t.Run("registry fallback", func(t *testing.T) {
		client := &fakeClient{}
		ing := newTestIngestor(client, &fakeRegistry{active: []string{"reg1", "reg2"}}, newFakeStore(), Config{})

		_, err := ing.Run(context.Background(), RunOptions{})
		require.NoError(t, err)
		assert.Equal(t, []string{"reg1", "reg2"}, client.fetched)
	})

	t.Run("nothing resolves", func(t *testing.T) {
		ing := newTestIngestor(&fakeClient{}, &fakeRegistry{}, newFakeStore(), Config{})

		summary, err := ing.Run(context.Background(), RunOptions{})
		require.ErrorIs(t, err, ErrNoActiveLists)
		assert.Equal(t, domain.RunFailed, summary.Status)
	})

	t.Run("registry error treated as empty", func(t *testing.T) {
		ing := newTestIngestor(&fakeClient{}, &fakeRegistry{err: errors.New("db down")}, newFakeStore(), Config{})

		_, err := ing.Run(context.Background(), RunOptions{})
		require.ErrorIs(t, err, ErrNoActiveLists)
	})
}

func TestIngestor_Run_PartialFetchFailure(t *testing.T) {
	client := &fakeClient{
		posts: map[string][]timeline.RawPost{
			"bad":  {articlePost("100", "Salvaged")}, // collected before the failure
			"good": {articlePost("200", "Fine")},
		},
		errs: map[string]error{"bad": errors.New("upstream 500")},
	}
	store := newFakeStore()
	ing := newTestIngestor(client, &fakeRegistry{}, store, Config{DefaultListIDs: []string{"bad", "good"}})

	summary, err := ing.Run(context.Background(), RunOptions{})
	require.NoError(t, err, "per-list failures never fail the run")

	assert.Equal(t, domain.RunCompleted, summary.Status)
	assert.Equal(t, 2, summary.Inserted, "posts accumulated before the failure are still ingested")
	require.Len(t, summary.Lists, 2)
	assert.Contains(t, summary.Lists[0].Errors, "upstream 500")
	assert.Empty(t, summary.Lists[1].Errors)
}

func TestIngestor_Run_ContextCanceled(t *testing.T) {
	client := &fakeClient{posts: map[string][]timeline.RawPost{
		"l1": {articlePost("100", "Article")},
		"l2": {articlePost("200", "Never Reached")},
	}}
	store := newFakeStore()
	ing := newTestIngestor(client, &fakeRegistry{}, store,
		Config{DefaultListIDs: []string{"l1", "l2"}, ListDelay: time.Minute})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	summary, err := ing.Run(ctx, RunOptions{})
	require.NoError(t, err, "cancellation returns the partial summary without error")
	assert.Equal(t, 1, summary.TotalListsProcessed)
	assert.Equal(t, 1, summary.Inserted)
}
