package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jasonCodeSpace/articles-x-sub002/pkg/domain"
)

// setupTestRepos creates repositories over a throwaway database file
func setupTestRepos(t *testing.T) *Repositories {
	t.Helper()

	dsn := fmt.Sprintf("file:%s/test.db?cache=shared&mode=rwc&_txlock=immediate", t.TempDir())
	repos, err := NewRepositories(context.Background(), Config{DSN: dsn})
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, repos.Close()) })

	return repos
}

// testArticle builds a minimal valid article for persistence tests
func testArticle(externalID, slug string) *domain.Article {
	return &domain.Article{
		ExternalPostID: externalID,
		Title:          "Test Article",
		Slug:           slug,
		Content:        "content body",
		Excerpt:        "excerpt",
		Language:       "en",
		AuthorName:     "Alice",
		AuthorHandle:   "alice",
		ArticleURL:     "https://x.com/alice/status/" + externalID,
		SourceType:     domain.SourceTypeListIngest,
		ListID:         "list-1",
		Views:          100,
		Likes:          10,
		PublishedAt:    time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
	}
}

func TestNewRepositories(t *testing.T) {
	repos := setupTestRepos(t)
	require.NotNil(t, repos.Article)
	require.NotNil(t, repos.List)
	require.NotNil(t, repos.Usage)
	require.NoError(t, repos.Ping(context.Background()))
}

func TestNewRepositories_SchemaIdempotent(t *testing.T) {
	repos := setupTestRepos(t)
	// re-applying the schema on an initialized database must be a no-op
	require.NoError(t, initSchema(context.Background(), repos.DB))
}
