package harvest

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jasonCodeSpace/articles-x-sub002/pkg/domain"
	"github.com/jasonCodeSpace/articles-x-sub002/pkg/timeline"
)

func articlePost(id, title string) *timeline.RawPost {
	return &timeline.RawPost{
		RestID: id,
		Legacy: &timeline.Legacy{
			IDStr:     id,
			FullText:  "announcement text",
			CreatedAt: "Wed Oct 05 21:25:35 +0000 2022",
			User:      &timeline.User{ScreenName: "alice", Name: "Alice", ProfileImageURL: "https://img.example.com/alice.png"},
		},
		ArticleResults: &timeline.ArticleResults{Result: &timeline.ArticleResult{
			Title:       title,
			PreviewText: "preview",
			Content:     "full article content",
		}},
	}
}

func TestMapPost(t *testing.T) {
	post := articlePost("123", "Hello World")

	article := MapPost(post, "list-1")
	require.NotNil(t, article)

	assert.Equal(t, "123", article.ExternalPostID)
	assert.Equal(t, "Hello World", article.Title)
	assert.Equal(t, "hello-world", article.Slug)
	assert.Equal(t, "full article content", article.Content)
	assert.Equal(t, "preview", article.Excerpt)
	assert.Equal(t, "alice", article.AuthorHandle)
	assert.Equal(t, "Alice", article.AuthorName)
	assert.Equal(t, "https://img.example.com/alice.png", article.AuthorAvatarURL)
	assert.Equal(t, "https://x.com/alice/status/123", article.ArticleURL)
	assert.Equal(t, domain.SourceTypeListIngest, article.SourceType)
	assert.Equal(t, "list-1", article.ListID)
	assert.Equal(t, time.Date(2022, 10, 5, 21, 25, 35, 0, time.UTC), article.PublishedAt)
	assert.False(t, article.PublishedAtGuessed)
	assert.Equal(t, "en", article.Language)
}

func TestMapPost_Rejections(t *testing.T) {
	tests := []struct {
		name string
		post *timeline.RawPost
	}{
		{"not an article", &timeline.RawPost{RestID: "1", Legacy: &timeline.Legacy{FullText: "plain post"}}},
		{"no stable id", &timeline.RawPost{ArticleResults: &timeline.ArticleResults{Result: &timeline.ArticleResult{Title: "t"}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Nil(t, MapPost(tt.post, "list-1"))
		})
	}
}

func TestMapPost_TitleFallbacks(t *testing.T) {
	t.Run("from post text", func(t *testing.T) {
		post := articlePost("123", "")
		post.Legacy.FullText = "a thread about something interesting"
		article := MapPost(post, "list-1")
		require.NotNil(t, article)
		assert.Equal(t, "a thread about something interesting", article.Title)
	})

	t.Run("long post text truncated", func(t *testing.T) {
		post := articlePost("123", "")
		post.Legacy.FullText = strings.Repeat("word ", 40) // 200 chars
		article := MapPost(post, "list-1")
		require.NotNil(t, article)
		assert.LessOrEqual(t, len([]rune(article.Title)), 100)
		assert.NotEqual(t, " ", article.Title[len(article.Title)-1:])
	})

	t.Run("from author name", func(t *testing.T) {
		post := articlePost("123", "")
		post.Legacy.FullText = ""
		post.ArticleResults.Result.PreviewText = "preview only"
		article := MapPost(post, "list-1")
		require.NotNil(t, article)
		assert.Equal(t, "Article by Alice", article.Title)
	})
}

func TestMapPost_ExcerptFallbacks(t *testing.T) {
	t.Run("description when no preview", func(t *testing.T) {
		post := articlePost("123", "Title")
		post.ArticleResults.Result.PreviewText = ""
		post.ArticleResults.Result.Description = "the description"
		article := MapPost(post, "list-1")
		require.NotNil(t, article)
		assert.Equal(t, "the description", article.Excerpt)
	})

	t.Run("truncated content with ellipsis", func(t *testing.T) {
		post := articlePost("123", "Title")
		post.ArticleResults.Result.PreviewText = ""
		post.ArticleResults.Result.Content = strings.Repeat("x", 300)
		article := MapPost(post, "list-1")
		require.NotNil(t, article)
		assert.True(t, strings.HasSuffix(article.Excerpt, "…"))
		assert.Equal(t, 200+len("…"), len(article.Excerpt))
	})

	t.Run("short content kept verbatim", func(t *testing.T) {
		post := articlePost("123", "Title")
		post.ArticleResults.Result.PreviewText = ""
		post.ArticleResults.Result.Content = "short content"
		article := MapPost(post, "list-1")
		require.NotNil(t, article)
		assert.Equal(t, "short content", article.Excerpt)
	})
}

func TestMapPost_AuthorFallbacks(t *testing.T) {
	t.Run("core user when no legacy user", func(t *testing.T) {
		post := articlePost("123", "Title")
		post.Legacy.User = nil
		post.Core = &timeline.Core{UserResults: &timeline.UserResults{Result: &timeline.UserResult{
			Legacy: &timeline.User{ScreenName: "bob", Name: "Bob"},
		}}}
		article := MapPost(post, "list-1")
		require.NotNil(t, article)
		assert.Equal(t, "bob", article.AuthorHandle)
		assert.Equal(t, "Bob", article.AuthorName)
	})

	t.Run("handle parsed from article url", func(t *testing.T) {
		post := articlePost("123", "Title")
		post.Legacy.User = nil
		post.ArticleResults.Result.URL = "https://x.com/carol/status/123"
		article := MapPost(post, "list-1")
		require.NotNil(t, article)
		assert.Equal(t, "carol", article.AuthorHandle)
		assert.Equal(t, "carol", article.AuthorName, "name falls back to handle")
	})

	t.Run("unknown author", func(t *testing.T) {
		post := articlePost("123", "Title")
		post.Legacy.User = nil
		article := MapPost(post, "list-1")
		require.NotNil(t, article)
		assert.Equal(t, "unknown", article.AuthorHandle)
		assert.Equal(t, "unknown", article.AuthorName)
	})
}

func TestHandleFromURL(t *testing.T) {
	tests := []struct {
		url      string
		expected string
	}{
		{"https://x.com/alice/status/123", "alice"},
		{"https://twitter.com/bob/status/456", "bob"},
		{"https://example.com/whatever", ""},
		{"https://x.com/", ""},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			assert.Equal(t, tt.expected, handleFromURL(tt.url))
		})
	}
}

func TestMapPost_URLResolution(t *testing.T) {
	t.Run("expanded entity url wins", func(t *testing.T) {
		post := articlePost("123", "Title")
		post.Legacy.Entities = &timeline.Entities{URLs: []timeline.EntityURL{
			{URL: "https://t.co/abc", ExpandedURL: "https://x.com/alice/status/123/article"},
		}}
		article := MapPost(post, "list-1")
		require.NotNil(t, article)
		assert.Equal(t, "https://x.com/alice/status/123/article", article.ArticleURL)
	})

	t.Run("block url when author unknown", func(t *testing.T) {
		post := articlePost("123", "Title")
		post.Legacy.User = nil
		post.ArticleResults.Result.URL = "https://example.com/permalink"
		article := MapPost(post, "list-1")
		require.NotNil(t, article)
		assert.Equal(t, "https://example.com/permalink", article.ArticleURL)
	})
}

func TestMapPost_PublishedAt(t *testing.T) {
	fixed := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	origNow := now
	now = func() time.Time { return fixed }
	defer func() { now = origNow }()

	t.Run("article metadata when created_at unparseable", func(t *testing.T) {
		post := articlePost("123", "Title")
		post.Legacy.CreatedAt = "not a timestamp"
		post.ArticleResults.Result.Metadata = &timeline.Metadata{FirstPublishedAtSecs: 1700000000}
		article := MapPost(post, "list-1")
		require.NotNil(t, article)
		assert.Equal(t, time.Unix(1700000000, 0).UTC(), article.PublishedAt)
		assert.False(t, article.PublishedAtGuessed)
	})

	t.Run("local clock fallback flagged as guessed", func(t *testing.T) {
		post := articlePost("123", "Title")
		post.Legacy.CreatedAt = ""
		article := MapPost(post, "list-1")
		require.NotNil(t, article)
		assert.Equal(t, fixed, article.PublishedAt)
		assert.True(t, article.PublishedAtGuessed)
	})
}

func TestMapPost_Counters(t *testing.T) {
	post := articlePost("123", "Title")
	post.Views = &timeline.Views{Count: "1.2k"}
	post.Legacy.ReplyCount = "3"
	post.Legacy.RetweetCount = "40"
	post.Legacy.FavoriteCount = "2,500"
	post.Legacy.BookmarkCount = "7"

	article := MapPost(post, "list-1")
	require.NotNil(t, article)
	assert.Equal(t, int64(1200), article.Views)
	assert.Equal(t, int64(3), article.Replies)
	assert.Equal(t, int64(40), article.Retweets)
	assert.Equal(t, int64(2500), article.Likes)
	assert.Equal(t, int64(7), article.Bookmarks)
}

func TestDetectLanguage(t *testing.T) {
	assert.Equal(t, "en", detectLanguage("Mostly latin text here"))
	assert.Equal(t, "", detectLanguage("только кириллица здесь"))
	assert.Equal(t, "", detectLanguage("12345 !!!"))
}
