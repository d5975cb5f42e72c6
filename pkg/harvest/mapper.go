package harvest

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/jasonCodeSpace/articles-x-sub002/pkg/domain"
	"github.com/jasonCodeSpace/articles-x-sub002/pkg/timeline"
)

// createdAtLayout is the upstream post creation time format,
// e.g. "Wed Oct 05 21:25:35 +0000 2022"
const createdAtLayout = "Mon Jan 02 15:04:05 -0700 2006"

const (
	maxTitleFromText = 100
	maxExcerpt       = 200
)

// now is swapped in tests; the only nondeterministic input to mapping
var now = time.Now

// MapPost transforms a raw post into a candidate Article. Returns nil when the
// classifier rejects the post, the post has no stable id, or mapping cannot
// produce a minimally valid record. The result carries no final slug suffix;
// the upsert engine appends one on insert when the base slug collides.
func MapPost(post *timeline.RawPost, listID string) *domain.Article {
	block := ArticleBlock(post)
	if block == nil {
		return nil
	}

	postID := post.ID()
	if postID == "" {
		return nil
	}

	handle, name, avatar := resolveAuthor(post, block)

	text := post.Text()
	title := block.Title
	if title == "" {
		title = truncate(text, maxTitleFromText)
	}
	if title == "" {
		title = fmt.Sprintf("Article by %s", name)
	}

	content := block.Content
	if content == "" {
		content = text
	}

	if title == "" && content == "" {
		return nil
	}

	excerpt := block.PreviewText
	if excerpt == "" {
		excerpt = block.Description
	}
	if excerpt == "" && content != "" {
		excerpt = truncate(content, maxExcerpt)
		if excerpt != content {
			excerpt += "…"
		}
	}

	publishedAt, guessed := resolvePublished(post, block)

	a := &domain.Article{
		ExternalPostID:     postID,
		Title:              title,
		Slug:               Slugify(title),
		Content:            content,
		Excerpt:            excerpt,
		Language:           detectLanguage(title + " " + content),
		AuthorName:         name,
		AuthorHandle:       handle,
		AuthorAvatarURL:    avatar,
		ArticleURL:         resolveURL(post, block, handle, postID),
		SourceType:         domain.SourceTypeListIngest,
		ListID:             listID,
		FeaturedImageURL:   block.CoverImageURL(),
		PublishedAt:        publishedAt,
		PublishedAtGuessed: guessed,
	}

	if post.Views != nil {
		a.Views = post.Views.Count.Int64()
	}
	if post.Legacy != nil {
		a.Replies = post.Legacy.ReplyCount.Int64()
		a.Retweets = post.Legacy.RetweetCount.Int64()
		a.Likes = post.Legacy.FavoriteCount.Int64()
		a.Bookmarks = post.Legacy.BookmarkCount.Int64()
	}

	return a
}

// resolveAuthor prefers the legacy user block, falls back to the newer
// core.user_results block, then to a handle parsed out of the article URL,
// then to the literal "unknown"
func resolveAuthor(post *timeline.RawPost, block *timeline.ArticleResult) (handle, name, avatar string) {
	var u *timeline.User
	if post.Legacy != nil && post.Legacy.User != nil {
		u = post.Legacy.User
	} else if post.Core != nil && post.Core.UserResults != nil && post.Core.UserResults.Result != nil {
		u = post.Core.UserResults.Result.Legacy
	}

	if u != nil {
		handle, name, avatar = u.ScreenName, u.Name, u.ProfileImageURL
	}
	if handle == "" {
		handle = handleFromURL(block.URL)
	}
	if handle == "" {
		handle = "unknown"
	}
	if name == "" {
		name = handle
	}
	return handle, name, avatar
}

// handleFromURL pulls the author handle out of a post permalink like
// https://x.com/alice/status/123
func handleFromURL(rawURL string) string {
	for _, host := range []string{"x.com/", "twitter.com/"} {
		idx := strings.Index(rawURL, host)
		if idx < 0 {
			continue
		}
		rest := rawURL[idx+len(host):]
		if end := strings.IndexByte(rest, '/'); end > 0 {
			return rest[:end]
		}
	}
	return ""
}

// resolveURL picks the canonical external link: the first expanded entity URL,
// else the deep link built from handle and post id, else the article block's
// own permalink
func resolveURL(post *timeline.RawPost, block *timeline.ArticleResult, handle, postID string) string {
	if post.Legacy != nil && post.Legacy.Entities != nil {
		for _, u := range post.Legacy.Entities.URLs {
			if u.ExpandedURL != "" {
				return u.ExpandedURL
			}
		}
	}
	if handle != "" && handle != "unknown" {
		return fmt.Sprintf("https://x.com/%s/status/%s", handle, postID)
	}
	return block.URL
}

// resolvePublished parses the post creation time, falling back to article
// publication metadata and finally the local clock. The guessed flag marks the
// local-clock fallback so fabricated ordering stays observable downstream.
func resolvePublished(post *timeline.RawPost, block *timeline.ArticleResult) (ts time.Time, guessed bool) {
	if post.Legacy != nil && post.Legacy.CreatedAt != "" {
		if t, err := time.Parse(createdAtLayout, post.Legacy.CreatedAt); err == nil {
			return t.UTC(), false
		}
	}
	if block.Metadata != nil && block.Metadata.FirstPublishedAtSecs > 0 {
		return time.Unix(block.Metadata.FirstPublishedAtSecs, 0).UTC(), false
	}
	return now().UTC(), true
}

// truncate cuts s to at most n runes
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return strings.TrimRight(string(r[:n]), " ")
}

// detectLanguage is a crude latin-majority check: "en" when most letters are
// latin, empty (unknown) otherwise. Proper detection belongs to enrichment.
func detectLanguage(text string) string {
	var latin, letters int
	for _, r := range text {
		if unicode.IsLetter(r) {
			letters++
			if r < 0x250 {
				latin++
			}
		}
	}
	if letters == 0 {
		return ""
	}
	if float64(latin)/float64(letters) > 0.5 {
		return "en"
	}
	return ""
}
