package harvest

import (
	"github.com/jasonCodeSpace/articles-x-sub002/pkg/timeline"
)

// strategy extracts the article payload from one known location in the
// upstream post shape. Supporting a future payload generation means appending
// one more strategy, in priority order.
type strategy func(*timeline.RawPost) *timeline.ArticleResult

var strategies = []strategy{
	// current generation: top-level article_results
	func(p *timeline.RawPost) *timeline.ArticleResult {
		if p.ArticleResults == nil {
			return nil
		}
		return p.ArticleResults.Result
	},
	// legacy generation: article.article_results
	func(p *timeline.RawPost) *timeline.ArticleResult {
		if p.Article == nil || p.Article.ArticleResults == nil {
			return nil
		}
		return p.Article.ArticleResults.Result
	},
}

// ArticleBlock returns the article payload carried by the post, trying each
// known payload location in priority order. Nil means the post is not an
// article; missing or malformed nesting is never an error.
func ArticleBlock(post *timeline.RawPost) *timeline.ArticleResult {
	if post == nil {
		return nil
	}
	for _, s := range strategies {
		if block := s(post); !emptyBlock(block) {
			return block
		}
	}
	return nil
}

// IsArticle reports whether the post carries long-form article content
func IsArticle(post *timeline.RawPost) bool {
	return ArticleBlock(post) != nil
}

// emptyBlock treats a present but fieldless block as absent
func emptyBlock(b *timeline.ArticleResult) bool {
	if b == nil {
		return true
	}
	return b.Title == "" && b.PreviewText == "" && b.Description == "" && b.Content == "" && b.URL == ""
}
