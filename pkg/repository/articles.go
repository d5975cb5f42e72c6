package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/jasonCodeSpace/articles-x-sub002/pkg/domain"
)

// ArticleRepository handles article-related database operations
type ArticleRepository struct {
	db *sqlx.DB
}

// articleSQL represents an article for SQL operations
type articleSQL struct {
	ID             int64  `db:"id"`
	ExternalPostID string `db:"external_post_id"`
	Title          string `db:"title"`
	Slug           string `db:"slug"`
	Content        string `db:"content"`
	Excerpt        string `db:"excerpt"`
	Language       string `db:"language"`

	AuthorName      string `db:"author_name"`
	AuthorHandle    string `db:"author_handle"`
	AuthorAvatarURL string `db:"author_avatar_url"`

	ArticleURL string `db:"article_url"`
	SourceType string `db:"source_type"`
	ListID     string `db:"list_id"`

	FeaturedImageURL string `db:"featured_image_url"`

	Views     int64 `db:"views"`
	Likes     int64 `db:"likes"`
	Retweets  int64 `db:"retweets"`
	Replies   int64 `db:"replies"`
	Bookmarks int64 `db:"bookmarks"`

	PublishedAt        time.Time `db:"published_at"`
	PublishedAtGuessed bool      `db:"published_at_guessed"`

	Summary    string     `db:"summary"`
	Category   string     `db:"category"`
	EnrichedAt *time.Time `db:"enriched_at"`

	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// NewArticleRepository creates a new article repository
func NewArticleRepository(database *sqlx.DB) *ArticleRepository {
	return &ArticleRepository{db: database}
}

// CreateArticle inserts a new article and sets its generated id. The caller
// supplies the final, collision-resolved slug.
func (r *ArticleRepository) CreateArticle(ctx context.Context, article *domain.Article) error {
	sqlArticle := toSQLArticle(article)

	query := `
		INSERT INTO articles (
			external_post_id, title, slug, content, excerpt, language,
			author_name, author_handle, author_avatar_url,
			article_url, source_type, list_id, featured_image_url,
			views, likes, retweets, replies, bookmarks,
			published_at, published_at_guessed
		) VALUES (
			:external_post_id, :title, :slug, :content, :excerpt, :language,
			:author_name, :author_handle, :author_avatar_url,
			:article_url, :source_type, :list_id, :featured_image_url,
			:views, :likes, :retweets, :replies, :bookmarks,
			:published_at, :published_at_guessed
		)
	`

	retrier := writeRetrier()
	err := retrier.Do(ctx, func() error {
		result, err := r.db.NamedExecContext(ctx, query, sqlArticle)
		if err != nil {
			if isLockError(err) {
				return err // retry
			}
			return &criticalError{err: fmt.Errorf("create article: %w", err)}
		}
		id, err := result.LastInsertId()
		if err != nil {
			return &criticalError{err: fmt.Errorf("get insert id: %w", err)}
		}
		article.ID = id
		return nil
	})
	if err != nil {
		return err
	}
	return nil
}

// GetByExternalID looks an article up by the upstream post id. Returns
// (nil, nil) when no such article exists.
func (r *ArticleRepository) GetByExternalID(ctx context.Context, externalPostID string) (*domain.Article, error) {
	var sqlArticle articleSQL
	err := r.db.GetContext(ctx, &sqlArticle, "SELECT * FROM articles WHERE external_post_id = ?", externalPostID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get article by external id: %w", err)
	}
	return toDomainArticle(&sqlArticle), nil
}

// GetArticle retrieves an article by internal id
func (r *ArticleRepository) GetArticle(ctx context.Context, id int64) (*domain.Article, error) {
	var sqlArticle articleSQL
	if err := r.db.GetContext(ctx, &sqlArticle, "SELECT * FROM articles WHERE id = ?", id); err != nil {
		return nil, fmt.Errorf("get article: %w", err)
	}
	return toDomainArticle(&sqlArticle), nil
}

// GetBySlug retrieves an article by its slug. Returns (nil, nil) when no
// article uses the slug.
func (r *ArticleRepository) GetBySlug(ctx context.Context, slug string) (*domain.Article, error) {
	var sqlArticle articleSQL
	err := r.db.GetContext(ctx, &sqlArticle, "SELECT * FROM articles WHERE slug = ?", slug)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get article by slug: %w", err)
	}
	return toDomainArticle(&sqlArticle), nil
}

// GetArticles retrieves articles ordered by publish time, newest first
func (r *ArticleRepository) GetArticles(ctx context.Context, limit, offset int) ([]*domain.Article, error) {
	query := `
		SELECT * FROM articles
		ORDER BY published_at DESC
		LIMIT ? OFFSET ?
	`
	var sqlArticles []articleSQL
	if err := r.db.SelectContext(ctx, &sqlArticles, query, limit, offset); err != nil {
		return nil, fmt.Errorf("get articles: %w", err)
	}

	articles := make([]*domain.Article, len(sqlArticles))
	for i, a := range sqlArticles {
		articles[i] = toDomainArticle(&a)
	}
	return articles, nil
}

// UpdateArticle refreshes the change-relevant fields of an existing article,
// preserving its id, slug, source_type and created_at
func (r *ArticleRepository) UpdateArticle(ctx context.Context, id int64, candidate *domain.Article) error {
	query := `
		UPDATE articles
		SET title = ?,
		    content = ?,
		    excerpt = ?,
		    language = ?,
		    author_name = ?,
		    author_handle = ?,
		    author_avatar_url = ?,
		    article_url = ?,
		    featured_image_url = ?,
		    views = ?,
		    likes = ?,
		    retweets = ?,
		    replies = ?,
		    bookmarks = ?,
		    published_at = ?,
		    published_at_guessed = ?,
		    updated_at = datetime('now')
		WHERE id = ?
	`

	retrier := writeRetrier()
	return retrier.Do(ctx, func() error {
		_, err := r.db.ExecContext(ctx, query,
			candidate.Title, candidate.Content, candidate.Excerpt, candidate.Language,
			candidate.AuthorName, candidate.AuthorHandle, candidate.AuthorAvatarURL,
			candidate.ArticleURL, candidate.FeaturedImageURL,
			candidate.Views, candidate.Likes, candidate.Retweets, candidate.Replies, candidate.Bookmarks,
			candidate.PublishedAt, candidate.PublishedAtGuessed, id)
		if err != nil {
			if isLockError(err) {
				return err // retry
			}
			return &criticalError{err: fmt.Errorf("update article: %w", err)}
		}
		return nil
	})
}

// SlugExists checks whether any article already uses the slug
func (r *ArticleRepository) SlugExists(ctx context.Context, slug string) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists,
		"SELECT EXISTS(SELECT 1 FROM articles WHERE slug = ?)", slug)
	if err != nil {
		return false, fmt.Errorf("check slug exists: %w", err)
	}
	return exists, nil
}

// GetUnenriched retrieves articles that haven't been through the summarizer yet
func (r *ArticleRepository) GetUnenriched(ctx context.Context, limit int) ([]*domain.Article, error) {
	query := `
		SELECT * FROM articles
		WHERE enriched_at IS NULL
		ORDER BY published_at DESC
		LIMIT ?
	`
	var sqlArticles []articleSQL
	if err := r.db.SelectContext(ctx, &sqlArticles, query, limit); err != nil {
		return nil, fmt.Errorf("get unenriched articles: %w", err)
	}

	articles := make([]*domain.Article, len(sqlArticles))
	for i, a := range sqlArticles {
		articles[i] = toDomainArticle(&a)
	}
	return articles, nil
}

// UpdateEnrichment stores summarizer output for an article
func (r *ArticleRepository) UpdateEnrichment(ctx context.Context, id int64, summary, category, language string) error {
	query := `
		UPDATE articles
		SET summary = ?,
		    category = ?,
		    language = ?,
		    enriched_at = datetime('now'),
		    updated_at = datetime('now')
		WHERE id = ?
	`

	retrier := writeRetrier()
	return retrier.Do(ctx, func() error {
		_, err := r.db.ExecContext(ctx, query, summary, category, language, id)
		if err != nil {
			if isLockError(err) {
				return err // retry
			}
			return &criticalError{err: fmt.Errorf("update enrichment: %w", err)}
		}
		return nil
	})
}

// CountArticles returns the total number of stored articles
func (r *ArticleRepository) CountArticles(ctx context.Context) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM articles"); err != nil {
		return 0, fmt.Errorf("count articles: %w", err)
	}
	return count, nil
}

// toSQLArticle converts domain.Article to articleSQL
func toSQLArticle(a *domain.Article) *articleSQL {
	return &articleSQL{
		ID:                 a.ID,
		ExternalPostID:     a.ExternalPostID,
		Title:              a.Title,
		Slug:               a.Slug,
		Content:            a.Content,
		Excerpt:            a.Excerpt,
		Language:           a.Language,
		AuthorName:         a.AuthorName,
		AuthorHandle:       a.AuthorHandle,
		AuthorAvatarURL:    a.AuthorAvatarURL,
		ArticleURL:         a.ArticleURL,
		SourceType:         a.SourceType,
		ListID:             a.ListID,
		FeaturedImageURL:   a.FeaturedImageURL,
		Views:              a.Views,
		Likes:              a.Likes,
		Retweets:           a.Retweets,
		Replies:            a.Replies,
		Bookmarks:          a.Bookmarks,
		PublishedAt:        a.PublishedAt,
		PublishedAtGuessed: a.PublishedAtGuessed,
	}
}

// toDomainArticle converts articleSQL to domain.Article
func toDomainArticle(sqlArticle *articleSQL) *domain.Article {
	return &domain.Article{
		ID:                 sqlArticle.ID,
		ExternalPostID:     sqlArticle.ExternalPostID,
		Title:              sqlArticle.Title,
		Slug:               sqlArticle.Slug,
		Content:            sqlArticle.Content,
		Excerpt:            sqlArticle.Excerpt,
		Language:           sqlArticle.Language,
		AuthorName:         sqlArticle.AuthorName,
		AuthorHandle:       sqlArticle.AuthorHandle,
		AuthorAvatarURL:    sqlArticle.AuthorAvatarURL,
		ArticleURL:         sqlArticle.ArticleURL,
		SourceType:         sqlArticle.SourceType,
		ListID:             sqlArticle.ListID,
		FeaturedImageURL:   sqlArticle.FeaturedImageURL,
		Views:              sqlArticle.Views,
		Likes:              sqlArticle.Likes,
		Retweets:           sqlArticle.Retweets,
		Replies:            sqlArticle.Replies,
		Bookmarks:          sqlArticle.Bookmarks,
		PublishedAt:        sqlArticle.PublishedAt,
		PublishedAtGuessed: sqlArticle.PublishedAtGuessed,
		Summary:            sqlArticle.Summary,
		Category:           sqlArticle.Category,
		EnrichedAt:         sqlArticle.EnrichedAt,
		CreatedAt:          sqlArticle.CreatedAt,
		UpdatedAt:          sqlArticle.UpdatedAt,
	}
}
