package ingest

import (
	"context"
	"fmt"

	"github.com/go-pkgz/lgr"

	"github.com/jasonCodeSpace/articles-x-sub002/pkg/domain"
	"github.com/jasonCodeSpace/articles-x-sub002/pkg/harvest"
)

// ArticleStore is the persistence surface the upsert engine needs
type ArticleStore interface {
	GetByExternalID(ctx context.Context, externalPostID string) (*domain.Article, error)
	CreateArticle(ctx context.Context, article *domain.Article) error
	UpdateArticle(ctx context.Context, id int64, candidate *domain.Article) error
	SlugExists(ctx context.Context, slug string) (bool, error)
}

// Upserter applies candidate articles to the store with insert/update/skip
// semantics keyed on the external post id
type Upserter struct {
	store ArticleStore
}

// NewUpserter creates an upserter backed by the given store
func NewUpserter(store ArticleStore) *Upserter {
	return &Upserter{store: store}
}

// BatchUpsert processes candidates sequentially in input order. Each candidate
// is looked up by external post id: absent ones are inserted with a
// collision-resolved slug, present ones are updated in place when materially
// changed (preserving id, slug and created_at) or skipped otherwise.
// Candidates sharing an external post id within one batch collapse to a single
// insert; later occurrences resolve against the just-written row. Per-record
// failures are recorded and the batch continues.
func (u *Upserter) BatchUpsert(ctx context.Context, candidates []*domain.Article) domain.UpsertStats {
	stats := domain.UpsertStats{}

	for _, candidate := range candidates {
		existing, err := u.store.GetByExternalID(ctx, candidate.ExternalPostID)
		if err != nil {
			stats.Errors = append(stats.Errors, fmt.Sprintf("lookup %s: %v", candidate.ExternalPostID, err))
			continue
		}

		if existing == nil {
			if err := u.insert(ctx, candidate); err != nil {
				stats.Errors = append(stats.Errors, fmt.Sprintf("insert %s: %v", candidate.ExternalPostID, err))
				continue
			}
			stats.Inserted++
			lgr.Printf("[DEBUG] inserted article %q (post %s)", candidate.Title, candidate.ExternalPostID)
			continue
		}

		if !existing.Changed(candidate) {
			stats.Skipped++
			continue
		}

		if err := u.store.UpdateArticle(ctx, existing.ID, candidate); err != nil {
			stats.Errors = append(stats.Errors, fmt.Sprintf("update %s: %v", candidate.ExternalPostID, err))
			continue
		}
		stats.Updated++
		lgr.Printf("[DEBUG] updated article %q (post %s)", candidate.Title, candidate.ExternalPostID)
	}

	return stats
}

// insert finalizes the candidate's slug against existing ones and creates the
// record. On collision the post-id derived suffix disambiguates; a numbered
// suffix is the last resort.
func (u *Upserter) insert(ctx context.Context, candidate *domain.Article) error {
	slug, err := u.resolveSlug(ctx, candidate)
	if err != nil {
		return err
	}
	candidate.Slug = slug
	return u.store.CreateArticle(ctx, candidate)
}

func (u *Upserter) resolveSlug(ctx context.Context, candidate *domain.Article) (string, error) {
	taken, err := u.store.SlugExists(ctx, candidate.Slug)
	if err != nil {
		return "", err
	}
	if !taken {
		return candidate.Slug, nil
	}

	suffixed := candidate.Slug + "-" + harvest.SlugSuffix(candidate.ExternalPostID)
	taken, err = u.store.SlugExists(ctx, suffixed)
	if err != nil {
		return "", err
	}
	if !taken {
		return suffixed, nil
	}

	for i := 2; i < 100; i++ {
		numbered := fmt.Sprintf("%s-%d", suffixed, i)
		taken, err = u.store.SlugExists(ctx, numbered)
		if err != nil {
			return "", err
		}
		if !taken {
			return numbered, nil
		}
	}
	return "", fmt.Errorf("no free slug for %s", candidate.ExternalPostID)
}
