package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/jasonCodeSpace/articles-x-sub002/pkg/domain"
)

// ListRepository handles the registry of external list feeds
type ListRepository struct {
	db *sqlx.DB
}

// listSQL represents a list for SQL operations
type listSQL struct {
	ID            int64      `db:"id"`
	ListID        string     `db:"list_id"`
	Name          string     `db:"name"`
	Description   string     `db:"description"`
	Active        bool       `db:"active"`
	LastScannedAt *time.Time `db:"last_scanned_at"`
	ArticlesFound int        `db:"articles_found"`
	CreatedAt     time.Time  `db:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at"`
}

// NewListRepository creates a new list repository
func NewListRepository(database *sqlx.DB) *ListRepository {
	return &ListRepository{db: database}
}

// EnsureLists inserts any lists missing from the registry; existing rows are
// left untouched so manual activation changes survive restarts
func (r *ListRepository) EnsureLists(ctx context.Context, lists []domain.List) error {
	query := `
		INSERT INTO lists (list_id, name, description, active)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(list_id) DO NOTHING
	`
	for _, l := range lists {
		if _, err := r.db.ExecContext(ctx, query, l.ListID, l.Name, l.Description, l.Active); err != nil {
			return fmt.Errorf("ensure list %s: %w", l.ListID, err)
		}
	}
	return nil
}

// GetLists retrieves all registered lists
func (r *ListRepository) GetLists(ctx context.Context) ([]*domain.List, error) {
	var sqlLists []listSQL
	if err := r.db.SelectContext(ctx, &sqlLists, "SELECT * FROM lists ORDER BY created_at"); err != nil {
		return nil, fmt.Errorf("get lists: %w", err)
	}

	lists := make([]*domain.List, len(sqlLists))
	for i, l := range sqlLists {
		lists[i] = toDomainList(&l)
	}
	return lists, nil
}

// GetActiveListIDs returns external ids of lists the ingestor should poll
func (r *ListRepository) GetActiveListIDs(ctx context.Context) ([]string, error) {
	var ids []string
	err := r.db.SelectContext(ctx, &ids,
		"SELECT list_id FROM lists WHERE active = 1 ORDER BY created_at")
	if err != nil {
		return nil, fmt.Errorf("get active list ids: %w", err)
	}
	return ids, nil
}

// SetActive enables or disables a list
func (r *ListRepository) SetActive(ctx context.Context, listID string, active bool) error {
	query := "UPDATE lists SET active = ?, updated_at = datetime('now') WHERE list_id = ?"
	if _, err := r.db.ExecContext(ctx, query, active, listID); err != nil {
		return fmt.Errorf("set list active: %w", err)
	}
	return nil
}

// MarkScanned records a completed scan of a list
func (r *ListRepository) MarkScanned(ctx context.Context, listID string, articlesFound int) error {
	query := `
		UPDATE lists
		SET last_scanned_at = datetime('now'),
		    articles_found = ?,
		    updated_at = datetime('now')
		WHERE list_id = ?
	`

	retrier := writeRetrier()
	return retrier.Do(ctx, func() error {
		_, err := r.db.ExecContext(ctx, query, articlesFound, listID)
		if err != nil {
			if isLockError(err) {
				return err // retry
			}
			return &criticalError{err: fmt.Errorf("mark list scanned: %w", err)}
		}
		return nil
	})
}

// toDomainList converts listSQL to domain.List
func toDomainList(sqlList *listSQL) *domain.List {
	return &domain.List{
		ID:            sqlList.ID,
		ListID:        sqlList.ListID,
		Name:          sqlList.Name,
		Description:   sqlList.Description,
		Active:        sqlList.Active,
		LastScannedAt: sqlList.LastScannedAt,
		ArticlesFound: sqlList.ArticlesFound,
		CreatedAt:     sqlList.CreatedAt,
		UpdatedAt:     sqlList.UpdatedAt,
	}
}
