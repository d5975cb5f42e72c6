package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// UsageRepository persists daily upstream call counters so the quota budget
// survives process restarts
type UsageRepository struct {
	db *sqlx.DB
}

// NewUsageRepository creates a new usage repository
func NewUsageRepository(database *sqlx.DB) *UsageRepository {
	return &UsageRepository{db: database}
}

// Consume atomically records one call against the key's daily budget and
// reports whether it was allowed. Days roll over at midnight UTC.
func (r *UsageRepository) Consume(ctx context.Context, key string, limit int) (bool, error) {
	day := time.Now().UTC().Format("2006-01-02")

	query := `
		INSERT INTO api_usage (day, quota_key, count)
		VALUES (?, ?, 1)
		ON CONFLICT(day, quota_key) DO UPDATE
		SET count = count + 1
		WHERE count < ?
	`

	var allowed bool
	retrier := writeRetrier()
	err := retrier.Do(ctx, func() error {
		res, err := r.db.ExecContext(ctx, query, day, key, limit)
		if err != nil {
			if isLockError(err) {
				return err // retry
			}
			return &criticalError{err: fmt.Errorf("consume quota: %w", err)}
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return &criticalError{err: fmt.Errorf("quota rows affected: %w", err)}
		}
		allowed = affected > 0
		return nil
	})
	if err != nil {
		return false, err
	}
	return allowed, nil
}

// Count returns today's recorded calls for the key
func (r *UsageRepository) Count(ctx context.Context, key string) (int, error) {
	day := time.Now().UTC().Format("2006-01-02")

	var count int
	err := r.db.GetContext(ctx, &count,
		"SELECT count FROM api_usage WHERE day = ? AND quota_key = ?", day, key)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get usage count: %w", err)
	}
	return count, nil
}
