// Package quota gates outbound API calls against per-key daily budgets. It is
// injected into the feed client as a capability so tests can substitute an
// always-allow or always-deny implementation.
package quota

import (
	"context"
	"fmt"
	"sort"

	"github.com/go-pkgz/lgr"
)

// Store persists daily usage counters
type Store interface {
	Consume(ctx context.Context, key string, limit int) (bool, error)
	Count(ctx context.Context, key string) (int, error)
}

// Gate enforces daily call budgets per quota key
type Gate struct {
	store  Store
	limits map[string]int
}

// New creates a gate with per-key daily limits. Keys without a configured
// limit are unrestricted.
func New(store Store, limits map[string]int) *Gate {
	return &Gate{store: store, limits: limits}
}

// Consume records one call against the key's budget and reports whether the
// call is allowed. Unlimited keys are always allowed and not counted.
func (g *Gate) Consume(ctx context.Context, key string) (bool, error) {
	limit, ok := g.limits[key]
	if !ok || limit <= 0 {
		return true, nil
	}

	allowed, err := g.store.Consume(ctx, key, limit)
	if err != nil {
		return false, fmt.Errorf("consume %q: %w", key, err)
	}
	if !allowed {
		lgr.Printf("[WARN] daily quota for %q reached (%d calls)", key, limit)
	}
	return allowed, nil
}

// Usage reports today's consumption for a key
type Usage struct {
	Key       string `json:"key"`
	Count     int    `json:"count"`
	Limit     int    `json:"limit"`
	Remaining int    `json:"remaining"`
}

// Stats returns today's usage for the key
func (g *Gate) Stats(ctx context.Context, key string) (Usage, error) {
	count, err := g.store.Count(ctx, key)
	if err != nil {
		return Usage{}, fmt.Errorf("usage for %q: %w", key, err)
	}

	limit := g.limits[key]
	remaining := limit - count
	if limit <= 0 || remaining < 0 {
		remaining = 0
	}
	return Usage{Key: key, Count: count, Limit: limit, Remaining: remaining}, nil
}

// StatsAll returns today's usage for every key with a configured limit,
// ordered by key
func (g *Gate) StatsAll(ctx context.Context) ([]Usage, error) {
	keys := make([]string, 0, len(g.limits))
	for key := range g.limits {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	result := make([]Usage, 0, len(keys))
	for _, key := range keys {
		usage, err := g.Stats(ctx, key)
		if err != nil {
			return nil, err
		}
		result = append(result, usage)
	}
	return result, nil
}
