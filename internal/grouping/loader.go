package grouping

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mverde/consola/internal/metrics"
	"github.com/mverde/consola/internal/models"
)

// Fetcher loads one rule's grouped pending items from the backend.
type Fetcher interface {
	PendingGrouped(ctx context.Context, ruleID string) (*models.GroupedPayload, error)
}

// PayloadCache stores grouped payloads per rule for the session. Different
// rules never share entries.
type PayloadCache interface {
	Get(ruleID string) (*models.GroupedPayload, bool)
	Put(ruleID string, payload *models.GroupedPayload) error
	Invalidate(ruleID string) error
	InvalidateAll() error
}

// Loader fetches grouped payloads lazily, on first expansion of a rule
// section, and caches them until an explicit refresh. Pagination state is
// owned elsewhere and is untouched by invalidation.
type Loader struct {
	fetcher Fetcher
	cache   PayloadCache
	logger  *slog.Logger
}

// NewLoader creates a loader. cache may be nil to disable caching.
func NewLoader(fetcher Fetcher, cache PayloadCache, logger *slog.Logger) *Loader {
	return &Loader{
		fetcher: fetcher,
		cache:   cache,
		logger:  logger.With("component", "grouping"),
	}
}

// Load returns the validated index for a rule, from cache when possible.
func (l *Loader) Load(ctx context.Context, ruleID string) (*Index, error) {
	if l.cache != nil {
		if payload, ok := l.cache.Get(ruleID); ok {
			metrics.CacheHit()
			return BuildIndex(payload)
		}
	}
	metrics.CacheMiss()
	return l.Refresh(ctx, ruleID)
}

// Refresh fetches a rule's payload from the backend unconditionally and
// replaces the cached copy.
func (l *Loader) Refresh(ctx context.Context, ruleID string) (*Index, error) {
	payload, err := l.fetcher.PendingGrouped(ctx, ruleID)
	if err != nil {
		return nil, fmt.Errorf("load pending items for rule %s: %w", ruleID, err)
	}
	payload.RuleID = ruleID

	idx, err := BuildIndex(payload)
	if err != nil {
		return nil, fmt.Errorf("rule %s: %w", ruleID, err)
	}

	if l.cache != nil {
		if err := l.cache.Put(ruleID, payload); err != nil {
			l.logger.Warn("failed to cache grouped payload", "rule_id", ruleID, "error", err)
		}
	}

	l.logger.Debug("loaded grouped payload", "rule_id", ruleID, "groups", len(payload.Groups), "items", idx.TotalItems())
	return idx, nil
}

// Invalidate drops one rule's cached payload.
func (l *Loader) Invalidate(ruleID string) error {
	if l.cache == nil {
		return nil
	}
	return l.cache.Invalidate(ruleID)
}

// InvalidateAll drops every cached payload. Used by manual full refresh and
// by job-completion hooks.
func (l *Loader) InvalidateAll() error {
	if l.cache == nil {
		return nil
	}
	return l.cache.InvalidateAll()
}
