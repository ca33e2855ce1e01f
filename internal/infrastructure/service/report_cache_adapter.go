package service

import (
	"context"
	"errors"

	"github.com/yks-coach/coach-hub/internal/application/command"
	"github.com/yks-coach/coach-hub/internal/infrastructure/persistence/redis"
)

// ReportCacheAdapter adapts redis.ReportCache to command.ReportCache.
type ReportCacheAdapter struct {
	cache *redis.ReportCache
}

func NewReportCacheAdapter(cache *redis.ReportCache) *ReportCacheAdapter {
	return &ReportCacheAdapter{cache: cache}
}

func (a *ReportCacheAdapter) Get(ctx context.Context, fingerprint string) (*command.CachedReport, error) {
	entry, err := a.cache.Get(ctx, fingerprint)
	if err != nil {
		if errors.Is(err, redis.ErrCacheMiss) {
			return nil, nil
		}
		return nil, err
	}

	return &command.CachedReport{
		Bytes:         entry.Bytes,
		Filename:      entry.Filename,
		ContentType:   entry.ContentType,
		Pages:         entry.Pages,
		Sections:      entry.Sections,
		SectionErrors: entry.SectionErrors,
		GeneratedAt:   entry.GeneratedAt,
	}, nil
}

func (a *ReportCacheAdapter) Set(ctx context.Context, fingerprint string, r *command.CachedReport) error {
	return a.cache.Set(ctx, fingerprint, &redis.Entry{
		Filename:      r.Filename,
		ContentType:   r.ContentType,
		Pages:         r.Pages,
		Sections:      r.Sections,
		SectionErrors: r.SectionErrors,
		GeneratedAt:   r.GeneratedAt,
		Bytes:         r.Bytes,
	})
}

var _ command.ReportCache = (*ReportCacheAdapter)(nil)
