package repository

import (
	"context"
	"fmt"
	"time"

	"MandiCast/internal/domain/models"
	domrepo "MandiCast/internal/domain/repository"
	"MandiCast/pkg/cache"
	applogger "MandiCast/pkg/logger"
)

// CachedPriceHistory caches history reads. Mandi prices settle daily,
// so a short TTL keeps overseer evaluations from hammering ClickHouse
// without serving stale baselines.
type CachedPriceHistory struct {
	inner domrepo.PriceHistory
	cache cache.Service
	ttl   time.Duration
	l     *applogger.Logger
}

func NewCachedPriceHistory(inner domrepo.PriceHistory, c cache.Service, ttl time.Duration) *CachedPriceHistory {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &CachedPriceHistory{inner: inner, cache: c, ttl: ttl}
}

// SetLogger injects a structured logger.
func (s *CachedPriceHistory) SetLogger(l *applogger.Logger) { s.l = l }

func (s *CachedPriceHistory) Range(ctx context.Context, commodity, market string, from, to time.Time) ([]models.PricePoint, error) {
	key := fmt.Sprintf("prices:%s:%s:%s:%s",
		commodity, market, from.Format("2006-01-02"), to.Format("2006-01-02"))

	var cached []models.PricePoint
	if err := s.cache.Get(ctx, key, &cached); err == nil {
		return cached, nil
	}

	points, err := s.inner.Range(ctx, commodity, market, from, to)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Set(ctx, key, points, s.ttl); err != nil && s.l != nil {
		s.l.Warn("price cache set failed", applogger.Error(err), applogger.String("key", key))
	}
	return points, nil
}

func (s *CachedPriceHistory) Health(ctx context.Context) error {
	return s.inner.Health(ctx)
}
