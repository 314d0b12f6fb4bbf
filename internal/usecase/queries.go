package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"RatePull/internal/domain/models"
	"RatePull/internal/services/analytics"
	pkgcache "RatePull/pkg/cache"
	applogger "RatePull/pkg/logger"
)

const cachePrefix = "ratepull"

// CacheTTLs holds per-view cache expirations.
type CacheTTLs struct {
	Latest  time.Duration
	History time.Duration
	Daily   time.Duration
}

// RateQueries is the read side: analytics queries with cache-aside on the
// hot views. The store stays the source of truth; a cache failure only
// costs the round trip.
type RateQueries struct {
	engine *analytics.Engine
	cache  pkgcache.Service
	ttl    CacheTTLs
	l      *applogger.Logger
}

// NewRateQueries creates a new RateQueries instance. A nil cache disables
// caching entirely.
func NewRateQueries(engine *analytics.Engine, cache pkgcache.Service, ttl CacheTTLs, l *applogger.Logger) *RateQueries {
	if ttl.Latest <= 0 {
		ttl.Latest = 30 * time.Second
	}
	if ttl.History <= 0 {
		ttl.History = 5 * time.Minute
	}
	if ttl.Daily <= 0 {
		ttl.Daily = time.Minute
	}
	return &RateQueries{engine: engine, cache: cache, ttl: ttl, l: l}
}

// Engine exposes the underlying analytics engine for uncached queries.
func (q *RateQueries) Engine() *analytics.Engine { return q.engine }

func (q *RateQueries) Latest(ctx context.Context, bank, code string) (*models.Snapshot, error) {
	return q.engine.Latest(ctx, bank, code)
}

func (q *RateQueries) LatestWithComparison(ctx context.Context, bank, code string, field models.Field) (*models.LatestComparison, error) {
	return q.engine.LatestWithComparison(ctx, bank, code, field)
}

func (q *RateQueries) DailyOHLC(ctx context.Context, bank, code string, day time.Time, field models.Field) (models.DailyOHLC, error) {
	key := pkgcache.GenerateKeyWithParams(cachePrefix+":ohlc", bank, code, day.Format("2006-01-02"), string(field))
	var cached models.DailyOHLC
	if q.tryGet(ctx, key, &cached) {
		return cached, nil
	}
	out, err := q.engine.DailyOHLC(ctx, bank, code, day, field)
	if err != nil {
		return out, err
	}
	q.trySet(ctx, key, out, q.ttl.Daily)
	return out, nil
}

func (q *RateQueries) History(ctx context.Context, bank, code string, rng models.Range, fields []models.Field) ([]models.HistoryPoint, error) {
	from, to := rng.Window(time.Now(), q.engine.Location())
	key := pkgcache.GenerateKeyWithParams(cachePrefix+":history", bank, code, string(rng), fieldsKey(fields))
	var cached []models.HistoryPoint
	if q.tryGet(ctx, key, &cached) {
		return cached, nil
	}
	out, err := q.engine.History(ctx, bank, code, from, to, fields)
	if err != nil {
		return nil, err
	}
	q.trySet(ctx, key, out, q.ttl.History)
	return out, nil
}

func (q *RateQueries) BestToday(ctx context.Context, code string) (models.BestOfDay, error) {
	day := time.Now().In(q.engine.Location())
	key := pkgcache.GenerateKeyWithParams(cachePrefix+":best", code, day.Format("2006-01-02"))
	var cached models.BestOfDay
	if q.tryGet(ctx, key, &cached) {
		return cached, nil
	}
	out, err := q.engine.BestOfDay(ctx, code, day)
	if err != nil {
		return out, err
	}
	q.trySet(ctx, key, out, q.ttl.Daily)
	return out, nil
}

func (q *RateQueries) LatestAcrossBanks(ctx context.Context, code string, fields []models.Field) (models.LatestAcrossBanks, error) {
	key := pkgcache.GenerateKeyWithParams(cachePrefix+":latest_all", code, fieldsKey(fields))
	var cached models.LatestAcrossBanks
	if q.tryGet(ctx, key, &cached) {
		return cached, nil
	}
	out, err := q.engine.LatestAcrossBanks(ctx, code, fields)
	if err != nil {
		return out, err
	}
	q.trySet(ctx, key, out, q.ttl.Latest)
	return out, nil
}

func (q *RateQueries) PairsWithDelta(ctx context.Context, bank string, fields []models.Field) (models.PairsView, error) {
	key := pkgcache.GenerateKeyWithParams(cachePrefix+":pairs", bank, fieldsKey(fields))
	var cached models.PairsView
	if q.tryGet(ctx, key, &cached) {
		return cached, nil
	}
	out, err := q.engine.PairsWithDelta(ctx, bank, fields)
	if err != nil {
		return out, err
	}
	q.trySet(ctx, key, out, q.ttl.Latest)
	return out, nil
}

// Invalidate drops cached views after a write so readers do not see a
// full TTL of staleness.
func (q *RateQueries) Invalidate(ctx context.Context) {
	if q.cache == nil {
		return
	}
	if err := q.cache.DeleteByPattern(ctx, pkgcache.BuildPattern(cachePrefix+":")); err != nil && q.l != nil {
		q.l.Warn("cache invalidate failed", applogger.Error(err))
	}
}

func (q *RateQueries) tryGet(ctx context.Context, key string, dest interface{}) bool {
	if q.cache == nil {
		return false
	}
	err := q.cache.Get(ctx, key, dest)
	if err == nil {
		return true
	}
	if !errors.Is(err, pkgcache.ErrCacheMiss) && q.l != nil {
		q.l.Warn("cache get failed", applogger.String("key", key), applogger.Error(err))
	}
	return false
}

func (q *RateQueries) trySet(ctx context.Context, key string, value interface{}, ttl time.Duration) {
	if q.cache == nil {
		return
	}
	if err := q.cache.Set(ctx, key, value, ttl); err != nil && q.l != nil {
		q.l.Warn("cache set failed", applogger.String("key", key), applogger.Error(err))
	}
}

func fieldsKey(fields []models.Field) string {
	parts := make([]string, len(fields))
	for i, f := range fields {
		parts[i] = string(f)
	}
	return strings.Join(parts, ",")
}
