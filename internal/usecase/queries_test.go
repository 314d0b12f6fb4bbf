package usecase

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"RatePull/internal/domain/models"
	"RatePull/internal/repository"
	"RatePull/internal/services/analytics"
	pkgcache "RatePull/pkg/cache"
)

// countingStore counts window scans so tests can tell cache hits from
// engine round trips.
type countingStore struct {
	*repository.MemorySnapshotStore
	windowScans atomic.Int64
}

func (s *countingStore) FindInWindow(ctx context.Context, bank, code string, from, to time.Time) ([]models.Snapshot, error) {
	s.windowScans.Add(1)
	return s.MemorySnapshotStore.FindInWindow(ctx, bank, code, from, to)
}

func TestDailyOHLCCacheAside(t *testing.T) {
	store := &countingStore{MemorySnapshotStore: repository.NewMemorySnapshotStore()}
	day := time.Date(2026, 3, 10, 0, 0, 0, 0, testLoc)
	_, err := store.BulkUpsert(context.Background(), []models.Snapshot{
		{Bank: "acb", Code: "USD", ObservedAt: day.Add(9 * time.Hour), Sell: ptrOf(25500)},
		{Bank: "acb", Code: "USD", ObservedAt: day.Add(15 * time.Hour), Sell: ptrOf(25430)},
	})
	require.NoError(t, err)

	engine := analytics.New(store, testLoc)
	q := NewRateQueries(engine, pkgcache.NewMemoryCache(), CacheTTLs{}, nil)

	first, err := q.DailyOHLC(context.Background(), "acb", "USD", day, models.FieldSell)
	require.NoError(t, err)
	require.NotNil(t, first.Close)
	assert.Equal(t, 25430.0, *first.Close)
	scansAfterFirst := store.windowScans.Load()

	second, err := q.DailyOHLC(context.Background(), "acb", "USD", day, models.FieldSell)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, scansAfterFirst, store.windowScans.Load(), "second read is served from cache")

	// a different field is a different key
	_, err = q.DailyOHLC(context.Background(), "acb", "USD", day, models.FieldBuyCash)
	require.NoError(t, err)
	assert.Greater(t, store.windowScans.Load(), scansAfterFirst)
}

func TestInvalidateDropsCachedViews(t *testing.T) {
	store := &countingStore{MemorySnapshotStore: repository.NewMemorySnapshotStore()}
	day := time.Date(2026, 3, 10, 0, 0, 0, 0, testLoc)
	_, err := store.BulkUpsert(context.Background(), []models.Snapshot{
		{Bank: "acb", Code: "USD", ObservedAt: day.Add(9 * time.Hour), Sell: ptrOf(25500)},
	})
	require.NoError(t, err)

	engine := analytics.New(store, testLoc)
	q := NewRateQueries(engine, pkgcache.NewMemoryCache(), CacheTTLs{}, nil)

	_, err = q.DailyOHLC(context.Background(), "acb", "USD", day, models.FieldSell)
	require.NoError(t, err)
	scans := store.windowScans.Load()

	q.Invalidate(context.Background())

	_, err = q.DailyOHLC(context.Background(), "acb", "USD", day, models.FieldSell)
	require.NoError(t, err)
	assert.Greater(t, store.windowScans.Load(), scans, "invalidation forces a fresh read")
}

func TestQueriesWorkWithoutCache(t *testing.T) {
	store := repository.NewMemorySnapshotStore()
	at := time.Date(2026, 3, 10, 9, 0, 0, 0, testLoc)
	_, err := store.BulkUpsert(context.Background(), []models.Snapshot{
		{Bank: "acb", Code: "USD", ObservedAt: at, Sell: ptrOf(25500)},
	})
	require.NoError(t, err)

	q := NewRateQueries(analytics.New(store, testLoc), nil, CacheTTLs{}, nil)

	snap, err := q.Latest(context.Background(), "acb", "USD")
	require.NoError(t, err)
	assert.Equal(t, "acb", snap.Bank)

	view, err := q.LatestAcrossBanks(context.Background(), "USD", nil)
	require.NoError(t, err)
	assert.Len(t, view.Banks, 1)
}

func ptrOf(v float64) *float64 { return &v }
