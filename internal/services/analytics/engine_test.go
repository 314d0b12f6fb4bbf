package analytics

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"RatePull/internal/domain/models"
	"RatePull/internal/repository"
)

var bangkok = mustLoad("Asia/Bangkok")

func mustLoad(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		panic(err)
	}
	return loc
}

func f64(v float64) *float64 { return &v }

func snap(bank, code string, at time.Time, buyCash, buyTransfer, sell *float64) models.Snapshot {
	return models.Snapshot{
		Bank:        bank,
		Code:        code,
		BuyCash:     buyCash,
		BuyTransfer: buyTransfer,
		Sell:        sell,
		ObservedAt:  at,
	}
}

func seed(t *testing.T, store *repository.MemorySnapshotStore, snaps ...models.Snapshot) {
	t.Helper()
	_, err := store.BulkUpsert(context.Background(), snaps)
	require.NoError(t, err)
}

func TestDailyOHLC(t *testing.T) {
	store := repository.NewMemorySnapshotStore()
	e := New(store, bangkok)
	day := time.Date(2026, 3, 10, 0, 0, 0, 0, bangkok)

	seed(t, store,
		snap("acb", "USD", day.Add(8*time.Hour), nil, nil, f64(100)),
		snap("acb", "USD", day.Add(11*time.Hour), nil, nil, f64(105)),
		snap("acb", "USD", day.Add(14*time.Hour), nil, nil, f64(98)),
		snap("acb", "USD", day.Add(17*time.Hour), nil, nil, f64(102)),
		// next day, must not leak into the window
		snap("acb", "USD", day.Add(25*time.Hour), nil, nil, f64(50)),
	)

	ohlc, err := e.DailyOHLC(context.Background(), "acb", "USD", day, models.FieldSell)
	require.NoError(t, err)
	assert.Equal(t, "2026-03-10", ohlc.Date)
	require.NotNil(t, ohlc.Open)
	assert.Equal(t, 100.0, *ohlc.Open)
	assert.Equal(t, 105.0, *ohlc.High)
	assert.Equal(t, 98.0, *ohlc.Low)
	assert.Equal(t, 102.0, *ohlc.Close)
}

func TestDailyOHLCEmptyDay(t *testing.T) {
	store := repository.NewMemorySnapshotStore()
	e := New(store, bangkok)
	day := time.Date(2026, 3, 10, 0, 0, 0, 0, bangkok)

	ohlc, err := e.DailyOHLC(context.Background(), "acb", "USD", day, models.FieldSell)
	require.NoError(t, err)
	assert.Nil(t, ohlc.Open)
	assert.Nil(t, ohlc.High)
	assert.Nil(t, ohlc.Low)
	assert.Nil(t, ohlc.Close)
}

func TestDailyOHLCNullsIgnoredInExtremes(t *testing.T) {
	store := repository.NewMemorySnapshotStore()
	e := New(store, bangkok)
	day := time.Date(2026, 3, 10, 0, 0, 0, 0, bangkok)

	seed(t, store,
		snap("acb", "USD", day.Add(8*time.Hour), nil, nil, nil),
		snap("acb", "USD", day.Add(11*time.Hour), nil, nil, f64(105)),
	)

	ohlc, err := e.DailyOHLC(context.Background(), "acb", "USD", day, models.FieldSell)
	require.NoError(t, err)
	assert.Nil(t, ohlc.Open, "open is first snapshot's value even when null")
	require.NotNil(t, ohlc.High)
	assert.Equal(t, 105.0, *ohlc.High)
	assert.Equal(t, 105.0, *ohlc.Low)
	require.NotNil(t, ohlc.Close)
	assert.Equal(t, 105.0, *ohlc.Close)
}

func TestLatestWithComparison(t *testing.T) {
	store := repository.NewMemorySnapshotStore()
	now := time.Date(2026, 3, 11, 10, 30, 0, 0, bangkok)
	e := New(store, bangkok).WithClock(func() time.Time { return now })
	yesterday := time.Date(2026, 3, 10, 0, 0, 0, 0, bangkok)

	seed(t, store,
		snap("acb", "USD", yesterday.Add(9*time.Hour), nil, nil, f64(25900)),
		snap("acb", "USD", yesterday.Add(17*time.Hour), nil, nil, f64(25960)),
		snap("acb", "USD", now.Truncate(time.Hour), nil, nil, f64(26060)),
	)

	cmp, err := e.LatestWithComparison(context.Background(), "acb", "USD", models.FieldSell)
	require.NoError(t, err)
	require.NotNil(t, cmp.Value)
	assert.Equal(t, 26060.0, *cmp.Value)
	require.NotNil(t, cmp.YesterdayClose.Value)
	assert.Equal(t, 25960.0, *cmp.YesterdayClose.Value, "close is the day's last snapshot")
	require.NotNil(t, cmp.Change)
	assert.InDelta(t, 100.0, *cmp.Change, 1e-9)
	require.NotNil(t, cmp.Pct)
	assert.InDelta(t, 100.0/25960.0, *cmp.Pct, 1e-12)
}

func TestLatestWithComparisonNullPropagation(t *testing.T) {
	store := repository.NewMemorySnapshotStore()
	now := time.Date(2026, 3, 11, 10, 30, 0, 0, bangkok)
	e := New(store, bangkok).WithClock(func() time.Time { return now })

	// no yesterday data at all
	seed(t, store, snap("acb", "USD", now.Truncate(time.Hour), nil, nil, f64(26060)))

	cmp, err := e.LatestWithComparison(context.Background(), "acb", "USD", models.FieldSell)
	require.NoError(t, err)
	assert.Nil(t, cmp.YesterdayClose.Value)
	assert.Nil(t, cmp.Change)
	assert.Nil(t, cmp.Pct)
}

func TestLatestWithComparisonNoData(t *testing.T) {
	store := repository.NewMemorySnapshotStore()
	e := New(store, bangkok)

	_, err := e.LatestWithComparison(context.Background(), "acb", "USD", models.FieldSell)
	assert.ErrorIs(t, err, models.ErrNoData)
}

func TestHistorySparseDays(t *testing.T) {
	store := repository.NewMemorySnapshotStore()
	e := New(store, bangkok)
	d1 := time.Date(2026, 3, 1, 0, 0, 0, 0, bangkok)
	d3 := time.Date(2026, 3, 3, 0, 0, 0, 0, bangkok)

	seed(t, store,
		snap("acb", "USD", d1.Add(9*time.Hour), f64(25000), nil, f64(25400)),
		snap("acb", "USD", d1.Add(16*time.Hour), f64(25050), nil, f64(25450)),
		// day 2 has no observations at all
		snap("acb", "USD", d3.Add(10*time.Hour), nil, f64(25120), f64(25500)),
	)

	points, err := e.History(context.Background(), "acb", "USD",
		d1, d3.Add(24*time.Hour-time.Millisecond), models.AllFields())
	require.NoError(t, err)
	require.Len(t, points, 2, "absent days produce no points")

	assert.Equal(t, "2026-03-01", points[0].Date)
	require.NotNil(t, points[0].Values[models.FieldSell])
	assert.Equal(t, 25450.0, *points[0].Values[models.FieldSell], "last snapshot of the day wins")
	require.NotNil(t, points[0].Values[models.FieldBuyCash])
	assert.Equal(t, 25050.0, *points[0].Values[models.FieldBuyCash])
	assert.Nil(t, points[0].Values[models.FieldBuyTransfer])

	assert.Equal(t, "2026-03-03", points[1].Date)
	assert.Nil(t, points[1].Values[models.FieldBuyCash])
	require.NotNil(t, points[1].Values[models.FieldBuyTransfer])
	assert.Equal(t, 25120.0, *points[1].Values[models.FieldBuyTransfer])
}

func TestBestOfDay(t *testing.T) {
	store := repository.NewMemorySnapshotStore()
	e := New(store, bangkok)
	day := time.Date(2026, 3, 10, 0, 0, 0, 0, bangkok)

	seed(t, store,
		snap("vcb", "USD", day.Add(9*time.Hour), f64(25100), nil, f64(25480)),
		snap("vcb", "USD", day.Add(15*time.Hour), f64(25150), nil, f64(25470)),
		snap("acb", "USD", day.Add(10*time.Hour), f64(25090), f64(25200), f64(25500)),
	)

	best, err := e.BestOfDay(context.Background(), "USD", day)
	require.NoError(t, err)

	require.NotNil(t, best.BestSell)
	assert.Equal(t, "vcb", best.BestSell.Bank)
	assert.Equal(t, 25470.0, best.BestSell.Value)
	require.NotNil(t, best.BestSell.At)
	assert.True(t, best.BestSell.At.Equal(day.Add(15*time.Hour)))

	require.NotNil(t, best.BestBuyCash)
	assert.Equal(t, "vcb", best.BestBuyCash.Bank)
	assert.Equal(t, 25150.0, best.BestBuyCash.Value)

	require.NotNil(t, best.BestBuyTransfer)
	assert.Equal(t, "acb", best.BestBuyTransfer.Bank, "only acb quotes buy_transfer")
}

func TestBestOfDayTieBreaksToSmallestBank(t *testing.T) {
	store := repository.NewMemorySnapshotStore()
	e := New(store, bangkok)
	day := time.Date(2026, 3, 10, 0, 0, 0, 0, bangkok)

	seed(t, store,
		snap("vcb", "USD", day.Add(9*time.Hour), nil, nil, f64(25470)),
		snap("acb", "USD", day.Add(10*time.Hour), nil, nil, f64(25470)),
	)

	best, err := e.BestOfDay(context.Background(), "USD", day)
	require.NoError(t, err)
	require.NotNil(t, best.BestSell)
	assert.Equal(t, "acb", best.BestSell.Bank)
	assert.Nil(t, best.BestBuyCash, "no bank quoted buy_cash")
}

func TestLatestAcrossBanks(t *testing.T) {
	store := repository.NewMemorySnapshotStore()
	e := New(store, bangkok)
	base := time.Date(2026, 3, 10, 9, 0, 0, 0, bangkok)

	seed(t, store,
		snap("acb", "USD", base, nil, nil, f64(25500)),
		snap("acb", "USD", base.Add(2*time.Hour), nil, nil, f64(25510)),
		snap("vcb", "USD", base.Add(time.Hour), nil, nil, f64(25480)),
		snap("acb", "EUR", base.Add(3*time.Hour), nil, nil, f64(27900)),
	)

	view, err := e.LatestAcrossBanks(context.Background(), "USD", models.AllFields())
	require.NoError(t, err)
	require.Len(t, view.Banks, 2)
	require.NotNil(t, view.AsOf)
	assert.True(t, view.AsOf.Equal(base.Add(2*time.Hour)), "as_of is the newest across banks")

	for _, b := range view.Banks {
		if b.Bank == "acb" {
			require.NotNil(t, b.Values[models.FieldSell])
			assert.Equal(t, 25510.0, *b.Values[models.FieldSell])
		}
	}
}

func TestPairsWithDelta(t *testing.T) {
	store := repository.NewMemorySnapshotStore()
	e := New(store, bangkok)
	latestAt := time.Date(2026, 3, 11, 10, 0, 0, 0, bangkok)

	seed(t, store,
		// previous at exactly the 24h cutoff counts
		snap("acb", "USD", latestAt.Add(-24*time.Hour), nil, nil, f64(25960)),
		snap("acb", "USD", latestAt, nil, nil, f64(26060)),
		// EUR has no lookback data
		snap("acb", "EUR", latestAt, nil, nil, f64(27900)),
	)

	view, err := e.PairsWithDelta(context.Background(), "acb", []models.Field{models.FieldSell})
	require.NoError(t, err)
	require.Len(t, view.Items, 2)

	byCode := map[string]models.PairView{}
	for _, item := range view.Items {
		byCode[item.Code] = item
	}

	usd := byCode["USD"].Deltas[models.FieldSell]
	require.NotNil(t, usd.Change)
	assert.InDelta(t, 100.0, *usd.Change, 1e-9)
	require.NotNil(t, usd.Pct)
	assert.InDelta(t, 0.003852, *usd.Pct, 1e-6)
	require.NotNil(t, usd.Trend)
	assert.Equal(t, models.TrendUp, *usd.Trend)

	eur := byCode["EUR"].Deltas[models.FieldSell]
	assert.Nil(t, eur.PrevValue)
	assert.Nil(t, eur.Change)
	assert.Nil(t, eur.Pct)
	assert.Nil(t, eur.Trend)
}

func TestPairsWithDeltaFlatTrend(t *testing.T) {
	store := repository.NewMemorySnapshotStore()
	e := New(store, bangkok)
	latestAt := time.Date(2026, 3, 11, 10, 0, 0, 0, bangkok)

	seed(t, store,
		snap("acb", "USD", latestAt.Add(-25*time.Hour), nil, nil, f64(26060)),
		snap("acb", "USD", latestAt, nil, nil, f64(26060)),
	)

	view, err := e.PairsWithDelta(context.Background(), "acb", []models.Field{models.FieldSell})
	require.NoError(t, err)
	require.Len(t, view.Items, 1)
	d := view.Items[0].Deltas[models.FieldSell]
	require.NotNil(t, d.Trend)
	assert.Equal(t, models.TrendFlat, *d.Trend)
	assert.InDelta(t, 0.0, *d.Change, 1e-9)
}
