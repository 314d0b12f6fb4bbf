package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"RatePull/internal/domain/models"
)

func ptr(v float64) *float64 { return &v }

func memSnap(bank, code string, at time.Time, sell *float64) models.Snapshot {
	return models.Snapshot{Bank: bank, Code: code, ObservedAt: at, Sell: sell}
}

func TestMemoryBulkUpsertCounts(t *testing.T) {
	s := NewMemorySnapshotStore()
	at := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	res, err := s.BulkUpsert(context.Background(), []models.Snapshot{
		memSnap("acb", "USD", at, ptr(25500)),
		memSnap("vcb", "USD", at, ptr(25480)),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Upserted)
	assert.Equal(t, 0, res.Updated)

	res, err = s.BulkUpsert(context.Background(), []models.Snapshot{
		memSnap("acb", "USD", at, ptr(25510)),
		memSnap("acb", "USD", at.Add(time.Hour), ptr(25520)),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Upserted)
	assert.Equal(t, 1, res.Updated)
	assert.Equal(t, 1, res.Matched)

	snap, err := s.FindLatest(context.Background(), "acb", "USD")
	require.NoError(t, err)
	require.NotNil(t, snap)
	assert.Equal(t, 25520.0, *snap.Sell)
}

func TestMemoryFindInWindowAscending(t *testing.T) {
	s := NewMemorySnapshotStore()
	at := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	_, err := s.BulkUpsert(context.Background(), []models.Snapshot{
		memSnap("acb", "USD", at.Add(2*time.Hour), ptr(3)),
		memSnap("acb", "USD", at, ptr(1)),
		memSnap("acb", "USD", at.Add(time.Hour), ptr(2)),
		memSnap("acb", "EUR", at, ptr(9)),
		memSnap("acb", "USD", at.Add(72*time.Hour), ptr(9)),
	})
	require.NoError(t, err)

	rows, err := s.FindInWindow(context.Background(), "acb", "USD", at, at.Add(3*time.Hour))
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, 1.0, *rows[0].Sell)
	assert.Equal(t, 2.0, *rows[1].Sell)
	assert.Equal(t, 3.0, *rows[2].Sell)
}

func TestMemoryAggregateMinMaxIgnoresNulls(t *testing.T) {
	s := NewMemorySnapshotStore()
	at := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	_, err := s.BulkUpsert(context.Background(), []models.Snapshot{
		memSnap("acb", "USD", at, ptr(25500)),
		memSnap("acb", "USD", at.Add(time.Hour), nil),
		memSnap("acb", "USD", at.Add(2*time.Hour), ptr(25430)),
	})
	require.NoError(t, err)

	min, max, err := s.AggregateMinMax(context.Background(), "acb", "USD", at, at.Add(3*time.Hour), models.FieldSell)
	require.NoError(t, err)
	require.NotNil(t, min)
	require.NotNil(t, max)
	assert.Equal(t, 25430.0, *min)
	assert.Equal(t, 25500.0, *max)

	min, max, err = s.AggregateMinMax(context.Background(), "acb", "USD", at, at.Add(3*time.Hour), models.FieldBuyCash)
	require.NoError(t, err)
	assert.Nil(t, min)
	assert.Nil(t, max)
}

func TestMemoryLatestPerGroup(t *testing.T) {
	s := NewMemorySnapshotStore()
	at := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	_, err := s.BulkUpsert(context.Background(), []models.Snapshot{
		memSnap("acb", "USD", at, ptr(1)),
		memSnap("acb", "USD", at.Add(time.Hour), ptr(2)),
		memSnap("vcb", "USD", at, ptr(3)),
		memSnap("acb", "EUR", at.Add(2*time.Hour), ptr(4)),
	})
	require.NoError(t, err)

	perBank, err := s.LatestPerBank(context.Background(), "USD")
	require.NoError(t, err)
	require.Len(t, perBank, 2)
	for _, row := range perBank {
		if row.Bank == "acb" {
			assert.Equal(t, 2.0, *row.Sell)
		}
	}

	perCode, err := s.LatestPerCode(context.Background(), "acb")
	require.NoError(t, err)
	require.Len(t, perCode, 2)
}
