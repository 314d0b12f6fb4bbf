package usecase

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"RatePull/internal/domain/models"
	"RatePull/internal/repository"
)

// message builds the wire payload the way KafkaPublisher does.
func message(t *testing.T, fields map[string]interface{}) []byte {
	t.Helper()
	b, err := json.Marshal(fields)
	require.NoError(t, err)
	return b
}

func TestHandleRejectsGarbagePriceAfterRoundTrip(t *testing.T) {
	store := repository.NewMemorySnapshotStore()
	ing, m := newTestIngestor(store)
	h := NewKafkaObservationsHandler("rates.observations", ing, m)

	at := time.Date(2026, 3, 10, 9, 0, 0, 0, testLoc)
	b := message(t, map[string]interface{}{
		"at":   at,
		"bank": "acb",
		"code": "USD",
		"sell": models.NumberText("N/A"),
	})

	require.NoError(t, h.Handle(context.Background(), b))

	// garbage must be rejected on consume, not stored as a silent no-quote
	snap, err := store.FindLatest(context.Background(), "acb", "USD")
	require.NoError(t, err)
	assert.Nil(t, snap)
	assert.Equal(t, 1, m.errors["normalize"])
}

func TestHandleNoQuoteSentinelSurvivesRoundTrip(t *testing.T) {
	store := repository.NewMemorySnapshotStore()
	ing, m := newTestIngestor(store)
	h := NewKafkaObservationsHandler("rates.observations", ing, m)

	at := time.Date(2026, 3, 10, 9, 0, 0, 0, testLoc)
	b := message(t, map[string]interface{}{
		"at":       at,
		"bank":     "acb",
		"code":     "USD",
		"buy_cash": models.NumberText("-"),
		"sell":     models.NumberOf(25500),
	})

	require.NoError(t, h.Handle(context.Background(), b))

	snap, err := store.FindLatest(context.Background(), "acb", "USD")
	require.NoError(t, err)
	require.NotNil(t, snap)
	assert.Nil(t, snap.BuyCash)
	require.NotNil(t, snap.Sell)
	assert.Equal(t, 25500.0, *snap.Sell)
}

func TestHandleMissingBatchInstantFallsBackToNow(t *testing.T) {
	store := repository.NewMemorySnapshotStore()
	ing, m := newTestIngestor(store)
	h := NewKafkaObservationsHandler("rates.observations", ing, m)

	b := message(t, map[string]interface{}{
		"bank": "acb",
		"code": "USD",
		"sell": models.NumberOf(25500),
	})

	require.NoError(t, h.Handle(context.Background(), b))

	snap, err := store.FindLatest(context.Background(), "acb", "USD")
	require.NoError(t, err)
	require.NotNil(t, snap)
	assert.False(t, snap.ObservedAt.IsZero())
	assert.WithinDuration(t, time.Now(), snap.ObservedAt, time.Hour)
}
