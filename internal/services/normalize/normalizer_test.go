package normalize

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"RatePull/internal/domain/models"
)

var bangkok = time.FixedZone("Asia/Bangkok", 7*3600)

func TestNormalizeCanonicalizesKey(t *testing.T) {
	n := New(bangkok)
	at := time.Date(2025, 9, 16, 10, 42, 13, 0, bangkok)

	snap, err := n.Normalize(models.RawObservation{
		Bank: "  Vietcombank ",
		Code: " usd",
		Name: " ĐÔ LA MỸ ",
		Sell: models.NumberOf(26457),
	}, at)
	require.NoError(t, err)

	assert.Equal(t, "vietcombank", snap.Bank)
	assert.Equal(t, "USD", snap.Code)
	require.NotNil(t, snap.Name)
	assert.Equal(t, "ĐÔ LA MỸ", *snap.Name)
	require.NotNil(t, snap.Sell)
	assert.Equal(t, 26457.0, *snap.Sell)
	assert.Nil(t, snap.BuyCash)
}

func TestNormalizeBucketsToHourStart(t *testing.T) {
	n := New(bangkok)
	hour := time.Date(2025, 9, 16, 10, 0, 0, 0, bangkok)

	cases := map[string]time.Time{
		"on the hour":      hour,
		"one ms after":     hour.Add(time.Millisecond),
		"one ms before 11": hour.Add(time.Hour - time.Millisecond),
	}
	for name, at := range cases {
		t.Run(name, func(t *testing.T) {
			snap, err := n.Normalize(models.RawObservation{
				Bank: "acb", Code: "USD", Sell: models.NumberOf(1),
			}, at)
			require.NoError(t, err)
			assert.True(t, snap.ObservedAt.Equal(hour), "got %v", snap.ObservedAt)
		})
	}
}

func TestNormalizeBucketsInConfiguredZone(t *testing.T) {
	n := New(bangkok)
	// 17:30 UTC is 00:30 next day in Bangkok; the bucket must be the
	// Bangkok hour, not the UTC one.
	at := time.Date(2025, 9, 16, 17, 30, 0, 0, time.UTC)

	snap, err := n.Normalize(models.RawObservation{
		Bank: "acb", Code: "USD", Sell: models.NumberOf(1),
	}, at)
	require.NoError(t, err)

	want := time.Date(2025, 9, 17, 0, 0, 0, 0, bangkok)
	assert.True(t, snap.ObservedAt.Equal(want), "got %v", snap.ObservedAt)
}

func TestNormalizeExplicitTimestampWins(t *testing.T) {
	n := New(bangkok)
	batchAt := time.Date(2025, 9, 16, 10, 0, 0, 0, bangkok)

	snap, err := n.Normalize(models.RawObservation{
		Bank: "bidv", Code: "EUR", Sell: models.NumberOf(30000),
		ObservedAt: "2025-09-15T08:15:00+07:00",
	}, batchAt)
	require.NoError(t, err)

	want := time.Date(2025, 9, 15, 8, 0, 0, 0, bangkok)
	assert.True(t, snap.ObservedAt.Equal(want), "got %v", snap.ObservedAt)
}

func TestNormalizeCivilTimestampReadInConfiguredZone(t *testing.T) {
	n := New(bangkok)
	batchAt := time.Date(2025, 9, 16, 10, 0, 0, 0, bangkok)

	snap, err := n.Normalize(models.RawObservation{
		Bank: "bidv", Code: "EUR", Sell: models.NumberOf(30000),
		ObservedAt: "2025-09-15 08:15",
	}, batchAt)
	require.NoError(t, err)

	// 08:15 is Bangkok civil time, not UTC
	want := time.Date(2025, 9, 15, 8, 0, 0, 0, bangkok)
	assert.True(t, snap.ObservedAt.Equal(want), "got %v", snap.ObservedAt)
}

func TestNormalizeInvalidTimestamp(t *testing.T) {
	n := New(bangkok)
	_, err := n.Normalize(models.RawObservation{
		Bank: "bidv", Code: "EUR", Sell: models.NumberOf(1),
		ObservedAt: "yesterday-ish",
	}, time.Now())
	require.Error(t, err)
	assert.True(t, models.IsValidation(err))
}

func TestNormalizeNoQuoteSentinels(t *testing.T) {
	n := New(bangkok)
	raw := models.RawObservation{Bank: "hsbc", Code: "JPY"}
	require.NoError(t, jsonUnmarshal(`{"buy_cash":"-","buy_transfer":null,"sell":158.3}`, &raw))

	snap, err := n.Normalize(raw, time.Now())
	require.NoError(t, err)
	assert.Nil(t, snap.BuyCash)
	assert.Nil(t, snap.BuyTransfer)
	require.NotNil(t, snap.Sell)
	assert.Equal(t, 158.3, *snap.Sell)
}

func TestNormalizeZeroIsARealValue(t *testing.T) {
	n := New(bangkok)
	snap, err := n.Normalize(models.RawObservation{
		Bank: "scb", Code: "LAK", Sell: models.NumberOf(0),
	}, time.Now())
	require.NoError(t, err)
	require.NotNil(t, snap.Sell)
	assert.Equal(t, 0.0, *snap.Sell)
}

func TestNormalizeRejections(t *testing.T) {
	n := New(bangkok)
	now := time.Now()

	cases := []struct {
		name string
		raw  models.RawObservation
	}{
		{"missing bank", models.RawObservation{Code: "USD", Sell: models.NumberOf(1)}},
		{"missing code", models.RawObservation{Bank: "acb", Sell: models.NumberOf(1)}},
		{"blank bank", models.RawObservation{Bank: "   ", Code: "USD", Sell: models.NumberOf(1)}},
		{"all prices null", models.RawObservation{Bank: "acb", Code: "USD"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := n.Normalize(tc.raw, now)
			require.Error(t, err)
			assert.True(t, models.IsValidation(err))
		})
	}
}

func TestNormalizeNonNumericPrice(t *testing.T) {
	n := New(bangkok)
	raw := models.RawObservation{}
	require.NoError(t, jsonUnmarshal(`{"bank":"acb","code":"USD","sell":"n/a"}`, &raw))

	_, err := n.Normalize(raw, time.Now())
	require.Error(t, err)
	assert.True(t, models.IsValidation(err))
}
