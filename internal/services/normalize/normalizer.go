package normalize

import (
	"strings"
	"time"

	"RatePull/internal/domain/models"
	"RatePull/pkg/util"
)

// Normalizer validates and canonicalizes raw observations. It owns hour
// bucketing: no other component may write an un-bucketed timestamp. The
// civil time zone is injected once at construction, never read from the
// environment inside business logic.
type Normalizer struct {
	loc *time.Location
}

func New(loc *time.Location) *Normalizer {
	if loc == nil {
		loc = time.UTC
	}
	return &Normalizer{loc: loc}
}

// Location returns the configured civil time zone.
func (n *Normalizer) Location() *time.Location { return n.loc }

// BucketHour truncates t to the start of its containing hour in the
// configured zone.
func (n *Normalizer) BucketHour(t time.Time) time.Time {
	t = t.In(n.loc)
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), 0, 0, 0, n.loc)
}

// Normalize canonicalizes one raw observation against the batch instant.
// An explicit observation time on the record wins over batchAt; either way
// the stored timestamp is bucketed. All-null price tuples are rejected.
func (n *Normalizer) Normalize(raw models.RawObservation, batchAt time.Time) (models.Snapshot, error) {
	bank := strings.ToLower(strings.TrimSpace(raw.Bank))
	if bank == "" {
		return models.Snapshot{}, models.Validationf("bank", "bank is required")
	}
	code := strings.ToUpper(strings.TrimSpace(raw.Code))
	if code == "" {
		return models.Snapshot{}, models.Validationf("code", "code is required")
	}

	var name *string
	if s := strings.TrimSpace(raw.Name); s != "" {
		name = &s
	}

	buyCash, err := raw.BuyCash.Float()
	if err != nil {
		return models.Snapshot{}, models.Validationf("buy_cash", "%v", err)
	}
	buyTransfer, err := raw.BuyTransfer.Float()
	if err != nil {
		return models.Snapshot{}, models.Validationf("buy_transfer", "%v", err)
	}
	sell, err := raw.Sell.Float()
	if err != nil {
		return models.Snapshot{}, models.Validationf("sell", "%v", err)
	}
	if buyCash == nil && buyTransfer == nil && sell == nil {
		return models.Snapshot{}, models.Validationf("", "no quoted prices")
	}

	observedAt := batchAt
	if raw.ObservedAt != "" {
		t, ok := util.ParseTimeIn(raw.ObservedAt, n.loc)
		if !ok {
			return models.Snapshot{}, models.Validationf("observed_at", "invalid timestamp %q", raw.ObservedAt)
		}
		observedAt = t
	}

	return models.Snapshot{
		Bank:        bank,
		Code:        code,
		Name:        name,
		BuyCash:     buyCash,
		BuyTransfer: buyTransfer,
		Sell:        sell,
		ObservedAt:  n.BucketHour(observedAt),
		Source:      strings.TrimSpace(raw.Source),
	}, nil
}
