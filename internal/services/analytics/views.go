package analytics

import (
	"context"
	"time"

	"RatePull/internal/domain/models"
)

// LatestAcrossBanks fans one code out to the newest snapshot per bank.
// AsOf is the maximum observed_at across the returned set.
func (e *Engine) LatestAcrossBanks(ctx context.Context, code string, fields []models.Field) (models.LatestAcrossBanks, error) {
	out := models.LatestAcrossBanks{Code: code}
	if len(fields) == 0 {
		fields = models.AllFields()
	}

	snaps, err := e.store.LatestPerBank(ctx, code)
	if err != nil {
		return out, err
	}

	out.Banks = make([]models.BankLatest, 0, len(snaps))
	for i := range snaps {
		s := &snaps[i]
		out.Banks = append(out.Banks, models.BankLatest{
			Bank:       s.Bank,
			ObservedAt: s.ObservedAt,
			Name:       s.Name,
			Source:     s.Source,
			Values:     models.FieldSetOf(s, fields),
		})
		if out.AsOf == nil || s.ObservedAt.After(*out.AsOf) {
			at := s.ObservedAt
			out.AsOf = &at
		}
	}
	return out, nil
}

// PairsWithDelta returns the newest snapshot per code for one bank, each
// compared against the nearest snapshot at or before observed_at - 24h.
func (e *Engine) PairsWithDelta(ctx context.Context, bank string, fields []models.Field) (models.PairsView, error) {
	out := models.PairsView{Bank: bank}
	if len(fields) == 0 {
		fields = models.AllFields()
	}

	snaps, err := e.store.LatestPerCode(ctx, bank)
	if err != nil {
		return out, err
	}

	out.Items = make([]models.PairView, 0, len(snaps))
	for i := range snaps {
		s := &snaps[i]
		cutoff := s.ObservedAt.Add(-24 * time.Hour)
		prev, err := e.store.FindLatestAtOrBefore(ctx, bank, s.Code, cutoff)
		if err != nil {
			return out, err
		}

		deltas := make(map[models.Field]models.Delta, len(fields))
		for _, f := range fields {
			var prevVal *float64
			if prev != nil {
				prevVal = prev.Value(f)
			}
			change, pct := delta(s.Value(f), prevVal)
			deltas[f] = models.Delta{
				PrevValue: prevVal,
				Change:    change,
				Pct:       pct,
				Trend:     trendOf(change),
			}
		}

		out.Items = append(out.Items, models.PairView{
			Code:       s.Code,
			Name:       s.Name,
			ObservedAt: s.ObservedAt,
			Source:     s.Source,
			Values:     models.FieldSetOf(s, fields),
			Deltas:     deltas,
		})
		if out.AsOf == nil || s.ObservedAt.After(*out.AsOf) {
			at := s.ObservedAt
			out.AsOf = &at
		}
	}
	return out, nil
}
