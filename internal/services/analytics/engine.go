package analytics

import (
	"context"
	"time"

	"RatePull/internal/domain/models"
	domrepo "RatePull/internal/domain/repository"
)

// Engine derives analytical views from snapshot store reads. It keeps no
// state of its own: every operation is a pure function of query results.
type Engine struct {
	store domrepo.SnapshotStore
	loc   *time.Location
	now   func() time.Time
}

func New(store domrepo.SnapshotStore, loc *time.Location) *Engine {
	if loc == nil {
		loc = time.UTC
	}
	return &Engine{store: store, loc: loc, now: time.Now}
}

// WithClock overrides the engine's clock, for tests.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

// Location returns the engine's civil time zone.
func (e *Engine) Location() *time.Location { return e.loc }

// DayWindow resolves a civil day to its inclusive bounds:
// [00:00:00.000, 23:59:59.999] in the configured zone.
func (e *Engine) DayWindow(day time.Time) (time.Time, time.Time) {
	day = day.In(e.loc)
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, e.loc)
	return start, start.Add(24*time.Hour - time.Millisecond)
}

// civilDate formats the civil date of t in the configured zone.
func (e *Engine) civilDate(t time.Time) string {
	return t.In(e.loc).Format("2006-01-02")
}

// Latest returns the newest snapshot for (bank, code).
func (e *Engine) Latest(ctx context.Context, bank, code string) (*models.Snapshot, error) {
	snap, err := e.store.FindLatest(ctx, bank, code)
	if err != nil {
		return nil, err
	}
	if snap == nil {
		return nil, models.ErrNoData
	}
	return snap, nil
}

// DailyClose returns the snapshot with the maximum observed_at inside the
// civil day, nil when the day is empty.
func (e *Engine) DailyClose(ctx context.Context, bank, code string, day time.Time) (*models.Snapshot, error) {
	from, to := e.DayWindow(day)
	snaps, err := e.store.FindInWindow(ctx, bank, code, from, to)
	if err != nil {
		return nil, err
	}
	if len(snaps) == 0 {
		return nil, nil
	}
	return &snaps[len(snaps)-1], nil
}

// DailyOpen is symmetric to DailyClose: minimum observed_at in the day.
func (e *Engine) DailyOpen(ctx context.Context, bank, code string, day time.Time) (*models.Snapshot, error) {
	from, to := e.DayWindow(day)
	snaps, err := e.store.FindInWindow(ctx, bank, code, from, to)
	if err != nil {
		return nil, err
	}
	if len(snaps) == 0 {
		return nil, nil
	}
	return &snaps[0], nil
}

// DailyOHLC summarizes one field over a civil day. Open/close come from the
// day's first/last snapshots, high/low from the store aggregate over
// non-null values. Empty days yield all-nil values, never fabricated ones.
func (e *Engine) DailyOHLC(ctx context.Context, bank, code string, day time.Time, field models.Field) (models.DailyOHLC, error) {
	from, to := e.DayWindow(day)
	out := models.DailyOHLC{Date: e.civilDate(from), Field: field}

	snaps, err := e.store.FindInWindow(ctx, bank, code, from, to)
	if err != nil {
		return out, err
	}
	if len(snaps) > 0 {
		out.Open = snaps[0].Value(field)
		out.Close = snaps[len(snaps)-1].Value(field)
	}

	low, high, err := e.store.AggregateMinMax(ctx, bank, code, from, to, field)
	if err != nil {
		return out, err
	}
	out.Low = low
	out.High = high
	return out, nil
}

// LatestWithComparison returns the latest value of one field next to the
// previous civil day's close. Pct is nil whenever the close is nil or zero.
func (e *Engine) LatestWithComparison(ctx context.Context, bank, code string, field models.Field) (*models.LatestComparison, error) {
	latest, err := e.Latest(ctx, bank, code)
	if err != nil {
		return nil, err
	}

	yesterday := e.now().In(e.loc).AddDate(0, 0, -1)
	yClose, err := e.DailyClose(ctx, bank, code, yesterday)
	if err != nil {
		return nil, err
	}

	out := &models.LatestComparison{
		Bank:     bank,
		Code:     code,
		Field:    field,
		At:       latest.ObservedAt,
		Value:    latest.Value(field),
		Snapshot: latest,
	}
	if yClose != nil {
		at := yClose.ObservedAt
		out.YesterdayClose = models.RefValue{At: &at, Value: yClose.Value(field)}
	}
	out.Change, out.Pct = delta(out.Value, out.YesterdayClose.Value)
	return out, nil
}

// delta computes (latest-prev, change/prev). Both nil when either side is
// nil; pct nil when prev is zero.
func delta(latest, prev *float64) (*float64, *float64) {
	if latest == nil || prev == nil {
		return nil, nil
	}
	change := *latest - *prev
	if *prev == 0 {
		return &change, nil
	}
	pct := change / *prev
	return &change, &pct
}

// trendOf classifies a change by sign.
func trendOf(change *float64) *string {
	if change == nil {
		return nil
	}
	t := models.TrendFlat
	switch {
	case *change > 0:
		t = models.TrendUp
	case *change < 0:
		t = models.TrendDown
	}
	return &t
}
