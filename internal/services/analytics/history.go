package analytics

import (
	"context"
	"sort"
	"time"

	"RatePull/internal/domain/models"
)

// History emits one point per civil day inside [from, to]: the day's close
// projected onto the requested fields, ascending by date. The series is
// sparse: a day with no snapshots produces no point.
func (e *Engine) History(ctx context.Context, bank, code string, from, to time.Time, fields []models.Field) ([]models.HistoryPoint, error) {
	if len(fields) == 0 {
		fields = models.AllFields()
	}

	snaps, err := e.store.FindInWindow(ctx, bank, code, from, to)
	if err != nil {
		return nil, err
	}

	// ascending scan: the last write per day key is the day's close
	byDay := make(map[string]*models.Snapshot, len(snaps))
	for i := range snaps {
		byDay[e.civilDate(snaps[i].ObservedAt)] = &snaps[i]
	}

	dates := make([]string, 0, len(byDay))
	for d := range byDay {
		dates = append(dates, d)
	}
	sort.Strings(dates)

	series := make([]models.HistoryPoint, 0, len(dates))
	for _, d := range dates {
		series = append(series, models.HistoryPoint{
			Date:   d,
			Values: models.FieldSetOf(byDay[d], fields),
		})
	}
	return series, nil
}
