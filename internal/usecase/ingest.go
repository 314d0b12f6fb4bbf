package usecase

import (
	"context"
	"time"

	"RatePull/internal/domain/models"
	domrepo "RatePull/internal/domain/repository"
	"RatePull/internal/services/normalize"
	applogger "RatePull/pkg/logger"
)

// Ingestor normalizes raw observation batches and persists the surviving
// snapshots in a single bulk upsert. Records that fail normalization are
// counted and skipped; they never abort the batch.
type Ingestor struct {
	norm    *normalize.Normalizer
	store   domrepo.SnapshotStore
	metrics domrepo.Metrics
	l       *applogger.Logger
}

// NewIngestor creates a new Ingestor instance.
func NewIngestor(norm *normalize.Normalizer, store domrepo.SnapshotStore, metrics domrepo.Metrics, l *applogger.Logger) *Ingestor {
	return &Ingestor{norm: norm, store: store, metrics: metrics, l: l}
}

// Ingest processes a batch at its own instant; a zero batch instant falls
// back to the current time so every record in the run shares one clock read.
func (i *Ingestor) Ingest(ctx context.Context, batch models.ObservationBatch) (models.IngestResult, error) {
	at := batch.At
	if at.IsZero() {
		at = time.Now()
	}
	return i.IngestAt(ctx, batch.Items, at)
}

// IngestAt normalizes every observation against the shared batch instant and
// bulk-upserts the accepted ones.
func (i *Ingestor) IngestAt(ctx context.Context, items []models.RawObservation, at time.Time) (models.IngestResult, error) {
	var res models.IngestResult
	snaps := make([]models.Snapshot, 0, len(items))

	for idx := range items {
		snap, err := i.norm.Normalize(items[idx], at)
		if err != nil {
			res.Rejected++
			i.metrics.RecordError("normalize")
			if i.l != nil {
				i.l.Warn("observation rejected",
					applogger.String("bank", items[idx].Bank),
					applogger.String("code", items[idx].Code),
					applogger.Error(err),
				)
			}
			continue
		}
		snaps = append(snaps, snap)
	}
	res.Accepted = len(snaps)
	i.metrics.RecordIngest(res.Accepted, res.Rejected)

	if len(snaps) == 0 {
		return res, nil
	}

	start := time.Now()
	persisted, err := i.store.BulkUpsert(ctx, snaps)
	res.Persisted = persisted
	i.metrics.RecordLatency("bulk_upsert", time.Since(start).Seconds())
	if err != nil {
		i.metrics.RecordError("persist")
		return res, err
	}

	for idx := range snaps {
		snap := &snaps[idx]
		i.metrics.RecordPersisted("postgres", snap.Bank)
		for _, f := range models.AllFields() {
			if v := snap.Value(f); v != nil {
				i.metrics.RecordLastRate(snap.Bank, snap.Code, string(f), *v)
			}
		}
	}
	if i.l != nil {
		i.l.Info("batch ingested",
			applogger.Int("accepted", res.Accepted),
			applogger.Int("rejected", res.Rejected),
			applogger.Int("upserted", res.Persisted.Upserted),
			applogger.Int("updated", res.Persisted.Updated),
		)
	}
	return res, nil
}
