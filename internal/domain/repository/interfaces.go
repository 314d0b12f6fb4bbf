package repository

import (
	"context"
	"time"

	"RatePull/internal/domain/models"
)

// SnapshotStore is durable keyed storage of rate snapshots. Each record's
// upsert is an atomic conditional write on (bank, code, observed_at); the
// batch as a whole is not transactional.
type SnapshotStore interface {
	Init(ctx context.Context) error // ensure tables, health checks
	BulkUpsert(ctx context.Context, snaps []models.Snapshot) (models.UpsertResult, error)
	FindLatest(ctx context.Context, bank, code string) (*models.Snapshot, error)
	FindInWindow(ctx context.Context, bank, code string, from, to time.Time) ([]models.Snapshot, error)
	FindAllInWindow(ctx context.Context, code string, from, to time.Time) ([]models.Snapshot, error)
	AggregateMinMax(ctx context.Context, bank, code string, from, to time.Time, field models.Field) (min, max *float64, err error)
	LatestPerBank(ctx context.Context, code string) ([]models.Snapshot, error)
	LatestPerCode(ctx context.Context, bank string) ([]models.Snapshot, error)
	FindLatestAtOrBefore(ctx context.Context, bank, code string, cutoff time.Time) (*models.Snapshot, error)
	FindLatestWithValue(ctx context.Context, bank, code string, from, to time.Time, field models.Field, value float64) (*models.Snapshot, error)
	Health(ctx context.Context) error // ping
	Close() error
}

// Producer yields one unordered batch of raw observations per run. The
// core never sees how they were acquired.
type Producer interface {
	Produce(ctx context.Context) ([]models.RawObservation, error)
}

// ObservationPublisher hands a captured batch to the transport backend.
type ObservationPublisher interface {
	PublishBatch(ctx context.Context, batch models.ObservationBatch) error
	Close() error
}

type Metrics interface {
	RecordPersisted(backend, bank string)
	RecordIngest(accepted, rejected int)
	RecordError(kind string)
	RecordLastRate(bank, code, field string, value float64)
	RecordLatency(op string, seconds float64)
	RecordTickSkipped()
}
