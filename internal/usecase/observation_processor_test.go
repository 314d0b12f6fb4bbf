package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"RatePull/internal/domain/models"
	"RatePull/internal/repository"
	"RatePull/internal/services/normalize"
)

type capturingPublisher struct {
	batches []models.ObservationBatch
	err     error
	closed  bool
}

func (p *capturingPublisher) PublishBatch(ctx context.Context, batch models.ObservationBatch) error {
	if p.err != nil {
		return p.err
	}
	p.batches = append(p.batches, batch)
	return nil
}

func (p *capturingPublisher) Close() error {
	p.closed = true
	return nil
}

func TestProcessBatchPostgresPath(t *testing.T) {
	store := repository.NewMemorySnapshotStore()
	ing, _ := newTestIngestor(store)
	proc := NewObservationProcessor(ing, nil, newNopMetrics(), "postgres")

	at := time.Date(2026, 3, 10, 9, 0, 0, 0, testLoc)
	res, err := proc.ProcessBatch(context.Background(), models.ObservationBatch{
		At:    at,
		Items: []models.RawObservation{obs("acb", "USD", 25500)},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Accepted)
	assert.Equal(t, 1, res.Persisted.Upserted)
}

func TestProcessBatchKafkaPath(t *testing.T) {
	pub := &capturingPublisher{}
	proc := NewObservationProcessor(nil, pub, newNopMetrics(), "kafka")

	batch := models.ObservationBatch{
		At: time.Date(2026, 3, 10, 9, 0, 0, 0, testLoc),
		Items: []models.RawObservation{
			obs("acb", "USD", 25500),
			{Bank: "acb", Code: "EUR", Sell: models.NumberText("garbage")},
		},
	}
	res, err := proc.ProcessBatch(context.Background(), batch)
	require.NoError(t, err)
	// no normalization on the publish path: the consumer rejects later
	assert.Equal(t, 2, res.Accepted)
	require.Len(t, pub.batches, 1)
	assert.True(t, pub.batches[0].At.Equal(batch.At))

	proc.Close()
	assert.True(t, pub.closed)
}

func TestProcessBatchPublishError(t *testing.T) {
	pub := &capturingPublisher{err: errors.New("broker down")}
	m := newNopMetrics()
	proc := NewObservationProcessor(nil, pub, m, "kafka")

	_, err := proc.ProcessBatch(context.Background(), models.ObservationBatch{
		Items: []models.RawObservation{obs("acb", "USD", 25500)},
	})
	require.Error(t, err)
	assert.Equal(t, 1, m.errors["publish_batch"])
}

func TestProcessBatchUnknownBackend(t *testing.T) {
	proc := NewObservationProcessor(nil, nil, newNopMetrics(), "sqlite")

	_, err := proc.ProcessBatch(context.Background(), models.ObservationBatch{
		Items: []models.RawObservation{obs("acb", "USD", 25500)},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown backend")
}

func TestProcessBatchEmptyIsNoop(t *testing.T) {
	pub := &capturingPublisher{}
	proc := NewObservationProcessor(nil, pub, newNopMetrics(), "kafka")

	res, err := proc.ProcessBatch(context.Background(), models.ObservationBatch{})
	require.NoError(t, err)
	assert.Zero(t, res.Accepted)
	assert.Empty(t, pub.batches)
}

func newPostgresProcessor(store *repository.MemorySnapshotStore, m *nopMetrics) *ObservationProcessor {
	ing := NewIngestor(normalize.New(testLoc), store, m, nil)
	return NewObservationProcessor(ing, nil, m, "postgres")
}
