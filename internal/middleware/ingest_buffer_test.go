package middleware

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"RatePull/internal/domain/models"
)

type flakyProc struct {
	mu        sync.Mutex
	failures  int
	processed []models.ObservationBatch
}

func (p *flakyProc) ProcessBatch(ctx context.Context, batch models.ObservationBatch) (models.IngestResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failures > 0 {
		p.failures--
		return models.IngestResult{}, errors.New("backend down")
	}
	p.processed = append(p.processed, batch)
	return models.IngestResult{Accepted: len(batch.Items)}, nil
}

func (p *flakyProc) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.processed)
}

type bufMetrics struct {
	mu     sync.Mutex
	errors map[string]int
}

func newBufMetrics() *bufMetrics { return &bufMetrics{errors: make(map[string]int)} }

func (m *bufMetrics) RecordPersisted(backend, bank string)                   {}
func (m *bufMetrics) RecordIngest(accepted, rejected int)                    {}
func (m *bufMetrics) RecordLastRate(bank, code, field string, value float64) {}
func (m *bufMetrics) RecordLatency(op string, seconds float64)               {}
func (m *bufMetrics) RecordTickSkipped()                                     {}

func (m *bufMetrics) RecordError(kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors[kind]++
}

func (m *bufMetrics) errCount(kind string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.errors[kind]
}

func testBatch() models.ObservationBatch {
	return models.ObservationBatch{
		At:    time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC),
		Items: []models.RawObservation{{Bank: "acb", Code: "USD", Sell: models.NumberOf(25500)}},
	}
}

func TestProcessPassThrough(t *testing.T) {
	proc := &flakyProc{}
	b := NewIngestBuffer(proc, newBufMetrics())

	res, err := b.Process(context.Background(), testBatch())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Accepted)
	assert.Zero(t, b.Depth())
}

func TestProcessParksOnFailure(t *testing.T) {
	proc := &flakyProc{failures: 1}
	m := newBufMetrics()
	b := NewIngestBuffer(proc, m, WithBufferSize(4))

	_, err := b.Process(context.Background(), testBatch())
	require.Error(t, err)
	assert.Equal(t, 1, b.Depth())
	assert.Equal(t, 1, m.errCount("buffer_park"))
}

func TestReplayRecoversParkedBatch(t *testing.T) {
	proc := &flakyProc{failures: 1}
	b := NewIngestBuffer(proc, newBufMetrics(), WithBufferSize(4))

	batch := testBatch()
	_, err := b.Process(context.Background(), batch)
	require.Error(t, err)

	b.Start(context.Background())
	defer b.Stop()

	require.Eventually(t, func() bool { return proc.count() == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Zero(t, b.Depth())
	proc.mu.Lock()
	replayed := proc.processed[0]
	proc.mu.Unlock()
	assert.True(t, replayed.At.Equal(batch.At), "replay keeps the original acquisition instant")
}

func TestProcessDropsWhenBufferFull(t *testing.T) {
	proc := &flakyProc{failures: 10}
	m := newBufMetrics()
	b := NewIngestBuffer(proc, m, WithBufferSize(1))

	_, err := b.Process(context.Background(), testBatch())
	require.Error(t, err)
	_, err = b.Process(context.Background(), testBatch())
	require.Error(t, err)
	assert.Equal(t, 1, b.Depth())
	assert.Equal(t, 1, m.errCount("buffer_full"))
}

func TestProcessEmptyBatchIsNoop(t *testing.T) {
	proc := &flakyProc{failures: 1}
	b := NewIngestBuffer(proc, newBufMetrics())

	res, err := b.Process(context.Background(), models.ObservationBatch{})
	require.NoError(t, err)
	assert.Zero(t, res.Accepted)
	assert.Zero(t, b.Depth())
}
