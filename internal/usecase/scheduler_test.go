package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"RatePull/internal/domain/models"
	"RatePull/internal/repository"
)

type fakeProducer struct {
	mu      sync.Mutex
	items   []models.RawObservation
	err     error
	calls   int
	block   chan struct{}
	started chan struct{}
}

func (p *fakeProducer) Produce(ctx context.Context) ([]models.RawObservation, error) {
	p.mu.Lock()
	p.calls++
	p.mu.Unlock()
	if p.started != nil {
		close(p.started)
		p.started = nil
	}
	if p.block != nil {
		select {
		case <-p.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return p.items, p.err
}

func TestRunNowPersistsProducedObservations(t *testing.T) {
	store := repository.NewMemorySnapshotStore()
	m := newNopMetrics()
	producer := &fakeProducer{items: []models.RawObservation{
		obs("acb", "USD", 25500),
		obs("vcb", "USD", 25480),
	}}
	s := NewScheduler(producer, newPostgresProcessor(store, m), m, nil, testLoc)

	res, err := s.RunNow(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, res.Accepted)
	assert.Equal(t, 2, res.Persisted.Upserted)
	assert.Equal(t, 1, producer.calls)
}

func TestRunNowRejectsOverlappingRuns(t *testing.T) {
	store := repository.NewMemorySnapshotStore()
	m := newNopMetrics()
	producer := &fakeProducer{
		items:   []models.RawObservation{obs("acb", "USD", 25500)},
		block:   make(chan struct{}),
		started: make(chan struct{}),
	}
	s := NewScheduler(producer, newPostgresProcessor(store, m), m, nil, testLoc)

	started := producer.started
	firstDone := make(chan error, 1)
	go func() {
		_, err := s.RunNow(context.Background())
		firstDone <- err
	}()

	<-started
	_, err := s.RunNow(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "in flight")
	assert.Equal(t, 1, m.ticksSkips)

	close(producer.block)
	require.NoError(t, <-firstDone)

	// guard released: a fresh run goes through
	_, err = s.RunNow(context.Background())
	require.NoError(t, err)
}

func TestUntilNextTickAlignsToHour(t *testing.T) {
	s := NewScheduler(&fakeProducer{}, nil, newNopMetrics(), nil, testLoc)

	now := time.Date(2026, 3, 10, 9, 42, 30, 0, testLoc)
	d := s.untilNextTick(now)
	assert.Equal(t, 17*time.Minute+30*time.Second, d)

	// already on the boundary waits a full interval
	onBoundary := time.Date(2026, 3, 10, 10, 0, 0, 0, testLoc)
	assert.Equal(t, time.Hour, s.untilNextTick(onBoundary))
}

func TestSchedulerStartStop(t *testing.T) {
	store := repository.NewMemorySnapshotStore()
	m := newNopMetrics()
	producer := &fakeProducer{items: []models.RawObservation{obs("acb", "USD", 25500)}}
	s := NewScheduler(producer, newPostgresProcessor(store, m), m, nil, testLoc,
		WithInterval(time.Hour), WithRunTimeout(time.Second))

	s.Start(context.Background())
	s.Stop()

	// Stop is idempotent
	s.Stop()
}
