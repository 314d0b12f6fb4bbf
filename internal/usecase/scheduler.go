package usecase

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"RatePull/internal/domain/models"
	domrepo "RatePull/internal/domain/repository"
	mid "RatePull/internal/middleware"
	applogger "RatePull/pkg/logger"
)

// Scheduler fires one acquisition run at the top of every hour in the
// configured timezone. Runs never overlap: a tick arriving while the
// previous run is still in flight is skipped and counted.
type Scheduler struct {
	producer domrepo.Producer
	proc     *ObservationProcessor
	pipe     *mid.IngestBuffer
	metrics  domrepo.Metrics
	l        *applogger.Logger
	loc      *time.Location
	interval time.Duration
	timeout  time.Duration

	inFlight atomic.Bool
	stopCh   chan struct{}
	doneCh   chan struct{}
	started  bool
	mu       sync.Mutex
}

type SchedulerOption func(*Scheduler)

// WithInterval overrides the hourly cadence, mainly for tests.
func WithInterval(d time.Duration) SchedulerOption {
	return func(s *Scheduler) {
		if d > 0 {
			s.interval = d
		}
	}
}

// WithBuffer routes batches through an ingest buffer so a backend outage
// does not lose a scrape run.
func WithBuffer(pipe *mid.IngestBuffer) SchedulerOption {
	return func(s *Scheduler) {
		s.pipe = pipe
	}
}

// WithRunTimeout bounds a single acquisition run.
func WithRunTimeout(d time.Duration) SchedulerOption {
	return func(s *Scheduler) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// NewScheduler creates a new Scheduler instance.
func NewScheduler(
	producer domrepo.Producer,
	proc *ObservationProcessor,
	metrics domrepo.Metrics,
	l *applogger.Logger,
	loc *time.Location,
	opts ...SchedulerOption,
) *Scheduler {
	s := &Scheduler{
		producer: producer,
		proc:     proc,
		metrics:  metrics,
		l:        l,
		loc:      loc,
		interval: time.Hour,
		timeout:  5 * time.Minute,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
	if s.loc == nil {
		s.loc = time.UTC
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start launches the tick loop. The first tick is aligned to the next
// interval boundary in the scheduler's timezone.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return
	}
	s.started = true
	s.mu.Unlock()

	if s.pipe != nil {
		s.pipe.Start(ctx)
	}
	go s.loop(ctx)
}

func (s *Scheduler) loop(ctx context.Context) {
	defer close(s.doneCh)

	timer := time.NewTimer(s.untilNextTick(time.Now()))
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case <-timer.C:
			s.tick(ctx)
			timer.Reset(s.untilNextTick(time.Now()))
		}
	}
}

// untilNextTick returns the wait until the next interval boundary in loc.
func (s *Scheduler) untilNextTick(now time.Time) time.Duration {
	local := now.In(s.loc)
	next := local.Truncate(s.interval).Add(s.interval)
	if s.interval == time.Hour {
		// Truncate works on absolute time; rebuild from wall-clock fields so
		// the boundary stays at minute zero across DST shifts.
		next = time.Date(local.Year(), local.Month(), local.Day(), local.Hour(), 0, 0, 0, s.loc).Add(time.Hour)
	}
	d := next.Sub(now)
	if d <= 0 {
		d = time.Second
	}
	return d
}

func (s *Scheduler) tick(ctx context.Context) {
	if !s.inFlight.CompareAndSwap(false, true) {
		s.metrics.RecordTickSkipped()
		if s.l != nil {
			s.l.Warn("tick skipped, previous run still in flight")
		}
		return
	}
	defer s.inFlight.Store(false)

	if _, err := s.runOnce(ctx); err != nil && s.l != nil {
		s.l.Error("scheduled run failed", applogger.Error(err))
	}
}

// RunNow triggers an immediate acquisition run, used by the admin API.
// It shares the non-overlap guard with the ticker.
func (s *Scheduler) RunNow(ctx context.Context) (models.IngestResult, error) {
	if !s.inFlight.CompareAndSwap(false, true) {
		s.metrics.RecordTickSkipped()
		return models.IngestResult{}, fmt.Errorf("run already in flight")
	}
	defer s.inFlight.Store(false)

	return s.runOnce(ctx)
}

func (s *Scheduler) runOnce(ctx context.Context) (models.IngestResult, error) {
	runCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	items, err := s.producer.Produce(runCtx)
	if err != nil {
		s.metrics.RecordError("acquire")
		return models.IngestResult{}, fmt.Errorf("acquire observations: %w", err)
	}
	s.metrics.RecordLatency("acquire", time.Since(start).Seconds())

	batch := models.ObservationBatch{At: start, Items: items}
	var res models.IngestResult
	if s.pipe != nil {
		res, err = s.pipe.Process(runCtx, batch)
	} else {
		res, err = s.proc.ProcessBatch(runCtx, batch)
	}
	if err != nil {
		return res, err
	}
	if s.l != nil {
		s.l.Info("scheduled run done",
			applogger.Int("collected", len(items)),
			applogger.Int("accepted", res.Accepted),
			applogger.Int("rejected", res.Rejected),
			applogger.Duration("duration_ms", time.Since(start)),
		)
	}
	return res, nil
}

// Stop halts the tick loop and waits for it to exit. An in-flight run is
// allowed to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.started = false
	s.mu.Unlock()
	close(s.stopCh)
	<-s.doneCh
	if s.pipe != nil {
		s.pipe.Stop()
	}
}
