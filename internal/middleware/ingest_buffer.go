package middleware

import (
	"context"
	"fmt"
	"sync"
	"time"

	"RatePull/internal/domain/models"
	domrepo "RatePull/internal/domain/repository"
)

// BatchProc is the minimal processor interface the buffer needs.
type BatchProc interface {
	ProcessBatch(ctx context.Context, batch models.ObservationBatch) (models.IngestResult, error)
}

// IngestBuffer sits between acquisition and the backend. When the backend
// is unavailable it parks whole batches and replays them in the background,
// so a scrape run is not lost to a transient outage. Batches keep their
// original acquisition instant, which keeps them in the right hour bucket.
type IngestBuffer struct {
	proc    BatchProc
	metrics domrepo.Metrics
	bufSize int
	bufCh   chan models.ObservationBatch
	stopCh  chan struct{}
	started bool
	mu      sync.Mutex
}

type BufferOption func(*IngestBuffer)

// WithBufferSize sets how many batches can wait for replay.
func WithBufferSize(n int) BufferOption {
	return func(b *IngestBuffer) {
		if n > 0 {
			b.bufSize = n
		}
	}
}

// NewIngestBuffer creates a new buffer in front of proc.
func NewIngestBuffer(proc BatchProc, metrics domrepo.Metrics, opts ...BufferOption) *IngestBuffer {
	b := &IngestBuffer{
		proc:    proc,
		metrics: metrics,
		bufSize: 64,
		stopCh:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.bufCh = make(chan models.ObservationBatch, b.bufSize)
	return b
}

// Start launches background replay of parked batches.
func (b *IngestBuffer) Start(ctx context.Context) {
	b.mu.Lock()
	if b.started {
		b.mu.Unlock()
		return
	}
	b.started = true
	b.mu.Unlock()

	go func() {
		backoff := 50 * time.Millisecond
		for {
			select {
			case <-b.stopCh:
				return
			case batch := <-b.bufCh:
				if len(batch.Items) == 0 {
					continue
				}
				if _, err := b.proc.ProcessBatch(ctx, batch); err != nil {
					if backoff < 2*time.Second {
						backoff *= 2
					}
					b.metrics.RecordError("buffer_flush")
					time.Sleep(backoff)
					// requeue if space; drop otherwise
					select {
					case b.bufCh <- batch:
					default:
						b.metrics.RecordError("buffer_drop")
					}
				} else {
					backoff = 50 * time.Millisecond
				}
			}
		}
	}()
}

// Stop stops the background replay.
func (b *IngestBuffer) Stop() {
	b.mu.Lock()
	if !b.started {
		b.mu.Unlock()
		return
	}
	b.started = false
	b.mu.Unlock()
	close(b.stopCh)
}

// Process forwards a batch downstream, parking it on failure.
func (b *IngestBuffer) Process(ctx context.Context, batch models.ObservationBatch) (models.IngestResult, error) {
	if len(batch.Items) == 0 {
		return models.IngestResult{}, nil
	}

	res, err := b.proc.ProcessBatch(ctx, batch)
	if err != nil {
		b.metrics.RecordError("buffer_park")
		select {
		case b.bufCh <- batch:
			b.metrics.RecordLatency("buffer_depth", float64(len(b.bufCh)))
		default:
			b.metrics.RecordError("buffer_full")
		}
		return res, fmt.Errorf("buffer downstream: %w", err)
	}
	return res, nil
}

// Depth reports how many batches are waiting for replay.
func (b *IngestBuffer) Depth() int { return len(b.bufCh) }
