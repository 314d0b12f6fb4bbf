package usecase

import (
	"context"
	"fmt"
	"time"

	"RatePull/internal/domain/models"
	domrepo "RatePull/internal/domain/repository"
)

// ObservationProcessor routes observation batches to the configured backend:
// direct Postgres ingest, or Kafka for the consumer to pick up.
type ObservationProcessor struct {
	ingestor *Ingestor
	pub      domrepo.ObservationPublisher
	metrics  domrepo.Metrics
	backend  string
}

// NewObservationProcessor creates a new ObservationProcessor instance.
func NewObservationProcessor(
	ingestor *Ingestor,
	pub domrepo.ObservationPublisher,
	metrics domrepo.Metrics,
	backend string,
) *ObservationProcessor {
	return &ObservationProcessor{
		ingestor: ingestor,
		pub:      pub,
		metrics:  metrics,
		backend:  backend,
	}
}

// ProcessBatch routes one batch to the configured backend. On the Kafka path
// the batch is accepted wholesale; normalization happens in the consumer.
func (p *ObservationProcessor) ProcessBatch(ctx context.Context, batch models.ObservationBatch) (models.IngestResult, error) {
	if len(batch.Items) == 0 {
		return models.IngestResult{}, nil
	}
	if batch.At.IsZero() {
		batch.At = time.Now()
	}

	start := time.Now()
	switch p.backend {
	case "kafka":
		if err := p.pub.PublishBatch(ctx, batch); err != nil {
			p.metrics.RecordError("publish_batch")
			return models.IngestResult{}, fmt.Errorf("publish batch: %w", err)
		}
		for _, obs := range batch.Items {
			p.metrics.RecordPersisted("kafka", obs.Bank)
		}
		p.metrics.RecordLatency("publish_batch", time.Since(start).Seconds())
		return models.IngestResult{Accepted: len(batch.Items)}, nil
	case "postgres":
		res, err := p.ingestor.Ingest(ctx, batch)
		p.metrics.RecordLatency("ingest_batch", time.Since(start).Seconds())
		return res, err
	default:
		p.metrics.RecordError("process_batch")
		return models.IngestResult{}, fmt.Errorf("unknown backend: %s", p.backend)
	}
}

// Close closes underlying resources if available.
func (p *ObservationProcessor) Close() {
	if p.pub != nil {
		_ = p.pub.Close()
	}
}
