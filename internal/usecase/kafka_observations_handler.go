package usecase

import (
	"context"
	"encoding/json"
	"time"

	"RatePull/internal/domain/models"
	domrepo "RatePull/internal/domain/repository"
	pkgkafka "RatePull/pkg/kafka"
)

// KafkaObservationsHandler consumes observation messages and writes them
// through the ingestor. Each message carries one observation plus the batch
// instant it was acquired at.
type KafkaObservationsHandler struct {
	topic    string
	ingestor *Ingestor
	metrics  domrepo.Metrics
}

func NewKafkaObservationsHandler(topic string, ingestor *Ingestor, metrics domrepo.Metrics) *KafkaObservationsHandler {
	return &KafkaObservationsHandler{topic: topic, ingestor: ingestor, metrics: metrics}
}

func (h *KafkaObservationsHandler) Topic() string { return h.topic }

// incoming message schema: {at, bank, code, name, buy_cash, buy_transfer, sell, observed_at, source}
func (h *KafkaObservationsHandler) Handle(ctx context.Context, b []byte) error {
	var m struct {
		At time.Time `json:"at"`
		models.RawObservation
	}
	if err := json.Unmarshal(b, &m); err != nil {
		h.metrics.RecordError("consumer_unmarshal")
		return err
	}
	if m.At.IsZero() {
		m.At = time.Now()
	} else {
		h.metrics.RecordLatency("ingest_e2e_seconds", time.Since(m.At).Seconds())
	}

	// Rejected records are logged by the ingestor; the offset still commits.
	if _, err := h.ingestor.IngestAt(ctx, []models.RawObservation{m.RawObservation}, m.At); err != nil {
		h.metrics.RecordError("consumer_ingest")
		return err
	}
	return nil
}

var _ pkgkafka.MessageHandler = (*KafkaObservationsHandler)(nil)
