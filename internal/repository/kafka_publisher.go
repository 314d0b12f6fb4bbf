package repository

import (
	"context"

	"RatePull/internal/domain/models"
	domrepo "RatePull/internal/domain/repository"
	pkgkafka "RatePull/pkg/kafka"
)

// KafkaPublisher implements ObservationPublisher for Kafka. Batches are
// keyed by bank so each bank's observations stay ordered on one partition.
type KafkaPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

// NewKafkaPublisher creates Kafka publisher.
func NewKafkaPublisher(producer *pkgkafka.Producer, topic string) domrepo.ObservationPublisher {
	return &KafkaPublisher{producer: producer, topic: topic}
}

func (p *KafkaPublisher) PublishBatch(ctx context.Context, batch models.ObservationBatch) error {
	if len(batch.Items) == 0 {
		return nil
	}
	msgs := make([]pkgkafka.Message, len(batch.Items))
	for i, obs := range batch.Items {
		msgs[i] = pkgkafka.Message{
			Key: []byte(obs.Bank),
			Value: map[string]interface{}{
				"at":           batch.At,
				"bank":         obs.Bank,
				"code":         obs.Code,
				"name":         obs.Name,
				"buy_cash":     obs.BuyCash,
				"buy_transfer": obs.BuyTransfer,
				"sell":         obs.Sell,
				"observed_at":  obs.ObservedAt,
				"source":       obs.Source,
			},
		}
	}
	return p.producer.PublishBatch(ctx, p.topic, msgs)
}

func (p *KafkaPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}
