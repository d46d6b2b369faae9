package repository

import (
	"context"
	"fmt"

	"MandiCast/internal/domain/models"
	pkgkafka "MandiCast/pkg/kafka"
)

// KafkaAuditPublisher mirrors audit entries onto an event topic.
// ClickHouse remains the durable record; the stream exists for
// downstream consumers and its failures never block an evaluation.
type KafkaAuditPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

func NewKafkaAuditPublisher(producer *pkgkafka.Producer, topic string) *KafkaAuditPublisher {
	return &KafkaAuditPublisher{producer: producer, topic: topic}
}

func (p *KafkaAuditPublisher) Publish(ctx context.Context, e *models.AuditEntry) error {
	key := []byte(fmt.Sprintf("%s:%s", e.Commodity, e.Market))
	return p.producer.Publish(ctx, p.topic, key, e)
}

// PublishMessage sends an arbitrary payload to a topic, satisfying the
// logger's collector publisher so aggregated error logs share this
// producer instead of opening a second connection.
func (p *KafkaAuditPublisher) PublishMessage(ctx context.Context, topic string, payload interface{}) error {
	return p.producer.Publish(ctx, topic, nil, payload)
}

func (p *KafkaAuditPublisher) Close() error {
	return p.producer.Close()
}
