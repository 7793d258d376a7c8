package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/IBM/sarama"

	"github.com/telhawk-systems/scalperguard/common/middleware"
	"github.com/telhawk-systems/scalperguard/scoring/internal/metrics"
	"github.com/telhawk-systems/scalperguard/scoring/internal/models"
)

const backendKafka = "kafka"

// KafkaPublisher writes one message per flagged wallet, keyed by wallet so a
// wallet's decisions stay on one partition.
type KafkaPublisher struct {
	topic    string
	producer sarama.SyncProducer
}

// NewKafkaProducerConfig returns the producer settings used in production.
func NewKafkaProducerConfig(clientID string) *sarama.Config {
	cfg := sarama.NewConfig()
	cfg.ClientID = clientID
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = 5
	cfg.Producer.Retry.Backoff = 200 * time.Millisecond
	cfg.Producer.Return.Successes = true
	cfg.Producer.Return.Errors = true
	return cfg
}

// NewKafkaPublisher dials brokers with a SyncProducer.
func NewKafkaPublisher(brokers []string, topic, clientID string) (*KafkaPublisher, error) {
	if topic == "" {
		return nil, errors.New("kafka: topic is required")
	}
	if len(brokers) == 0 {
		return nil, errors.New("kafka: no brokers")
	}
	producer, err := sarama.NewSyncProducer(brokers, NewKafkaProducerConfig(clientID))
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return NewKafkaPublisherWithProducer(producer, topic), nil
}

func NewKafkaPublisherWithProducer(producer sarama.SyncProducer, topic string) *KafkaPublisher {
	return &KafkaPublisher{topic: topic, producer: producer}
}

func (p *KafkaPublisher) PublishDecisions(ctx context.Context, report *models.ScoreReport) error {
	// SyncProducer takes no context.
	if err := ctx.Err(); err != nil {
		return err
	}

	events := DecisionEvents(ctx, report)
	if len(events) == 0 {
		return nil
	}

	var headers []sarama.RecordHeader
	if reqID := middleware.GetRequestID(ctx); reqID != "" {
		headers = append(headers, sarama.RecordHeader{Key: []byte(middleware.RequestIDHeader), Value: []byte(reqID)})
	}

	msgs := make([]*sarama.ProducerMessage, 0, len(events))
	for _, ev := range events {
		payload, err := json.Marshal(ev)
		if err != nil {
			return fmt.Errorf("marshal decision: %w", err)
		}
		msgs = append(msgs, &sarama.ProducerMessage{
			Topic:     p.topic,
			Key:       sarama.StringEncoder(ev.Wallet),
			Value:     sarama.ByteEncoder(payload),
			Headers:   headers,
			Timestamp: ev.ScoredAt,
		})
	}

	if err := p.producer.SendMessages(msgs); err != nil {
		var perrs sarama.ProducerErrors
		failed := len(msgs)
		if errors.As(err, &perrs) {
			failed = len(perrs)
		}
		metrics.PublishedTotal.WithLabelValues(backendKafka, "error").Add(float64(failed))
		metrics.PublishedTotal.WithLabelValues(backendKafka, "ok").Add(float64(len(msgs) - failed))
		return fmt.Errorf("kafka publish: %w", err)
	}
	metrics.PublishedTotal.WithLabelValues(backendKafka, "ok").Add(float64(len(msgs)))
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.producer.Close()
}
