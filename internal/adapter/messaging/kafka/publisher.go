package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"campus-token-ledger/config"
	"campus-token-ledger/internal/core/domain"
	"campus-token-ledger/internal/metrics"

	"github.com/IBM/sarama"
	"github.com/rs/zerolog"
)

// Header keys set on every ledger event message.
const (
	HeaderEventType = "event_type"
	HeaderSignature = "signature" // hex HMAC-SHA256 of the value, only when a signing secret is configured
)

// Publisher sends ledger events to a Kafka topic, keyed by event ID.
type Publisher struct {
	producer sarama.SyncProducer
	topic    string
	secret   []byte
	log      zerolog.Logger
}

// NewPublisher dials the configured brokers.
func NewPublisher(cfg config.KafkaConfig, log zerolog.Logger) (*Publisher, error) {
	sc := sarama.NewConfig()
	sc.ClientID = cfg.ClientID
	sc.Producer.Return.Successes = true
	sc.Producer.RequiredAcks = sarama.WaitForAll
	sc.Producer.Retry.Max = 3
	sc.Producer.Retry.Backoff = 500 * time.Millisecond
	sc.Net.DialTimeout = 5 * time.Second

	producer, err := sarama.NewSyncProducer(cfg.Brokers, sc)
	if err != nil {
		return nil, fmt.Errorf("creating kafka producer: %w", err)
	}

	log.Info().
		Strs("brokers", cfg.Brokers).
		Str("topic", cfg.Topic).
		Bool("signed", cfg.SigningSecret != "").
		Msg("Kafka publisher ready")
	return NewPublisherWithProducer(producer, cfg.Topic, cfg.SigningSecret, log), nil
}

// NewPublisherWithProducer wraps an existing producer. An empty secret leaves messages unsigned.
func NewPublisherWithProducer(producer sarama.SyncProducer, topic, secret string, log zerolog.Logger) *Publisher {
	p := &Publisher{producer: producer, topic: topic, log: log}
	if secret != "" {
		p.secret = []byte(secret)
	}
	return p
}

// Publish implements ports.EventPublisher.
func (p *Publisher) Publish(ctx context.Context, event domain.LedgerEvent) error {
	msg, err := p.message(event)
	if err != nil {
		p.log.Error().Err(err).Str("event_id", event.ID.String()).Msg("failed to marshal event")
		return err
	}

	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		metrics.RecordEventPublished(string(event.Type), "error")
		p.log.Error().Err(err).
			Str("event_id", event.ID.String()).
			Str("type", string(event.Type)).
			Msg("error sending event")
		return fmt.Errorf("publishing %s: %w", event.Type, err)
	}

	metrics.RecordEventPublished(string(event.Type), "ok")
	p.log.Debug().
		Str("event_id", event.ID.String()).
		Int32("partition", partition).
		Int64("offset", offset).
		Msg("event published")
	return nil
}

func (p *Publisher) message(event domain.LedgerEvent) (*sarama.ProducerMessage, error) {
	value, err := json.Marshal(event)
	if err != nil {
		return nil, err
	}

	headers := []sarama.RecordHeader{
		{Key: []byte(HeaderEventType), Value: []byte(event.Type)},
	}
	if p.secret != nil {
		headers = append(headers, sarama.RecordHeader{
			Key:   []byte(HeaderSignature),
			Value: []byte(Sign(p.secret, value)),
		})
	}

	return &sarama.ProducerMessage{
		Topic:   p.topic,
		Key:     sarama.StringEncoder(event.ID.String()),
		Value:   sarama.ByteEncoder(value),
		Headers: headers,
	}, nil
}

// Close flushes and closes the producer.
func (p *Publisher) Close() error {
	return p.producer.Close()
}

// NopPublisher drops every event. Used when kafka is disabled.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, domain.LedgerEvent) error { return nil }

func (NopPublisher) Close() error { return nil }
