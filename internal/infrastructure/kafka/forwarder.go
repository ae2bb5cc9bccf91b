package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/IBM/sarama"
	"github.com/rs/zerolog"

	"github.com/supersunho/senseinfo/internal/domain"
)

// maxStoredErrors caps the in-memory error list so a long outage does
// not grow it without bound.
const maxStoredErrors = 100

// matchPayload is the wire form of a forwarded match
type matchPayload struct {
	AccountID         uint      `json:"account_id"`
	ChannelID         uint      `json:"channel_id"`
	ChannelUsername   string    `json:"channel_username"`
	TelegramMessageID int64     `json:"telegram_message_id"`
	Text              string    `json:"text"`
	MatchedKeywords   []string  `json:"matched_keywords"`
	MessageDate       time.Time `json:"message_date"`
}

// Forwarder delivers matched messages to a Kafka topic using an
// asynchronous producer. Messages are keyed by channel username so one
// channel's matches land on one partition in order.
type Forwarder struct {
	producer sarama.AsyncProducer
	topic    string
	logger   zerolog.Logger

	wg        sync.WaitGroup
	closeOnce sync.Once
	closeErr  error

	mu     sync.Mutex
	closed bool
	errs   []error
}

// ForwarderConfig holds Kafka forwarder settings
type ForwarderConfig struct {
	Brokers []string
	Topic   string
	Logger  zerolog.Logger
}

// NewForwarder creates a Kafka forwarder.
//
// Producer configuration: snappy compression, idempotent mode with
// WaitForAll acks and a single in-flight request, hash partitioning by
// message key.
func NewForwarder(cfg ForwarderConfig) (*Forwarder, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("no kafka brokers specified")
	}
	if cfg.Topic == "" {
		return nil, fmt.Errorf("kafka topic is required")
	}

	config := sarama.NewConfig()
	config.Producer.Return.Successes = true
	config.Producer.Return.Errors = true
	config.Producer.Compression = sarama.CompressionSnappy
	config.Producer.Idempotent = true
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Net.MaxOpenRequests = 1
	config.Producer.Partitioner = sarama.NewHashPartitioner
	config.ClientID = "senseinfo-forwarder"
	config.Version = sarama.V2_6_0_0

	producer, err := sarama.NewAsyncProducer(cfg.Brokers, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}

	f := &Forwarder{
		producer: producer,
		topic:    cfg.Topic,
		logger:   cfg.Logger.With().Str("component", "kafka_forwarder").Logger(),
	}

	f.wg.Add(2)
	go f.handleSuccesses()
	go f.handleErrors()

	f.logger.Info().
		Strs("brokers", cfg.Brokers).
		Str("topic", f.topic).
		Msg("kafka forwarder initialized")

	return f, nil
}

// Forward queues one matched message for delivery. A nil return means
// the message was accepted by the producer, not that it reached the
// brokers; delivery failures surface on the error handler.
func (f *Forwarder) Forward(ctx context.Context, event domain.ForwardEvent) error {
	value, err := json.Marshal(matchPayload{
		AccountID:         event.AccountID,
		ChannelID:         event.ChannelID,
		ChannelUsername:   event.ChannelUsername,
		TelegramMessageID: event.TelegramMessageID,
		Text:              event.Text,
		MatchedKeywords:   event.MatchedKeywords,
		MessageDate:       event.MessageDate,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal match: %w", err)
	}

	msg := &sarama.ProducerMessage{
		Topic:     f.topic,
		Key:       sarama.StringEncoder(event.ChannelUsername),
		Value:     sarama.ByteEncoder(value),
		Timestamp: event.MessageDate,
	}

	select {
	case f.producer.Input() <- msg:
		f.logger.Debug().
			Str("channel", event.ChannelUsername).
			Int64("message_id", event.TelegramMessageID).
			Msg("match queued for kafka")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("context cancelled while queueing message: %w", ctx.Err())
	}
}

// Destination returns the topic name, recorded on forwarded rows
func (f *Forwarder) Destination() string {
	return "kafka:" + f.topic
}

// Healthy reports whether the producer is open and not saturated with
// delivery errors
func (f *Forwarder) Healthy() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return !f.closed && len(f.errs) < maxStoredErrors
}

func (f *Forwarder) handleSuccesses() {
	defer f.wg.Done()
	for msg := range f.producer.Successes() {
		f.logger.Debug().
			Str("topic", msg.Topic).
			Int32("partition", msg.Partition).
			Int64("offset", msg.Offset).
			Msg("match delivered to kafka")
	}
}

func (f *Forwarder) handleErrors() {
	defer f.wg.Done()
	for producerErr := range f.producer.Errors() {
		f.logger.Error().
			Err(producerErr.Err).
			Str("topic", producerErr.Msg.Topic).
			Msg("failed to deliver match to kafka")

		f.mu.Lock()
		if len(f.errs) < maxStoredErrors {
			f.errs = append(f.errs, producerErr.Err)
		}
		f.mu.Unlock()
	}
}

// Close flushes pending messages and stops the handler goroutines.
// Idempotent.
func (f *Forwarder) Close() error {
	f.closeOnce.Do(func() {
		f.mu.Lock()
		f.closed = true
		f.mu.Unlock()

		if err := f.producer.Close(); err != nil {
			f.closeErr = fmt.Errorf("producer close failed: %w", err)
		}
		f.wg.Wait()

		f.mu.Lock()
		dropped := len(f.errs)
		f.mu.Unlock()
		if dropped > 0 {
			f.logger.Warn().Int("error_count", dropped).Msg("kafka forwarder closed with delivery errors")
		} else {
			f.logger.Info().Msg("kafka forwarder closed")
		}
	})
	return f.closeErr
}
