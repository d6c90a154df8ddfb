// Package nats provides JetStream support for durable, persistent messaging.
package nats

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/navikt/dp-datalaster-inntekt/common/messaging"
)

// JetStreamClient extends Client with JetStream persistence capabilities.
type JetStreamClient struct {
	*Client
	js jetstream.JetStream
}

// StreamConfig defines a JetStream stream configuration.
type StreamConfig struct {
	// Name is the stream name.
	Name string

	// Subjects are the subjects this stream captures.
	Subjects []string

	// MaxAge is the maximum age of messages in the stream.
	MaxAge time.Duration

	// MaxBytes is the maximum total size of the stream.
	MaxBytes int64

	// MaxMsgs is the maximum number of messages in the stream.
	MaxMsgs int64

	// Retention policy (LimitsPolicy, InterestPolicy, WorkQueuePolicy).
	Retention jetstream.RetentionPolicy

	// Storage type (FileStorage, MemoryStorage).
	Storage jetstream.StorageType

	// Replicas is the number of stream replicas in a cluster.
	Replicas int
}

// ConsumerConfig defines a JetStream consumer configuration.
type ConsumerConfig struct {
	// Name is the durable consumer name.
	Name string

	// FilterSubject filters which messages this consumer receives.
	FilterSubject string

	// AckWait is time to wait for acknowledgment before redelivery.
	AckWait time.Duration

	// MaxDeliver is maximum delivery attempts before giving up. -1 means unlimited.
	MaxDeliver int

	// MaxAckPending is maximum unacknowledged messages.
	// A value of 1 gives strictly ordered, one-at-a-time processing.
	MaxAckPending int

	// DeliverPolicy selects where a new consumer starts reading.
	DeliverPolicy jetstream.DeliverPolicy
}

// DefaultStreamConfig returns sensible defaults for a packet topic stream.
func DefaultStreamConfig(name string, subjects []string) StreamConfig {
	return StreamConfig{
		Name:      name,
		Subjects:  subjects,
		MaxAge:    7 * 24 * time.Hour,
		MaxBytes:  1024 * 1024 * 1024, // 1GB
		MaxMsgs:   1000000,
		Retention: jetstream.LimitsPolicy, // Shared topic: every stage reads every packet
		Storage:   jetstream.FileStorage,
		Replicas:  1,
	}
}

// DefaultConsumerConfig returns defaults for an ordered partition consumer.
func DefaultConsumerConfig(name, filterSubject string) ConsumerConfig {
	return ConsumerConfig{
		Name:          name,
		FilterSubject: filterSubject,
		AckWait:       30 * time.Second,
		MaxDeliver:    -1,
		MaxAckPending: 1,
		DeliverPolicy: jetstream.DeliverAllPolicy,
	}
}

// NewJetStreamClient creates a JetStream-enabled client.
func NewJetStreamClient(cfg Config) (*JetStreamClient, error) {
	client, err := NewClient(cfg)
	if err != nil {
		return nil, err
	}

	js, err := jetstream.New(client.conn)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	return &JetStreamClient{
		Client: client,
		js:     js,
	}, nil
}

// CreateOrUpdateStream creates or updates a stream.
func (c *JetStreamClient) CreateOrUpdateStream(ctx context.Context, cfg StreamConfig) (jetstream.Stream, error) {
	streamCfg := jetstream.StreamConfig{
		Name:      cfg.Name,
		Subjects:  cfg.Subjects,
		MaxAge:    cfg.MaxAge,
		MaxBytes:  cfg.MaxBytes,
		MaxMsgs:   cfg.MaxMsgs,
		Retention: cfg.Retention,
		Storage:   cfg.Storage,
		Replicas:  cfg.Replicas,
	}

	stream, err := c.js.CreateOrUpdateStream(ctx, streamCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create/update stream %s: %w", cfg.Name, err)
	}

	return stream, nil
}

// Stream looks up an existing stream.
func (c *JetStreamClient) Stream(ctx context.Context, name string) (jetstream.Stream, error) {
	stream, err := c.js.Stream(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to get stream %s: %w", name, err)
	}
	return stream, nil
}

// CreateOrUpdateConsumer creates or updates a durable consumer.
func (c *JetStreamClient) CreateOrUpdateConsumer(ctx context.Context, streamName string, cfg ConsumerConfig) (jetstream.Consumer, error) {
	consumerCfg := jetstream.ConsumerConfig{
		Name:          cfg.Name,
		Durable:       cfg.Name,
		FilterSubject: cfg.FilterSubject,
		AckWait:       cfg.AckWait,
		MaxDeliver:    cfg.MaxDeliver,
		MaxAckPending: cfg.MaxAckPending,
		DeliverPolicy: cfg.DeliverPolicy,
		AckPolicy:     jetstream.AckExplicitPolicy,
	}

	stream, err := c.Stream(ctx, streamName)
	if err != nil {
		return nil, err
	}

	consumer, err := stream.CreateOrUpdateConsumer(ctx, consumerCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create/update consumer %s: %w", cfg.Name, err)
	}

	return consumer, nil
}

// PublishSync publishes a message and waits for acknowledgment.
func (c *JetStreamClient) PublishSync(ctx context.Context, subject string, data []byte) (*jetstream.PubAck, error) {
	return c.js.Publish(ctx, subject, data)
}

// PublishMsgSync publishes a message with headers and waits for acknowledgment.
func (c *JetStreamClient) PublishMsgSync(ctx context.Context, msg *messaging.Message) (*jetstream.PubAck, error) {
	return c.js.PublishMsg(ctx, messageToNats(msg))
}

// ConsumeMessages starts consuming messages from a durable consumer with the given handler.
// Messages are acked when the handler returns nil and nak'ed otherwise; a messaging.RetryError
// sets the redelivery delay, every other error uses nakDelay.
// Returns a function that stops consuming.
func (c *JetStreamClient) ConsumeMessages(ctx context.Context, streamName, consumerName string, nakDelay time.Duration, handler messaging.MessageHandler) (func(), error) {
	stream, err := c.Stream(ctx, streamName)
	if err != nil {
		return nil, err
	}

	consumer, err := stream.Consumer(ctx, consumerName)
	if err != nil {
		return nil, fmt.Errorf("failed to get consumer %s: %w", consumerName, err)
	}

	logger := slog.Default().With(
		slog.String("component", "jetstream"),
		slog.String("consumer", consumerName),
	)
	consumeCtx, cancel := context.WithCancel(ctx)

	cons, err := consumer.Consume(func(msg jetstream.Msg) {
		m := jetStreamToMessage(msg)

		if err := handler(consumeCtx, m); err != nil {
			delay := nakDelay
			if d, ok := messaging.RetryDelay(err); ok {
				delay = d
			}
			if nakErr := msg.NakWithDelay(delay); nakErr != nil {
				logger.Error("Failed to nak message", slog.String("error", nakErr.Error()))
			}
			return
		}

		if ackErr := msg.DoubleAck(consumeCtx); ackErr != nil {
			logger.Error("Failed to ack message", slog.String("error", ackErr.Error()))
		}
	})
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to start consuming: %w", err)
	}

	return func() {
		cancel()
		cons.Stop()
	}, nil
}

// jetStreamToMessage converts a JetStream message to our Message type.
func jetStreamToMessage(msg jetstream.Msg) *messaging.Message {
	m := &messaging.Message{
		Subject:   msg.Subject(),
		Data:      msg.Data(),
		Partition: -1,
		Timestamp: time.Now(),
	}

	if md, err := msg.Metadata(); err == nil {
		m.Sequence = md.Sequence.Stream
		m.Deliveries = md.NumDelivered
		m.Timestamp = md.Timestamp
	}

	if headers := msg.Headers(); headers != nil {
		m.Metadata = headersToMetadata(headers)
	}

	return m
}

// Predefined stream configurations.
var (
	// DLQStream captures packets that could not be decoded.
	DLQStream = StreamConfig{
		Name:      "DATALASTER_DLQ",
		Subjects:  []string{messaging.WildcardSubject(messaging.SubjectDatalasterDLQ)},
		MaxAge:    30 * 24 * time.Hour,
		MaxBytes:  256 * 1024 * 1024, // 256MB
		MaxMsgs:   100000,
		Retention: jetstream.LimitsPolicy,
		Storage:   jetstream.FileStorage,
		Replicas:  1,
	}
)
