package nats

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/nats-io/nats.go"

	"github.com/navikt/dp-datalaster-inntekt/common/messaging"
)

// PartitionedLogConfig configures a PartitionedLog.
type PartitionedLogConfig struct {
	// Stream is the JetStream stream that captures every partition subject.
	Stream string

	// Topic is the base subject; partition n lives on "<topic>.<n>".
	Topic string

	// Partitions is the number of partitions.
	Partitions int

	// DurablePrefix names the per-partition durable consumers ("<prefix>-p<n>").
	DurablePrefix string

	// AckWait is time to wait for acknowledgment before redelivery.
	AckWait time.Duration

	// NakDelay is the redelivery delay for failed handler invocations.
	NakDelay time.Duration
}

// PartitionedLog implements messaging.Log on top of JetStream.
// Each partition is a subject, consumed by its own durable consumer with
// MaxAckPending=1 so records in a partition are handled strictly in order.
type PartitionedLog struct {
	js  *JetStreamClient
	cfg PartitionedLogConfig
}

// NewPartitionedLog creates the backing stream and returns the log.
func NewPartitionedLog(ctx context.Context, js *JetStreamClient, cfg PartitionedLogConfig) (*PartitionedLog, error) {
	if cfg.Partitions < 1 {
		return nil, fmt.Errorf("partitions must be at least 1, got %d", cfg.Partitions)
	}
	if cfg.Topic == "" || cfg.Stream == "" {
		return nil, fmt.Errorf("topic and stream are required")
	}
	if cfg.DurablePrefix == "" {
		cfg.DurablePrefix = "datalaster"
	}
	if cfg.AckWait <= 0 {
		cfg.AckWait = 30 * time.Second
	}
	if cfg.NakDelay <= 0 {
		cfg.NakDelay = 5 * time.Second
	}

	streamCfg := DefaultStreamConfig(cfg.Stream, []string{messaging.WildcardSubject(cfg.Topic)})
	if _, err := js.CreateOrUpdateStream(ctx, streamCfg); err != nil {
		return nil, err
	}

	return &PartitionedLog{js: js, cfg: cfg}, nil
}

// Topic returns the base subject.
func (l *PartitionedLog) Topic() string {
	return l.cfg.Topic
}

// Partitions returns the partition count.
func (l *PartitionedLog) Partitions() int {
	return l.cfg.Partitions
}

// PartitionFor maps a record key to its partition.
func (l *PartitionedLog) PartitionFor(key string) int {
	return PartitionFor(key, l.cfg.Partitions)
}

// ConsumerName returns the durable consumer name for a partition.
func (l *PartitionedLog) ConsumerName(partition int) string {
	return l.cfg.DurablePrefix + "-p" + strconv.Itoa(partition)
}

// Consume starts an ordered durable consumer for one partition.
func (l *PartitionedLog) Consume(ctx context.Context, partition int, handler messaging.MessageHandler) (func(), error) {
	if partition < 0 || partition >= l.cfg.Partitions {
		return nil, fmt.Errorf("partition %d out of range [0,%d)", partition, l.cfg.Partitions)
	}

	name := l.ConsumerName(partition)
	consumerCfg := DefaultConsumerConfig(name, messaging.PartitionSubject(l.cfg.Topic, partition))
	consumerCfg.AckWait = l.cfg.AckWait

	if _, err := l.js.CreateOrUpdateConsumer(ctx, l.cfg.Stream, consumerCfg); err != nil {
		return nil, err
	}

	return l.js.ConsumeMessages(ctx, l.cfg.Stream, name, l.cfg.NakDelay, func(ctx context.Context, msg *messaging.Message) error {
		msg.Partition = partition
		return handler(ctx, msg)
	})
}

// Append publishes a record to a partition and waits for the stream to persist it.
func (l *PartitionedLog) Append(ctx context.Context, partition int, msg *messaging.Message) error {
	if partition < 0 || partition >= l.cfg.Partitions {
		return fmt.Errorf("partition %d out of range [0,%d)", partition, l.cfg.Partitions)
	}

	out := *msg
	out.Subject = messaging.PartitionSubject(l.cfg.Topic, partition)
	if _, err := l.js.PublishMsgSync(ctx, &out); err != nil {
		return fmt.Errorf("append to partition %d: %w", partition, classifyPublishError(err))
	}
	return nil
}

// classifyPublishError marks errors that fail the same way on every attempt as permanent.
func classifyPublishError(err error) error {
	switch {
	case errors.Is(err, nats.ErrMaxPayload),
		errors.Is(err, nats.ErrBadSubject),
		errors.Is(err, nats.ErrHeadersNotSupported):
		return messaging.Permanent(err)
	default:
		return err
	}
}

// PartitionFor hashes key onto [0, partitions).
func PartitionFor(key string, partitions int) int {
	if partitions <= 1 {
		return 0
	}
	return int(xxhash.Sum64String(key) % uint64(partitions))
}

var _ messaging.Log = (*PartitionedLog)(nil)
