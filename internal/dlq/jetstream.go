// Package dlq keeps messages that could not be decoded as packets.
package dlq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/navikt/dp-datalaster-inntekt/common/messaging"
	"github.com/navikt/dp-datalaster-inntekt/common/messaging/nats"
	"github.com/navikt/dp-datalaster-inntekt/internal/metrics"
)

// Reasons a message ends up in the DLQ.
const (
	ReasonDecode  = "decode"
	ReasonPublish = "publish"
)

// Entry is a dead-lettered message.
type Entry struct {
	Timestamp time.Time         `json:"timestamp" yaml:"timestamp"`
	Subject   string            `json:"subject" yaml:"subject"`
	Partition int               `json:"partition" yaml:"partition"`
	Sequence  uint64            `json:"sequence" yaml:"sequence"`
	Reason    string            `json:"reason" yaml:"reason"`
	Error     string            `json:"error" yaml:"error"`
	Headers   map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`
	Payload   string            `json:"payload" yaml:"payload"`
}

type publisher interface {
	PublishSync(ctx context.Context, subject string, data []byte) (*jetstream.PubAck, error)
}

// JetStreamQueue writes dead letters to the DATALASTER_DLQ stream.
// Safe for use across multiple instances.
type JetStreamQueue struct {
	pub     publisher
	stream  jetstream.Stream
	written uint64
	logger  *slog.Logger
}

// NewJetStreamQueue creates a DLQ backed by NATS JetStream.
func NewJetStreamQueue(ctx context.Context, js *nats.JetStreamClient) (*JetStreamQueue, error) {
	if js == nil {
		return nil, fmt.Errorf("jetstream client is nil")
	}

	stream, err := js.CreateOrUpdateStream(ctx, nats.DLQStream)
	if err != nil {
		return nil, fmt.Errorf("create dlq stream: %w", err)
	}

	logger := slog.Default().With(slog.String("component", "dlq"))
	logger.Info("DLQ stream ready", slog.String("stream", nats.DLQStream.Name))

	return &JetStreamQueue{
		pub:    js,
		stream: stream,
		logger: logger,
	}, nil
}

// Write records msg and the error that made it undeliverable.
func (q *JetStreamQueue) Write(ctx context.Context, msg *messaging.Message, cause error, reason string) error {
	if q == nil {
		return nil
	}

	entry := Entry{
		Timestamp: time.Now().UTC(),
		Subject:   msg.Subject,
		Partition: msg.Partition,
		Sequence:  msg.Sequence,
		Reason:    reason,
		Headers:   msg.Metadata,
		Payload:   string(msg.Data),
	}
	if cause != nil {
		entry.Error = cause.Error()
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal dlq entry: %w", err)
	}

	if _, err := q.pub.PublishSync(ctx, messaging.DLQSubject(reason), data); err != nil {
		q.log().Error("failed to publish DLQ entry", slog.String("error", err.Error()))
		return fmt.Errorf("publish dlq entry: %w", err)
	}

	atomic.AddUint64(&q.written, 1)
	metrics.DLQTotal.WithLabelValues(reason).Inc()
	q.log().Warn("message dead-lettered",
		slog.String("reason", reason),
		slog.String("subject", msg.Subject),
		slog.Uint64("sequence", msg.Sequence),
	)
	return nil
}

func (q *JetStreamQueue) log() *slog.Logger {
	if q.logger == nil {
		return slog.Default()
	}
	return q.logger
}

// Written counts entries written by this instance.
func (q *JetStreamQueue) Written() uint64 {
	if q == nil {
		return 0
	}
	return atomic.LoadUint64(&q.written)
}

// Stats returns DLQ metrics from JetStream.
func (q *JetStreamQueue) Stats(ctx context.Context) map[string]interface{} {
	if q == nil || q.stream == nil {
		return map[string]interface{}{
			"enabled": false,
			"backend": "jetstream",
		}
	}

	info, err := q.stream.Info(ctx)
	if err != nil {
		return map[string]interface{}{
			"enabled":       true,
			"backend":       "jetstream",
			"written_local": q.Written(),
			"error":         err.Error(),
		}
	}

	return map[string]interface{}{
		"enabled":        true,
		"backend":        "jetstream",
		"written_local":  q.Written(),
		"total_messages": info.State.Msgs,
		"total_bytes":    info.State.Bytes,
		"first_seq":      info.State.FirstSeq,
		"last_seq":       info.State.LastSeq,
	}
}

// List returns up to limit entries, oldest first.
func (q *JetStreamQueue) List(ctx context.Context, limit int) ([]Entry, error) {
	if q == nil || q.stream == nil {
		return nil, fmt.Errorf("dlq not enabled")
	}
	if limit <= 0 {
		limit = 100
	}

	consumer, err := q.stream.OrderedConsumer(ctx, jetstream.OrderedConsumerConfig{
		FilterSubjects: []string{messaging.WildcardSubject(messaging.SubjectDatalasterDLQ)},
		DeliverPolicy:  jetstream.DeliverAllPolicy,
	})
	if err != nil {
		return nil, fmt.Errorf("create list consumer: %w", err)
	}

	msgs, err := consumer.Fetch(limit, jetstream.FetchMaxWait(2*time.Second))
	if err != nil {
		return nil, fmt.Errorf("fetch messages: %w", err)
	}

	var entries []Entry
	for msg := range msgs.Messages() {
		var e Entry
		if err := json.Unmarshal(msg.Data(), &e); err != nil {
			q.log().Error("failed to parse DLQ message", slog.String("error", err.Error()))
			continue
		}
		entries = append(entries, e)
	}
	if msgs.Error() != nil {
		q.log().Warn("fetch completed with error", slog.String("error", msgs.Error().Error()))
	}

	return entries, nil
}

// Purge removes all entries.
func (q *JetStreamQueue) Purge(ctx context.Context) error {
	if q == nil || q.stream == nil {
		return fmt.Errorf("dlq not enabled")
	}
	if err := q.stream.Purge(ctx); err != nil {
		return fmt.Errorf("purge dlq stream: %w", err)
	}
	q.log().Info("purged all messages from DLQ stream")
	return nil
}
