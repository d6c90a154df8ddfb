// Package messaging provides abstractions for the packet log and message broker communication.
// It defines interfaces that allow the enrichment stage to read and write packets
// without being coupled to a specific broker implementation.
package messaging

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Message represents a message received from or appended to the log.
type Message struct {
	// Subject is the topic/channel the message was published to.
	Subject string

	// Data is the raw message payload.
	Data []byte

	// Metadata contains optional key-value pairs for message headers.
	Metadata map[string]string

	// Partition is the log partition the message belongs to, or -1 when unknown.
	Partition int

	// Sequence is the position of the message in the underlying stream.
	Sequence uint64

	// Deliveries counts how many times the message has been delivered, starting at 1.
	Deliveries uint64

	// Timestamp is when the message was published.
	Timestamp time.Time
}

// Header returns a metadata value, or "" if the message carries no such header.
func (m *Message) Header(key string) string {
	if m == nil || m.Metadata == nil {
		return ""
	}
	return m.Metadata[key]
}

// MessageHandler processes a received message.
// A nil error acknowledges the message. Any other error makes the log redeliver it;
// wrap the error with RetryAfter to control the redelivery delay.
type MessageHandler func(ctx context.Context, msg *Message) error

// Publisher publishes messages to subjects.
type Publisher interface {
	// Publish sends a message to the specified subject.
	Publish(ctx context.Context, subject string, data []byte) error

	// PublishMsg sends a Message with full control over headers and metadata.
	PublishMsg(ctx context.Context, msg *Message) error
}

// Client is a broker connection that can be health checked.
type Client interface {
	// Request sends a message and waits for a response (request/reply pattern).
	Request(ctx context.Context, subject string, data []byte, timeout time.Duration) (*Message, error)

	// IsConnected returns true if the client is connected to the broker.
	IsConnected() bool
}

// Log is a durable topic split into ordered partitions.
// Every partition is consumed by at most one handler invocation at a time.
type Log interface {
	// Topic returns the logical topic name shared by all partitions.
	Topic() string

	// Partitions returns the number of partitions.
	Partitions() int

	// PartitionFor maps a packet key to its partition.
	PartitionFor(key string) int

	// Consume delivers the messages of one partition to handler, strictly in order.
	// The returned function stops consumption.
	Consume(ctx context.Context, partition int, handler MessageHandler) (func(), error)

	// Append writes msg to the partition and waits until the log has persisted it.
	Append(ctx context.Context, partition int, msg *Message) error
}

// ErrPermanent marks failures that redelivering the message cannot fix.
var ErrPermanent = errors.New("permanent failure")

// Permanent wraps err so that errors.Is(err, ErrPermanent) holds.
func Permanent(err error) error {
	return fmt.Errorf("%w: %w", ErrPermanent, err)
}

// IsPermanent reports whether err was marked with Permanent.
func IsPermanent(err error) bool {
	return errors.Is(err, ErrPermanent)
}

// RetryError asks the log to redeliver a message after Delay.
type RetryError struct {
	Delay time.Duration
	Err   error
}

func (e *RetryError) Error() string {
	return fmt.Sprintf("retry after %s: %v", e.Delay, e.Err)
}

func (e *RetryError) Unwrap() error {
	return e.Err
}

// RetryAfter wraps err so the message is redelivered no sooner than delay.
func RetryAfter(delay time.Duration, err error) error {
	return &RetryError{Delay: delay, Err: err}
}

// RetryDelay extracts the requested redelivery delay from err.
func RetryDelay(err error) (time.Duration, bool) {
	var re *RetryError
	if errors.As(err, &re) {
		return re.Delay, true
	}
	return 0, false
}
