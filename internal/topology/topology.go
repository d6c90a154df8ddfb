// Package topology binds a pipeline stage to the partitions of the behov topic.
//
// Every partition is consumed by its own durable consumer that holds at most one
// unacknowledged message, so packets of a partition are handled one at a time
// and in order. A packet the stage wants republished is appended to the
// partition it came from before the input is acknowledged.
package topology

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/navikt/dp-datalaster-inntekt/common/logging"
	"github.com/navikt/dp-datalaster-inntekt/common/messaging"
	"github.com/navikt/dp-datalaster-inntekt/internal/dlq"
	"github.com/navikt/dp-datalaster-inntekt/internal/metrics"
	"github.com/navikt/dp-datalaster-inntekt/internal/packet"
	"github.com/navikt/dp-datalaster-inntekt/internal/pipeline"
	"github.com/navikt/dp-datalaster-inntekt/internal/problem"
	"github.com/navikt/dp-datalaster-inntekt/internal/toggle"
	"github.com/navikt/dp-datalaster-inntekt/internal/tracing"
)

// ErrPaused is returned for packets deferred because the stage is toggled off.
var ErrPaused = errors.New("stage paused by feature toggle")

// DeadLetters stores messages that are not packets.
type DeadLetters interface {
	Write(ctx context.Context, msg *messaging.Message, cause error, reason string) error
}

// Rejecter is implemented by stages that can explain why a packet is ineligible.
type Rejecter interface {
	Reject(p *packet.Packet) string
}

// Config tunes the topology.
type Config struct {
	// Toggle is the feature toggle that must be on for packets to be processed.
	Toggle string

	// PauseDelay is how long a packet is held back while the toggle is off.
	PauseDelay time.Duration
}

// Stats counts what the topology has done since it started.
type Stats struct {
	Received      uint64 `json:"received"`
	Enriched      uint64 `json:"enriched"`
	Failed        uint64 `json:"failed"`
	Skipped       uint64 `json:"skipped"`
	Deferred      uint64 `json:"deferred"`
	DeadLetters   uint64 `json:"dead_letters"`
	PublishErrors uint64 `json:"publish_errors"`
	Partitions    int    `json:"partitions"`
	Running       bool   `json:"running"`
}

// Topology reads packets from every partition of a log, runs them through a
// stage and appends the results back onto the same partition.
type Topology struct {
	log     messaging.Log
	stage   pipeline.Stage
	dlq     DeadLetters
	toggles toggle.Checker
	cfg     Config
	logger  *logging.Logger

	lastEnabled atomic.Bool
	running     atomic.Bool

	received      atomic.Uint64
	enriched      atomic.Uint64
	failed        atomic.Uint64
	skipped       atomic.Uint64
	deferred      atomic.Uint64
	deadLetters   atomic.Uint64
	publishErrors atomic.Uint64
}

// New constructs a Topology. A nil toggles checker means always on.
func New(log messaging.Log, stage pipeline.Stage, dead DeadLetters, toggles toggle.Checker, cfg Config, logger *logging.Logger) *Topology {
	if toggles == nil {
		toggles = toggle.AlwaysOn{}
	}
	if cfg.Toggle == "" {
		cfg.Toggle = toggle.EnabledToggle
	}
	if cfg.PauseDelay <= 0 {
		cfg.PauseDelay = 30 * time.Second
	}
	if logger == nil {
		logger = logging.Default()
	}

	t := &Topology{
		log:     log,
		stage:   stage,
		dlq:     dead,
		toggles: toggles,
		cfg:     cfg,
		logger:  logger.With(slog.String("component", "topology")),
	}
	t.lastEnabled.Store(true)
	return t
}

// Run consumes every partition until ctx is cancelled.
func (t *Topology) Run(ctx context.Context) error {
	if t.log == nil || t.stage == nil {
		return fmt.Errorf("topology not configured")
	}

	n := t.log.Partitions()
	stops := make([]func(), 0, n)
	stopAll := func() {
		for _, stop := range stops {
			stop()
			metrics.PartitionsActive.Dec()
		}
		t.running.Store(false)
	}

	for p := 0; p < n; p++ {
		stop, err := t.log.Consume(ctx, p, t.Handle)
		if err != nil {
			stopAll()
			return fmt.Errorf("consume partition %d: %w", p, err)
		}
		stops = append(stops, stop)
		metrics.PartitionsActive.Inc()
	}

	t.running.Store(true)
	t.logger.Info("topology started",
		slog.String("topic", t.log.Topic()),
		slog.Int("partitions", n),
		slog.String("stage", t.stage.Name()),
	)

	<-ctx.Done()
	stopAll()
	t.logger.Info("topology stopped")
	return nil
}

// Handle processes one message. A nil return acknowledges it; an error makes
// the log redeliver it.
func (t *Topology) Handle(ctx context.Context, msg *messaging.Message) error {
	t.received.Add(1)

	ctx, span := tracing.Tracer().Start(ctx, "topology.handle", trace.WithAttributes(
		attribute.String("messaging.destination", msg.Subject),
		attribute.Int("messaging.partition", msg.Partition),
		attribute.Int64("messaging.sequence", int64(msg.Sequence)),
	))
	defer span.End()

	err := t.handle(ctx, msg)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func (t *Topology) handle(ctx context.Context, msg *messaging.Message) error {
	p, err := packet.Parse(msg.Data)
	if err != nil {
		return t.deadLetter(ctx, msg, err, dlq.ReasonDecode)
	}

	packetID := inputID(msg)
	ctx = logging.WithPacket(ctx, packetID, msg.Partition)

	if !t.enabled(ctx) {
		t.deferred.Add(1)
		metrics.TogglePaused.Inc()
		metrics.PacketsTotal.WithLabelValues(metrics.OutcomeDeferred).Inc()
		return messaging.RetryAfter(t.cfg.PauseDelay, ErrPaused)
	}

	res, err := pipeline.Run(ctx, t.stage, p)
	if err != nil {
		metrics.PacketsTotal.WithLabelValues(metrics.OutcomeRetry).Inc()
		t.logger.ErrorContext(ctx, "stage failed", logging.Error(err))
		return err
	}

	if !res.Republish {
		t.skip(ctx, p)
		return nil
	}

	state := res.Packet.State()
	out := &messaging.Message{
		Data: res.Packet.Bytes(),
		Metadata: map[string]string{
			messaging.HeaderPacketID:       uuid.NewString(),
			messaging.HeaderParentPacketID: packetID,
			messaging.HeaderPacketKey:      res.Packet.Key(),
			messaging.HeaderState:          state.String(),
			messaging.HeaderProducer:       t.stage.Name(),
		},
	}

	partition := msg.Partition
	if partition < 0 {
		partition = t.log.PartitionFor(res.Packet.Key())
	}
	if err := t.log.Append(ctx, partition, out); err != nil {
		t.publishErrors.Add(1)
		metrics.PublishErrors.Inc()
		t.logger.ErrorContext(ctx, "failed to republish packet", logging.Error(err))
		if messaging.IsPermanent(err) {
			// The same append fails on every redelivery.
			return t.deadLetter(ctx, msg, err, dlq.ReasonPublish)
		}
		return fmt.Errorf("republish packet: %w", err)
	}

	t.record(ctx, res, state)
	return nil
}

func (t *Topology) enabled(ctx context.Context) bool {
	on, err := t.toggles.IsEnabled(ctx, t.cfg.Toggle)
	if err != nil {
		last := t.lastEnabled.Load()
		t.logger.WarnContext(ctx, "toggle lookup failed, keeping last known value",
			slog.String("toggle", t.cfg.Toggle),
			slog.Bool("enabled", last),
			logging.Error(err),
		)
		return last
	}
	if t.lastEnabled.Swap(on) != on {
		t.logger.InfoContext(ctx, "toggle changed", slog.String("toggle", t.cfg.Toggle), slog.Bool("enabled", on))
	}
	return on
}

// inputID is the packet id of msg. Messages without one get an id derived from
// their stream position, so every delivery of the same message shares it.
func inputID(msg *messaging.Message) string {
	if id := msg.Header(messaging.HeaderPacketID); id != "" {
		return id
	}
	if msg.Sequence > 0 {
		name := msg.Subject + "/" + strconv.FormatUint(msg.Sequence, 10)
		return uuid.NewSHA1(uuid.NameSpaceURL, []byte(name)).String()
	}
	return uuid.NewString()
}

func (t *Topology) deadLetter(ctx context.Context, msg *messaging.Message, cause error, reason string) error {
	if t.dlq == nil {
		t.logger.ErrorContext(ctx, "dropping message", logging.Reason(reason), logging.Error(cause))
	} else if err := t.dlq.Write(ctx, msg, cause, reason); err != nil {
		return fmt.Errorf("dead-letter message: %w", err)
	}
	t.deadLetters.Add(1)
	metrics.PacketsTotal.WithLabelValues(metrics.OutcomeDLQ).Inc()
	return nil
}

func (t *Topology) skip(ctx context.Context, p *packet.Packet) {
	t.skipped.Add(1)
	metrics.PacketsTotal.WithLabelValues(metrics.OutcomeSkipped).Inc()

	state := p.State()
	reason := "ineligible"
	if state.Terminal() {
		reason = state.String()
	}
	if r, ok := t.stage.(Rejecter); ok {
		if why := r.Reject(p); why != "" {
			reason = why
		}
	}
	metrics.PacketsSkipped.WithLabelValues(reason).Inc()
	t.logger.DebugContext(ctx, "packet skipped",
		logging.Reason(reason),
		logging.State(state.String()),
		slog.Bool("terminal", state.Terminal()),
	)
}

func (t *Topology) record(ctx context.Context, res pipeline.Result, state packet.State) {
	if state == packet.StateFailed {
		t.failed.Add(1)
		metrics.PacketsTotal.WithLabelValues(metrics.OutcomeFailed).Inc()
		pr, _ := problem.From(res.Err)
		if got, ok := res.Packet.Problem(); ok {
			pr = got
		}
		metrics.ProblemsTotal.WithLabelValues(pr.Type).Inc()
		t.logger.WarnContext(ctx, "packet republished with problem",
			slog.String("problem_type", pr.Type),
			slog.String("problem_title", pr.Title),
		)
		return
	}

	t.enriched.Add(1)
	metrics.PacketsTotal.WithLabelValues(metrics.OutcomeEnriched).Inc()
	t.logger.InfoContext(ctx, "packet republished", logging.State(state.String()))
}

// Stats returns a snapshot of the counters.
func (t *Topology) Stats() Stats {
	s := Stats{
		Received:      t.received.Load(),
		Enriched:      t.enriched.Load(),
		Failed:        t.failed.Load(),
		Skipped:       t.skipped.Load(),
		Deferred:      t.deferred.Load(),
		DeadLetters:   t.deadLetters.Load(),
		PublishErrors: t.publishErrors.Load(),
		Running:       t.running.Load(),
	}
	if t.log != nil {
		s.Partitions = t.log.Partitions()
	}
	return s
}

// Running reports whether every partition is being consumed.
func (t *Topology) Running() bool {
	return t.running.Load()
}
