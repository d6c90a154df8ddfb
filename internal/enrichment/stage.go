// Package enrichment implements the stage that attaches income records to behov packets.
package enrichment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/navikt/dp-datalaster-inntekt/common/logging"
	"github.com/navikt/dp-datalaster-inntekt/internal/filter"
	"github.com/navikt/dp-datalaster-inntekt/internal/inntekt"
	"github.com/navikt/dp-datalaster-inntekt/internal/metrics"
	"github.com/navikt/dp-datalaster-inntekt/internal/packet"
	"github.com/navikt/dp-datalaster-inntekt/internal/pipeline"
	"github.com/navikt/dp-datalaster-inntekt/internal/problem"
)

// StageName identifies the stage in logs, metrics and message headers.
const StageName = "dp-datalaster-inntekt"

// Fetcher computes income records.
type Fetcher interface {
	Fetch(ctx context.Context, aktorID string, vedtakID int64, beregningsDato time.Time) (*inntekt.Inntekt, error)
}

// Stage fetches the income record for an eligible packet and attaches it under inntektV1.
type Stage struct {
	fetcher Fetcher
	chain   *filter.Chain
	logger  *logging.Logger
}

// New constructs a Stage. A nil chain means filter.Default().
func New(fetcher Fetcher, chain *filter.Chain, logger *logging.Logger) *Stage {
	if chain == nil {
		chain = filter.Default()
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Stage{
		fetcher: fetcher,
		chain:   chain,
		logger:  logger.With(slog.String("component", "enrichment")),
	}
}

func (s *Stage) Name() string {
	return StageName
}

// Eligible runs the filter chain.
func (s *Stage) Eligible(p *packet.Packet) bool {
	return s.chain.Eligible(p)
}

// Reject names the predicate that makes p ineligible, or "" when p is eligible.
func (s *Stage) Reject(p *packet.Packet) string {
	reason, _ := s.chain.Evaluate(p)
	return reason
}

type identifiers struct {
	aktorID        string
	vedtakID       int64
	beregningsDato time.Time
}

func extract(p *packet.Packet) (identifiers, error) {
	var ids identifiers
	var errs []error

	aktorID, err := p.StringValue(packet.FieldAktorID)
	if err != nil {
		errs = append(errs, err)
	}
	vedtakID, err := p.IntValue(packet.FieldVedtakID)
	if err != nil {
		errs = append(errs, err)
	}
	dato, err := p.LocalDate(packet.FieldBeregningsDato)
	if err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return ids, errors.Join(errs...)
	}

	ids.aktorID = aktorID
	ids.vedtakID = vedtakID
	ids.beregningsDato = dato
	return ids, nil
}

// Transform fetches the income record and adds it to p.
// Every error it returns carries a problem.
func (s *Stage) Transform(ctx context.Context, p *packet.Packet) (*packet.Packet, error) {
	ids, err := extract(p)
	if err != nil {
		return nil, problem.New(problem.Input(err.Error()), err)
	}

	start := time.Now()
	result, err := s.fetcher.Fetch(ctx, ids.aktorID, ids.vedtakID, ids.beregningsDato)
	elapsed := time.Since(start)
	if err != nil {
		pr := pipeline.DefaultProblem(err)
		metrics.FetchDuration.WithLabelValues(strconv.Itoa(pr.StatusCode())).Observe(elapsed.Seconds())
		s.logger.WarnContext(ctx, "failed to fetch inntekt",
			logging.VedtakID(ids.vedtakID),
			logging.Status(pr.StatusCode()),
			logging.Duration(elapsed.Milliseconds()),
			logging.Error(err),
		)
		return nil, fmt.Errorf("fetch inntekt for vedtak %d: %w", ids.vedtakID, err)
	}
	metrics.FetchDuration.WithLabelValues("200").Observe(elapsed.Seconds())

	if err := p.PutValue(packet.FieldInntekt, result); err != nil {
		return nil, problem.New(problem.Fallback(), err)
	}

	s.logger.InfoContext(ctx, "attached inntekt",
		logging.VedtakID(ids.vedtakID),
		logging.InntektID(result.InntektsID),
		logging.Duration(elapsed.Milliseconds()),
	)
	return p, nil
}

// Problem maps a Transform error to the problem attached to the packet.
func (s *Stage) Problem(err error) problem.Problem {
	return pipeline.DefaultProblem(err)
}

var _ pipeline.Stage = (*Stage)(nil)
