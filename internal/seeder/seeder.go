// Package seeder appends synthetic behov packets to the log for local testing.
package seeder

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"

	"github.com/navikt/dp-datalaster-inntekt/common/messaging"
	"github.com/navikt/dp-datalaster-inntekt/internal/packet"
	"github.com/navikt/dp-datalaster-inntekt/internal/problem"
)

// Producer is written in the Producer header of seeded packets.
const Producer = "datalaster-seeder"

// Packet kinds.
const (
	KindBehov      = "behov"      // eligible for enrichment
	KindIncomplete = "incomplete" // lacks one identifier
	KindEnriched   = "enriched"   // already carries inntektV1
	KindManual     = "manual"     // carries manueltGrunnlag
	KindFailed     = "failed"     // carries system_problem
	KindGarbage    = "garbage"    // not a JSON object
)

// Kinds lists every kind the generator knows.
var Kinds = []string{KindBehov, KindIncomplete, KindEnriched, KindManual, KindFailed, KindGarbage}

// ParseKinds splits a comma-separated list and rejects unknown kinds.
func ParseKinds(s string) ([]string, error) {
	var kinds []string
	for _, k := range strings.Split(s, ",") {
		k = strings.TrimSpace(k)
		if k == "" {
			continue
		}
		if !known(k) {
			return nil, fmt.Errorf("unknown packet kind %q (known: %s)", k, strings.Join(Kinds, ","))
		}
		kinds = append(kinds, k)
	}
	if len(kinds) == 0 {
		return nil, fmt.Errorf("no packet kinds given")
	}
	return kinds, nil
}

func known(kind string) bool {
	for _, k := range Kinds {
		if k == kind {
			return true
		}
	}
	return false
}

// Generator produces fake packets. It is not safe for concurrent use.
type Generator struct {
	faker *gofakeit.Faker
}

// NewGenerator returns a generator; equal seeds give equal sequences.
func NewGenerator(seed int64) *Generator {
	return &Generator{faker: gofakeit.New(seed)}
}

// Generate returns the packet bytes and partition key for one packet of kind.
func (g *Generator) Generate(kind string) ([]byte, string, error) {
	if kind == KindGarbage {
		return []byte(g.faker.Sentence(6)), "", nil
	}

	aktorID := g.faker.Numerify("#############")
	now := time.Now().UTC()
	dato := g.faker.DateRange(now.AddDate(-2, 0, 0), now)

	p, err := packet.Parse([]byte("{}"))
	if err != nil {
		return nil, "", err
	}

	fields := []struct {
		name  string
		value any
	}{
		{packet.FieldAktorID, aktorID},
		{packet.FieldVedtakID, g.faker.Number(1, 99_999_999)},
		{packet.FieldBeregningsDato, dato.Format(packet.DateLayout)},
		{"behovId", g.faker.UUID()},
		{"opprettet", now.Format(time.RFC3339)},
	}
	if kind == KindIncomplete {
		drop := g.faker.Number(0, 2)
		fields = append(fields[:drop], fields[drop+1:]...)
	}
	for _, f := range fields {
		if err := p.PutValue(f.name, f.value); err != nil {
			return nil, "", err
		}
	}

	switch kind {
	case KindBehov, KindIncomplete:
	case KindEnriched:
		err = p.PutValue(packet.FieldInntekt, map[string]any{
			"inntektsId":    g.faker.UUID(),
			"inntektsListe": []any{},
		})
	case KindManual:
		err = p.PutValue(packet.FieldManueltGrunnlag, g.faker.Number(10_000, 900_000))
	case KindFailed:
		err = p.AddProblem(problem.Fallback())
	default:
		return nil, "", fmt.Errorf("unknown packet kind %q", kind)
	}
	if err != nil {
		return nil, "", err
	}

	return p.Bytes(), p.Key(), nil
}

// Pick returns one of kinds at random.
func (g *Generator) Pick(kinds []string) string {
	return kinds[g.faker.Number(0, len(kinds)-1)]
}

// Config controls a seeding run.
type Config struct {
	Count    int
	Interval time.Duration
	Kinds    []string
	Seed     int64
}

// Result summarises a seeding run.
type Result struct {
	Sent   int            `json:"sent" yaml:"sent"`
	Failed int            `json:"failed" yaml:"failed"`
	ByKind map[string]int `json:"by_kind" yaml:"by_kind"`
}

// Seeder appends generated packets to a log.
type Seeder struct {
	log    messaging.Log
	logger *slog.Logger
}

func New(log messaging.Log, logger *slog.Logger) *Seeder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Seeder{log: log, logger: logger.With(slog.String("component", "seeder"))}
}

// Run appends cfg.Count packets. Append failures are counted, not fatal;
// a cancelled context stops the run early.
func (s *Seeder) Run(ctx context.Context, cfg Config) (Result, error) {
	res := Result{ByKind: make(map[string]int)}
	if len(cfg.Kinds) == 0 {
		cfg.Kinds = []string{KindBehov}
	}
	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UnixNano()
	}
	gen := NewGenerator(cfg.Seed)

	for i := 0; i < cfg.Count; i++ {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		kind := gen.Pick(cfg.Kinds)
		data, key, err := gen.Generate(kind)
		if err != nil {
			return res, fmt.Errorf("generate %s packet: %w", kind, err)
		}

		partition := s.log.PartitionFor(key)
		msg := &messaging.Message{
			Data: data,
			Metadata: map[string]string{
				messaging.HeaderPacketID: uuid.NewString(),
				messaging.HeaderProducer: Producer,
			},
		}
		if key != "" {
			msg.Metadata[messaging.HeaderPacketKey] = key
		}

		if err := s.log.Append(ctx, partition, msg); err != nil {
			res.Failed++
			s.logger.Warn("failed to append packet", slog.String("kind", kind), slog.String("error", err.Error()))
		} else {
			res.Sent++
			res.ByKind[kind]++
		}

		if cfg.Interval > 0 && i < cfg.Count-1 {
			select {
			case <-ctx.Done():
				return res, ctx.Err()
			case <-time.After(cfg.Interval):
			}
		}
	}

	s.logger.Info("seeding complete", slog.Int("sent", res.Sent), slog.Int("failed", res.Failed))
	return res, nil
}
