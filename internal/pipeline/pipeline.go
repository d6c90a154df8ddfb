// Package pipeline defines the contract every packet stage implements and
// applies a stage to one packet.
package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/navikt/dp-datalaster-inntekt/internal/packet"
	"github.com/navikt/dp-datalaster-inntekt/internal/problem"
)

// Stage is one step of the behov pipeline.
type Stage interface {
	// Name identifies the stage in logs and metrics.
	Name() string

	// Eligible reports whether the stage should process p. It must be pure.
	Eligible(p *packet.Packet) bool

	// Transform enriches p. It only adds fields.
	Transform(ctx context.Context, p *packet.Packet) (*packet.Packet, error)

	// Problem converts a Transform error into the problem attached to the packet.
	Problem(err error) problem.Problem
}

// Result is the outcome of Run.
type Result struct {
	Packet *packet.Packet

	// Republish is false for packets the stage ignored.
	Republish bool

	// Err is the Transform error, when the packet failed.
	Err error
}

// Run applies stage to p. Ineligible packets come back untouched and are not
// republished. Eligible packets are always republished, carrying either the
// stage's result or a problem.
func Run(ctx context.Context, stage Stage, p *packet.Packet) (Result, error) {
	if stage == nil {
		return Result{}, fmt.Errorf("pipeline stage not configured")
	}
	if !stage.Eligible(p) {
		return Result{Packet: p}, nil
	}

	out, err := stage.Transform(ctx, p)
	if err == nil {
		return Result{Packet: out, Republish: true}, nil
	}

	// Transform may have failed half way; the problem goes on the packet as received.
	if out == nil {
		out = p
	}
	if perr := out.AddProblem(stage.Problem(err)); perr != nil {
		if errors.Is(perr, packet.ErrProblemExists) {
			return Result{Packet: out, Republish: true, Err: err}, nil
		}
		return Result{}, fmt.Errorf("attach problem: %w", perr)
	}
	return Result{Packet: out, Republish: true, Err: err}, nil
}

// DefaultProblem extracts the problem carried by err, or the fallback problem.
func DefaultProblem(err error) problem.Problem {
	if p, ok := problem.From(err); ok && p.Valid() {
		return p
	}
	return problem.Fallback()
}
