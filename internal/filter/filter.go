// Package filter decides which packets the income stage should process.
package filter

import (
	"github.com/tidwall/gjson"

	"github.com/navikt/dp-datalaster-inntekt/internal/packet"
)

// Predicate is a named, pure test on a packet.
type Predicate struct {
	Name string
	Test func(*packet.Packet) bool
}

// Chain ANDs its predicates in order.
type Chain struct {
	predicates []Predicate
}

// NewChain constructs a chain from predicates.
func NewChain(predicates ...Predicate) *Chain {
	return &Chain{predicates: predicates}
}

// Default is the chain for the income stage.
func Default() *Chain {
	return NewChain(
		Missing(packet.FieldInntekt),
		Missing(packet.FieldManueltGrunnlag),
		Missing(packet.FieldProblem),
		Has(packet.FieldAktorID, packet.FieldVedtakID, packet.FieldBeregningsDato),
	)
}

// With returns a copy of c with more predicates appended.
func (c *Chain) With(predicates ...Predicate) *Chain {
	all := make([]Predicate, 0, len(c.predicates)+len(predicates))
	all = append(all, c.predicates...)
	all = append(all, predicates...)
	return &Chain{predicates: all}
}

// Eligible reports whether every predicate accepts p.
func (c *Chain) Eligible(p *packet.Packet) bool {
	_, ok := c.Evaluate(p)
	return ok
}

// Evaluate runs the chain and names the first predicate that rejected p.
func (c *Chain) Evaluate(p *packet.Packet) (rejectedBy string, ok bool) {
	for _, pred := range c.predicates {
		if !pred.Test(p) {
			return pred.Name, false
		}
	}
	return "", true
}

// Names lists the predicates in evaluation order.
func (c *Chain) Names() []string {
	names := make([]string, len(c.predicates))
	for i, pred := range c.predicates {
		names[i] = pred.Name
	}
	return names
}

// Missing accepts packets without the field.
func Missing(field string) Predicate {
	return Predicate{
		Name: "missing " + field,
		Test: func(p *packet.Packet) bool { return !p.HasField(field) },
	}
}

// Has accepts packets carrying every field.
func Has(fields ...string) Predicate {
	name := "has"
	for _, f := range fields {
		name += " " + f
	}
	return Predicate{
		Name: name,
		Test: func(p *packet.Packet) bool { return p.HasFields(fields...) },
	}
}

// HasTask accepts packets whose tasks array lists task.
func HasTask(task string) Predicate {
	return Predicate{
		Name: "has task " + task,
		Test: func(p *packet.Packet) bool {
			tasks := gjson.GetBytes(p.Bytes(), packet.FieldTasks)
			if !tasks.IsArray() {
				return false
			}
			found := false
			tasks.ForEach(func(_, v gjson.Result) bool {
				if v.Type == gjson.String && v.Str == task {
					found = true
					return false
				}
				return true
			})
			return found
		},
	}
}
