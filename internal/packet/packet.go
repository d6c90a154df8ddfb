// Package packet implements the JSON envelope that travels on the behov topic.
//
// A Packet keeps the bytes it was decoded from. Reads go through gjson and
// writes through sjson, which only appends new keys, so fields the stage does
// not touch keep their exact bytes and position.
package packet

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/navikt/dp-datalaster-inntekt/internal/problem"
)

// Field names of the packet envelope.
const (
	FieldAktorID         = "aktørId"
	FieldVedtakID        = "vedtakId"
	FieldBeregningsDato  = "beregningsDato"
	FieldInntekt         = "inntektV1"
	FieldManueltGrunnlag = "manueltGrunnlag"
	FieldProblem         = "system_problem"
	FieldTasks           = "tasks"
)

// DateLayout is the wire format of calendar dates.
const DateLayout = "2006-01-02"

var (
	ErrFieldExists   = errors.New("field already exists")
	ErrMissingField  = errors.New("missing field")
	ErrWrongType     = errors.New("field has wrong type")
	ErrProblemExists = errors.New("packet already has a problem")
	ErrNotObject     = errors.New("packet is not a JSON object")
)

// Packet is a JSON object envelope.
type Packet struct {
	raw []byte
}

// Parse decodes data into a Packet. data is copied.
func Parse(data []byte) (*Packet, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("parse packet: %w", ErrNotObject)
	}
	if !gjson.ParseBytes(data).IsObject() {
		return nil, fmt.Errorf("parse packet: %w", ErrNotObject)
	}
	raw := make([]byte, len(data))
	copy(raw, data)
	return &Packet{raw: raw}, nil
}

// MustParse is Parse for literals known to be valid. It panics on error.
func MustParse(data string) *Packet {
	p, err := Parse([]byte(data))
	if err != nil {
		panic(err)
	}
	return p
}

// Bytes returns the encoded packet.
func (p *Packet) Bytes() []byte {
	return p.raw
}

func (p *Packet) String() string {
	return string(p.raw)
}

func (p *Packet) get(name string) gjson.Result {
	return gjson.GetBytes(p.raw, escape(name))
}

// HasField reports whether the top-level field name is present. A JSON null counts as present.
func (p *Packet) HasField(name string) bool {
	return p.get(name).Exists()
}

// HasFields reports whether every named field is present.
func (p *Packet) HasFields(names ...string) bool {
	for _, name := range names {
		if !p.HasField(name) {
			return false
		}
	}
	return true
}

// StringValue returns a string field.
func (p *Packet) StringValue(name string) (string, error) {
	v := p.get(name)
	if !v.Exists() {
		return "", fmt.Errorf("%s: %w", name, ErrMissingField)
	}
	if v.Type != gjson.String {
		return "", fmt.Errorf("%s is %s, not a string: %w", name, v.Type, ErrWrongType)
	}
	return v.Str, nil
}

// IntValue returns an integer field. Integral numbers, also when written with a
// fraction or exponent such as 123.0 or 1.23e2, and numeric strings are accepted.
func (p *Packet) IntValue(name string) (int64, error) {
	v := p.get(name)
	if !v.Exists() {
		return 0, fmt.Errorf("%s: %w", name, ErrMissingField)
	}

	var text string
	switch v.Type {
	case gjson.Number:
		if n, err := strconv.ParseInt(v.Raw, 10, 64); err == nil {
			return n, nil
		}
		if integral(v.Num) {
			return int64(v.Num), nil
		}
		return 0, fmt.Errorf("%s=%s is not an integer: %w", name, v.Raw, ErrWrongType)
	case gjson.String:
		text = strings.TrimSpace(v.Str)
	default:
		return 0, fmt.Errorf("%s is %s, not an integer: %w", name, v.Type, ErrWrongType)
	}

	n, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s=%q is not an integer: %w", name, text, ErrWrongType)
	}
	return n, nil
}

// integral reports whether f is a whole number that fits in an int64.
func integral(f float64) bool {
	return f == math.Trunc(f) && f >= math.MinInt64 && f < math.MaxInt64
}

// LocalDate returns a YYYY-MM-DD field as a UTC midnight time.
func (p *Packet) LocalDate(name string) (time.Time, error) {
	s, err := p.StringValue(name)
	if err != nil {
		return time.Time{}, err
	}
	d, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s=%q is not a date: %w", name, s, ErrWrongType)
	}
	return d, nil
}

// ObjectValue decodes a field into v.
func (p *Packet) ObjectValue(name string, v any) error {
	r := p.get(name)
	if !r.Exists() {
		return fmt.Errorf("%s: %w", name, ErrMissingField)
	}
	if err := json.Unmarshal([]byte(r.Raw), v); err != nil {
		return fmt.Errorf("decode %s: %w", name, err)
	}
	return nil
}

// PutValue adds a field. Existing fields are never overwritten.
func (p *Packet) PutValue(name string, value any) error {
	if p.HasField(name) {
		return fmt.Errorf("put %s: %w", name, ErrFieldExists)
	}
	out, err := sjson.SetBytes(p.raw, escape(name), value)
	if err != nil {
		return fmt.Errorf("put %s: %w", name, err)
	}
	p.raw = out
	return nil
}

// PutRaw adds a field whose value is already encoded JSON.
func (p *Packet) PutRaw(name string, value []byte) error {
	if p.HasField(name) {
		return fmt.Errorf("put %s: %w", name, ErrFieldExists)
	}
	if !gjson.ValidBytes(value) {
		return fmt.Errorf("put %s: invalid JSON value", name)
	}
	out, err := sjson.SetRawBytes(p.raw, escape(name), value)
	if err != nil {
		return fmt.Errorf("put %s: %w", name, err)
	}
	p.raw = out
	return nil
}

// HasProblem reports whether a problem marker is attached.
func (p *Packet) HasProblem() bool {
	return p.HasField(FieldProblem)
}

// Problem returns the attached problem marker.
func (p *Packet) Problem() (problem.Problem, bool) {
	var pr problem.Problem
	if err := p.ObjectValue(FieldProblem, &pr); err != nil {
		return problem.Problem{}, false
	}
	return pr, true
}

// AddProblem attaches pr. A packet carries at most one problem.
func (p *Packet) AddProblem(pr problem.Problem) error {
	if p.HasProblem() {
		return ErrProblemExists
	}
	return p.PutValue(FieldProblem, pr)
}

// Key returns the partitioning key of the packet, the subject id when present.
func (p *Packet) Key() string {
	v := p.get(FieldAktorID)
	if !v.Exists() {
		return ""
	}
	return v.String()
}

// escape turns a field name into a gjson/sjson path matching exactly that key.
func escape(name string) string {
	if !strings.ContainsAny(name, `.*?|#@\`) {
		return name
	}
	var b strings.Builder
	for _, r := range name {
		switch r {
		case '.', '*', '?', '|', '#', '@', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
