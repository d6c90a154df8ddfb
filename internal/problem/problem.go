// Package problem defines the structured failure descriptor attached to packets.
package problem

import (
	"encoding/json"
	"errors"
	"fmt"
)

const (
	// TypeInntektskomponenten is the fallback type for failures the income service did not classify.
	TypeInntektskomponenten = "urn:dp:error:inntektskomponenten"

	// TypeInput marks packets whose identifiers could not be read.
	TypeInput = "urn:dp:error:datalaster:input"

	// TypeAboutBlank is the default type for problems without a more specific type.
	TypeAboutBlank = "about:blank"
)

// Problem is a structured failure descriptor.
type Problem struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   *int   `json:"status,omitempty"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`
}

// Fallback returns the problem used when an income lookup failed without a usable explanation.
func Fallback() Problem {
	return Problem{
		Type:   TypeInntektskomponenten,
		Title:  "Klarte ikke å hente inntekt",
		Status: Status(500),
	}
}

// Input returns the problem used when a packet's identifiers are absent or malformed.
func Input(detail string) Problem {
	return Problem{
		Type:   TypeInput,
		Title:  "Ugyldig input til inntektsberegning",
		Status: Status(400),
		Detail: detail,
	}
}

// Status returns a pointer to code, for filling Problem.Status.
func Status(code int) *int {
	return &code
}

// StatusCode returns the status, or 0 if unset.
func (p Problem) StatusCode() int {
	if p.Status == nil {
		return 0
	}
	return *p.Status
}

// Valid reports whether p carries the fields every problem needs.
func (p Problem) Valid() bool {
	return p.Title != ""
}

// Parse decodes a problem document. The type defaults to about:blank.
func Parse(data []byte) (Problem, error) {
	var p Problem
	if err := json.Unmarshal(data, &p); err != nil {
		return Problem{}, fmt.Errorf("decode problem: %w", err)
	}
	if !p.Valid() {
		return Problem{}, errors.New("decode problem: missing title")
	}
	if p.Type == "" {
		p.Type = TypeAboutBlank
	}
	return p, nil
}

// Error is an error carrying a Problem.
type Error struct {
	Problem Problem
	Err     error
}

// New wraps err with p.
func New(p Problem, err error) *Error {
	return &Error{Problem: p, Err: err}
}

func (e *Error) Error() string {
	msg := e.Problem.Title
	if e.Problem.Detail != "" {
		msg += ": " + e.Problem.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// From returns the Problem carried by err, if any.
func From(err error) (Problem, bool) {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Problem, true
	}
	return Problem{}, false
}
