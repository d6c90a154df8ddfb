package inntektclient

import (
	"github.com/navikt/dp-datalaster-inntekt/internal/problem"
)

// Classify maps the outcome of a call to dp-inntekt-api onto a Problem.
//
// An error response whose body is a problem document is passed on as is, with
// the HTTP status filled in when the document has none. Anything else becomes
// the fallback problem.
func Classify(status int, body []byte, err error) problem.Problem {
	if status < 400 || len(body) == 0 {
		return problem.Fallback()
	}

	p, perr := problem.Parse(body)
	if perr != nil {
		return problem.Fallback()
	}
	if p.Status == nil {
		p.Status = problem.Status(status)
	}
	return p
}
