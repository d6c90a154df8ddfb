package packet

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestState(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  State
	}{
		{"unprocessed", behov, StateUnprocessed},
		{"enriched", `{"aktørId":"1","vedtakId":1,"beregningsDato":"2019-01-25","inntektV1":"something"}`, StateEnriched},
		{"failed", `{"aktørId":"1","vedtakId":1,"beregningsDato":"2019-01-25","system_problem":{"title":"failed"}}`, StateFailed},
		{"problem wins over result", `{"inntektV1":{},"system_problem":{"title":"failed"}}`, StateFailed},
		{"overridden", `{"aktørId":"1","vedtakId":1,"beregningsDato":"2019-01-25","manueltGrunnlag":50000}`, StateOverridden},
		{"missing date", `{"aktørId":"1","vedtakId":1}`, StateIncomplete},
		{"empty", `{}`, StateIncomplete},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MustParse(tt.input).State())
		})
	}
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "unprocessed", StateUnprocessed.String())
	assert.Equal(t, "enriched", StateEnriched.String())
	assert.Equal(t, "failed", StateFailed.String())
	assert.Equal(t, "overridden", StateOverridden.String())
	assert.Equal(t, "incomplete", StateIncomplete.String())
	assert.Equal(t, "unknown", State(99).String())
}

func TestState_Terminal(t *testing.T) {
	assert.False(t, StateUnprocessed.Terminal())
	assert.True(t, StateEnriched.Terminal())
	assert.True(t, StateFailed.Terminal())
}
