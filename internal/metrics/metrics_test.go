package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestPacketsTotal(t *testing.T) {
	before := testutil.ToFloat64(PacketsTotal.WithLabelValues(OutcomeEnriched))
	PacketsTotal.WithLabelValues(OutcomeEnriched).Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(PacketsTotal.WithLabelValues(OutcomeEnriched)))
}

func TestPacketsSkipped_ByReason(t *testing.T) {
	PacketsSkipped.WithLabelValues("missing inntektV1").Inc()
	PacketsSkipped.WithLabelValues("missing system_problem").Inc()
	assert.GreaterOrEqual(t, testutil.CollectAndCount(PacketsSkipped), 2)
}
