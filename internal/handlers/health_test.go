package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/navikt/dp-datalaster-inntekt/common/messaging"
	"github.com/navikt/dp-datalaster-inntekt/internal/topology"
)

type fakeBroker struct {
	connected bool
}

func (f *fakeBroker) Request(context.Context, string, []byte, time.Duration) (*messaging.Message, error) {
	return nil, errors.New("no responders available for request")
}

func (f *fakeBroker) IsConnected() bool { return f.connected }

type fakeProcessor struct {
	running bool
	stats   topology.Stats
}

func (f *fakeProcessor) Stats() topology.Stats { return f.stats }

func (f *fakeProcessor) Running() bool { return f.running }

type fakeDLQ struct{}

func (fakeDLQ) Stats(context.Context) map[string]interface{} {
	return map[string]interface{}{"enabled": true, "total_messages": 2}
}

func serve(handler http.HandlerFunc, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	handler(w, req)
	return w
}

func TestIsAlive(t *testing.T) {
	h := NewHealthHandler("dp-datalaster-inntekt", nil, nil, nil)

	w := serve(h.IsAlive, "/isAlive")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ALIVE", w.Body.String())
}

func TestIsReady(t *testing.T) {
	tests := []struct {
		name      string
		connected bool
		running   bool
		wantCode  int
	}{
		{"ready", true, true, http.StatusOK},
		{"broker down", false, true, http.StatusServiceUnavailable},
		{"topology not running", true, false, http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHealthHandler("svc", &fakeBroker{connected: tt.connected}, &fakeProcessor{running: tt.running}, nil)
			w := serve(h.IsReady, "/isReady")
			assert.Equal(t, tt.wantCode, w.Code)
		})
	}
}

func TestIsReady_NoProcessor(t *testing.T) {
	h := NewHealthHandler("svc", &fakeBroker{connected: true}, nil, nil)
	assert.Equal(t, http.StatusServiceUnavailable, serve(h.IsReady, "/isReady").Code)
}

func TestHealthz(t *testing.T) {
	proc := &fakeProcessor{running: true, stats: topology.Stats{Received: 5, Enriched: 3, Partitions: 3, Running: true}}
	h := NewHealthHandler("dp-datalaster-inntekt", &fakeBroker{connected: true}, proc, fakeDLQ{})

	w := serve(h.Healthz, "/healthz")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "dp-datalaster-inntekt", body["service"])

	stats := body["stats"].(map[string]interface{})
	assert.Equal(t, float64(5), stats["received"])
	assert.Equal(t, float64(3), stats["enriched"])

	dlq := body["dlq"].(map[string]interface{})
	assert.Equal(t, float64(2), dlq["total_messages"])
}

func TestHealthz_Degraded(t *testing.T) {
	h := NewHealthHandler("svc", &fakeBroker{connected: false}, nil, nil)

	w := serve(h.Healthz, "/healthz")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), `"degraded"`)
	assert.NotContains(t, w.Body.String(), `"stats"`)
}
