package server

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/navikt/dp-datalaster-inntekt/common/messaging"
	"github.com/navikt/dp-datalaster-inntekt/internal/handlers"
	"github.com/navikt/dp-datalaster-inntekt/internal/topology"
)

type connectedBroker struct{}

func (connectedBroker) Request(context.Context, string, []byte, time.Duration) (*messaging.Message, error) {
	return &messaging.Message{}, nil
}

func (connectedBroker) IsConnected() bool { return true }

type runningProcessor struct{}

func (runningProcessor) Stats() topology.Stats { return topology.Stats{Running: true} }

func (runningProcessor) Running() bool { return true }

func newTestRouter() http.Handler {
	h := handlers.NewHealthHandler("dp-datalaster-inntekt", connectedBroker{}, runningProcessor{}, nil)
	return NewRouter(h, nil)
}

func TestRouter_Endpoints(t *testing.T) {
	router := newTestRouter()

	tests := []struct {
		path string
		want int
	}{
		{"/isAlive", http.StatusOK},
		{"/isReady", http.StatusOK},
		{"/healthz", http.StatusOK},
		{"/metrics", http.StatusOK},
		{"/unknown", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)
			assert.Equal(t, tt.want, rr.Code)
		})
	}
}

func TestRouter_SetsRequestID(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/isAlive", nil)
	rr := httptest.NewRecorder()
	newTestRouter().ServeHTTP(rr, req)

	assert.NotEmpty(t, rr.Header().Get("X-Request-ID"))
}

func TestRouter_MetricsExposesCollectors(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	newTestRouter().ServeHTTP(rr, req)

	assert.Contains(t, rr.Body.String(), "go_goroutines")
}

func TestServer_ServeAndShutdown(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	srv := New(Config{WriteTimeout: time.Second}, newTestRouter(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + ln.Addr().String() + "/isAlive")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	assert.NoError(t, <-done)
}
