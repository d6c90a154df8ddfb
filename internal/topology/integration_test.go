package topology

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/navikt/dp-datalaster-inntekt/common/messaging"
	"github.com/navikt/dp-datalaster-inntekt/common/messaging/nats"
	"github.com/navikt/dp-datalaster-inntekt/internal/enrichment"
	"github.com/navikt/dp-datalaster-inntekt/internal/packet"
)

// setupTestNATS starts a JetStream-enabled NATS server in a container.
func setupTestNATS(t *testing.T) *nats.JetStreamClient {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "nats:2.10-alpine",
			Cmd:          []string{"-js"},
			ExposedPorts: []string{"4222/tcp"},
			WaitingFor:   wait.ForLog("Server is ready").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("Failed to start NATS container: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate container: %v", err)
		}
	})

	url, err := container.PortEndpoint(ctx, "4222/tcp", "nats")
	if err != nil {
		t.Fatalf("Failed to get NATS endpoint: %v", err)
	}

	cfg := nats.DefaultConfig()
	cfg.URL = url
	cfg.MaxReconnects = 0
	js, err := nats.NewJetStreamClient(cfg)
	if err != nil {
		t.Fatalf("Failed to connect to NATS: %v", err)
	}
	t.Cleanup(func() { _ = js.Close() })

	return js
}

func TestIntegration_EnrichesOnPartitionedLog(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	js := setupTestNATS(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	log, err := nats.NewPartitionedLog(ctx, js, nats.PartitionedLogConfig{
		Stream:     "BEHOV_IT",
		Topic:      "it.behov.packet",
		Partitions: 2,
		AckWait:    5 * time.Second,
		NakDelay:   100 * time.Millisecond,
	})
	require.NoError(t, err)

	fetcher := &fakeFetcher{}
	top := New(log, enrichment.New(fetcher, nil, nil), nil, nil, Config{}, nil)

	done := make(chan error, 1)
	go func() { done <- top.Run(ctx) }()
	require.Eventually(t, top.Running, 10*time.Second, 50*time.Millisecond)

	partition := log.PartitionFor("12345")
	require.NoError(t, log.Append(ctx, partition, &messaging.Message{
		Data:     []byte(behov),
		Metadata: map[string]string{messaging.HeaderPacketKey: "12345"},
	}))

	stream, err := js.Stream(ctx, "BEHOV_IT")
	require.NoError(t, err)

	// Input plus one republished packet; the republished one is skipped.
	require.Eventually(t, func() bool {
		s := top.Stats()
		return s.Received == 2 && s.Enriched == 1 && s.Skipped == 1
	}, 15*time.Second, 100*time.Millisecond)

	info, err := stream.Info(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), info.State.Msgs)

	last, err := stream.GetLastMsgForSubject(ctx, messaging.PartitionSubject("it.behov.packet", partition))
	require.NoError(t, err)
	assert.Equal(t, "enriched", last.Header.Get(messaging.HeaderState))

	p, err := packet.Parse(last.Data)
	require.NoError(t, err)
	assert.Equal(t, packet.StateEnriched, p.State())
	assert.Equal(t, 1, fetcher.calls)

	cancel()
	require.NoError(t, <-done)
}

