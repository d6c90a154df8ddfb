package seeder

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/navikt/dp-datalaster-inntekt/common/messaging"
	"github.com/navikt/dp-datalaster-inntekt/internal/filter"
	"github.com/navikt/dp-datalaster-inntekt/internal/packet"
)

type memLog struct {
	mu       sync.Mutex
	appended []*messaging.Message
	err      error
}

func (l *memLog) Topic() string { return messaging.SubjectBehovPacket }

func (l *memLog) Partitions() int { return 3 }

func (l *memLog) PartitionFor(key string) int { return len(key) % 3 }

func (l *memLog) Consume(context.Context, int, messaging.MessageHandler) (func(), error) {
	return func() {}, nil
}

func (l *memLog) Append(_ context.Context, partition int, msg *messaging.Message) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return l.err
	}
	out := *msg
	out.Partition = partition
	l.appended = append(l.appended, &out)
	return nil
}

func TestGenerate_Behov(t *testing.T) {
	gen := NewGenerator(42)

	for i := 0; i < 50; i++ {
		data, key, err := gen.Generate(KindBehov)
		require.NoError(t, err)

		p, err := packet.Parse(data)
		require.NoError(t, err)
		assert.Len(t, key, 13)
		assert.Equal(t, key, p.Key())
		assert.True(t, filter.Default().Eligible(p), string(data))

		_, err = p.IntValue(packet.FieldVedtakID)
		assert.NoError(t, err)
		_, err = p.LocalDate(packet.FieldBeregningsDato)
		assert.NoError(t, err)
	}
}

func TestGenerate_Kinds(t *testing.T) {
	tests := []struct {
		kind  string
		state packet.State
	}{
		{KindIncomplete, packet.StateIncomplete},
		{KindEnriched, packet.StateEnriched},
		{KindManual, packet.StateOverridden},
		{KindFailed, packet.StateFailed},
	}

	gen := NewGenerator(7)
	for _, tt := range tests {
		t.Run(tt.kind, func(t *testing.T) {
			data, _, err := gen.Generate(tt.kind)
			require.NoError(t, err)

			p, err := packet.Parse(data)
			require.NoError(t, err)
			assert.Equal(t, tt.state, p.State())
			assert.False(t, filter.Default().Eligible(p))
		})
	}
}

func TestGenerate_Garbage(t *testing.T) {
	data, key, err := NewGenerator(1).Generate(KindGarbage)
	require.NoError(t, err)
	assert.Empty(t, key)

	_, err = packet.Parse(data)
	assert.Error(t, err)
}

func TestGenerate_Unknown(t *testing.T) {
	_, _, err := NewGenerator(1).Generate("nope")
	assert.Error(t, err)
}

func TestGenerate_Deterministic(t *testing.T) {
	a, _, err := NewGenerator(99).Generate(KindBehov)
	require.NoError(t, err)
	b, _, err := NewGenerator(99).Generate(KindBehov)
	require.NoError(t, err)

	pa, _ := packet.Parse(a)
	pb, _ := packet.Parse(b)
	assert.Equal(t, pa.Key(), pb.Key())
}

func TestParseKinds(t *testing.T) {
	kinds, err := ParseKinds("behov, failed,,garbage")
	require.NoError(t, err)
	assert.Equal(t, []string{KindBehov, KindFailed, KindGarbage}, kinds)

	_, err = ParseKinds("behov,bogus")
	assert.Error(t, err)

	_, err = ParseKinds(" , ")
	assert.Error(t, err)
}

func TestSeeder_Run(t *testing.T) {
	log := &memLog{}
	res, err := New(log, nil).Run(context.Background(), Config{Count: 20, Kinds: []string{KindBehov}, Seed: 3})
	require.NoError(t, err)

	assert.Equal(t, 20, res.Sent)
	assert.Equal(t, 0, res.Failed)
	assert.Equal(t, 20, res.ByKind[KindBehov])
	require.Len(t, log.appended, 20)

	for _, msg := range log.appended {
		key := msg.Header(messaging.HeaderPacketKey)
		assert.NotEmpty(t, key)
		assert.Equal(t, log.PartitionFor(key), msg.Partition)
		assert.Equal(t, Producer, msg.Header(messaging.HeaderProducer))
		assert.NotEmpty(t, msg.Header(messaging.HeaderPacketID))
	}
}

func TestSeeder_RunCountsFailures(t *testing.T) {
	log := &memLog{err: errors.New("no responders")}
	res, err := New(log, nil).Run(context.Background(), Config{Count: 5, Seed: 1})
	require.NoError(t, err)
	assert.Equal(t, 0, res.Sent)
	assert.Equal(t, 5, res.Failed)
}

func TestSeeder_RunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(&memLog{}, nil).Run(ctx, Config{Count: 5, Seed: 1})
	assert.ErrorIs(t, err, context.Canceled)
}
