package messaging

import (
	"strings"
	"testing"
)

func TestSubjectConstants_FollowNamingConvention(t *testing.T) {
	// Subjects should follow the pattern: {domain}.{action}.{resource}
	subjects := []string{
		SubjectBehovPacket,
		SubjectDatalasterDLQ,
	}

	for _, subject := range subjects {
		parts := strings.Split(subject, ".")
		if len(parts) < 3 {
			t.Errorf("subject %q does not follow {domain}.{action}.{resource} pattern", subject)
		}
	}
}

func TestPartitionSubject(t *testing.T) {
	tests := []struct {
		name      string
		topic     string
		partition int
		expected  string
	}{
		{"first partition", SubjectBehovPacket, 0, "dagpenger.behov.packet.0"},
		{"higher partition", SubjectBehovPacket, 11, "dagpenger.behov.packet.11"},
		{"custom topic", "test.topic.x", 2, "test.topic.x.2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PartitionSubject(tt.topic, tt.partition); got != tt.expected {
				t.Errorf("PartitionSubject(%q, %d) = %q, want %q", tt.topic, tt.partition, got, tt.expected)
			}
		})
	}
}

func TestWildcardSubject_MatchesPartitions(t *testing.T) {
	wildcard := WildcardSubject(SubjectBehovPacket)
	if wildcard != "dagpenger.behov.packet.>" {
		t.Errorf("WildcardSubject() = %q", wildcard)
	}

	prefix := strings.TrimSuffix(wildcard, ">")
	if !strings.HasPrefix(PartitionSubject(SubjectBehovPacket, 3), prefix) {
		t.Error("partition subject should be covered by the wildcard")
	}
}

func TestDLQSubject(t *testing.T) {
	if got := DLQSubject("decode"); got != "datalaster.dlq.packet.decode" {
		t.Errorf("DLQSubject() = %q", got)
	}
}

func TestHeaderConstants_NoColons(t *testing.T) {
	// NATS headers follow MIME rules; names must not contain ':' or spaces
	headers := []string{HeaderPacketKey, HeaderPacketID, HeaderState, HeaderProducer}

	for _, h := range headers {
		if h == "" || strings.ContainsAny(h, ": ") {
			t.Errorf("invalid header name %q", h)
		}
	}
}
