package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name   string
		level  slog.Level
		format string
	}{
		{"json format with info level", slog.LevelInfo, "json"},
		{"text format with debug level", slog.LevelDebug, "text"},
		{"default format (json) with error level", slog.LevelError, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := New(tt.level, tt.format)
			if logger == nil || logger.Logger == nil {
				t.Fatal("expected non-nil logger")
			}
		})
	}
}

func TestWithContext_PacketFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, slog.LevelInfo, "json")

	ctx := WithPacket(context.Background(), "packet-1", 3)
	logger.InfoContext(ctx, "processed")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to parse log output: %v", err)
	}
	if entry[FieldPacketID] != "packet-1" {
		t.Errorf("packet_id = %v", entry[FieldPacketID])
	}
	if entry[FieldPartition] != float64(3) {
		t.Errorf("partition = %v", entry[FieldPartition])
	}
}

func TestWithContext_NoPacket(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, slog.LevelInfo, "json")

	logger.WarnContext(context.Background(), "plain")

	if strings.Contains(buf.String(), FieldPacketID) {
		t.Errorf("unexpected packet_id in %s", buf.String())
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, slog.LevelWarn, "text")

	logger.DebugContext(context.Background(), "hidden")
	logger.InfoContext(context.Background(), "hidden")
	logger.ErrorContext(context.Background(), "shown")

	out := buf.String()
	if strings.Contains(out, "hidden") || !strings.Contains(out, "shown") {
		t.Errorf("unexpected output %q", out)
	}
}

func TestPacketIDFrom(t *testing.T) {
	if got := PacketIDFrom(context.Background()); got != "" {
		t.Errorf("PacketIDFrom(empty) = %q", got)
	}
	if got := PacketIDFrom(WithPacket(context.Background(), "abc", 0)); got != "abc" {
		t.Errorf("PacketIDFrom() = %q", got)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"bogus", slog.LevelInfo},
		{"", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := ParseLevel(tt.input); got != tt.expected {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestWith(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, slog.LevelInfo, "json").With(Service("dp-datalaster-inntekt"))

	logger.Info("hello")

	if !strings.Contains(buf.String(), `"service":"dp-datalaster-inntekt"`) {
		t.Errorf("missing service attr: %s", buf.String())
	}
}
