package logging

import "log/slog"

// Common field names for consistent logging.
const (
	FieldService   = "service"
	FieldPacketID  = "packet_id"
	FieldPartition = "partition"
	FieldAktorID   = "aktor_id"
	FieldVedtakID  = "vedtak_id"
	FieldInntektID = "inntekts_id"
	FieldState     = "state"
	FieldReason    = "reason"
	FieldStatus    = "status"
	FieldDuration  = "duration_ms"
	FieldError     = "error"
)

// Service returns a slog attribute for the service name.
func Service(name string) slog.Attr {
	return slog.String(FieldService, name)
}

// VedtakID returns a slog attribute for the decision id.
func VedtakID(id int64) slog.Attr {
	return slog.Int64(FieldVedtakID, id)
}

// InntektID returns a slog attribute for a stored income id.
func InntektID(id string) slog.Attr {
	return slog.String(FieldInntektID, id)
}

// State returns a slog attribute for a packet state.
func State(s string) slog.Attr {
	return slog.String(FieldState, s)
}

// Reason returns a slog attribute explaining why a packet was skipped.
func Reason(r string) slog.Attr {
	return slog.String(FieldReason, r)
}

// Status returns a slog attribute for an HTTP status code.
func Status(code int) slog.Attr {
	return slog.Int(FieldStatus, code)
}

// Duration returns a slog attribute for duration in milliseconds.
func Duration(ms int64) slog.Attr {
	return slog.Int64(FieldDuration, ms)
}

// Error returns a slog attribute for an error.
func Error(err error) slog.Attr {
	return slog.String(FieldError, err.Error())
}

// PacketID returns a slog attribute for a packet id.
func PacketID(id string) slog.Attr {
	return slog.String(FieldPacketID, id)
}
