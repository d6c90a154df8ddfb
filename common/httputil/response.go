// Package httputil has small helpers for writing HTTP responses.
package httputil

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// ContentTypeProblem is the media type of RFC 7807 problem documents.
const ContentTypeProblem = "application/problem+json"

// WriteJSON writes a JSON response with the given status code and data.
// Encoding failures are logged; the status line has already been sent.
func WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	writeJSON(w, "application/json", status, data)
}

// WriteText writes a plain-text response.
func WriteText(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	if _, err := w.Write([]byte(body)); err != nil {
		slog.Default().Warn("failed to write response", slog.String("error", err.Error()))
	}
}

// WriteError writes a problem document with type about:blank.
func WriteError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, ContentTypeProblem, status, map[string]interface{}{
		"type":   "about:blank",
		"title":  http.StatusText(status),
		"status": status,
		"detail": detail,
	})
}

func writeJSON(w http.ResponseWriter, contentType string, status int, data interface{}) {
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Default().Error("failed to encode JSON response", slog.String("error", err.Error()))
	}
}
