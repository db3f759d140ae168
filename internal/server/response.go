package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/musicman/internal/shared"
)

const (
	msgReauthenticate = "Session expired. Please reauthenticate."
	msgUpstream       = "Error processing request."
	msgNotFound       = "Resource not found."
)

// writeJSON encodes v with the given status code. Responses are never cached.
func writeJSON(w http.ResponseWriter, code int, v any) {
	noCache(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeRaw writes an already-encoded JSON body.
func writeRaw(w http.ResponseWriter, code int, body []byte) {
	noCache(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(body)
}

func writeText(w http.ResponseWriter, code int, msg string) {
	noCache(w)
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(code)
	_, _ = w.Write([]byte(msg))
}

func noCache(w http.ResponseWriter) {
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Pragma", "no-cache")
}

// statusFor maps a session or upstream error to the response status and a client-safe message.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, shared.ErrSessionNotFound),
		errors.Is(err, shared.ErrSessionExpired),
		errors.Is(err, shared.ErrTokenExpired):
		return http.StatusUnauthorized, msgReauthenticate
	case errors.Is(err, shared.ErrInvalidArgument), errors.Is(err, shared.ErrMissingArgument):
		return http.StatusBadRequest, "Invalid request."
	case errors.Is(err, shared.ErrNotFound):
		return http.StatusNotFound, msgNotFound
	default:
		return http.StatusBadGateway, msgUpstream
	}
}

// writeError logs err and writes the mapped status. Error details never reach the client.
func writeError(w http.ResponseWriter, logger *log.Logger, r *http.Request, err error) {
	code, msg := statusFor(err)
	if code >= http.StatusInternalServerError {
		logger.Error("request failed", "path", r.URL.Path, "err", err)
	} else {
		logger.Debug("request rejected", "path", r.URL.Path, "status", code, "err", err)
	}
	writeText(w, code, msg)
}
