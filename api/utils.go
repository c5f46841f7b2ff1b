package api

import (
	"encoding/json"
	"net"
	"net/http"

	"secanalytics/core"
	"secanalytics/util"

	"go.uber.org/zap"
)

// sanitizeErrorMessage removes credentials and internal addresses from
// messages sent to clients
func sanitizeErrorMessage(message string) string {
	message = util.RedactPrivateAddresses(util.SanitizeString(message))
	return util.Truncate(message, core.MaxErrorMessageLength)
}

// writeError logs the full error and sends a sanitized message to the client
func writeError(w http.ResponseWriter, statusCode int, message string, err error, logger *zap.SugaredLogger) {
	if logger != nil {
		if err != nil {
			logger.Errorw(message, "error", err.Error(), "status_code", statusCode)
		} else {
			logger.Errorw(message, "status_code", statusCode)
		}
	}
	http.Error(w, sanitizeErrorMessage(message), statusCode)
}

// writeJSON encodes v as the response body
func writeJSON(w http.ResponseWriter, statusCode int, v interface{}, logger *zap.SugaredLogger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil && logger != nil {
		logger.Errorw("Failed to encode response", "error", err)
	}
}

// getRealIP returns the client address of the connection. Forwarding
// headers are ignored since they are trivially spoofed.
func getRealIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
