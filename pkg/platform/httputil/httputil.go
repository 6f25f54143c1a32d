// Package httputil holds the JSON envelope helpers shared by all handler
// packages: one way to write a response, one way to write a coded error, one
// way to decode a request body.
package httputil

import (
	"encoding/json"
	"log/slog"
	"net/http"

	dErrors "museion/pkg/domain-errors"
	"museion/pkg/requestcontext"
)

// maxBodyBytes bounds request bodies. Entry points take scalar arguments;
// anything near this limit is abuse, not a real request.
const maxBodyBytes = 1 << 20

// errorEnvelope is the error shape every endpoint returns:
// {"error": <code>, "message": <safe text>}.
type errorEnvelope struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// WriteJSON writes a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		_ = json.NewEncoder(w).Encode(body)
	}
}

// WriteError maps a domain error to its HTTP status and envelope. Internal
// errors keep their message out of the response; everything else carries the
// caller-safe message the service attached.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	envelope := errorEnvelope{Error: string(code)}
	if code != dErrors.CodeInternal {
		envelope.Message = dErrors.MessageOf(err)
	}
	WriteJSON(w, dErrors.ToHTTPStatus(code), envelope)
}

// Decode reads and decodes a JSON request body into T. On failure it writes
// the bad_request envelope and logs the rejection, returning ok=false so the
// handler can bail with a bare return.
func Decode[T any](w http.ResponseWriter, r *http.Request, logger *slog.Logger) (T, bool) {
	var req T

	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		ctx := r.Context()
		if logger != nil {
			logger.WarnContext(ctx, "request body rejected",
				"request_id", requestcontext.RequestID(ctx),
				"path", r.URL.Path,
				"error", err,
			)
		}
		WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return req, false
	}
	return req, true
}
