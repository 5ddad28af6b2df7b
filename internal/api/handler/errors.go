package handler

import (
	"errors"
	"io"
	"net/http"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/tidewise/tidewise/internal/api/middleware"
	"github.com/tidewise/tidewise/internal/api/response"
	"github.com/tidewise/tidewise/internal/resilience"
)

// maxBodyBytes bounds request bodies. A day snapshot with a full catalog
// stays well below this.
const maxBodyBytes = 1 << 20

// decodeJSON reads the request body into v, writing a 400 problem and
// returning false on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			response.BadRequest(w, r, "request body too large", nil)
		case errors.Is(err, io.EOF):
			response.BadRequest(w, r, "request body is empty", nil)
		default:
			response.BadRequest(w, r, "invalid JSON body: "+err.Error(), nil)
		}
		return false
	}
	return true
}

// writeDependencyError maps failures of guarded dependencies onto 503 and
// anything else onto 500.
func writeDependencyError(w http.ResponseWriter, r *http.Request, log zerolog.Logger, err error, msg string) {
	if errors.Is(err, resilience.ErrCircuitOpen) || errors.Is(err, resilience.ErrMaxRetriesExceeded) {
		log.Warn().Err(err).Str("request_id", middleware.GetRequestID(r.Context())).Msg(msg)
		response.ServiceUnavailable(w, r, "activity catalog is temporarily unavailable")
		return
	}
	log.Error().Err(err).Str("request_id", middleware.GetRequestID(r.Context())).Msg(msg)
	response.InternalError(w, r, "an unexpected error occurred")
}
