package handler

// Every error response has the same shape:
//
//	{"error": "not_found", "message": "food not found with id abc123"}
//
// Record responses use the entity envelope, keyed by type and then id:
//
//	{"entities": {"food": {"abc123": {...}}}}
//
// so a client can merge any response into one normalised store.

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/sakif/fitlog/internal/apperror"
	"github.com/sakif/fitlog/internal/auth"
	"github.com/sakif/fitlog/internal/model"
)

// maxJSONBody bounds every JSON request body.
const maxJSONBody = 1 << 20

// ErrorResponse is the standard error format returned by all API endpoints.
type ErrorResponse struct {
	Error   string `json:"error"`   // machine-readable kind, e.g. "not_found"
	Message string `json:"message"` // human-readable description
}

// writeJSON sends data with the given status. Headers must be set before
// the status is written; after that they are ignored.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			// The headers are gone; all we can do is log.
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// writeError maps a domain error to its HTTP status. errors.Is walks the
// whole wrap chain, so services can add context with fmt.Errorf("...: %w").
// Anything that is not an *apperror.AppError is a 500 with a generic
// message; internal details never reach the client.
func writeError(w http.ResponseWriter, err error) {
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "An internal error occurred",
		})
		return
	}

	status, kind := http.StatusInternalServerError, "internal_error"
	switch {
	case errors.Is(err, apperror.ErrValidation):
		status, kind = http.StatusBadRequest, "validation_error"
	case errors.Is(err, apperror.ErrUnauthorized):
		status, kind = http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, apperror.ErrForbidden):
		status, kind = http.StatusForbidden, "forbidden"
	case errors.Is(err, apperror.ErrNotFound):
		status, kind = http.StatusNotFound, "not_found"
	case errors.Is(err, apperror.ErrConflict):
		status, kind = http.StatusConflict, "conflict"
	case errors.Is(err, apperror.ErrUnavailable):
		status, kind = http.StatusServiceUnavailable, "unavailable"
	}
	writeJSON(w, status, ErrorResponse{Error: kind, Message: appErr.Message})
}

// serverError logs err and answers with writeError. Client errors are
// logged at Debug so bad input does not flood the log.
func serverError(logger *slog.Logger, w http.ResponseWriter, r *http.Request, err error) {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		logger.Debug("request rejected",
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
	} else {
		logger.Error("request failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
	}
	writeError(w, err)
}

// entities builds the envelope for records of one type.
func entities[T any](kind string, records []T, idOf func(T) string) map[string]any {
	byID := make(map[string]T, len(records))
	for _, rec := range records {
		byID[idOf(rec)] = rec
	}
	return map[string]any{"entities": map[string]any{kind: byID}}
}

// deleted is the body of a successful delete.
func deleted(kind string, ids ...string) map[string]any {
	return map[string]any{
		"message": "success",
		"deleted": map[string][]string{kind: ids},
	}
}

// readFields reads a JSON object body for the partial-update decoders.
func readFields(r *http.Request) (model.Fields, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxJSONBody+1))
	if err != nil {
		return nil, apperror.ValidationFailed("body", "could not read request body")
	}
	if len(body) > maxJSONBody {
		return nil, apperror.ValidationFailed("body", "request body is too large")
	}
	return model.DecodeFields(body)
}

// decodeJSON reads a JSON body into dst.
func decodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(io.LimitReader(r.Body, maxJSONBody)).Decode(dst); err != nil {
		return apperror.ValidationFailed("body", "request body must be valid JSON")
	}
	return nil
}

// callerID returns the session's user id. Routes are mounted behind
// auth.RequireAuth, so a missing id is a wiring bug and reported as 401.
func callerID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("valid authentication required"))
	}
	return id, ok
}
