package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/sakif/fitlog/internal/auth"
)

// ActivityRecorder stores that a user was seen.
type ActivityRecorder interface {
	Touch(ctx context.Context, userID string) error
}

// Activity records activity for every authenticated request before it is
// handled. It must run after auth.RequireAuth. A failure is logged and
// does not fail the request.
func Activity(rec ActivityRecorder, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if userID, ok := auth.UserIDFromContext(r.Context()); ok {
				if err := rec.Touch(r.Context(), userID); err != nil {
					logger.Warn("recording activity",
						slog.String("userID", userID),
						slog.String("error", err.Error()),
					)
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
