package auth

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"newsletter-backend/internal/observability"
	"newsletter-backend/internal/session"
)

const LoginPath = "/login"

type userIDKey struct{}

var errNoSession = errors.New("session middleware not installed")

// Gate admits only requests whose session carries a user id. A session
// store failure is answered with 500, never with a login redirect.
func Gate(logger *observability.Logger, metrics *observability.Metrics, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, ok := session.FromContext(r.Context())
		if !ok {
			metrics.RecordGateDecision("error")
			observability.ReportError(logger, r, "auth_gate_failed", errNoSession)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		userID, found, err := sess.UserID(r.Context())
		if err != nil {
			metrics.RecordGateDecision("error")
			observability.ReportError(logger, r, "auth_gate_failed", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		if !found {
			metrics.RecordGateDecision("redirect")
			http.Redirect(w, r, LoginPath, http.StatusSeeOther)
			return
		}

		metrics.RecordGateDecision("allow")
		next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
	})
}

func WithUserID(ctx context.Context, userID uuid.UUID) context.Context {
	return context.WithValue(ctx, userIDKey{}, userID)
}

// UserIDFromContext returns the id the Gate attached to the request.
func UserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(userIDKey{}).(uuid.UUID)
	return id, ok
}
