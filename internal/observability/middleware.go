package observability

import (
	"net/http"
	"runtime/debug"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/rs/zerolog/hlog"
)

const RequestIDHeader = "X-Request-Id"

type Middleware func(http.Handler) http.Handler

// Chain wraps h so that the first middleware sees the request first.
func Chain(h http.Handler, mws ...Middleware) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

// RequestContext puts a request-scoped logger carrying a request id into the
// request context and echoes the id back in X-Request-Id.
func RequestContext(logger *Logger) Middleware {
	withLogger := hlog.NewHandler(logger.base)
	withID := hlog.RequestIDHandler("request_id", RequestIDHeader)
	return func(next http.Handler) http.Handler {
		return withLogger(withID(next))
	}
}

// AccessLog emits one http_request event per request. The query string is
// never logged; it carries signed error payloads.
func AccessLog() Middleware {
	return hlog.AccessHandler(func(r *http.Request, status, size int, duration time.Duration) {
		if status == 0 {
			status = http.StatusOK
		}
		hlog.FromRequest(r).Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", status).
			Int("bytes", size).
			Int64("duration_ms", duration.Milliseconds()).
			Str("ip", ClientIP(r)).
			Msg("http_request")
	})
}

// Recover turns a panic into a 500 and reports it. http.ErrAbortHandler is
// re-raised so net/http can drop the connection.
func Recover(logger *Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				hub := sentry.CurrentHub().Clone()
				hub.Scope().SetRequest(r)
				hub.Scope().SetExtra("stack", string(debug.Stack()))
				hub.RecoverWithContext(r.Context(), rec)

				logger.FromRequest(r).Error("panic_recovered", map[string]any{
					"method": r.Method,
					"path":   r.URL.Path,
					"panic":  rec,
				})
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			}()

			next.ServeHTTP(w, r)
		})
	}
}
