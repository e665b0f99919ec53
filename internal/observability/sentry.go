package observability

import (
	"net/http"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/rs/zerolog/hlog"
)

// InitSentry is a no-op without a DSN.
func InitSentry(dsn, environment string) error {
	if dsn == "" {
		return nil
	}

	return sentry.Init(sentry.ClientOptions{
		Dsn:              dsn,
		Environment:      environment,
		AttachStacktrace: true,
	})
}

func FlushSentry() {
	sentry.Flush(2 * time.Second)
}

// ReportError logs err under event and sends it to Sentry tagged with the
// route and request id. Call it on every path that answers 5xx.
func ReportError(logger *Logger, r *http.Request, event string, err error) {
	hub := sentry.CurrentHub().Clone()
	hub.ConfigureScope(func(scope *sentry.Scope) {
		scope.SetTag("event", event)
		scope.SetTag("route", r.Method+" "+r.URL.Path)
		if id, ok := hlog.IDFromRequest(r); ok {
			scope.SetTag("request_id", id.String())
		}
	})
	hub.CaptureException(err)

	logger.FromRequest(r).Error(event, map[string]any{
		"method": r.Method,
		"path":   r.URL.Path,
		"error":  err.Error(),
	})
}
