package observability

import (
	"io"
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
)

// Logger writes one JSON object per event. Event names are snake_case and
// fields are flat.
type Logger struct {
	base zerolog.Logger
}

func NewLogger() *Logger {
	return NewLoggerWithWriter(os.Stdout)
}

func NewLoggerWithWriter(w io.Writer) *Logger {
	zerolog.TimeFieldFormat = time.RFC3339Nano
	return &Logger{base: zerolog.New(w).With().Timestamp().Logger()}
}

// FromRequest returns a logger that tags every event with the request id set
// by RequestContext. Without one it returns l unchanged.
func (l *Logger) FromRequest(r *http.Request) *Logger {
	id, ok := hlog.IDFromRequest(r)
	if !ok {
		return l
	}
	return &Logger{base: l.base.With().Str("request_id", id.String()).Logger()}
}

func (l *Logger) Info(message string, fields map[string]any) {
	l.base.Info().Fields(fields).Msg(message)
}

func (l *Logger) Warn(message string, fields map[string]any) {
	l.base.Warn().Fields(fields).Msg(message)
}

func (l *Logger) Error(message string, fields map[string]any) {
	l.base.Error().Fields(fields).Msg(message)
}
