package api

import (
	"context"
	"net/http"
	"sync"

	"github.com/rs/zerolog/log"

	"newsletter-backend/internal/app"
)

// build runs once per warm instance. A failed build is not retried; the
// platform recycles the instance instead.
var build = sync.OnceValues(func() (*app.Runtime, error) {
	runtime, err := app.Build(context.Background(), app.Options{})
	if err != nil {
		log.Error().Err(err).Msg("bootstrap_failed")
	}
	return runtime, err
})

func Handler(w http.ResponseWriter, r *http.Request) {
	runtime, err := build()
	if err != nil {
		http.Error(w, "Service Unavailable", http.StatusServiceUnavailable)
		return
	}

	runtime.Handler.ServeHTTP(w, r)
}
