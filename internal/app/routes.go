package app

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"newsletter-backend/internal/admin"
	"newsletter-backend/internal/auth"
	"newsletter-backend/internal/flash"
	"newsletter-backend/internal/maintenance"
	"newsletter-backend/internal/observability"
	"newsletter-backend/internal/secret"
	"newsletter-backend/internal/session"
	"newsletter-backend/internal/signing"
	"newsletter-backend/internal/web"
)

type Pinger interface {
	PingContext(ctx context.Context) error
}

// Deps are the long-lived components the HTTP surface is built from.
type Deps struct {
	Logger  *observability.Logger
	Metrics *observability.Metrics
	Proxies observability.TrustedProxies
	Key     secret.Key
	Store   session.Store
	Session session.Config
	Auth    *auth.Service
	Limiter *auth.LoginRateLimiter
	Cleanup *maintenance.CleanupHandler
	DB      Pinger
}

func Routes(d Deps) (http.Handler, error) {
	pages, err := web.NewRenderer()
	if err != nil {
		return nil, fmt.Errorf("load templates: %w", err)
	}

	signer := signing.NewSigner(d.Key)
	messenger := flash.NewMessenger(d.Key, d.Session.SecureCookie)
	sessions := session.NewManager(d.Store, signer, d.Session)

	authHandler := auth.NewHandler(d.Auth, signer, messenger, pages, d.Logger, d.Metrics)
	adminHandler := admin.NewHandler(d.Auth, messenger, pages, d.Logger)

	adminMux := http.NewServeMux()
	adminMux.HandleFunc("GET /admin/dashboard", adminHandler.Dashboard)
	adminMux.HandleFunc("GET /admin/password", adminHandler.PasswordForm)
	adminMux.HandleFunc("POST /admin/password", adminHandler.ChangePassword)
	adminMux.HandleFunc("POST /admin/logout", authHandler.Logout)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", homeHandler(pages, d.Logger))
	mux.HandleFunc("GET /health_check", healthHandler(d.DB))
	mux.Handle("GET /metrics", d.Metrics.Handler())
	mux.HandleFunc("GET /login", authHandler.LoginForm)
	mux.Handle("POST /login", d.Limiter.Middleware(http.HandlerFunc(authHandler.Login)))
	mux.Handle("/admin/", auth.Gate(d.Logger, d.Metrics, adminMux))
	mux.HandleFunc("GET /internal/maintenance/cleanup", d.Cleanup.Handle)
	mux.HandleFunc("POST /internal/maintenance/cleanup", d.Cleanup.Handle)

	return observability.Chain(mux,
		observability.RequestContext(d.Logger),
		observability.ResolveClientIP(d.Proxies),
		observability.AccessLog(),
		observability.Recover(d.Logger),
		sessions.Middleware,
	), nil
}

func homeHandler(pages *web.Renderer, logger *observability.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := pages.Render(w, http.StatusOK, web.PageHome, web.Page{Title: "Home"}); err != nil {
			observability.ReportError(logger, r, "render_home_failed", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		}
	}
}

func healthHandler(database Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		body := map[string]any{"status": "ok", "time": time.Now().UTC().Format(time.RFC3339)}
		if err := database.PingContext(ctx); err != nil {
			status = http.StatusServiceUnavailable
			body = map[string]any{"status": "degraded", "time": time.Now().UTC().Format(time.RFC3339)}
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	}
}
