package auth

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"newsletter-backend/internal/flash"
	"newsletter-backend/internal/observability"
	"newsletter-backend/internal/secret"
	"newsletter-backend/internal/session"
	"newsletter-backend/internal/signing"
	"newsletter-backend/internal/web"
)

const (
	DashboardPath = "/admin/dashboard"

	authFailedMessage = "Authentication failed"
	loggedOutMessage  = "You have successfully logged out."
	maxFormBodyBytes  = 1 << 16
)

// Authenticator is the login-time view of the Service.
type Authenticator interface {
	Validate(ctx context.Context, creds Credentials) (uuid.UUID, error)
}

type Handler struct {
	auth    Authenticator
	signer  *signing.Signer
	flash   *flash.Messenger
	pages   *web.Renderer
	logger  *observability.Logger
	metrics *observability.Metrics
}

func NewHandler(auth Authenticator, signer *signing.Signer, messenger *flash.Messenger, pages *web.Renderer, logger *observability.Logger, metrics *observability.Metrics) *Handler {
	return &Handler{
		auth:    auth,
		signer:  signer,
		flash:   messenger,
		pages:   pages,
		logger:  logger,
		metrics: metrics,
	}
}

// LoginForm renders the login page with the redirect error, if its tag
// checks out, and any pending flash messages.
func (h *Handler) LoginForm(w http.ResponseWriter, r *http.Request) {
	message, present, ok := h.signer.ErrorFromQuery(r.URL.Query())
	if present && !ok {
		// the payload is attacker controlled: it is never logged
		h.logger.Warn("redirect_tag_mismatch", map[string]any{"path": r.URL.Path})
	}

	data := web.LoginPage{
		Page:  web.Page{Title: "Login", Flashes: h.flash.Pop(w, r)},
		Error: message,
	}
	if err := h.pages.Render(w, http.StatusOK, web.PageLogin, data); err != nil {
		observability.ReportError(h.logger, r, "render_login_failed", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBodyBytes)
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	creds := Credentials{
		Username: r.PostForm.Get("username"),
		Password: secret.NewString(r.PostForm.Get("password")),
	}

	userID, err := h.auth.Validate(r.Context(), creds)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			h.metrics.RecordLoginAttempt("invalid")
			h.logger.FromRequest(r).Info("login_failed", map[string]any{"ip": observability.ClientIP(r)})
			h.signer.RedirectWithError(w, r, LoginPath, authFailedMessage)
			return
		}

		h.metrics.RecordLoginAttempt("error")
		observability.ReportError(h.logger, r, "login_unexpected_error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	sess, ok := session.FromContext(r.Context())
	if !ok {
		h.metrics.RecordLoginAttempt("error")
		observability.ReportError(h.logger, r, "login_session_failed", errNoSession)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	if err := sess.Login(r.Context(), userID); err != nil {
		h.metrics.RecordLoginAttempt("error")
		observability.ReportError(h.logger, r, "login_session_failed", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	h.metrics.RecordLoginAttempt("success")
	h.metrics.RecordSessionCreated()
	h.logger.Info("login_succeeded", map[string]any{"user_id": userID.String()})
	http.Redirect(w, r, DashboardPath, http.StatusSeeOther)
}

// Logout purges the session and sends the client back to the login page.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	sess, ok := session.FromContext(r.Context())
	if !ok {
		observability.ReportError(h.logger, r, "logout_failed", errNoSession)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	if err := sess.Logout(r.Context()); err != nil {
		observability.ReportError(h.logger, r, "logout_failed", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	if err := h.flash.Info(w, loggedOutMessage); err != nil {
		h.logger.Error("flash_send_failed", map[string]any{"error": err.Error()})
	}
	http.Redirect(w, r, LoginPath, http.StatusSeeOther)
}
