// Package admin serves the pages behind the authentication gate.
package admin

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"newsletter-backend/internal/auth"
	"newsletter-backend/internal/flash"
	"newsletter-backend/internal/observability"
	"newsletter-backend/internal/secret"
	"newsletter-backend/internal/web"
)

const (
	PasswordPath = "/admin/password"

	passwordChangedMessage = "Your password has been changed."
	maxFormBodyBytes       = 1 << 16
)

var errNoUser = errors.New("user id missing from request context")

// Users is what the admin pages need from auth.Service.
type Users interface {
	Username(ctx context.Context, userID uuid.UUID) (string, error)
	ChangePassword(ctx context.Context, userID uuid.UUID, current, next, confirm secret.String) error
}

type Handler struct {
	users  Users
	flash  *flash.Messenger
	pages  *web.Renderer
	logger *observability.Logger
}

func NewHandler(users Users, messenger *flash.Messenger, pages *web.Renderer, logger *observability.Logger) *Handler {
	return &Handler{users: users, flash: messenger, pages: pages, logger: logger}
}

func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		h.fail(w, r, "dashboard_failed", errNoUser)
		return
	}

	username, err := h.users.Username(r.Context(), userID)
	if err != nil {
		h.fail(w, r, "dashboard_failed", err)
		return
	}

	data := web.DashboardPage{
		Page:     web.Page{Title: "Admin dashboard", Flashes: h.flash.Pop(w, r)},
		Username: username,
	}
	if err := h.pages.Render(w, http.StatusOK, web.PageDashboard, data); err != nil {
		h.fail(w, r, "render_dashboard_failed", err)
	}
}

func (h *Handler) PasswordForm(w http.ResponseWriter, r *http.Request) {
	data := web.Page{Title: "Change Password", Flashes: h.flash.Pop(w, r)}
	if err := h.pages.Render(w, http.StatusOK, web.PagePassword, data); err != nil {
		h.fail(w, r, "render_password_failed", err)
	}
}

// ChangePassword always answers with a redirect back to the form; the
// outcome travels in a flash message.
func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		h.fail(w, r, "change_password_failed", errNoUser)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxFormBodyBytes)
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	err := h.users.ChangePassword(r.Context(), userID,
		secret.NewString(r.PostForm.Get("current_password")),
		secret.NewString(r.PostForm.Get("new_password")),
		secret.NewString(r.PostForm.Get("new_password_check")),
	)
	switch {
	case err == nil:
		h.logger.Info("password_changed", map[string]any{"user_id": userID.String()})
		h.redirectWithFlash(w, r, flash.Message{Level: flash.LevelInfo, Text: passwordChangedMessage})
	case errors.Is(err, auth.ErrPasswordConfirmation),
		errors.Is(err, auth.ErrPasswordLength),
		errors.Is(err, auth.ErrCurrentPassword):
		h.redirectWithFlash(w, r, flash.Message{Level: flash.LevelError, Text: err.Error()})
	default:
		h.fail(w, r, "change_password_failed", err)
	}
}

func (h *Handler) redirectWithFlash(w http.ResponseWriter, r *http.Request, msg flash.Message) {
	if err := h.flash.Send(w, msg); err != nil {
		h.logger.Error("flash_send_failed", map[string]any{"error": err.Error()})
	}
	http.Redirect(w, r, PasswordPath, http.StatusSeeOther)
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, event string, err error) {
	observability.ReportError(h.logger, r, event, err)
	http.Error(w, "Internal Server Error", http.StatusInternalServerError)
}
