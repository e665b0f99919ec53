package admin

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/steinfletcher/apitest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"newsletter-backend/internal/auth"
	"newsletter-backend/internal/flash"
	"newsletter-backend/internal/observability"
	"newsletter-backend/internal/secret"
	"newsletter-backend/internal/web"
)

type fakeUsers struct {
	username  string
	err       error
	changeErr error
	changed   []string
}

func (f *fakeUsers) Username(context.Context, uuid.UUID) (string, error) {
	return f.username, f.err
}

func (f *fakeUsers) ChangePassword(_ context.Context, _ uuid.UUID, _, next, _ secret.String) error {
	if f.changeErr != nil {
		return f.changeErr
	}
	f.changed = append(f.changed, next.Expose())
	return nil
}

type fixture struct {
	handler   *Handler
	messenger *flash.Messenger
	userID    uuid.UUID
}

func newFixture(t *testing.T, users Users) *fixture {
	t.Helper()
	key, err := secret.NewKey("0123456789abcdef0123456789abcdef")
	require.NoError(t, err)
	pages, err := web.NewRenderer()
	require.NoError(t, err)

	messenger := flash.NewMessenger(key, false)
	return &fixture{
		handler:   NewHandler(users, messenger, pages, observability.NewLoggerWithWriter(io.Discard)),
		messenger: messenger,
		userID:    uuid.New(),
	}
}

// asUser stands in for the gate.
func (f *fixture) asUser(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next(w, r.WithContext(auth.WithUserID(r.Context(), f.userID)))
	})
}

// flashText reads back the flash cookie set on rec.
func (f *fixture) flashText(t *testing.T, res *http.Response) flash.Message {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range res.Cookies() {
		req.AddCookie(c)
	}
	messages := f.messenger.Pop(httptest.NewRecorder(), req)
	require.Len(t, messages, 1)
	return messages[0]
}

func TestDashboardGreetsUser(t *testing.T) {
	f := newFixture(t, &fakeUsers{username: "admin"})

	apitest.New().
		Handler(f.asUser(f.handler.Dashboard)).
		Get("/admin/dashboard").
		Expect(t).
		Status(http.StatusOK).
		Assert(func(res *http.Response, _ *http.Request) error {
			body, err := io.ReadAll(res.Body)
			require.NoError(t, err)
			assert.Contains(t, string(body), "Welcome admin!")
			return nil
		}).
		End()
}

func TestDashboardWithoutGateIsServerError(t *testing.T) {
	f := newFixture(t, &fakeUsers{username: "admin"})

	apitest.New().
		HandlerFunc(f.handler.Dashboard).
		Get("/admin/dashboard").
		Expect(t).
		Status(http.StatusInternalServerError).
		End()
}

func TestDashboardStoreFailure(t *testing.T) {
	f := newFixture(t, &fakeUsers{err: errors.New("db down")})

	apitest.New().
		Handler(f.asUser(f.handler.Dashboard)).
		Get("/admin/dashboard").
		Expect(t).
		Status(http.StatusInternalServerError).
		End()
}

func TestPasswordForm(t *testing.T) {
	f := newFixture(t, &fakeUsers{})

	apitest.New().
		Handler(f.asUser(f.handler.PasswordForm)).
		Get("/admin/password").
		Expect(t).
		Status(http.StatusOK).
		Assert(func(res *http.Response, _ *http.Request) error {
			body, err := io.ReadAll(res.Body)
			require.NoError(t, err)
			assert.Contains(t, string(body), `name="new_password_check"`)
			return nil
		}).
		End()
}

func TestChangePasswordOutcomes(t *testing.T) {
	tests := []struct {
		name      string
		changeErr error
		want      flash.Message
	}{
		{
			name: "success",
			want: flash.Message{Level: flash.LevelInfo, Text: "Your password has been changed."},
		},
		{
			name:      "confirmation mismatch",
			changeErr: auth.ErrPasswordConfirmation,
			want:      flash.Message{Level: flash.LevelError, Text: "You entered two different new passwords - the field values must match."},
		},
		{
			name:      "length",
			changeErr: auth.ErrPasswordLength,
			want:      flash.Message{Level: flash.LevelError, Text: "The new password must be between 12 and 128 characters long."},
		},
		{
			name:      "wrong current",
			changeErr: auth.ErrCurrentPassword,
			want:      flash.Message{Level: flash.LevelError, Text: "The current password is incorrect."},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, &fakeUsers{changeErr: tt.changeErr})

			res := apitest.New().
				Handler(f.asUser(f.handler.ChangePassword)).
				Post("/admin/password").
				FormData("current_password", "old-password-123").
				FormData("new_password", "new-password-456").
				FormData("new_password_check", "new-password-456").
				Expect(t).
				Status(http.StatusSeeOther).
				Header("Location", "/admin/password").
				CookiePresent(flash.CookieName).
				End()

			assert.Equal(t, tt.want, f.flashText(t, res.Response))
		})
	}
}

func TestChangePasswordUnexpectedError(t *testing.T) {
	f := newFixture(t, &fakeUsers{changeErr: &auth.UnexpectedError{Err: errors.New("redis down")}})

	apitest.New().
		Handler(f.asUser(f.handler.ChangePassword)).
		Post("/admin/password").
		FormData("current_password", "old-password-123").
		Expect(t).
		Status(http.StatusInternalServerError).
		End()
}
