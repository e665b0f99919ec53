package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"newsletter-backend/internal/signing"
)

const (
	DefaultCookieName = "session_id"
	DefaultTTL        = time.Hour
)

type Config struct {
	CookieName   string
	TTL          time.Duration
	SecureCookie bool
}

// Manager binds a Store to the HTTP layer: it reads the signed session
// cookie and hands each request its own Session.
type Manager struct {
	store  Store
	signer *signing.Signer
	cfg    Config
}

func NewManager(store Store, signer *signing.Signer, cfg Config) *Manager {
	if cfg.CookieName == "" {
		cfg.CookieName = DefaultCookieName
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	return &Manager{store: store, signer: signer, cfg: cfg}
}

// state is the JSON document persisted per session.
type state struct {
	UserID *uuid.UUID `json:"user_id,omitempty"`
}

// Session is a per-request view over one stored session. It does not cache
// anything across requests.
type Session struct {
	m  *Manager
	w  http.ResponseWriter
	id string
}

// Open builds the Session for r. A missing or badly signed cookie yields an
// anonymous session with no id.
func (m *Manager) Open(w http.ResponseWriter, r *http.Request) *Session {
	s := &Session{m: m, w: w}
	if c, err := r.Cookie(m.cfg.CookieName); err == nil {
		if id, ok := m.signer.UnsignValue(c.Value); ok {
			s.id = id
		}
	}
	return s
}

func (m *Manager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s := m.Open(w, r)
		next.ServeHTTP(w, r.WithContext(NewContext(r.Context(), s)))
	})
}

// ID returns the current session identifier, empty for anonymous clients.
func (s *Session) ID() string {
	return s.id
}

// UserID returns the authenticated user, if any. Errors are store failures
// only; an unknown or expired session is reported as ok == false.
func (s *Session) UserID(ctx context.Context) (uuid.UUID, bool, error) {
	if s.id == "" {
		return uuid.Nil, false, nil
	}

	st, found, err := s.load(ctx)
	if err != nil {
		return uuid.Nil, false, err
	}
	if !found || st.UserID == nil {
		return uuid.Nil, false, nil
	}

	if err := s.m.store.Touch(ctx, s.id, s.m.cfg.TTL); err != nil {
		return uuid.Nil, false, fmt.Errorf("touch session: %w", err)
	}
	return *st.UserID, true, nil
}

// Login records userID in the session. Any existing session is moved under a
// new identifier first, so an id seen before authentication never carries
// the authenticated state.
func (s *Session) Login(ctx context.Context, userID uuid.UUID) error {
	id := s.id
	if id != "" {
		renewed, err := s.m.store.Renew(ctx, id, s.m.cfg.TTL)
		switch {
		case errors.Is(err, ErrNotFound):
			id = ""
		case err != nil:
			return fmt.Errorf("renew session: %w", err)
		default:
			id = renewed
		}
	}
	if id == "" {
		var err error
		if id, err = NewID(); err != nil {
			return err
		}
	}

	data, err := json.Marshal(state{UserID: &userID})
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := s.m.store.Save(ctx, id, data, s.m.cfg.TTL); err != nil {
		return fmt.Errorf("save session: %w", err)
	}

	s.id = id
	s.setCookie(id)
	return nil
}

// Logout purges the whole session and expires the cookie.
func (s *Session) Logout(ctx context.Context) error {
	if s.id != "" {
		if err := s.m.store.Delete(ctx, s.id); err != nil {
			return fmt.Errorf("delete session: %w", err)
		}
	}
	s.id = ""
	s.clearCookie()
	return nil
}

func (s *Session) load(ctx context.Context) (state, bool, error) {
	raw, found, err := s.m.store.Load(ctx, s.id)
	if err != nil {
		return state{}, false, fmt.Errorf("load session: %w", err)
	}
	if !found {
		return state{}, false, nil
	}

	var st state
	if err := json.Unmarshal(raw, &st); err != nil {
		return state{}, false, fmt.Errorf("decode session: %w", err)
	}
	return st, true, nil
}

func (s *Session) setCookie(id string) {
	http.SetCookie(s.w, &http.Cookie{
		Name:     s.m.cfg.CookieName,
		Value:    s.m.signer.SignValue(id),
		Path:     "/",
		HttpOnly: true,
		Secure:   s.m.cfg.SecureCookie,
		SameSite: http.SameSiteStrictMode,
	})
}

func (s *Session) clearCookie() {
	http.SetCookie(s.w, &http.Cookie{
		Name:     s.m.cfg.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   s.m.cfg.SecureCookie,
		SameSite: http.SameSiteStrictMode,
	})
}

type ctxKey struct{}

func NewContext(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

func FromContext(ctx context.Context) (*Session, bool) {
	s, ok := ctx.Value(ctxKey{}).(*Session)
	return s, ok && s != nil
}
