// Package flash carries one-shot messages across a redirect in a signed
// cookie. A message is shown on the next page render and then discarded.
package flash

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"newsletter-backend/internal/secret"
)

const (
	CookieName = "_flash"
	maxAge     = 5 * time.Minute
	issuer     = "newsletter-backend/flash"
)

type Level string

const (
	LevelInfo  Level = "info"
	LevelError Level = "error"
)

type Message struct {
	Level Level  `json:"level"`
	Text  string `json:"text"`
}

type claims struct {
	Messages []Message `json:"messages"`
	jwt.RegisteredClaims
}

type Messenger struct {
	key    []byte
	secure bool
	now    func() time.Time
}

func NewMessenger(key secret.Key, secureCookie bool) *Messenger {
	return &Messenger{key: key.Bytes(), secure: secureCookie, now: time.Now}
}

func (m *Messenger) Info(w http.ResponseWriter, text string) error {
	return m.Send(w, Message{Level: LevelInfo, Text: text})
}

func (m *Messenger) Error(w http.ResponseWriter, text string) error {
	return m.Send(w, Message{Level: LevelError, Text: text})
}

// Send stores messages for the next request, replacing any pending ones.
func (m *Messenger) Send(w http.ResponseWriter, messages ...Message) error {
	now := m.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Messages: messages,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(maxAge)),
		},
	})
	signed, err := token.SignedString(m.key)
	if err != nil {
		return fmt.Errorf("sign flash cookie: %w", err)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    signed,
		Path:     "/",
		MaxAge:   int(maxAge.Seconds()),
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// Pop returns the pending messages and clears the cookie. A forged, expired
// or malformed cookie yields no messages.
func (m *Messenger) Pop(w http.ResponseWriter, r *http.Request) []Message {
	c, err := r.Cookie(CookieName)
	if err != nil {
		return nil
	}
	m.clear(w)

	messages, err := m.parse(c.Value)
	if err != nil {
		return nil
	}
	return messages
}

func (m *Messenger) parse(raw string) ([]Message, error) {
	var c claims
	_, err := jwt.ParseWithClaims(raw, &c, func(*jwt.Token) (any, error) {
		return m.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return nil, err
	}
	if len(c.Messages) == 0 {
		return nil, errors.New("empty flash")
	}
	return c.Messages, nil
}

func (m *Messenger) clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
}
