// Package signing attaches keyed integrity tags to values that travel
// through the client, such as redirect messages and cookie values.
package signing

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"strconv"
	"strings"
	"time"

	"newsletter-backend/internal/secret"
)

// TagSize is the length of a decoded tag in bytes.
const TagSize = sha256.Size

// DefaultMessageTTL bounds how long a signed redirect message is shown.
const DefaultMessageTTL = 5 * time.Minute

// maxClockSkew tolerates issue times slightly ahead of the local clock when
// several instances share the key.
const maxClockSkew = 30 * time.Second

// Every MAC input starts with a purpose label, so a tag minted for one use
// never verifies for another.
const (
	purposeRedirect = "redirect"
	purposeCookie   = "cookie"
)

type Signer struct {
	key        []byte
	messageTTL time.Duration
	now        func() time.Time
}

type Option func(*Signer)

// WithMessageTTL overrides DefaultMessageTTL.
func WithMessageTTL(ttl time.Duration) Option {
	return func(s *Signer) {
		if ttl > 0 {
			s.messageTTL = ttl
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Signer) {
		s.now = now
	}
}

func NewSigner(key secret.Key, opts ...Option) *Signer {
	s := &Signer{
		key:        key.Bytes(),
		messageTTL: DefaultMessageTTL,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// sign returns hex(HMAC-SHA256(key, purpose || 0x00 || payload)).
func (s *Signer) sign(purpose, payload string) string {
	return hex.EncodeToString(s.mac(purpose, payload))
}

func (s *Signer) verify(purpose, payload, tag string) bool {
	if len(tag) != hex.EncodedLen(TagSize) {
		return false
	}
	got, err := hex.DecodeString(tag)
	if err != nil {
		return false
	}
	return hmac.Equal(got, s.mac(purpose, payload))
}

func (s *Signer) mac(purpose, payload string) []byte {
	m := hmac.New(sha256.New, s.key)
	_, _ = m.Write([]byte(purpose))
	_, _ = m.Write([]byte{0})
	_, _ = m.Write([]byte(payload))
	return m.Sum(nil)
}

// SignedMessage is a redirect message as it travels in the query string.
type SignedMessage struct {
	// Payload is the URL-encoded message.
	Payload string
	// IssuedAt is the signing time in Unix seconds.
	IssuedAt string
	Tag      string
}

func (m SignedMessage) macInput() string {
	return m.Payload + "|" + m.IssuedAt
}

// EncodeMessage signs a human-readable message together with the current
// time.
func (s *Signer) EncodeMessage(message string) SignedMessage {
	m := SignedMessage{
		Payload:  url.QueryEscape(message),
		IssuedAt: strconv.FormatInt(s.now().Unix(), 10),
	}
	m.Tag = s.sign(purposeRedirect, m.macInput())
	return m
}

// VerifyMessage returns the decoded message only when the tag matches and
// the message is younger than the message TTL.
func (s *Signer) VerifyMessage(m SignedMessage) (string, bool) {
	if !s.verify(purposeRedirect, m.macInput(), m.Tag) {
		return "", false
	}
	issued, err := strconv.ParseInt(m.IssuedAt, 10, 64)
	if err != nil {
		return "", false
	}
	age := s.now().Sub(time.Unix(issued, 0))
	if age > s.messageTTL || age < -maxClockSkew {
		return "", false
	}
	message, err := url.QueryUnescape(m.Payload)
	if err != nil {
		return "", false
	}
	return message, true
}

// SignValue returns value with its tag appended, for use as a cookie value.
func (s *Signer) SignValue(value string) string {
	return value + "." + s.sign(purposeCookie, value)
}

// UnsignValue reverses SignValue. The tag is always the last segment.
func (s *Signer) UnsignValue(signed string) (string, bool) {
	i := strings.LastIndexByte(signed, '.')
	if i <= 0 {
		return "", false
	}
	value, tag := signed[:i], signed[i+1:]
	if !s.verify(purposeCookie, value, tag) {
		return "", false
	}
	return value, true
}
