package signing

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"newsletter-backend/internal/secret"
)

func newTestSigner(t *testing.T, raw string, opts ...Option) *Signer {
	t.Helper()
	key, err := secret.NewKey(raw)
	require.NoError(t, err)
	return NewSigner(key, opts...)
}

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func TestSignVerify(t *testing.T) {
	s := newTestSigner(t, strings.Repeat("x", 32))

	tag := s.sign(purposeCookie, "hello")
	assert.Len(t, tag, 64)
	assert.True(t, s.verify(purposeCookie, "hello", tag))
	assert.False(t, s.verify(purposeCookie, "hello!", tag))
	assert.False(t, s.verify(purposeCookie, "hello", "zz"))
	assert.False(t, s.verify(purposeCookie, "hello", strings.Repeat("g", 64)))
}

func TestSign_PurposesDoNotOverlap(t *testing.T) {
	s := newTestSigner(t, strings.Repeat("x", 32))

	assert.NotEqual(t, s.sign(purposeCookie, "abc"), s.sign(purposeRedirect, "abc"))
	assert.False(t, s.verify(purposeRedirect, "abc", s.sign(purposeCookie, "abc")))
	assert.False(t, s.verify(purposeCookie, "abc", s.sign(purposeRedirect, "abc")))
}

func TestCookieTagIsNotARedirectTag(t *testing.T) {
	s := newTestSigner(t, strings.Repeat("x", 32))

	signed := s.SignValue("session-id")
	i := strings.LastIndexByte(signed, '.')
	values := url.Values{
		ErrorParam:    {signed[:i]},
		IssuedAtParam: {strconv.FormatInt(time.Now().Unix(), 10)},
		TagParam:      {signed[i+1:]},
	}

	message, present, ok := s.ErrorFromQuery(values)
	assert.True(t, present)
	assert.False(t, ok)
	assert.Empty(t, message)
}

func TestVerify_DifferentKeyRejected(t *testing.T) {
	a := newTestSigner(t, strings.Repeat("a", 32))
	b := newTestSigner(t, strings.Repeat("b", 32))

	_, ok := b.VerifyMessage(a.EncodeMessage("Authentication failed"))
	assert.False(t, ok)
}

func TestEncodeMessage_RoundTrip(t *testing.T) {
	s := newTestSigner(t, strings.Repeat("x", 32))

	messages := []string{
		"Authentication failed",
		"",
		"a&b=c?d#e",
		"ünïcödé ✓",
		"<script>alert(1)</script>",
		"line\nbreak",
	}
	for _, m := range messages {
		got, ok := s.VerifyMessage(s.EncodeMessage(m))
		require.True(t, ok, m)
		assert.Equal(t, m, got)
	}
}

func TestEncodeMessage_SingleByteMutationRejected(t *testing.T) {
	s := newTestSigner(t, strings.Repeat("x", 32))
	signed := s.EncodeMessage("Authentication failed")

	for i := 0; i < len(signed.Payload); i++ {
		mutated := signed
		b := []byte(signed.Payload)
		b[i] ^= 0x01
		mutated.Payload = string(b)
		_, ok := s.VerifyMessage(mutated)
		assert.False(t, ok, "payload byte %d", i)
	}
	for i := 0; i < len(signed.Tag); i++ {
		mutated := signed
		b := []byte(signed.Tag)
		b[i] ^= 0x01
		mutated.Tag = string(b)
		_, ok := s.VerifyMessage(mutated)
		assert.False(t, ok, "tag byte %d", i)
	}
}

func TestVerifyMessage_IssuedAtIsSigned(t *testing.T) {
	s := newTestSigner(t, strings.Repeat("x", 32))
	signed := s.EncodeMessage("Authentication failed")

	issued, err := strconv.ParseInt(signed.IssuedAt, 10, 64)
	require.NoError(t, err)
	signed.IssuedAt = strconv.FormatInt(issued+1, 10)

	_, ok := s.VerifyMessage(signed)
	assert.False(t, ok)
}

func TestVerifyMessage_Expiry(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	s := newTestSigner(t, strings.Repeat("x", 32), WithClock(clock.Now), WithMessageTTL(time.Minute))
	signed := s.EncodeMessage("Authentication failed")

	clock.now = clock.now.Add(59 * time.Second)
	_, ok := s.VerifyMessage(signed)
	assert.True(t, ok)

	clock.now = clock.now.Add(2 * time.Second)
	_, ok = s.VerifyMessage(signed)
	assert.False(t, ok, "older than the message TTL")
}

func TestVerifyMessage_FutureIssuedAtRejected(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	s := newTestSigner(t, strings.Repeat("x", 32), WithClock(clock.Now))

	clock.now = clock.now.Add(time.Hour)
	signed := s.EncodeMessage("Authentication failed")
	clock.now = clock.now.Add(-time.Hour)

	_, ok := s.VerifyMessage(signed)
	assert.False(t, ok)
}

func TestVerifyMessage_MalformedIssuedAt(t *testing.T) {
	s := newTestSigner(t, strings.Repeat("x", 32))
	signed := SignedMessage{Payload: "x", IssuedAt: "yesterday"}
	signed.Tag = s.sign(purposeRedirect, signed.macInput())

	_, ok := s.VerifyMessage(signed)
	assert.False(t, ok)
}

func TestSignValue(t *testing.T) {
	s := newTestSigner(t, strings.Repeat("x", 32))

	signed := s.SignValue("abc.def")
	value, ok := s.UnsignValue(signed)
	require.True(t, ok)
	assert.Equal(t, "abc.def", value)

	_, ok = s.UnsignValue("abc.def")
	assert.False(t, ok)
	_, ok = s.UnsignValue("")
	assert.False(t, ok)
	_, ok = s.UnsignValue("other" + signed[len("abc.def"):])
	assert.False(t, ok)
}

func TestRedirectWithError(t *testing.T) {
	s := newTestSigner(t, strings.Repeat("x", 32))
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/login", nil)

	s.RedirectWithError(rec, req, "/login", "Authentication failed")

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	location, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "/login", location.Path)
	assert.NotEmpty(t, location.Query().Get(IssuedAtParam))

	message, present, ok := s.ErrorFromQuery(location.Query())
	assert.True(t, present)
	assert.True(t, ok)
	assert.Equal(t, "Authentication failed", message)
}

func TestErrorFromQuery(t *testing.T) {
	s := newTestSigner(t, strings.Repeat("x", 32))

	_, present, ok := s.ErrorFromQuery(url.Values{})
	assert.False(t, present)
	assert.False(t, ok)

	forged := url.Values{
		ErrorParam:    {"You won a prize"},
		IssuedAtParam: {strconv.FormatInt(time.Now().Unix(), 10)},
		TagParam:      {strings.Repeat("0", 64)},
	}
	message, present, ok := s.ErrorFromQuery(forged)
	assert.True(t, present)
	assert.False(t, ok)
	assert.Empty(t, message)

	_, present, ok = s.ErrorFromQuery(url.Values{ErrorParam: {"no tag"}})
	assert.True(t, present)
	assert.False(t, ok)

	signed := s.EncodeMessage("Authentication failed")
	_, _, ok = s.ErrorFromQuery(url.Values{ErrorParam: {"Authentication failed"}, TagParam: {signed.Tag}})
	assert.False(t, ok, "issue time is required")
}

func TestErrorFromQuery_StaleURLRejected(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	s := newTestSigner(t, strings.Repeat("x", 32), WithClock(clock.Now))

	location, err := url.Parse(s.ErrorRedirectURL("/login", "Authentication failed"))
	require.NoError(t, err)

	clock.now = clock.now.Add(DefaultMessageTTL + time.Second)
	message, present, ok := s.ErrorFromQuery(location.Query())
	assert.True(t, present)
	assert.False(t, ok)
	assert.Empty(t, message)
}

func TestErrorRedirectURL_ExistingQuery(t *testing.T) {
	s := newTestSigner(t, strings.Repeat("x", 32))

	u := s.ErrorRedirectURL("/login?next=%2Fadmin", "oops")
	parsed, err := url.Parse(u)
	require.NoError(t, err)
	assert.Equal(t, "/admin", parsed.Query().Get("next"))
	message, _, ok := s.ErrorFromQuery(parsed.Query())
	assert.True(t, ok)
	assert.Equal(t, "oops", message)
}
