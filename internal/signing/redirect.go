package signing

import (
	"net/http"
	"net/url"
	"strings"
)

const (
	ErrorParam    = "error"
	IssuedAtParam = "ts"
	TagParam      = "tag"
)

// ErrorRedirectURL builds path?error=<payload>&ts=<issued>&tag=<tag>.
func (s *Signer) ErrorRedirectURL(path, message string) string {
	m := s.EncodeMessage(message)

	var b strings.Builder
	b.WriteString(path)
	if strings.Contains(path, "?") {
		b.WriteByte('&')
	} else {
		b.WriteByte('?')
	}
	b.WriteString(ErrorParam + "=" + m.Payload)
	b.WriteString("&" + IssuedAtParam + "=" + m.IssuedAt)
	b.WriteString("&" + TagParam + "=" + m.Tag)
	return b.String()
}

// RedirectWithError answers with 303 See Other towards a signed error URL.
func (s *Signer) RedirectWithError(w http.ResponseWriter, r *http.Request, path, message string) {
	http.Redirect(w, r, s.ErrorRedirectURL(path, message), http.StatusSeeOther)
}

// ErrorFromQuery extracts a verified, unexpired message from query values.
// present is true when the request carried an error parameter at all, so
// callers can tell a missing message from a rejected one.
func (s *Signer) ErrorFromQuery(values url.Values) (message string, present, ok bool) {
	if !values.Has(ErrorParam) {
		return "", false, false
	}
	message, ok = s.VerifyMessage(SignedMessage{
		Payload:  url.QueryEscape(values.Get(ErrorParam)),
		IssuedAt: values.Get(IssuedAtParam),
		Tag:      values.Get(TagParam),
	})
	return message, true, ok
}
