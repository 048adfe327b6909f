package csrf

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"net/http"
)

// tokenLength is the amount of random bytes a token is generated from (256 bits of entropy)
var tokenLength = 32

// Guard implements the double-submit CSRF pattern: a token is handed out both as an HttpOnly cookie
// and in the response body, and every mutating request has to echo it back in a request header.
// The guard itself is stateless; the current token is simply whatever cookie the browser holds.
type Guard struct {
	CookieName string
	HeaderName string

	// MaxAge is the cookie lifetime in seconds
	MaxAge int

	// Secure defines whether the cookie is restricted to HTTPS
	Secure bool
}

// Issue generates a new cryptographically unpredictable token, binds it to the requesting browser
// via a cookie and returns it so it can be included in the response body
func (guard *Guard) Issue(writer http.ResponseWriter) (string, error) {
	buf := make([]byte, tokenLength)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	token := base64.RawURLEncoding.EncodeToString(buf)

	http.SetCookie(writer, &http.Cookie{
		Name:     guard.CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   guard.MaxAge,
		Secure:   guard.Secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return token, nil
}

// Verify compares the token cookie against the token header of the given request.
// It fails closed: a missing cookie, a missing header or any inequality rejects the request.
func (guard *Guard) Verify(request *http.Request) bool {
	cookie, err := request.Cookie(guard.CookieName)
	if err != nil || cookie.Value == "" {
		return false
	}
	header := request.Header.Get(guard.HeaderName)
	if header == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(cookie.Value), []byte(header)) == 1
}
