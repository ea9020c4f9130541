package handler

import (
	"net/http"
	"time"
)

// SessionCookieName is the cookie carrying the session token. HttpOnly keeps
// it out of reach of client script; the token never appears in a response
// body.
const SessionCookieName = "access_token"

// setSessionCookie emits the session token as an HTTP-only cookie scoped to
// the whole origin. Max-Age mirrors the token TTL. Secure is set only in
// production so local development over plain HTTP still works.
func setSessionCookie(w http.ResponseWriter, token string, ttl time.Duration, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   secure,
	})
}

// clearSessionCookie expires the session cookie. Attributes must match the
// ones used when setting it or browsers keep the old cookie around.
func clearSessionCookie(w http.ResponseWriter, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   secure,
	})
}
