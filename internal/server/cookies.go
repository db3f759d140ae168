package server

import (
	"net/http"
	"time"
)

const (
	// HandleCookie carries the opaque handle that authenticates the browser session.
	HandleCookie = "musicman_sid"
	// SessionCookie tells the frontend which user is signed in. It is informational and never trusted.
	SessionCookie = "spotify_session"
	stateCookie   = "spotify_oauth_state"

	sessionCookieTTL = 30 * 24 * time.Hour
	stateCookieTTL   = 10 * time.Minute
)

type cookieSettings struct {
	domain string
	secure bool
}

func (c cookieSettings) cookie(name, value string, ttl time.Duration, httpOnly bool) *http.Cookie {
	maxAge := -1
	if value != "" {
		maxAge = int(ttl.Seconds())
	}
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Domain:   c.domain,
		MaxAge:   maxAge,
		HttpOnly: httpOnly,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// login returns the HttpOnly handle cookie plus the user id cookie the frontend reads.
func (c cookieSettings) login(handle, userID string) []*http.Cookie {
	return []*http.Cookie{
		c.cookie(HandleCookie, handle, sessionCookieTTL, true),
		c.cookie(SessionCookie, userID, sessionCookieTTL, false),
	}
}

func (c cookieSettings) logout() []*http.Cookie {
	return []*http.Cookie{
		c.cookie(HandleCookie, "", 0, true),
		c.cookie(SessionCookie, "", 0, false),
	}
}

func (c cookieSettings) state(value string) *http.Cookie {
	s := c.cookie(stateCookie, value, stateCookieTTL, true)
	s.Domain = ""
	return s
}

func (c cookieSettings) expireState() *http.Cookie {
	s := c.cookie(stateCookie, "", 0, true)
	s.Domain = ""
	return s
}

func setCookies(w http.ResponseWriter, cookies []*http.Cookie) {
	for _, c := range cookies {
		http.SetCookie(w, c)
	}
}

// sessionUser resolves the request's handle cookie to a user id. The frontend's user id cookie is ignored.
func sessionUser(handles *Handles, r *http.Request) (string, bool) {
	c, err := r.Cookie(HandleCookie)
	if err != nil {
		return "", false
	}
	return handles.Lookup(c.Value)
}
