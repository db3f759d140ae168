package server

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/musicman/internal/shared"
)

const spotifyLogoutURL = "https://accounts.spotify.com/logout"

// UserHandler serves liveness, session status and logout endpoints.
type UserHandler struct {
	sessions    SessionManager
	handles     *Handles
	cookies     cookieSettings
	frontendURL string
	logger      *log.Logger
}

func NewUserHandler(sessions SessionManager, handles *Handles, cookies cookieSettings, frontendURL string, logger *log.Logger) *UserHandler {
	return &UserHandler{
		sessions:    sessions,
		handles:     handles,
		cookies:     cookies,
		frontendURL: strings.TrimRight(frontendURL, "/"),
		logger:      shared.WithLogger(logger, "component", "user"),
	}
}

func (h *UserHandler) Routes() []string {
	return []string{
		"GET /api/test",
		"GET /api/auth-status",
		"POST /api/logout",
		"GET /logout",
	}
}

func (h *UserHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/api/test":
		writeText(w, http.StatusOK, "Backend is reachable!")
	case "/api/auth-status":
		h.authStatus(w, r)
	case "/api/logout":
		h.logout(w, r)
	case "/logout":
		h.logoutRedirect(w, r)
	default:
		http.NotFound(w, r)
	}
}

func (h *UserHandler) authStatus(w http.ResponseWriter, r *http.Request) {
	userID, ok := sessionUser(h.handles, r)
	if !ok || !h.sessions.IsValidSession(userID) {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "authenticated",
		"userId": userID,
	})
}

func (h *UserHandler) logout(w http.ResponseWriter, r *http.Request) {
	userID, ok := sessionUser(h.handles, r)
	if !ok {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	h.clear(userID)
	setCookies(w, h.cookies.logout())
	w.WriteHeader(http.StatusOK)
}

// logoutRedirect clears any session and sends the browser through the Spotify logout page back to the frontend.
func (h *UserHandler) logoutRedirect(w http.ResponseWriter, r *http.Request) {
	if userID, ok := sessionUser(h.handles, r); ok {
		h.clear(userID)
	}
	setCookies(w, h.cookies.logout())

	target := spotifyLogoutURL + "?continue=" + url.QueryEscape(h.frontendURL+"/login")
	http.Redirect(w, r, target, http.StatusFound)
}

// clear drops the cached tokens and every handle of userID, signing out all of the user's browsers.
func (h *UserHandler) clear(userID string) {
	h.sessions.ClearUserSession(userID)
	h.handles.RevokeUser(userID)
	h.logger.Info("logged out", "user", userID)
}
