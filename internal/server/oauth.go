package server

import (
	"context"
	"crypto/subtle"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/musicman/internal/services"
	"github.com/desertthunder/musicman/internal/shared"
	"golang.org/x/oauth2"
)

const (
	authorizePath = "/oauth2/authorization/spotify"
	callbackPath  = "/login/oauth2/code/spotify"
)

// OAuthHandler drives the authorization code login and seeds the session manager.
// Implements the Handler interface for registration with a Router.
type OAuthHandler struct {
	oauth       services.OAuthService
	spotify     services.Service
	sessions    SessionManager
	handles     *Handles
	cookies     cookieSettings
	frontendURL string
	logger      *log.Logger
	newState    func() (string, error)
	now         func() time.Time
}

// NewOAuthHandler creates a new OAuth handler.
func NewOAuthHandler(oauth services.OAuthService, spotify services.Service, sessions SessionManager, handles *Handles, cookies cookieSettings, frontendURL string, logger *log.Logger) *OAuthHandler {
	return &OAuthHandler{
		oauth:       oauth,
		spotify:     spotify,
		sessions:    sessions,
		handles:     handles,
		cookies:     cookies,
		frontendURL: strings.TrimRight(frontendURL, "/"),
		logger:      shared.WithLogger(logger, "component", "oauth"),
		newState:    shared.GenerateState,
		now:         time.Now,
	}
}

// Routes returns the HTTP routes this handler serves.
func (h *OAuthHandler) Routes() []string {
	return []string{"GET " + authorizePath, "GET " + callbackPath}
}

func (h *OAuthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case authorizePath:
		h.authorize(w, r)
	case callbackPath:
		h.callback(w, r)
	default:
		http.NotFound(w, r)
	}
}

// authorize stores a fresh state token in a cookie and redirects to the Spotify consent page.
func (h *OAuthHandler) authorize(w http.ResponseWriter, r *http.Request) {
	state, err := h.newState()
	if err != nil {
		h.logger.Error("failed to generate state", "err", err)
		writeText(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	http.SetCookie(w, h.cookies.state(state))
	http.Redirect(w, r, h.oauth.AuthURL(state), http.StatusFound)
}

// callback validates the state parameter, exchanges the authorization code, resolves the user and stores the
// session. Any failure sends the browser back to the frontend login page.
func (h *OAuthHandler) callback(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, h.cookies.expireState())

	userID, err := h.login(r)
	if err != nil {
		h.logger.Warn("login failed", "err", err)
		http.Redirect(w, r, h.frontendURL+"/login", http.StatusFound)
		return
	}

	handle, err := h.handles.Issue(userID)
	if err != nil {
		h.logger.Error("failed to issue session handle", "err", err)
		http.Redirect(w, r, h.frontendURL+"/login", http.StatusFound)
		return
	}

	h.logger.Info("login succeeded", "user", userID)
	setCookies(w, h.cookies.login(handle, userID))
	http.Redirect(w, r, h.frontendURL+"/callback", http.StatusFound)
}

func (h *OAuthHandler) login(r *http.Request) (string, error) {
	q := r.URL.Query()

	expected, err := r.Cookie(stateCookie)
	if err != nil || expected.Value == "" {
		return "", fmt.Errorf("%w: missing state cookie", shared.ErrInvalidState)
	}
	if subtle.ConstantTimeCompare([]byte(expected.Value), []byte(q.Get("state"))) != 1 {
		return "", shared.ErrInvalidState
	}

	code := q.Get("code")
	if code == "" {
		return "", fmt.Errorf("%w: %s - %s", shared.ErrAuthFailed, q.Get("error"), q.Get("error_description"))
	}

	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	token, err := h.oauth.Exchange(ctx, code)
	if err != nil {
		return "", err
	}

	user, err := h.spotify.CurrentUser(ctx, token.AccessToken)
	if err != nil {
		return "", fmt.Errorf("failed to resolve user: %w", err)
	}
	if user.ID == "" {
		return "", fmt.Errorf("%w: profile has no id", shared.ErrAuthFailed)
	}

	h.sessions.StoreUserSession(user.ID, token.AccessToken, token.RefreshToken, expiresAt(token, h.now()))
	return user.ID, nil
}

// expiresAt prefers the parsed expiry and falls back to expires_in.
// A token without either is stored as already expired so the first use refreshes it.
func expiresAt(token *oauth2.Token, now time.Time) time.Time {
	if !token.Expiry.IsZero() {
		return token.Expiry
	}
	if v, ok := token.Extra("expires_in").(float64); ok && v > 0 {
		return now.Add(time.Duration(v) * time.Second)
	}
	return now
}
