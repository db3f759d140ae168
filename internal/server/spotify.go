package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/musicman/internal/services"
	"github.com/desertthunder/musicman/internal/shared"
)

const topArtistsLimit = 10
const searchLimit = 10

// SpotifyHandler proxies read-only Spotify Web API calls for the user bound to the session handle cookie.
//
// Each request resolves a valid access token through the session manager before calling upstream.
type SpotifyHandler struct {
	spotify  services.Service
	sessions SessionManager
	handles  *Handles
	logger   *log.Logger
}

func NewSpotifyHandler(spotify services.Service, sessions SessionManager, handles *Handles, logger *log.Logger) *SpotifyHandler {
	return &SpotifyHandler{
		spotify:  spotify,
		sessions: sessions,
		handles:  handles,
		logger:   shared.WithLogger(logger, "component", "spotify"),
	}
}

func (h *SpotifyHandler) Routes() []string {
	return []string{
		"GET /spotify/me",
		"GET /spotify/me/top/artists",
		"GET /spotify/artists/{id}",
		"GET /spotify/artists/{id}/top-tracks",
		"GET /spotify/artists/{id}/albums",
		"GET /spotify/albums/{id}",
		"GET /spotify/search",
	}
}

func (h *SpotifyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID, ok := sessionUser(h.handles, r)
	if !ok {
		writeText(w, http.StatusUnauthorized, msgReauthenticate)
		return
	}

	token, err := h.sessions.AccessToken(r.Context(), userID)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}

	ctx := r.Context()
	switch r.Pattern {
	case "GET /spotify/me":
		h.me(ctx, w, r, token)
	case "GET /spotify/me/top/artists":
		h.topArtists(ctx, w, r, token)
	case "GET /spotify/artists/{id}":
		h.raw(w, r, func() (json.RawMessage, error) {
			return h.spotify.Artist(ctx, token, r.PathValue("id"))
		})
	case "GET /spotify/artists/{id}/top-tracks":
		h.raw(w, r, func() (json.RawMessage, error) {
			return h.spotify.ArtistTopTracks(ctx, token, r.PathValue("id"))
		})
	case "GET /spotify/artists/{id}/albums":
		h.raw(w, r, func() (json.RawMessage, error) {
			return h.spotify.ArtistAlbums(ctx, token, r.PathValue("id"), r.URL.Query())
		})
	case "GET /spotify/albums/{id}":
		h.raw(w, r, func() (json.RawMessage, error) {
			return h.spotify.Album(ctx, token, r.PathValue("id"))
		})
	case "GET /spotify/search":
		h.search(ctx, w, r, token)
	default:
		http.NotFound(w, r)
	}
}

func (h *SpotifyHandler) me(ctx context.Context, w http.ResponseWriter, r *http.Request, token string) {
	user, err := h.spotify.CurrentUser(ctx, token)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, services.NewUserProfile(user))
}

func (h *SpotifyHandler) topArtists(ctx context.Context, w http.ResponseWriter, r *http.Request, token string) {
	artists, err := h.spotify.TopArtists(ctx, token, topArtistsLimit)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}

	summaries := make([]services.ArtistSummary, 0, len(artists))
	for _, a := range artists {
		summaries = append(summaries, services.NewArtistSummary(a))
	}
	writeJSON(w, http.StatusOK, summaries)
}

func (h *SpotifyHandler) search(ctx context.Context, w http.ResponseWriter, r *http.Request, token string) {
	q := r.URL.Query()
	query := strings.TrimSpace(q.Get("query"))
	if query == "" {
		writeText(w, http.StatusBadRequest, "Missing query parameter.")
		return
	}

	h.raw(w, r, func() (json.RawMessage, error) {
		return h.spotify.Search(ctx, token, query, q["type"], searchLimit)
	})
}

func (h *SpotifyHandler) raw(w http.ResponseWriter, r *http.Request, call func() (json.RawMessage, error)) {
	body, err := call()
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeRaw(w, http.StatusOK, body)
}
