package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/musicman/internal/services"
	"github.com/desertthunder/musicman/internal/shared"
	tu "github.com/desertthunder/musicman/internal/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

const frontend = "http://127.0.0.1:8080"

type fakeOAuth struct {
	token *oauth2.Token
	err   error
	codes []string
}

func (f *fakeOAuth) AuthURL(state string) string {
	return "https://accounts.example/authorize?state=" + url.QueryEscape(state)
}

func (f *fakeOAuth) Exchange(_ context.Context, code string) (*oauth2.Token, error) {
	f.codes = append(f.codes, code)
	if f.err != nil {
		return nil, f.err
	}
	return f.token, nil
}

type fixture struct {
	router   *BasicRouter
	sessions *tu.MockSessions
	spotify  *tu.MockService
	oauth    *fakeOAuth
	handles  *Handles
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		sessions: tu.NewMockSessions(),
		spotify:  &tu.MockService{},
		handles:  NewHandles(time.Hour),
		oauth: &fakeOAuth{token: &oauth2.Token{
			AccessToken:  "access-1",
			RefreshToken: "refresh-1",
			Expiry:       time.Now().Add(time.Hour),
		}},
	}
	f.router = New(Options{
		Config: shared.ServerConfig{
			FrontendURL:    frontend,
			CookieDomain:   "127.0.0.1",
			AllowedOrigins: []string{frontend},
		},
		Sessions: f.sessions,
		Spotify:  f.spotify,
		OAuth:    f.oauth,
		Handles:  f.handles,
		Logger:   log.New(&bytes.Buffer{}),
	})
	return f
}

func (f *fixture) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

// withSession signs req in as userID the way a completed login would.
func (f *fixture) withSession(t *testing.T, req *http.Request, userID string) *http.Request {
	t.Helper()
	handle, err := f.handles.Issue(userID)
	require.NoError(t, err)
	req.AddCookie(&http.Cookie{Name: HandleCookie, Value: handle})
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: userID})
	return req
}

// forged carries only cookies an attacker can write without logging in.
func forged(req *http.Request, userID string) *http.Request {
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: userID})
	req.AddCookie(&http.Cookie{Name: HandleCookie, Value: userID})
	return req
}

func findCookie(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestOAuthHandler(t *testing.T) {
	t.Run("authorize sets state and redirects", func(t *testing.T) {
		f := newFixture(t)
		rec := f.do(httptest.NewRequest(http.MethodGet, authorizePath, nil))

		require.Equal(t, http.StatusFound, rec.Code)
		state := findCookie(rec, stateCookie)
		require.NotNil(t, state)
		assert.True(t, state.HttpOnly)
		assert.Equal(t, "https://accounts.example/authorize?state="+url.QueryEscape(state.Value), rec.Header().Get("Location"))
	})

	callback := func(state, cookieState, query string) *http.Request {
		req := httptest.NewRequest(http.MethodGet, callbackPath+"?state="+url.QueryEscape(state)+query, nil)
		if cookieState != "" {
			req.AddCookie(&http.Cookie{Name: stateCookie, Value: cookieState})
		}
		return req
	}

	t.Run("callback stores session and redirects to frontend", func(t *testing.T) {
		f := newFixture(t)
		f.spotify.CurrentUserFunc = func(_ context.Context, token string) (*services.SpotifyUser, error) {
			return &services.SpotifyUser{ID: "user-1"}, nil
		}

		rec := f.do(callback("s1", "s1", "&code=auth-code"))

		require.Equal(t, http.StatusFound, rec.Code)
		assert.Equal(t, frontend+"/callback", rec.Header().Get("Location"))
		assert.Equal(t, []string{"auth-code"}, f.oauth.codes)
		assert.Equal(t, "access-1", f.spotify.LastAccessToken)

		stored, ok := f.sessions.Get("user-1")
		require.True(t, ok)
		assert.Equal(t, "access-1", stored.AccessToken)
		assert.Equal(t, "refresh-1", stored.RefreshToken)
		assert.Equal(t, f.oauth.token.Expiry, stored.ExpiresAt)

		handle := findCookie(rec, HandleCookie)
		require.NotNil(t, handle)
		assert.True(t, handle.HttpOnly)
		assert.Equal(t, "/", handle.Path)
		assert.Positive(t, handle.MaxAge)
		assert.NotEqual(t, "user-1", handle.Value)
		userID, ok := f.handles.Lookup(handle.Value)
		require.True(t, ok)
		assert.Equal(t, "user-1", userID)

		cookie := findCookie(rec, SessionCookie)
		require.NotNil(t, cookie)
		assert.Equal(t, "user-1", cookie.Value)
		assert.False(t, cookie.HttpOnly)
	})

	failures := []struct {
		name  string
		req   func() *http.Request
		setup func(f *fixture)
	}{
		{"state mismatch", func() *http.Request { return callback("s1", "other", "&code=c") }, nil},
		{"missing state cookie", func() *http.Request { return callback("s1", "", "&code=c") }, nil},
		{"provider error", func() *http.Request { return callback("s1", "s1", "&error=access_denied") }, nil},
		{"exchange failure", func() *http.Request { return callback("s1", "s1", "&code=c") }, func(f *fixture) {
			f.oauth.err = fmt.Errorf("%w: invalid_grant", shared.ErrAuthFailed)
		}},
		{"profile failure", func() *http.Request { return callback("s1", "s1", "&code=c") }, func(f *fixture) {
			f.spotify.CurrentUserFunc = func(context.Context, string) (*services.SpotifyUser, error) {
				return nil, shared.ErrAPIRequest
			}
		}},
	}

	for _, tt := range failures {
		t.Run("callback "+tt.name+" redirects to login", func(t *testing.T) {
			f := newFixture(t)
			if tt.setup != nil {
				tt.setup(f)
			}

			rec := f.do(tt.req())

			require.Equal(t, http.StatusFound, rec.Code)
			assert.Equal(t, frontend+"/login", rec.Header().Get("Location"))
			assert.Nil(t, findCookie(rec, SessionCookie))
			assert.Nil(t, findCookie(rec, HandleCookie))
			assert.Empty(t, f.sessions.Sessions)
			assert.Zero(t, f.handles.Len())
		})
	}
}

func TestUserHandler(t *testing.T) {
	t.Run("liveness", func(t *testing.T) {
		f := newFixture(t)
		rec := f.do(httptest.NewRequest(http.MethodGet, "/api/test", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "Backend is reachable!", rec.Body.String())
	})

	t.Run("auth status", func(t *testing.T) {
		f := newFixture(t)
		f.sessions.StoreUserSession("user-1", "a", "r", time.Now().Add(time.Hour))

		rec := f.do(f.withSession(t, httptest.NewRequest(http.MethodGet, "/api/auth-status", nil), "user-1"))
		require.Equal(t, http.StatusOK, rec.Code)

		var body map[string]string
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, map[string]string{"status": "authenticated", "userId": "user-1"}, body)

		rec = f.do(f.withSession(t, httptest.NewRequest(http.MethodGet, "/api/auth-status", nil), "ghost"))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)

		rec = f.do(httptest.NewRequest(http.MethodGet, "/api/auth-status", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("api logout", func(t *testing.T) {
		f := newFixture(t)
		f.sessions.StoreUserSession("user-1", "a", "r", time.Now().Add(time.Hour))

		req := f.withSession(t, httptest.NewRequest(http.MethodPost, "/api/logout", nil), "user-1")
		rec := f.do(req)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.False(t, f.sessions.IsValidSession("user-1"))

		for _, name := range []string{HandleCookie, SessionCookie} {
			cookie := findCookie(rec, name)
			require.NotNil(t, cookie, name)
			assert.Negative(t, cookie.MaxAge, name)
		}

		// The old handle stays dead even after the user logs in again elsewhere.
		f.sessions.StoreUserSession("user-1", "a2", "r2", time.Now().Add(time.Hour))
		status := httptest.NewRequest(http.MethodGet, "/api/auth-status", nil)
		for _, c := range req.Cookies() {
			status.AddCookie(c)
		}
		assert.Equal(t, http.StatusUnauthorized, f.do(status).Code)

		rec = f.do(httptest.NewRequest(http.MethodPost, "/api/logout", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)

		rec = f.do(httptest.NewRequest(http.MethodGet, "/api/logout", nil))
		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	})

	t.Run("logout redirect", func(t *testing.T) {
		f := newFixture(t)
		f.sessions.StoreUserSession("user-1", "a", "r", time.Now().Add(time.Hour))

		rec := f.do(f.withSession(t, httptest.NewRequest(http.MethodGet, "/logout", nil), "user-1"))
		require.Equal(t, http.StatusFound, rec.Code)
		assert.Equal(t, []string{"user-1"}, f.sessions.Cleared)

		loc, err := url.Parse(rec.Header().Get("Location"))
		require.NoError(t, err)
		assert.Equal(t, "accounts.spotify.com", loc.Host)
		assert.Equal(t, frontend+"/login", loc.Query().Get("continue"))
	})

	t.Run("forged cookies cannot log anyone out", func(t *testing.T) {
		f := newFixture(t)
		f.sessions.StoreUserSession("victim", "a", "r", time.Now().Add(time.Hour))

		rec := f.do(forged(httptest.NewRequest(http.MethodPost, "/api/logout", nil), "victim"))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)

		rec = f.do(forged(httptest.NewRequest(http.MethodGet, "/logout", nil), "victim"))
		assert.Equal(t, http.StatusFound, rec.Code)

		assert.Empty(t, f.sessions.Cleared)
		assert.True(t, f.sessions.IsValidSession("victim"))

		rec = f.do(forged(httptest.NewRequest(http.MethodGet, "/api/auth-status", nil), "victim"))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("preflight", func(t *testing.T) {
		f := newFixture(t)
		req := httptest.NewRequest(http.MethodOptions, "/api/logout", nil)
		req.Header.Set("Origin", frontend)

		rec := f.do(req)
		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, frontend, rec.Header().Get("Access-Control-Allow-Origin"))
	})
}

func TestSpotifyHandler(t *testing.T) {
	authed := func(f *fixture) {
		f.sessions.StoreUserSession("user-1", "fresh-token", "r", time.Now().Add(time.Hour))
	}

	t.Run("requires session cookie", func(t *testing.T) {
		f := newFixture(t)
		rec := f.do(httptest.NewRequest(http.MethodGet, "/spotify/me", nil))

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, msgReauthenticate, rec.Body.String())
		assert.Empty(t, f.spotify.Calls)
	})

	t.Run("forged cookies are rejected", func(t *testing.T) {
		f := newFixture(t)
		f.sessions.StoreUserSession("victim", "victim-access", "r", time.Now().Add(time.Hour))

		rec := f.do(forged(httptest.NewRequest(http.MethodGet, "/spotify/me", nil), "victim"))

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Empty(t, f.spotify.Calls)
		assert.Empty(t, f.spotify.LastAccessToken)
	})

	t.Run("session errors map to 401", func(t *testing.T) {
		for _, err := range []error{
			shared.ErrSessionNotFound,
			fmt.Errorf("%w: %w", shared.ErrSessionExpired, errors.New("invalid_grant")),
		} {
			f := newFixture(t)
			f.sessions.Err = err

			rec := f.do(f.withSession(t, httptest.NewRequest(http.MethodGet, "/spotify/artists/a1", nil), "user-1"))
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Equal(t, msgReauthenticate, rec.Body.String())
			assert.Empty(t, f.spotify.Calls)
		}
	})

	t.Run("me returns profile", func(t *testing.T) {
		f := newFixture(t)
		authed(f)
		f.spotify.CurrentUserFunc = func(context.Context, string) (*services.SpotifyUser, error) {
			return &services.SpotifyUser{
				ID: "user-1", DisplayName: "Test", Email: "t@example.com",
				Images: []services.SpotifyImage{{URL: "https://img/1"}},
			}, nil
		}

		rec := f.do(f.withSession(t, httptest.NewRequest(http.MethodGet, "/spotify/me", nil), "user-1"))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"spotifyId":"user-1","displayName":"Test","email":"t@example.com","imageUrl":"https://img/1"}`, rec.Body.String())
		assert.Equal(t, "fresh-token", f.spotify.LastAccessToken)
	})

	t.Run("top artists are summarized", func(t *testing.T) {
		f := newFixture(t)
		authed(f)
		var gotLimit int
		f.spotify.TopArtistsFunc = func(_ context.Context, _ string, limit int) ([]services.SpotifyArtist, error) {
			gotLimit = limit
			return []services.SpotifyArtist{{ID: "a1", Name: "One", Popularity: 50}}, nil
		}

		rec := f.do(f.withSession(t, httptest.NewRequest(http.MethodGet, "/spotify/me/top/artists", nil), "user-1"))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, 10, gotLimit)
		assert.JSONEq(t, `[{"id":"a1","name":"One","imageUrl":"","popularity":50,"genre":"Unknown"}]`, rec.Body.String())
	})

	t.Run("raw routes pass through", func(t *testing.T) {
		f := newFixture(t)
		authed(f)
		f.spotify.RawFunc = func(method, _, id string) (json.RawMessage, error) {
			return json.RawMessage(fmt.Sprintf(`{"method":%q,"id":%q}`, method, id)), nil
		}

		routes := map[string]string{
			"/spotify/artists/a1":            `{"method":"Artist","id":"a1"}`,
			"/spotify/artists/a1/top-tracks": `{"method":"ArtistTopTracks","id":"a1"}`,
			"/spotify/albums/b1":             `{"method":"Album","id":"b1"}`,
		}
		for path, want := range routes {
			rec := f.do(f.withSession(t, httptest.NewRequest(http.MethodGet, path, nil), "user-1"))
			require.Equal(t, http.StatusOK, rec.Code, path)
			assert.JSONEq(t, want, rec.Body.String(), path)
		}
	})

	t.Run("artist albums forwards query", func(t *testing.T) {
		f := newFixture(t)
		authed(f)
		var got url.Values
		f.spotify.ArtistAlbumsFunc = func(_ context.Context, _, id string, q url.Values) (json.RawMessage, error) {
			got = q
			return json.RawMessage(`{"items":[]}`), nil
		}

		rec := f.do(f.withSession(t, httptest.NewRequest(http.MethodGet, "/spotify/artists/a1/albums?include_groups=album&limit=5", nil), "user-1"))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "album", got.Get("include_groups"))
		assert.Equal(t, "5", got.Get("limit"))
	})

	t.Run("search", func(t *testing.T) {
		f := newFixture(t)
		authed(f)
		var gotQuery string
		var gotTypes []string
		f.spotify.SearchFunc = func(_ context.Context, _, query string, types []string, limit int) (json.RawMessage, error) {
			gotQuery, gotTypes = query, types
			return json.RawMessage(`{}`), nil
		}

		rec := f.do(f.withSession(t, httptest.NewRequest(http.MethodGet, "/spotify/search?query=radiohead&type=artist,playlist", nil), "user-1"))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "radiohead", gotQuery)
		assert.Equal(t, []string{"artist,playlist"}, gotTypes)

		rec = f.do(f.withSession(t, httptest.NewRequest(http.MethodGet, "/spotify/search", nil), "user-1"))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("upstream errors", func(t *testing.T) {
		tests := []struct {
			err  error
			code int
		}{
			{fmt.Errorf("%w: spotify status 500", shared.ErrAPIRequest), http.StatusBadGateway},
			{fmt.Errorf("%w: /albums/x", shared.ErrNotFound), http.StatusNotFound},
			{fmt.Errorf("%w: rejected", shared.ErrTokenExpired), http.StatusUnauthorized},
		}
		for _, tt := range tests {
			f := newFixture(t)
			authed(f)
			f.spotify.RawFunc = func(string, string, string) (json.RawMessage, error) { return nil, tt.err }

			rec := f.do(f.withSession(t, httptest.NewRequest(http.MethodGet, "/spotify/albums/x", nil), "user-1"))
			assert.Equal(t, tt.code, rec.Code, tt.err.Error())
			assert.False(t, strings.Contains(rec.Body.String(), "spotify status"), "upstream detail leaked")
		}
	})
}

func TestExpiresAt(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	t.Run("parsed expiry wins", func(t *testing.T) {
		tok := &oauth2.Token{Expiry: now.Add(time.Minute)}
		assert.Equal(t, now.Add(time.Minute), expiresAt(tok, now))
	})

	t.Run("expires_in counts from the given clock", func(t *testing.T) {
		tok := (&oauth2.Token{}).WithExtra(map[string]any{"expires_in": float64(3600)})
		assert.Equal(t, now.Add(time.Hour), expiresAt(tok, now))
	})

	t.Run("no expiry is already expired", func(t *testing.T) {
		assert.Equal(t, now, expiresAt(&oauth2.Token{}, now))
	})
}
