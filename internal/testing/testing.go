// package testing contains shared testing utilities
package testing

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/desertthunder/musicman/internal/services"
)

var _ services.Service = (*MockService)(nil)

// MockService is a test double for [services.Service].
//
// Unset function fields return zero values. Calls records the method names invoked, in order.
type MockService struct {
	CurrentUserFunc  func(ctx context.Context, accessToken string) (*services.SpotifyUser, error)
	TopArtistsFunc   func(ctx context.Context, accessToken string, limit int) ([]services.SpotifyArtist, error)
	RawFunc          func(method, accessToken, id string) (json.RawMessage, error)
	ArtistAlbumsFunc func(ctx context.Context, accessToken, artistID string, query url.Values) (json.RawMessage, error)
	SearchFunc       func(ctx context.Context, accessToken, query string, types []string, limit int) (json.RawMessage, error)
	mu               sync.Mutex
	Calls            []string
	LastAccessToken  string
}

func (m *MockService) record(method, accessToken string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, method)
	m.LastAccessToken = accessToken
}

func (m *MockService) CurrentUser(ctx context.Context, accessToken string) (*services.SpotifyUser, error) {
	m.record("CurrentUser", accessToken)
	if m.CurrentUserFunc != nil {
		return m.CurrentUserFunc(ctx, accessToken)
	}
	return &services.SpotifyUser{}, nil
}

func (m *MockService) TopArtists(ctx context.Context, accessToken string, limit int) ([]services.SpotifyArtist, error) {
	m.record("TopArtists", accessToken)
	if m.TopArtistsFunc != nil {
		return m.TopArtistsFunc(ctx, accessToken, limit)
	}
	return nil, nil
}

func (m *MockService) raw(method, accessToken, id string) (json.RawMessage, error) {
	m.record(method, accessToken)
	if m.RawFunc != nil {
		return m.RawFunc(method, accessToken, id)
	}
	return json.RawMessage(`{}`), nil
}

func (m *MockService) Artist(_ context.Context, accessToken, artistID string) (json.RawMessage, error) {
	return m.raw("Artist", accessToken, artistID)
}

func (m *MockService) ArtistTopTracks(_ context.Context, accessToken, artistID string) (json.RawMessage, error) {
	return m.raw("ArtistTopTracks", accessToken, artistID)
}

func (m *MockService) Album(_ context.Context, accessToken, albumID string) (json.RawMessage, error) {
	return m.raw("Album", accessToken, albumID)
}

func (m *MockService) ArtistAlbums(ctx context.Context, accessToken, artistID string, query url.Values) (json.RawMessage, error) {
	m.record("ArtistAlbums", accessToken)
	if m.ArtistAlbumsFunc != nil {
		return m.ArtistAlbumsFunc(ctx, accessToken, artistID, query)
	}
	return json.RawMessage(`{}`), nil
}

func (m *MockService) Search(ctx context.Context, accessToken, query string, types []string, limit int) (json.RawMessage, error) {
	m.record("Search", accessToken)
	if m.SearchFunc != nil {
		return m.SearchFunc(ctx, accessToken, query, types, limit)
	}
	return json.RawMessage(`{}`), nil
}

func (m *MockService) Name() string { return "mock" }

// StoredSession is a session captured by [MockSessions].
type StoredSession struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// MockSessions is an in-memory stand-in for the session manager used by HTTP handlers.
//
// AccessToken returns the stored access token, or Err when set.
type MockSessions struct {
	mu       sync.Mutex
	Sessions map[string]StoredSession
	Err      error
	Cleared  []string
}

func NewMockSessions() *MockSessions {
	return &MockSessions{Sessions: make(map[string]StoredSession)}
}

func (m *MockSessions) StoreUserSession(userID, accessToken, refreshToken string, expiresAt time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Sessions[userID] = StoredSession{AccessToken: accessToken, RefreshToken: refreshToken, ExpiresAt: expiresAt}
}

func (m *MockSessions) AccessToken(_ context.Context, userID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return "", m.Err
	}
	s, ok := m.Sessions[userID]
	if !ok {
		return "", errors.New("session not found")
	}
	return s.AccessToken, nil
}

func (m *MockSessions) IsValidSession(userID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.Sessions[userID]
	return ok
}

func (m *MockSessions) ClearUserSession(userID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.Sessions, userID)
	m.Cleared = append(m.Cleared, userID)
}

// Get returns the stored session for userID.
func (m *MockSessions) Get(userID string) (StoredSession, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.Sessions[userID]
	return s, ok
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// FCloser simulates a failure when reading response body
type FCloser struct{}

func (f *FCloser) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

func (f *FCloser) Close() error {
	return nil
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
