// Spotify API implementation of [Service]
//
// Spotify API response types based on https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/desertthunder/musicman/internal/shared"
	"golang.org/x/oauth2"
)

const (
	spotifyAuthURL  = "https://accounts.spotify.com/authorize"
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
	spotifyBaseURL  = "https://api.spotify.com/v1"

	// maxResponseBytes caps proxied payloads.
	maxResponseBytes = 4 << 20
)

// SearchTypes are the catalog types the search proxy accepts.
var SearchTypes = []string{"album", "artist", "track"}

type followers struct {
	Total int `json:"total"`
}

// SpotifyUser represents a Spotify user profile.
type SpotifyUser struct {
	ID          string         `json:"id"`
	DisplayName string         `json:"display_name"`
	Email       string         `json:"email"`
	Country     string         `json:"country"`
	Product     string         `json:"product"` // premium, free, etc.
	Followers   followers      `json:"followers"`
	Images      []SpotifyImage `json:"images"`
}

// SpotifyImage represents an image resource.
type SpotifyImage struct {
	URL    string `json:"url"`
	Height int    `json:"height"`
	Width  int    `json:"width"`
}

// SpotifyArtist represents a Spotify artist.
type SpotifyArtist struct {
	ID         string         `json:"id"`
	Name       string         `json:"name"`
	Genres     []string       `json:"genres"`
	Images     []SpotifyImage `json:"images"`
	Popularity int            `json:"popularity"`
	Followers  followers      `json:"followers"`
	URI        string         `json:"uri"`
}

// SpotifyPage is the paging envelope wrapping list responses.
type SpotifyPage[T any] struct {
	Href     string  `json:"href"`
	Items    []T     `json:"items"`
	Limit    int     `json:"limit"`
	Next     *string `json:"next"`
	Offset   int     `json:"offset"`
	Previous *string `json:"previous"`
	Total    int     `json:"total"`
}

// UserProfile is the trimmed profile returned to the frontend.
type UserProfile struct {
	SpotifyID   string `json:"spotifyId"`
	DisplayName string `json:"displayName"`
	Email       string `json:"email"`
	ImageURL    string `json:"imageUrl"`
}

// NewUserProfile flattens a [SpotifyUser], keeping the first image.
func NewUserProfile(u *SpotifyUser) UserProfile {
	p := UserProfile{SpotifyID: u.ID, DisplayName: u.DisplayName, Email: u.Email}
	if len(u.Images) > 0 {
		p.ImageURL = u.Images[0].URL
	}
	return p
}

// ArtistSummary is the trimmed artist returned by the top-artists route.
type ArtistSummary struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	ImageURL   string `json:"imageUrl"`
	Popularity int    `json:"popularity"`
	Genre      string `json:"genre"`
}

// NewArtistSummary keeps the first image and first genre of a, with "Unknown" when there are no genres.
func NewArtistSummary(a SpotifyArtist) ArtistSummary {
	s := ArtistSummary{ID: a.ID, Name: a.Name, Popularity: a.Popularity, Genre: "Unknown"}
	if len(a.Images) > 0 {
		s.ImageURL = a.Images[0].URL
	}
	if len(a.Genres) > 0 {
		s.Genre = a.Genres[0]
	}
	return s
}

// SpotifyClient implements [Service] and [OAuthService] for Spotify.
type SpotifyClient struct {
	config     *oauth2.Config
	baseURL    string
	httpClient *http.Client
}

// NewSpotifyClient creates a new Spotify client from the configured OAuth2 credentials.
//
// Empty endpoint URLs fall back to the public Spotify endpoints. httpClient defaults to [http.DefaultClient].
func NewSpotifyClient(cfg shared.SpotifyConfig, httpClient *http.Client) (*SpotifyClient, error) {
	if cfg.ClientID == "" {
		return nil, fmt.Errorf("%w: missing client_id", shared.ErrMissingCredentials)
	}
	if cfg.ClientSecret == "" {
		return nil, fmt.Errorf("%w: missing client_secret", shared.ErrMissingCredentials)
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	authURL, tokenURL, baseURL := cfg.AuthURL, cfg.TokenURL, cfg.APIURL
	if authURL == "" {
		authURL = spotifyAuthURL
	}
	if tokenURL == "" {
		tokenURL = spotifyTokenURL
	}
	if baseURL == "" {
		baseURL = spotifyBaseURL
	}

	return &SpotifyClient{
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURI,
			Scopes:       cfg.Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:   authURL,
				TokenURL:  tokenURL,
				AuthStyle: oauth2.AuthStyleInHeader,
			},
		},
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}, nil
}

func (s *SpotifyClient) Name() string {
	return "Spotify"
}

// AuthURL returns the OAuth2 authorization URL for user login.
func (s *SpotifyClient) AuthURL(state string) string {
	return s.config.AuthCodeURL(state)
}

// Exchange trades an authorization code for an access/refresh token pair.
func (s *SpotifyClient) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, s.httpClient)
	token, err := s.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to exchange auth code: %v", shared.ErrAuthFailed, err)
	}
	return token, nil
}

// doRequest performs an authenticated GET against the Spotify API and returns the body.
func (s *SpotifyClient) doRequest(ctx context.Context, accessToken, endpoint string, query url.Values) ([]byte, error) {
	if accessToken == "" {
		return nil, fmt.Errorf("%w: missing access token", shared.ErrInvalidArgument)
	}

	apiURL := s.baseURL + endpoint
	if len(query) > 0 {
		apiURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, fmt.Errorf("%w: spotify rejected the access token", shared.ErrTokenExpired)
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s", shared.ErrNotFound, endpoint)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, fmt.Errorf("%w: spotify status %d", shared.ErrAPIRequest, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %v", shared.ErrAPIRequest, err)
	}
	return body, nil
}

func (s *SpotifyClient) getJSON(ctx context.Context, accessToken, endpoint string, query url.Values, result any) error {
	body, err := s.doRequest(ctx, accessToken, endpoint, query)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, result); err != nil {
		return fmt.Errorf("%w: failed to decode response: %v", shared.ErrAPIRequest, err)
	}
	return nil
}

func (s *SpotifyClient) getRaw(ctx context.Context, accessToken, endpoint string, query url.Values) (json.RawMessage, error) {
	body, err := s.doRequest(ctx, accessToken, endpoint, query)
	if err != nil {
		return nil, err
	}
	if !json.Valid(body) {
		return nil, fmt.Errorf("%w: spotify returned invalid JSON", shared.ErrAPIRequest)
	}
	return json.RawMessage(body), nil
}

// CurrentUser retrieves the current authenticated user's profile.
func (s *SpotifyClient) CurrentUser(ctx context.Context, accessToken string) (*SpotifyUser, error) {
	var user SpotifyUser
	if err := s.getJSON(ctx, accessToken, "/me", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// TopArtists retrieves the user's top artists, clamping limit to 1..50.
func (s *SpotifyClient) TopArtists(ctx context.Context, accessToken string, limit int) ([]SpotifyArtist, error) {
	limit = clampLimit(limit, 10)

	var page SpotifyPage[SpotifyArtist]
	query := url.Values{"limit": {strconv.Itoa(limit)}}
	if err := s.getJSON(ctx, accessToken, "/me/top/artists", query, &page); err != nil {
		return nil, err
	}
	return page.Items, nil
}

// Artist retrieves an artist by ID.
func (s *SpotifyClient) Artist(ctx context.Context, accessToken, artistID string) (json.RawMessage, error) {
	if err := validateID(artistID); err != nil {
		return nil, err
	}
	return s.getRaw(ctx, accessToken, "/artists/"+url.PathEscape(artistID), nil)
}

// ArtistTopTracks retrieves an artist's top tracks.
func (s *SpotifyClient) ArtistTopTracks(ctx context.Context, accessToken, artistID string) (json.RawMessage, error) {
	if err := validateID(artistID); err != nil {
		return nil, err
	}
	return s.getRaw(ctx, accessToken, "/artists/"+url.PathEscape(artistID)+"/top-tracks", nil)
}

// ArtistAlbums retrieves an artist's albums. Only include_groups, limit and market are forwarded.
func (s *SpotifyClient) ArtistAlbums(ctx context.Context, accessToken, artistID string, query url.Values) (json.RawMessage, error) {
	if err := validateID(artistID); err != nil {
		return nil, err
	}

	forwarded := url.Values{}
	for _, key := range []string{"include_groups", "limit", "market"} {
		if v := query.Get(key); v != "" {
			forwarded.Set(key, v)
		}
	}
	return s.getRaw(ctx, accessToken, "/artists/"+url.PathEscape(artistID)+"/albums", forwarded)
}

// Album retrieves an album by ID.
func (s *SpotifyClient) Album(ctx context.Context, accessToken, albumID string) (json.RawMessage, error) {
	if err := validateID(albumID); err != nil {
		return nil, err
	}
	return s.getRaw(ctx, accessToken, "/albums/"+url.PathEscape(albumID), nil)
}

// Search runs a catalog search. types is filtered through [FilterSearchTypes].
func (s *SpotifyClient) Search(ctx context.Context, accessToken, query string, types []string, limit int) (json.RawMessage, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("%w: search query is empty", shared.ErrMissingArgument)
	}

	q := url.Values{
		"q":     {query},
		"type":  {strings.Join(FilterSearchTypes(types), ",")},
		"limit": {strconv.Itoa(clampLimit(limit, 10))},
	}
	return s.getRaw(ctx, accessToken, "/search", q)
}

// FilterSearchTypes lowercases and de-duplicates types, dropping anything outside [SearchTypes].
//
// An empty result falls back to all of [SearchTypes].
func FilterSearchTypes(types []string) []string {
	var filtered []string
	seen := make(map[string]bool)
	for _, raw := range types {
		for _, t := range strings.Split(raw, ",") {
			t = strings.ToLower(strings.TrimSpace(t))
			if seen[t] || !isSearchType(t) {
				continue
			}
			seen[t] = true
			filtered = append(filtered, t)
		}
	}
	if len(filtered) == 0 {
		return append([]string(nil), SearchTypes...)
	}
	return filtered
}

func isSearchType(t string) bool {
	for _, st := range SearchTypes {
		if st == t {
			return true
		}
	}
	return false
}

func clampLimit(limit, fallback int) int {
	switch {
	case limit <= 0:
		return fallback
	case limit > 50:
		return 50
	default:
		return limit
	}
}

func validateID(id string) error {
	if id == "" || strings.ContainsAny(id, "/?#") {
		return fmt.Errorf("%w: invalid spotify id %q", shared.ErrInvalidArgument, id)
	}
	return nil
}
