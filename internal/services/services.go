package services

import (
	"context"
	"encoding/json"
	"net/url"

	"golang.org/x/oauth2"
)

// Service defines the read-only Spotify Web API calls proxied on behalf of a user.
//
// Every method takes the user's bearer access token; the client itself holds no user state.
type Service interface {
	// CurrentUser retrieves the profile of the token owner.
	CurrentUser(ctx context.Context, accessToken string) (*SpotifyUser, error)

	// TopArtists retrieves the user's top artists.
	TopArtists(ctx context.Context, accessToken string, limit int) ([]SpotifyArtist, error)

	// Artist retrieves the raw artist object.
	Artist(ctx context.Context, accessToken, artistID string) (json.RawMessage, error)

	// ArtistTopTracks retrieves the raw top-tracks object for an artist.
	ArtistTopTracks(ctx context.Context, accessToken, artistID string) (json.RawMessage, error)

	// ArtistAlbums retrieves the raw paginated albums of an artist.
	// Supported query keys: include_groups, limit, market.
	ArtistAlbums(ctx context.Context, accessToken, artistID string, query url.Values) (json.RawMessage, error)

	// Album retrieves the raw album object.
	Album(ctx context.Context, accessToken, albumID string) (json.RawMessage, error)

	// Search runs a catalog search restricted to the given types.
	Search(ctx context.Context, accessToken, query string, types []string, limit int) (json.RawMessage, error)

	// Name returns the name of the service
	Name() string
}

// OAuthService is implemented by services that drive the authorization code login.
type OAuthService interface {
	// AuthURL returns the provider consent URL carrying state.
	AuthURL(state string) string

	// Exchange trades an authorization code for tokens.
	Exchange(ctx context.Context, code string) (*oauth2.Token, error)
}
