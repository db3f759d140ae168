// Package services implements the [Service] interface for the Spotify Web API.
//
// # Spotify Client
//
// [SpotifyClient] is stateless with respect to users: each call carries the caller's access token, which
// the session manager guarantees is valid. The client also owns the [oauth2.Config] used by the login
// handshake ([OAuthService]).
//
// Artist, album and search responses are passed through as raw JSON. Top artists and the current user are
// decoded so that the handlers can reshape them into [ArtistSummary] and [UserProfile].
//
// # Error Handling
//
// Services use typed errors from shared package:
//   - [shared.ErrTokenExpired] : Spotify rejected the bearer token (401)
//   - [shared.ErrNotFound] : the requested resource does not exist (404)
//   - [shared.ErrAPIRequest] : any other non-2xx status or transport failure
package services
