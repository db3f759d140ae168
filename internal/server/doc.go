// Package server provides HTTP routing, middleware and the handlers of the musicman backend.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
//
// The [BasicRouter] implementation uses [http.ServeMux] internally; routes are method-qualified patterns
// ("GET /spotify/artists/{id}") so the mux answers 405 for other methods.
//
// # Handler Interface
//
// Custom handlers implement the [Handler] interface, which wraps the stdlib handler interface and adds routes,
// allowing handlers to register multiple routes to encapsulate route definitions within the implementation.
//
//   - [OAuthHandler]: authorization code login. The state token lives in a short-lived HttpOnly cookie and
//     is compared on callback; the resulting token pair is stored with the session manager under the
//     Spotify user id. The browser receives an unguessable handle in the HttpOnly musicman_sid cookie,
//     mapped to the user id by [Handles], plus a spotify_session cookie the frontend may read. Only the
//     handle authenticates requests.
//   - [UserHandler]: liveness, auth status and logout.
//   - [SpotifyHandler]: read-only proxy. Every request resolves the access token through the session manager
//     first, so the refresh happens transparently.
//
// # Errors
//
// Missing or expired sessions answer 401 with "Session expired. Please reauthenticate.".
// Upstream failures answer 502 with a generic message; raw upstream bodies never reach the client.
package server
