// Package session implements the server-side token cache that backs every proxied Spotify call.
//
// # Store
//
// [Store] maps a Spotify user id to exactly one [TokenPair]. Pairs are values: callers always receive
// copies and the only way to change an entry is to replace it through [Store.Put], remove it with
// [Store.Remove], or let [Store.Sweep] evict it.
//
// # Refresh
//
// [RefreshClient] performs the refresh_token grant against the provider token endpoint using
// [oauth2.Config] with client credentials sent via HTTP Basic auth. Every attempt is bounded by a
// timeout and transport failures are retried once. Failures are reported as [*RefreshError].
//
// # Manager
//
// [Manager] is the only entry point used by the HTTP layer:
//
//   - [Manager.StoreUserSession] after a completed login handshake
//   - [Manager.AccessToken] before each upstream call
//   - [Manager.IsValidSession] for status checks
//   - [Manager.ClearUserSession] on logout
//   - [Manager.CleanUpExpiredSessions] from the [Sweeper]
//
// AccessToken returns the cached token when it is valid for longer than the refresh margin, otherwise
// it refreshes and stores the new pair. A failed refresh evicts the session and the error matches
// [shared.ErrSessionExpired]; an unknown user matches [shared.ErrSessionNotFound].
//
// Concurrent refreshes for one user are coalesced with [singleflight.Group] unless disabled, in which
// case they race and the last write wins.
//
// # Observability
//
// The Manager reports each outcome as an [Event] to an [Observer]. [LogObserver] writes structured
// log lines; the repositories package records an audit trail. Events never carry token values.
package session
