package session

import "time"

// DefaultRefreshMargin is how long before expiry a token is treated as stale.
const DefaultRefreshMargin = 60 * time.Second

// TokenPair is the cached credential set for one user.
//
// An empty RefreshToken means the session cannot be renewed once it expires.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// Expired reports whether now is strictly after ExpiresAt.
func (t TokenPair) Expired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}

// Refreshable reports whether the pair carries a refresh token.
func (t TokenPair) Refreshable() bool {
	return t.RefreshToken != ""
}

// NeedsRefresh reports whether the access token is expired or expires within margin of now.
func (t TokenPair) NeedsRefresh(now time.Time, margin time.Duration) bool {
	return t.Expired(now) || now.Add(margin).After(t.ExpiresAt)
}

// Equal reports whether both pairs hold the same tokens and expiry instant.
func (t TokenPair) Equal(o TokenPair) bool {
	return t.AccessToken == o.AccessToken &&
		t.RefreshToken == o.RefreshToken &&
		t.ExpiresAt.Equal(o.ExpiresAt)
}
