package session

import (
	"context"
	"fmt"
	"time"

	"github.com/desertthunder/musicman/internal/shared"
	"golang.org/x/sync/singleflight"
)

// Manager hands out valid access tokens, refreshing and evicting cached sessions as needed.
type Manager struct {
	store     *Store
	refresher Refresher
	observer  Observer
	margin    time.Duration
	now       func() time.Time
	group     *singleflight.Group
}

// ManagerOpts configures a [Manager].
type ManagerOpts struct {
	Store         *Store           // defaults to a new empty store
	Refresher     Refresher        // required
	Observer      Observer         // defaults to a no-op observer
	RefreshMargin time.Duration    // zero means [DefaultRefreshMargin]
	SingleFlight  bool             // coalesce concurrent refreshes per user
	Now           func() time.Time // defaults to [time.Now]
}

// NewManager creates a [Manager] from opts.
func NewManager(opts ManagerOpts) (*Manager, error) {
	if opts.Refresher == nil {
		return nil, fmt.Errorf("%w: session manager needs a refresher", shared.ErrInvalidArgument)
	}
	if opts.Store == nil {
		opts.Store = NewStore()
	}
	if opts.Observer == nil {
		opts.Observer = nopObserver{}
	}
	if opts.RefreshMargin <= 0 {
		opts.RefreshMargin = DefaultRefreshMargin
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	m := &Manager{
		store:     opts.Store,
		refresher: opts.Refresher,
		observer:  opts.Observer,
		margin:    opts.RefreshMargin,
		now:       opts.Now,
	}
	if opts.SingleFlight {
		m.group = &singleflight.Group{}
	}
	return m, nil
}

// StoreUserSession caches the tokens obtained by a completed login, replacing any previous session.
func (m *Manager) StoreUserSession(userID, accessToken, refreshToken string, expiresAt time.Time) {
	m.store.Put(userID, TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    expiresAt,
	})
	m.emit(EventStored, userID, "expires_at="+expiresAt.UTC().Format(time.RFC3339))
}

// AccessToken returns an access token for userID that stays valid for at least the refresh margin.
//
// Errors match [shared.ErrSessionNotFound] when no session exists and [shared.ErrSessionExpired] when a
// refresh was needed and failed; in the latter case the session has been removed.
func (m *Manager) AccessToken(ctx context.Context, userID string) (string, error) {
	pair, ok := m.store.Get(userID)
	if !ok {
		return "", fmt.Errorf("%w: user %s", shared.ErrSessionNotFound, userID)
	}

	if !pair.NeedsRefresh(m.now(), m.margin) {
		m.emit(EventFastPathHit, userID, "")
		return pair.AccessToken, nil
	}

	fresh, err := m.refresh(ctx, userID, pair)
	if err != nil {
		return "", err
	}
	return fresh.AccessToken, nil
}

// IsValidSession reports whether userID has a session that is unexpired or can be refreshed.
//
// It never refreshes; an expired but refreshable session counts as valid.
func (m *Manager) IsValidSession(userID string) bool {
	if userID == "" {
		return false
	}
	pair, ok := m.store.Get(userID)
	return ok && (!pair.Expired(m.now()) || pair.Refreshable())
}

// ClearUserSession removes the session for userID. Unknown or empty ids are ignored.
func (m *Manager) ClearUserSession(userID string) {
	if userID == "" {
		return
	}
	m.store.Remove(userID)
	m.emit(EventCleared, userID, "")
}

// CleanUpExpiredSessions evicts sessions that are expired and cannot be refreshed, returning how many were removed.
func (m *Manager) CleanUpExpiredSessions() int {
	evicted := m.store.Sweep(m.now())
	for _, id := range evicted {
		m.emit(EventSwept, id, "expired without refresh token")
	}
	return len(evicted)
}

// ActiveSessions returns the number of cached sessions.
func (m *Manager) ActiveSessions() int {
	return m.store.Len()
}

func (m *Manager) refresh(ctx context.Context, userID string, stale TokenPair) (TokenPair, error) {
	if m.group == nil {
		return m.doRefresh(ctx, userID, stale)
	}

	v, err, _ := m.group.Do(userID, func() (any, error) {
		return m.doRefresh(ctx, userID, stale)
	})
	if err != nil {
		return TokenPair{}, err
	}
	return v.(TokenPair), nil
}

func (m *Manager) doRefresh(ctx context.Context, userID string, stale TokenPair) (TokenPair, error) {
	// Another caller may have refreshed, replaced or cleared the pair since stale was read.
	current, ok := m.store.Get(userID)
	if !ok {
		return TokenPair{}, fmt.Errorf("%w: user %s", shared.ErrSessionNotFound, userID)
	}
	if !current.Equal(stale) {
		if !current.NeedsRefresh(m.now(), m.margin) {
			return current, nil
		}
		stale = current
	}

	m.emit(EventRefreshAttempted, userID, "")

	// Callers coalesced behind this refresh must not fail because the first caller went away.
	fresh, err := m.refresher.Refresh(context.WithoutCancel(ctx), stale.RefreshToken)
	if err != nil {
		m.emit(EventRefreshFailed, userID, err.Error())
		if !m.store.RemoveIf(userID, stale) {
			if latest, ok := m.store.Get(userID); ok && !latest.NeedsRefresh(m.now(), m.margin) {
				return latest, nil
			}
		}
		return TokenPair{}, fmt.Errorf("%w: %w", shared.ErrSessionExpired, err)
	}

	if !m.store.CompareAndSwap(userID, stale, fresh) {
		m.emit(EventRefreshSucceeded, userID, "session changed during refresh; not stored")
		return fresh, nil
	}
	m.emit(EventRefreshSucceeded, userID, "expires_at="+fresh.ExpiresAt.UTC().Format(time.RFC3339))
	return fresh, nil
}

func (m *Manager) emit(kind EventKind, userID, detail string) {
	m.observer.Observe(Event{Kind: kind, UserID: userID, Detail: detail, At: m.now()})
}
