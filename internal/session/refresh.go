package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/musicman/internal/shared"
	"golang.org/x/oauth2"
)

// DefaultRefreshTimeout bounds a single refresh round trip.
const DefaultRefreshTimeout = 10 * time.Second

// Refresher exchanges a refresh token for a new [TokenPair].
type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (TokenPair, error)
}

// RefreshError describes a failed refresh_token grant.
//
// StatusCode is zero when the request never produced an HTTP response.
type RefreshError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *RefreshError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("token refresh failed: status %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("token refresh failed: %s", e.Message)
}

func (e *RefreshError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is match any RefreshError against [shared.ErrRefreshFailed].
func (e *RefreshError) Is(target error) bool {
	return target == shared.ErrRefreshFailed
}

// RefreshClient implements [Refresher] against an OAuth2 token endpoint.
//
// It holds no per-user state and is safe for concurrent use.
type RefreshClient struct {
	config     *oauth2.Config
	httpClient *http.Client
	timeout    time.Duration
	now        func() time.Time
}

// RefreshClientOpts configures a [RefreshClient].
type RefreshClientOpts struct {
	ClientID     string
	ClientSecret string
	TokenURL     string
	Timeout      time.Duration    // defaults to [DefaultRefreshTimeout]
	HTTPClient   *http.Client     // defaults to a client with Timeout set
	Now          func() time.Time // defaults to [time.Now]
}

// NewRefreshClient creates a [RefreshClient] that authenticates with HTTP Basic client credentials.
func NewRefreshClient(opts RefreshClientOpts) (*RefreshClient, error) {
	if opts.ClientID == "" || opts.ClientSecret == "" {
		return nil, fmt.Errorf("%w: client id and secret are required", shared.ErrMissingCredentials)
	}
	if opts.TokenURL == "" {
		return nil, fmt.Errorf("%w: token url is required", shared.ErrInvalidConfig)
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultRefreshTimeout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: opts.Timeout}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &RefreshClient{
		config: &oauth2.Config{
			ClientID:     opts.ClientID,
			ClientSecret: opts.ClientSecret,
			Endpoint: oauth2.Endpoint{
				TokenURL:  opts.TokenURL,
				AuthStyle: oauth2.AuthStyleInHeader,
			},
		},
		httpClient: opts.HTTPClient,
		timeout:    opts.Timeout,
		now:        opts.Now,
	}, nil
}

// Refresh performs the refresh_token grant.
//
// A transport failure is retried once; HTTP and decoding failures are not. When the provider omits a
// rotated refresh token the original one is kept.
func (c *RefreshClient) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	if refreshToken == "" {
		return TokenPair{}, &RefreshError{Message: "session has no refresh token", Err: shared.ErrNoRefreshToken}
	}

	tok, err := c.fetch(ctx, refreshToken)
	if err != nil && isTransportError(err) {
		tok, err = c.fetch(ctx, refreshToken)
	}
	if err != nil {
		return TokenPair{}, asRefreshError(err)
	}

	lifetime, err := tokenLifetime(tok, c.now())
	if err != nil {
		return TokenPair{}, &RefreshError{StatusCode: http.StatusOK, Message: err.Error(), Err: err}
	}

	pair := TokenPair{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ExpiresAt:    c.now().Add(lifetime),
	}
	if pair.RefreshToken == "" {
		pair.RefreshToken = refreshToken
	}
	return pair, nil
}

func (c *RefreshClient) fetch(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)

	// An empty access token forces the source to hit the token endpoint.
	return c.config.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken}).Token()
}

// tokenLifetime reads expires_in from the raw response, falling back to the parsed expiry.
func tokenLifetime(tok *oauth2.Token, now time.Time) (time.Duration, error) {
	var seconds float64
	switch v := tok.Extra("expires_in").(type) {
	case float64:
		seconds = v
	case int64:
		seconds = float64(v)
	case json.Number:
		seconds, _ = v.Float64()
	case string:
		seconds, _ = strconv.ParseFloat(v, 64)
	}
	if seconds > 0 {
		return time.Duration(seconds * float64(time.Second)), nil
	}
	if !tok.Expiry.IsZero() {
		if d := tok.Expiry.Sub(now); d > 0 {
			return d, nil
		}
	}
	return 0, errors.New("token response has no usable expires_in")
}

func isTransportError(err error) bool {
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		return false
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

func asRefreshError(err error) *RefreshError {
	var retrieveErr *oauth2.RetrieveError
	if !errors.As(err, &retrieveErr) {
		return &RefreshError{Message: err.Error(), Err: err}
	}

	refreshErr := &RefreshError{Err: err, Message: retrieveErr.ErrorCode}
	if retrieveErr.Response != nil {
		refreshErr.StatusCode = retrieveErr.Response.StatusCode
	}
	if retrieveErr.ErrorDescription != "" {
		refreshErr.Message = strings.TrimSpace(refreshErr.Message + " " + retrieveErr.ErrorDescription)
	}
	if refreshErr.Message == "" {
		refreshErr.Message = truncate(string(retrieveErr.Body), 200)
	}
	return refreshErr
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
