// package server contains middleware & handlers for the musicman backend-for-frontend
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/musicman/internal/services"
	"github.com/desertthunder/musicman/internal/shared"
)

// Middleware wraps an http.Handler and returns a new http.Handler with additional behavior.
// Common middleware includes logging, CORS, rate limiting, etc.
type Middleware func(http.Handler) http.Handler

// Handler defines the interface for HTTP request handlers in the backend.
// Implementations handle a group of endpoints (login, user status, Spotify proxy).
type Handler interface {
	http.Handler      // ServeHTTP handles the HTTP request and writes the response
	Routes() []string // Routes returns the method-qualified patterns this handler serves
}

// Router defines the interface for HTTP routing and middleware management.
// Implementations register handlers, apply middleware, and configure the HTTP server.
type Router interface {
	Use(middleware ...Middleware)                     // Use adds middleware to the router's middleware stack
	Handle(method, path string, handler http.Handler) // Handle registers a handler for the specified method and path
	Handler(handler Handler)                          // Handler registers a custom Handler implementation
	ServeHTTP(w http.ResponseWriter, r *http.Request) // ServeHTTP implements http.Handler for the entire router
}

// SessionManager is the slice of the session manager the handlers depend on.
type SessionManager interface {
	StoreUserSession(userID, accessToken, refreshToken string, expiresAt time.Time)
	AccessToken(ctx context.Context, userID string) (string, error)
	IsValidSession(userID string) bool
	ClearUserSession(userID string)
}

// Options holds the dependencies used to build the backend router.
type Options struct {
	Config   shared.ServerConfig
	Sessions SessionManager
	Spotify  services.Service
	OAuth    services.OAuthService
	Handles  *Handles // defaults to a registry with the session cookie lifetime
	Logger   *log.Logger
}

// New builds a [BasicRouter] with the middleware stack and every backend handler registered.
func New(opts Options) *BasicRouter {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	handles := opts.Handles
	if handles == nil {
		handles = NewHandles(sessionCookieTTL)
	}

	cookies := cookieSettings{
		domain: opts.Config.CookieDomain,
		secure: opts.Config.CookieSecure,
	}

	r := NewBasicRouter()
	r.Use(
		Recover(logger),
		Logging(logger),
		CORS(opts.Config.AllowedOrigins),
		RateLimit(opts.Config.RateLimit, opts.Config.RateBurst, logger),
	)

	r.Handle(http.MethodOptions, "/", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	r.Handler(NewOAuthHandler(opts.OAuth, opts.Spotify, opts.Sessions, handles, cookies, opts.Config.FrontendURL, logger))
	r.Handler(NewUserHandler(opts.Sessions, handles, cookies, opts.Config.FrontendURL, logger))
	r.Handler(NewSpotifyHandler(opts.Spotify, opts.Sessions, handles, logger))
	return r
}

// NewHTTPServer wraps handler in an [http.Server] listening on the configured address.
func NewHTTPServer(cfg shared.ServerConfig, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.Addr(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}
}
