package session

import (
	"time"

	"github.com/charmbracelet/log"
)

// EventKind names a session outcome.
type EventKind string

const (
	EventStored           EventKind = "stored"
	EventFastPathHit      EventKind = "fast-path-hit"
	EventRefreshAttempted EventKind = "refresh-attempted"
	EventRefreshSucceeded EventKind = "refresh-succeeded"
	EventRefreshFailed    EventKind = "refresh-failed"
	EventCleared          EventKind = "cleared"
	EventSwept            EventKind = "swept"
)

// Event is emitted by [Manager] for every session outcome. It never carries token values.
type Event struct {
	Kind   EventKind
	UserID string
	Detail string
	At     time.Time
}

// Observer receives session events. Implementations must be safe for concurrent use and must not block.
type Observer interface {
	Observe(Event)
}

// ObserverFunc adapts a function to [Observer].
type ObserverFunc func(Event)

func (f ObserverFunc) Observe(e Event) { f(e) }

// MultiObserver fans an event out to each observer in order.
type MultiObserver []Observer

func (m MultiObserver) Observe(e Event) {
	for _, o := range m {
		if o != nil {
			o.Observe(e)
		}
	}
}

type nopObserver struct{}

func (nopObserver) Observe(Event) {}

// LogObserver writes events as structured log lines.
//
// Fast-path hits are logged at debug level since they happen on every proxied request.
type LogObserver struct {
	logger *log.Logger
}

// NewLogObserver creates a [LogObserver] with a "component" field set on logger.
func NewLogObserver(logger *log.Logger) *LogObserver {
	return &LogObserver{logger: logger.With("component", "session")}
}

func (o *LogObserver) Observe(e Event) {
	kv := []any{"event", string(e.Kind), "user", e.UserID}
	if e.Detail != "" {
		kv = append(kv, "detail", e.Detail)
	}

	switch e.Kind {
	case EventFastPathHit:
		o.logger.Debug("access token served from cache", kv...)
	case EventRefreshFailed:
		o.logger.Warn("token refresh failed, session evicted", kv...)
	default:
		o.logger.Info("session event", kv...)
	}
}
