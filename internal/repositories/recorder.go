package repositories

import (
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/musicman/internal/models"
	"github.com/desertthunder/musicman/internal/session"
)

// DefaultRecorderBuffer is the number of events queued before new ones are dropped.
const DefaultRecorderBuffer = 256

// EventRecorder persists session lifecycle events on a background goroutine. It implements [session.Observer].
//
// Fast-path hits happen on every proxied request and are not recorded. When the queue is full or a write
// fails the event is logged and dropped; auditing never blocks or fails a session operation.
type EventRecorder struct {
	repo   *EventRepository
	logger *log.Logger

	mu     sync.RWMutex
	closed bool
	queue  chan session.Event
	doneCh chan struct{}
}

// NewEventRecorder starts the writer goroutine. Call [EventRecorder.Close] to flush and stop it.
func NewEventRecorder(repo *EventRepository, logger *log.Logger, buffer int) *EventRecorder {
	if buffer <= 0 {
		buffer = DefaultRecorderBuffer
	}

	r := &EventRecorder{
		repo:   repo,
		logger: logger,
		queue:  make(chan session.Event, buffer),
		doneCh: make(chan struct{}),
	}
	go r.run()
	return r
}

func (r *EventRecorder) Observe(e session.Event) {
	if e.Kind == session.EventFastPathHit {
		return
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return
	}

	select {
	case r.queue <- e:
	default:
		r.logger.Warn("audit queue full, dropping event", "user", e.UserID, "event", e.Kind)
	}
}

// Close stops accepting events and waits until queued ones are written. Safe to call more than once.
func (r *EventRecorder) Close() {
	r.mu.Lock()
	if !r.closed {
		r.closed = true
		close(r.queue)
	}
	r.mu.Unlock()

	<-r.doneCh
}

func (r *EventRecorder) run() {
	defer close(r.doneCh)

	for e := range r.queue {
		event := models.NewSessionEvent(e.UserID, string(e.Kind), e.Detail, e.At)
		if err := r.repo.Create(event); err != nil {
			r.logger.Warn("failed to record session event", "user", e.UserID, "event", e.Kind, "err", err)
		}
	}
}
