package session

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
)

// DefaultSweepInterval matches the hourly cleanup of the login service.
const DefaultSweepInterval = time.Hour

// Sweeper periodically evicts sessions that are expired and cannot be refreshed.
type Sweeper struct {
	manager  *Manager
	logger   *log.Logger
	interval time.Duration

	startOnce sync.Once
	stopOnce  sync.Once
	started   atomic.Bool
	stopCh    chan struct{}
	doneCh    chan struct{}
}

// NewSweeper creates a [Sweeper]. A non-positive interval falls back to [DefaultSweepInterval].
func NewSweeper(manager *Manager, logger *log.Logger, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	return &Sweeper{
		manager:  manager,
		logger:   logger.With("component", "sweeper"),
		interval: interval,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start launches the background worker, which sweeps once immediately and then on every tick.
func (s *Sweeper) Start() {
	s.startOnce.Do(func() {
		s.started.Store(true)
		go s.run()
		s.logger.Info("session sweeper started", "interval", s.interval)
	})
}

// Stop signals the worker and blocks until it has exited. Safe to call more than once.
func (s *Sweeper) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopCh)
		if s.started.Load() {
			<-s.doneCh
		}
		s.logger.Info("session sweeper stopped")
	})
}

func (s *Sweeper) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.sweep()
	for {
		select {
		case <-ticker.C:
			s.sweep()
		case <-s.stopCh:
			return
		}
	}
}

func (s *Sweeper) sweep() {
	evicted := s.manager.CleanUpExpiredSessions()
	s.logger.Debug("session sweep completed", "evicted", evicted, "remaining", s.manager.ActiveSessions())
}
