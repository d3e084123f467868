// Package scheduler runs named repeating callbacks.
package scheduler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Names of the repeating timers used by the skill.
const (
	SpotifyLogin   = "SpotifyLogin"
	MonitorSpotify = "MonitorSpotify"
	IdleCheck      = "IdleCheck"
)

// Func is a repeating callback. Returning false cancels the timer.
type Func func(ctx context.Context) bool

type timer struct {
	id       uint64
	interval time.Duration
	cancel   context.CancelFunc
}

// Scheduler owns a set of named tickers. At most one timer exists per name.
type Scheduler struct {
	logger *zap.Logger

	mu     sync.Mutex
	root   context.Context
	stop   context.CancelFunc
	timers map[string]*timer
	nextID uint64
	wg     sync.WaitGroup
}

// New creates a scheduler.
func New(logger *zap.Logger) *Scheduler {
	root, stop := context.WithCancel(context.Background())
	return &Scheduler{
		logger: logger,
		root:   root,
		stop:   stop,
		timers: make(map[string]*timer),
	}
}

// Every runs fn every interval under name, replacing any timer of that name.
// The first run happens one interval from now.
func (s *Scheduler) Every(name string, interval time.Duration, fn Func) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.root.Err() != nil {
		s.logger.Debug("Scheduler stopped, ignoring timer", zap.String("name", name))
		return
	}
	if old, ok := s.timers[name]; ok {
		old.cancel()
	}

	s.nextID++
	ctx, cancel := context.WithCancel(s.root)
	t := &timer{id: s.nextID, interval: interval, cancel: cancel}
	s.timers[name] = t

	s.wg.Add(1)
	go s.run(ctx, name, t, fn)

	s.logger.Debug("Scheduled timer", zap.String("name", name), zap.Duration("interval", interval))
}

func (s *Scheduler) run(ctx context.Context, name string, t *timer, fn Func) {
	defer s.wg.Done()

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !fn(ctx) {
				s.remove(name, t.id)
				return
			}
		}
	}
}

// remove cancels the timer only if name still refers to the same instance.
func (s *Scheduler) remove(name string, id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.timers[name]; ok && t.id == id {
		t.cancel()
		delete(s.timers, name)
		s.logger.Debug("Timer finished", zap.String("name", name))
	}
}

// Cancel stops the named timer. It does not wait for a running callback and
// is safe to call from inside one.
func (s *Scheduler) Cancel(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.timers[name]; ok {
		t.cancel()
		delete(s.timers, name)
		s.logger.Debug("Cancelled timer", zap.String("name", name))
	}
}

// Active reports whether a timer with the given name is scheduled.
func (s *Scheduler) Active(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.timers[name]
	return ok
}

// CancelAll stops every timer without waiting.
func (s *Scheduler) CancelAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for name, t := range s.timers {
		t.cancel()
		delete(s.timers, name)
	}
}

// Stop cancels every timer, refuses new ones and waits for running callbacks
// to return. It must not be called from a callback.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	s.stop()
	for name, t := range s.timers {
		t.cancel()
		delete(s.timers, name)
	}
	s.mu.Unlock()

	s.wg.Wait()
}
