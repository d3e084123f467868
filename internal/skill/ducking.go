package skill

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"voxspot/internal/core"
	"voxspot/internal/playback"
	"voxspot/internal/scheduler"
)

// Ducker pauses playback while the assistant listens and resumes it once the
// listener has been idle for a number of checks.
type Ducker struct {
	player   Player
	timers   Timers
	interval time.Duration
	ticks    int
	logger   *zap.Logger

	mu        sync.Mutex
	enabled   bool
	ducking   bool
	listening bool
	idle      int
}

func NewDucker(player Player, timers Timers, interval time.Duration, ticks int, logger *zap.Logger) *Ducker {
	if interval <= 0 {
		interval = core.DefaultIdleCheckInterval
	}
	if ticks <= 0 {
		ticks = core.DefaultIdleTicks
	}
	return &Ducker{
		player:   player,
		timers:   timers,
		interval: interval,
		ticks:    ticks,
		logger:   logger,
	}
}

// SetEnabled turns ducking on or off. Turning it off ends any ducking in progress
// without resuming.
func (d *Ducker) SetEnabled(v bool) {
	d.mu.Lock()
	d.enabled = v
	d.mu.Unlock()
	if !v {
		d.Cancel()
	}
}

// Ducking reports whether playback is currently paused by the ducker.
func (d *Ducker) Ducking() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.ducking
}

// ListenerStarted pauses playback if anything plays and starts the idle check.
func (d *Ducker) ListenerStarted(ctx context.Context) {
	d.mu.Lock()
	d.listening = true
	if !d.enabled || d.ducking {
		d.idle = 0
		d.mu.Unlock()
		return
	}
	d.mu.Unlock()

	if !d.player.IsPlaying() {
		return
	}
	if err := d.player.Pause(ctx); err != nil {
		d.logger.Warn("Failed to duck playback", zap.Error(err))
		return
	}

	d.mu.Lock()
	d.ducking = true
	d.idle = 0
	d.mu.Unlock()

	d.logger.Debug("Ducking playback")
	d.timers.Every(scheduler.IdleCheck, d.interval, d.check)
}

func (d *Ducker) ListenerStopped() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.listening = false
}

// Cancel ends ducking without resuming playback.
func (d *Ducker) Cancel() {
	d.mu.Lock()
	wasDucking := d.ducking
	d.ducking = false
	d.idle = 0
	d.mu.Unlock()

	if wasDucking {
		d.timers.Cancel(scheduler.IdleCheck)
	}
}

// check is one idle-check tick. It returns false, cancelling the timer, once
// ducking has ended.
func (d *Ducker) check(ctx context.Context) bool {
	d.mu.Lock()
	if !d.ducking {
		d.mu.Unlock()
		return false
	}
	if d.listening {
		d.idle = 0
		d.mu.Unlock()
		return true
	}
	d.idle++
	if d.idle < d.ticks {
		d.mu.Unlock()
		return true
	}
	d.ducking = false
	d.idle = 0
	d.mu.Unlock()

	d.logger.Debug("Listener idle, resuming playback")
	if err := d.player.Resume(ctx); err != nil {
		d.logger.Warn("Failed to resume after ducking", zap.Error(err))
	}
	return false
}

// PlaybackStateChanged ends ducking when playback was started or stopped by
// something other than the ducker.
func (d *Ducker) PlaybackStateChanged(state playback.State) {
	if state == playback.Playing || state == playback.Idle {
		d.Cancel()
	}
}

func (d *Ducker) NowPlaying(string) {}
