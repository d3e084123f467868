package playback

import (
	"context"

	"go.uber.org/zap"

	"voxspot/internal/scheduler"
)

// startMonitorLocked (re)starts the now-playing poll. Each start bumps the
// generation so a poll already in flight from an older start is ignored.
func (c *Controller) startMonitorLocked() {
	c.monitorGen++
	gen := c.monitorGen
	c.timers.Every(scheduler.MonitorSpotify, c.opts.MonitorInterval, func(ctx context.Context) bool {
		return c.pollNowPlaying(ctx, gen)
	})
}

func (c *Controller) stopMonitorLocked() {
	c.monitorGen++
	c.timers.Cancel(scheduler.MonitorSpotify)
	c.setNowPlayingLocked("")
}

// pollNowPlaying is one monitor tick. It returns false once nothing plays,
// which cancels the timer. A nil status is also what a failed status call
// looks like, so only an explicit not-playing status pauses the session.
func (c *Controller) pollNowPlaying(ctx context.Context, gen uint64) bool {
	status := c.client.Status(ctx)

	c.lock()
	defer c.unlock()

	if gen != c.monitorGen {
		return false
	}

	if status == nil || !status.IsPlaying {
		c.logger.Debug("Nothing playing, stopping monitor", zap.Bool("status", status != nil))
		c.monitorGen++
		c.setNowPlayingLocked("")
		if status != nil && c.state == Playing {
			c.setStateLocked(Paused)
		}
		return false
	}

	if text := status.NowPlayingText(); text != c.nowPlaying {
		c.logger.Debug("Now playing", zap.String("text", text))
		c.setNowPlayingLocked(text)
	}
	return true
}
