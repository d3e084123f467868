// Package display mirrors playback onto the device's small text display.
package display

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"voxspot/internal/host/mqtt"
	"voxspot/internal/playback"
)

const publishTimeout = 2 * time.Second

// Publisher sends a message to the host bus.
type Publisher interface {
	Publish(ctx context.Context, topic string, v any) error
}

// Display is a playback observer that shows the current track and clears the
// display when playback ends.
type Display struct {
	bus    Publisher
	logger *zap.Logger

	mu    sync.Mutex
	shown string
}

func New(bus Publisher, logger *zap.Logger) *Display {
	return &Display{bus: bus, logger: logger}
}

func (d *Display) NowPlaying(text string) {
	if text == "" {
		d.reset()
		return
	}

	d.mu.Lock()
	if d.shown == text {
		d.mu.Unlock()
		return
	}
	d.shown = text
	d.mu.Unlock()

	d.publish(mqtt.TopicDisplayText, mqtt.DisplayText{Text: text})
}

func (d *Display) PlaybackStateChanged(state playback.State) {
	if state == playback.Idle {
		d.reset()
	}
}

func (d *Display) reset() {
	d.mu.Lock()
	if d.shown == "" {
		d.mu.Unlock()
		return
	}
	d.shown = ""
	d.mu.Unlock()

	d.publish(mqtt.TopicDisplayReset, struct{}{})
}

func (d *Display) publish(topic string, v any) {
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	if err := d.bus.Publish(ctx, topic, v); err != nil {
		d.logger.Warn("Failed to update display", zap.String("topic", topic), zap.Error(err))
	}
}
