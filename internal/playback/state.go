// Package playback drives Spotify playback for the skill: it picks a target
// device, issues the remote calls for a matched request and tracks the
// resulting session state.
package playback

import (
	"context"
	"time"

	"voxspot/internal/core"
	"voxspot/internal/librespot"
	"voxspot/internal/scheduler"
)

// State of the playback state machine.
type State int

const (
	Idle State = iota
	Resolving
	Playing
	Paused
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Resolving:
		return "resolving"
	case Playing:
		return "playing"
	case Paused:
		return "paused"
	default:
		return "unknown"
	}
}

// Session is a snapshot of the controller's state.
type Session struct {
	State         string `json:"state"`
	Authenticated bool   `json:"authenticated"`
	DeviceID      string `json:"device_id,omitempty"`
	Remote        bool   `json:"remote_device"`
	IsPlaying     bool   `json:"is_playing"`
	LastKind      string `json:"last_kind,omitempty"`
	HelperAlive   bool   `json:"helper_alive"`
	NowPlaying    string `json:"now_playing,omitempty"`
}

// Observer is notified of state changes and now-playing text. Callbacks run
// outside the controller lock and may call back into the controller.
type Observer interface {
	PlaybackStateChanged(state State)
	NowPlaying(text string)
}

// Recorder receives playback metrics.
type Recorder interface {
	RecordPlayback(kind, status string)
	RecordPlaybackState(state string)
}

// DeviceSource is the cached live device list.
type DeviceSource interface {
	Get(ctx context.Context) []core.Device
	Invalidate()
}

// Helper is the local librespot process.
type Helper interface {
	Launch(ctx context.Context, opts librespot.Options) error
	Alive() bool
	Stop()
	DeviceName() string
}

// Timers schedules the now-playing monitor.
type Timers interface {
	Every(name string, interval time.Duration, fn scheduler.Func)
	Cancel(name string)
}
