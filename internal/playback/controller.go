package playback

import (
	"context"
	"errors"
	"math/rand/v2"
	"os"
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"

	"voxspot/internal/core"
	"voxspot/internal/librespot"
	"voxspot/internal/store"
)

// Options configure a Controller.
type Options struct {
	// DeviceName is the Connect name this host registers through librespot.
	DeviceName string
	// Platform selects the default volume for a freshly launched helper.
	Platform string
	// LibrespotPath is used when the settings do not name a binary.
	LibrespotPath   string
	MonitorInterval time.Duration
}

// Controller owns the playback session. Every state transition happens
// under one mutex; observers are notified after it is released.
type Controller struct {
	client  core.SpotifyClient
	devices DeviceSource
	helper  Helper
	timers  Timers
	recent  *store.RecentTracks
	opts    Options
	logger  *zap.Logger

	hostname func() (string, error)
	shuffle  func([]string)

	obsMu     sync.RWMutex
	observers []Observer
	recorder  Recorder

	mu            sync.Mutex
	pending       []func(Observer)
	state         State
	authenticated bool
	deviceID      string
	remote        bool
	lastKind      string
	settings      core.Settings
	monitorGen    uint64
	nowPlaying    string
}

// NewController creates a controller. helper and recent may be nil.
func NewController(
	client core.SpotifyClient,
	devices DeviceSource,
	helper Helper,
	timers Timers,
	recent *store.RecentTracks,
	opts Options,
	logger *zap.Logger,
) *Controller {
	if opts.MonitorInterval <= 0 {
		opts.MonitorInterval = core.DefaultMonitorInterval
	}
	if opts.LibrespotPath == "" {
		opts.LibrespotPath = librespot.DefaultPath
	}
	return &Controller{
		client:   client,
		devices:  devices,
		helper:   helper,
		timers:   timers,
		recent:   recent,
		opts:     opts,
		logger:   logger,
		hostname: os.Hostname,
		shuffle: func(s []string) {
			rand.Shuffle(len(s), func(i, j int) { s[i], s[j] = s[j], s[i] })
		},
	}
}

// AddObserver subscribes o to state and now-playing changes.
func (c *Controller) AddObserver(o Observer) {
	c.obsMu.Lock()
	defer c.obsMu.Unlock()
	c.observers = append(c.observers, o)
}

// SetRecorder attaches a metrics recorder.
func (c *Controller) SetRecorder(r Recorder) {
	c.obsMu.Lock()
	defer c.obsMu.Unlock()
	c.recorder = r
}

func (c *Controller) lock() {
	c.mu.Lock()
}

// unlock releases the state lock and then delivers queued notifications.
func (c *Controller) unlock() {
	pending := c.pending
	c.pending = nil
	c.mu.Unlock()

	if len(pending) == 0 {
		return
	}
	c.obsMu.RLock()
	observers := slices.Clone(c.observers)
	c.obsMu.RUnlock()

	for _, ev := range pending {
		for _, o := range observers {
			ev(o)
		}
	}
}

func (c *Controller) setStateLocked(s State) {
	if c.state == s {
		return
	}
	c.logger.Debug("Playback state changed", zap.Stringer("from", c.state), zap.Stringer("to", s))
	c.state = s
	c.pending = append(c.pending, func(o Observer) { o.PlaybackStateChanged(s) })

	c.obsMu.RLock()
	r := c.recorder
	c.obsMu.RUnlock()
	if r != nil {
		r.RecordPlaybackState(s.String())
	}
}

func (c *Controller) setNowPlayingLocked(text string) {
	if c.nowPlaying == text {
		return
	}
	c.nowPlaying = text
	c.pending = append(c.pending, func(o Observer) { o.NowPlaying(text) })
}

func (c *Controller) record(kind core.RequestKind, err error) {
	c.obsMu.RLock()
	r := c.recorder
	c.obsMu.RUnlock()
	if r == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	r.RecordPlayback(kind.String(), status)
}

// SetAuthenticated records whether the remote client holds a valid credential.
func (c *Controller) SetAuthenticated(v bool) {
	c.lock()
	defer c.unlock()
	c.authenticated = v
}

// Configure applies new user settings.
func (c *Controller) Configure(settings core.Settings) {
	c.lock()
	defer c.unlock()
	c.settings = settings
}

// State returns the current state.
func (c *Controller) State() State {
	c.lock()
	defer c.unlock()
	return c.state
}

// IsPlaying reports whether the controller believes playback is active.
func (c *Controller) IsPlaying() bool {
	return c.State() == Playing
}

// Session returns a snapshot of the session state.
func (c *Controller) Session() Session {
	c.lock()
	defer c.unlock()
	return Session{
		State:         c.state.String(),
		Authenticated: c.authenticated,
		DeviceID:      c.deviceID,
		Remote:        c.remote,
		IsPlaying:     c.state == Playing,
		LastKind:      c.lastKind,
		HelperAlive:   c.helper != nil && c.helper.Alive(),
		NowPlaying:    c.nowPlaying,
	}
}

// Devices returns the cached live device list.
func (c *Controller) Devices(ctx context.Context) []core.Device {
	return c.devices.Get(ctx)
}

// Start resolves a target device and plays req on it.
func (c *Controller) Start(ctx context.Context, req core.PlaybackRequest) error {
	c.lock()
	defer c.unlock()

	err := c.startLocked(ctx, req, "")
	c.record(req.Kind, err)
	return err
}

// StartOn plays req on the device whose name best matches deviceName.
func (c *Controller) StartOn(ctx context.Context, req core.PlaybackRequest, deviceName string) error {
	c.lock()
	defer c.unlock()

	err := c.startLocked(ctx, req, deviceName)
	c.record(req.Kind, err)
	return err
}

func (c *Controller) startLocked(ctx context.Context, req core.PlaybackRequest, deviceName string) error {
	if !c.authenticated {
		return core.ErrNotAuthorized
	}
	if req.Kind == core.KindPlaylist && req.Playlist == nil {
		return &core.PlaylistNotFoundError{Name: req.Name}
	}

	c.stopMonitorLocked()
	c.setStateLocked(Resolving)

	if err := c.ensureHelperLocked(ctx); err != nil {
		c.failLocked()
		return err
	}

	var (
		device core.Device
		err    error
	)
	if deviceName != "" {
		device, err = c.namedDeviceLocked(ctx, deviceName)
		if err == nil && !device.IsActive {
			err = c.transferLocked(ctx, device, false)
		}
	} else {
		device, err = c.resolveDefaultDeviceLocked(ctx)
	}
	if err != nil {
		c.failLocked()
		return err
	}

	if err := c.issueLocked(ctx, device, req); err != nil {
		c.failLocked()
		return classify("play", err)
	}

	c.deviceID = device.ID
	c.remote = !c.isOwnDevice(device)
	c.lastKind = req.Kind.String()
	c.setStateLocked(Playing)
	c.startMonitorLocked()

	c.logger.Info("Started playback",
		zap.Stringer("kind", req.Kind),
		zap.String("name", req.Name),
		zap.String("device", device.Name))
	return nil
}

// failLocked returns the state machine to Idle after a failed start.
func (c *Controller) failLocked() {
	c.deviceID = ""
	c.setStateLocked(Idle)
}

// issueLocked performs the remote play call appropriate to the request kind.
func (c *Controller) issueLocked(ctx context.Context, device core.Device, req core.PlaybackRequest) error {
	switch req.Kind {
	case core.KindContinue, core.KindGeneric:
		return c.client.Play(ctx, device.ID, nil, "")

	case core.KindTrack:
		if err := c.client.Play(ctx, device.ID, req.URIs, ""); err != nil {
			return err
		}
		c.remember(req.URIs...)
		return nil

	case core.KindAlbum, core.KindArtist:
		return c.client.Play(ctx, device.ID, nil, req.ContextURI)

	case core.KindPlaylist:
		if req.ContextURI != "" {
			return c.client.Play(ctx, device.ID, nil, req.ContextURI)
		}
		uris, err := c.client.PlaylistTracks(ctx, req.Playlist.OwnerID, req.Playlist.ID)
		if err != nil {
			return err
		}
		if len(uris) == 0 {
			return errors.New("playlist has no playable tracks")
		}
		return c.client.Play(ctx, device.ID, uris, "")

	case core.KindGenre:
		if len(req.URIs) == 0 {
			return errors.New("no tracks for genre " + req.Genre)
		}
		uris := slices.Clone(req.URIs)
		c.shuffle(uris)
		if c.recent != nil {
			uris = c.recent.Fresh(uris)
		}
		// The queue is already in the order it should play.
		if err := c.client.SetShuffle(ctx, false); err != nil {
			c.logger.Warn("Failed to disable shuffle for genre queue", zap.Error(err))
		}
		if err := c.client.Play(ctx, device.ID, uris, ""); err != nil {
			return err
		}
		c.remember(uris...)
		return nil

	default:
		return errors.New("unsupported request kind " + req.Kind.String())
	}
}

func (c *Controller) remember(uris ...string) {
	if c.recent != nil {
		c.recent.Add(uris...)
	}
}

// Pause pauses the current device.
func (c *Controller) Pause(ctx context.Context) error {
	c.lock()
	defer c.unlock()

	if !c.authenticated {
		return core.ErrNotAuthorized
	}
	if c.deviceID == "" {
		c.logger.Debug("Pause requested without a known device")
		return nil
	}
	if err := c.client.Pause(ctx, c.deviceID); err != nil {
		return classify("pause", err)
	}
	c.stopMonitorLocked()
	c.setStateLocked(Paused)
	return nil
}

// Resume continues playback on the current device, resolving a default
// device first when none is known.
func (c *Controller) Resume(ctx context.Context) error {
	c.lock()
	defer c.unlock()

	if !c.authenticated {
		return core.ErrNotAuthorized
	}
	if c.deviceID == "" {
		return c.startLocked(ctx, core.ContinueRequest(), "")
	}
	if err := c.client.Play(ctx, c.deviceID, nil, ""); err != nil {
		return classify("resume", err)
	}
	c.setStateLocked(Playing)
	c.startMonitorLocked()
	return nil
}

// Next skips to the next track on the current device, if any.
func (c *Controller) Next(ctx context.Context) error {
	return c.skip(ctx, "next", c.client.Next)
}

// Previous skips to the previous track on the current device, if any.
func (c *Controller) Previous(ctx context.Context) error {
	return c.skip(ctx, "previous", c.client.Previous)
}

func (c *Controller) skip(ctx context.Context, op string, call func(context.Context, string) error) error {
	c.lock()
	defer c.unlock()

	if !c.authenticated {
		return core.ErrNotAuthorized
	}
	if c.deviceID == "" {
		c.logger.Debug("Skip requested without a known device", zap.String("op", op))
		return nil
	}
	if err := call(ctx, c.deviceID); err != nil {
		return classify(op, err)
	}
	c.startMonitorLocked()
	return nil
}

// Stop pauses whatever plays, tolerating errors, and returns to Idle.
func (c *Controller) Stop(ctx context.Context) {
	c.lock()
	defer c.unlock()

	if c.authenticated {
		if err := c.client.Pause(ctx, c.deviceID); err != nil {
			c.logger.Debug("Pause on stop failed", zap.Error(err))
		}
	}
	c.stopMonitorLocked()
	c.deviceID = ""
	c.remote = false
	c.setStateLocked(Idle)
}

// Transfer moves active playback to the device best matching name. It is a
// no-op when the service reports nothing playing or the device is already
// the one playing. Playback started by another app is moved as well.
func (c *Controller) Transfer(ctx context.Context, name string) (core.Device, bool, error) {
	c.lock()
	defer c.unlock()

	if !c.authenticated {
		return core.Device{}, false, core.ErrNotAuthorized
	}
	device, err := c.namedDeviceLocked(ctx, name)
	if err != nil {
		return core.Device{}, false, err
	}
	status := c.client.Status(ctx)
	if status == nil || !status.IsPlaying {
		return device, false, nil
	}
	if device.IsActive || (status.Device != nil && status.Device.ID == device.ID) {
		return device, false, nil
	}
	if err := c.transferLocked(ctx, device, true); err != nil {
		return device, false, err
	}
	c.devices.Invalidate()
	c.deviceID = device.ID
	c.remote = !c.isOwnDevice(device)
	c.setStateLocked(Playing)
	c.startMonitorLocked()
	return device, true, nil
}

func (c *Controller) transferLocked(ctx context.Context, device core.Device, forcePlay bool) error {
	if err := c.client.TransferPlayback(ctx, device.ID, forcePlay); err != nil {
		return classify("transfer", err)
	}
	c.logger.Info("Transferred playback", zap.String("device", device.Name), zap.Bool("play", forcePlay))
	return nil
}

// Shutdown stops the monitor and terminates the helper process.
func (c *Controller) Shutdown() {
	c.lock()
	defer c.unlock()

	c.stopMonitorLocked()
	if c.helper != nil {
		c.helper.Stop()
	}
	c.deviceID = ""
	c.setStateLocked(Idle)
}

// classify wraps unexpected remote failures; already classified errors pass through.
func classify(op string, err error) error {
	var notFound *core.PlaylistNotFoundError
	var failed *core.PlaybackFailedError
	switch {
	case errors.Is(err, core.ErrNotAuthorized),
		errors.Is(err, core.ErrNoDevices),
		errors.Is(err, core.ErrDeviceNotFound),
		errors.As(err, &notFound),
		errors.As(err, &failed):
		return err
	default:
		return &core.PlaybackFailedError{Op: op, Err: err}
	}
}
