// Package skill glues the phrase matcher and the playback controller to the
// voice assistant's message bus.
package skill

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"voxspot/internal/core"
	"voxspot/internal/host/mqtt"
	"voxspot/internal/i18n"
	"voxspot/internal/playback"
	"voxspot/internal/scheduler"
	"voxspot/internal/store"
)

// DefaultSkillID identifies this skill in play queries.
const DefaultSkillID = "voxspot"

// Bus is the host message bus.
type Bus interface {
	Handle(topic string, h mqtt.Handler) error
	Publish(ctx context.Context, topic string, v any) error
}

// Authenticator logs in to the remote service.
type Authenticator interface {
	Authenticate(ctx context.Context) error
	IsAuthenticated() bool
}

// PhraseMatcher scores phrases and resolves playlist names.
type PhraseMatcher interface {
	Match(ctx context.Context, phrase string, serviceHint bool) *core.MatchResult
	ResolvePlaylist(ctx context.Context, name string) (core.Playlist, float64, error)
	SetPlaylistAsContext(v bool)
}

// Player is the playback controller.
type Player interface {
	Start(ctx context.Context, req core.PlaybackRequest) error
	StartOn(ctx context.Context, req core.PlaybackRequest, deviceName string) error
	Pause(ctx context.Context) error
	Resume(ctx context.Context) error
	Next(ctx context.Context) error
	Previous(ctx context.Context) error
	Stop(ctx context.Context)
	Transfer(ctx context.Context, name string) (core.Device, bool, error)
	Devices(ctx context.Context) []core.Device
	IsPlaying() bool
	SetAuthenticated(v bool)
	Configure(settings core.Settings)
	RestartHelper(ctx context.Context) error
	Shutdown()
	AddObserver(o playback.Observer)
}

// Timers schedules named repeating callbacks.
type Timers interface {
	Every(name string, interval time.Duration, fn scheduler.Func)
	Cancel(name string)
	CancelAll()
}

// SettingsStore holds the persisted skill settings and track history.
type SettingsStore interface {
	Load(ctx context.Context) (core.Settings, error)
	Save(ctx context.Context, settings core.Settings) error
	OnChange(fn func(core.Settings))
	LoadRecent(ctx context.Context) ([]string, error)
	SaveRecent(ctx context.Context, uris []string) error
}

// ErrorRecorder counts failures surfaced to the user.
type ErrorRecorder interface {
	RecordError(component, errorType string)
}

// Options configure a Skill.
type Options struct {
	SkillID           string
	LoginRetry        time.Duration
	IdleCheckInterval time.Duration
	IdleTicks         int
}

// Skill handles bus events. Handlers may run concurrently; playback state is
// serialized by the controller.
type Skill struct {
	auth     Authenticator
	matcher  PhraseMatcher
	player   Player
	timers   Timers
	settings SettingsStore
	recent   *store.RecentTracks
	bus      Bus
	loc      *i18n.Localizer
	opts     Options
	logger   *zap.Logger
	ducker   *Ducker
	recorder ErrorRecorder

	mu      sync.Mutex
	ctx     context.Context
	current core.Settings
}

// Deps bundles the collaborators of a Skill.
type Deps struct {
	Auth     Authenticator
	Matcher  PhraseMatcher
	Player   Player
	Timers   Timers
	Settings SettingsStore
	Recent   *store.RecentTracks
	Bus      Bus
	Localize *i18n.Localizer
}

func New(deps Deps, opts Options, logger *zap.Logger) *Skill {
	if opts.SkillID == "" {
		opts.SkillID = DefaultSkillID
	}
	if opts.LoginRetry <= 0 {
		opts.LoginRetry = core.DefaultLoginRetry
	}
	loc := deps.Localize
	if loc == nil {
		loc = i18n.NewLocalizer(i18n.DefaultLanguage)
	}

	s := &Skill{
		auth:     deps.Auth,
		matcher:  deps.Matcher,
		player:   deps.Player,
		timers:   deps.Timers,
		settings: deps.Settings,
		recent:   deps.Recent,
		bus:      deps.Bus,
		loc:      loc,
		opts:     opts,
		logger:   logger,
		ctx:      context.Background(),
	}
	s.ducker = NewDucker(deps.Player, deps.Timers, opts.IdleCheckInterval, opts.IdleTicks, logger.Named("ducking"))
	deps.Player.AddObserver(s.ducker)
	return s
}

// SetRecorder attaches an error recorder.
func (s *Skill) SetRecorder(r ErrorRecorder) {
	s.recorder = r
}

// Initialize registers the bus handlers, restores persisted state and
// performs the first login. A failed login is retried on a timer.
func (s *Skill) Initialize(ctx context.Context) error {
	s.mu.Lock()
	s.ctx = ctx
	s.mu.Unlock()

	s.timers.Cancel(scheduler.SpotifyLogin)

	handlers := map[string]mqtt.Handler{
		mqtt.TopicPlayQuery:       s.handleQuery,
		mqtt.TopicPlayStart:       s.handleStart,
		mqtt.TopicNext:            s.handleNext,
		mqtt.TopicPrevious:        s.handlePrevious,
		mqtt.TopicPause:           s.handlePause,
		mqtt.TopicResume:          s.handleResume,
		mqtt.TopicStop:            s.handleStop,
		mqtt.TopicRecordBegin:     s.handleRecordBegin,
		mqtt.TopicRecordEnd:       s.handleRecordEnd,
		mqtt.TopicListDevices:     s.handleListDevices,
		mqtt.TopicTransfer:        s.handleTransfer,
		mqtt.TopicPlayOn:          s.handlePlayOn,
		mqtt.TopicSettingsChanged: s.handleSettingsChanged,
	}
	for topic, h := range handlers {
		if err := s.bus.Handle(topic, h); err != nil {
			return err
		}
	}

	if s.recent != nil {
		uris, err := s.settings.LoadRecent(ctx)
		if err != nil {
			s.logger.Warn("Failed to load recent tracks", zap.Error(err))
		} else {
			s.recent.Load(uris)
		}
	}

	s.settings.OnChange(func(settings core.Settings) {
		s.applySettings(s.context(), settings)
	})

	settings, err := s.settings.Load(ctx)
	if err != nil {
		return err
	}
	s.applySettings(ctx, settings)
	return nil
}

func (s *Skill) context() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ctx
}

// applySettings pushes settings into the collaborators and logs in when
// needed. The helper is relaunched once logged in.
func (s *Skill) applySettings(ctx context.Context, settings core.Settings) {
	s.mu.Lock()
	s.current = settings
	s.mu.Unlock()

	s.player.Configure(settings)
	s.matcher.SetPlaylistAsContext(settings.PlaylistAsContext)
	s.ducker.SetEnabled(settings.Ducking)

	if !s.login(ctx) {
		return
	}
	if err := s.player.RestartHelper(ctx); err != nil {
		s.logger.Warn("Failed to restart librespot", zap.Error(err))
	}
}

// login authenticates unless already logged in. On failure the login retry
// timer is (re)scheduled; on success it is cancelled.
func (s *Skill) login(ctx context.Context) bool {
	if !s.auth.IsAuthenticated() {
		if err := s.auth.Authenticate(ctx); err != nil {
			s.player.SetAuthenticated(false)
			s.logger.Warn("Spotify login failed, retrying later",
				zap.Duration("retry", s.opts.LoginRetry),
				zap.Error(err))
			s.recordError("auth", err)
			s.timers.Every(scheduler.SpotifyLogin, s.opts.LoginRetry, s.retryLogin)
			return false
		}
		s.logger.Info("Logged in to Spotify")
	}
	s.player.SetAuthenticated(true)
	s.timers.Cancel(scheduler.SpotifyLogin)
	return true
}

func (s *Skill) retryLogin(ctx context.Context) bool {
	if s.auth.IsAuthenticated() {
		s.player.SetAuthenticated(true)
		return false
	}
	if err := s.auth.Authenticate(ctx); err != nil {
		s.logger.Debug("Spotify login retry failed", zap.Error(err))
		return true
	}
	s.logger.Info("Logged in to Spotify")
	s.player.SetAuthenticated(true)
	if err := s.player.RestartHelper(ctx); err != nil {
		s.logger.Warn("Failed to restart librespot", zap.Error(err))
	}
	return false
}

// Shutdown cancels every timer, stops the monitor and the helper and
// persists the recent track history.
func (s *Skill) Shutdown(ctx context.Context) {
	s.timers.CancelAll()
	s.player.Shutdown()

	if s.recent == nil {
		return
	}
	if err := s.settings.SaveRecent(ctx, s.recent.Recent()); err != nil {
		s.logger.Warn("Failed to save recent tracks", zap.Error(err))
	}
}

func (s *Skill) playlistAsContext() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current.PlaylistAsContext
}

func (s *Skill) speak(ctx context.Context, dialog string, data map[string]string) {
	s.say(ctx, s.loc.Dialog(dialog, data), dialog)
}

func (s *Skill) say(ctx context.Context, utterance, dialog string) {
	if err := s.bus.Publish(ctx, mqtt.TopicSpeak, mqtt.Speak{Utterance: utterance, Dialog: dialog}); err != nil {
		s.logger.Warn("Failed to speak", zap.String("dialog", dialog), zap.Error(err))
	}
}

// speakError speaks the one dialog err maps to.
func (s *Skill) speakError(ctx context.Context, component string, err error) {
	name, data := core.DialogFor(err)
	s.logger.Info("Playback request failed",
		zap.String("component", component),
		zap.String("dialog", name),
		zap.Error(err))
	s.recordError(component, err)
	s.speak(ctx, name, data)
}

func (s *Skill) recordError(component string, err error) {
	if s.recorder == nil {
		return
	}
	name, _ := core.DialogFor(err)
	if errors.Is(err, context.Canceled) {
		name = "canceled"
	}
	s.recorder.RecordError(component, name)
}
