package core

import (
	"time"
)

const (
	DefaultServerPort        = 8080
	DefaultDeviceCacheTTL    = 60 * time.Second
	DefaultPlaylistCacheTTL  = 5 * time.Minute
	DefaultSearchCacheTTL    = 5 * time.Minute
	DefaultSearchCacheSize   = 256
	DefaultLoginRetry        = 5 * time.Minute
	DefaultMonitorInterval   = 5 * time.Second
	DefaultIdleCheckInterval = time.Second
	DefaultIdleTicks         = 5
	DefaultHelperSettleTime  = 3 * time.Second
	DefaultHelperStopGrace   = 5 * time.Second
	DefaultRequestsPerSecond = 10
	DefaultRecentTracks      = 500
	DefaultLanguage          = "en"
	DefaultMQTTTopicBase     = "voxspot"
	DefaultVolumeMark1       = 65
	DefaultVolumeMark2       = 45
	DefaultVolumeOther       = 60
)

// DefaultGenres is the pool "play something" picks from.
var DefaultGenres = []string{
	"rap", "dance", "pop", "hip hop", "rock", "trap",
	"classic rock", "metal", "edm", "techno", "house",
}

type Config struct {
	Spotify   SpotifyConfig
	Librespot LibrespotConfig
	Skill     SkillConfig
	MQTT      MQTTConfig
	Server    ServerConfig
	Log       LogConfig
	Store     StoreConfig
}

type SpotifyConfig struct {
	ClientID          string
	ClientSecret      string
	RedirectURL       string
	TokenPath         string
	BackendURL        string
	BackendToken      string
	CredentialID      string
	RequestsPerSecond float64
	DeviceCacheTTL    time.Duration
	PlaylistCacheTTL  time.Duration
	SearchCacheTTL    time.Duration
}

// UsesBackend reports whether tokens come from the assistant backend
// instead of a local token file.
func (c SpotifyConfig) UsesBackend() bool {
	return c.BackendURL != ""
}

type LibrespotConfig struct {
	Path       string
	SettleTime time.Duration
	StopGrace  time.Duration
}

type SkillConfig struct {
	DeviceName        string
	Platform          string
	Language          string
	Genres            []string
	LoginRetry        time.Duration
	MonitorInterval   time.Duration
	IdleCheckInterval time.Duration
	IdleTicks         int
	PlaylistAsContext bool
	Ducking           bool
	RecentTracks      int
}

type MQTTConfig struct {
	BrokerURL string
	ClientID  string
	Username  string
	Password  string
	TopicBase string
	Timeout   time.Duration
}

type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type LogConfig struct {
	Level  string
	Format string
}

type StoreConfig struct {
	Path string
}

func DefaultConfig() *Config {
	return &Config{
		Spotify: SpotifyConfig{
			RedirectURL:       "http://127.0.0.1:8080/callback",
			TokenPath:         "./spotify_token.json",
			CredentialID:      "spotify",
			RequestsPerSecond: DefaultRequestsPerSecond,
			DeviceCacheTTL:    DefaultDeviceCacheTTL,
			PlaylistCacheTTL:  DefaultPlaylistCacheTTL,
			SearchCacheTTL:    DefaultSearchCacheTTL,
		},
		Librespot: LibrespotConfig{
			Path:       "librespot",
			SettleTime: DefaultHelperSettleTime,
			StopGrace:  DefaultHelperStopGrace,
		},
		Skill: SkillConfig{
			DeviceName:        "voxspot",
			Platform:          "",
			Language:          DefaultLanguage,
			Genres:            append([]string(nil), DefaultGenres...),
			LoginRetry:        DefaultLoginRetry,
			MonitorInterval:   DefaultMonitorInterval,
			IdleCheckInterval: DefaultIdleCheckInterval,
			IdleTicks:         DefaultIdleTicks,
			Ducking:           true,
			RecentTracks:      DefaultRecentTracks,
		},
		MQTT: MQTTConfig{
			BrokerURL: "tcp://127.0.0.1:1883",
			ClientID:  "voxspot",
			TopicBase: DefaultMQTTTopicBase,
			Timeout:   10 * time.Second,
		},
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         DefaultServerPort,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Store: StoreConfig{
			Path: "./voxspot.db",
		},
	}
}

// DefaultVolumeForPlatform returns the volume a freshly launched helper device
// is set to on the given host platform.
func DefaultVolumeForPlatform(platform string) int {
	switch platform {
	case "mycroft_mark_1":
		return DefaultVolumeMark1
	case "mycroft_mark_2":
		return DefaultVolumeMark2
	default:
		return DefaultVolumeOther
	}
}
