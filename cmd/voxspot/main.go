// Package main provides the voxspot CLI application entry point.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"voxspot/internal/cache"
	"voxspot/internal/core"
	"voxspot/internal/display"
	"voxspot/internal/host/mqtt"
	httpserver "voxspot/internal/http"
	"voxspot/internal/i18n"
	"voxspot/internal/librespot"
	"voxspot/internal/matcher"
	"voxspot/internal/playback"
	"voxspot/internal/scheduler"
	"voxspot/internal/skill"
	"voxspot/internal/spotify"
	"voxspot/internal/store"
)

const (
	defaultServerHost = "0.0.0.0"
	shutdownTimeout   = 10 * time.Second
)

var (
	cfgFile string
	config  *core.Config
	logger  *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "voxspot",
	Short: "voxspot - voice control for Spotify",
	Long: `voxspot is a voice assistant skill that plays music on Spotify Connect devices.
It answers play queries from the assistant bus and can run librespot to turn this host into a player.`,
	RunE: runVoxspot,
}

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Authorize voxspot with Spotify and store the token",
	RunE:  runAuth,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	defaults := core.DefaultConfig()
	flags := rootCmd.PersistentFlags()

	flags.StringVar(&cfgFile, "config", "", "config file (default is .env)")
	flags.String("log-level", defaults.Log.Level, "log level (debug, info, warn, error)")
	flags.String("log-format", defaults.Log.Format, "log format (json, text)")

	flags.String("spotify-client-id", "", "Spotify client ID")
	flags.String("spotify-client-secret", "", "Spotify client secret")
	flags.String("spotify-redirect-url", "", "Spotify OAuth redirect URL (default derived from server host and port)")
	flags.String("spotify-token-path", defaults.Spotify.TokenPath, "Path of the stored Spotify token")
	flags.String("spotify-backend-url", "", "Assistant backend URL serving Spotify tokens (overrides the token file)")
	flags.String("spotify-backend-token", "", "Device token for the assistant backend")
	flags.String("spotify-credential-id", defaults.Spotify.CredentialID, "Credential name on the assistant backend")
	flags.Float64("spotify-requests-per-second", defaults.Spotify.RequestsPerSecond, "Web API request rate limit, 0 disables")
	flags.Int("device-cache-ttl-secs", int(defaults.Spotify.DeviceCacheTTL.Seconds()), "Device list cache lifetime in seconds")
	flags.Int("playlist-cache-ttl-secs", int(defaults.Spotify.PlaylistCacheTTL.Seconds()), "Playlist cache lifetime in seconds")
	flags.Int("search-cache-ttl-secs", int(defaults.Spotify.SearchCacheTTL.Seconds()), "Search result cache lifetime in seconds")

	flags.String("librespot-path", defaults.Librespot.Path, "librespot binary used when the settings name none")
	flags.Int("librespot-settle-secs", int(defaults.Librespot.SettleTime.Seconds()), "Seconds a new librespot process must survive")
	flags.Int("librespot-stop-grace-secs", int(defaults.Librespot.StopGrace.Seconds()), "Seconds librespot gets to exit before it is killed")

	flags.String("device-name", defaults.Skill.DeviceName, "Spotify Connect name of this host")
	flags.String("platform", defaults.Skill.Platform, "Host platform (mycroft_mark_1, mycroft_mark_2)")
	supportedLangs := strings.Join(i18n.GetSupportedLanguages(), ", ")
	flags.String("language", defaults.Skill.Language, fmt.Sprintf("Skill language (%s)", supportedLangs))
	flags.StringSlice("genres", defaults.Skill.Genres, "Genres to pick from for generic play requests")
	flags.Int("login-retry-secs", int(defaults.Skill.LoginRetry.Seconds()), "Seconds between login attempts while unauthorized")
	flags.Int("monitor-interval-secs", int(defaults.Skill.MonitorInterval.Seconds()), "Now-playing poll interval in seconds")
	flags.Int("idle-check-interval-secs", int(defaults.Skill.IdleCheckInterval.Seconds()), "Listener idle check interval in seconds")
	flags.Int("idle-ticks", defaults.Skill.IdleTicks, "Idle checks before ducked playback resumes")
	flags.Bool("playlist-as-context", defaults.Skill.PlaylistAsContext, "Play playlists as a context instead of a track list")
	flags.Bool("ducking", defaults.Skill.Ducking, "Pause playback while the assistant listens")
	flags.Int("recent-tracks", defaults.Skill.RecentTracks, "Number of recently queued tracks remembered")

	flags.String("mqtt-broker-url", defaults.MQTT.BrokerURL, "MQTT broker URL of the assistant bus")
	flags.String("mqtt-client-id", defaults.MQTT.ClientID, "MQTT client ID")
	flags.String("mqtt-username", "", "MQTT username")
	flags.String("mqtt-password", "", "MQTT password")
	flags.String("mqtt-topic-base", defaults.MQTT.TopicBase, "Prefix of every bus topic")
	flags.Int("mqtt-timeout-secs", int(defaults.MQTT.Timeout.Seconds()), "MQTT connect and publish timeout in seconds")

	flags.String("server-host", defaultServerHost, "HTTP server host")
	flags.Int("server-port", defaults.Server.Port, "HTTP server port")
	flags.String("store-path", defaults.Store.Path, "Path of the settings database")
	flags.Bool("generate-env-example", false, "Generate .env.example file from current configuration and exit")

	if err := viper.BindPFlags(flags); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to bind flags: %v\n", err)
		os.Exit(1)
	}

	rootCmd.AddCommand(authCmd)
}

func initConfig() {
	envFile := ".env"
	if cfgFile != "" {
		envFile = cfgFile
	}

	if err := gotenv.Load(envFile); err != nil {
		if !os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "Error loading .env file: %v\n", err)
		}
	}

	viper.SetEnvPrefix("VOXSPOT")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	config = buildConfig()
	logger = buildLogger(config.Log.Level, config.Log.Format)
}

func buildConfig() *core.Config {
	cfg := core.DefaultConfig()

	configureServer(cfg)
	configureSpotify(cfg)
	configureLibrespot(cfg)
	configureSkill(cfg)
	configureMQTT(cfg)
	configureStore(cfg)

	return cfg
}

func seconds(key string) time.Duration {
	return time.Duration(viper.GetInt(key)) * time.Second
}

// stringList reads a comma separated list. Environment values arrive as one
// string, which viper would otherwise split on whitespace.
func stringList(key string) []string {
	raw, ok := viper.Get(key).(string)
	if !ok {
		return viper.GetStringSlice(key)
	}
	var list []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			list = append(list, item)
		}
	}
	return list
}

func configureServer(cfg *core.Config) {
	cfg.Server.Host = viper.GetString("server-host")
	cfg.Server.Port = viper.GetInt("server-port")
	cfg.Log.Level = viper.GetString("log-level")
	cfg.Log.Format = viper.GetString("log-format")
}

func configureSpotify(cfg *core.Config) {
	cfg.Spotify.ClientID = viper.GetString("spotify-client-id")
	cfg.Spotify.ClientSecret = viper.GetString("spotify-client-secret")
	cfg.Spotify.RedirectURL = viper.GetString("spotify-redirect-url")
	cfg.Spotify.TokenPath = viper.GetString("spotify-token-path")
	cfg.Spotify.BackendURL = viper.GetString("spotify-backend-url")
	cfg.Spotify.BackendToken = viper.GetString("spotify-backend-token")
	cfg.Spotify.CredentialID = viper.GetString("spotify-credential-id")
	cfg.Spotify.RequestsPerSecond = viper.GetFloat64("spotify-requests-per-second")
	cfg.Spotify.DeviceCacheTTL = seconds("device-cache-ttl-secs")
	cfg.Spotify.PlaylistCacheTTL = seconds("playlist-cache-ttl-secs")
	cfg.Spotify.SearchCacheTTL = seconds("search-cache-ttl-secs")

	// The OAuth callback must be reachable from the browser doing the consent.
	if cfg.Spotify.RedirectURL == "" {
		serverHost := cfg.Server.Host
		if serverHost == defaultServerHost {
			serverHost = "127.0.0.1"
		}
		cfg.Spotify.RedirectURL = fmt.Sprintf("http://%s:%d/callback", serverHost, cfg.Server.Port)
	}
}

func configureLibrespot(cfg *core.Config) {
	cfg.Librespot.Path = viper.GetString("librespot-path")
	cfg.Librespot.SettleTime = seconds("librespot-settle-secs")
	cfg.Librespot.StopGrace = seconds("librespot-stop-grace-secs")
}

func configureSkill(cfg *core.Config) {
	cfg.Skill.DeviceName = viper.GetString("device-name")
	cfg.Skill.Platform = viper.GetString("platform")
	cfg.Skill.Language = viper.GetString("language")
	if genres := stringList("genres"); len(genres) > 0 {
		cfg.Skill.Genres = genres
	}
	cfg.Skill.LoginRetry = seconds("login-retry-secs")
	cfg.Skill.MonitorInterval = seconds("monitor-interval-secs")
	cfg.Skill.IdleCheckInterval = seconds("idle-check-interval-secs")
	cfg.Skill.IdleTicks = viper.GetInt("idle-ticks")
	cfg.Skill.PlaylistAsContext = viper.GetBool("playlist-as-context")
	cfg.Skill.Ducking = viper.GetBool("ducking")
	cfg.Skill.RecentTracks = viper.GetInt("recent-tracks")
}

func configureMQTT(cfg *core.Config) {
	cfg.MQTT.BrokerURL = viper.GetString("mqtt-broker-url")
	cfg.MQTT.ClientID = viper.GetString("mqtt-client-id")
	cfg.MQTT.Username = viper.GetString("mqtt-username")
	cfg.MQTT.Password = viper.GetString("mqtt-password")
	cfg.MQTT.TopicBase = viper.GetString("mqtt-topic-base")
	cfg.MQTT.Timeout = seconds("mqtt-timeout-secs")
}

func configureStore(cfg *core.Config) {
	cfg.Store.Path = viper.GetString("store-path")
}

func buildLogger(level, format string) *zap.Logger {
	var zapLevel zapcore.Level
	switch strings.ToLower(level) {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "info":
		zapLevel = zapcore.InfoLevel
	case "warn":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		zapLevel = zapcore.InfoLevel
	}

	cfg := zap.NewProductionConfig()
	if strings.EqualFold(format, "text") {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(zapLevel)

	builtLogger, err := cfg.Build()
	if err != nil {
		panic(fmt.Sprintf("Failed to build logger: %v", err))
	}

	return builtLogger
}

func runAuth(_ *cobra.Command, _ []string) error {
	if config.Spotify.ClientID == "" || config.Spotify.ClientSecret == "" {
		return errors.New("spotify client ID and secret are required for authorization")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	tokens := spotify.NewFileTokenSource(config.Spotify.TokenPath, spotify.OAuthConfig(&config.Spotify),
		logger.Named("tokens"))
	return spotify.Authorize(ctx, &config.Spotify, tokens, os.Stdin, os.Stdout, logger.Named("auth"))
}

func runVoxspot(cmd *cobra.Command, _ []string) error {
	if viper.GetBool("generate-env-example") {
		return generateEnvExample(cmd)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger.Info("Starting voxspot",
		zap.String("device_name", config.Skill.DeviceName),
		zap.String("language", config.Skill.Language),
		zap.Bool("backend_tokens", config.Spotify.UsesBackend()),
		zap.String("mqtt_broker", config.MQTT.BrokerURL))

	if err := validateConfig(); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	services, err := initializeServices(ctx)
	if err != nil {
		return err
	}

	return runServices(ctx, services)
}

type services struct {
	spotify    *spotify.Client
	scheduler  *scheduler.Scheduler
	settings   *store.SettingsStore
	bus        *mqtt.Client
	httpServer *httpserver.Server
	skill      *skill.Skill
}

func newTokenSource() spotify.TokenSource {
	if config.Spotify.UsesBackend() {
		return spotify.NewBackendTokenSource(&config.Spotify, nil, logger.Named("tokens"))
	}
	return spotify.NewFileTokenSource(config.Spotify.TokenPath, spotify.OAuthConfig(&config.Spotify),
		logger.Named("tokens"))
}

func initializeServices(ctx context.Context) (*services, error) {
	settings, err := store.NewSettingsStore(config.Store.Path, logger.Named("store"))
	if err != nil {
		return nil, err
	}
	if err := seedSettings(ctx, settings); err != nil {
		_ = settings.Close()
		return nil, err
	}

	bus, err := mqtt.NewClient(mqtt.Options{
		BrokerURL: config.MQTT.BrokerURL,
		ClientID:  config.MQTT.ClientID,
		Username:  config.MQTT.Username,
		Password:  config.MQTT.Password,
		TopicBase: config.MQTT.TopicBase,
		Timeout:   config.MQTT.Timeout,
	}, logger.Named("mqtt"))
	if err != nil {
		_ = settings.Close()
		return nil, err
	}

	spotifyClient := spotify.NewClient(&config.Spotify, newTokenSource(), logger.Named("spotify"))
	timers := scheduler.New(logger.Named("scheduler"))
	recent := store.NewRecentTracks(config.Skill.RecentTracks, store.DefaultFalsePositiveRate)

	devices := cache.NewDeviceCache(spotifyClient, config.Spotify.DeviceCacheTTL, logger.Named("devices"))
	controller := newController(spotifyClient, devices, timers, recent)
	httpServer := httpserver.NewServer(&config.Server, logger.Named("http"), controller, spotifyClient.IsAuthenticated)

	devices.SetRecorder(httpServer)
	playlists := cache.NewPlaylistCache(spotifyClient, config.Spotify.PlaylistCacheTTL, logger.Named("playlists"))
	playlists.SetRecorder(httpServer)

	phrases := matcher.New(spotifyClient, playlists, matcher.Options{
		Language:          config.Skill.Language,
		Genres:            config.Skill.Genres,
		SearchCacheTTL:    config.Spotify.SearchCacheTTL,
		PlaylistAsContext: config.Skill.PlaylistAsContext,
	}, logger.Named("matcher"))
	phrases.SetRecorder(httpServer)

	controller.SetRecorder(httpServer)
	controller.AddObserver(display.New(bus, logger.Named("display")))

	voice := skill.New(skill.Deps{
		Auth:     spotifyClient,
		Matcher:  phrases,
		Player:   controller,
		Timers:   timers,
		Settings: settings,
		Recent:   recent,
		Bus:      bus,
		Localize: i18n.NewLocalizer(config.Skill.Language),
	}, skill.Options{
		SkillID:           config.MQTT.ClientID,
		LoginRetry:        config.Skill.LoginRetry,
		IdleCheckInterval: config.Skill.IdleCheckInterval,
		IdleTicks:         config.Skill.IdleTicks,
	}, logger.Named("skill"))
	voice.SetRecorder(httpServer)

	return &services{
		spotify:    spotifyClient,
		scheduler:  timers,
		settings:   settings,
		bus:        bus,
		httpServer: httpServer,
		skill:      voice,
	}, nil
}

func newController(client *spotify.Client, devices *cache.DeviceCache, timers *scheduler.Scheduler,
	recent *store.RecentTracks) *playback.Controller {
	helper := librespot.NewLauncher(config.Librespot.SettleTime, config.Librespot.StopGrace, logger.Named("librespot"))
	return playback.NewController(client, devices, helper, timers, recent, playback.Options{
		DeviceName:      config.Skill.DeviceName,
		Platform:        config.Skill.Platform,
		LibrespotPath:   config.Librespot.Path,
		MonitorInterval: config.Skill.MonitorInterval,
	}, logger.Named("playback"))
}

// seedSettings writes the configured defaults into an empty settings store.
func seedSettings(ctx context.Context, settings *store.SettingsStore) error {
	current, err := settings.Load(ctx)
	if err != nil {
		return err
	}
	if current != (core.Settings{}) {
		return nil
	}
	return settings.Save(ctx, core.Settings{
		LibrespotPath:     config.Librespot.Path,
		PlaylistAsContext: config.Skill.PlaylistAsContext,
		Ducking:           config.Skill.Ducking,
	})
}

func runServices(ctx context.Context, svcs *services) error {
	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return svcs.httpServer.Start(gCtx)
	})

	g.Go(func() error {
		if err := svcs.skill.Initialize(gCtx); err != nil {
			return fmt.Errorf("failed to initialize skill: %w", err)
		}
		<-gCtx.Done()
		return nil
	})

	logger.Info("voxspot started successfully",
		zap.String("http_addr", fmt.Sprintf("%s:%d", config.Server.Host, config.Server.Port)))

	err := g.Wait()
	stopServices(svcs)
	if err != nil {
		logger.Error("voxspot stopped with error", zap.Error(err))
		return err
	}

	logger.Info("voxspot stopped gracefully")
	return nil
}

func stopServices(svcs *services) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	svcs.skill.Shutdown(ctx)
	svcs.scheduler.Stop()
	svcs.bus.Close()
	if err := svcs.settings.Close(); err != nil {
		logger.Debug("Failed to close settings store", zap.Error(err))
	}
	_ = logger.Sync()
}

func validateConfig() error {
	if config.Spotify.UsesBackend() {
		if config.Spotify.CredentialID == "" {
			return errors.New("spotify credential ID is required with a token backend")
		}
	} else if config.Spotify.ClientID == "" || config.Spotify.ClientSecret == "" {
		return errors.New("spotify client ID and secret are required without a token backend")
	}

	if config.MQTT.BrokerURL == "" {
		return errors.New("MQTT broker URL is required")
	}

	if config.Store.Path == "" {
		return errors.New("store path is required")
	}

	return nil
}

func generateEnvExample(cmd *cobra.Command) error {
	fmt.Println("Generating .env.example file from current configuration...")

	content := generateEnvExampleContent(cmd)

	if err := os.WriteFile(".env.example", []byte(content), 0600); err != nil {
		return fmt.Errorf("failed to write .env.example: %w", err)
	}

	fmt.Println("Successfully generated .env.example file")
	return nil
}

func generateEnvExampleContent(cmd *cobra.Command) string {
	var content strings.Builder

	content.WriteString("# =============================================================================\n")
	content.WriteString("# voxspot Configuration\n")
	content.WriteString("# =============================================================================\n")
	content.WriteString("#\n")
	content.WriteString("# Copy this file to .env and update with your values\n")
	content.WriteString("# All environment variables have CLI flag equivalents (use --help to see them)\n")
	content.WriteString("#\n")
	content.WriteString("# Format: VOXSPOT_<SETTING>=value\n")
	content.WriteString("# CLI equivalent: --<setting>\n")
	content.WriteString("#\n\n")

	generateSection(&content, cmd, "Spotify Web API (Required)", []string{
		"spotify-client-id", "spotify-client-secret", "spotify-redirect-url", "spotify-token-path",
		"spotify-requests-per-second", "device-cache-ttl-secs", "playlist-cache-ttl-secs", "search-cache-ttl-secs",
	})
	generateSection(&content, cmd, "Assistant Token Backend (Optional - replaces the token file)", []string{
		"spotify-backend-url", "spotify-backend-token", "spotify-credential-id",
	})
	generateSection(&content, cmd, "librespot Helper", []string{
		"librespot-path", "librespot-settle-secs", "librespot-stop-grace-secs",
	})
	generateSection(&content, cmd, "Skill", []string{
		"device-name", "platform", "language", "genres", "login-retry-secs", "monitor-interval-secs",
		"idle-check-interval-secs", "idle-ticks", "playlist-as-context", "ducking", "recent-tracks",
	})
	generateSection(&content, cmd, "Assistant Bus (MQTT)", []string{
		"mqtt-broker-url", "mqtt-client-id", "mqtt-username", "mqtt-password", "mqtt-topic-base", "mqtt-timeout-secs",
	})
	generateSection(&content, cmd, "HTTP Server and Storage", []string{
		"server-host", "server-port", "store-path",
	})
	generateSection(&content, cmd, "Logging", []string{
		"log-level", "log-format",
	})
	generateQuickSetupGuide(&content)

	return content.String()
}

func generateSection(content *strings.Builder, cmd *cobra.Command, title string, flagNames []string) {
	content.WriteString("# -----------------------------------------------------------------------------\n")
	fmt.Fprintf(content, "# %s\n", title)
	content.WriteString("# -----------------------------------------------------------------------------\n")
	fmt.Fprintf(content, "# CLI: --%s\n", strings.Join(flagNames, ", --"))

	for _, name := range flagNames {
		usage := ""
		if f := cmd.PersistentFlags().Lookup(name); f != nil {
			usage = f.Usage
		}
		fmt.Fprintf(content, "%s=%s  # %s\n", flagToEnvVar(name), envDefault(cmd, name), usage)
	}
	content.WriteString("\n")
}

func flagToEnvVar(flagName string) string {
	return "VOXSPOT_" + strings.ToUpper(strings.ReplaceAll(flagName, "-", "_"))
}

func getDefaultValueString(cmd *cobra.Command, flagName string) string {
	if f := cmd.PersistentFlags().Lookup(flagName); f != nil {
		return f.DefValue
	}
	return ""
}

// envDefault renders a flag default the way viper reads it back from the environment.
func envDefault(cmd *cobra.Command, flagName string) string {
	value := getDefaultValueString(cmd, flagName)
	if strings.HasPrefix(value, "[") && strings.HasSuffix(value, "]") {
		value = strings.Trim(value, "[]")
	}
	if strings.ContainsAny(value, " ,") {
		return `"` + value + `"`
	}
	return value
}

func generateQuickSetupGuide(content *strings.Builder) {
	content.WriteString("# =============================================================================\n")
	content.WriteString("# QUICK SETUP GUIDE\n")
	content.WriteString("# =============================================================================\n")
	content.WriteString("\n")
	content.WriteString("# 1. SPOTIFY SETUP:\n")
	content.WriteString("#    - Go to https://developer.spotify.com/dashboard\n")
	content.WriteString("#    - Create a new app and add redirect URI: http://127.0.0.1:8080/callback\n")
	content.WriteString("#    - Copy Client ID and Secret to config above\n")
	content.WriteString("#    - Run `voxspot auth` once to store a token\n")
	content.WriteString("\n")
	content.WriteString("# 2. ASSISTANT BUS:\n")
	content.WriteString("#    - Point VOXSPOT_MQTT_BROKER_URL at the broker your assistant publishes to\n")
	content.WriteString("#    - Topics are <VOXSPOT_MQTT_TOPIC_BASE>/play/query, /play/start, /audio/... \n")
	content.WriteString("\n")
	content.WriteString("# 3. LOCAL PLAYER (Optional):\n")
	content.WriteString("#    - Install librespot and set user and password through the settings topic\n")
	content.WriteString("#    - This host then shows up as VOXSPOT_DEVICE_NAME in Spotify Connect\n")
	content.WriteString("\n")
	content.WriteString("# 4. TEST CONFIGURATION:\n")
	content.WriteString("#    go run ./cmd/voxspot --help                  # See all CLI options\n")
	content.WriteString("#    go run ./cmd/voxspot --log-level=debug       # Run with debug logging\n")
	content.WriteString("#    curl http://127.0.0.1:8080/status            # Inspect the playback session\n")
}
