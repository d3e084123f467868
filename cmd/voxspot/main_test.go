package main

import (
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"
)

func TestFlagToEnvVar(t *testing.T) {
	tests := []struct {
		flag     string
		expected string
	}{
		{"log-level", "VOXSPOT_LOG_LEVEL"},
		{"spotify-client-id", "VOXSPOT_SPOTIFY_CLIENT_ID"},
		{"mqtt-timeout-secs", "VOXSPOT_MQTT_TIMEOUT_SECS"},
	}

	for _, tt := range tests {
		if got := flagToEnvVar(tt.flag); got != tt.expected {
			t.Errorf("flagToEnvVar(%q) = %q, expected %q", tt.flag, got, tt.expected)
		}
	}
}

func TestGenerateEnvExampleContentListsEveryFlag(t *testing.T) {
	content := generateEnvExampleContent(rootCmd)

	for _, name := range []string{
		"log-level", "spotify-client-id", "spotify-backend-url", "librespot-path", "device-name",
		"genres", "ducking", "mqtt-broker-url", "server-port", "store-path",
	} {
		if !strings.Contains(content, flagToEnvVar(name)+"=") {
			t.Errorf("Expected .env.example to contain %s", flagToEnvVar(name))
		}
	}
	if !strings.Contains(content, `VOXSPOT_GENRES="rap,dance,`) {
		t.Errorf("Expected genres default to be quoted, got:\n%s", content)
	}
}

func TestBuildConfig(t *testing.T) {
	viper.Set("server-host", defaultServerHost)
	viper.Set("server-port", 9090)
	viper.Set("login-retry-secs", 60)
	defer func() {
		viper.Set("server-port", 8080)
		viper.Set("login-retry-secs", 300)
	}()

	cfg := buildConfig()

	if cfg.Spotify.RedirectURL != "http://127.0.0.1:9090/callback" {
		t.Errorf("Expected redirect URL derived from server, got %q", cfg.Spotify.RedirectURL)
	}
	if cfg.Skill.LoginRetry != time.Minute {
		t.Errorf("Expected login retry of 1m, got %v", cfg.Skill.LoginRetry)
	}
	if cfg.MQTT.TopicBase != "voxspot" {
		t.Errorf("Expected default topic base, got %q", cfg.MQTT.TopicBase)
	}
	if len(cfg.Skill.Genres) == 0 {
		t.Error("Expected default genres")
	}
}

func TestStringListFromEnvironmentValue(t *testing.T) {
	viper.Set("genres", "hip hop, classic rock,,jazz")
	defer viper.Set("genres", nil)

	got := stringList("genres")
	expected := []string{"hip hop", "classic rock", "jazz"}
	if strings.Join(got, "|") != strings.Join(expected, "|") {
		t.Errorf("stringList() = %q, expected %q", got, expected)
	}
}

func TestValidateConfig(t *testing.T) {
	logger = zap.NewNop()
	config = buildConfig()

	config.Spotify.ClientID = ""
	if err := validateConfig(); err == nil {
		t.Error("Expected error without client credentials")
	}

	config.Spotify.BackendURL = "https://backend.example"
	if err := validateConfig(); err != nil {
		t.Errorf("Expected backend tokens to need no client credentials, got %v", err)
	}

	config.MQTT.BrokerURL = ""
	if err := validateConfig(); err == nil {
		t.Error("Expected error without broker URL")
	}
}
