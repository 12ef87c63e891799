package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config contains all runtime settings for the speech interaction service.
type Config struct {
	BindAddr                 string
	ShutdownTimeout          time.Duration
	SessionInactivityTimeout time.Duration
	MetricsNamespace         string

	AllowAnyOrigin bool

	SpeechLocale          string
	VoiceRetryInterval    time.Duration
	VoiceRetryMaxAttempts int
	TrailingChunkPause    time.Duration

	DatabaseURL string
}

// Load reads environment variables and applies safe defaults.
func Load() (Config, error) {
	cfg := Config{
		BindAddr:                 envOrDefault("APP_BIND_ADDR", ":8080"),
		MetricsNamespace:         envOrDefault("APP_METRICS_NAMESPACE", "lessonvoice"),
		AllowAnyOrigin:           false,
		SpeechLocale:             envOrDefault("SPEECH_LOCALE", "en-US"),
		DatabaseURL:              trimmedEnv("DATABASE_URL"),
		ShutdownTimeout:          15 * time.Second,
		SessionInactivityTimeout: 2 * time.Minute,
		VoiceRetryInterval:       250 * time.Millisecond,
		VoiceRetryMaxAttempts:    10,
		TrailingChunkPause:       150 * time.Millisecond,
	}

	var err error
	cfg.ShutdownTimeout, err = durationFromEnv("APP_SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.SessionInactivityTimeout, err = durationFromEnv("APP_SESSION_INACTIVITY_TIMEOUT", cfg.SessionInactivityTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.AllowAnyOrigin, err = boolFromEnv("APP_ALLOW_ANY_ORIGIN", cfg.AllowAnyOrigin)
	if err != nil {
		return Config{}, err
	}
	cfg.VoiceRetryInterval, err = durationFromEnv("SPEECH_VOICE_RETRY_INTERVAL", cfg.VoiceRetryInterval)
	if err != nil {
		return Config{}, err
	}
	cfg.VoiceRetryMaxAttempts, err = intFromEnv("SPEECH_VOICE_RETRY_MAX_ATTEMPTS", cfg.VoiceRetryMaxAttempts)
	if err != nil {
		return Config{}, err
	}
	cfg.TrailingChunkPause, err = durationFromEnv("SPEECH_TRAILING_CHUNK_PAUSE", cfg.TrailingChunkPause)
	if err != nil {
		return Config{}, err
	}

	if cfg.SessionInactivityTimeout < 5*time.Second {
		return Config{}, fmt.Errorf("APP_SESSION_INACTIVITY_TIMEOUT must be at least 5s")
	}
	if strings.TrimSpace(cfg.SpeechLocale) == "" {
		return Config{}, fmt.Errorf("SPEECH_LOCALE must not be empty")
	}
	if cfg.VoiceRetryInterval <= 0 {
		return Config{}, fmt.Errorf("SPEECH_VOICE_RETRY_INTERVAL must be positive")
	}
	if cfg.VoiceRetryMaxAttempts < 0 {
		return Config{}, fmt.Errorf("SPEECH_VOICE_RETRY_MAX_ATTEMPTS must be >= 0")
	}
	if cfg.TrailingChunkPause < 0 {
		return Config{}, fmt.Errorf("SPEECH_TRAILING_CHUNK_PAUSE must be >= 0")
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func trimmedEnv(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := trimmedEnv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return d, nil
}

func intFromEnv(key string, fallback int) (int, error) {
	v := trimmedEnv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return n, nil
}

func boolFromEnv(key string, fallback bool) (bool, error) {
	v := strings.ToLower(trimmedEnv(key))
	if v == "" {
		return fallback, nil
	}
	switch v {
	case "1", "true", "t", "yes", "y", "on":
		return true, nil
	case "0", "false", "f", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("%s parse error: expected bool", key)
	}
}
