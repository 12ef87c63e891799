package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.BindAddr != ":8080" {
		t.Fatalf("BindAddr = %q, want %q", cfg.BindAddr, ":8080")
	}
	if cfg.SpeechLocale != "en-US" {
		t.Fatalf("SpeechLocale = %q, want %q", cfg.SpeechLocale, "en-US")
	}
	if cfg.VoiceRetryInterval != 250*time.Millisecond {
		t.Fatalf("VoiceRetryInterval = %v, want 250ms", cfg.VoiceRetryInterval)
	}
	if cfg.VoiceRetryMaxAttempts != 10 {
		t.Fatalf("VoiceRetryMaxAttempts = %d, want 10", cfg.VoiceRetryMaxAttempts)
	}
	if cfg.TrailingChunkPause != 150*time.Millisecond {
		t.Fatalf("TrailingChunkPause = %v, want 150ms", cfg.TrailingChunkPause)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("APP_BIND_ADDR", ":9191")
	t.Setenv("SPEECH_LOCALE", "en-GB")
	t.Setenv("SPEECH_VOICE_RETRY_INTERVAL", "1s")
	t.Setenv("SPEECH_VOICE_RETRY_MAX_ATTEMPTS", "3")
	t.Setenv("APP_ALLOW_ANY_ORIGIN", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.BindAddr != ":9191" {
		t.Fatalf("BindAddr = %q, want %q", cfg.BindAddr, ":9191")
	}
	if cfg.SpeechLocale != "en-GB" {
		t.Fatalf("SpeechLocale = %q, want %q", cfg.SpeechLocale, "en-GB")
	}
	if cfg.VoiceRetryInterval != time.Second {
		t.Fatalf("VoiceRetryInterval = %v, want 1s", cfg.VoiceRetryInterval)
	}
	if cfg.VoiceRetryMaxAttempts != 3 {
		t.Fatalf("VoiceRetryMaxAttempts = %d, want 3", cfg.VoiceRetryMaxAttempts)
	}
	if !cfg.AllowAnyOrigin {
		t.Fatalf("AllowAnyOrigin = false, want true")
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	t.Setenv("APP_SESSION_INACTIVITY_TIMEOUT", "1s")
	if _, err := Load(); err == nil {
		t.Fatalf("Load() with 1s inactivity timeout succeeded, want error")
	}
}

func TestLoadRejectsBadDuration(t *testing.T) {
	t.Setenv("SPEECH_VOICE_RETRY_INTERVAL", "soon")
	if _, err := Load(); err == nil {
		t.Fatalf("Load() with bad duration succeeded, want error")
	}
}
