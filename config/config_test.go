package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CHAT_RECONNECT_BASE_DELAY", "")
	t.Setenv("CHAT_RECONNECT_MAX_DELAY", "")
	t.Setenv("CHAT_RECONNECT_MAX_ATTEMPTS", "")
	t.Setenv("HTTP_ADDR", "")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.ReconnectBaseDelay != time.Second {
		t.Errorf("base delay = %v, want 1s", cfg.ReconnectBaseDelay)
	}
	if cfg.ReconnectMaxDelay != 30*time.Second {
		t.Errorf("max delay = %v, want 30s", cfg.ReconnectMaxDelay)
	}
	if cfg.ReconnectMaxAttempts != 5 {
		t.Errorf("max attempts = %d, want 5", cfg.ReconnectMaxAttempts)
	}
	if cfg.HTTPAddr != ":8080" {
		t.Errorf("http addr = %q, want :8080", cfg.HTTPAddr)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("CHAT_RECONNECT_BASE_DELAY", "500ms")
	t.Setenv("CHAT_RECONNECT_MAX_DELAY", "10s")
	t.Setenv("CHAT_RECONNECT_MAX_ATTEMPTS", "3")
	t.Setenv("HTTP_ADDR", ":9999")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.ReconnectBaseDelay != 500*time.Millisecond || cfg.ReconnectMaxDelay != 10*time.Second {
		t.Errorf("delays = %v/%v", cfg.ReconnectBaseDelay, cfg.ReconnectMaxDelay)
	}
	if cfg.ReconnectMaxAttempts != 3 {
		t.Errorf("max attempts = %d", cfg.ReconnectMaxAttempts)
	}
	if cfg.HTTPAddr != ":9999" {
		t.Errorf("http addr = %q", cfg.HTTPAddr)
	}
}

func TestLoadInvalidDurations(t *testing.T) {
	t.Setenv("CHAT_RECONNECT_BASE_DELAY", "soon")
	if _, err := Load(); err == nil {
		t.Error("expected error for unparsable duration")
	}
	t.Setenv("CHAT_RECONNECT_BASE_DELAY", "-2s")
	if _, err := Load(); err == nil {
		t.Error("expected error for negative duration")
	}
	t.Setenv("CHAT_RECONNECT_BASE_DELAY", "")
	t.Setenv("CHAT_RECONNECT_MAX_ATTEMPTS", "zero")
	if _, err := Load(); err == nil {
		t.Error("expected error for unparsable attempts")
	}
}

func TestValidateChatReady(t *testing.T) {
	t.Setenv("KICK_OAUTH_TOKEN", "tok")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if err := cfg.ValidateChatReady(); err != nil {
		t.Errorf("expected ready with env token, got %v", err)
	}

	t.Setenv("KICK_OAUTH_TOKEN", "")
	cfg, _ = Load()
	if err := cfg.ValidateChatReady(); err == nil {
		t.Error("expected error without env token")
	}
}
