package config

import (
	"log/slog"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "8080")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Providers.Timeout != 5*time.Second {
		t.Errorf("Providers.Timeout = %v, want 5s", cfg.Providers.Timeout)
	}
	if cfg.ChatHistoryLimit != 50 {
		t.Errorf("ChatHistoryLimit = %d, want 50", cfg.ChatHistoryLimit)
	}
	if cfg.Providers.WebSearchSite != "wikipedia.org" {
		t.Errorf("WebSearchSite = %q", cfg.Providers.WebSearchSite)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PROVIDER_TIMEOUT", "2s")
	t.Setenv("SESSION_IDLE_TTL", "600")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("RATE_LIMIT_REQUESTS", "0")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Providers.Timeout != 2*time.Second {
		t.Errorf("Providers.Timeout = %v, want 2s", cfg.Providers.Timeout)
	}
	if cfg.Session.IdleTTL != 10*time.Minute {
		t.Errorf("Session.IdleTTL = %v, want 10m", cfg.Session.IdleTTL)
	}
	if cfg.LogLevel != slog.LevelDebug {
		t.Errorf("LogLevel = %v, want debug", cfg.LogLevel)
	}
	if cfg.RateLimit.Requests != 0 {
		t.Errorf("RateLimit.Requests = %d, want 0", cfg.RateLimit.Requests)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"empty port", map[string]string{"PORT": ""}},
		{"empty db path", map[string]string{"DB_PATH": ""}},
		{"zero timeout", map[string]string{"PROVIDER_TIMEOUT": "0s"}},
		{"zero history limit", map[string]string{"CHAT_HISTORY_LIMIT": "0"}},
		{"negative rate limit", map[string]string{"RATE_LIMIT_REQUESTS": "-1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if _, err := Load(); err == nil {
				t.Error("Load() error = nil, want validation error")
			}
		})
	}
}

func TestAllowedOrigins(t *testing.T) {
	cfg := &Config{}
	if got := cfg.AllowedOrigins(); len(got) != 1 || got[0] != "*" {
		t.Errorf("AllowedOrigins() = %v, want [*]", got)
	}
	cfg.FrontendURL = "https://a.example, https://b.example"
	got := cfg.AllowedOrigins()
	if len(got) != 2 || got[1] != "https://b.example" {
		t.Errorf("AllowedOrigins() = %v", got)
	}
	if cfg.IsDevelopment() {
		t.Error("IsDevelopment() = true for remote origins")
	}
}
