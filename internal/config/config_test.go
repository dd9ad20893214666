package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("BROADCAST_SCOPE", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Leads.BroadcastScope != BroadcastScopeChapter {
		t.Errorf("BroadcastScope = %q, want %q", cfg.Leads.BroadcastScope, BroadcastScopeChapter)
	}
	if cfg.Realtime.PingInterval != 30*time.Second {
		t.Errorf("PingInterval = %v, want 30s", cfg.Realtime.PingInterval)
	}
	if cfg.S3Configured() {
		t.Errorf("S3Configured = true with no S3 env")
	}
}

func TestLoadRequiresSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error without JWT_SECRET")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"scope normalised", func(c *Config) { c.Leads.BroadcastScope = " ALL " }, false},
		{"unknown scope", func(c *Config) { c.Leads.BroadcastScope = "planet" }, true},
		{"pong not after ping", func(c *Config) { c.Realtime.PongTimeout = c.Realtime.PingInterval }, true},
		{"zero buffer", func(c *Config) { c.Realtime.SendBuffer = 0 }, true},
		{"zero send timeout", func(c *Config) { c.Realtime.SendTimeout = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Config{}
			c.Server.JWTSecret = "x"
			c.Leads.BroadcastScope = BroadcastScopeChapter
			c.Realtime.PingInterval = 30 * time.Second
			c.Realtime.PongTimeout = 90 * time.Second
			c.Realtime.SendBuffer = 16
			c.Realtime.SendTimeout = 10 * time.Second
			tt.mutate(c)

			err := c.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() err = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
