package model

import (
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Server.Port != 3000 {
		t.Errorf("port = %d, want 3000", cfg.Server.Port)
	}
	if cfg.Server.TokenTTL != 7*24*time.Hour {
		t.Errorf("token ttl = %v", cfg.Server.TokenTTL)
	}
	if cfg.Client.BaseURL != "http://localhost:3000" {
		t.Errorf("base url = %q", cfg.Client.BaseURL)
	}
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("PORT", "8081")
	t.Setenv("JWT_SECRET", "s3cret")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Server.Port != 8081 {
		t.Errorf("port = %d, want 8081", cfg.Server.Port)
	}
	if cfg.Server.JWTSecret != "s3cret" {
		t.Errorf("jwt secret = %q", cfg.Server.JWTSecret)
	}
}

func TestSaveConfig_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	cfg.Client.BaseURL = "http://todo.internal:9000"
	cfg.Log.Level = "debug"

	if err := SaveConfig(path, cfg); err != nil {
		t.Fatalf("SaveConfig: %v", err)
	}

	got, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got.Client.BaseURL != cfg.Client.BaseURL || got.Log.Level != "debug" {
		t.Errorf("round trip lost values: %+v", got)
	}
	if got.Server.TokenTTL != cfg.Server.TokenTTL {
		t.Errorf("token ttl = %v, want %v", got.Server.TokenTTL, cfg.Server.TokenTTL)
	}
}
