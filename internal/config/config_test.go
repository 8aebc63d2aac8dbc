package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != 8080 {
		t.Fatalf("port=%d, want 8080", cfg.Port)
	}
	if cfg.Mode != "release" {
		t.Fatalf("mode=%q, want release", cfg.Mode)
	}
	if cfg.RelayURL != "ws://localhost:8080/api/ws/signal" {
		t.Fatalf("relay_url=%q", cfg.RelayURL)
	}
	if len(cfg.StunServers) != 2 {
		t.Fatalf("stun_servers=%v, want two defaults", cfg.StunServers)
	}
	if cfg.GeminiLiveModel == "" || cfg.GeminiReportModel == "" {
		t.Fatal("gemini model defaults missing")
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	if err := os.MkdirAll(filepath.Join(dir, "config"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	yaml := "mode: debug\nport: 9090\nrelay_url: ws://relay.test/ws\nstun_servers:\n  - stun:stun.test:3478\n"
	if err := os.WriteFile(filepath.Join(dir, "config", "config.test.yaml"), []byte(yaml), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("CONFIG_ENV", "test")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Mode != "debug" {
		t.Fatalf("mode=%q, want debug", cfg.Mode)
	}
	if cfg.Port != 9090 {
		t.Fatalf("port=%d, want 9090", cfg.Port)
	}
	if cfg.RelayURL != "ws://relay.test/ws" {
		t.Fatalf("relay_url=%q", cfg.RelayURL)
	}
	if len(cfg.StunServers) != 1 || cfg.StunServers[0] != "stun:stun.test:3478" {
		t.Fatalf("stun_servers=%v", cfg.StunServers)
	}
}

func TestEnvOverridesAPIKey(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("GEMINI_API_KEY", "k-123")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.GeminiAPIKey != "k-123" {
		t.Fatalf("gemini_api_key=%q, want k-123", cfg.GeminiAPIKey)
	}
}
