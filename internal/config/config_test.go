package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.RouteTimeoutMs != 90000 {
		t.Fatalf("expected 90s route timeout default, got %d", cfg.RouteTimeoutMs)
	}
	if cfg.RouteRetryCount != 1 {
		t.Fatalf("expected 1 route retry default, got %d", cfg.RouteRetryCount)
	}
	if cfg.RouteRetryBackoffMs != 500 {
		t.Fatalf("expected 500ms backoff default, got %d", cfg.RouteRetryBackoffMs)
	}
}

func TestLoadFileOverlayAndEnvPrecedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("api_port: \"9000\"\nroute_retry_count: 5\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("ROUTE_RETRY_COUNT", "2")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.APIPort != "9000" {
		t.Fatalf("expected file overlay to apply, got port %q", cfg.APIPort)
	}
	if cfg.RouteRetryCount != 2 {
		t.Fatalf("expected env to win over file, got %d", cfg.RouteRetryCount)
	}
}

func TestAuthTokenPairs(t *testing.T) {
	cfg := Config{AuthTokens: "tok-1:alice, tok-2:bob ,"}
	pairs := cfg.AuthTokenPairs()
	if len(pairs) != 2 || pairs[0] != "tok-1:alice" || pairs[1] != "tok-2:bob" {
		t.Fatalf("unexpected pairs %v", pairs)
	}
}
