package config_test

import (
	"testing"
	"time"

	"github.com/babar-raza/tbcv/internal/config"
)

func TestLoadDefaults(t *testing.T) {
	cfg := config.Load()

	if cfg.Port != 8090 {
		t.Errorf("Port = %d, want 8090", cfg.Port)
	}
	if cfg.Store.Backend != "memory" {
		t.Errorf("Store.Backend = %q, want %q", cfg.Store.Backend, "memory")
	}
	if cfg.Cache.L2Backend != "file" {
		t.Errorf("Cache.L2Backend = %q, want %q", cfg.Cache.L2Backend, "file")
	}
	if cfg.Cache.L1TTL != 10*time.Minute {
		t.Errorf("Cache.L1TTL = %v, want 10m", cfg.Cache.L1TTL)
	}
}

func TestLoadHonorsEnvOverrides(t *testing.T) {
	t.Setenv("TBCV_PORT", "9999")
	t.Setenv("TBCV_STORE_BACKEND", "postgres")
	t.Setenv("TBCV_CACHE_L2_BACKEND", "redis")
	t.Setenv("TBCV_RULES_WATCH", "false")

	cfg := config.Load()

	if cfg.Port != 9999 {
		t.Errorf("Port = %d, want 9999", cfg.Port)
	}
	if cfg.Store.Backend != "postgres" {
		t.Errorf("Store.Backend = %q, want %q", cfg.Store.Backend, "postgres")
	}
	if cfg.Cache.L2Backend != "redis" {
		t.Errorf("Cache.L2Backend = %q, want %q", cfg.Cache.L2Backend, "redis")
	}
	if cfg.RuleLoader.WatchReload {
		t.Error("RuleLoader.WatchReload = true, want false after TBCV_RULES_WATCH=false")
	}
}

func TestLoadInvalidIntFallsBackToDefault(t *testing.T) {
	t.Setenv("TBCV_PORT", "not-a-number")
	cfg := config.Load()
	if cfg.Port != 8090 {
		t.Errorf("Port = %d, want default 8090 when env var is not a valid int", cfg.Port)
	}
}
