package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaults(t *testing.T) {
	cfg := Default()
	if cfg.Port != "8080" {
		t.Fatalf("port = %q", cfg.Port)
	}
	if cfg.Engine.LowBatteryThreshold != 20 || cfg.Engine.LowBatteryRecover != 25 {
		t.Fatalf("battery thresholds = %+v", cfg.Engine)
	}
	if cfg.Engine.CurfewStart != "22:00" || cfg.Engine.CurfewEnd != "06:00" {
		t.Fatalf("curfew = %q-%q", cfg.Engine.CurfewStart, cfg.Engine.CurfewEnd)
	}
	if cfg.Engine.RetentionMinIntervalSec != 300 || cfg.Engine.RetentionMinDistanceM != 50 {
		t.Fatalf("retention = %+v", cfg.Engine)
	}
	if cfg.Dispatch.Workers == 0 || cfg.Dispatch.QueueSize == 0 {
		t.Fatalf("dispatch = %+v", cfg.Dispatch)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9999")
	t.Setenv("SPEED_LIMIT_KMH", "100")
	t.Setenv("DISPATCH_WORKERS", "8")
	t.Setenv("OFFLINE_AFTER_MIN", "not-a-number") // falls back to default

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "9999" {
		t.Fatalf("port = %q", cfg.Port)
	}
	if cfg.Engine.SpeedLimitKmh != 100 {
		t.Fatalf("speed limit = %v", cfg.Engine.SpeedLimitKmh)
	}
	if cfg.Dispatch.Workers != 8 {
		t.Fatalf("workers = %d", cfg.Dispatch.Workers)
	}
	if cfg.Engine.OfflineAfterMin != Default().Engine.OfflineAfterMin {
		t.Fatalf("bad int must keep default, got %d", cfg.Engine.OfflineAfterMin)
	}
}

func TestLoadYAMLFileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := []byte("port: \"7070\"\nengine:\n  speedLimitKmh: 90\n  curfewStart: \"21:00\"\n")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("SPEED_LIMIT_KMH", "95") // env wins over file

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "7070" {
		t.Fatalf("port = %q", cfg.Port)
	}
	if cfg.Engine.SpeedLimitKmh != 95 {
		t.Fatalf("speed limit = %v, env must override file", cfg.Engine.SpeedLimitKmh)
	}
	if cfg.Engine.CurfewStart != "21:00" {
		t.Fatalf("curfew start = %q", cfg.Engine.CurfewStart)
	}
	// File values merge over defaults, untouched keys keep defaults.
	if cfg.Engine.LowBatteryThreshold != 20 {
		t.Fatalf("threshold = %v", cfg.Engine.LowBatteryThreshold)
	}
}

func TestLoadBadConfigFile(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))
	if _, err := Load(); err == nil {
		t.Fatal("missing CONFIG_FILE path must error")
	}
}
