// Package config loads service configuration from an optional YAML
// file plus environment overrides.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Engine holds the policy thresholds the evaluation engine runs with.
// Every value that used to be a code constant in earlier revisions is
// explicit here so environments and tests can vary them.
type Engine struct {
	// Battery below this percentage flags the device and raises a
	// low_battery alert; above Recover the device returns to active.
	LowBatteryThreshold float64 `yaml:"lowBatteryThreshold"`
	LowBatteryRecover   float64 `yaml:"lowBatteryRecover"`

	// Speed strictly above this (km/h) raises a speed_violation alert.
	SpeedLimitKmh float64 `yaml:"speedLimitKmh"`

	// Nightly curfew window for home zones, "HH:MM", wraps midnight.
	CurfewStart string `yaml:"curfewStart"`
	CurfewEnd   string `yaml:"curfewEnd"`

	// Open low_battery alerts younger than this suppress new ones.
	DedupWindowMin int `yaml:"dedupWindowMin"`

	// History retention: keep a sample when this much time passed since
	// the last retained one, or when the device moved this far.
	RetentionMinIntervalSec int     `yaml:"retentionMinIntervalSec"`
	RetentionMinDistanceM   float64 `yaml:"retentionMinDistanceM"`

	// Devices silent for longer than this get a device_offline alert.
	OfflineAfterMin int `yaml:"offlineAfterMin"`
}

// Dispatch tunes the notification worker pool.
type Dispatch struct {
	QueueSize      int `yaml:"queueSize"`
	Workers        int `yaml:"workers"`
	SendTimeoutSec int `yaml:"sendTimeoutSec"`
}

// Ingest tunes the per-device rate limit on the location endpoint.
type Ingest struct {
	RateRPS   float64 `yaml:"rateRPS"`
	RateBurst int     `yaml:"rateBurst"`
}

type Config struct {
	Port        string   `yaml:"port"`
	DatabaseURL string   `yaml:"databaseURL"`
	RedisURL    string   `yaml:"redisURL"`
	Engine      Engine   `yaml:"engine"`
	Dispatch    Dispatch `yaml:"dispatch"`
	Ingest      Ingest   `yaml:"ingest"`
}

// Default returns the configuration used when no file or env override
// is present. Thresholds match the deployed policy.
func Default() Config {
	return Config{
		Port: "8080",
		Engine: Engine{
			LowBatteryThreshold:     20,
			LowBatteryRecover:       25,
			SpeedLimitKmh:           120,
			CurfewStart:             "22:00",
			CurfewEnd:               "06:00",
			DedupWindowMin:          120,
			RetentionMinIntervalSec: 300,
			RetentionMinDistanceM:   50,
			OfflineAfterMin:         15,
		},
		Dispatch: Dispatch{QueueSize: 1024, Workers: 4, SendTimeoutSec: 5},
		Ingest:   Ingest{RateRPS: 2, RateBurst: 10},
	}
}

// Load builds the config: defaults, then the YAML file named by
// CONFIG_FILE (if any), then environment variables.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	cfg.Port = getEnv("PORT", cfg.Port)
	cfg.DatabaseURL = getEnv("DATABASE_URL", cfg.DatabaseURL)
	cfg.RedisURL = getEnv("REDIS_URL", cfg.RedisURL)
	cfg.Engine.SpeedLimitKmh = getEnvFloat("SPEED_LIMIT_KMH", cfg.Engine.SpeedLimitKmh)
	cfg.Engine.LowBatteryThreshold = getEnvFloat("LOW_BATTERY_THRESHOLD", cfg.Engine.LowBatteryThreshold)
	cfg.Engine.OfflineAfterMin = getEnvInt("OFFLINE_AFTER_MIN", cfg.Engine.OfflineAfterMin)
	cfg.Dispatch.Workers = getEnvInt("DISPATCH_WORKERS", cfg.Dispatch.Workers)
	cfg.Dispatch.QueueSize = getEnvInt("DISPATCH_QUEUE_SIZE", cfg.Dispatch.QueueSize)
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getEnvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}
