package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// MaxDistanceBatch is the distance-matrix provider's per-call destination limit.
const MaxDistanceBatch = 25

// Config holds all nestfind configuration.
type Config struct {
	Listen    string          `yaml:"listen"`
	DBPath    string          `yaml:"db_path"`
	Log       LogConfig       `yaml:"log"`
	Places    PlacesConfig    `yaml:"places"`
	Amenities AmenitiesConfig `yaml:"amenities"`
	Distance  DistanceConfig  `yaml:"distance"`
	Selection SelectionConfig `yaml:"selection"`
	Usage     UsageConfig     `yaml:"usage"`
	Quota     QuotaConfig     `yaml:"quota"`
}

// LogConfig controls the zap logger.
// Format is "json" (default) or "console".
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// PlacesConfig defines the upstream places and distance-matrix provider.
type PlacesConfig struct {
	APIKey       string        `yaml:"api_key"`
	BaseURL      string        `yaml:"base_url"`
	Timeout      time.Duration `yaml:"timeout"`
	DistanceMode string        `yaml:"distance_mode"`
}

// AmenitiesConfig controls enrichment and the amenity cache.
type AmenitiesConfig struct {
	TTL           time.Duration `yaml:"ttl"`
	MaxEntries    int           `yaml:"max_entries"`
	Shards        int           `yaml:"shards"`
	Concurrency   int           `yaml:"concurrency"`
	DefaultRadius int           `yaml:"default_radius"`
	DefaultLimit  int           `yaml:"default_limit"`
	FetchDetails  bool          `yaml:"fetch_details"`
	WithDistance  bool          `yaml:"with_distance"`
}

// DistanceConfig controls distance augmentation batching.
type DistanceConfig struct {
	BatchSize int `yaml:"batch_size"`
}

// SelectionConfig controls interactive re-selection.
type SelectionConfig struct {
	Debounce time.Duration `yaml:"debounce"`
}

// UsageConfig controls the provider call log.
type UsageConfig struct {
	Enabled         bool   `yaml:"enabled"`
	RetentionDays   int    `yaml:"retention_days"`
	CleanupSchedule string `yaml:"cleanup_schedule"`
}

// QuotaConfig caps outbound provider calls per UTC day.
type QuotaConfig struct {
	Enabled    bool  `yaml:"enabled"`
	DailyCalls int64 `yaml:"daily_calls"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Listen: ":3000",
		DBPath: "nestfind.db",
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Places: PlacesConfig{
			BaseURL:      "https://maps.googleapis.com/maps/api",
			Timeout:      10 * time.Second,
			DistanceMode: "driving",
		},
		Amenities: AmenitiesConfig{
			TTL:           10 * time.Minute,
			MaxEntries:    10000,
			Shards:        16,
			Concurrency:   4,
			DefaultRadius: 5000,
			DefaultLimit:  5,
		},
		Distance: DistanceConfig{
			BatchSize: MaxDistanceBatch,
		},
		Selection: SelectionConfig{
			Debounce: 300 * time.Millisecond,
		},
		Usage: UsageConfig{
			Enabled:         true,
			RetentionDays:   30,
			CleanupSchedule: "@daily",
		},
		Quota: QuotaConfig{
			Enabled:    false,
			DailyCalls: 5000,
		},
	}
}

// Load reads a YAML config file and expands environment variables.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadOrDefault loads path when it exists and falls back to Default otherwise.
// The places API key may also come from GOOGLE_MAPS_API_KEY.
func LoadOrDefault(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			loaded, err := Load(path)
			if err != nil {
				return nil, err
			}
			cfg = loaded
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("stat config: %w", err)
		}
	}
	if cfg.Places.APIKey == "" {
		cfg.Places.APIKey = os.Getenv("GOOGLE_MAPS_API_KEY")
	}
	return cfg, nil
}

// Validate rejects settings the services cannot run with.
// A missing API key is not an error here; it surfaces per request.
func (c *Config) Validate() error {
	var errs []error
	if c.Amenities.TTL <= 0 {
		errs = append(errs, errors.New("amenities.ttl must be positive"))
	}
	if c.Amenities.MaxEntries < 0 {
		errs = append(errs, errors.New("amenities.max_entries must not be negative"))
	}
	if c.Amenities.DefaultRadius < 1 {
		errs = append(errs, errors.New("amenities.default_radius must be at least 1"))
	}
	if c.Amenities.DefaultLimit < 1 {
		errs = append(errs, errors.New("amenities.default_limit must be at least 1"))
	}
	if c.Distance.BatchSize < 1 || c.Distance.BatchSize > MaxDistanceBatch {
		errs = append(errs, fmt.Errorf("distance.batch_size must be between 1 and %d", MaxDistanceBatch))
	}
	if c.Places.Timeout <= 0 {
		errs = append(errs, errors.New("places.timeout must be positive"))
	}
	if c.Selection.Debounce < 0 {
		errs = append(errs, errors.New("selection.debounce must not be negative"))
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log.level %q is not one of debug, info, warn, error", c.Log.Level))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}
