package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

var (
	ErrConfigFileNotFound    = errors.New("could not find config file in any config path")
	ErrConfigVersionMissing  = errors.New("config file is missing version field")
	ErrConfigVersionMismatch = errors.New("config file version mismatch")
	ErrMainTokenMissing      = errors.New("platform main token is not configured")
	ErrInvalidTimeZone       = errors.New("invalid time zone")
)

// EnvPrefix is the prefix of environment variables overriding config keys.
// Nested keys are separated by a double underscore, for example
// TRACKER_COMMON__PLATFORM__MAIN_TOKEN.
const EnvPrefix = "TRACKER_"

// Current version of the config file.
const (
	CurrentCommonVersion  = 1
	CurrentTrackerVersion = 1
)

// Config represents the entire application configuration.
type Config struct {
	Common  CommonConfig  `koanf:"common"`
	Tracker TrackerConfig `koanf:"tracker"`
}

// CommonConfig contains configuration shared between all commands.
type CommonConfig struct {
	// Version of the common config.
	Version    int        `koanf:"version"`
	Debug      Debug      `koanf:"debug"`
	Retry      Retry      `koanf:"retry"`
	PostgreSQL PostgreSQL `koanf:"postgresql"`
	Redis      Redis      `koanf:"redis"`
	Platform   Platform   `koanf:"platform"`
}

// TrackerConfig contains collection, cache and analysis configuration.
type TrackerConfig struct {
	// Version of the tracker config.
	Version   int       `koanf:"version"`
	Scheduler Scheduler `koanf:"scheduler"`
	Cache     Cache     `koanf:"cache"`
	Analysis  Analysis  `koanf:"analysis"`
	Export    Export    `koanf:"export"`
}

// Debug contains debug-related configuration.
type Debug struct {
	// Log level (debug, info, warn, error).
	LogLevel string `koanf:"log_level"`
	// Maximum log files to keep.
	MaxLogsToKeep int `koanf:"max_logs_to_keep"`
	// Maximum lines per log file.
	MaxLogLines int `koanf:"max_log_lines"`
}

// Retry contains retry configuration for platform requests.
type Retry struct {
	// Maximum retry attempts.
	MaxRetries uint64 `koanf:"max_retries"`
	// Initial retry delay in milliseconds.
	Delay int `koanf:"delay"`
	// Maximum retry delay in milliseconds.
	MaxDelay int `koanf:"max_delay"`
}

// PostgreSQL contains database connection configuration.
type PostgreSQL struct {
	// Database hostname.
	Host string `koanf:"host"`
	// Database port.
	Port int `koanf:"port"`
	// Database username.
	User string `koanf:"user"`
	// Database password.
	Password string `koanf:"password"`
	// Database name.
	DBName string `koanf:"db_name"`
	// Maximum open connections.
	MaxOpenConns int `koanf:"max_open_conns"`
	// Maximum idle connections.
	MaxIdleConns int `koanf:"max_idle_conns"`
	// Connection lifetime in minutes.
	MaxLifetime int `koanf:"max_lifetime"`
	// Idle timeout in minutes.
	MaxIdleTime int `koanf:"max_idle_time"`
}

// Redis contains Redis connection configuration.
type Redis struct {
	// Redis hostname.
	Host string `koanf:"host"`
	// Redis port.
	Port int `koanf:"port"`
	// Redis username.
	Username string `koanf:"username"`
	// Redis password.
	Password string `koanf:"password"`
}

// Platform contains remote platform access configuration.
type Platform struct {
	// Access token of the main account.
	MainToken string `koanf:"main_token"`
	// Request timeout in milliseconds.
	RequestTimeout int `koanf:"request_timeout"`
	// Maximum concurrent group fetches.
	MaxConcurrency int `koanf:"max_concurrency"`
	// Maximum requests in flight across the process.
	MaxInFlight int `koanf:"max_in_flight"`
	// IANA time zone used to format completion times. Empty means local.
	TimeZone string `koanf:"time_zone"`
}

// Scheduler contains periodic job configuration.
type Scheduler struct {
	// Cron expression of the daily record job.
	DailyRecord string `koanf:"daily_record"`
}

// Cache contains staged table configuration.
type Cache struct {
	// Seconds before staged data is considered stale.
	CacheSeconds int `koanf:"cache_seconds"`
}

// Analysis contains weekly analysis configuration.
type Analysis struct {
	// Number of previous weeks offered as options.
	WeekOptions int `koanf:"week_options"`
	// Chart width in pixels.
	ChartWidth int `koanf:"chart_width"`
	// Chart height in pixels.
	ChartHeight int `koanf:"chart_height"`
}

// Export contains export configuration.
type Export struct {
	// Output directory for exported files.
	OutputDir string `koanf:"output_dir"`
}

// RequestTimeoutDuration returns the platform request timeout.
func (p *Platform) RequestTimeoutDuration() time.Duration {
	return time.Duration(p.RequestTimeout) * time.Millisecond
}

// Location returns the configured time zone.
func (p *Platform) Location() (*time.Location, error) {
	if p.TimeZone == "" || strings.EqualFold(p.TimeZone, "local") {
		return time.Local, nil
	}

	loc, err := time.LoadLocation(p.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidTimeZone, p.TimeZone)
	}

	return loc, nil
}

// CacheTTL returns the staged data time-to-live.
func (c *Cache) CacheTTL() time.Duration {
	return time.Duration(c.CacheSeconds) * time.Second
}

// Defaults returns the configuration used for keys missing from every source.
func Defaults() map[string]any {
	return map[string]any{
		"common.debug.log_level":           "info",
		"common.debug.max_logs_to_keep":    10,
		"common.debug.max_log_lines":       100000,
		"common.retry.max_retries":         3,
		"common.retry.delay":               500,
		"common.retry.max_delay":           5000,
		"common.postgresql.host":           "localhost",
		"common.postgresql.port":           5432,
		"common.postgresql.max_open_conns": 10,
		"common.postgresql.max_idle_conns": 5,
		"common.postgresql.max_lifetime":   30,
		"common.postgresql.max_idle_time":  5,
		"common.redis.host":                "localhost",
		"common.redis.port":                6379,
		"common.platform.request_timeout":  5000,
		"common.platform.max_concurrency":  8,
		"common.platform.max_in_flight":    16,
		"tracker.scheduler.daily_record":   "59 23 * * *",
		"tracker.cache.cache_seconds":      60,
		"tracker.analysis.week_options":    8,
		"tracker.analysis.chart_width":     1024,
		"tracker.analysis.chart_height":    512,
		"tracker.export.output_dir":        "export",
	}
}

// LoadConfig loads the configuration from the config search paths, then
// applies environment overrides. Returns the config along with the used
// config directory.
func LoadConfig() (*Config, string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, "", fmt.Errorf("failed to get home directory: %w", err)
	}

	configPaths := []string{
		".tracker",
		homeDir + "/.tracker/config",
		"/etc/tracker/config",
		"/app/config",
		"config",
		".",
	}

	return LoadConfigFrom(configPaths)
}

// LoadConfigFrom loads the configuration from the given search paths.
func LoadConfigFrom(configPaths []string) (*Config, string, error) {
	k := koanf.New(".")

	for key, value := range Defaults() {
		if err := k.Set(key, value); err != nil {
			return nil, "", fmt.Errorf("failed to set default %s: %w", key, err)
		}
	}

	var usedConfigPath string

	configFiles := []string{"common", "tracker"}
	for _, configName := range configFiles {
		configLoaded := false

		for _, path := range configPaths {
			configPath := fmt.Sprintf("%s/%s.toml", path, configName)

			sub := koanf.New(".")
			if err := sub.Load(file.Provider(configPath), toml.Parser()); err != nil {
				continue
			}

			if err := k.MergeAt(sub, configName); err != nil {
				return nil, "", fmt.Errorf("failed to merge %s.toml: %w", configName, err)
			}

			configLoaded = true

			if usedConfigPath == "" {
				usedConfigPath = path
			}

			break
		}

		if !configLoaded {
			return nil, "", fmt.Errorf("%w: %s.toml", ErrConfigFileNotFound, configName)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, "", fmt.Errorf("failed to load environment overrides: %w", err)
	}

	var config Config
	if err := k.Unmarshal("", &config); err != nil {
		return nil, "", fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := checkConfigVersion("common", config.Common.Version, CurrentCommonVersion); err != nil {
		return nil, "", err
	}

	if err := checkConfigVersion("tracker", config.Tracker.Version, CurrentTrackerVersion); err != nil {
		return nil, "", err
	}

	if strings.TrimSpace(config.Common.Platform.MainToken) == "" {
		return nil, "", ErrMainTokenMissing
	}

	return &config, usedConfigPath, nil
}

// envKey maps TRACKER_COMMON__PLATFORM__MAIN_TOKEN to common.platform.main_token.
func envKey(s string) string {
	key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(key, "__", ".")
}

// checkConfigVersion checks if the config file version is correct.
func checkConfigVersion(name string, current, expected int) error {
	if current == 0 {
		return fmt.Errorf("%w: %s.toml", ErrConfigVersionMissing, name)
	}

	if current != expected {
		return fmt.Errorf(
			"%w: %s.toml (got: %d, expected: %d)",
			ErrConfigVersionMismatch,
			name,
			current,
			expected,
		)
	}

	return nil
}
