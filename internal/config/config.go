package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
	_ "time/tzdata"

	"gopkg.in/yaml.v3"
)

const (
	defaultWeatherAPIURL   = "https://aviationweather.gov/api/data/taf"
	defaultAirport         = "KBOS"
	defaultDisplayTimeZone = "America/New_York"
)

// Config holds service configuration loaded from YAML and env.
type Config struct {
	ServerPort string

	WeatherAPIURL     string
	WeatherAPITimeout time.Duration
	MaxIdleConns      int

	RequestTimeout time.Duration

	DefaultAirport     string
	DisplayTimeZone    string
	CORSAllowedOrigins []string

	ShutdownTimeout         time.Duration
	ShutdownInFlightTimeout time.Duration
	ShutdownCheckInterval   time.Duration

	DegradedWindow     time.Duration
	DegradedErrorPct   int
	DegradedMinSamples int

	TrackedAirports []string
}

type fileConfig struct {
	Server struct {
		Port        string   `yaml:"port"`
		CORSOrigins []string `yaml:"cors_allowed_origins"`
	} `yaml:"server"`

	WeatherAPI struct {
		URL          string `yaml:"url"`
		Timeout      string `yaml:"timeout"`
		MaxIdleConns int    `yaml:"max_idle_conns"`
	} `yaml:"weather_api"`

	Request struct {
		Timeout string `yaml:"timeout"`
	} `yaml:"request"`

	Weather struct {
		DefaultAirport  string `yaml:"default_airport"`
		DisplayTimeZone string `yaml:"display_time_zone"`
	} `yaml:"weather"`

	Shutdown struct {
		Timeout          string `yaml:"timeout"`
		InFlightTimeout  string `yaml:"in_flight_timeout"`
		InFlightInterval string `yaml:"in_flight_check_interval"`
	} `yaml:"shutdown"`

	Health struct {
		DegradedWindow     string `yaml:"degraded_window"`
		DegradedErrorPct   int    `yaml:"degraded_error_pct"`
		DegradedMinSamples int    `yaml:"degraded_min_samples"`
	} `yaml:"health"`

	Metrics struct {
		TrackedAirports []string `yaml:"tracked_airports"`
	} `yaml:"metrics"`
}

// Load reads configuration from config/{ENV_NAME}.yaml (default dev) under the working
// directory, then applies WEATHER_API_URL, PORT and DEFAULT_AIRPORT from the environment.
// Call from project root.
func Load() (*Config, error) {
	env := os.Getenv("ENV_NAME")
	if env == "" {
		env = "dev"
	}

	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("config: get working directory: %w", err)
	}
	configPath := filepath.Join(cwd, "config", env+".yaml")
	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found: %s", configPath)
		}
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	cfg := fromFile(&fc)
	applyEnv(cfg)

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// fromFile fills a Config from the parsed YAML, substituting defaults for absent values.
func fromFile(fc *fileConfig) *Config {
	cfg := &Config{}
	cfg.ServerPort = orDefault(fc.Server.Port, "8080")
	cfg.CORSAllowedOrigins = fc.Server.CORSOrigins
	if len(cfg.CORSAllowedOrigins) == 0 {
		cfg.CORSAllowedOrigins = []string{"*"}
	}

	cfg.WeatherAPIURL = orDefault(fc.WeatherAPI.URL, defaultWeatherAPIURL)
	cfg.WeatherAPITimeout = parseDurationOrZero(fc.WeatherAPI.Timeout, 10*time.Second)
	cfg.MaxIdleConns = fc.WeatherAPI.MaxIdleConns
	if cfg.MaxIdleConns <= 0 {
		cfg.MaxIdleConns = 10
	}

	cfg.RequestTimeout = parseDuration(fc.Request.Timeout, 15*time.Second)

	cfg.DefaultAirport = orDefault(fc.Weather.DefaultAirport, defaultAirport)
	cfg.DisplayTimeZone = orDefault(fc.Weather.DisplayTimeZone, defaultDisplayTimeZone)

	cfg.ShutdownTimeout = parseDuration(fc.Shutdown.Timeout, 30*time.Second)
	cfg.ShutdownInFlightTimeout = parseDuration(fc.Shutdown.InFlightTimeout, 10*time.Second)
	cfg.ShutdownCheckInterval = parseDuration(fc.Shutdown.InFlightInterval, 100*time.Millisecond)

	cfg.DegradedWindow = parseDuration(fc.Health.DegradedWindow, 60*time.Second)
	cfg.DegradedErrorPct = fc.Health.DegradedErrorPct
	if cfg.DegradedErrorPct <= 0 {
		cfg.DegradedErrorPct = 50
	}
	cfg.DegradedMinSamples = fc.Health.DegradedMinSamples
	if cfg.DegradedMinSamples <= 0 {
		cfg.DegradedMinSamples = 5
	}

	cfg.TrackedAirports = fc.Metrics.TrackedAirports
	return cfg
}

// applyEnv lets deployment environment variables override the file.
func applyEnv(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv("WEATHER_API_URL")); v != "" {
		cfg.WeatherAPIURL = v
	}
	if v := strings.TrimSpace(os.Getenv("PORT")); v != "" {
		cfg.ServerPort = v
	}
	if v := strings.TrimSpace(os.Getenv("DEFAULT_AIRPORT")); v != "" {
		cfg.DefaultAirport = v
	}
}

func orDefault(s, defaultVal string) string {
	if s = strings.TrimSpace(s); s == "" {
		return defaultVal
	}
	return s
}

// parseDuration parses a duration string and returns defaultVal if parsing fails or result is <= 0.
// Used for parsing duration fields from YAML config with safe fallback to defaults.
func parseDuration(s string, defaultVal time.Duration) time.Duration {
	d := parseDurationOrZero(s, defaultVal)
	if d <= 0 {
		return defaultVal
	}
	return d
}

// parseDurationOrZero parses a duration string, returning defaultVal on empty string or parse error.
// Returns zero or negative durations as-is (caller should handle fallback).
func parseDurationOrZero(s string, defaultVal time.Duration) time.Duration {
	s = strings.TrimSpace(s)
	if s == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return defaultVal
	}
	return d
}

// validate performs post-load validation of configuration values. RequestTimeout is
// raised above WeatherAPITimeout so the upstream call can time out on its own first.
func validate(cfg *Config) error {
	if cfg.WeatherAPITimeout <= 0 {
		return fmt.Errorf("weather_api.timeout must be positive")
	}
	if cfg.RequestTimeout <= cfg.WeatherAPITimeout {
		cfg.RequestTimeout = cfg.WeatherAPITimeout + time.Second
	}
	u, err := url.Parse(cfg.WeatherAPIURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("weather_api.url must be an absolute http(s) URL, got %q", cfg.WeatherAPIURL)
	}
	if _, err := time.LoadLocation(cfg.DisplayTimeZone); err != nil {
		return fmt.Errorf("weather.display_time_zone %q: %w", cfg.DisplayTimeZone, err)
	}
	if cfg.DegradedErrorPct > 100 {
		return fmt.Errorf("health.degraded_error_pct must be between 1 and 100, got %d", cfg.DegradedErrorPct)
	}
	return nil
}
