package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

const minimalEnvYAML = `
server:
  port: "8080"
weather_api:
  url: "https://aviationweather.example/api/data/taf"
  timeout: "2s"
request:
  timeout: "5s"
shutdown:
  timeout: "10s"
`

// clearEnv unsets the variables Load reads so the host environment cannot leak in.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"ENV_NAME", "WEATHER_API_URL", "PORT", "DEFAULT_AIRPORT"} {
		t.Setenv(key, "")
	}
}

// inProject writes content as config/dev.yaml in a temp dir and makes it the working directory.
func inProject(t *testing.T, content string) {
	t.Helper()
	dir := t.TempDir()
	writeEnvFile(t, dir, content)
	origWd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Chdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(origWd) })
}

func writeEnvFile(t *testing.T, dir, content string) {
	t.Helper()
	configDir := filepath.Join(dir, "config")
	if err := os.MkdirAll(configDir, 0755); err != nil {
		t.Fatalf("mkdir config: %v", err)
	}
	if err := os.WriteFile(filepath.Join(configDir, "dev.yaml"), []byte(content), 0644); err != nil {
		t.Fatalf("write config file: %v", err)
	}
}

func TestLoad_Minimal(t *testing.T) {
	clearEnv(t)
	inProject(t, minimalEnvYAML)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.ServerPort != "8080" {
		t.Errorf("ServerPort = %q, want 8080", cfg.ServerPort)
	}
	if cfg.WeatherAPIURL != "https://aviationweather.example/api/data/taf" {
		t.Errorf("WeatherAPIURL = %q", cfg.WeatherAPIURL)
	}
	if cfg.WeatherAPITimeout != 2*time.Second || cfg.RequestTimeout != 5*time.Second {
		t.Errorf("timeouts = %v / %v, want 2s / 5s", cfg.WeatherAPITimeout, cfg.RequestTimeout)
	}
	if cfg.DefaultAirport != "KBOS" {
		t.Errorf("DefaultAirport = %q, want KBOS", cfg.DefaultAirport)
	}
	if cfg.DisplayTimeZone != "America/New_York" {
		t.Errorf("DisplayTimeZone = %q, want America/New_York", cfg.DisplayTimeZone)
	}
	if !reflect.DeepEqual(cfg.CORSAllowedOrigins, []string{"*"}) {
		t.Errorf("CORSAllowedOrigins = %v, want [*]", cfg.CORSAllowedOrigins)
	}
	if cfg.MaxIdleConns != 10 || cfg.DegradedErrorPct != 50 || cfg.DegradedMinSamples != 5 {
		t.Errorf("defaults = %d/%d/%d, want 10/50/5", cfg.MaxIdleConns, cfg.DegradedErrorPct, cfg.DegradedMinSamples)
	}
}

func TestLoad_EmptyFileUsesDefaults(t *testing.T) {
	clearEnv(t)
	inProject(t, "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.WeatherAPIURL != defaultWeatherAPIURL {
		t.Errorf("WeatherAPIURL = %q, want %q", cfg.WeatherAPIURL, defaultWeatherAPIURL)
	}
	if cfg.WeatherAPITimeout != 10*time.Second {
		t.Errorf("WeatherAPITimeout = %v, want 10s", cfg.WeatherAPITimeout)
	}
	if cfg.RequestTimeout <= cfg.WeatherAPITimeout {
		t.Errorf("RequestTimeout = %v, want > WeatherAPITimeout", cfg.RequestTimeout)
	}
}

func TestLoad_FullFile(t *testing.T) {
	clearEnv(t)
	inProject(t, `
server:
  port: "9090"
  cors_allowed_origins: ["https://ops.example"]
weather_api:
  url: "http://localhost:9999/taf"
  timeout: "3s"
  max_idle_conns: 4
request:
  timeout: "8s"
weather:
  default_airport: "KJFK"
  display_time_zone: "UTC"
shutdown:
  timeout: "20s"
  in_flight_timeout: "5s"
  in_flight_check_interval: "50ms"
health:
  degraded_window: "2m"
  degraded_error_pct: 25
  degraded_min_samples: 10
metrics:
  tracked_airports: ["KBOS", "KJFK"]
`)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	want := &Config{
		ServerPort:              "9090",
		WeatherAPIURL:           "http://localhost:9999/taf",
		WeatherAPITimeout:       3 * time.Second,
		MaxIdleConns:            4,
		RequestTimeout:          8 * time.Second,
		DefaultAirport:          "KJFK",
		DisplayTimeZone:         "UTC",
		CORSAllowedOrigins:      []string{"https://ops.example"},
		ShutdownTimeout:         20 * time.Second,
		ShutdownInFlightTimeout: 5 * time.Second,
		ShutdownCheckInterval:   50 * time.Millisecond,
		DegradedWindow:          2 * time.Minute,
		DegradedErrorPct:        25,
		DegradedMinSamples:      10,
		TrackedAirports:         []string{"KBOS", "KJFK"},
	}
	if !reflect.DeepEqual(cfg, want) {
		t.Errorf("Load() = %+v, want %+v", cfg, want)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	inProject(t, minimalEnvYAML)
	t.Setenv("WEATHER_API_URL", "http://mock-upstream:8000/taf")
	t.Setenv("PORT", "7000")
	t.Setenv("DEFAULT_AIRPORT", "KLGA")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.WeatherAPIURL != "http://mock-upstream:8000/taf" {
		t.Errorf("WeatherAPIURL = %q, want env override", cfg.WeatherAPIURL)
	}
	if cfg.ServerPort != "7000" {
		t.Errorf("ServerPort = %q, want 7000", cfg.ServerPort)
	}
	if cfg.DefaultAirport != "KLGA" {
		t.Errorf("DefaultAirport = %q, want KLGA", cfg.DefaultAirport)
	}
}

func TestLoad_EnvFileNotFound(t *testing.T) {
	clearEnv(t)
	inProject(t, minimalEnvYAML)
	t.Setenv("ENV_NAME", "nonexistent")

	cfg, err := Load()
	if err == nil {
		t.Fatal("Load() expected error for missing env file, got nil")
	}
	if cfg != nil {
		t.Fatalf("Load() expected nil config on error, got %+v", cfg)
	}
	if !strings.Contains(err.Error(), "config file not found") {
		t.Errorf("Load() error = %v, want message about config file not found", err)
	}
}

func TestLoad_InvalidConfigYAML(t *testing.T) {
	clearEnv(t)
	inProject(t, "server: [unclosed\n")

	if _, err := Load(); err == nil || !strings.Contains(err.Error(), "parse config file") {
		t.Errorf("Load() error = %v, want parse config file error", err)
	}
}

func TestLoad_InvalidDurationFallsBackToDefault(t *testing.T) {
	clearEnv(t)
	inProject(t, minimalEnvYAML+"health:\n  degraded_window: \"soon\"\n")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.DegradedWindow != 60*time.Second {
		t.Errorf("DegradedWindow = %v, want 60s default", cfg.DegradedWindow)
	}
}

func TestLoad_RequestTimeoutRaisedAboveUpstreamTimeout(t *testing.T) {
	clearEnv(t)
	inProject(t, `
weather_api:
  timeout: "10s"
request:
  timeout: "5s"
`)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.RequestTimeout != 11*time.Second {
		t.Errorf("RequestTimeout = %v, want 11s", cfg.RequestTimeout)
	}
}

func TestLoad_ValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantMsg string
	}{
		{"zero upstream timeout", "weather_api:\n  timeout: \"0s\"\n", "weather_api.timeout"},
		{"relative upstream url", "weather_api:\n  url: \"/api/data/taf\"\n", "weather_api.url"},
		{"unknown time zone", "weather:\n  display_time_zone: \"Mars/Olympus\"\n", "display_time_zone"},
		{"error pct above 100", "health:\n  degraded_error_pct: 150\n", "degraded_error_pct"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			inProject(t, tt.yaml)

			cfg, err := Load()
			if err == nil {
				t.Fatalf("Load() expected error, got %+v", cfg)
			}
			if cfg != nil {
				t.Errorf("Load() expected nil config on error, got %+v", cfg)
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("Load() error = %v, want message containing %q", err, tt.wantMsg)
			}
		})
	}
}

func TestParseDuration(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
	}{
		{"", time.Second},
		{"  ", time.Second},
		{"250ms", 250 * time.Millisecond},
		{"-5s", time.Second},
		{"0s", time.Second},
		{"garbage", time.Second},
	}
	for _, tt := range tests {
		if got := parseDuration(tt.in, time.Second); got != tt.want {
			t.Errorf("parseDuration(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
	if got := parseDurationOrZero("0s", time.Second); got != 0 {
		t.Errorf("parseDurationOrZero(0s) = %v, want 0", got)
	}
}

// TestDevConfig_Loads verifies that the checked-in config/dev.yaml is valid.
func TestDevConfig_Loads(t *testing.T) {
	clearEnv(t)
	root := findProjectRoot(t)
	origWd, _ := os.Getwd()
	if err := os.Chdir(root); err != nil {
		t.Fatalf("Chdir: %v", err)
	}
	defer func() { _ = os.Chdir(origWd) }()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.DefaultAirport != "KBOS" {
		t.Errorf("DefaultAirport = %q, want KBOS", cfg.DefaultAirport)
	}
}

func findProjectRoot(t *testing.T) string {
	t.Helper()
	dir, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "config", "dev.yaml")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			t.Fatal("config/dev.yaml not found (run tests from project root)")
		}
		dir = parent
	}
}
