package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	API    APIConfig    `yaml:"api"`
	Server ServerConfig `yaml:"server"`
	Log    LogConfig    `yaml:"log"`
	Output OutputConfig `yaml:"output"`
}

// APIConfig holds results service settings.
type APIConfig struct {
	BaseURL           string        `yaml:"base_url"`
	Timeout           time.Duration `yaml:"timeout"`
	RequestsPerSecond float64       `yaml:"requests_per_second"`
	Burst             int           `yaml:"burst"`
}

// ServerConfig holds settings of the serve command.
type ServerConfig struct {
	Port   string        `yaml:"port"`
	RunTTL time.Duration `yaml:"run_ttl"`
}

type LogConfig struct {
	Level  string `yaml:"level"`  // debug|info|warn|error
	Format string `yaml:"format"` // text|json
}

type OutputConfig struct {
	NoColor bool `yaml:"no_color"`
	Limit   int  `yaml:"limit"`
}

func Default() Config {
	return Config{
		API: APIConfig{
			BaseURL:           "https://biathlonresults.com/modules/sportapi/api",
			Timeout:           30 * time.Second,
			RequestsPerSecond: 5,
			Burst:             2,
		},
		Server: ServerConfig{
			Port:   "8080",
			RunTTL: time.Hour,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Output: OutputConfig{
			Limit: 25,
		},
	}
}

// Load reads the YAML file at path over the defaults, then applies
// environment overrides. An empty path or a missing file leaves the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return cfg, fmt.Errorf("reading config: %w", err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("failed to unmarshal config: %w", err)
			}
		}
	}

	cfg.API.BaseURL = getEnv("BIATHLON_API_BASE", cfg.API.BaseURL)
	cfg.API.Timeout = time.Duration(getEnvInt("BIATHLON_TIMEOUT", int(cfg.API.Timeout/time.Second))) * time.Second
	cfg.API.RequestsPerSecond = getEnvFloat("BIATHLON_RPS", cfg.API.RequestsPerSecond)
	cfg.Server.Port = getEnv("PORT", cfg.Server.Port)
	cfg.Log.Level = getEnv("LOG_LEVEL", cfg.Log.Level)
	cfg.Log.Format = getEnv("LOG_FORMAT", cfg.Log.Format)
	if os.Getenv("NO_COLOR") != "" {
		cfg.Output.NoColor = true
	}

	if _, err := cfg.level(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c Config) level() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return lvl, fmt.Errorf("invalid log level %q: %w", c.Log.Level, err)
	}
	return lvl, nil
}

// Logger builds the process logger: JSON when log.format is "json", text
// otherwise. debug forces the debug level.
func (c Config) Logger(w io.Writer, debug bool) *slog.Logger {
	lvl, err := c.level()
	if err != nil {
		lvl = slog.LevelInfo
	}
	if debug {
		lvl = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if strings.EqualFold(c.Log.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}
