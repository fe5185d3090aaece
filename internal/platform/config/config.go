package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Load reads the .env file from the current working directory and sets
// environment variables. If .env does not exist, Load returns an error but
// callers can ignore it and use system env or defaults. Pass one or more paths
// to load from specific files (e.g. ".env"); with no paths, ".env" is used.
func Load(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	return godotenv.Load(paths...)
}

// GetEnv returns the value of the environment variable named by key, or fallback
// if the variable is unset or empty.
func GetEnv(key, fallback string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return fallback
}

// Config is the service configuration. Every key can be set from the
// environment using its upper-cased name, e.g. LIVE_DELAY_FRAGMENT_COUNT.
type Config struct {
	Port      string `mapstructure:"port"`
	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`

	LiveDelayFragmentCount int           `mapstructure:"live_delay_fragment_count"`
	WallclockInterval      time.Duration `mapstructure:"wallclock_interval"`
	HistorySize            int           `mapstructure:"history_size"`

	InitialVideoBitrateKbps float64 `mapstructure:"initial_video_bitrate_kbps"`
	InitialAudioBitrateKbps float64 `mapstructure:"initial_audio_bitrate_kbps"`
	MaxBitrateExpr          string  `mapstructure:"max_bitrate_expr"` // e.g. "<= 3000000"; empty means no ceiling

	RedisAddr     string `mapstructure:"redis_addr"` // empty keeps preferences in memory
	RedisPassword string `mapstructure:"redis_password"`
	RedisDB       int    `mapstructure:"redis_db"`

	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// SetDefaults registers the default of every key.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("port", "8080")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "json")
	v.SetDefault("live_delay_fragment_count", 4)
	v.SetDefault("wallclock_interval", time.Second)
	v.SetDefault("history_size", 100)
	v.SetDefault("initial_video_bitrate_kbps", 1000)
	v.SetDefault("initial_audio_bitrate_kbps", 100)
	v.SetDefault("max_bitrate_expr", "")
	v.SetDefault("redis_addr", "")
	v.SetDefault("redis_password", "")
	v.SetDefault("redis_db", 0)
	v.SetDefault("shutdown_timeout", 10*time.Second)
}

// New builds the configuration from defaults, an optional config file and the
// environment, in increasing order of precedence. An empty file skips the file.
func New(file string) (*Config, error) {
	v := viper.New()
	SetDefaults(v)
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("reading config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Port == "" {
		return errors.New("port is required")
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[c.LogFormat] {
		return fmt.Errorf("log_format must be one of: json, text")
	}
	if c.WallclockInterval <= 0 {
		return fmt.Errorf("wallclock_interval must be positive")
	}
	if c.HistorySize < 1 {
		return fmt.Errorf("history_size must be at least 1")
	}
	if c.InitialVideoBitrateKbps < 0 || c.InitialAudioBitrateKbps < 0 {
		return fmt.Errorf("initial bitrates must not be negative")
	}
	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("shutdown_timeout must be positive")
	}
	return nil
}
