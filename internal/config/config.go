package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	keyAPIKey       = "pubg_api_key"
	keyShard        = "pubg_shard"
	keyAPIURL       = "pubg_api_url"
	keySampleRPM    = "pubg_sample_rpm"
	keyStoreURL     = "store_url"
	keyStoreDB      = "store_database"
	keyLogLevel     = "log_level"
	keyLogFile      = "log_file"
	keyMetricsAddr  = "metrics_addr"
	keyDiscordHook  = "discord_webhook_url"
	keyHTTPTimeout  = "http_timeout"
	defaultStoreURL = "mongodb://localhost:27017"
)

// EnvPaths are the .env locations tried in order, first hit wins
var EnvPaths = []string{".env", "../.env", "../../.env"}

var ErrMissingAPIKey = errors.New("PUBG_API_KEY environment variable not set")

// Config is the process configuration, read from the environment
type Config struct {
	APIKey    string
	Shard     string
	APIURL    string
	SampleRPM int

	StoreURL      string
	StoreDatabase string

	LogLevel string
	LogFile  string

	MetricsAddr       string
	DiscordWebhookURL string
	HTTPTimeout       time.Duration
}

// LoadDotEnv loads the first .env file found and returns its path,
// or "" when none exists
func LoadDotEnv(paths ...string) string {
	if len(paths) == 0 {
		paths = EnvPaths
	}
	for _, path := range paths {
		if err := godotenv.Load(path); err == nil {
			return path
		}
	}
	return ""
}

func newViper() *viper.Viper {
	v := viper.New()
	v.AutomaticEnv()

	defaults := map[string]any{
		keyShard:       "steam",
		keyAPIURL:      "https://api.pubg.com",
		keySampleRPM:   10,
		keyStoreURL:    defaultStoreURL,
		keyStoreDB:     "pubg-stats",
		keyLogLevel:    "info",
		keyLogFile:     "",
		keyMetricsAddr: "",
		keyDiscordHook: "",
		keyHTTPTimeout: "30s",
	}
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	return v
}

// Load reads configuration from the environment. Call LoadDotEnv first
// to pick up a .env file.
func Load() (*Config, error) {
	v := newViper()

	cfg := &Config{
		APIKey:            strings.Trim(v.GetString(keyAPIKey), "\""),
		Shard:             v.GetString(keyShard),
		APIURL:            strings.TrimRight(v.GetString(keyAPIURL), "/"),
		SampleRPM:         v.GetInt(keySampleRPM),
		StoreURL:          strings.Trim(v.GetString(keyStoreURL), "\""),
		StoreDatabase:     v.GetString(keyStoreDB),
		LogLevel:          v.GetString(keyLogLevel),
		LogFile:           v.GetString(keyLogFile),
		MetricsAddr:       v.GetString(keyMetricsAddr),
		DiscordWebhookURL: v.GetString(keyDiscordHook),
		HTTPTimeout:       v.GetDuration(keyHTTPTimeout),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks required values and formats
func (c *Config) Validate() error {
	if c.APIKey == "" {
		return ErrMissingAPIKey
	}
	if c.Shard == "" {
		return errors.New("PUBG_SHARD cannot be empty")
	}
	if _, err := url.ParseRequestURI(c.APIURL); err != nil {
		return fmt.Errorf("invalid PUBG_API_URL: %w", err)
	}
	if c.SampleRPM < 0 {
		return fmt.Errorf("PUBG_SAMPLE_RPM must not be negative, got %d", c.SampleRPM)
	}
	if c.StoreURL == "" {
		return errors.New("STORE_URL cannot be empty")
	}
	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("HTTP_TIMEOUT must be positive, got %s", c.HTTPTimeout)
	}
	return nil
}
