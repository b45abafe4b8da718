package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// EnvConfigPath names the variable holding the config file path.
const EnvConfigPath = "JALSAATHI_CONFIG"

// Config represents runtime configuration for the service.
type Config struct {
	BasicConfig BasicConfig               `json:"basic_config"`
	Databases   map[string]DatabaseConfig `json:"databases"`
	Redis       RedisConfig               `json:"redis"`
	Providers   map[string]ProviderConfig `json:"providers"`
	Advisor     AdvisorConfig             `json:"advisor"`
	Weather     WeatherConfig             `json:"weather"`
}

type BasicConfig struct {
	ServerAddress string `json:"server_address"`
	// Database selects the entry of Databases to open.
	Database                  string `json:"database"`
	FileBaseDir               string `json:"file_base_dir"`
	MaxUploadBytes            int64  `json:"max_upload_bytes"`
	TokenTTLHours             int    `json:"token_ttl_hours"`
	CookieSecure              bool   `json:"cookie_secure"`
	WorkerIdleTimeoutSeconds  int    `json:"worker_idle_timeout_seconds"`
	ReplyDelayMillis          int    `json:"reply_delay_ms"`
	QuickReplyDelayMillis     int    `json:"quick_reply_delay_ms"`
	LocationDelayMillis       int    `json:"location_delay_ms"`
	GeolocationTimeoutSeconds int    `json:"geolocation_timeout_seconds"`
	DefaultLocale             string `json:"default_locale"`
	LogLevel                  string `json:"log_level"`
	LogFormat                 string `json:"log_format"`
}

type DatabaseConfig struct {
	DSN      string `json:"dsn"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Username string `json:"username"`
	Password string `json:"password"`
	DBName   string `json:"dbname"`
	Params   string `json:"params"`
}

type RedisConfig struct {
	Enabled         bool   `json:"enabled"`
	Host            string `json:"host"`
	Port            int    `json:"port"`
	Username        string `json:"username"`
	Password        string `json:"password"`
	DB              int    `json:"db"`
	CacheTTLSeconds int    `json:"cache_ttl_seconds"`
}

type ProviderConfig struct {
	BaseURL string `json:"base_url"`
	Model   string `json:"model"`
	APIKey  string `json:"api_key"`
}

type AdvisorConfig struct {
	// Provider is a key of Providers; empty disables the advisor.
	Provider             string `json:"provider"`
	EnableSearch         bool   `json:"enable_search"`
	GoogleAPIKey         string `json:"google_api_key"`
	GoogleSearchEngineID string `json:"google_search_engine_id"`
	RequestsPerMinute    int    `json:"requests_per_minute"`
}

type WeatherConfig struct {
	APIKey         string `json:"api_key"`
	BaseURL        string `json:"base_url"`
	TimeoutSeconds int    `json:"timeout_seconds"`
}

// Load reads configuration from the provided path (defaults to config.json).
// A .env file next to the working directory is loaded first so secrets can be
// supplied through the environment.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	if path == "" {
		path = os.Getenv(EnvConfigPath)
	}
	if path == "" {
		path = "config.json"
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve config path: %w", err)
	}

	file, err := os.Open(absPath)
	if err != nil {
		return nil, fmt.Errorf("open config %s: %w", absPath, err)
	}
	defer file.Close()

	var cfg Config
	if err := json.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	applyEnv(&cfg)
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	baseDir := filepath.Dir(absPath)
	if !filepath.IsAbs(cfg.BasicConfig.FileBaseDir) {
		cfg.BasicConfig.FileBaseDir = filepath.Join(baseDir, cfg.BasicConfig.FileBaseDir)
	}
	for name, db := range cfg.Databases {
		if isSQLite(name) && db.DSN != "" && !strings.HasPrefix(db.DSN, "file:") && !filepath.IsAbs(db.DSN) {
			db.DSN = filepath.Join(baseDir, db.DSN)
			cfg.Databases[name] = db
		}
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	b := &c.BasicConfig
	if b.ServerAddress == "" {
		b.ServerAddress = ":8080"
	}
	if b.Database == "" {
		b.Database = "sqlite3"
	}
	if b.FileBaseDir == "" {
		b.FileBaseDir = "uploads"
	}
	if b.MaxUploadBytes <= 0 {
		b.MaxUploadBytes = 5 << 20
	}
	if b.TokenTTLHours <= 0 {
		b.TokenTTLHours = 24 * 7
	}
	if b.WorkerIdleTimeoutSeconds <= 0 {
		b.WorkerIdleTimeoutSeconds = 600
	}
	if b.ReplyDelayMillis <= 0 {
		b.ReplyDelayMillis = 1200
	}
	if b.QuickReplyDelayMillis <= 0 {
		b.QuickReplyDelayMillis = 800
	}
	if b.LocationDelayMillis <= 0 {
		b.LocationDelayMillis = 1000
	}
	if b.GeolocationTimeoutSeconds <= 0 {
		b.GeolocationTimeoutSeconds = 10
	}
	if b.DefaultLocale == "" {
		b.DefaultLocale = "en"
	}
	if b.LogLevel == "" {
		b.LogLevel = "info"
	}
	if c.Redis.CacheTTLSeconds <= 0 {
		c.Redis.CacheTTLSeconds = 3600
	}
	if c.Advisor.RequestsPerMinute <= 0 {
		c.Advisor.RequestsPerMinute = 5
	}
	if c.Weather.BaseURL == "" {
		c.Weather.BaseURL = "https://api.openweathermap.org/data/2.5"
	}
	if c.Weather.TimeoutSeconds <= 0 {
		c.Weather.TimeoutSeconds = 10
	}
}

// Validate checks the settings Load cannot default.
func (c *Config) Validate() error {
	db, ok := c.Databases[c.BasicConfig.Database]
	if !ok {
		return fmt.Errorf("database %q is not configured", c.BasicConfig.Database)
	}
	if isSQLite(c.BasicConfig.Database) && db.DSN == "" {
		return errors.New("sqlite dsn must be configured")
	}
	if c.Advisor.Provider != "" {
		if _, ok := c.Providers[c.Advisor.Provider]; !ok {
			return fmt.Errorf("advisor provider %s not configured", c.Advisor.Provider)
		}
	}
	return nil
}

// applyEnv lets secrets live outside the JSON file.
func applyEnv(c *Config) {
	if v := os.Getenv("JALSAATHI_SERVER_ADDRESS"); v != "" {
		c.BasicConfig.ServerAddress = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		c.Redis.Password = v
	}
	if v := os.Getenv("OPENWEATHER_API_KEY"); v != "" {
		c.Weather.APIKey = v
	}
	if v := os.Getenv("GOOGLE_API_KEY"); v != "" {
		c.Advisor.GoogleAPIKey = v
	}
	if v := os.Getenv("GOOGLE_SEARCH_ENGINE_ID"); v != "" {
		c.Advisor.GoogleSearchEngineID = v
	}
	if v := os.Getenv("JALSAATHI_WORKER_IDLE_TIMEOUT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.BasicConfig.WorkerIdleTimeoutSeconds = n
		}
	}
	for name, p := range c.Providers {
		if v := os.Getenv(strings.ToUpper(name) + "_API_KEY"); v != "" {
			p.APIKey = v
			c.Providers[name] = p
		}
	}
}

func isSQLite(name string) bool {
	switch strings.ToLower(name) {
	case "sqlite", "sqlite3":
		return true
	}
	return false
}

func (b BasicConfig) TokenTTL() time.Duration {
	return time.Duration(b.TokenTTLHours) * time.Hour
}

func (b BasicConfig) WorkerIdleTimeout() time.Duration {
	return time.Duration(b.WorkerIdleTimeoutSeconds) * time.Second
}

func (b BasicConfig) GeolocationTimeout() time.Duration {
	return time.Duration(b.GeolocationTimeoutSeconds) * time.Second
}

func (b BasicConfig) ReplyDelay() time.Duration {
	return time.Duration(b.ReplyDelayMillis) * time.Millisecond
}

func (b BasicConfig) QuickReplyDelay() time.Duration {
	return time.Duration(b.QuickReplyDelayMillis) * time.Millisecond
}

func (b BasicConfig) LocationDelay() time.Duration {
	return time.Duration(b.LocationDelayMillis) * time.Millisecond
}

func (r RedisConfig) CacheTTL() time.Duration {
	return time.Duration(r.CacheTTLSeconds) * time.Second
}

func (w WeatherConfig) Timeout() time.Duration {
	return time.Duration(w.TimeoutSeconds) * time.Second
}
