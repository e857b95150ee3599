package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	API        APIConfig        `mapstructure:"api"`
	Weather    WeatherConfig    `mapstructure:"weather"`
	Gemini     GeminiConfig     `mapstructure:"gemini"`
	Cache      CacheConfig      `mapstructure:"cache"`
	MQTT       MQTTConfig       `mapstructure:"mqtt"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Snapshot   SnapshotConfig   `mapstructure:"snapshot"`
	Background BackgroundConfig `mapstructure:"background"`
}

type APIConfig struct {
	Port        int       `mapstructure:"port"`
	CORSOrigins []string  `mapstructure:"cors_origins"`
	RateLimits  RateLimit `mapstructure:"rate_limits"`
}

// RateLimit values are requests per minute per client IP. Zero disables the
// limit for that route group.
type RateLimit struct {
	Current   int `mapstructure:"current"`
	Forecast  int `mapstructure:"forecast"`
	OneCall   int `mapstructure:"onecall"`
	Air       int `mapstructure:"air_quality"`
	Geocode   int `mapstructure:"geocode"`
	Summary   int `mapstructure:"summary"`
	Chat      int `mapstructure:"chat"`
	Briefing  int `mapstructure:"briefing"`
	Astronomy int `mapstructure:"astronomy"`
	Wallpaper int `mapstructure:"wallpaper"`
}

type WeatherConfig struct {
	Provider string        `mapstructure:"provider"`
	APIKey   string        `mapstructure:"api_key"`
	DemoMode bool          `mapstructure:"demo_mode"`
	Units    string        `mapstructure:"units"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

type GeminiConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

type CacheConfig struct {
	Backend       string `mapstructure:"backend"`
	MaxEntries    int    `mapstructure:"max_entries"`
	RedisAddr     string `mapstructure:"redis_addr"`
	RedisPassword string `mapstructure:"redis_password"`
	RedisDB       int    `mapstructure:"redis_db"`
	RedisPrefix   string `mapstructure:"redis_prefix"`
}

type MQTTConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	Broker      string `mapstructure:"broker"`
	TopicPrefix string `mapstructure:"topic_prefix"`
	ClientID    string `mapstructure:"client_id"`
	Username    string `mapstructure:"username"`
	Password    string `mapstructure:"password"`
}

type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

type SnapshotConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	Interval  time.Duration `mapstructure:"interval"`
	Retention time.Duration `mapstructure:"retention"`
	Latitude  float64       `mapstructure:"latitude"`
	Longitude float64       `mapstructure:"longitude"`
}

type BackgroundConfig struct {
	UnsplashAccessKey string `mapstructure:"unsplash_access_key"`
	BingMarket        string `mapstructure:"bing_market"`
}

var (
	ErrInvalidPort     = errors.New("api.port must be between 1 and 65535")
	ErrInvalidBackend  = errors.New("cache.backend must be memory or redis")
	ErrInvalidInterval = errors.New("snapshot.interval must be positive")
	ErrInvalidLocation = errors.New("snapshot coordinates out of range")
)

func Load(configPath string) (*Config, error) {
	return load(viper.New(), configPath)
}

func load(v *viper.Viper, configPath string) (*Config, error) {
	// A missing .env file is fine.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/ambient-clock")
	}

	// Set defaults
	v.SetDefault("api.port", 5000)
	v.SetDefault("api.cors_origins", []string{"http://localhost:3000"})
	v.SetDefault("api.rate_limits.current", 30)
	v.SetDefault("api.rate_limits.forecast", 20)
	v.SetDefault("api.rate_limits.onecall", 15)
	v.SetDefault("api.rate_limits.air_quality", 20)
	v.SetDefault("api.rate_limits.geocode", 30)
	v.SetDefault("api.rate_limits.summary", 10)
	v.SetDefault("api.rate_limits.chat", 20)
	v.SetDefault("api.rate_limits.briefing", 5)
	v.SetDefault("api.rate_limits.astronomy", 30)
	v.SetDefault("api.rate_limits.wallpaper", 30)
	v.SetDefault("weather.provider", "openweather")
	v.SetDefault("weather.api_key", "")
	v.SetDefault("weather.demo_mode", true)
	v.SetDefault("weather.units", "metric")
	v.SetDefault("weather.timeout", "10s")
	v.SetDefault("gemini.api_key", "")
	v.SetDefault("gemini.model", "gemini-2.5-flash")
	v.SetDefault("cache.backend", "memory")
	v.SetDefault("cache.max_entries", 100)
	v.SetDefault("cache.redis_addr", "localhost:6379")
	v.SetDefault("cache.redis_db", 0)
	v.SetDefault("cache.redis_prefix", "ambient-clock")
	v.SetDefault("mqtt.enabled", false)
	v.SetDefault("mqtt.broker", "tcp://localhost:1883")
	v.SetDefault("mqtt.topic_prefix", "ambient-clock")
	v.SetDefault("mqtt.client_id", "ambient-clock")
	v.SetDefault("database.path", "./ambient-clock.db")
	v.SetDefault("snapshot.enabled", false)
	v.SetDefault("snapshot.interval", "15m")
	v.SetDefault("snapshot.retention", "720h")
	v.SetDefault("snapshot.latitude", 0)
	v.SetDefault("snapshot.longitude", 0)
	v.SetDefault("background.unsplash_access_key", "")
	v.SetDefault("background.bing_market", "en-US")

	// Deployment environment variable names.
	bindings := map[string]string{
		"weather.api_key":                "OPENWEATHER_API_KEY",
		"weather.demo_mode":              "DEMO_MODE",
		"gemini.api_key":                 "GEMINI_API_KEY",
		"api.port":                       "PORT",
		"api.cors_origins":               "CORS_ORIGINS",
		"background.unsplash_access_key": "UNSPLASH_ACCESS_KEY",
		"cache.redis_addr":               "REDIS_ADDR",
	}
	for key, env := range bindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("bind %s: %w", env, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	// CORS_ORIGINS arrives as one comma separated string.
	cfg.API.CORSOrigins = splitList(strings.Join(cfg.API.CORSOrigins, ","))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.API.Port < 1 || c.API.Port > 65535 {
		return ErrInvalidPort
	}
	switch strings.ToLower(c.Cache.Backend) {
	case "memory", "redis":
	default:
		return fmt.Errorf("%w: %q", ErrInvalidBackend, c.Cache.Backend)
	}
	if c.Snapshot.Enabled {
		if c.Snapshot.Interval <= 0 {
			return ErrInvalidInterval
		}
		if c.Snapshot.Latitude < -90 || c.Snapshot.Latitude > 90 ||
			c.Snapshot.Longitude < -180 || c.Snapshot.Longitude > 180 {
			return ErrInvalidLocation
		}
	}
	return nil
}

// HasWeatherKey reports whether real OpenWeather calls can be made.
func (c *Config) HasWeatherKey() bool {
	return strings.TrimSpace(c.Weather.APIKey) != ""
}

func (c *Config) HasGeminiKey() bool {
	return strings.TrimSpace(c.Gemini.APIKey) != ""
}

func splitList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
