package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server     ServerConfig     `json:"server"`
	Database   DatabaseConfig   `json:"database"`
	RabbitMQ   RabbitMQConfig   `json:"rabbitmq"`
	Redis      RedisConfig      `json:"redis"`
	JWT        JWTConfig        `json:"jwt"`
	Geocoding  GeocodingConfig  `json:"geocoding"`
	Moderation ModerationConfig `json:"moderation"`
	RateLimit  RateLimitConfig  `json:"rateLimit"`
	Search     SearchConfig     `json:"search"`
}

type ServerConfig struct {
	Port        string   `json:"port"`
	Env         string   `json:"env"`
	CORSOrigins []string `json:"corsOrigins"`
}

type DatabaseConfig struct {
	Host          string `json:"host"`
	Port          string `json:"port"`
	User          string `json:"user"`
	Password      string `json:"password"`
	DBName        string `json:"dbname"`
	SSLMode       string `json:"sslmode"`
	MigrationsDir string `json:"migrationsDir"`
}

// DSN renders the lib/pq connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode)
}

type RabbitMQConfig struct {
	Host     string `json:"host"`
	Port     string `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
}

// Enabled is false when no broker host is configured.
func (r RabbitMQConfig) Enabled() bool {
	return r.Host != ""
}

type RedisConfig struct {
	URL string `json:"url"`
}

type JWTConfig struct {
	Secret string `json:"secret"`
}

type GeocodingConfig struct {
	ReverseURL        string `json:"reverseURL"`
	FallbackURL       string `json:"fallbackURL"`
	ForwardURL        string `json:"forwardURL"`
	ConstituencyURL   string `json:"constituencyURL"`
	TimeoutMs         int    `json:"timeoutMs"`
	ProviderTimeoutMs int    `json:"providerTimeoutMs"`
	UserAgent         string `json:"userAgent"`
}

func (g GeocodingConfig) Timeout() time.Duration {
	return time.Duration(g.TimeoutMs) * time.Millisecond
}

func (g GeocodingConfig) ProviderTimeout() time.Duration {
	return time.Duration(g.ProviderTimeoutMs) * time.Millisecond
}

type ModerationConfig struct {
	Enabled bool `json:"enabled"`
}

const DefaultIssuesPerDay = 20

// RateLimitConfig leaves IssuesPerDay nil when unset so an explicit 0 can
// disable the limit.
type RateLimitConfig struct {
	IssuesPerDay *int `json:"issuesPerDay"`
}

func (r RateLimitConfig) Limit() int {
	if r.IssuesPerDay == nil {
		return DefaultIssuesPerDay
	}
	return *r.IssuesPerDay
}

type SearchConfig struct {
	MeiliURL string `json:"meiliURL"`
	MeiliKey string `json:"meiliKey"`
}

// LoadConfig reads .env (if present), then the JSON file at path, then
// applies environment overrides and defaults.
func LoadConfig(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	var config Config
	file, err := os.Open(path)
	switch {
	case err == nil:
		defer file.Close()
		if err := json.NewDecoder(file).Decode(&config); err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist):
		// env-only deployment
	default:
		return nil, err
	}

	config.applyEnv()
	config.applyDefaults()
	return &config, nil
}

func (c *Config) applyEnv() {
	setString(&c.Server.Port, "PORT")
	setString(&c.Server.Env, "APP_ENV")
	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		c.Server.CORSOrigins = splitList(v)
	}

	setString(&c.Database.Host, "DB_HOST")
	setString(&c.Database.Port, "DB_PORT")
	setString(&c.Database.User, "DB_USER")
	setString(&c.Database.Password, "DB_PASSWORD")
	setString(&c.Database.DBName, "DB_NAME")
	setString(&c.Database.SSLMode, "DB_SSLMODE")
	setString(&c.Database.MigrationsDir, "MIGRATIONS_DIR")

	setString(&c.RabbitMQ.Host, "RABBITMQ_HOST")
	setString(&c.RabbitMQ.Port, "RABBITMQ_PORT")
	setString(&c.RabbitMQ.User, "RABBITMQ_USER")
	setString(&c.RabbitMQ.Password, "RABBITMQ_PASSWORD")

	setString(&c.Redis.URL, "REDIS_URL")
	setString(&c.JWT.Secret, "JWT_SECRET")

	setString(&c.Geocoding.ReverseURL, "GEOCODE_REVERSE_URL")
	setString(&c.Geocoding.FallbackURL, "GEOCODE_FALLBACK_URL")
	setString(&c.Geocoding.ForwardURL, "GEOCODE_FORWARD_URL")
	setString(&c.Geocoding.ConstituencyURL, "CONSTITUENCY_URL")
	setInt(&c.Geocoding.TimeoutMs, "GEOCODE_TIMEOUT_MS")
	setInt(&c.Geocoding.ProviderTimeoutMs, "GEOCODE_PROVIDER_TIMEOUT_MS")
	setString(&c.Geocoding.UserAgent, "GEOCODE_USER_AGENT")

	if v := os.Getenv("MODERATION_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Moderation.Enabled = b
		}
	}
	if v := os.Getenv("ISSUES_PER_DAY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.RateLimit.IssuesPerDay = &n
		}
	}

	setString(&c.Search.MeiliURL, "MEILI_URL")
	setString(&c.Search.MeiliKey, "MEILI_KEY")
}

func (c *Config) applyDefaults() {
	if c.Server.Port == "" {
		c.Server.Port = "8080"
	}
	if c.Server.Env == "" {
		c.Server.Env = "dev"
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = "disable"
	}
	if c.Database.MigrationsDir == "" {
		c.Database.MigrationsDir = "migrations"
	}
	if c.Geocoding.ReverseURL == "" {
		c.Geocoding.ReverseURL = "https://api.bigdatacloud.net/data/reverse-geocode-client"
	}
	if c.Geocoding.FallbackURL == "" {
		c.Geocoding.FallbackURL = "https://nominatim.openstreetmap.org/reverse"
	}
	if c.Geocoding.ForwardURL == "" {
		c.Geocoding.ForwardURL = "https://nominatim.openstreetmap.org/search"
	}
	if c.Geocoding.TimeoutMs <= 0 {
		c.Geocoding.TimeoutMs = 5000
	}
	if c.Geocoding.ProviderTimeoutMs <= 0 {
		c.Geocoding.ProviderTimeoutMs = 3000
	}
	if c.Geocoding.UserAgent == "" {
		c.Geocoding.UserAgent = "issue-service/1.0"
	}
	if c.RateLimit.IssuesPerDay != nil && *c.RateLimit.IssuesPerDay < 0 {
		disabled := 0
		c.RateLimit.IssuesPerDay = &disabled
	}
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
