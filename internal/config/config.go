package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"time"

	"github.com/goccy/go-yaml"
)

// Config holds the application configuration
type Config struct {
	App      AppConfig      `yaml:"app"`
	Server   ServerConfig   `yaml:"server"`
	Auth     AuthConfig     `yaml:"auth"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// AppConfig holds app-specific configuration
type AppConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
}

// ServerConfig holds server-specific configuration
type ServerConfig struct {
	Host           string          `yaml:"host"`
	Port           int             `yaml:"port"`
	Domain         string          `yaml:"domain"`
	AllowedOrigins []string        `yaml:"allowed_origins"`
	RateLimit      RateLimitConfig `yaml:"rate_limit"`
}

// RateLimitConfig holds request rate limiting configuration
type RateLimitConfig struct {
	Max        int `yaml:"max"`
	Expiration int `yaml:"expiration"` // seconds
}

// AuthConfig holds auth-specific configuration
type AuthConfig struct {
	KeysPath          string `yaml:"keys_path"`
	ActiveKID         string `yaml:"active_kid"`
	TokenTTLMinutes   int    `yaml:"token_ttl_minutes"`
	SessionTTLSeconds int    `yaml:"session_ttl_seconds"`
	MaxSessions       int    `yaml:"max_sessions_per_user"`
	MaxAttempts       int    `yaml:"max_attempts"`
	BlockWindowMin    int    `yaml:"block_window_minutes"`
	BotName           string `yaml:"bot_name"`
}

// DatabaseConfig holds database-specific configuration
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`
}

// RedisConfig holds redis-specific configuration
type RedisConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// LoggingConfig holds logging-specific configuration
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}

// Load reads configuration from a YAML file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyDefaults()

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Auth.TokenTTLMinutes <= 0 {
		c.Auth.TokenTTLMinutes = 15
	}
	if c.Auth.SessionTTLSeconds <= 0 {
		c.Auth.SessionTTLSeconds = 60 * 60 * 24
	}
	if c.Auth.MaxSessions <= 0 {
		c.Auth.MaxSessions = 5
	}
	if c.Auth.MaxAttempts <= 0 {
		c.Auth.MaxAttempts = 5
	}
	if c.Auth.BlockWindowMin <= 0 {
		c.Auth.BlockWindowMin = 15
	}
	if c.Server.RateLimit.Max <= 0 {
		c.Server.RateLimit.Max = 100
	}
	if c.Server.RateLimit.Expiration <= 0 {
		c.Server.RateLimit.Expiration = 60
	}
}

// TokenTTL returns the access token lifetime
func (a *AuthConfig) TokenTTL() time.Duration {
	return time.Duration(a.TokenTTLMinutes) * time.Minute
}

// SessionTTL returns the session lifetime
func (a *AuthConfig) SessionTTL() time.Duration {
	return time.Duration(a.SessionTTLSeconds) * time.Second
}

// BlockWindow returns the brute-force attempt window
func (a *AuthConfig) BlockWindow() time.Duration {
	return time.Duration(a.BlockWindowMin) * time.Minute
}

// Address returns the server address in the format "host:port"
func (s *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// Address returns the redis address in the format "host:port"
func (r *RedisConfig) Address() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// quoteDSNValue quotes a DSN value if it contains spaces or special characters.
// Single quotes inside the value are escaped by doubling them.
func quoteDSNValue(value string) string {
	needsQuoting := false
	for _, r := range value {
		if r == ' ' || r == '\'' || r == '\\' || r == '=' {
			needsQuoting = true
			break
		}
		if !((r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') ||
			r == '.' || r == '-' || r == '_' || r == '/' || r == '@' || r == ':') {
			needsQuoting = true
			break
		}
	}

	if !needsQuoting {
		return value
	}

	escaped := ""
	for _, r := range value {
		if r == '\'' {
			escaped += "''"
		} else {
			escaped += string(r)
		}
	}

	return "'" + escaped + "'"
}

// DSN returns the database connection string
func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		quoteDSNValue(d.Host),
		d.Port,
		quoteDSNValue(d.User),
		quoteDSNValue(d.Password),
		quoteDSNValue(d.DBName),
		quoteDSNValue(d.SSLMode),
	)
}

// URL returns the database connection URL in postgres:// format for golang-migrate
func (d *DatabaseConfig) URL() string {
	userInfo := url.UserPassword(d.User, d.Password)
	host := net.JoinHostPort(d.Host, fmt.Sprintf("%d", d.Port))

	u := &url.URL{
		Scheme:   "postgres",
		User:     userInfo,
		Host:     host,
		Path:     "/" + d.DBName,
		RawQuery: fmt.Sprintf("sslmode=%s&search_path=public", url.QueryEscape(d.SSLMode)),
	}

	return u.String()
}
