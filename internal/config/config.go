package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	libconfig "drivepower/console/libs/config"
)

// Session storage backends.
const (
	BackendFile   = "file"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

// Config defines admin console configuration.
type Config struct {
	API struct {
		BaseURL        string `yaml:"baseUrl" env:"CSMS_API_URL"`
		TimeoutSeconds int    `yaml:"timeoutSeconds" env:"CSMS_API_TIMEOUT"`
	} `yaml:"api"`
	Session struct {
		Backend string `yaml:"backend" env:"CSMS_SESSION_BACKEND"`
		File    string `yaml:"file" env:"CSMS_SESSION_FILE"`
		Redis   struct {
			Addr     string `yaml:"addr" env:"CSMS_SESSION_REDIS_ADDR"`
			Password string `yaml:"password" env:"CSMS_SESSION_REDIS_PASSWORD"`
			DB       int    `yaml:"db" env:"CSMS_SESSION_REDIS_DB"`
			Prefix   string `yaml:"prefix" env:"CSMS_SESSION_REDIS_PREFIX"`
		} `yaml:"redis"`
	} `yaml:"session"`
	Console struct {
		Host         string `yaml:"host" env:"CSMS_CONSOLE_HOST"`
		Port         string `yaml:"port" env:"CSMS_CONSOLE_PORT"`
		SecureCookie bool   `yaml:"secureCookie" env:"CSMS_CONSOLE_SECURE_COOKIE"`
	} `yaml:"console"`
	Transactions struct {
		Limit int `yaml:"limit" env:"CSMS_TRANSACTIONS_LIMIT"`
	} `yaml:"transactions"`
	Auth struct {
		RefreshLeewaySeconds int `yaml:"refreshLeewaySeconds" env:"CSMS_REFRESH_LEEWAY"`
	} `yaml:"auth"`
	Log struct {
		Level  string `yaml:"level" env:"LOG_LEVEL"`
		Format string `yaml:"format" env:"LOG_FORMAT"`
	} `yaml:"log"`
}

// Default returns a configuration with every default filled in.
func Default() *Config {
	cfg := &Config{}
	cfg.API.BaseURL = "http://localhost:8080"
	cfg.API.TimeoutSeconds = 10
	cfg.Session.Backend = BackendFile
	cfg.Session.File = defaultSessionFile()
	cfg.Session.Redis.Prefix = "console:session"
	cfg.Console.Host = "127.0.0.1"
	cfg.Console.Port = "3000"
	cfg.Transactions.Limit = 50
	cfg.Auth.RefreshLeewaySeconds = 60
	cfg.Log.Level = "info"
	cfg.Log.Format = "console"
	return cfg
}

// Load reads configuration from the optional YAML file at path (falling back
// to CONFIG_FILE) and the environment.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		path = os.Getenv(libconfig.DefaultPathEnv)
	}
	if err := libconfig.LoadConfigFile(path, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks required values and normalises the rest.
func (c *Config) Validate() error {
	c.API.BaseURL = strings.TrimRight(strings.TrimSpace(c.API.BaseURL), "/")
	if c.API.BaseURL == "" {
		return errors.New("config: api base url is required")
	}
	u, err := url.Parse(c.API.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("config: invalid api base url %q", c.API.BaseURL)
	}

	c.Session.Backend = strings.ToLower(strings.TrimSpace(c.Session.Backend))
	switch c.Session.Backend {
	case "":
		c.Session.Backend = BackendFile
		fallthrough
	case BackendFile:
		if strings.TrimSpace(c.Session.File) == "" {
			return errors.New("config: session file is required for file backend")
		}
	case BackendRedis:
		if strings.TrimSpace(c.Session.Redis.Addr) == "" {
			return errors.New("config: redis addr is required for redis backend")
		}
	case BackendMemory:
	default:
		return fmt.Errorf("config: unknown session backend %q", c.Session.Backend)
	}

	if c.Transactions.Limit <= 0 {
		c.Transactions.Limit = 50
	}
	if c.Auth.RefreshLeewaySeconds < 0 {
		c.Auth.RefreshLeewaySeconds = 0
	}
	return nil
}

// HTTPAddress returns host:port. A port value that already names a host
// wins; an empty host listens on every interface.
func (c *Config) HTTPAddress() string {
	port := strings.TrimSpace(c.Console.Port)
	if port == "" {
		port = "3000"
	}
	if strings.Contains(port, ":") {
		return port
	}
	return net.JoinHostPort(strings.TrimSpace(c.Console.Host), port)
}

// HTTPTimeout returns http client timeout.
func (c *Config) HTTPTimeout() time.Duration {
	if c.API.TimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.API.TimeoutSeconds) * time.Second
}

// RefreshLeeway is how close to expiry an access token gets refreshed.
func (c *Config) RefreshLeeway() time.Duration {
	return time.Duration(c.Auth.RefreshLeewaySeconds) * time.Second
}

func defaultSessionFile() string {
	dir, err := os.UserConfigDir()
	if err != nil || dir == "" {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "drivepower", "console-session.json")
}
