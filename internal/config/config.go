// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type ServerConfig struct {
	Port        int    `yaml:"port"`
	AdminAPIKey string `yaml:"admin_api_key"`
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type DatabaseConfig struct {
	URL string `yaml:"url"`
}

type RedisConfig struct {
	URL      string        `yaml:"url"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

type AuthConfig struct {
	JWTSecret string   `yaml:"jwt_secret"`
	Approved  []string `yaml:"approved"` // static allow-list used without a database
}

type ConverterConfig struct {
	Bin            string `yaml:"bin"` // path to the converter binary
	URL            string `yaml:"url"` // remote converter endpoint, used when Bin is empty
	Workers        int    `yaml:"workers"`
	QueueSize      int    `yaml:"queue_size"`
	UploadDir      string `yaml:"upload_dir"`
	OutputDir      string `yaml:"output_dir"`
	AllowedExt     string `yaml:"allowed_ext"`
	MaxUploadBytes int64  `yaml:"max_upload_bytes"`
}

type RateLimitConfig struct {
	Limit  int           `yaml:"limit"`
	Window time.Duration `yaml:"window"`
}

type BlacklistConfig struct {
	File string `yaml:"file"`
}

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Log       LogConfig       `yaml:"log"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Auth      AuthConfig      `yaml:"auth"`
	Converter ConverterConfig `yaml:"converter"`
	RateLimit RateLimitConfig `yaml:"ratelimit"`
	Blacklist BlacklistConfig `yaml:"blacklist"`

	Runtime RuntimeConfig `yaml:"-"`
}

func LoadConfig(path string, dev bool) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.Runtime.Dev = dev
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port <= 0 {
		c.Server.Port = 8080
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
	if c.Converter.Workers <= 0 {
		c.Converter.Workers = 4
	}
	if c.Converter.QueueSize <= 0 {
		c.Converter.QueueSize = c.Converter.Workers * 16
	}
	if c.Converter.UploadDir == "" {
		c.Converter.UploadDir = "uploads"
	}
	if c.Converter.OutputDir == "" {
		c.Converter.OutputDir = "outputs"
	}
	if c.Converter.AllowedExt == "" {
		c.Converter.AllowedExt = ".jpk"
	}
	if c.Converter.MaxUploadBytes <= 0 {
		c.Converter.MaxUploadBytes = 100 << 20
	}
	if c.RateLimit.Limit <= 0 {
		c.RateLimit.Limit = 5
	}
	if c.RateLimit.Window <= 0 {
		c.RateLimit.Window = time.Minute
	}
	if c.Redis.TTL <= 0 {
		c.Redis.TTL = 24 * time.Hour
	}
}

func (c *Config) validate() error {
	if c.Auth.JWTSecret == "" {
		return errors.New("config: auth.jwt_secret is required")
	}
	if c.Converter.Bin == "" && c.Converter.URL == "" {
		return errors.New("config: one of converter.bin or converter.url is required")
	}
	if c.Database.URL == "" && len(c.Auth.Approved) == 0 {
		return errors.New("config: auth.approved is required when database.url is unset")
	}
	return nil
}
