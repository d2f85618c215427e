// Package config loads the bot configuration: an optional YAML file for
// tunables, environment variables for secrets and deploy-specific values.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Debug  bool         `yaml:"debug"`
	Server ServerConfig `yaml:"server"`
	Mongo  MongoConfig  `yaml:"mongo"`
	Redis  RedisConfig  `yaml:"redis"`
	Search SearchConfig `yaml:"search"`

	// BotToken only ever comes from the environment.
	BotToken string `yaml:"-"`
}

type ServerConfig struct {
	Port int `yaml:"port"`
}

type MongoConfig struct {
	URI      string `yaml:"-"` // MONGODB_URI
	Database string `yaml:"database"`
}

type RedisConfig struct {
	Addr     string `yaml:"-"` // REDIS_ADDR; empty switches to the in-memory cache
	Password string `yaml:"-"` // REDIS_PASSWORD
	DB       int    `yaml:"db"`
}

type SearchConfig struct {
	PageSize        int `yaml:"page_size"`
	MaxResults      int `yaml:"max_results"`
	MinQueryLength  int `yaml:"min_query_length"`
	CacheTTLSeconds int `yaml:"cache_ttl_seconds"`
}

// Load reads the YAML file when path is non-empty, overlays environment
// variables, and applies defaults. A missing file with an explicit path is
// an error; path "" means env-only.
func Load(path string) (*Config, error) {
	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}
	cfg.applyEnv()
	ApplyDefaults(&cfg)
	return &cfg, nil
}

func (c *Config) applyEnv() {
	c.BotToken = os.Getenv("BOT_TOKEN")
	c.Mongo.URI = os.Getenv("MONGODB_URI")
	c.Redis.Addr = os.Getenv("REDIS_ADDR")
	c.Redis.Password = os.Getenv("REDIS_PASSWORD")
	if port, err := strconv.Atoi(os.Getenv("PORT")); err == nil && port > 0 {
		c.Server.Port = port
	}
	if os.Getenv("DEBUG") == "1" {
		c.Debug = true
	}
}

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Mongo.Database == "" {
		cfg.Mongo.Database = "moviedex"
	}
	if cfg.Search.PageSize == 0 {
		cfg.Search.PageSize = 10
	}
	if cfg.Search.MaxResults == 0 {
		cfg.Search.MaxResults = 200
	}
	if cfg.Search.MinQueryLength == 0 {
		cfg.Search.MinQueryLength = 3
	}
	if cfg.Search.CacheTTLSeconds == 0 {
		cfg.Search.CacheTTLSeconds = 3600
	}
}
