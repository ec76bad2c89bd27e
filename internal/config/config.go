// Package config loads crier's configuration from a YAML or TOML file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/matthewjhunter/crier/internal/fetch"
)

// DefaultPath is used when no config file is given.
const DefaultPath = "./config/config.yaml"

type Config struct {
	Database Database `yaml:"database" toml:"database"`
	Provider Provider `yaml:"provider" toml:"provider"`
	Fetch    Fetch    `yaml:"fetch" toml:"fetch"`
	Memo     Memo     `yaml:"memo" toml:"memo"`
	NATS     NATS     `yaml:"nats" toml:"nats"`
	Ollama   Ollama   `yaml:"ollama" toml:"ollama"`
	Web      Web      `yaml:"web" toml:"web"`
}

type Database struct {
	Driver    string `yaml:"driver" toml:"driver"` // sqlite or mongo
	Path      string `yaml:"path" toml:"path"`
	MongoURI  string `yaml:"mongo_uri,omitempty" toml:"mongo_uri,omitempty"`
	MongoName string `yaml:"mongo_name,omitempty" toml:"mongo_name,omitempty"`
}

// Provider selects and configures the fetch provider. Kind is one of
// function, scraper, feed or command.
type Provider struct {
	Kind     string              `yaml:"kind" toml:"kind"`
	Function FunctionProvider    `yaml:"function,omitempty" toml:"function,omitempty"`
	Scraper  fetch.ScraperConfig `yaml:"scraper,omitempty" toml:"scraper,omitempty"`
	Feed     FeedProvider        `yaml:"feed,omitempty" toml:"feed,omitempty"`
	Command  CommandProvider     `yaml:"command,omitempty" toml:"command,omitempty"`
}

type FunctionProvider struct {
	URL    string `yaml:"url" toml:"url"`
	APIKey string `yaml:"api_key,omitempty" toml:"api_key,omitempty"`
}

type FeedProvider struct {
	URL      string `yaml:"url" toml:"url"`
	Timezone string `yaml:"timezone,omitempty" toml:"timezone,omitempty"`
}

type CommandProvider struct {
	Path string   `yaml:"path" toml:"path"`
	Args []string `yaml:"args,omitempty" toml:"args,omitempty"`
}

type Fetch struct {
	Timeout time.Duration `yaml:"timeout" toml:"timeout"`
}

// Memo sizes the in-memory layer in front of the store. Size 0 disables it.
type Memo struct {
	Size int           `yaml:"size" toml:"size"`
	TTL  time.Duration `yaml:"ttl" toml:"ttl"`
}

// NATS publishing is off when URL is empty.
type NATS struct {
	URL     string `yaml:"url,omitempty" toml:"url,omitempty"`
	Subject string `yaml:"subject" toml:"subject"`
}

type Ollama struct {
	BaseURL string `yaml:"base_url" toml:"base_url"`
	Model   string `yaml:"model" toml:"model"`
	Prompt  string `yaml:"prompt,omitempty" toml:"prompt,omitempty"`
}

type Web struct {
	Addr      string `yaml:"addr" toml:"addr"`
	JWTSecret string `yaml:"jwt_secret,omitempty" toml:"jwt_secret,omitempty"`
	SiteURL   string `yaml:"site_url,omitempty" toml:"site_url,omitempty"`
}

// Default returns a config with sensible defaults
func Default() *Config {
	cfg := &Config{}
	cfg.Database.Driver = "sqlite"
	cfg.Database.Path = "./crier.db"
	cfg.Database.MongoName = "crier"
	cfg.Provider.Kind = "scraper"
	cfg.Provider.Scraper = fetch.DefaultScraperConfig()
	cfg.Provider.Scraper.Delay = 500 * time.Millisecond
	cfg.Fetch.Timeout = 2 * time.Minute
	cfg.Memo.Size = 64
	cfg.Memo.TTL = 10 * time.Minute
	cfg.NATS.Subject = "crier.articles.backfilled"
	cfg.Ollama.BaseURL = "http://localhost:11434"
	cfg.Ollama.Model = "llama3"
	cfg.Web.Addr = ":8080"
	return cfg
}

// Load reads path over the defaults. A missing file yields the defaults.
// Files ending in .toml are decoded as TOML, anything else as YAML.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath
	}

	cfg := Default()
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if isTOML(path) {
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the fields that would otherwise fail late.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite":
		if c.Database.Path == "" {
			return fmt.Errorf("database.path is required for sqlite")
		}
	case "mongo":
		if c.Database.MongoURI == "" {
			return fmt.Errorf("database.mongo_uri is required for mongo")
		}
	default:
		return fmt.Errorf("unknown database.driver %q", c.Database.Driver)
	}

	switch c.Provider.Kind {
	case "function":
		if c.Provider.Function.URL == "" {
			return fmt.Errorf("provider.function.url is required")
		}
	case "feed":
		if c.Provider.Feed.URL == "" {
			return fmt.Errorf("provider.feed.url is required")
		}
		if c.Provider.Feed.Timezone != "" {
			if _, err := time.LoadLocation(c.Provider.Feed.Timezone); err != nil {
				return fmt.Errorf("provider.feed.timezone: %w", err)
			}
		}
	case "command":
		if c.Provider.Command.Path == "" {
			return fmt.Errorf("provider.command.path is required")
		}
	case "scraper":
	default:
		return fmt.Errorf("unknown provider.kind %q", c.Provider.Kind)
	}
	return nil
}

// Write saves cfg to path in the format its extension names, creating the
// directory if needed. An existing file is never overwritten.
func Write(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists: %s", path)
	}

	var data []byte
	if isTOML(path) {
		var sb strings.Builder
		if err := toml.NewEncoder(&sb).Encode(cfg); err != nil {
			return fmt.Errorf("failed to marshal config: %w", err)
		}
		data = []byte(sb.String())
	} else {
		var err error
		data, err = yaml.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("failed to marshal config: %w", err)
		}
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

func isTOML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}
