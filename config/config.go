package config

import (
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
	"os"
	"time"
)

const (
	TransportInproc = "inproc"
	TransportNATS   = "nats"
)

type Config struct {
	Transport    TransportConfig    `yaml:"transport"`
	Feed         FeedConfig         `yaml:"feed"`
	Subscription SubscriptionConfig `yaml:"subscription"`
	Server       ServerConfig       `yaml:"server"`
	Storage      StorageConfig      `yaml:"storage"`
	Demo         DemoConfig         `yaml:"demo"`
}

type TransportConfig struct {
	Kind   string `yaml:"kind"`
	URL    string `yaml:"url"`
	Prefix string `yaml:"prefix"`
	Name   string `yaml:"name"`
}

type FeedConfig struct {
	Interval    time.Duration   `yaml:"interval"`
	SeriesID    int             `yaml:"series_id"`
	HistorySize int             `yaml:"history_size"`
	Derived     []DerivedConfig `yaml:"derived"`
}

type DerivedConfig struct {
	SeriesID int    `yaml:"series_id"`
	Expr     string `yaml:"expr"`
}

// SubscriptionConfig is the selection made at startup. Both fields empty
// means nothing is plotted until a client selects a topic.
type SubscriptionConfig struct {
	Topic string `yaml:"topic"`
	Path  string `yaml:"path"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// StorageConfig enables the sample recorder when Path is set.
type StorageConfig struct {
	Path       string `yaml:"path"`
	BufferSize int    `yaml:"buffer_size"`
}

type DemoConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Interval time.Duration `yaml:"interval"`
}

// Load parses path and fills defaults. It does not validate, so that flag
// overrides can still be applied; call Complete once they are.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read config")
	}

	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, errors.Wrap(err, "parse config")
	}

	cfg.applyDefaults()

	return &cfg, nil
}

// Default is the configuration used when no file is given.
func Default() *Config {
	var cfg Config
	cfg.applyDefaults()
	return &cfg
}

func (c *Config) applyDefaults() {
	if c.Transport.Kind == "" {
		c.Transport.Kind = TransportInproc
	}
	if c.Transport.Kind == TransportNATS && c.Transport.URL == "" {
		c.Transport.URL = "nats://127.0.0.1:4222"
	}
	if c.Transport.Prefix == "" {
		c.Transport.Prefix = "protoplot"
	}
	if c.Transport.Name == "" {
		c.Transport.Name = "protoplot"
	}
	if c.Feed.Interval == 0 {
		c.Feed.Interval = time.Second
	}
	if c.Feed.SeriesID == 0 {
		c.Feed.SeriesID = 1
	}
	if c.Feed.HistorySize == 0 {
		c.Feed.HistorySize = 600
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8000"
	}
	if c.Storage.BufferSize == 0 {
		c.Storage.BufferSize = 100
	}
	if c.Demo.Interval == 0 {
		c.Demo.Interval = 100 * time.Millisecond
	}
}

func (c *Config) Validate() error {
	return c.validate()
}

// Complete fills defaults for fields left empty after overrides and validates.
func (c *Config) Complete() error {
	c.applyDefaults()
	return c.validate()
}

func (c *Config) validate() error {
	switch c.Transport.Kind {
	case TransportInproc:
	case TransportNATS:
		if c.Transport.URL == "" {
			return errors.New("transport.url is required for nats")
		}
	default:
		return errors.Errorf("transport.kind %q is not one of inproc, nats", c.Transport.Kind)
	}
	if c.Feed.Interval < 0 {
		return errors.New("feed.interval must be positive")
	}
	if c.Feed.HistorySize < 0 {
		return errors.New("feed.history_size must not be negative")
	}
	ids := map[int]bool{c.Feed.SeriesID: true}
	for i, d := range c.Feed.Derived {
		if d.Expr == "" {
			return errors.Errorf("feed.derived[%d].expr is required", i)
		}
		if ids[d.SeriesID] {
			return errors.Errorf("feed.derived[%d].series_id %d is already in use", i, d.SeriesID)
		}
		ids[d.SeriesID] = true
	}
	if c.Subscription.Path != "" && c.Subscription.Topic == "" {
		return errors.New("subscription.topic is required when subscription.path is set")
	}
	if c.Server.Addr == "" {
		return errors.New("server.addr is required")
	}
	if c.Transport.Kind == TransportInproc && !c.Demo.Enabled && c.Subscription.Topic != "" {
		// nothing publishes on an in-process bus without the demo
		return errors.New("subscription.topic on the inproc transport requires demo.enabled")
	}
	return nil
}
