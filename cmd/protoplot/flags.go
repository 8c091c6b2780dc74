package main

import (
	"flag"
	"fmt"
	"github.com/minor-industries/protoplot/config"
	"os"
	"strconv"
)

// CLIConfig holds command-line configuration. Non-empty values override the
// config file.
type CLIConfig struct {
	ConfigPath string
	LogLevel   string
	LogFormat  string
	Addr       string
	Transport  string
	NATSURL    string
	Topic      string
	Path       string
	Demo       bool
	Validate   bool
}

func parseFlags() *CLIConfig {
	cfg := &CLIConfig{}

	flag.StringVar(&cfg.ConfigPath, "config",
		getEnv("PROTOPLOT_CONFIG", ""),
		"Path to YAML configuration file (env: PROTOPLOT_CONFIG)")

	flag.StringVar(&cfg.LogLevel, "log-level",
		getEnv("PROTOPLOT_LOG_LEVEL", "info"),
		"Log level: debug, info, warn, error (env: PROTOPLOT_LOG_LEVEL)")

	flag.StringVar(&cfg.LogFormat, "log-format",
		getEnv("PROTOPLOT_LOG_FORMAT", "text"),
		"Log format: json, text (env: PROTOPLOT_LOG_FORMAT)")

	flag.StringVar(&cfg.Addr, "addr",
		getEnv("PROTOPLOT_ADDR", ""),
		"HTTP listen address (env: PROTOPLOT_ADDR)")

	flag.StringVar(&cfg.Transport, "transport",
		getEnv("PROTOPLOT_TRANSPORT", ""),
		"Transport: inproc, nats (env: PROTOPLOT_TRANSPORT)")

	flag.StringVar(&cfg.NATSURL, "nats-url",
		getEnv("PROTOPLOT_NATS_URL", ""),
		"NATS server URL (env: PROTOPLOT_NATS_URL)")

	flag.StringVar(&cfg.Topic, "topic",
		getEnv("PROTOPLOT_TOPIC", ""),
		"Topic to plot at startup (env: PROTOPLOT_TOPIC)")

	flag.StringVar(&cfg.Path, "path",
		getEnv("PROTOPLOT_PATH", ""),
		"Field path to plot, segments joined by '-' (env: PROTOPLOT_PATH)")

	flag.BoolVar(&cfg.Demo, "demo",
		getEnvBool("PROTOPLOT_DEMO", false),
		"Publish demo robot telemetry (env: PROTOPLOT_DEMO)")

	flag.BoolVar(&cfg.Validate, "validate", false, "Validate configuration and exit")

	flag.Parse()

	return cfg
}

func validateFlags(cfg *CLIConfig) error {
	validLevels := []string{"debug", "info", "warn", "error"}
	if !contains(validLevels, cfg.LogLevel) {
		return fmt.Errorf("invalid log level: %s", cfg.LogLevel)
	}

	validFormats := []string{"json", "text"}
	if !contains(validFormats, cfg.LogFormat) {
		return fmt.Errorf("invalid log format: %s", cfg.LogFormat)
	}

	if cfg.ConfigPath != "" {
		if _, err := os.Stat(cfg.ConfigPath); err != nil {
			return fmt.Errorf("config file not found: %s", cfg.ConfigPath)
		}
	}

	return nil
}

// apply overrides the loaded configuration with flags that were set.
func (cli *CLIConfig) apply(cfg *config.Config) {
	if cli.Addr != "" {
		cfg.Server.Addr = cli.Addr
	}
	if cli.Transport != "" {
		cfg.Transport.Kind = cli.Transport
	}
	if cli.NATSURL != "" {
		cfg.Transport.URL = cli.NATSURL
	}
	if cli.Topic != "" {
		cfg.Subscription.Topic = cli.Topic
	}
	if cli.Path != "" {
		cfg.Subscription.Path = cli.Path
	}
	if cli.Demo {
		cfg.Demo.Enabled = true
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
