package main

import (
	"github.com/minor-industries/protoplot/config"
	"github.com/stretchr/testify/require"
	"os"
	"path/filepath"
	"testing"
)

func TestApplyOverrides(t *testing.T) {
	cfg := config.Default()
	cli := &CLIConfig{
		Addr:      ":9999",
		Transport: config.TransportNATS,
		Topic:     "/robot/state",
		Path:      "pose-position-x",
	}
	cli.apply(cfg)
	require.NoError(t, cfg.Complete())

	require.Equal(t, ":9999", cfg.Server.Addr)
	require.Equal(t, config.TransportNATS, cfg.Transport.Kind)
	require.Equal(t, "nats://127.0.0.1:4222", cfg.Transport.URL)
	require.Equal(t, "/robot/state", cfg.Subscription.Topic)
	require.Equal(t, "pose-position-x", cfg.Subscription.Path)
	require.False(t, cfg.Demo.Enabled)
}

func TestApplyKeepsConfigWhenUnset(t *testing.T) {
	cfg := config.Default()
	cfg.Server.Addr = ":7000"
	(&CLIConfig{}).apply(cfg)
	require.Equal(t, ":7000", cfg.Server.Addr)
	require.Equal(t, config.TransportInproc, cfg.Transport.Kind)
}

func TestValidateFlags(t *testing.T) {
	require.NoError(t, validateFlags(&CLIConfig{LogLevel: "info", LogFormat: "text"}))
	require.Error(t, validateFlags(&CLIConfig{LogLevel: "loud", LogFormat: "text"}))
	require.Error(t, validateFlags(&CLIConfig{LogLevel: "info", LogFormat: "xml"}))
	require.Error(t, validateFlags(&CLIConfig{
		LogLevel:   "info",
		LogFormat:  "text",
		ConfigPath: "/does/not/exist.yaml",
	}))
}

func TestFlagsOverrideConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "c.yaml")
	require.NoError(t, os.WriteFile(path, []byte("subscription:\n  topic: /robot/state\n"), 0o644))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	(&CLIConfig{Demo: true}).apply(cfg)
	require.NoError(t, cfg.Complete())
	require.True(t, cfg.Demo.Enabled)

	cfg, err = config.Load(path)
	require.NoError(t, err)
	(&CLIConfig{Transport: config.TransportNATS}).apply(cfg)
	require.NoError(t, cfg.Complete())
	require.Equal(t, "nats://127.0.0.1:4222", cfg.Transport.URL)
}
