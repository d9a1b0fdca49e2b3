package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const defaultClientConfigRelPath = ".config/noose/noose.yaml"

// ClientConfig drives noose-cli and the terminal UI.
type ClientConfig struct {
	GRPCAddr       string        `yaml:"grpc_addr"`
	GRPCInsecure   bool          `yaml:"grpc_insecure"`
	Reporter       string        `yaml:"reporter"`
	LogLevel       string        `yaml:"log_level"`
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	RetryAttempts  int           `yaml:"retry_attempts"`
}

func DefaultClient() ClientConfig {
	return ClientConfig{
		GRPCAddr:       "127.0.0.1:50061",
		GRPCInsecure:   true,
		LogLevel:       "warn",
		ConnectTimeout: 8 * time.Second,
		RequestTimeout: 10 * time.Second,
		RetryAttempts:  3,
	}
}

// LoadClient reads path (or the default location when path is empty) and
// applies NOOSE_ADDR. A missing file yields defaults. The resolved path is
// returned for display.
func LoadClient(path string) (ClientConfig, string, error) {
	cfg := DefaultClient()
	if strings.TrimSpace(path) == "" {
		resolved, err := ClientPath()
		if err != nil {
			return cfg, "", err
		}
		path = resolved
	}

	raw, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return cfg, path, fmt.Errorf("parse client config %s: %w", path, err)
		}
	case !errors.Is(err, os.ErrNotExist):
		return cfg, path, fmt.Errorf("read client config %s: %w", path, err)
	}

	if addr := strings.TrimSpace(os.Getenv("NOOSE_ADDR")); addr != "" {
		cfg.GRPCAddr = addr
	}
	if reporter := strings.TrimSpace(os.Getenv("NOOSE_REPORTER")); reporter != "" {
		cfg.Reporter = reporter
	}

	defaults := DefaultClient()
	if strings.TrimSpace(cfg.GRPCAddr) == "" {
		cfg.GRPCAddr = defaults.GRPCAddr
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = defaults.ConnectTimeout
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = defaults.RequestTimeout
	}
	if cfg.RetryAttempts <= 0 {
		cfg.RetryAttempts = defaults.RetryAttempts
	}
	return cfg, path, nil
}

func ClientPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, defaultClientConfigRelPath), nil
}
