package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type Config struct {
	GRPCAddr         string `yaml:"grpc_addr"`
	HTTPAddr         string `yaml:"http_addr"`
	StoreDriver      string `yaml:"store_driver"`
	DataFile         string `yaml:"data_file"`
	SQLitePath       string `yaml:"sqlite_path"`
	DatabaseURL      string `yaml:"database_url"`
	AutoMigrate      bool   `yaml:"auto_migrate"`
	SeedFile         string `yaml:"seed_file"`
	LogLevel         string `yaml:"log_level"`
	LogFormat        string `yaml:"log_format"`
	LeaderboardSize  int    `yaml:"leaderboard_size"`
	EnableReflection bool   `yaml:"enable_reflection"`
}

func Defaults() Config {
	return Config{
		GRPCAddr:        "127.0.0.1:50061",
		HTTPAddr:        "127.0.0.1:8080",
		StoreDriver:     "file",
		DataFile:        "./data/noose.db.json",
		SQLitePath:      "./data/noose.sqlite",
		AutoMigrate:     true,
		LogLevel:        "info",
		LogFormat:       "console",
		LeaderboardSize: 5,
	}
}

// Load builds the server configuration. Precedence, lowest first: defaults,
// the YAML file named by NOOSE_CONFIG, then individual environment variables.
// A .env file in the working directory only fills variables not already set.
func Load() (Config, error) {
	if err := LoadDotEnv(envOrDefault("NOOSE_DOTENV", ".env")); err != nil {
		return Config{}, fmt.Errorf("read .env: %w", err)
	}

	cfg := Defaults()
	if path := strings.TrimSpace(os.Getenv("NOOSE_CONFIG")); path != "" {
		if err := loadYAML(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	cfg.GRPCAddr = envOrDefault("GRPC_ADDR", cfg.GRPCAddr)
	cfg.HTTPAddr = envOrDefault("HTTP_ADDR", cfg.HTTPAddr)
	cfg.StoreDriver = envOrDefault("STORE_DRIVER", cfg.StoreDriver)
	cfg.DataFile = envOrDefault("DATA_FILE", cfg.DataFile)
	cfg.SQLitePath = envOrDefault("SQLITE_PATH", cfg.SQLitePath)
	cfg.DatabaseURL = envOrDefault("DATABASE_URL", cfg.DatabaseURL)
	cfg.AutoMigrate = envBoolOrDefault("AUTO_MIGRATE", cfg.AutoMigrate)
	cfg.SeedFile = envOrDefault("SEED_FILE", cfg.SeedFile)
	cfg.LogLevel = envOrDefault("LOG_LEVEL", cfg.LogLevel)
	cfg.LogFormat = envOrDefault("LOG_FORMAT", cfg.LogFormat)
	cfg.LeaderboardSize = envIntOrDefault("LEADERBOARD_SIZE", cfg.LeaderboardSize)
	cfg.EnableReflection = envBoolOrDefault("ENABLE_REFLECTION", cfg.EnableReflection)

	if cfg.LeaderboardSize <= 0 {
		cfg.LeaderboardSize = Defaults().LeaderboardSize
	}
	return cfg, nil
}

func loadYAML(path string, cfg *Config) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func envOrDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func envBoolOrDefault(key string, fallback bool) bool {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}
	return value
}

func envIntOrDefault(key string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}
