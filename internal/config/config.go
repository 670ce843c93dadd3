// Package config handles loading and parsing application configuration.
// The config file path comes from (in priority order):
//  1. An environment variable:  CONFIG_PATH=/path/to/config.yaml
//  2. A command-line flag:      --config=/path/to/config.yaml
//
// Values from an optional .env file are exported into the process
// environment first, so they can override YAML keys like any other env var.
package config

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// Config is the root configuration structure.
// Every field maps to a key in the YAML file AND can be overridden
// by the corresponding environment variable (env:"...").
type Config struct {
	// Env controls log format and verbosity.
	Env string `yaml:"env" env:"ENV" env-default:"dev" validate:"oneof=dev staging prod"`

	Database Database `yaml:"database"`

	HTTPServer `yaml:"http_server"`
}

// Database selects the GORM dialect and its data source.
type Database struct {
	// Driver is either "sqlite" or "postgres".
	Driver string `yaml:"driver" env:"DB_DRIVER" env-default:"sqlite" validate:"oneof=sqlite postgres"`

	// DSN is a file path (or file: URI) for sqlite and a connection
	// string for postgres.
	DSN string `yaml:"dsn" env:"DB_DSN" env-required:"true" validate:"required"`

	// LogQueries makes GORM log every statement at debug level.
	LogQueries bool `yaml:"log_queries" env:"DB_LOG_QUERIES" env-default:"false"`
}

// HTTPServer holds settings specific to the HTTP server.
type HTTPServer struct {
	Addr            string        `yaml:"address" env:"HTTP_SERVER_ADDR" env-required:"true" validate:"required"`
	ReadTimeout     time.Duration `yaml:"read_timeout" env:"HTTP_SERVER_READ_TIMEOUT" env-default:"10s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" env:"HTTP_SERVER_WRITE_TIMEOUT" env-default:"10s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" env:"HTTP_SERVER_IDLE_TIMEOUT" env-default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"HTTP_SERVER_SHUTDOWN_TIMEOUT" env-default:"5s"`
}

// ErrNoConfigPath is returned when neither CONFIG_PATH nor --config is set.
var ErrNoConfigPath = errors.New("config path is not set: use --config flag or CONFIG_PATH env var")

// Load reads the YAML file at path, applies env overrides and defaults,
// and validates the result.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, ErrNoConfigPath
	}

	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}

	var cfg Config
	if err := cleanenv.ReadConfig(path, &cfg); err != nil {
		return nil, fmt.Errorf("cannot read config: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// MustLoad resolves the config path, loads the config and exits the
// process if anything is wrong. If it returns, the config is valid.
func MustLoad() *Config {
	// A missing .env file is fine; real deployments pass env vars directly.
	_ = godotenv.Load()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		flags := flag.String("config", "", "Path to the configuration YAML file")
		flag.Parse()
		configPath = *flags
	}

	cfg, err := Load(configPath)
	if err != nil {
		log.Fatal(err)
	}

	return cfg
}
