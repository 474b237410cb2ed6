package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// GeoServer holds all configuration for the geodata tooling.
type GeoServer struct {
	// Logging: debug, info, warn, error
	LogLevel string `yaml:"log_level"`

	// Geodata dataset and bug sink
	Geodata GeodataConfig `yaml:"geodata"`

	// Database (used when geodata.bug_sink is "postgres")
	Database DatabaseConfig `yaml:"database"`

	// Prometheus /metrics listen address; empty disables the endpoint
	MetricsAddr string `yaml:"metrics_addr"`
}

// DatabaseConfig holds PostgreSQL connection parameters.
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`
}

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

// DefaultGeoServer returns GeoServer config with sensible defaults.
func DefaultGeoServer() GeoServer {
	return GeoServer{
		LogLevel: "info",
		Geodata:  DefaultGeodata(),
		Database: DatabaseConfig{
			Host:     "127.0.0.1",
			Port:     5432,
			User:     "la2go",
			Password: "la2go",
			DBName:   "la2go",
			SSLMode:  "disable",
		},
		MetricsAddr: ":9108",
	}
}

// LoadGeoServer loads config from a YAML file.
// If the file doesn't exist, returns defaults.
func LoadGeoServer(path string) (GeoServer, error) {
	cfg := DefaultGeoServer()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("validating config %s: %w", path, err)
	}

	return cfg, nil
}

// Validate checks values yaml cannot constrain.
func (c GeoServer) Validate() error {
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		return err
	}
	return c.Geodata.Validate()
}

// ParseLogLevel maps a config level name to slog.Level.
func ParseLogLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo, fmt.Errorf("log_level %q: %w", s, err)
	}
	return level, nil
}
