package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"flight-stats/pkg/database"
)

const (
	SourceSpreadsheet = "spreadsheet"
	SourcePostgres    = "postgres"
)

// Config is the full application configuration
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Source   SourceConfig   `yaml:"source"`
	Database DatabaseConfig `yaml:"database"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout"`
}

// SourceConfig selects where the flight table is loaded from
type SourceConfig struct {
	Kind    string `yaml:"kind"`
	Path    string `yaml:"path"`
	Sheet   string `yaml:"sheet"`
	MaxRows int    `yaml:"max_rows"`
}

// DatabaseConfig holds PostgreSQL settings. Only used by the postgres source,
// the ingester and migrations.
type DatabaseConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	Database        string        `yaml:"database"`
	SSLMode         string        `yaml:"sslmode"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time"`
}

// Postgres converts the section into a connection pool configuration
func (d DatabaseConfig) Postgres() *database.Config {
	return &database.Config{
		Host:            d.Host,
		Port:            d.Port,
		User:            d.User,
		Password:        d.Password,
		Database:        d.Database,
		SSLMode:         d.SSLMode,
		MaxOpenConns:    d.MaxOpenConns,
		MaxIdleConns:    d.MaxIdleConns,
		ConnMaxLifetime: d.ConnMaxLifetime,
		ConnMaxIdleTime: d.ConnMaxIdleTime,
	}
}

// LoggingConfig holds logger settings
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Default returns the configuration used when nothing is overridden
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		Source: SourceConfig{
			Kind:    SourceSpreadsheet,
			Path:    "Airline Time Delays.xlsx",
			Sheet:   "Airline Time Delays",
			MaxRows: 2464,
		},
		Database: DatabaseConfig{
			Host:            "localhost",
			Port:            5432,
			User:            "postgres",
			Database:        "flights",
			SSLMode:         "disable",
			MaxOpenConns:    10,
			MaxIdleConns:    5,
			ConnMaxLifetime: 30 * time.Minute,
			ConnMaxIdleTime: 5 * time.Minute,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadConfig reads the YAML file named by FLIGHTS_CONFIG (if set) and then
// applies FLIGHTS_* environment overrides.
func LoadConfig() (*Config, error) {
	return Load(os.Getenv("FLIGHTS_CONFIG"), os.Getenv)
}

// Load builds a Config from defaults, an optional YAML file and getenv.
func Load(path string, getenv func(string) string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if err := applyEnv(cfg, getenv); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config, getenv func(string) string) error {
	str := func(key string, dst *string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *int) error {
		v := getenv(key)
		if v == "" {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: invalid integer %q", key, v)
		}
		*dst = n
		return nil
	}
	dur := func(key string, dst *time.Duration) error {
		v := getenv(key)
		if v == "" {
			return nil
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: invalid duration %q", key, v)
		}
		*dst = d
		return nil
	}

	str("FLIGHTS_SERVER_HOST", &cfg.Server.Host)
	str("FLIGHTS_SOURCE_KIND", &cfg.Source.Kind)
	str("FLIGHTS_SOURCE_PATH", &cfg.Source.Path)
	str("FLIGHTS_SOURCE_SHEET", &cfg.Source.Sheet)
	str("FLIGHTS_DB_HOST", &cfg.Database.Host)
	str("FLIGHTS_DB_USER", &cfg.Database.User)
	str("FLIGHTS_DB_PASSWORD", &cfg.Database.Password)
	str("FLIGHTS_DB_NAME", &cfg.Database.Database)
	str("FLIGHTS_DB_SSLMODE", &cfg.Database.SSLMode)
	str("FLIGHTS_LOG_LEVEL", &cfg.Logging.Level)

	return errors.Join(
		num("FLIGHTS_SERVER_PORT", &cfg.Server.Port),
		num("FLIGHTS_SOURCE_MAX_ROWS", &cfg.Source.MaxRows),
		num("FLIGHTS_DB_PORT", &cfg.Database.Port),
		num("FLIGHTS_DB_MAX_OPEN_CONNS", &cfg.Database.MaxOpenConns),
		num("FLIGHTS_DB_MAX_IDLE_CONNS", &cfg.Database.MaxIdleConns),
		dur("FLIGHTS_SERVER_READ_TIMEOUT", &cfg.Server.ReadTimeout),
		dur("FLIGHTS_SERVER_WRITE_TIMEOUT", &cfg.Server.WriteTimeout),
		dur("FLIGHTS_SERVER_IDLE_TIMEOUT", &cfg.Server.IdleTimeout),
		dur("FLIGHTS_DB_CONN_MAX_LIFETIME", &cfg.Database.ConnMaxLifetime),
		dur("FLIGHTS_DB_CONN_MAX_IDLE_TIME", &cfg.Database.ConnMaxIdleTime),
	)
}

// Validate checks the configuration for values the server cannot start with
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port out of range: %d", c.Server.Port))
	}

	switch c.Source.Kind {
	case SourceSpreadsheet:
		if c.Source.Path == "" {
			errs = append(errs, "source.path is required for the spreadsheet source")
		}
	case SourcePostgres:
		if c.Database.Host == "" || c.Database.Database == "" {
			errs = append(errs, "database.host and database.database are required for the postgres source")
		}
	default:
		errs = append(errs, fmt.Sprintf("source.kind must be %q or %q, got %q", SourceSpreadsheet, SourcePostgres, c.Source.Kind))
	}

	if c.Source.MaxRows <= 0 {
		errs = append(errs, "source.max_rows must be positive")
	}

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Sprintf("logging.level unknown: %q", c.Logging.Level))
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}
