// Package config loads application settings from the environment (which
// main populates from an optional .env file).
package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"

	"github.com/spf13/viper"

	"github.com/BartekS5/roomstat/pkg/database"
)

// DefaultSQLiteDSN is used when DB_DRIVER=sqlite and DB_DSN is empty.
const DefaultSQLiteDSN = "roomstat.db"

// Config holds all configuration for the application.
type Config struct {
	Dialect database.Dialect
	DSN     string

	MongoConnString string
	MongoDatabase   string

	AWSRegion  string
	S3Endpoint string

	LogLevel   string
	LogFile    string
	ResultsDir string
}

func newViper() *viper.Viper {
	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("DB_DRIVER", string(database.Postgres))
	v.SetDefault("PGHOST", "localhost")
	v.SetDefault("PGPORT", "5432")
	v.SetDefault("PGUSER", "app")
	v.SetDefault("PGPASSWORD", "app")
	v.SetDefault("PGDATABASE", "university")
	v.SetDefault("MONGO_DATABASE", "roomstat")
	v.SetDefault("AWS_REGION", "us-east-1")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("RESULTS_DIR", "data/results")
	return v
}

// LoadConfig reads and validates the settings.
func LoadConfig() (*Config, error) {
	v := newViper()

	dialect, err := database.ParseDialect(v.GetString("DB_DRIVER"))
	if err != nil {
		return nil, fmt.Errorf("DB_DRIVER: %w", err)
	}

	cfg := &Config{
		Dialect:         dialect,
		DSN:             strings.TrimSpace(v.GetString("DB_DSN")),
		MongoConnString: v.GetString("MONGO_CONNECTION_STRING"),
		MongoDatabase:   v.GetString("MONGO_DATABASE"),
		AWSRegion:       v.GetString("AWS_REGION"),
		S3Endpoint:      v.GetString("S3_ENDPOINT"),
		LogLevel:        v.GetString("LOG_LEVEL"),
		LogFile:         v.GetString("LOG_FILE"),
		ResultsDir:      v.GetString("RESULTS_DIR"),
	}

	if cfg.DSN == "" {
		switch dialect {
		case database.Postgres:
			cfg.DSN = postgresURL(v)
		case database.SQLite:
			cfg.DSN = DefaultSQLiteDSN
		default:
			return nil, errors.New("DB_DSN environment variable not set")
		}
	}
	if port := v.GetString("PGPORT"); dialect == database.Postgres && !isPort(port) {
		return nil, fmt.Errorf("PGPORT: invalid port %q", port)
	}
	return cfg, nil
}

// RequireMongo reports whether the Mongo settings needed for publishing are
// present.
func (c *Config) RequireMongo() error {
	if c.MongoConnString == "" {
		return errors.New("MONGO_CONNECTION_STRING environment variable not set")
	}
	return nil
}

func postgresURL(v *viper.Viper) string {
	u := url.URL{
		Scheme: "postgresql",
		User:   url.UserPassword(v.GetString("PGUSER"), v.GetString("PGPASSWORD")),
		Host:   net.JoinHostPort(v.GetString("PGHOST"), v.GetString("PGPORT")),
		Path:   "/" + v.GetString("PGDATABASE"),
	}
	return u.String()
}

func isPort(s string) bool {
	if s == "" || len(s) > 5 {
		return false
	}
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
		n = n*10 + int(r-'0')
	}
	return n > 0 && n <= 65535
}
