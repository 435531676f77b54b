// Package dbconfig reads the Postgres settings shared by the API server, the
// relay and the gateway.
package dbconfig

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Config struct {
	// URL is DATABASE_URL. When set it wins over the DB_* parts.
	URL      string
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string

	MaxConns       int32
	ConnectTimeout time.Duration
}

// NewConfigFromEnv reads DATABASE_URL and the DB_* variables.
func NewConfigFromEnv() Config {
	return Config{
		URL:            os.Getenv("DATABASE_URL"),
		Host:           getEnv("DB_HOST", "localhost"),
		Port:           getEnvAsInt("DB_PORT", 5432),
		User:           getEnv("DB_USER", "postgres"),
		Password:       getEnv("DB_PASSWORD", "postgres"),
		Database:       getEnv("DB_NAME", "courtside"),
		SSLMode:        getEnv("DB_SSLMODE", "disable"),
		MaxConns:       int32(getEnvAsInt("DB_MAX_CONNS", 10)),
		ConnectTimeout: time.Duration(getEnvAsInt("DB_CONNECT_TIMEOUT_SECONDS", 5)) * time.Second,
	}
}

// Enabled reports whether a database was configured at all. Without one the
// API server falls back to in-memory stores.
func Enabled() bool {
	return os.Getenv("DATABASE_URL") != "" || os.Getenv("DB_HOST") != ""
}

// DSN returns the connection URL, escaping credentials.
func (c Config) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     net.JoinHostPort(c.Host, strconv.Itoa(c.Port)),
		Path:     "/" + c.Database,
		RawQuery: url.Values{"sslmode": {c.SSLMode}}.Encode(),
	}
	return u.String()
}

// Target describes the database for logs without credentials.
func (c Config) Target() string {
	if c.URL != "" {
		u, err := url.Parse(c.URL)
		if err != nil {
			return "DATABASE_URL"
		}
		return u.Host + u.Path
	}
	return fmt.Sprintf("%s:%d/%s", c.Host, c.Port, c.Database)
}

// Connect opens a pgx pool and checks it answers.
func (c Config) Connect(ctx context.Context) (*pgxpool.Pool, error) {
	pcfg, err := pgxpool.ParseConfig(c.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}
	if c.MaxConns > 0 {
		pcfg.MaxConns = c.MaxConns
	}
	if c.ConnectTimeout > 0 {
		pcfg.ConnConfig.ConnectTimeout = c.ConnectTimeout
	}

	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create database pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database %s: %w", c.Target(), err)
	}
	return pool, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
