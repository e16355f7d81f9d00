// internal/storage/postgres/config.go
package postgres

import (
	"fmt"
	"time"

	"github.com/YaganovValera/storefront-auth/common/backoff"
)

// Config описывает подключение к PostgreSQL.
type Config struct {
	DSN            string         `mapstructure:"dsn"`
	MaxConns       int32          `mapstructure:"max_conns"`
	MinConns       int32          `mapstructure:"min_conns"`
	ConnectTimeout time.Duration  `mapstructure:"connect_timeout"`
	MigrateOnStart bool           `mapstructure:"migrate_on_start"`
	Backoff        backoff.Config `mapstructure:"backoff"`
}

func (c *Config) ApplyDefaults() {
	if c.MaxConns <= 0 {
		c.MaxConns = 10
	}
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = 5 * time.Second
	}
	if c.Backoff.MaxElapsedTime <= 0 {
		c.Backoff.MaxElapsedTime = 30 * time.Second
	}
}

func (c Config) Validate() error {
	if c.DSN == "" {
		return fmt.Errorf("postgres: dsn is required")
	}
	if c.MinConns > c.MaxConns {
		return fmt.Errorf("postgres: min_conns (%d) > max_conns (%d)", c.MinConns, c.MaxConns)
	}
	return nil
}
