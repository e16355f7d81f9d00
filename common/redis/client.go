// common/redis/client.go

package redis

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/YaganovValera/storefront-auth/common/backoff"
	"github.com/YaganovValera/storefront-auth/common/logger"
)

var tracer = otel.Tracer("common/redis")

// Config хранит параметры подключения к Redis.
// URL ("redis://host:6379/0") имеет приоритет над Host/Port.
type Config struct {
	URL          string         `mapstructure:"url"`
	Host         string         `mapstructure:"host"`
	Port         int            `mapstructure:"port"`
	Password     string         `mapstructure:"password"`
	DB           int            `mapstructure:"db"`
	DialTimeout  time.Duration  `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration  `mapstructure:"read_timeout"`
	WriteTimeout time.Duration  `mapstructure:"write_timeout"`
	PoolSize     int            `mapstructure:"pool_size"`
	Backoff      backoff.Config `mapstructure:"backoff"`
}

// ApplyDefaults задаёт sane defaults.
func (c *Config) ApplyDefaults() {
	if c.URL == "" && c.Host == "" {
		c.Host = "localhost"
	}
	if c.Port <= 0 {
		c.Port = 6379
	}
	if c.DialTimeout <= 0 {
		c.DialTimeout = 3 * time.Second
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = 2 * time.Second
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 2 * time.Second
	}
	if c.Backoff.MaxElapsedTime <= 0 {
		c.Backoff.MaxElapsedTime = 30 * time.Second
	}
}

// Validate проверяет обязательные поля.
func (c Config) Validate() error {
	if c.URL == "" && c.Host == "" {
		return fmt.Errorf("redis: url or host required")
	}
	if c.DB < 0 {
		return fmt.Errorf("redis: db must be >= 0")
	}
	return nil
}

// Options преобразует Config в опции go-redis.
func (c Config) Options() (*goredis.Options, error) {
	var opts *goredis.Options
	if c.URL != "" {
		parsed, err := goredis.ParseURL(c.URL)
		if err != nil {
			return nil, fmt.Errorf("redis: parse URL: %w", err)
		}
		opts = parsed
	} else {
		opts = &goredis.Options{
			Addr:     net.JoinHostPort(c.Host, strconv.Itoa(c.Port)),
			Password: c.Password,
			DB:       c.DB,
		}
	}
	opts.DialTimeout = c.DialTimeout
	opts.ReadTimeout = c.ReadTimeout
	opts.WriteTimeout = c.WriteTimeout
	if c.PoolSize > 0 {
		opts.PoolSize = c.PoolSize
	}
	return opts, nil
}

// Connect создаёт клиента и проверяет соединение PING с back-off.
func Connect(ctx context.Context, cfg Config, log *logger.Logger) (*goredis.Client, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log = log.Named("redis")

	opts, err := cfg.Options()
	if err != nil {
		return nil, err
	}
	client := goredis.NewClient(opts)

	op := func(ctx context.Context) error { return client.Ping(ctx).Err() }
	ctxConn, span := tracer.Start(ctx, "Connect", trace.WithAttributes(attribute.String("addr", opts.Addr)))
	if err := backoff.Execute(ctxConn, cfg.Backoff, log, op); err != nil {
		span.RecordError(err)
		span.End()
		_ = client.Close()
		return nil, fmt.Errorf("redis connect: %w", err)
	}
	span.End()

	log.Info("redis: connected", zap.String("addr", opts.Addr), zap.Int("db", opts.DB))
	return client, nil
}
