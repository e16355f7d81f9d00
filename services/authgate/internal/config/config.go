// services/authgate/internal/config/config.go
package config

import (
	"fmt"
	"strings"
	"time"

	commoncfg "github.com/YaganovValera/storefront-auth/common/config"
	commonhttp "github.com/YaganovValera/storefront-auth/common/httpserver"
	"github.com/YaganovValera/storefront-auth/common/kafka/producer"
	commonlogger "github.com/YaganovValera/storefront-auth/common/logger"
	commonredis "github.com/YaganovValera/storefront-auth/common/redis"
	commontel "github.com/YaganovValera/storefront-auth/common/telemetry"
	"github.com/YaganovValera/storefront-auth/services/authgate/internal/events"
	"github.com/YaganovValera/storefront-auth/services/authgate/internal/middleware"
	"github.com/YaganovValera/storefront-auth/services/authgate/internal/role"
	"github.com/YaganovValera/storefront-auth/services/authgate/internal/storage/postgres"
)

const EnvPrefix = "AUTHGATE"

// Config описывает параметры запуска authgate.
type Config struct {
	ServiceName    string              `mapstructure:"service_name"`
	ServiceVersion string              `mapstructure:"service_version"`
	Environment    string              `mapstructure:"environment"`
	Logging        commonlogger.Config `mapstructure:"logging"`
	HTTP           commonhttp.Config   `mapstructure:"http"`
	Telemetry      commontel.Config    `mapstructure:"telemetry"`
	Redis          commonredis.Config  `mapstructure:"redis"`
	Postgres       postgres.Config     `mapstructure:"postgres"`
	JWT            JWTConfig           `mapstructure:"jwt"`
	Cookies        CookiesConfig       `mapstructure:"cookies"`
	Paths          PathsConfig         `mapstructure:"paths"`
	Access         AccessConfig        `mapstructure:"access"`
	Password       PasswordConfig      `mapstructure:"password"`
	Events         EventsConfig        `mapstructure:"events"`
}

type JWTConfig struct {
	Secret           string `mapstructure:"secret"`
	Algorithm        string `mapstructure:"algorithm"`
	AccessTTLMinutes int    `mapstructure:"access_ttl_minutes"`
	RefreshTTLDays   int    `mapstructure:"refresh_ttl_days"`
}

type CookiesConfig struct {
	// Secure принудительно включает флаг Secure; в production он включён всегда.
	Secure   bool   `mapstructure:"secure"`
	SameSite string `mapstructure:"same_site"`
	Domain   string `mapstructure:"domain"`
}

type PathsConfig struct {
	RotationExclude   []string `mapstructure:"rotation_exclude"`
	Public            []string `mapstructure:"public"`
	PublicGETPrefixes []string `mapstructure:"public_get_prefixes"`
}

// AccessConfig — ролевой доступ к служебным маршрутам.
type AccessConfig struct {
	// UserLookupRoles — роли, которым открыт GET /auth/users/{id}.
	UserLookupRoles []string `mapstructure:"user_lookup_roles"`
}

type PasswordConfig struct {
	BcryptCost int `mapstructure:"bcrypt_cost"`
}

// EventsConfig — публикация событий аутентификации; пустой список брокеров отключает её.
type EventsConfig struct {
	Topic string             `mapstructure:"topic"`
	Kafka producer.Config    `mapstructure:"kafka"`
	Queue events.AsyncConfig `mapstructure:"queue"`
}

// legacyEnv — имена переменных прежнего деплоя.
var legacyEnv = map[string][]string{
	"environment":            {"ENVIRONMENT"},
	"jwt.secret":             {"SECRET_KEY"},
	"jwt.algorithm":          {"ALGORITHM"},
	"jwt.access_ttl_minutes": {"ACCESS_TOKEN_EXPIRE_MINS"},
	"jwt.refresh_ttl_days":   {"REFRESH_TOKEN_EXPIRE_DAYS"},
	"postgres.dsn":           {"DATABASE_URL"},
	"redis.url":              {"REDIS_URL"},
	"redis.host":             {"REDIS_HOST"},
	"redis.port":             {"REDIS_PORT"},
}

func Load(path string) (*Config, error) {
	var cfg Config
	if err := commoncfg.Load(commoncfg.Options{
		Path:      path,
		EnvPrefix: EnvPrefix,
		Out:       &cfg,
		Aliases:   legacyEnv,
		Defaults: map[string]interface{}{
			"service_name":    "authgate",
			"service_version": "v1.0.0",
			"environment":     "development",

			"logging.level":    "info",
			"logging.dev_mode": false,

			"http.addr":             ":8000",
			"http.read_timeout":     "10s",
			"http.write_timeout":    "15s",
			"http.idle_timeout":     "60s",
			"http.shutdown_timeout": "5s",
			"http.metrics_path":     "/metrics",
			"http.healthz_path":     "/healthz",
			"http.readyz_path":      "/readyz",

			"telemetry.endpoint":         "",
			"telemetry.insecure":         true,
			"telemetry.reconnect_period": "5s",
			"telemetry.timeout":          "5s",
			"telemetry.sampler_ratio":    1.0,
			"telemetry.service_name":     "authgate",
			"telemetry.service_version":  "v1.0.0",

			"redis.url":  "",
			"redis.host": "localhost",
			"redis.port": 6379,
			"redis.db":   0,

			"postgres.dsn":              "",
			"postgres.max_conns":        10,
			"postgres.connect_timeout":  "5s",
			"postgres.migrate_on_start": true,

			"jwt.secret":             "",
			"jwt.algorithm":          "HS256",
			"jwt.access_ttl_minutes": 30,
			"jwt.refresh_ttl_days":   7,

			"cookies.secure":    false,
			"cookies.same_site": "lax",
			"cookies.domain":    "",

			"paths.rotation_exclude":    middleware.DefaultRotationExclude,
			"paths.public":              middleware.DefaultPublicPaths,
			"paths.public_get_prefixes": middleware.DefaultPublicGETPrefixes,

			"access.user_lookup_roles": []string{"admin", "hr"},

			"password.bcrypt_cost": 12,

			"events.topic":                 "auth.events",
			"events.kafka.brokers":         []string{},
			"events.kafka.required_acks":   "all",
			"events.kafka.timeout":         "5s",
			"events.kafka.compression":     "none",
			"events.kafka.client_id":       "authgate",
			"events.queue.queue_size":      1024,
			"events.queue.publish_timeout": "5s",
		},
	}); err != nil {
		return nil, fmt.Errorf("config load failed: %w", err)
	}
	return &cfg, nil
}

// Validate вызывается из commoncfg.Load после декодирования.
func (c *Config) Validate() error {
	c.Logging.ApplyDefaults()
	c.HTTP.ApplyDefaults()
	c.Redis.ApplyDefaults()
	c.Postgres.ApplyDefaults()
	c.Postgres.DSN = normalizeDSN(c.Postgres.DSN)

	if c.ServiceName == "" || c.ServiceVersion == "" {
		return fmt.Errorf("service name/version is required")
	}
	if c.JWT.Secret == "" {
		return fmt.Errorf("jwt secret is required (SECRET_KEY or %s_JWT_SECRET)", EnvPrefix)
	}
	switch strings.ToUpper(c.JWT.Algorithm) {
	case "HS256", "HS384", "HS512":
	default:
		return fmt.Errorf("jwt algorithm %q is not supported", c.JWT.Algorithm)
	}
	if c.JWT.AccessTTLMinutes <= 0 || c.JWT.RefreshTTLDays <= 0 {
		return fmt.Errorf("jwt ttl must be positive")
	}
	if _, err := role.ParseList(c.Access.UserLookupRoles); err != nil {
		return fmt.Errorf("access config invalid: %w", err)
	}
	if _, err := middleware.ParseSameSite(c.Cookies.SameSite); err != nil {
		return fmt.Errorf("cookies config invalid: %w", err)
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config invalid: %w", err)
	}
	if err := c.HTTP.Validate(); err != nil {
		return fmt.Errorf("http config invalid: %w", err)
	}
	if err := c.Redis.Validate(); err != nil {
		return fmt.Errorf("redis config invalid: %w", err)
	}
	if err := c.Postgres.Validate(); err != nil {
		return fmt.Errorf("postgres config invalid: %w", err)
	}
	return nil
}

// normalizeDSN принимает DSN в формате SQLAlchemy (postgresql+asyncpg://).
func normalizeDSN(dsn string) string {
	if i := strings.Index(dsn, "+"); i > 0 && strings.HasPrefix(dsn, "postgres") {
		if j := strings.Index(dsn, "://"); j > i {
			return dsn[:i] + dsn[j:]
		}
	}
	return dsn
}

func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

func (c *Config) AccessTTL() time.Duration {
	return time.Duration(c.JWT.AccessTTLMinutes) * time.Minute
}

func (c *Config) RefreshTTL() time.Duration {
	return time.Duration(c.JWT.RefreshTTLDays) * 24 * time.Hour
}

// CookieConfig собирает атрибуты cookies; Secure включён в production.
func (c *Config) CookieConfig() middleware.CookieConfig {
	sameSite, _ := middleware.ParseSameSite(c.Cookies.SameSite)
	return middleware.CookieConfig{
		Secure:   c.Cookies.Secure || c.IsProduction(),
		SameSite: sameSite,
		Domain:   c.Cookies.Domain,
		Path:     "/",
	}
}

// EventsEnabled сообщает, заданы ли брокеры Kafka.
func (c *Config) EventsEnabled() bool {
	return len(c.Events.Kafka.Brokers) > 0
}

// UserLookupRoles возвращает разобранные роли; вызывать после Validate.
func (c *Config) UserLookupRoles() []role.Role {
	roles, _ := role.ParseList(c.Access.UserLookupRoles)
	return roles
}
