// common/httpserver/config.go

package httpserver

import (
	"fmt"
	"time"
)

// Config определяет настройки HTTP-сервера.
type Config struct {
	Addr            string        `mapstructure:"addr"`             // адрес для Listen, например ":8080"
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`     // максимальное время чтения запроса
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`    // максимальное время записи ответа
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`     // максимальное время простоя соединения
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"` // таймаут для graceful shutdown
	MetricsPath     string        `mapstructure:"metrics_path"`     // путь для /metrics
	HealthzPath     string        `mapstructure:"healthz_path"`     // путь для /healthz
	ReadyzPath      string        `mapstructure:"readyz_path"`      // путь для /readyz
	CORS            CORSConfig    `mapstructure:"cors"`
}

// CORSConfig описывает допустимые источники для браузерных клиентов.
// Пустой AllowedOrigins → разрешены все источники без credentials.
type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
	MaxAge           int      `mapstructure:"max_age"`
}

// ApplyDefaults заполняет пустые поля.
func (c *Config) ApplyDefaults() {
	if c.Addr == "" {
		c.Addr = ":8000"
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = 10 * time.Second
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 15 * time.Second
	}
	if c.IdleTimeout <= 0 {
		c.IdleTimeout = 60 * time.Second
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = 5 * time.Second
	}
	if c.MetricsPath == "" {
		c.MetricsPath = "/metrics"
	}
	if c.HealthzPath == "" {
		c.HealthzPath = "/healthz"
	}
	if c.ReadyzPath == "" {
		c.ReadyzPath = "/readyz"
	}
}

// Validate проверяет обязательные поля.
func (c Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("httpserver: Addr is required")
	}
	if c.CORS.AllowCredentials {
		for _, o := range c.CORS.AllowedOrigins {
			if o == "*" {
				return fmt.Errorf("httpserver: wildcard origin cannot be combined with credentials")
			}
		}
	}
	return nil
}
