// common/backoff/backoff.go

// Package backoff — экспоненциальные ретраи поверх cenkalti/backoff с метриками.
// Используется и при старте (подключение к Redis/Postgres/Kafka), и на пути
// запроса, где число попыток и общее время ограничены через Bounded.
package backoff

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/YaganovValera/storefront-auth/common/logger"
)

var serviceLabel = "unknown"

// SetServiceLabel вызывается из common.InitServiceName(..) до первого Execute.
func SetServiceLabel(name string) { serviceLabel = name }

// Причины прекращения ретраев.
const (
	StopExhausted = "exhausted"
	StopPermanent = "permanent"
	StopCanceled  = "canceled"
)

var metrics = struct {
	Retries *prometheus.CounterVec
	Stops   *prometheus.CounterVec
	Delays  *prometheus.HistogramVec
}{
	Retries: promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "common", Subsystem: "backoff", Name: "retries_total",
		Help: "Number of back-off retry attempts",
	}, []string{"service"}),
	Stops: promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "common", Subsystem: "backoff", Name: "stops_total",
		Help: "Operations that failed for good, by reason",
	}, []string{"service", "reason"}),
	Delays: promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "common", Subsystem: "backoff", Name: "retry_delay_seconds",
		Help:    "Retry delays (seconds)",
		Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
	}, []string{"service"}),
}

// Config — параметры ретраев. Нулевые значения означают дефолт.
type Config struct {
	InitialInterval     time.Duration `mapstructure:"initial_interval"`
	RandomizationFactor float64       `mapstructure:"randomization_factor"`
	Multiplier          float64       `mapstructure:"multiplier"`
	MaxInterval         time.Duration `mapstructure:"max_interval"`
	// MaxElapsedTime — общий бюджет; ноль → без ограничения по времени.
	MaxElapsedTime time.Duration `mapstructure:"max_elapsed_time"`
	// MaxAttempts — число вызовов fn, включая первый; ноль → без ограничения.
	MaxAttempts int `mapstructure:"max_attempts"`
	// PerAttemptTimeout ограничивает один вызов fn.
	PerAttemptTimeout time.Duration `mapstructure:"per_attempt_timeout"`
}

// Bounded ужимает c до бюджета запроса: общее время не больше maxElapsed,
// попыток не больше maxAttempts. Заданные более строгие значения сохраняются.
func (c Config) Bounded(maxElapsed time.Duration, maxAttempts int) Config {
	if c.MaxElapsedTime <= 0 || c.MaxElapsedTime > maxElapsed {
		c.MaxElapsedTime = maxElapsed
	}
	if c.MaxAttempts <= 0 || c.MaxAttempts > maxAttempts {
		c.MaxAttempts = maxAttempts
	}
	if c.InitialInterval <= 0 || c.InitialInterval > maxElapsed/4 {
		c.InitialInterval = maxElapsed / 10
	}
	if c.MaxInterval <= 0 || c.MaxInterval > maxElapsed/2 {
		c.MaxInterval = maxElapsed / 2
	}
	return c
}

func (c *Config) applyDefaults() {
	if c.InitialInterval <= 0 {
		c.InitialInterval = time.Second
	}
	if c.RandomizationFactor <= 0 {
		c.RandomizationFactor = 0.5
	}
	if c.Multiplier <= 0 {
		c.Multiplier = 2.0
	}
	if c.MaxInterval <= 0 {
		c.MaxInterval = 30 * time.Second
	}
}

func (c Config) validate() error {
	if c.RandomizationFactor < 0 || c.RandomizationFactor > 1 {
		return fmt.Errorf("backoff: RandomizationFactor must be in [0,1]")
	}
	if c.Multiplier < 1 {
		return fmt.Errorf("backoff: Multiplier must be ≥ 1")
	}
	if c.MaxAttempts < 0 {
		return fmt.Errorf("backoff: MaxAttempts must be ≥ 0")
	}
	return nil
}

// RetryableFunc — единица работы, повторяемая до успеха или отказа стратегии.
type RetryableFunc func(ctx context.Context) error

// ErrMaxRetries — fn так и не выполнилась успешно за отведённые попытки.
type ErrMaxRetries struct {
	Err      error
	Attempts int
}

func (e *ErrMaxRetries) Error() string {
	return fmt.Sprintf("backoff: %d attempt(s) failed: %v", e.Attempts, e.Err)
}
func (e *ErrMaxRetries) Unwrap() error { return e.Err }

// Permanent помечает ошибку как неповторяемую; Execute вернёт её как есть.
func Permanent(err error) error { return backoff.Permanent(err) }

func (c Config) strategy(ctx context.Context) backoff.BackOff {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = c.InitialInterval
	exp.RandomizationFactor = c.RandomizationFactor
	exp.Multiplier = c.Multiplier
	exp.MaxInterval = c.MaxInterval
	exp.MaxElapsedTime = c.MaxElapsedTime // 0 у cenkalti означает «без предела»
	var b backoff.BackOff = exp
	if c.MaxAttempts > 0 {
		b = backoff.WithMaxRetries(b, uint64(c.MaxAttempts-1))
	}
	return backoff.WithContext(b, ctx)
}

// Execute вызывает fn с экспоненциальной паузой между попытками.
// Не повторяются: Permanent-ошибки (возвращаются без обёртки) и отмена
// контекста вызывающего. Исчерпанный бюджет даёт *ErrMaxRetries.
func Execute(ctx context.Context, cfg Config, log *logger.Logger, fn RetryableFunc) error {
	if log == nil {
		log = logger.NewNop()
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return fmt.Errorf("backoff: invalid config: %w", err)
	}

	var (
		attempts int
		lastErr  error
		stop     string
	)
	operation := func() error {
		attempts++
		actx := ctx
		if cfg.PerAttemptTimeout > 0 {
			var cancel context.CancelFunc
			actx, cancel = context.WithTimeout(ctx, cfg.PerAttemptTimeout)
			defer cancel()
		}
		err := fn(actx)
		var perm *backoff.PermanentError
		switch {
		case err == nil:
			return nil
		case errors.As(err, &perm):
			stop, lastErr = StopPermanent, perm.Err
			return err
		case ctx.Err() != nil:
			stop, lastErr = StopCanceled, err
			return backoff.Permanent(err)
		}
		lastErr = err
		return err
	}
	notify := func(err error, delay time.Duration) {
		metrics.Retries.WithLabelValues(serviceLabel).Inc()
		metrics.Delays.WithLabelValues(serviceLabel).Observe(delay.Seconds())
		log.Warn("back-off retry",
			zap.Int("attempt", attempts),
			zap.Duration("delay", delay),
			zap.Error(err),
		)
	}

	if err := backoff.RetryNotify(operation, cfg.strategy(ctx), notify); err == nil {
		return nil
	}
	if stop == "" && ctx.Err() != nil {
		// отмена пришлась на паузу между попытками
		stop = StopCanceled
	}

	switch stop {
	case StopPermanent:
		metrics.Stops.WithLabelValues(serviceLabel, StopPermanent).Inc()
		return lastErr
	case StopCanceled:
		metrics.Stops.WithLabelValues(serviceLabel, StopCanceled).Inc()
		return fmt.Errorf("backoff: canceled after %d attempt(s): %w", attempts, errors.Join(ctx.Err(), lastErr))
	default:
		metrics.Stops.WithLabelValues(serviceLabel, StopExhausted).Inc()
		log.Error("back-off give-up", zap.Int("attempts", attempts), zap.Error(lastErr))
		return &ErrMaxRetries{Err: lastErr, Attempts: attempts}
	}
}
