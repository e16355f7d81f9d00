// common/logger/logger.go

package logger

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/YaganovValera/storefront-auth/common/ctxkeys"
)

// -----------------------------------------------------------------------------
// Configuration
// -----------------------------------------------------------------------------

// Config описывает, как инициализировать zap-логгер.
// Level   — "debug" | "info" | "warn" | "error" (по умолчанию "info")
// DevMode — true → человекочитаемый консольный вывод, иначе JSON.
type Config struct {
	Level   string `mapstructure:"level"`
	DevMode bool   `mapstructure:"dev_mode"`
}

// ApplyDefaults заполняет пустые поля.
func (c *Config) ApplyDefaults() {
	if c.Level == "" {
		c.Level = "info"
	}
}

// Validate проверяет, что уровень распознаётся zap.
func (c Config) Validate() error {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(c.Level)); err != nil {
		return fmt.Errorf("logger: invalid level %q: %w", c.Level, err)
	}
	return nil
}

// -----------------------------------------------------------------------------
// Logger wrapper
// -----------------------------------------------------------------------------

// Logger — тонкая обёртка над *zap.Logger.
type Logger struct {
	raw *zap.Logger
}

// New создаёт Logger по заданному Config.
func New(cfg Config) (*Logger, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	zapCfg := buildZapConfig(cfg.DevMode)
	if err := setZapLevel(&zapCfg, cfg.Level); err != nil {
		return nil, err
	}

	zl, err := zapCfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		return nil, fmt.Errorf("logger: build zap: %w", err)
	}
	return &Logger{raw: zl}, nil
}

// NewNop возвращает логгер, который ничего не пишет. Удобен в тестах.
func NewNop() *Logger {
	return &Logger{raw: zap.NewNop()}
}

func buildZapConfig(dev bool) zap.Config {
	if dev {
		cfg := zap.NewDevelopmentConfig()
		ec := &cfg.EncoderConfig
		ec.TimeKey = "ts"
		ec.EncodeTime = zapcore.ISO8601TimeEncoder
		ec.CallerKey = "caller"
		ec.EncodeCaller = zapcore.ShortCallerEncoder
		return cfg
	}

	// prod-режим: JSON с семплингом
	prod := zap.NewProductionConfig()
	prod.Sampling = &zap.SamplingConfig{Initial: 100, Thereafter: 100}

	ec := &prod.EncoderConfig
	ec.TimeKey = "ts"
	ec.EncodeTime = zapcore.ISO8601TimeEncoder
	ec.CallerKey = "caller"
	ec.EncodeCaller = zapcore.ShortCallerEncoder
	ec.StacktraceKey = "stacktrace"
	return prod
}

func setZapLevel(cfg *zap.Config, level string) error {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return err
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	return nil
}

// -----------------------------------------------------------------------------
// Public methods
// -----------------------------------------------------------------------------

// Sync сбрасывает все буферы (ошибки игнорируются).
func (l *Logger) Sync() { _ = l.raw.Sync() }

// Named создаёт sub-logger с префиксом.
func (l *Logger) Named(name string) *Logger {
	return &Logger{raw: l.raw.Named(name)}
}

// With возвращает логгер с постоянными полями.
func (l *Logger) With(fields ...zap.Field) *Logger {
	return &Logger{raw: l.raw.With(fields...)}
}

// WithContext добавляет поля trace_id, request_id и user_id из контекста.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	fields := make([]zap.Field, 0, 3)
	if v, ok := ctx.Value(ctxkeys.TraceIDKey).(string); ok && v != "" {
		fields = append(fields, zap.String("trace_id", v))
	}
	if v, ok := ctx.Value(ctxkeys.RequestIDKey).(string); ok && v != "" {
		fields = append(fields, zap.String("request_id", v))
	}
	if v, ok := ctx.Value(ctxkeys.UserIDKey).(string); ok && v != "" {
		fields = append(fields, zap.String("user_id", v))
	}
	if len(fields) == 0 {
		return l
	}
	return &Logger{raw: l.raw.With(fields...)}
}

// Уровни
func (l *Logger) Debug(msg string, fields ...zap.Field) { l.raw.Debug(msg, fields...) }
func (l *Logger) Info(msg string, fields ...zap.Field)  { l.raw.Info(msg, fields...) }
func (l *Logger) Warn(msg string, fields ...zap.Field)  { l.raw.Warn(msg, fields...) }
func (l *Logger) Error(msg string, fields ...zap.Field) { l.raw.Error(msg, fields...) }

// -----------------------------------------------------------------------------
// Context helpers
// -----------------------------------------------------------------------------

// ContextWithTraceID возвращает новый контекст с trace-ID.
func ContextWithTraceID(ctx context.Context, tid string) context.Context {
	return context.WithValue(ctx, ctxkeys.TraceIDKey, tid)
}

// ContextWithRequestID возвращает новый контекст с request-ID.
func ContextWithRequestID(ctx context.Context, rid string) context.Context {
	return context.WithValue(ctx, ctxkeys.RequestIDKey, rid)
}

// ContextWithUserID возвращает новый контекст с идентификатором пользователя.
func ContextWithUserID(ctx context.Context, uid string) context.Context {
	return context.WithValue(ctx, ctxkeys.UserIDKey, uid)
}
