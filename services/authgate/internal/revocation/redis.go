// internal/revocation/redis.go

package revocation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	goredis "github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/YaganovValera/storefront-auth/common/backoff"
	"github.com/YaganovValera/storefront-auth/common/logger"
)

var (
	storeMetrics = struct {
		Errors    *prometheus.CounterVec
		Latency   *prometheus.HistogramVec
		Mismatch  prometheus.Counter
		Rotations prometheus.Counter
	}{
		Errors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "authgate", Subsystem: "revocation", Name: "errors_total",
			Help: "Redis errors by operation",
		}, []string{"op"}),
		Latency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "authgate", Subsystem: "revocation", Name: "operation_latency_seconds",
			Help:    "Latency of revocation store operations",
			Buckets: prometheus.DefBuckets,
		}, []string{"op"}),
		Mismatch: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "authgate", Subsystem: "revocation", Name: "rotate_mismatch_total",
			Help: "Compare-and-set rotations rejected because the stored token changed",
		}),
		Rotations: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "authgate", Subsystem: "revocation", Name: "rotations_total",
			Help: "Successful compare-and-set rotations",
		}),
	}
	tracer = otel.Tracer("authgate/revocation")
)

// rotateScript: SET key next PX ttl, только если GET key == presented.
var rotateScript = goredis.NewScript(`
local cur = redis.call('GET', KEYS[1])
if cur == ARGV[1] then
	redis.call('SET', KEYS[1], ARGV[2], 'PX', ARGV[3])
	return 1
end
return 0
`)

// RedisStore — реализация Store поверх go-redis.
type RedisStore struct {
	client     goredis.UniversalClient
	log        *logger.Logger
	backoffCfg backoff.Config
}

// Бюджет ретраев Put/Get/Delete на пути запроса.
const (
	requestRetryBudget   = 500 * time.Millisecond
	requestRetryAttempts = 3
)

// NewRedisStore оборачивает уже подключённого клиента. bo (обычно backoff
// подключения) ужимается до бюджета запроса, чтобы недоступный Redis не держал его.
func NewRedisStore(client goredis.UniversalClient, bo backoff.Config, log *logger.Logger) *RedisStore {
	bo = bo.Bounded(requestRetryBudget, requestRetryAttempts)
	return &RedisStore{client: client, log: log.Named("revocation"), backoffCfg: bo}
}

func (s *RedisStore) observe(op string, start time.Time) {
	storeMetrics.Latency.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

func (s *RedisStore) fail(ctx context.Context, span trace.Span, op, userID string, err error) error {
	storeMetrics.Errors.WithLabelValues(op).Inc()
	span.RecordError(err)
	s.log.WithContext(ctx).Error("revocation store "+op+" failed", zap.String("user_id", userID), zap.Error(err))
	return fmt.Errorf("revocation: %s: %w", op, err)
}

// Put перезаписывает запись пользователя.
func (s *RedisStore) Put(ctx context.Context, userID, token string, ttl time.Duration) error {
	ctx, span := tracer.Start(ctx, "Put", trace.WithAttributes(attribute.String("user_id", userID)))
	defer span.End()
	defer s.observe("put", time.Now())

	op := func(ctx context.Context) error {
		return s.client.Set(ctx, Key(userID), token, ttl).Err()
	}
	if err := backoff.Execute(ctx, s.backoffCfg, s.log, op); err != nil {
		return s.fail(ctx, span, "put", userID, err)
	}
	return nil
}

// Get возвращает текущий токен пользователя.
func (s *RedisStore) Get(ctx context.Context, userID string) (string, error) {
	ctx, span := tracer.Start(ctx, "Get", trace.WithAttributes(attribute.String("user_id", userID)))
	defer span.End()
	defer s.observe("get", time.Now())

	var val string
	op := func(ctx context.Context) error {
		v, err := s.client.Get(ctx, Key(userID)).Result()
		if errors.Is(err, goredis.Nil) {
			return backoff.Permanent(ErrNotFound)
		}
		if err != nil {
			return err
		}
		val = v
		return nil
	}
	if err := backoff.Execute(ctx, s.backoffCfg, s.log, op); err != nil {
		if errors.Is(err, ErrNotFound) {
			return "", ErrNotFound
		}
		return "", s.fail(ctx, span, "get", userID, err)
	}
	return val, nil
}

// Delete удаляет запись пользователя.
func (s *RedisStore) Delete(ctx context.Context, userID string) error {
	ctx, span := tracer.Start(ctx, "Delete", trace.WithAttributes(attribute.String("user_id", userID)))
	defer span.End()
	defer s.observe("delete", time.Now())

	op := func(ctx context.Context) error {
		return s.client.Del(ctx, Key(userID)).Err()
	}
	if err := backoff.Execute(ctx, s.backoffCfg, s.log, op); err != nil {
		return s.fail(ctx, span, "delete", userID, err)
	}
	return nil
}

// Rotate выполняет compare-and-set одним Lua-скриптом.
// Не ретраится: потерянный ответ после успешной замены выглядел бы как ErrMismatch.
func (s *RedisStore) Rotate(ctx context.Context, userID, presented, next string, ttl time.Duration) error {
	ctx, span := tracer.Start(ctx, "Rotate", trace.WithAttributes(attribute.String("user_id", userID)))
	defer span.End()
	defer s.observe("rotate", time.Now())

	swapped, err := rotateScript.Run(ctx, s.client, []string{Key(userID)}, presented, next, ttl.Milliseconds()).Int()
	if err != nil {
		return s.fail(ctx, span, "rotate", userID, err)
	}
	if swapped != 1 {
		storeMetrics.Mismatch.Inc()
		return ErrMismatch
	}
	storeMetrics.Rotations.Inc()
	return nil
}

// Ping проверяет соединение.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close закрывает клиента.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
