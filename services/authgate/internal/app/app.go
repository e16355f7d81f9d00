// services/authgate/internal/app/app.go
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/YaganovValera/storefront-auth/common"
	"github.com/YaganovValera/storefront-auth/common/httpserver"
	"github.com/YaganovValera/storefront-auth/common/kafka/producer"
	"github.com/YaganovValera/storefront-auth/common/logger"
	commonmw "github.com/YaganovValera/storefront-auth/common/middleware"
	commonredis "github.com/YaganovValera/storefront-auth/common/redis"
	"github.com/YaganovValera/storefront-auth/common/shutdown"
	"github.com/YaganovValera/storefront-auth/common/telemetry"
	"github.com/YaganovValera/storefront-auth/services/authgate/internal/config"
	"github.com/YaganovValera/storefront-auth/services/authgate/internal/events"
	"github.com/YaganovValera/storefront-auth/services/authgate/internal/identity"
	"github.com/YaganovValera/storefront-auth/services/authgate/internal/middleware"
	"github.com/YaganovValera/storefront-auth/services/authgate/internal/password"
	"github.com/YaganovValera/storefront-auth/services/authgate/internal/revocation"
	"github.com/YaganovValera/storefront-auth/services/authgate/internal/storage/postgres"
	"github.com/YaganovValera/storefront-auth/services/authgate/internal/token"
	transport "github.com/YaganovValera/storefront-auth/services/authgate/internal/transport/http"
	"github.com/YaganovValera/storefront-auth/services/authgate/internal/usecase"
)

func Run(ctx context.Context, cfg *config.Config, log *logger.Logger) error {
	common.InitServiceName(cfg.ServiceName)

	// === Telemetry
	cfg.Telemetry.ServiceName = cfg.ServiceName
	cfg.Telemetry.ServiceVersion = cfg.ServiceVersion
	shutdownTracer, err := telemetry.InitTracer(ctx, cfg.Telemetry, log)
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer closeSafe("telemetry", shutdownTracer, log)

	// === Token codec
	codec, err := token.NewCodec(cfg.JWT.Secret, cfg.JWT.Algorithm)
	if err != nil {
		return fmt.Errorf("token codec: %w", err)
	}

	// === PostgreSQL
	pool, err := postgres.Connect(ctx, cfg.Postgres, log)
	if err != nil {
		return fmt.Errorf("postgres connect: %w", err)
	}
	defer closeSafe("postgres", shutdown.Closer(func() error { pool.Close(); return nil }), log)

	if cfg.Postgres.MigrateOnStart {
		if err := postgres.ApplyMigrations(ctx, pool, log); err != nil {
			return err
		}
	}
	users := postgres.NewUserRepo(pool)

	// === Redis
	rdb, err := commonredis.Connect(ctx, cfg.Redis, log)
	if err != nil {
		return fmt.Errorf("redis connect: %w", err)
	}
	store := revocation.NewRedisStore(rdb, cfg.Redis.Backoff, log)
	defer closeSafe("redis", shutdown.Closer(store.Close), log)

	// === Auth events
	var publisher events.Publisher = events.Noop{}
	var kafkaReady func(context.Context) error
	if cfg.EventsEnabled() {
		prod, err := producer.New(ctx, cfg.Events.Kafka, log)
		if err != nil {
			return fmt.Errorf("kafka producer: %w", err)
		}
		defer closeSafe("kafka-producer", shutdown.Closer(prod.Close), log)
		queue := events.NewAsync(events.NewKafkaPublisher(prod, cfg.Events.Topic, log), cfg.Events.Queue, log)
		defer closeSafe("auth-events", queue.Close, log)
		publisher = queue
		kafkaReady = prod.Ping
	} else {
		log.Info("auth events disabled: no kafka brokers configured")
	}

	// === Use cases
	hasher := password.NewHasher(cfg.Password.BcryptCost)
	ttl := usecase.TTL{Access: cfg.AccessTTL(), Refresh: cfg.RefreshTTL()}
	uc := usecase.NewHandler(
		usecase.NewLoginHandler(users, store, codec, hasher, publisher, ttl, log),
		usecase.NewRegisterHandler(users, hasher, publisher, log),
		usecase.NewLogoutHandler(store, publisher),
		usecase.NewUserHandler(users),
	)

	// === Auth pipeline
	cookies := cfg.CookieConfig()
	rotation := middleware.NewRotation(codec, store, publisher, middleware.RotationConfig{
		Exclude:    cfg.Paths.RotationExclude,
		AccessTTL:  ttl.Access,
		RefreshTTL: ttl.Refresh,
		Cookies:    cookies,
	}, log)
	gate := middleware.NewGate(identity.NewResolver(codec, users, log), middleware.GateConfig{
		PublicPaths:       cfg.Paths.Public,
		PublicGETPrefixes: cfg.Paths.PublicGETPrefixes,
	})
	pipeline := middleware.NewPipeline(log, middleware.DefaultStages(rotation, gate)...)
	log.Info("auth pipeline ready",
		zap.String("stages", strings.Join(pipeline.Names(), " -> ")),
		zap.String("algorithm", codec.Algorithm()),
		zap.Bool("secure_cookies", cookies.Secure),
	)

	routes := map[string]http.Handler{
		"/": transport.Routes(transport.NewHandler(uc, cookies, log), pipeline, cfg.UserLookupRoles()...),
	}

	readiness := func() error {
		ctxPing, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if err := pool.Ping(ctxPing); err != nil {
			return fmt.Errorf("postgres: %w", err)
		}
		if err := store.Ping(ctxPing); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
		if kafkaReady != nil {
			if err := kafkaReady(ctxPing); err != nil {
				return fmt.Errorf("kafka: %w", err)
			}
		}
		return nil
	}

	httpSrv, err := httpserver.New(cfg.HTTP, readiness, log, routes,
		commonmw.RequestID(),
		commonmw.TraceContext(),
		commonmw.RequestLogger(log),
		commonmw.Metrics(transport.PathLabel),
		httpserver.RecoverMiddleware(log),
		httpserver.CORSMiddleware(cfg.HTTP.CORS),
	)
	if err != nil {
		return fmt.Errorf("httpserver init: %w", err)
	}

	log.WithContext(ctx).Info("authgate: starting services")
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return httpSrv.Run(ctx) })

	if err := g.Wait(); err != nil {
		if errors.Is(err, context.Canceled) {
			log.WithContext(ctx).Info("authgate shut down cleanly")
			return nil
		}
		log.WithContext(ctx).Error("authgate exited with error", zap.Error(err))
		return err
	}

	log.WithContext(ctx).Info("authgate shut down complete")
	return nil
}

func closeSafe(name string, fn func(context.Context) error, log *logger.Logger) {
	_ = shutdown.Graceful(name, 5*time.Second, fn, log)
}
