// services/authgate/internal/events/async.go
package events

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/YaganovValera/storefront-auth/common/logger"
	"github.com/YaganovValera/storefront-auth/services/authgate/internal/metrics"
)

// ErrQueueFull — очередь переполнена, событие отброшено.
var ErrQueueFull = errors.New("events: queue full")

// ErrClosed — публикация после Close.
var ErrClosed = errors.New("events: publisher closed")

// AsyncConfig — параметры очереди событий.
type AsyncConfig struct {
	// QueueSize — ёмкость очереди; при переполнении событие отбрасывается.
	QueueSize int `mapstructure:"queue_size"`
	// PublishTimeout ограничивает одну доставку в next.
	PublishTimeout time.Duration `mapstructure:"publish_timeout"`
}

func (c *AsyncConfig) applyDefaults() {
	if c.QueueSize <= 0 {
		c.QueueSize = 1024
	}
	if c.PublishTimeout <= 0 {
		c.PublishTimeout = 5 * time.Second
	}
}

type queued struct {
	ctx context.Context
	ev  Event
}

// Async отвязывает публикацию от запроса: Publish только ставит событие
// в ограниченную очередь, доставку в next выполняет отдельная горутина.
type Async struct {
	next    Publisher
	cfg     AsyncConfig
	log     *logger.Logger
	queue   chan queued
	done    chan struct{}
	mu      sync.RWMutex
	closed  bool
	closeMu sync.Once
}

// NewAsync запускает горутину доставки; остановить её нужно через Close.
func NewAsync(next Publisher, cfg AsyncConfig, log *logger.Logger) *Async {
	cfg.applyDefaults()
	a := &Async{
		next:  next,
		cfg:   cfg,
		log:   log.Named("events-async"),
		queue: make(chan queued, cfg.QueueSize),
		done:  make(chan struct{}),
	}
	go a.drain()
	return a
}

// Publish не блокируется: событие либо в очереди, либо отброшено.
// Отмена запроса на доставку не влияет, значения контекста (trace, request id) сохраняются.
func (a *Async) Publish(ctx context.Context, ev Event) error {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		return ErrClosed
	}
	select {
	case a.queue <- queued{ctx: context.WithoutCancel(ctx), ev: ev}:
		return nil
	default:
		metrics.DroppedEvents.Inc()
		a.log.WithContext(ctx).Warn("auth event dropped: queue full",
			zap.String("type", string(ev.Type)), zap.Int64("user_id", ev.UserID))
		return ErrQueueFull
	}
}

func (a *Async) drain() {
	defer close(a.done)
	for q := range a.queue {
		ctx, cancel := context.WithTimeout(q.ctx, a.cfg.PublishTimeout)
		if err := a.next.Publish(ctx, q.ev); err != nil {
			a.log.WithContext(ctx).Debug("auth event delivery failed",
				zap.String("type", string(q.ev.Type)), zap.Error(err))
		}
		cancel()
	}
}

// Close перестаёт принимать события и ждёт доставки уже поставленных в очередь
// либо отмены ctx.
func (a *Async) Close(ctx context.Context) error {
	a.closeMu.Do(func() {
		a.mu.Lock()
		a.closed = true
		close(a.queue)
		a.mu.Unlock()
	})
	select {
	case <-a.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
