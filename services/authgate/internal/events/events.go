// services/authgate/internal/events/events.go

// Package events публикует события аутентификации (login, logout, register, rotate).
package events

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"go.uber.org/zap"

	commonkafka "github.com/YaganovValera/storefront-auth/common/kafka"
	"github.com/YaganovValera/storefront-auth/common/logger"
)

// Type — вид события.
type Type string

const (
	Login    Type = "login"
	Logout   Type = "logout"
	Register Type = "register"
	Rotate   Type = "rotate"
)

// Event — запись в топик аудита.
type Event struct {
	Type   Type      `json:"type"`
	UserID int64     `json:"user_id"`
	At     time.Time `json:"at"`
}

// Publisher доставляет события. Ошибки только логируются вызывающей стороной
// и никогда не валят запрос; блокирующие реализации на пути запроса
// оборачиваются в Async.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// Noop — Publisher без брокера.
type Noop struct{}

func (Noop) Publish(context.Context, Event) error { return nil }

// KafkaPublisher пишет события JSON-ом в один топик, ключ — user_id.
type KafkaPublisher struct {
	producer commonkafka.Producer
	topic    string
	log      *logger.Logger
}

func NewKafkaPublisher(p commonkafka.Producer, topic string, log *logger.Logger) *KafkaPublisher {
	return &KafkaPublisher{producer: p, topic: topic, log: log.Named("events")}
}

func (k *KafkaPublisher) Publish(ctx context.Context, ev Event) error {
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	value, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	key := []byte(strconv.FormatInt(ev.UserID, 10))
	if err := k.producer.Publish(ctx, k.topic, key, value); err != nil {
		k.log.WithContext(ctx).Warn("auth event not published",
			zap.String("type", string(ev.Type)), zap.Int64("user_id", ev.UserID), zap.Error(err))
		return err
	}
	return nil
}

// Emit публикует событие и проглатывает ошибку. Контекст отвязан от отмены запроса.
func Emit(ctx context.Context, p Publisher, typ Type, userID int64) {
	if p == nil {
		return
	}
	_ = p.Publish(context.WithoutCancel(ctx), Event{Type: typ, UserID: userID, At: time.Now().UTC()})
}
