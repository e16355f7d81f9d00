// common/kafka/interface.go
//
// Пакет kafka задаёт минимальный контракт публикации сообщений, не тянет
// за собой Sarama и никак не зависит от конкретной реализации.
package kafka

import "context"

// Producer публикует сообщения в Kafka.
type Producer interface {
	// Publish ставит сообщение в очередь отправки и не ждёт подтверждения брокера;
	// ошибки доставки учитываются продьюсером асинхронно.
	Publish(ctx context.Context, topic string, key, value []byte) error
	// Ping проверяет достижимость кластера (обновление метаданных).
	Ping(ctx context.Context) error
	Close() error
}
