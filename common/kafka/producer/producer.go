// common/kafka/producer/producer.go

// Package producer — асинхронный продьюсер Kafka: Publish ставит сообщение
// в буфер Sarama, итог доставки учитывается в метриках и логах.
package producer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/IBM/sarama"
	"github.com/dnwe/otelsarama"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/YaganovValera/storefront-auth/common/backoff"
	commonkafka "github.com/YaganovValera/storefront-auth/common/kafka"
	"github.com/YaganovValera/storefront-auth/common/logger"
)

var serviceLabel = "unknown"

// SetServiceLabel вызывается из common.InitServiceName(..) один раз при старте.
func SetServiceLabel(name string) { serviceLabel = name }

// ErrClosed — Publish после Close.
var ErrClosed = errors.New("kafka producer: closed")

var producerMetrics = struct {
	ConnectErrors  *prometheus.CounterVec
	Enqueued       *prometheus.CounterVec
	Delivered      *prometheus.CounterVec
	DeliveryErrors *prometheus.CounterVec
	DeliveryDelay  *prometheus.HistogramVec
	PingErrors     *prometheus.CounterVec
}{
	ConnectErrors: promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "common", Subsystem: "kafka_producer", Name: "connect_errors_total",
		Help: "Kafka producer connect errors",
	}, []string{"service"}),
	Enqueued: promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "common", Subsystem: "kafka_producer", Name: "enqueued_total",
		Help: "Messages handed to the async producer",
	}, []string{"service", "topic"}),
	Delivered: promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "common", Subsystem: "kafka_producer", Name: "delivered_total",
		Help: "Messages acknowledged by the cluster",
	}, []string{"service", "topic"}),
	DeliveryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "common", Subsystem: "kafka_producer", Name: "delivery_errors_total",
		Help: "Messages the producer gave up on",
	}, []string{"service", "topic"}),
	DeliveryDelay: promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "common", Subsystem: "kafka_producer", Name: "delivery_delay_seconds",
		Help:    "Time from enqueue to ack",
		Buckets: prometheus.DefBuckets,
	}, []string{"service"}),
	PingErrors: promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "common", Subsystem: "kafka_producer", Name: "ping_errors_total",
		Help: "Metadata refresh errors",
	}, []string{"service"}),
}

var tracer = otel.Tracer("kafka-producer")

// Config — параметры продьюсера. Нулевые значения заменяются дефолтами.
type Config struct {
	Brokers []string `mapstructure:"brokers"`
	// RequiredAcks: "all" (дефолт) | "leader" | "none".
	RequiredAcks string        `mapstructure:"required_acks"`
	Timeout      time.Duration `mapstructure:"timeout"`
	// Compression: "none" (дефолт) | "gzip" | "snappy" | "lz4" | "zstd".
	Compression    string        `mapstructure:"compression"`
	FlushFrequency time.Duration `mapstructure:"flush_frequency"`
	FlushMessages  int           `mapstructure:"flush_messages"`
	// QueueSize — ёмкость входного буфера Sarama.
	QueueSize int `mapstructure:"queue_size"`
	// MaxRetries — повторы отправки внутри Sarama.
	MaxRetries int `mapstructure:"max_retries"`
	// Backoff — ретраи подключения при старте; InitialInterval задаёт паузу между повторами отправки.
	Backoff  backoff.Config `mapstructure:"backoff"`
	ClientID string         `mapstructure:"client_id"`
}

func (c *Config) applyDefaults() {
	if c.Timeout <= 0 {
		c.Timeout = 5 * time.Second
	}
	if c.RequiredAcks == "" {
		c.RequiredAcks = "all"
	}
	if c.Compression == "" {
		c.Compression = "none"
	}
	if c.QueueSize <= 0 {
		c.QueueSize = 256
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	if c.Backoff.MaxElapsedTime <= 0 {
		c.Backoff.MaxElapsedTime = 30 * time.Second
	}
	if c.ClientID == "" {
		c.ClientID = serviceLabel
	}
}

func (c Config) validate() error {
	if len(c.Brokers) == 0 {
		return fmt.Errorf("kafka producer: brokers required")
	}
	return nil
}

func buildSaramaConfig(c Config) (*sarama.Config, error) {
	sc := sarama.NewConfig()
	if c.ClientID != "" && c.ClientID != "unknown" {
		sc.ClientID = c.ClientID
	}

	switch strings.ToLower(c.RequiredAcks) {
	case "all":
		sc.Producer.RequiredAcks = sarama.WaitForAll
		// идемпотентность Sarama допускает только acks=all
		sc.Producer.Idempotent = true
		sc.Net.MaxOpenRequests = 1
	case "leader":
		sc.Producer.RequiredAcks = sarama.WaitForLocal
	case "none":
		sc.Producer.RequiredAcks = sarama.NoResponse
	default:
		return nil, fmt.Errorf("kafka producer: invalid RequiredAcks %q", c.RequiredAcks)
	}

	sc.Producer.Return.Successes = true
	sc.Producer.Return.Errors = true
	sc.Producer.Timeout = c.Timeout
	if c.MaxRetries > 0 {
		sc.Producer.Retry.Max = c.MaxRetries
	}
	if c.Backoff.InitialInterval > 0 {
		sc.Producer.Retry.Backoff = c.Backoff.InitialInterval
	}
	if c.QueueSize > 0 {
		sc.ChannelBufferSize = c.QueueSize
	}
	if c.FlushFrequency > 0 {
		sc.Producer.Flush.Frequency = c.FlushFrequency
	}
	if c.FlushMessages > 0 {
		sc.Producer.Flush.Messages = c.FlushMessages
	}

	switch strings.ToLower(c.Compression) {
	case "none":
		sc.Producer.Compression = sarama.CompressionNone
	case "gzip":
		sc.Producer.Compression = sarama.CompressionGZIP
	case "snappy":
		sc.Producer.Compression = sarama.CompressionSnappy
	case "lz4":
		sc.Producer.Compression = sarama.CompressionLZ4
	case "zstd":
		sc.Producer.Compression = sarama.CompressionZSTD
	default:
		return nil, fmt.Errorf("kafka producer: invalid Compression %q", c.Compression)
	}
	return sc, nil
}

type kafkaProducer struct {
	prod   sarama.AsyncProducer
	client sarama.Client
	log    *logger.Logger

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// New подключается к кластеру (с back-off) и запускает чтение результатов доставки.
func New(ctx context.Context, cfg Config, log *logger.Logger) (commonkafka.Producer, error) {
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	log = log.Named("kafka-producer")

	sc, err := buildSaramaConfig(cfg)
	if err != nil {
		return nil, err
	}

	var (
		client sarama.Client
		async  sarama.AsyncProducer
	)
	connect := func(ctx context.Context) error {
		c, err := sarama.NewClient(cfg.Brokers, sc)
		if err != nil {
			producerMetrics.ConnectErrors.WithLabelValues(serviceLabel).Inc()
			return err
		}
		p, err := sarama.NewAsyncProducerFromClient(c)
		if err != nil {
			_ = c.Close()
			producerMetrics.ConnectErrors.WithLabelValues(serviceLabel).Inc()
			return err
		}
		client, async = c, p
		return nil
	}

	ctxConn, span := tracer.Start(ctx, "Connect",
		trace.WithAttributes(attribute.StringSlice("brokers", cfg.Brokers)))
	defer span.End()
	if err := backoff.Execute(ctxConn, cfg.Backoff, log, connect); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("kafka producer: connect: %w", err)
	}

	log.Info("kafka producer ready",
		zap.Strings("brokers", cfg.Brokers), zap.Int("queue_size", cfg.QueueSize))
	return newProducer(otelsarama.WrapAsyncProducer(sc, async), client, log), nil
}

// enqueuedAt — Metadata сообщения для замера задержки доставки.
type enqueuedAt struct{ t time.Time }

func newProducer(p sarama.AsyncProducer, client sarama.Client, log *logger.Logger) *kafkaProducer {
	k := &kafkaProducer{prod: p, client: client, log: log}
	k.wg.Add(2)
	go k.readSuccesses()
	go k.readErrors()
	return k
}

func (k *kafkaProducer) readSuccesses() {
	defer k.wg.Done()
	for msg := range k.prod.Successes() {
		producerMetrics.Delivered.WithLabelValues(serviceLabel, msg.Topic).Inc()
		if at, ok := msg.Metadata.(enqueuedAt); ok {
			producerMetrics.DeliveryDelay.WithLabelValues(serviceLabel).Observe(time.Since(at.t).Seconds())
		}
	}
}

func (k *kafkaProducer) readErrors() {
	defer k.wg.Done()
	for perr := range k.prod.Errors() {
		topic := ""
		if perr.Msg != nil {
			topic = perr.Msg.Topic
		}
		producerMetrics.DeliveryErrors.WithLabelValues(serviceLabel, topic).Inc()
		k.log.Warn("kafka delivery failed", zap.String("topic", topic), zap.Error(perr.Err))
	}
}

// Publish ставит сообщение в буфер продьюсера. Блокируется, только пока буфер
// полон, и не дольше ctx. Trace-контекст уходит в заголовках сообщения.
func (k *kafkaProducer) Publish(ctx context.Context, topic string, key, value []byte) error {
	k.mu.RLock()
	defer k.mu.RUnlock()
	if k.closed {
		return ErrClosed
	}

	msg := &sarama.ProducerMessage{
		Topic:    topic,
		Key:      sarama.ByteEncoder(key),
		Value:    sarama.ByteEncoder(value),
		Metadata: enqueuedAt{t: time.Now()},
	}
	otel.GetTextMapPropagator().Inject(ctx, otelsarama.NewProducerMessageCarrier(msg))

	select {
	case k.prod.Input() <- msg:
		producerMetrics.Enqueued.WithLabelValues(serviceLabel, topic).Inc()
		return nil
	case <-ctx.Done():
		producerMetrics.DeliveryErrors.WithLabelValues(serviceLabel, topic).Inc()
		return fmt.Errorf("kafka producer: enqueue %s: %w", topic, ctx.Err())
	}
}

// Ping обновляет метаданные клиента, проверяя доступность кластера.
func (k *kafkaProducer) Ping(ctx context.Context) error {
	_, span := tracer.Start(ctx, "Ping")
	defer span.End()
	if k.client == nil {
		return nil
	}
	if err := k.client.RefreshMetadata(); err != nil {
		producerMetrics.PingErrors.WithLabelValues(serviceLabel).Inc()
		span.RecordError(err)
		return err
	}
	return nil
}

// Close дожидается доставки буфера, затем закрывает клиента.
func (k *kafkaProducer) Close() error {
	k.mu.Lock()
	if k.closed {
		k.mu.Unlock()
		return nil
	}
	k.closed = true
	k.mu.Unlock()

	// AsyncClose закрывает Successes/Errors после сброса буфера; их дочитывают readers.
	k.prod.AsyncClose()
	k.wg.Wait()

	if k.client != nil {
		if err := k.client.Close(); err != nil && !errors.Is(err, sarama.ErrClosedClient) {
			k.log.Error("client close failed", zap.Error(err))
			return err
		}
	}
	k.log.Info("kafka producer closed")
	return nil
}
