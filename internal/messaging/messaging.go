package messaging

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Additional-Code/procura/internal/config"
)

// Message is an order event consumed from the bus.
type Message struct {
	Topic   string
	Key     []byte
	Value   []byte
	Headers map[string]string
	Offset  int64
	Time    time.Time
}

// Handler processes an inbound message. The kafka client retries a failing
// handler, then logs the message as dropped and commits past it.
type Handler func(context.Context, Message) error

// Client publishes and consumes order events.
type Client interface {
	Publish(ctx context.Context, key []byte, value []byte) error
	Consume(ctx context.Context, handler Handler) error
	Topic() string
}

// Module wires the messaging client.
var Module = fx.Provide(NewClient)

const (
	fetchBackoff   = time.Second
	handleAttempts = 3
	handleBackoff  = 500 * time.Millisecond
)

// Retry wraps handler so that a failure is retried up to attempts times in
// total, waiting backoff times the attempt number in between. It gives up
// early when ctx ends and returns the last handler error.
func Retry(handler Handler, attempts int, backoff time.Duration) Handler {
	return func(ctx context.Context, msg Message) error {
		var err error
		for attempt := 1; attempt <= attempts; attempt++ {
			if err = handler(ctx, msg); err == nil {
				return nil
			}
			if attempt == attempts {
				break
			}
			select {
			case <-ctx.Done():
				return errors.Join(err, ctx.Err())
			case <-time.After(backoff * time.Duration(attempt)):
			}
		}
		return err
	}
}

// NewClient builds a messaging client based on configuration.
func NewClient(lc fx.Lifecycle, cfg config.Config, logger *zap.Logger) (Client, error) {
	if !cfg.Messaging.Enabled || cfg.Messaging.Driver == "noop" {
		logger.Info("messaging disabled; using noop client")
		return Noop{topic: cfg.Messaging.Kafka.Topic}, nil
	}

	switch cfg.Messaging.Driver {
	case "kafka":
		return newKafkaClient(lc, cfg, logger), nil
	default:
		return nil, fmt.Errorf("unsupported messaging driver: %s", cfg.Messaging.Driver)
	}
}

// Noop drops published events and blocks consumers until cancelled.
type Noop struct {
	topic string
}

// NewNoop returns a Noop bound to topic.
func NewNoop(topic string) Noop { return Noop{topic: topic} }

func (Noop) Publish(context.Context, []byte, []byte) error { return nil }

func (Noop) Consume(ctx context.Context, _ Handler) error {
	<-ctx.Done()
	return ctx.Err()
}

func (n Noop) Topic() string { return n.topic }

type kafkaClient struct {
	writer   *kafka.Writer
	reader   *kafka.Reader
	topic    string
	clientID string
	logger   *zap.Logger
}

func newKafkaClient(lc fx.Lifecycle, cfg config.Config, logger *zap.Logger) *kafkaClient {
	kc := cfg.Messaging.Kafka
	log := logger.Named("kafka")

	writer := &kafka.Writer{
		Addr:         kafka.TCP(kc.Brokers...),
		Topic:        kc.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		Logger:       kafkaLogger{logger: log},
		ErrorLogger:  kafkaErrorLogger{logger: log},
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        kc.Brokers,
		GroupID:        cfg.Messaging.ConsumerGroup,
		Topic:          kc.Topic,
		MinBytes:       kc.MinBytes,
		MaxBytes:       kc.MaxBytes,
		CommitInterval: kc.CommitInterval,
		Dialer: &kafka.Dialer{
			Timeout:  kc.ConnectTimeout,
			ClientID: kc.ClientID,
		},
		Logger:      kafkaLogger{logger: log},
		ErrorLogger: kafkaErrorLogger{logger: log},
	})

	client := &kafkaClient{writer: writer, reader: reader, topic: kc.Topic, clientID: kc.ClientID, logger: log}

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			log.Info("closing kafka client")
			return errors.Join(writer.Close(), reader.Close())
		},
	})

	return client
}

// Publish writes value keyed by key so every event of one order lands on the same partition.
func (k *kafkaClient) Publish(ctx context.Context, key []byte, value []byte) error {
	msg := kafka.Message{
		Key:   key,
		Value: value,
		Headers: []kafka.Header{
			{Key: "content-type", Value: []byte("application/json")},
			{Key: "producer", Value: []byte(k.clientID)},
		},
	}
	if err := k.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish to %s: %w", k.topic, err)
	}
	return nil
}

func (k *kafkaClient) Consume(ctx context.Context, handler Handler) error {
	handler = Retry(handler, handleAttempts, handleBackoff)
	for {
		msg, err := k.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			k.logger.Error("kafka fetch failed", zap.Error(err))

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(fetchBackoff):
			}
			continue
		}

		if err := handler(ctx, FromKafka(msg)); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			k.logger.Error("message dropped after retries",
				zap.Error(err),
				zap.String("topic", msg.Topic),
				zap.Int("partition", msg.Partition),
				zap.Int64("offset", msg.Offset),
				zap.ByteString("key", msg.Key),
				zap.Int("attempts", handleAttempts),
			)
		}

		if err := k.reader.CommitMessages(ctx, msg); err != nil {
			k.logger.Warn("commit failed", zap.Error(err), zap.Int64("offset", msg.Offset))
		}
	}
}

func (k *kafkaClient) Topic() string { return k.topic }

// FromKafka copies a kafka-go message into a Message.
func FromKafka(msg kafka.Message) Message {
	out := Message{
		Topic:  msg.Topic,
		Key:    append([]byte(nil), msg.Key...),
		Value:  append([]byte(nil), msg.Value...),
		Offset: msg.Offset,
		Time:   msg.Time,
	}
	if len(msg.Headers) > 0 {
		out.Headers = make(map[string]string, len(msg.Headers))
		for _, h := range msg.Headers {
			out.Headers[h.Key] = string(h.Value)
		}
	}
	return out
}

type kafkaLogger struct {
	logger *zap.Logger
}

func (k kafkaLogger) Printf(msg string, args ...any) {
	k.logger.Sugar().Debugf(msg, args...)
}

type kafkaErrorLogger struct {
	logger *zap.Logger
}

func (k kafkaErrorLogger) Printf(msg string, args ...any) {
	k.logger.Sugar().Errorf(msg, args...)
}
