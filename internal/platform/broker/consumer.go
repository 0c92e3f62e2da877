package broker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"

	"lostFoundWs/internal/modules/realtime/application/port"
	"lostFoundWs/internal/modules/realtime/domain"
)

// KindHeader lets producers put the event kind in a record header instead of the body.
const KindHeader = "kind"

type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// KafkaConsumer reads domain events from one topic.
type KafkaConsumer struct {
	reader messageReader
	topic  string
	logger *slog.Logger
	// backoff after a read error that is not a cancellation
	backoff time.Duration
}

func NewKafkaConsumer(brokers []string, groupID, topic string, logger *slog.Logger) *KafkaConsumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers: brokers,
		GroupID: groupID,
		Topic:   topic,
	})
	return newConsumer(reader, topic, logger)
}

func newConsumer(reader messageReader, topic string, logger *slog.Logger) *KafkaConsumer {
	if logger == nil {
		logger = slog.Default()
	}
	return &KafkaConsumer{
		reader:  reader,
		topic:   topic,
		logger:  logger.With(slog.String("component", "kafka-consumer"), slog.String("topic", topic)),
		backoff: time.Second,
	}
}

// Consume hands every decodable record to handler until ctx ends. Records that do
// not decode, and handler errors, are logged and skipped.
func (c *KafkaConsumer) Consume(ctx context.Context, handler func(context.Context, *domain.DomainEvent) error) error {
	for {
		m, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.logger.Warn("kafka read error", slog.Any("error", err))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(c.backoff):
			}
			continue
		}

		evt, err := decodeEvent(m)
		if err != nil {
			c.logger.Warn("kafka record skipped",
				slog.Int("partition", m.Partition),
				slog.Int64("offset", m.Offset),
				slog.Any("error", err))
			continue
		}
		c.logger.Debug("kafka event consumed",
			slog.Int("partition", m.Partition),
			slog.Int64("offset", m.Offset),
			slog.String("kind", evt.Kind))
		if err := handler(ctx, evt); err != nil {
			c.logger.Warn("kafka handler error", slog.String("kind", evt.Kind), slog.Any("error", err))
		}
	}
}

func (c *KafkaConsumer) Close() error {
	return c.reader.Close()
}

var errEmptyRecord = errors.New("empty record")

func decodeEvent(m kafka.Message) (*domain.DomainEvent, error) {
	if len(m.Value) == 0 {
		return nil, errEmptyRecord
	}
	var evt domain.DomainEvent
	if err := json.Unmarshal(m.Value, &evt); err != nil {
		return nil, fmt.Errorf("decode domain event: %w", err)
	}
	if strings.TrimSpace(evt.Kind) == "" {
		evt.Kind = headerValue(m.Headers, KindHeader)
	}
	evt.Kind = domain.NormalizeKind(evt.Kind)
	return &evt, nil
}

func headerValue(headers []kafka.Header, key string) string {
	for _, h := range headers {
		if strings.EqualFold(h.Key, key) {
			return string(h.Value)
		}
	}
	return ""
}

var _ port.EventConsumer = (*KafkaConsumer)(nil)
