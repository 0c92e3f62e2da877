package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"lostFoundWs/internal/modules/realtime/application/port"
	"lostFoundWs/internal/modules/realtime/domain"
)

// RedisRelay fans user-addressed deliveries out to every instance over one Redis
// pub/sub channel. Each instance delivers to the connections it holds itself.
type RedisRelay struct {
	client  *redis.Client
	channel string
	logger  *slog.Logger
}

type Options struct {
	Addr     string
	Password string
	DB       int
	Channel  string
}

func New(opts Options, logger *slog.Logger) *RedisRelay {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	return NewWithClient(client, opts.Channel, logger)
}

func NewWithClient(client *redis.Client, channel string, logger *slog.Logger) *RedisRelay {
	if logger == nil {
		logger = slog.Default()
	}
	if channel == "" {
		channel = "lostfound:realtime"
	}
	return &RedisRelay{
		client:  client,
		channel: channel,
		logger:  logger.With(slog.String("component", "redis-relay"), slog.String("channel", channel)),
	}
}

// Ping checks the connection so a bad address fails at start rather than on the
// first push.
func (r *RedisRelay) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisRelay) Publish(ctx context.Context, d domain.Delivery) error {
	data, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("encode delivery: %w", err)
	}
	if err := r.client.Publish(ctx, r.channel, data).Err(); err != nil {
		return fmt.Errorf("publish delivery: %w", err)
	}
	return nil
}

// Run subscribes and calls deliver for each record until ctx ends. Records that do
// not decode are logged and skipped.
func (r *RedisRelay) Run(ctx context.Context, deliver func(context.Context, domain.Delivery)) error {
	sub := r.client.Subscribe(ctx, r.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", r.channel, err)
	}
	r.logger.Info("relay subscribed")

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var d domain.Delivery
			if err := json.Unmarshal([]byte(msg.Payload), &d); err != nil {
				r.logger.Warn("relay record skipped", slog.Any("error", err))
				continue
			}
			event, known := domain.ParseEvent(string(d.Event))
			if d.UserID <= 0 || !known {
				r.logger.Warn("relay record skipped", slog.Int64("userId", d.UserID), slog.String("event", d.Event.String()))
				continue
			}
			d.Event = event
			deliver(ctx, d)
		}
	}
}

func (r *RedisRelay) Close() error {
	return r.client.Close()
}

var _ port.Relay = (*RedisRelay)(nil)
