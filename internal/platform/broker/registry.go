package broker

import (
	"context"
	"log/slog"
	"sync"

	"lostFoundWs/internal/modules/realtime/domain"
)

// Router receives every consumed event.
type Router interface {
	Dispatch(ctx context.Context, evt *domain.DomainEvent) error
}

// StartKafkaConsumers runs one consumer per topic until ctx is cancelled. The
// returned function waits for them to stop and closes their readers.
func StartKafkaConsumers(
	ctx context.Context,
	router Router,
	brokers []string,
	groupID string,
	topics []string,
	logger *slog.Logger,
) (wait func()) {
	var wg sync.WaitGroup
	if len(brokers) == 0 || len(topics) == 0 {
		// kafka.NewReader panics on an empty broker list
		return wg.Wait
	}
	for _, topic := range topics {
		consumer := NewKafkaConsumer(brokers, groupID, topic, logger)
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer consumer.Close()
			_ = consumer.Consume(ctx, router.Dispatch)
		}()
	}
	return wg.Wait
}
