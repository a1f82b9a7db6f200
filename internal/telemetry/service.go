package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"

	kafkax "github.com/vendio/beverage-machine/internal/kafka"
	"github.com/vendio/beverage-machine/internal/orders"
	"github.com/vendio/beverage-machine/internal/redisx"
)

// Service keeps running sales counters in Redis from the order event
// stream. Replaying a partition must not double-count, hence the
// per-event dedup keys.
type Service struct {
	Redis       *redis.Client
	ServiceName string
}

// HandleOrderCreated is the consumer handler for the order.created topic.
func (s *Service) HandleOrderCreated(ctx context.Context, m kafkago.Message) error {
	var env orders.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		return err
	}
	if env.EventType != orders.EventOrderCreated {
		return nil
	}

	dkey := fmt.Sprintf(redisx.KeyDedup, s.ServiceName, env.EventID)
	seen, err := redisx.Exists(ctx, s.Redis, dkey)
	if err != nil {
		return err
	}
	if seen {
		return nil
	}

	p, err := kafkax.UnwrapPayload[orders.OrderCreatedPayload](env.Payload)
	if err != nil {
		return err
	}

	pipe := s.Redis.TxPipeline()
	for _, item := range p.Items {
		pipe.IncrBy(ctx, fmt.Sprintf(redisx.KeySalesProduct, item.ProductID), int64(item.Qty))
	}
	pipe.IncrBy(ctx, redisx.KeySalesRevenue, int64(p.TotalAmount))
	pipe.Set(ctx, dkey, "1", redisx.TTLDedup)
	if _, err := pipe.Exec(ctx); err != nil {
		return err
	}

	log.Printf("order recorded: id=%s items=%d total=%d", p.OrderID, len(p.Items), p.TotalAmount)
	return nil
}
