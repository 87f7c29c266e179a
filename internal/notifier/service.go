package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	kafkago "github.com/segmentio/kafka-go"

	kafkax "github.com/rasoilink/orderhub/internal/kafka"
	"github.com/rasoilink/orderhub/internal/orders"
	"github.com/rasoilink/orderhub/internal/redisx"
)

// Service fans order events out to the per-actor feed channels and keeps the
// latest-status cache warm. It is the bridge between the Kafka event stream
// and the Redis pub/sub side that drives live subscriptions.
type Service struct {
	Redis       *redis.Client
	ServiceName string
	Log         zerolog.Logger
}

func (s *Service) HandleOrderEvent(ctx context.Context, m kafkago.Message) error {
	var env orders.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		return fmt.Errorf("decode envelope: %w", err)
	}

	// dedup by event id; a re-delivered event must not fan out twice
	dkey := fmt.Sprintf(redisx.KeyDedup, "notifier", env.EventID)
	if exists, _ := redisx.Exists(ctx, s.Redis, dkey); exists {
		return nil
	}

	var (
		orderID, vendorID, supplierID string
		status                        orders.Status
	)
	switch env.EventType {
	case orders.EventOrderPlaced:
		p, err := kafkax.UnwrapPayload[orders.OrderPlacedPayload](env.Payload)
		if err != nil {
			return err
		}
		orderID, vendorID, supplierID, status = p.OrderID, p.VendorID, p.SupplierID, p.Status
	case orders.EventOrderStatusChanged:
		p, err := kafkax.UnwrapPayload[orders.OrderStatusChangedPayload](env.Payload)
		if err != nil {
			return err
		}
		orderID, vendorID, supplierID, status = p.OrderID, p.VendorID, p.SupplierID, p.To
	default:
		return nil // not ours
	}

	s.cacheStatus(ctx, orderID, status, env.OccurredAt)

	// one notification per party; payload is just the order id, subscribers
	// re-query the store for the snapshot
	for _, ch := range []string{
		redisx.FeedVendorChannel(vendorID),
		redisx.FeedSupplierChannel(supplierID),
	} {
		if err := s.Redis.Publish(ctx, ch, orderID).Err(); err != nil {
			return fmt.Errorf("publish %s: %w", ch, err)
		}
	}

	if err := s.Redis.Set(ctx, dkey, "1", redisx.TTLDedup).Err(); err != nil {
		s.Log.Error().Err(err).Str("order_id", orderID).Msg("dedup mark failed")
	}
	s.Log.Debug().
		Str("event", env.EventType).
		Str("order_id", orderID).
		Str("status", string(status)).
		Msg("fanned out")
	return nil
}

func (s *Service) cacheStatus(ctx context.Context, orderID string, status orders.Status, at time.Time) {
	key := fmt.Sprintf(redisx.KeyOrderStatus, orderID)
	body, _ := json.Marshal(map[string]any{
		"status":     status,
		"updated_at": at.UTC().Format(time.RFC3339Nano),
	})
	if err := s.Redis.Set(ctx, key, body, redisx.TTLStatusCache).Err(); err != nil {
		s.Log.Error().Err(err).Str("order_id", orderID).Msg("status cache set failed")
	}
}
