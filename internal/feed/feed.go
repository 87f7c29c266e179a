package feed

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/rasoilink/orderhub/internal/auth"
	"github.com/rasoilink/orderhub/internal/orders"
	"github.com/rasoilink/orderhub/internal/redisx"
)

// ErrClosed is delivered when the underlying notification channel drops.
// The subscriber should re-subscribe; we do not reconnect on its behalf.
var ErrClosed = errors.New("feed: notification channel closed")

type Lister interface {
	ListByVendor(ctx context.Context, vendorID string) ([]orders.Order, error)
	ListBySupplier(ctx context.Context, supplierID string) ([]orders.Order, error)
}

// Snapshot is the full current order set for one actor, newest first.
// Consumers treat it as a replacement, never a delta.
type Snapshot struct {
	Orders []orders.Order
	Err    error
}

type Feed struct {
	Orders Lister
	Redis  *redis.Client
	Log    zerolog.Logger
}

// Subscribe emits an initial snapshot, then one snapshot per change
// notification on the actor's channel. Cancel the context or call the
// returned stop function to release the subscription.
func (f *Feed) Subscribe(ctx context.Context, actorID string, role auth.Role) (<-chan Snapshot, func(), error) {
	channel, err := channelFor(actorID, role)
	if err != nil {
		return nil, nil, err
	}

	sub := f.Redis.Subscribe(ctx, channel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, nil, fmt.Errorf("subscribe %s: %w", channel, err)
	}

	ctx, cancel := context.WithCancel(ctx)
	out := make(chan Snapshot, 1)
	go f.run(ctx, sub.Channel(), actorID, role, out)

	stop := func() {
		cancel()
		_ = sub.Close()
	}
	return out, stop, nil
}

// run owns all store reads for one subscriber, so every snapshot reflects a
// state at least as new as the previous one.
func (f *Feed) run(ctx context.Context, msgs <-chan *redis.Message, actorID string, role auth.Role, out chan Snapshot) {
	defer close(out)

	if !f.emit(ctx, actorID, role, out) {
		return
	}
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-msgs:
			if !ok {
				deliver(out, Snapshot{Err: ErrClosed})
				return
			}
			if !f.emit(ctx, actorID, role, out) {
				return
			}
		}
	}
}

func (f *Feed) emit(ctx context.Context, actorID string, role auth.Role, out chan Snapshot) bool {
	list, err := f.list(ctx, actorID, role)
	if err != nil {
		if ctx.Err() != nil {
			return false
		}
		f.Log.Error().Err(err).Str("actor", actorID).Msg("feed snapshot query failed")
		deliver(out, Snapshot{Err: err})
		return false
	}
	deliver(out, Snapshot{Orders: list})
	return true
}

func (f *Feed) list(ctx context.Context, actorID string, role auth.Role) ([]orders.Order, error) {
	if role == auth.RoleSupplier {
		return f.Orders.ListBySupplier(ctx, actorID)
	}
	return f.Orders.ListByVendor(ctx, actorID)
}

// deliver is latest-wins: a slow consumer may skip intermediate snapshots
// but always ends up holding the newest one.
func deliver(out chan Snapshot, s Snapshot) {
	for {
		select {
		case out <- s:
			return
		default:
			select {
			case <-out:
			default:
			}
		}
	}
}

func channelFor(actorID string, role auth.Role) (string, error) {
	switch role {
	case auth.RoleVendor:
		return redisx.FeedVendorChannel(actorID), nil
	case auth.RoleSupplier:
		return redisx.FeedSupplierChannel(actorID), nil
	default:
		return "", fmt.Errorf("feed: unknown role %q", role)
	}
}
