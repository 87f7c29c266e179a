package orders

import (
	"context"
	"time"

	"github.com/rasoilink/orderhub/internal/auth"
)

// DeliveryLeadTime is the default estimate applied when a supplier confirms
// an order without naming a delivery date.
const DeliveryLeadTime = 72 * time.Hour

// Store is the slice of the repository the engine needs. UpdateTransition
// must be a compare-and-swap on the order's version: a stale version returns
// ErrConflict and writes nothing.
type Store interface {
	Get(ctx context.Context, id string) (Order, error)
	UpdateTransition(ctx context.Context, id string, version int64, patch TransitionPatch) (Order, error)
}

type TransitionResult struct {
	Order Order
	From  Status
}

// Engine validates and applies status changes. It is the only writer of
// order state after creation.
type Engine struct {
	Store Store
	Now   func() time.Time
}

func NewEngine(store Store) *Engine {
	return &Engine{Store: store, Now: time.Now}
}

func (e *Engine) Apply(ctx context.Context, id string, req TransitionRequest) (TransitionResult, error) {
	to, err := ParseStatus(req.Status)
	if err != nil {
		return TransitionResult{}, err
	}

	o, err := e.Store.Get(ctx, id)
	if err != nil {
		return TransitionResult{}, err
	}

	if !CanTransition(o.Status, to) {
		return TransitionResult{}, &InvalidTransitionError{From: o.Status, To: to}
	}
	if err := authorize(req.Actor, o, to); err != nil {
		return TransitionResult{}, err
	}

	now := e.Now().UTC()
	patch := TransitionPatch{
		Status:            to,
		EstimatedDelivery: o.EstimatedDelivery,
		ActualDelivery:    o.ActualDelivery,
		TransitionNotes:   o.TransitionNotes,
		UpdatedAt:         now,
	}
	if req.EstimatedDelivery != nil {
		patch.EstimatedDelivery = req.EstimatedDelivery
	}
	if to == StatusConfirmed && patch.EstimatedDelivery == nil {
		eta := now.Add(DeliveryLeadTime)
		patch.EstimatedDelivery = &eta
	}
	if to == StatusDelivered {
		patch.ActualDelivery = &now
	}
	if req.Note != "" {
		patch.TransitionNotes = append(patch.TransitionNotes, TransitionNote{
			ActorID: req.Actor.ID,
			Role:    req.Actor.Role,
			Text:    req.Note,
			At:      now,
		})
	}

	updated, err := e.Store.UpdateTransition(ctx, id, o.Version, patch)
	if err != nil {
		return TransitionResult{}, err
	}
	return TransitionResult{Order: updated, From: o.Status}, nil
}

// authorize enforces the party + role rules: the actor must be a party to
// the order, only the supplier advances the order forward, and a vendor may
// cancel only while the order is still pending.
func authorize(actor auth.Actor, o Order, to Status) error {
	switch actor.Role {
	case auth.RoleSupplier:
		if actor.ID != o.SupplierID {
			return ErrForbidden
		}
		return nil
	case auth.RoleVendor:
		if actor.ID != o.VendorID {
			return ErrForbidden
		}
		if to == StatusCancelled && o.Status == StatusPending {
			return nil
		}
		return ErrForbidden
	default:
		return ErrForbidden
	}
}
