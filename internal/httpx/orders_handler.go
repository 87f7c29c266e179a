package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/rasoilink/orderhub/internal/auth"
	"github.com/rasoilink/orderhub/internal/feed"
	kafkax "github.com/rasoilink/orderhub/internal/kafka"
	"github.com/rasoilink/orderhub/internal/metrics"
	"github.com/rasoilink/orderhub/internal/orders"
	"github.com/rasoilink/orderhub/internal/redisx"
)

type OrderStore interface {
	Create(ctx context.Context, in orders.NewOrder) (orders.Order, error)
	Get(ctx context.Context, id string) (orders.Order, error)
	List(ctx context.Context, f orders.Filter) ([]orders.Order, error)
}

type TransitionApplier interface {
	Apply(ctx context.Context, id string, req orders.TransitionRequest) (orders.TransitionResult, error)
}

type Subscriber interface {
	Subscribe(ctx context.Context, actorID string, role auth.Role) (<-chan feed.Snapshot, func(), error)
}

type OrdersHandler struct {
	Store          OrderStore
	Engine         TransitionApplier
	Feed           Subscriber
	Redis          *redis.Client
	PlacedProducer *kafkax.Producer
	StatusProducer *kafkax.Producer
	Metrics        *metrics.APIMetrics
	Service        string
	Log            zerolog.Logger
}

type UpdateOrderReq struct {
	Status            string     `json:"status"`
	Note              string     `json:"note,omitempty"`
	EstimatedDelivery *time.Time `json:"estimated_delivery,omitempty"`
}

func (h *OrdersHandler) Register(r chi.Router) {
	r.Route("/orders", func(r chi.Router) {
		r.Use(Instrument(h.Metrics))
		r.Use(h.withActor)
		// the feed is a long-lived stream, everything else gets a deadline
		r.Get("/feed", h.streamFeed)
		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(15 * time.Second))
			r.Post("/", h.createOrder)
			r.Get("/", h.listOrders)
			r.Get("/summary", h.summarizeOrders)
			r.Get("/{id}", h.getOrder)
			r.Get("/{id}/status", h.getOrderStatus)
			r.Put("/{id}", h.updateOrder)
		})
	})
}

type actorKey struct{}

func (h *OrdersHandler) withActor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, err := auth.FromRequest(r)
		if err != nil {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": err.Error()})
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), actorKey{}, actor)))
	})
}

func actorFrom(ctx context.Context) auth.Actor {
	a, _ := ctx.Value(actorKey{}).(auth.Actor)
	return a
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), map[string]string{"error": err.Error()})
}

func statusFor(err error) int {
	var (
		ve *orders.ValidationError
		te *orders.InvalidTransitionError
	)
	switch {
	case errors.As(err, &ve):
		return http.StatusBadRequest
	case errors.Is(err, orders.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, orders.ErrNotFound):
		return http.StatusNotFound
	case errors.As(err, &te), errors.Is(err, orders.ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (h *OrdersHandler) createOrder(w http.ResponseWriter, r *http.Request) {
	var req orders.NewOrder
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	actor := actorFrom(r.Context())
	if actor.Role != auth.RoleVendor || actor.ID != req.VendorID {
		writeError(w, orders.ErrForbidden)
		return
	}

	o, err := h.Store.Create(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}

	h.publish(h.PlacedProducer, orders.NewEnvelope(
		orders.EventOrderPlaced, h.Service, middleware.GetReqID(r.Context()), o.ID,
		orders.OrderPlacedPayload{
			OrderID:    o.ID,
			VendorID:   o.VendorID,
			SupplierID: o.SupplierID,
			TotalPaise: o.TotalPaise,
			Status:     o.Status,
		},
	))
	h.Log.Info().Str("order_id", o.ID).Str("vendor_id", o.VendorID).Msg("order placed")
	writeJSON(w, http.StatusCreated, o)
}

func (h *OrdersHandler) updateOrder(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req UpdateOrderReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	res, err := h.Engine.Apply(r.Context(), id, orders.TransitionRequest{
		Status:            req.Status,
		Actor:             actorFrom(r.Context()),
		Note:              req.Note,
		EstimatedDelivery: req.EstimatedDelivery,
	})
	if err != nil {
		h.countTransition(req.Status, "rejected")
		writeError(w, err)
		return
	}
	h.countTransition(string(res.Order.Status), "applied")

	h.publish(h.StatusProducer, orders.NewEnvelope(
		orders.EventOrderStatusChanged, h.Service, middleware.GetReqID(r.Context()), res.Order.ID,
		orders.OrderStatusChangedPayload{
			OrderID:           res.Order.ID,
			VendorID:          res.Order.VendorID,
			SupplierID:        res.Order.SupplierID,
			From:              res.From,
			To:                res.Order.Status,
			EstimatedDelivery: res.Order.EstimatedDelivery,
			ActualDelivery:    res.Order.ActualDelivery,
		},
	))
	h.Log.Info().
		Str("order_id", res.Order.ID).
		Str("from", string(res.From)).
		Str("to", string(res.Order.Status)).
		Msg("order status changed")
	writeJSON(w, http.StatusOK, res.Order)
}

func (h *OrdersHandler) getOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.Store.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

// getOrderStatus is the lightweight polling probe: Redis cache first, store
// on a miss.
func (h *OrdersHandler) getOrderStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	key := fmt.Sprintf(redisx.KeyOrderStatus, id)
	if h.Redis != nil {
		if s, err := h.Redis.Get(r.Context(), key).Result(); err == nil && s != "" {
			writeJSON(w, http.StatusOK, json.RawMessage(s))
			return
		}
	}

	o, err := h.Store.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	body, _ := json.Marshal(map[string]any{
		"status":     o.Status,
		"updated_at": o.UpdatedAt.Format(time.RFC3339Nano),
	})
	if h.Redis != nil {
		_ = h.Redis.Set(r.Context(), key, body, redisx.TTLStatusCache).Err()
	}
	writeJSON(w, http.StatusOK, json.RawMessage(body))
}

func (h *OrdersHandler) listOrders(w http.ResponseWriter, r *http.Request) {
	list, err := h.Store.List(r.Context(), h.filterFrom(r))
	if err != nil {
		writeError(w, err)
		return
	}
	if list == nil {
		list = []orders.Order{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *OrdersHandler) summarizeOrders(w http.ResponseWriter, r *http.Request) {
	list, err := h.Store.List(r.Context(), h.filterFrom(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, orders.Summarize(list))
}

// filterFrom scopes the query to the calling actor when no party filter was
// given explicitly.
func (h *OrdersHandler) filterFrom(r *http.Request) orders.Filter {
	q := r.URL.Query()
	f := orders.Filter{
		VendorID:   q.Get("vendor_id"),
		SupplierID: q.Get("supplier_id"),
		Status:     orders.Status(q.Get("status")),
	}
	if f.VendorID == "" && f.SupplierID == "" {
		actor := actorFrom(r.Context())
		if actor.Role == auth.RoleSupplier {
			f.SupplierID = actor.ID
		} else {
			f.VendorID = actor.ID
		}
	}
	return f
}

// streamFeed serves the subscription feed over server-sent events. Each
// event is a full snapshot of the actor's orders, newest first.
func (h *OrdersHandler) streamFeed(w http.ResponseWriter, r *http.Request) {
	fl, ok := w.(http.Flusher)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "streaming unsupported"})
		return
	}

	actor := actorFrom(r.Context())
	snaps, stop, err := h.Feed.Subscribe(r.Context(), actor.ID, actor.Role)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	defer stop()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	fl.Flush()

	for s := range snaps {
		if s.Err != nil {
			fmt.Fprintf(w, "event: error\ndata: %s\n\n", strconv.Quote(s.Err.Error()))
			fl.Flush()
			return
		}
		b, err := json.Marshal(s.Orders)
		if err != nil {
			h.Log.Error().Err(err).Msg("encode snapshot")
			return
		}
		fmt.Fprintf(w, "data: %s\n\n", b)
		fl.Flush()
	}
}

func (h *OrdersHandler) publish(p *kafkax.Producer, env orders.Envelope) {
	if p == nil {
		return
	}
	p.Publish(orders.PartitionKey(env.CorrelationID), kafkax.MustMarshal(env),
		kafkago.Header{Key: "x-event-type", Value: []byte(env.EventType)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}

func (h *OrdersHandler) countTransition(to, outcome string) {
	if h.Metrics == nil {
		return
	}
	h.Metrics.Transitions.WithLabelValues(to, outcome).Inc()
}
