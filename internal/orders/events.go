package orders

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

const (
	EventOrderPlaced        = "OrderPlaced"
	EventOrderStatusChanged = "OrderStatusChanged"
)

type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"` // order id
	Payload       json.RawMessage `json:"payload"`
}

type OrderPlacedPayload struct {
	OrderID    string `json:"order_id"`
	VendorID   string `json:"vendor_id"`
	SupplierID string `json:"supplier_id"`
	TotalPaise int64  `json:"total_paise"`
	Status     Status `json:"status"`
}

type OrderStatusChangedPayload struct {
	OrderID           string     `json:"order_id"`
	VendorID          string     `json:"vendor_id"`
	SupplierID        string     `json:"supplier_id"`
	From              Status     `json:"from"`
	To                Status     `json:"to"`
	EstimatedDelivery *time.Time `json:"estimated_delivery,omitempty"`
	ActualDelivery    *time.Time `json:"actual_delivery,omitempty"`
}

// NewEnvelope wraps a payload in the v1 envelope. Marshalling these payload
// structs cannot fail, so the error is swallowed deliberately.
func NewEnvelope(eventType, producer, traceID, orderID string, payload any) Envelope {
	b, _ := json.Marshal(payload)
	return Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      producer,
		TraceID:       traceID,
		CorrelationID: orderID,
		Payload:       b,
	}
}
