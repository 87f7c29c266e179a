package orders

import (
	"time"

	"github.com/rasoilink/orderhub/internal/auth"
)

// LineItem is owned by its order; it has no identity of its own.
// Prices are integer paise, same as everywhere else in the codebase.
type LineItem struct {
	ProductID      string `json:"product_id"`
	ProductName    string `json:"product_name"`
	Quantity       int    `json:"quantity"`
	UnitPricePaise int64  `json:"unit_price_paise"`
	Unit           string `json:"unit"` // kg, liter, piece, pack
}

// TransitionNote is one entry of the append-only note log. Earlier versions
// kept a single supplier_notes column and lost every note but the last.
type TransitionNote struct {
	ActorID string    `json:"actor_id"`
	Role    auth.Role `json:"role"`
	Text    string    `json:"text"`
	At      time.Time `json:"at"`
}

type Order struct {
	ID                string           `json:"id"`
	VendorID          string           `json:"vendor_id"`
	SupplierID        string           `json:"supplier_id"`
	Items             []LineItem       `json:"items"`
	TotalPaise        int64            `json:"total_paise"`
	Status            Status           `json:"status"`
	DeliveryAddress   string           `json:"delivery_address"`
	OrderDate         time.Time        `json:"order_date"`
	EstimatedDelivery *time.Time       `json:"estimated_delivery,omitempty"`
	ActualDelivery    *time.Time       `json:"actual_delivery,omitempty"`
	Notes             string           `json:"notes,omitempty"`
	TransitionNotes   []TransitionNote `json:"transition_notes,omitempty"`
	Version           int64            `json:"version"`
	CreatedAt         time.Time        `json:"created_at"`
	UpdatedAt         time.Time        `json:"updated_at"`
}

// NewOrder is the vendor checkout input. Everything else on Order is derived.
type NewOrder struct {
	VendorID        string     `json:"vendor_id"`
	SupplierID      string     `json:"supplier_id"`
	Items           []LineItem `json:"items"`
	TotalPaise      int64      `json:"total_paise"`
	DeliveryAddress string     `json:"delivery_address"`
	Notes           string     `json:"notes,omitempty"`
}

type Filter struct {
	VendorID   string
	SupplierID string
	Status     Status
}

// TransitionRequest is what an actor submits against an existing order.
// Status is raw client input; the engine parses it (alias handling included).
type TransitionRequest struct {
	Status            string
	Actor             auth.Actor
	Note              string
	EstimatedDelivery *time.Time
}

// TransitionPatch is the restricted set of fields a transition may touch.
type TransitionPatch struct {
	Status            Status
	EstimatedDelivery *time.Time
	ActualDelivery    *time.Time
	TransitionNotes   []TransitionNote
	UpdatedAt         time.Time
}
