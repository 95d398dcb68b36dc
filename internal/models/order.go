package models

import (
	"time"

	"github.com/google/uuid"
)

// OrderStatusPaid is the only status this core produces. Orders are
// created exactly once per confirmed intent and never updated.
const OrderStatusPaid = "paid"

// Order is the durable receipt of a paid booking.
type Order struct {
	ID        uuid.UUID `json:"id" db:"id"`
	UserID    uuid.UUID `json:"user_id" db:"user_id"`
	ServiceID uuid.UUID `json:"service_id" db:"service_id"`

	// Amount is copied from the booking intent, never recomputed from the
	// current catalog price.
	Amount   float64 `json:"amount" db:"amount"`
	Currency string  `json:"currency" db:"currency"`

	// ExternalRef is the gateway payment intent id this order settles.
	// Unique across all orders.
	ExternalRef string `json:"external_ref" db:"external_ref"`

	Status    string    `json:"status" db:"status"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
