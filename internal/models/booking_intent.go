package models

import (
	"time"

	"github.com/google/uuid"
)

// BookingIntentStatus represents the status of a booking intent
// Matches PostgreSQL ENUM: booking_intent_status
type BookingIntentStatus string

const (
	IntentStatusPending   BookingIntentStatus = "pending"   // Slot reserved, waiting for payment
	IntentStatusConfirmed BookingIntentStatus = "confirmed" // Payment verified, order committed
	IntentStatusFailed    BookingIntentStatus = "failed"    // Payment failed or booking cancelled
	IntentStatusExpired   BookingIntentStatus = "expired"   // TTL elapsed while still pending
)

// IsTerminal reports whether the status permits no further transitions.
func (s BookingIntentStatus) IsTerminal() bool {
	return s == IntentStatusConfirmed || s == IntentStatusFailed || s == IntentStatusExpired
}

// BookingIntent represents one attempt to book a service. At most one
// intent per (user_id, service_id) pair may be pending at a time; the
// database enforces this with a partial unique index.
type BookingIntent struct {
	ID        uuid.UUID `json:"id" db:"id"`
	UserID    uuid.UUID `json:"user_id" db:"user_id"`
	ServiceID uuid.UUID `json:"service_id" db:"service_id"`

	// Amount is the catalog price captured at reservation time. It is the
	// source of truth for billing even if the catalog price changes later.
	Amount   float64 `json:"amount" db:"amount"`
	Currency string  `json:"currency" db:"currency"`

	// ExternalRef is the gateway-issued payment intent id. NULL until the
	// gateway intent has been created.
	ExternalRef *string `json:"external_ref,omitempty" db:"external_ref"`

	Status BookingIntentStatus `json:"status" db:"status"`

	ExpiresAt   time.Time  `json:"expires_at" db:"expires_at"`
	ConfirmedAt *time.Time `json:"confirmed_at,omitempty" db:"confirmed_at"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`
}

// IsExpired checks if the intent has passed its TTL.
func (i *BookingIntent) IsExpired() bool {
	return time.Now().After(i.ExpiresAt)
}

// CanConfirm checks if the intent can still be confirmed.
func (i *BookingIntent) CanConfirm() bool {
	return i.Status == IntentStatusPending && !i.IsExpired()
}

// BookServiceResponse is returned after a successful reservation. The
// client secret is the opaque token the payment UI needs; card data
// never passes through this backend.
type BookServiceResponse struct {
	IntentID     uuid.UUID `json:"intent_id"`
	ExternalRef  string    `json:"external_ref"`
	ClientSecret string    `json:"client_secret"`
	Amount       float64   `json:"amount"`
	Currency     string    `json:"currency"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// ConfirmOrderRequest is the request to confirm a booking after payment.
type ConfirmOrderRequest struct {
	ServiceID   string `json:"service_id" binding:"required"`
	ExternalRef string `json:"external_ref" binding:"required"`
}
