package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// PaymentEventType represents the type of payment event
type PaymentEventType string

const (
	PaymentEventIntentCreated  PaymentEventType = "intent_created"
	PaymentEventGatewayError   PaymentEventType = "gateway_error"
	PaymentEventVerifyRequest  PaymentEventType = "verify_request"
	PaymentEventVerifyFailed   PaymentEventType = "verify_failed"
	PaymentEventOrderCommitted PaymentEventType = "order_committed"
	PaymentEventIntentExpired  PaymentEventType = "intent_expired"
	PaymentEventIntentReleased PaymentEventType = "intent_released"
)

// JSONB handles PostgreSQL jsonb columns.
type JSONB map[string]interface{}

func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}
	b, ok := value.([]byte)
	if !ok {
		return fmt.Errorf("jsonb scan: expected []byte, got %T", value)
	}
	return json.Unmarshal(b, j)
}

// PaymentAudit is an immutable audit log entry for payment events. Rows
// are only ever inserted; an audit write failure never blocks the flow
// it records.
type PaymentAudit struct {
	ID          uuid.UUID        `json:"id" db:"id"`
	IntentID    *uuid.UUID       `json:"intent_id,omitempty" db:"intent_id"`
	ExternalRef *string          `json:"external_ref,omitempty" db:"external_ref"`
	EventType   PaymentEventType `json:"event_type" db:"event_type"`

	Amount   *float64 `json:"amount,omitempty" db:"amount"`
	Currency *string  `json:"currency,omitempty" db:"currency"`

	GatewayStatus *string `json:"gateway_status,omitempty" db:"gateway_status"`
	Detail        JSONB   `json:"detail,omitempty" db:"detail"`
	ErrorMessage  *string `json:"error_message,omitempty" db:"error_message"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// NewPaymentAudit creates an audit entry with required fields set.
func NewPaymentAudit(eventType PaymentEventType) *PaymentAudit {
	return &PaymentAudit{
		ID:        uuid.New(),
		EventType: eventType,
		CreatedAt: time.Now(),
	}
}

// SetIntent sets the booking intent this event belongs to.
func (pa *PaymentAudit) SetIntent(intentID uuid.UUID) *PaymentAudit {
	pa.IntentID = &intentID
	return pa
}

// SetExternalRef sets the gateway payment intent id.
func (pa *PaymentAudit) SetExternalRef(ref string) *PaymentAudit {
	pa.ExternalRef = &ref
	return pa
}

// SetAmount records the amount and currency involved.
func (pa *PaymentAudit) SetAmount(amount float64, currency string) *PaymentAudit {
	pa.Amount = &amount
	pa.Currency = &currency
	return pa
}

// SetGatewayStatus records the raw status string the gateway reported.
func (pa *PaymentAudit) SetGatewayStatus(status string) *PaymentAudit {
	pa.GatewayStatus = &status
	return pa
}

// SetDetail attaches arbitrary structured context.
func (pa *PaymentAudit) SetDetail(detail map[string]interface{}) *PaymentAudit {
	pa.Detail = JSONB(detail)
	return pa
}

// SetError records an error message.
func (pa *PaymentAudit) SetError(err error) *PaymentAudit {
	msg := err.Error()
	pa.ErrorMessage = &msg
	return pa
}
