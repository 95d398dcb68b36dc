package database

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/SachinxShrivastav33/thess/internal/models"
)

// PaymentAuditRepository handles payment audit operations
type PaymentAuditRepository struct {
	db     DB
	logger *logrus.Logger
}

// NewPaymentAuditRepository creates a new payment audit repository
func NewPaymentAuditRepository(db DB, logger *logrus.Logger) *PaymentAuditRepository {
	return &PaymentAuditRepository{
		db:     db,
		logger: logger,
	}
}

// Log inserts a payment audit entry. Rows are append-only.
func (r *PaymentAuditRepository) Log(audit *models.PaymentAudit) error {
	if audit == nil {
		return fmt.Errorf("audit entry cannot be nil")
	}

	if audit.ID == uuid.Nil {
		audit.ID = uuid.New()
	}
	if audit.CreatedAt.IsZero() {
		audit.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO payment_audits (
			id, intent_id, external_ref, event_type,
			amount, currency, gateway_status, detail, error_message,
			created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10
		)`

	_, err := r.db.Exec(query,
		audit.ID, audit.IntentID, audit.ExternalRef, audit.EventType,
		audit.Amount, audit.Currency, audit.GatewayStatus, audit.Detail, audit.ErrorMessage,
		audit.CreatedAt,
	)

	if err != nil {
		r.logger.WithError(err).WithFields(logrus.Fields{
			"event_type":   audit.EventType,
			"external_ref": audit.ExternalRef,
		}).Error("Failed to log payment audit")
		return fmt.Errorf("failed to log payment audit: %w", err)
	}

	return nil
}

// GetByIntentID retrieves all audit entries for an intent, oldest first.
func (r *PaymentAuditRepository) GetByIntentID(intentID uuid.UUID) ([]*models.PaymentAudit, error) {
	var audits []*models.PaymentAudit
	query := `
		SELECT id, intent_id, external_ref, event_type,
		       amount, currency, gateway_status, detail, error_message,
		       created_at
		FROM payment_audits
		WHERE intent_id = $1
		ORDER BY created_at ASC`

	err := r.db.Select(&audits, query, intentID)
	if err != nil {
		return nil, fmt.Errorf("failed to get audits by intent ID: %w", err)
	}

	return audits, nil
}

// GetByExternalRef retrieves all audit entries for a gateway payment
// intent id, oldest first.
func (r *PaymentAuditRepository) GetByExternalRef(externalRef string) ([]*models.PaymentAudit, error) {
	var audits []*models.PaymentAudit
	query := `
		SELECT id, intent_id, external_ref, event_type,
		       amount, currency, gateway_status, detail, error_message,
		       created_at
		FROM payment_audits
		WHERE external_ref = $1
		ORDER BY created_at ASC`

	err := r.db.Select(&audits, query, externalRef)
	if err != nil {
		return nil, fmt.Errorf("failed to get audits by external ref: %w", err)
	}

	return audits, nil
}
