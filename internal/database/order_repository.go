package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/SachinxShrivastav33/thess/internal/models"
)

// OrderRepository handles order database operations
type OrderRepository struct {
	db DB
}

// NewOrderRepository creates a new OrderRepository
func NewOrderRepository(db DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// CommitPaidOrder confirms a pending intent and writes its order in one
// transaction. The confirm UPDATE is conditional on status = 'pending',
// so of any set of concurrent commits exactly one inserts the order; the
// losers re-read the intent inside the transaction and either return the
// winner's order (intent confirmed) or ErrInvalidIntent (intent expired
// or failed underneath them).
//
// The returned bool reports whether this call created the order.
func (r *OrderRepository) CommitPaidOrder(intent *models.BookingIntent) (*models.Order, bool, error) {
	if intent.ExternalRef == nil {
		return nil, false, fmt.Errorf("intent %s has no external ref", intent.ID)
	}

	tx, err := r.db.Beginx()
	if err != nil {
		return nil, false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.Exec(`
		UPDATE booking_intents
		SET status = 'confirmed', confirmed_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND status = 'pending'
	`, intent.ID)
	if err != nil {
		return nil, false, fmt.Errorf("failed to confirm intent: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		// Lost the race. Find out to whom.
		var status models.BookingIntentStatus
		if err := tx.Get(&status, `SELECT status FROM booking_intents WHERE id = $1`, intent.ID); err != nil {
			return nil, false, fmt.Errorf("failed to re-read intent: %w", err)
		}
		if status != models.IntentStatusConfirmed {
			return nil, false, models.ErrInvalidIntent
		}

		var order models.Order
		err := tx.Get(&order, `
			SELECT id, user_id, service_id, amount, currency, external_ref, status, created_at
			FROM orders
			WHERE external_ref = $1
		`, *intent.ExternalRef)
		if err != nil {
			return nil, false, fmt.Errorf("intent confirmed but order missing: %w", err)
		}
		if err := tx.Commit(); err != nil {
			return nil, false, err
		}
		return &order, false, nil
	}

	order := &models.Order{
		ID:          uuid.New(),
		UserID:      intent.UserID,
		ServiceID:   intent.ServiceID,
		Amount:      intent.Amount,
		Currency:    intent.Currency,
		ExternalRef: *intent.ExternalRef,
		Status:      models.OrderStatusPaid,
		CreatedAt:   time.Now(),
	}

	_, err = tx.Exec(`
		INSERT INTO orders (id, user_id, service_id, amount, currency, external_ref, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, order.ID, order.UserID, order.ServiceID, order.Amount, order.Currency,
		order.ExternalRef, order.Status, order.CreatedAt)
	if err != nil {
		return nil, false, fmt.Errorf("failed to insert order: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, false, fmt.Errorf("failed to commit order transaction: %w", err)
	}
	return order, true, nil
}

// GetByExternalRef retrieves an order by its gateway payment intent id.
// Returns nil when not found.
func (r *OrderRepository) GetByExternalRef(externalRef string) (*models.Order, error) {
	var order models.Order
	query := `
		SELECT id, user_id, service_id, amount, currency, external_ref, status, created_at
		FROM orders
		WHERE external_ref = $1`

	err := r.db.Get(&order, query, externalRef)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// ListByUser retrieves all orders for a user, newest first.
func (r *OrderRepository) ListByUser(userID uuid.UUID) ([]*models.Order, error) {
	orders := []*models.Order{}
	query := `
		SELECT id, user_id, service_id, amount, currency, external_ref, status, created_at
		FROM orders
		WHERE user_id = $1
		ORDER BY created_at DESC`

	err := r.db.Select(&orders, query, userID)
	if err != nil {
		return nil, err
	}
	return orders, nil
}
