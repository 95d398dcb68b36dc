package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/SachinxShrivastav33/thess/internal/models"
)

// BookingIntentRepository handles booking intent database operations
type BookingIntentRepository struct {
	db DB
}

// NewBookingIntentRepository creates a new BookingIntentRepository
func NewBookingIntentRepository(db DB) *BookingIntentRepository {
	return &BookingIntentRepository{db: db}
}

// Reserve inserts a new pending intent for (user, service). The insert is
// guarded two ways: the NOT EXISTS predicate blocks users who already paid
// for the service, and the partial unique index on (user_id, service_id)
// WHERE status = 'pending' makes exactly one of any set of concurrent
// reservations win. Both paths surface as ErrDuplicateBooking.
func (r *BookingIntentRepository) Reserve(intent *models.BookingIntent) error {
	intent.ID = uuid.New()
	intent.Status = models.IntentStatusPending
	intent.CreatedAt = time.Now()
	intent.UpdatedAt = intent.CreatedAt

	query := `
		INSERT INTO booking_intents (
			id, user_id, service_id, amount, currency, status,
			expires_at, created_at, updated_at
		)
		SELECT $1, $2, $3, $4, $5, $6, $7, $8, $9
		WHERE NOT EXISTS (
			SELECT 1 FROM orders WHERE user_id = $2 AND service_id = $3
		)`

	result, err := r.db.Exec(query,
		intent.ID, intent.UserID, intent.ServiceID,
		intent.Amount, intent.Currency, intent.Status,
		intent.ExpiresAt, intent.CreatedAt, intent.UpdatedAt,
	)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return models.ErrDuplicateBooking
		}
		return fmt.Errorf("failed to reserve booking intent: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return models.ErrDuplicateBooking
	}
	return nil
}

// GetIntentByID retrieves an intent by ID. Returns nil when not found.
func (r *BookingIntentRepository) GetIntentByID(intentID uuid.UUID) (*models.BookingIntent, error) {
	var intent models.BookingIntent
	query := `
		SELECT id, user_id, service_id, amount, currency, external_ref,
		       status, expires_at, confirmed_at, created_at, updated_at
		FROM booking_intents
		WHERE id = $1`

	err := r.db.Get(&intent, query, intentID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &intent, nil
}

// GetIntentByExternalRef retrieves an intent by its gateway payment
// intent id. Returns nil when not found.
func (r *BookingIntentRepository) GetIntentByExternalRef(externalRef string) (*models.BookingIntent, error) {
	var intent models.BookingIntent
	query := `
		SELECT id, user_id, service_id, amount, currency, external_ref,
		       status, expires_at, confirmed_at, created_at, updated_at
		FROM booking_intents
		WHERE external_ref = $1`

	err := r.db.Get(&intent, query, externalRef)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &intent, nil
}

// SetExternalRef attaches the gateway payment intent id to a pending intent.
func (r *BookingIntentRepository) SetExternalRef(intentID uuid.UUID, externalRef string) error {
	query := `
		UPDATE booking_intents
		SET external_ref = $2, updated_at = NOW()
		WHERE id = $1 AND status = 'pending'`
	result, err := r.db.Exec(query, intentID, externalRef)
	if err != nil {
		return err
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("intent not in 'pending' status or not found")
	}
	return nil
}

// Release moves a pending intent to a dead status ('failed' or 'expired'),
// freeing the (user, service) slot. Releasing an intent that already left
// 'pending' is a no-op; the first state writer wins.
func (r *BookingIntentRepository) Release(intentID uuid.UUID, to models.BookingIntentStatus) (bool, error) {
	if to != models.IntentStatusFailed && to != models.IntentStatusExpired {
		return false, fmt.Errorf("invalid release status: %s", to)
	}

	query := `
		UPDATE booking_intents
		SET status = $2, updated_at = NOW()
		WHERE id = $1 AND status = 'pending'`
	result, err := r.db.Exec(query, intentID, to)
	if err != nil {
		return false, err
	}
	rows, _ := result.RowsAffected()
	return rows > 0, nil
}

// ExpirePending marks pending intents past their TTL as expired, up to
// limit rows per call. Returns the number of intents expired.
func (r *BookingIntentRepository) ExpirePending(limit int) (int, error) {
	query := `
		UPDATE booking_intents
		SET status = 'expired', updated_at = NOW()
		WHERE id IN (
			SELECT id FROM booking_intents
			WHERE status = 'pending' AND expires_at < NOW()
			LIMIT $1
		)`
	result, err := r.db.Exec(query, limit)
	if err != nil {
		return 0, err
	}
	rows, _ := result.RowsAffected()
	return int(rows), nil
}
