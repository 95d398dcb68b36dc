package database

import (
	"fmt"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SachinxShrivastav33/thess/internal/models"
)

func newTestDB(t *testing.T) (DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return &PostgresDB{DB: sqlx.NewDb(db, "sqlmock")}, mock
}

func TestReserve(t *testing.T) {
	testDB, mock := newTestDB(t)
	repo := NewBookingIntentRepository(testDB)

	userID := uuid.New()
	serviceID := uuid.New()

	t.Run("Success", func(t *testing.T) {
		mock.ExpectExec(`INSERT INTO booking_intents`).
			WithArgs(
				sqlmock.AnyArg(), userID, serviceID, 499.0, "inr",
				models.IntentStatusPending, sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
			).
			WillReturnResult(sqlmock.NewResult(0, 1))

		intent := &models.BookingIntent{
			UserID:    userID,
			ServiceID: serviceID,
			Amount:    499.0,
			Currency:  "inr",
			ExpiresAt: time.Now().Add(30 * time.Minute),
		}
		err := repo.Reserve(intent)
		require.NoError(t, err)
		assert.NotEqual(t, uuid.Nil, intent.ID)
		assert.Equal(t, models.IntentStatusPending, intent.Status)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Paid Order Exists", func(t *testing.T) {
		mock.ExpectExec(`INSERT INTO booking_intents`).
			WithArgs(
				sqlmock.AnyArg(), userID, serviceID, 499.0, "inr",
				models.IntentStatusPending, sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
			).
			WillReturnResult(sqlmock.NewResult(0, 0))

		intent := &models.BookingIntent{
			UserID:    userID,
			ServiceID: serviceID,
			Amount:    499.0,
			Currency:  "inr",
			ExpiresAt: time.Now().Add(30 * time.Minute),
		}
		err := repo.Reserve(intent)
		assert.ErrorIs(t, err, models.ErrDuplicateBooking)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Concurrent Pending Intent", func(t *testing.T) {
		mock.ExpectExec(`INSERT INTO booking_intents`).
			WithArgs(
				sqlmock.AnyArg(), userID, serviceID, 499.0, "inr",
				models.IntentStatusPending, sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
			).
			WillReturnError(&pq.Error{Code: "23505", Constraint: "booking_intents_user_service_pending_idx"})

		intent := &models.BookingIntent{
			UserID:    userID,
			ServiceID: serviceID,
			Amount:    499.0,
			Currency:  "inr",
			ExpiresAt: time.Now().Add(30 * time.Minute),
		}
		err := repo.Reserve(intent)
		assert.ErrorIs(t, err, models.ErrDuplicateBooking)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Database Error", func(t *testing.T) {
		mock.ExpectExec(`INSERT INTO booking_intents`).
			WillReturnError(fmt.Errorf("connection refused"))

		intent := &models.BookingIntent{
			UserID:    userID,
			ServiceID: serviceID,
			Amount:    499.0,
			Currency:  "inr",
			ExpiresAt: time.Now().Add(30 * time.Minute),
		}
		err := repo.Reserve(intent)
		require.Error(t, err)
		assert.NotErrorIs(t, err, models.ErrDuplicateBooking)
		assert.Contains(t, err.Error(), "failed to reserve booking intent")

		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGetIntentByExternalRef(t *testing.T) {
	testDB, mock := newTestDB(t)
	repo := NewBookingIntentRepository(testDB)

	intentColumns := []string{
		"id", "user_id", "service_id", "amount", "currency", "external_ref",
		"status", "expires_at", "confirmed_at", "created_at", "updated_at",
	}

	t.Run("Found", func(t *testing.T) {
		intentID := uuid.New()
		userID := uuid.New()
		serviceID := uuid.New()
		ref := "pi_3NxYz"
		now := time.Now()

		mock.ExpectQuery(`SELECT (.+) FROM booking_intents WHERE external_ref`).
			WithArgs(ref).
			WillReturnRows(sqlmock.NewRows(intentColumns).AddRow(
				intentID, userID, serviceID, 499.0, "inr", ref,
				"pending", now.Add(30*time.Minute), nil, now, now,
			))

		intent, err := repo.GetIntentByExternalRef(ref)
		require.NoError(t, err)
		require.NotNil(t, intent)
		assert.Equal(t, intentID, intent.ID)
		assert.Equal(t, models.IntentStatusPending, intent.Status)
		require.NotNil(t, intent.ExternalRef)
		assert.Equal(t, ref, *intent.ExternalRef)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Not Found", func(t *testing.T) {
		mock.ExpectQuery(`SELECT (.+) FROM booking_intents WHERE external_ref`).
			WithArgs("pi_missing").
			WillReturnRows(sqlmock.NewRows(intentColumns))

		intent, err := repo.GetIntentByExternalRef("pi_missing")
		require.NoError(t, err)
		assert.Nil(t, intent)

		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestSetExternalRef(t *testing.T) {
	testDB, mock := newTestDB(t)
	repo := NewBookingIntentRepository(testDB)

	intentID := uuid.New()

	t.Run("Success", func(t *testing.T) {
		mock.ExpectExec(`UPDATE booking_intents`).
			WithArgs(intentID, "pi_3NxYz").
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := repo.SetExternalRef(intentID, "pi_3NxYz")
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Intent Not Pending", func(t *testing.T) {
		mock.ExpectExec(`UPDATE booking_intents`).
			WithArgs(intentID, "pi_3NxYz").
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.SetExternalRef(intentID, "pi_3NxYz")
		assert.Error(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestRelease(t *testing.T) {
	testDB, mock := newTestDB(t)
	repo := NewBookingIntentRepository(testDB)

	intentID := uuid.New()

	t.Run("Releases Pending Intent", func(t *testing.T) {
		mock.ExpectExec(`UPDATE booking_intents`).
			WithArgs(intentID, models.IntentStatusFailed).
			WillReturnResult(sqlmock.NewResult(0, 1))

		released, err := repo.Release(intentID, models.IntentStatusFailed)
		require.NoError(t, err)
		assert.True(t, released)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("No-op On Terminal Intent", func(t *testing.T) {
		mock.ExpectExec(`UPDATE booking_intents`).
			WithArgs(intentID, models.IntentStatusExpired).
			WillReturnResult(sqlmock.NewResult(0, 0))

		released, err := repo.Release(intentID, models.IntentStatusExpired)
		require.NoError(t, err)
		assert.False(t, released)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Rejects Non-Dead Target Status", func(t *testing.T) {
		released, err := repo.Release(intentID, models.IntentStatusConfirmed)
		assert.Error(t, err)
		assert.False(t, released)
	})
}

func TestExpirePending(t *testing.T) {
	testDB, mock := newTestDB(t)
	repo := NewBookingIntentRepository(testDB)

	t.Run("Expires Overdue Intents", func(t *testing.T) {
		mock.ExpectExec(`UPDATE booking_intents`).
			WithArgs(100).
			WillReturnResult(sqlmock.NewResult(0, 3))

		count, err := repo.ExpirePending(100)
		require.NoError(t, err)
		assert.Equal(t, 3, count)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Nothing To Expire", func(t *testing.T) {
		mock.ExpectExec(`UPDATE booking_intents`).
			WithArgs(100).
			WillReturnResult(sqlmock.NewResult(0, 0))

		count, err := repo.ExpirePending(100)
		require.NoError(t, err)
		assert.Equal(t, 0, count)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
