package services

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/SachinxShrivastav33/thess/internal/models"
)

// BookingIntentStore is the persistence surface the booking flow needs.
type BookingIntentStore interface {
	Reserve(intent *models.BookingIntent) error
	GetIntentByID(intentID uuid.UUID) (*models.BookingIntent, error)
	GetIntentByExternalRef(externalRef string) (*models.BookingIntent, error)
	SetExternalRef(intentID uuid.UUID, externalRef string) error
	Release(intentID uuid.UUID, to models.BookingIntentStatus) (bool, error)
	ExpirePending(limit int) (int, error)
}

// ServiceCatalog resolves bookable services.
type ServiceCatalog interface {
	GetServiceByID(serviceID uuid.UUID) (*models.Service, error)
}

// PaymentAuditLogger records payment events. Audit failures are logged
// and swallowed; they never fail the booking flow they describe.
type PaymentAuditLogger interface {
	Log(audit *models.PaymentAudit) error
}

// BookingService runs the reservation half of the booking flow: hold the
// (user, service) slot, then register the payment with the gateway.
type BookingService struct {
	intents  BookingIntentStore
	catalog  ServiceCatalog
	gateway  PaymentGateway
	audits   PaymentAuditLogger
	currency string
	ttl      time.Duration
	logger   *logrus.Logger
}

// NewBookingService creates a new BookingService
func NewBookingService(
	intents BookingIntentStore,
	catalog ServiceCatalog,
	gateway PaymentGateway,
	audits PaymentAuditLogger,
	currency string,
	ttl time.Duration,
	logger *logrus.Logger,
) *BookingService {
	return &BookingService{
		intents:  intents,
		catalog:  catalog,
		gateway:  gateway,
		audits:   audits,
		currency: currency,
		ttl:      ttl,
		logger:   logger,
	}
}

// Book reserves the (user, service) slot and creates the gateway payment
// intent. The slot is reserved before the gateway is called; if the
// gateway call fails the reservation is released so the user can retry
// immediately instead of waiting out the TTL.
//
// The price is captured from the catalog at this moment and stays fixed
// for the life of the intent.
func (s *BookingService) Book(userID, serviceID uuid.UUID) (*models.BookServiceResponse, error) {
	service, err := s.catalog.GetServiceByID(serviceID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up service: %w", err)
	}
	if service == nil {
		return nil, models.ErrServiceNotFound
	}

	intent := &models.BookingIntent{
		UserID:    userID,
		ServiceID: serviceID,
		Amount:    service.Price,
		Currency:  s.currency,
		ExpiresAt: time.Now().Add(s.ttl),
	}
	if err := s.intents.Reserve(intent); err != nil {
		return nil, err
	}

	gatewayIntent, err := s.gateway.CreateIntent(intent.Amount, intent.Currency, intent.ID.String())
	if err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"intent_id":  intent.ID,
			"user_id":    userID,
			"service_id": serviceID,
		}).Error("Gateway intent creation failed, releasing reservation")

		s.audit(models.NewPaymentAudit(models.PaymentEventGatewayError).
			SetIntent(intent.ID).
			SetAmount(intent.Amount, intent.Currency).
			SetError(err))

		if _, relErr := s.intents.Release(intent.ID, models.IntentStatusFailed); relErr != nil {
			s.logger.WithError(relErr).WithField("intent_id", intent.ID).
				Error("Failed to release reservation after gateway error")
		}
		return nil, models.ErrGatewayUnavailable
	}

	if err := s.intents.SetExternalRef(intent.ID, gatewayIntent.ExternalRef); err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"intent_id":    intent.ID,
			"external_ref": gatewayIntent.ExternalRef,
		}).Error("Failed to attach external ref, releasing reservation")

		if _, relErr := s.intents.Release(intent.ID, models.IntentStatusFailed); relErr != nil {
			s.logger.WithError(relErr).WithField("intent_id", intent.ID).
				Error("Failed to release reservation after external ref error")
		}
		return nil, fmt.Errorf("failed to attach external ref: %w", err)
	}

	s.audit(models.NewPaymentAudit(models.PaymentEventIntentCreated).
		SetIntent(intent.ID).
		SetExternalRef(gatewayIntent.ExternalRef).
		SetAmount(intent.Amount, intent.Currency).
		SetGatewayStatus(gatewayIntent.Status))

	s.logger.WithFields(logrus.Fields{
		"intent_id":    intent.ID,
		"user_id":      userID,
		"service_id":   serviceID,
		"external_ref": gatewayIntent.ExternalRef,
	}).Info("Booking intent reserved")

	return &models.BookServiceResponse{
		IntentID:     intent.ID,
		ExternalRef:  gatewayIntent.ExternalRef,
		ClientSecret: gatewayIntent.ClientSecret,
		Amount:       intent.Amount,
		Currency:     intent.Currency,
		ExpiresAt:    intent.ExpiresAt,
	}, nil
}

func (s *BookingService) audit(entry *models.PaymentAudit) {
	if err := s.audits.Log(entry); err != nil {
		s.logger.WithError(err).WithField("event_type", entry.EventType).
			Warn("Failed to write payment audit entry")
	}
}
