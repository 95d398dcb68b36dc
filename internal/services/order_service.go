package services

import (
	"fmt"
	"math"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/SachinxShrivastav33/thess/internal/models"
)

// OrderStore is the persistence surface the commit flow needs.
type OrderStore interface {
	CommitPaidOrder(intent *models.BookingIntent) (*models.Order, bool, error)
	GetByExternalRef(externalRef string) (*models.Order, error)
	ListByUser(userID uuid.UUID) ([]*models.Order, error)
}

// amountTolerance absorbs float rounding when comparing the gateway's
// settled amount against the intent amount.
const amountTolerance = 0.01

// OrderService runs the commit half of the booking flow: re-verify the
// payment with the gateway and turn the pending intent into an order.
type OrderService struct {
	intents BookingIntentStore
	orders  OrderStore
	gateway PaymentGateway
	audits  PaymentAuditLogger
	logger  *logrus.Logger
}

// NewOrderService creates a new OrderService
func NewOrderService(
	intents BookingIntentStore,
	orders OrderStore,
	gateway PaymentGateway,
	audits PaymentAuditLogger,
	logger *logrus.Logger,
) *OrderService {
	return &OrderService{
		intents: intents,
		orders:  orders,
		gateway: gateway,
		audits:  audits,
		logger:  logger,
	}
}

// Commit confirms a booking after the client reports payment. The client
// report is never trusted: the gateway is asked directly whether the
// payment settled, and only a settled payment of the right amount
// produces an order.
//
// Replays of an already-committed confirmation return the existing order.
// A gateway outage leaves the intent pending so the client can retry; an
// unsettled payment kills the intent so the slot frees immediately.
func (s *OrderService) Commit(userID, serviceID uuid.UUID, externalRef string) (*models.Order, error) {
	intent, err := s.intents.GetIntentByExternalRef(externalRef)
	if err != nil {
		return nil, fmt.Errorf("failed to look up intent: %w", err)
	}
	if intent == nil || intent.UserID != userID || intent.ServiceID != serviceID {
		return nil, models.ErrInvalidIntent
	}

	switch intent.Status {
	case models.IntentStatusConfirmed:
		order, err := s.orders.GetByExternalRef(externalRef)
		if err != nil {
			return nil, fmt.Errorf("failed to look up order: %w", err)
		}
		if order == nil {
			return nil, fmt.Errorf("intent %s confirmed but order missing", intent.ID)
		}
		return order, nil
	case models.IntentStatusFailed, models.IntentStatusExpired:
		return nil, models.ErrInvalidIntent
	}

	if intent.IsExpired() {
		if released, err := s.intents.Release(intent.ID, models.IntentStatusExpired); err != nil {
			s.logger.WithError(err).WithField("intent_id", intent.ID).
				Error("Failed to expire overdue intent")
		} else if released {
			s.audit(models.NewPaymentAudit(models.PaymentEventIntentExpired).
				SetIntent(intent.ID).
				SetExternalRef(externalRef))
		}
		return nil, models.ErrInvalidIntent
	}

	gatewayIntent, err := s.gateway.VerifyIntent(externalRef)
	if err != nil {
		// Could not reach the gateway, so nothing is known about the
		// payment. Leave the intent pending and let the client retry.
		s.logger.WithError(err).WithFields(logrus.Fields{
			"intent_id":    intent.ID,
			"external_ref": externalRef,
		}).Error("Payment verification failed")

		s.audit(models.NewPaymentAudit(models.PaymentEventGatewayError).
			SetIntent(intent.ID).
			SetExternalRef(externalRef).
			SetError(err))
		return nil, models.ErrGatewayUnavailable
	}

	if !gatewayIntent.Settled || math.Abs(gatewayIntent.Amount-intent.Amount) > amountTolerance {
		s.logger.WithFields(logrus.Fields{
			"intent_id":      intent.ID,
			"external_ref":   externalRef,
			"gateway_status": gatewayIntent.Status,
			"gateway_amount": gatewayIntent.Amount,
			"intent_amount":  intent.Amount,
		}).Warn("Payment did not verify, releasing intent")

		s.audit(models.NewPaymentAudit(models.PaymentEventVerifyFailed).
			SetIntent(intent.ID).
			SetExternalRef(externalRef).
			SetAmount(gatewayIntent.Amount, intent.Currency).
			SetGatewayStatus(gatewayIntent.Status))

		if _, relErr := s.intents.Release(intent.ID, models.IntentStatusFailed); relErr != nil {
			s.logger.WithError(relErr).WithField("intent_id", intent.ID).
				Error("Failed to release intent after verification failure")
		}
		return nil, models.ErrInvalidIntent
	}

	order, created, err := s.orders.CommitPaidOrder(intent)
	if err != nil {
		return nil, err
	}

	if created {
		s.audit(models.NewPaymentAudit(models.PaymentEventOrderCommitted).
			SetIntent(intent.ID).
			SetExternalRef(externalRef).
			SetAmount(order.Amount, order.Currency).
			SetGatewayStatus(gatewayIntent.Status))

		s.logger.WithFields(logrus.Fields{
			"order_id":     order.ID,
			"intent_id":    intent.ID,
			"user_id":      userID,
			"service_id":   serviceID,
			"external_ref": externalRef,
		}).Info("Order committed")
	}

	return order, nil
}

// ListOrders returns the user's orders, newest first.
func (s *OrderService) ListOrders(userID uuid.UUID) ([]*models.Order, error) {
	return s.orders.ListByUser(userID)
}

func (s *OrderService) audit(entry *models.PaymentAudit) {
	if err := s.audits.Log(entry); err != nil {
		s.logger.WithError(err).WithField("event_type", entry.EventType).
			Warn("Failed to write payment audit entry")
	}
}
