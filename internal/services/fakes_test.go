package services

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/SachinxShrivastav33/thess/internal/models"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

// fakeIntentStore is an in-memory BookingIntentStore that mirrors the
// database guarantees: one pending intent per (user, service), first
// state writer wins.
type fakeIntentStore struct {
	mu         sync.Mutex
	intents    map[uuid.UUID]*models.BookingIntent
	paidPairs  map[string]bool
	reserveErr error
	releaseErr error
	refErr     error
}

func newFakeIntentStore() *fakeIntentStore {
	return &fakeIntentStore{
		intents:   make(map[uuid.UUID]*models.BookingIntent),
		paidPairs: make(map[string]bool),
	}
}

func pairKey(userID, serviceID uuid.UUID) string {
	return userID.String() + "/" + serviceID.String()
}

func (s *fakeIntentStore) Reserve(intent *models.BookingIntent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.reserveErr != nil {
		return s.reserveErr
	}
	key := pairKey(intent.UserID, intent.ServiceID)
	if s.paidPairs[key] {
		return models.ErrDuplicateBooking
	}
	for _, existing := range s.intents {
		if existing.Status == models.IntentStatusPending &&
			existing.UserID == intent.UserID && existing.ServiceID == intent.ServiceID {
			return models.ErrDuplicateBooking
		}
	}
	intent.ID = uuid.New()
	intent.Status = models.IntentStatusPending
	intent.CreatedAt = time.Now()
	intent.UpdatedAt = intent.CreatedAt
	clone := *intent
	s.intents[intent.ID] = &clone
	return nil
}

func (s *fakeIntentStore) GetIntentByID(intentID uuid.UUID) (*models.BookingIntent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	intent, ok := s.intents[intentID]
	if !ok {
		return nil, nil
	}
	clone := *intent
	return &clone, nil
}

func (s *fakeIntentStore) GetIntentByExternalRef(externalRef string) (*models.BookingIntent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, intent := range s.intents {
		if intent.ExternalRef != nil && *intent.ExternalRef == externalRef {
			clone := *intent
			return &clone, nil
		}
	}
	return nil, nil
}

func (s *fakeIntentStore) SetExternalRef(intentID uuid.UUID, externalRef string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.refErr != nil {
		return s.refErr
	}
	intent, ok := s.intents[intentID]
	if !ok || intent.Status != models.IntentStatusPending {
		return fmt.Errorf("intent not in 'pending' status or not found")
	}
	intent.ExternalRef = &externalRef
	return nil
}

func (s *fakeIntentStore) Release(intentID uuid.UUID, to models.BookingIntentStatus) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.releaseErr != nil {
		return false, s.releaseErr
	}
	intent, ok := s.intents[intentID]
	if !ok || intent.Status != models.IntentStatusPending {
		return false, nil
	}
	intent.Status = to
	return true, nil
}

func (s *fakeIntentStore) ExpirePending(limit int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, intent := range s.intents {
		if count >= limit {
			break
		}
		if intent.Status == models.IntentStatusPending && time.Now().After(intent.ExpiresAt) {
			intent.Status = models.IntentStatusExpired
			count++
		}
	}
	return count, nil
}

func (s *fakeIntentStore) status(intentID uuid.UUID) models.BookingIntentStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.intents[intentID].Status
}

// fakeOrderStore is an in-memory OrderStore keyed by external ref.
type fakeOrderStore struct {
	mu        sync.Mutex
	intents   *fakeIntentStore
	orders    map[string]*models.Order
	commitErr error
}

func newFakeOrderStore(intents *fakeIntentStore) *fakeOrderStore {
	return &fakeOrderStore{
		intents: intents,
		orders:  make(map[string]*models.Order),
	}
}

func (s *fakeOrderStore) CommitPaidOrder(intent *models.BookingIntent) (*models.Order, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.commitErr != nil {
		return nil, false, s.commitErr
	}
	if intent.ExternalRef == nil {
		return nil, false, fmt.Errorf("intent %s has no external ref", intent.ID)
	}

	s.intents.mu.Lock()
	stored := s.intents.intents[intent.ID]
	if stored.Status != models.IntentStatusPending {
		status := stored.Status
		s.intents.mu.Unlock()
		if status != models.IntentStatusConfirmed {
			return nil, false, models.ErrInvalidIntent
		}
		order := s.orders[*intent.ExternalRef]
		clone := *order
		return &clone, false, nil
	}
	stored.Status = models.IntentStatusConfirmed
	s.intents.paidPairs[pairKey(intent.UserID, intent.ServiceID)] = true
	s.intents.mu.Unlock()

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
	s.orders[order.ExternalRef] = order
	clone := *order
	return &clone, true, nil
}

func (s *fakeOrderStore) GetByExternalRef(externalRef string) (*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	order, ok := s.orders[externalRef]
	if !ok {
		return nil, nil
	}
	clone := *order
	return &clone, nil
}

func (s *fakeOrderStore) ListByUser(userID uuid.UUID) ([]*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var result []*models.Order
	for _, order := range s.orders {
		if order.UserID == userID {
			clone := *order
			result = append(result, &clone)
		}
	}
	return result, nil
}

// fakeCatalog serves a fixed set of services.
type fakeCatalog struct {
	services map[uuid.UUID]*models.Service
}

func newFakeCatalog(services ...*models.Service) *fakeCatalog {
	c := &fakeCatalog{services: make(map[uuid.UUID]*models.Service)}
	for _, svc := range services {
		c.services[svc.ID] = svc
	}
	return c
}

func (c *fakeCatalog) GetServiceByID(serviceID uuid.UUID) (*models.Service, error) {
	svc, ok := c.services[serviceID]
	if !ok {
		return nil, nil
	}
	return svc, nil
}

// fakeGateway scripts gateway behavior per external ref.
type fakeGateway struct {
	mu          sync.Mutex
	createErr   error
	verifyErr   error
	nextRef     string
	settled     map[string]bool
	amounts     map[string]float64
	createCalls int
	verifyCalls int
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		nextRef: "pi_test_1",
		settled: make(map[string]bool),
		amounts: make(map[string]float64),
	}
}

func (g *fakeGateway) CreateIntent(amount float64, currency string, bookingIntentID string) (*GatewayIntent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.createCalls++
	if g.createErr != nil {
		return nil, g.createErr
	}
	g.amounts[g.nextRef] = amount
	return &GatewayIntent{
		ExternalRef:  g.nextRef,
		ClientSecret: g.nextRef + "_secret",
		Status:       "requires_payment_method",
		Amount:       amount,
		Currency:     currency,
	}, nil
}

func (g *fakeGateway) VerifyIntent(externalRef string) (*GatewayIntent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.verifyCalls++
	if g.verifyErr != nil {
		return nil, g.verifyErr
	}
	settled := g.settled[externalRef]
	status := "requires_payment_method"
	if settled {
		status = "succeeded"
	}
	return &GatewayIntent{
		ExternalRef: externalRef,
		Status:      status,
		Settled:     settled,
		Amount:      g.amounts[externalRef],
		Currency:    "inr",
	}, nil
}

// fakeAuditLog records audit entries in memory.
type fakeAuditLog struct {
	mu      sync.Mutex
	entries []*models.PaymentAudit
	err     error
}

func (l *fakeAuditLog) Log(audit *models.PaymentAudit) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return l.err
	}
	l.entries = append(l.entries, audit)
	return nil
}

func (l *fakeAuditLog) eventTypes() []models.PaymentEventType {
	l.mu.Lock()
	defer l.mu.Unlock()
	types := make([]models.PaymentEventType, 0, len(l.entries))
	for _, entry := range l.entries {
		types = append(types, entry.EventType)
	}
	return types
}
