package services

import (
	"time"

	"github.com/sirupsen/logrus"
)

// expireBatchSize caps how many intents a single sweep marks expired.
const expireBatchSize = 100

// IntentExpirationService is the background sweeper that expires pending
// intents past their TTL, freeing their (user, service) slots. Commits
// also expire overdue intents on access, so the sweeper only bounds how
// long an abandoned slot stays held.
type IntentExpirationService struct {
	intents  BookingIntentStore
	interval time.Duration
	logger   *logrus.Logger
	stop     chan struct{}
	done     chan struct{}
}

// NewIntentExpirationService creates a new IntentExpirationService
func NewIntentExpirationService(intents BookingIntentStore, interval time.Duration, logger *logrus.Logger) *IntentExpirationService {
	return &IntentExpirationService{
		intents:  intents,
		interval: interval,
		logger:   logger,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start launches the sweep loop in a goroutine.
func (s *IntentExpirationService) Start() {
	go s.run()
	s.logger.WithField("interval", s.interval).Info("Intent expiration service started")
}

// Stop signals the loop to exit and waits for it to finish.
func (s *IntentExpirationService) Stop() {
	close(s.stop)
	<-s.done
	s.logger.Info("Intent expiration service stopped")
}

func (s *IntentExpirationService) run() {
	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.sweep()
		case <-s.stop:
			return
		}
	}
}

func (s *IntentExpirationService) sweep() {
	total := 0
	for {
		expired, err := s.intents.ExpirePending(expireBatchSize)
		if err != nil {
			s.logger.WithError(err).Error("Failed to expire pending intents")
			return
		}
		total += expired
		if expired < expireBatchSize {
			break
		}
	}
	if total > 0 {
		s.logger.WithField("count", total).Info("Expired pending booking intents")
	}
}
