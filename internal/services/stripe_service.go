package services

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/SachinxShrivastav33/thess/internal/config"
)

// PaymentGateway abstracts the payment provider. Amounts cross this
// boundary in catalog units; conversion to the provider's minor units
// happens inside the implementation.
type PaymentGateway interface {
	// CreateIntent registers a payment of the given amount with the
	// provider and returns the provider-side intent.
	CreateIntent(amount float64, currency string, bookingIntentID string) (*GatewayIntent, error)

	// VerifyIntent fetches the provider-side intent state. A transport
	// or provider failure returns an error; a reachable provider whose
	// intent has not settled returns Settled = false with a nil error.
	VerifyIntent(externalRef string) (*GatewayIntent, error)
}

// GatewayIntent is the provider's view of a payment.
type GatewayIntent struct {
	ExternalRef  string
	ClientSecret string
	Status       string
	Settled      bool
	Amount       float64
	Currency     string
}

// StripeService implements PaymentGateway against the Stripe
// PaymentIntents API.
type StripeService struct {
	config *config.PaymentConfig
	logger *logrus.Logger
	client *http.Client
}

// stripePaymentIntent is the subset of Stripe's PaymentIntent object we
// read back.
type stripePaymentIntent struct {
	ID           string `json:"id"`
	ClientSecret string `json:"client_secret"`
	Status       string `json:"status"`
	Amount       int64  `json:"amount"`
	Currency     string `json:"currency"`
}

// stripeErrorResponse wraps Stripe's error envelope.
type stripeErrorResponse struct {
	Error struct {
		Type    string `json:"type"`
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// NewStripeService creates a new Stripe payment service
func NewStripeService(cfg *config.PaymentConfig, logger *logrus.Logger) *StripeService {
	return &StripeService{
		config: cfg,
		logger: logger,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// CreateIntent creates a Stripe PaymentIntent. Stripe bills in minor
// units, so the catalog amount is multiplied by 100 and rounded.
func (s *StripeService) CreateIntent(amount float64, currency string, bookingIntentID string) (*GatewayIntent, error) {
	if s.config.SecretKey == "" {
		return nil, fmt.Errorf("payment gateway not configured: missing secret key")
	}

	form := url.Values{}
	form.Set("amount", strconv.FormatInt(int64(math.Round(amount*100)), 10))
	form.Set("currency", currency)
	form.Set("metadata[booking_intent_id]", bookingIntentID)

	req, err := http.NewRequest(http.MethodPost, s.config.APIBase+"/v1/payment_intents", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to build payment intent request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.config.SecretKey)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	intent, err := s.do(req)
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"external_ref": intent.ExternalRef,
		"amount":       amount,
		"currency":     currency,
	}).Info("Payment intent created")

	return intent, nil
}

// VerifyIntent fetches the PaymentIntent from Stripe and reports whether
// it has settled. Only the "succeeded" status counts as settled.
func (s *StripeService) VerifyIntent(externalRef string) (*GatewayIntent, error) {
	if s.config.SecretKey == "" {
		return nil, fmt.Errorf("payment gateway not configured: missing secret key")
	}

	req, err := http.NewRequest(http.MethodGet, s.config.APIBase+"/v1/payment_intents/"+url.PathEscape(externalRef), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build verify request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.config.SecretKey)

	return s.do(req)
}

func (s *StripeService) do(req *http.Request) (*GatewayIntent, error) {
	resp, err := s.client.Do(req)
	if err != nil {
		s.logger.WithError(err).Error("Stripe request failed")
		return nil, fmt.Errorf("stripe request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read stripe response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var errResp stripeErrorResponse
		if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error.Message != "" {
			s.logger.WithFields(logrus.Fields{
				"status_code": resp.StatusCode,
				"error_type":  errResp.Error.Type,
				"error_code":  errResp.Error.Code,
			}).Error("Stripe returned error")
			return nil, fmt.Errorf("stripe error (%d): %s", resp.StatusCode, errResp.Error.Message)
		}
		return nil, fmt.Errorf("stripe returned status %d", resp.StatusCode)
	}

	var pi stripePaymentIntent
	if err := json.Unmarshal(body, &pi); err != nil {
		return nil, fmt.Errorf("failed to parse stripe response: %w", err)
	}
	if pi.ID == "" {
		return nil, fmt.Errorf("stripe response missing payment intent id")
	}

	return &GatewayIntent{
		ExternalRef:  pi.ID,
		ClientSecret: pi.ClientSecret,
		Status:       pi.Status,
		Settled:      pi.Status == "succeeded",
		Amount:       float64(pi.Amount) / 100,
		Currency:     pi.Currency,
	}, nil
}
