package models

import "errors"

// Sentinel errors shared by repositories, services and handlers.
// Handlers map these to HTTP status codes with errors.Is.
var (
	// ErrServiceNotFound means the requested catalog service does not exist.
	ErrServiceNotFound = errors.New("service not found")

	// ErrDuplicateBooking means the (user, service) pair already has a
	// pending intent or a paid order.
	ErrDuplicateBooking = errors.New("service already booked")

	// ErrGatewayUnavailable means the payment gateway call failed or timed
	// out. The caller may retry the same flow.
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")

	// ErrInvalidIntent means the confirmation references an intent that
	// does not exist, belongs to a different user or service, is already
	// dead, or whose payment did not settle. Retrying is futile; a new
	// booking must be started.
	ErrInvalidIntent = errors.New("invalid booking intent")
)
