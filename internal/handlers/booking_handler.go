package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/SachinxShrivastav33/thess/internal/middleware"
	"github.com/SachinxShrivastav33/thess/internal/models"
	"github.com/SachinxShrivastav33/thess/internal/services"
)

// BookingHandler handles booking reservation endpoints
type BookingHandler struct {
	bookingService *services.BookingService
	logger         *logrus.Logger
}

// NewBookingHandler creates a new BookingHandler
func NewBookingHandler(bookingService *services.BookingService, logger *logrus.Logger) *BookingHandler {
	return &BookingHandler{
		bookingService: bookingService,
		logger:         logger,
	}
}

// BookService handles POST /api/v1/booking/:service_id
//
// Reserves the service for the authenticated user and returns the
// payment details the client needs to collect the payment.
func (h *BookingHandler) BookService(c *gin.Context) {
	userCtx := middleware.MustGetUserContext(c)

	serviceID, err := uuid.Parse(c.Param("service_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "service_id must be a valid UUID",
			"code":    "INVALID_SERVICE_ID",
		})
		return
	}

	resp, err := h.bookingService.Book(userCtx.UserID, serviceID)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrServiceNotFound):
			c.JSON(http.StatusNotFound, gin.H{
				"error":   "not_found",
				"message": "Service not found",
				"code":    "SERVICE_NOT_FOUND",
			})
		case errors.Is(err, models.ErrDuplicateBooking):
			c.JSON(http.StatusConflict, gin.H{
				"error":   "conflict",
				"message": "You have already booked this service",
				"code":    "DUPLICATE_BOOKING",
			})
		case errors.Is(err, models.ErrGatewayUnavailable):
			c.JSON(http.StatusBadGateway, gin.H{
				"error":   "gateway_unavailable",
				"message": "Payment gateway is unavailable, please try again",
				"code":    "GATEWAY_UNAVAILABLE",
			})
		default:
			h.logger.WithError(err).WithFields(logrus.Fields{
				"user_id":    userCtx.UserID,
				"service_id": serviceID,
			}).Error("Failed to book service")
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":   "internal_error",
				"message": "Failed to book service",
				"code":    "INTERNAL_ERROR",
			})
		}
		return
	}

	c.JSON(http.StatusCreated, resp)
}
