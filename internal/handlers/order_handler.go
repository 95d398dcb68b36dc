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

// OrderHandler handles order confirmation and listing endpoints
type OrderHandler struct {
	orderService *services.OrderService
	logger       *logrus.Logger
}

// NewOrderHandler creates a new OrderHandler
func NewOrderHandler(orderService *services.OrderService, logger *logrus.Logger) *OrderHandler {
	return &OrderHandler{
		orderService: orderService,
		logger:       logger,
	}
}

// ConfirmOrder handles POST /api/v1/booking/confirm
//
// Confirms a booking after the client reports the payment went through.
// The payment is re-verified with the gateway before any order is
// written; replays of an already-confirmed booking return the same order.
func (h *OrderHandler) ConfirmOrder(c *gin.Context) {
	userCtx := middleware.MustGetUserContext(c)

	var req models.ConfirmOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "service_id and external_ref are required",
			"code":    "INVALID_REQUEST_BODY",
		})
		return
	}

	serviceID, err := uuid.Parse(req.ServiceID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "service_id must be a valid UUID",
			"code":    "INVALID_SERVICE_ID",
		})
		return
	}

	order, err := h.orderService.Commit(userCtx.UserID, serviceID, req.ExternalRef)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrInvalidIntent):
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "invalid_intent",
				"message": "Booking intent is invalid or payment did not complete",
				"code":    "INVALID_INTENT",
			})
		case errors.Is(err, models.ErrGatewayUnavailable):
			c.JSON(http.StatusBadGateway, gin.H{
				"error":   "gateway_unavailable",
				"message": "Payment gateway is unavailable, please try again",
				"code":    "GATEWAY_UNAVAILABLE",
			})
		default:
			h.logger.WithError(err).WithFields(logrus.Fields{
				"user_id":      userCtx.UserID,
				"service_id":   serviceID,
				"external_ref": req.ExternalRef,
			}).Error("Failed to confirm order")
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":   "internal_error",
				"message": "Failed to confirm order",
				"code":    "INTERNAL_ERROR",
			})
		}
		return
	}

	c.JSON(http.StatusOK, order)
}

// ListOrders handles GET /api/v1/orders
//
// Returns the authenticated user's orders, newest first.
func (h *OrderHandler) ListOrders(c *gin.Context) {
	userCtx := middleware.MustGetUserContext(c)

	orders, err := h.orderService.ListOrders(userCtx.UserID)
	if err != nil {
		h.logger.WithError(err).WithField("user_id", userCtx.UserID).
			Error("Failed to list orders")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "Failed to list orders",
			"code":    "INTERNAL_ERROR",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"orders": orders,
		"count":  len(orders),
	})
}
