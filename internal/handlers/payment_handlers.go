package handlers

import (
	"errors"
	"io"
	"net/http"

	"swaad_backend/internal/middleware"
	"swaad_backend/internal/services"
	"swaad_backend/pkg/utils"

	"github.com/gin-gonic/gin"
)

// PaymentHandler holds the payment service.
type PaymentHandler struct {
	paymentService services.PaymentService
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(ps services.PaymentService) *PaymentHandler {
	return &PaymentHandler{paymentService: ps}
}

// VerifyPayment is the client-driven reconciliation path: the app calls it
// after checkout and the server polls the gateway for the authoritative
// payment state. Safe to call repeatedly.
func (h *PaymentHandler) VerifyPayment(c *gin.Context) {
	orderID, ok := parseOrderID(c)
	if !ok {
		return
	}

	result, err := h.paymentService.VerifyPayment(c.Request.Context(), orderID, c.GetString(middleware.ContextUID))
	if err != nil {
		if errors.Is(err, services.ErrOrderNotFound) {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusNotFound, utils.ErrCodeNotFound, "Order not found.", ""))
			return
		}
		if errors.Is(err, services.ErrNotOwner) {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusForbidden, utils.ErrCodeForbidden, "Order belongs to another customer.", ""))
			return
		}
		if errors.Is(err, services.ErrPaymentGateway) {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusBadGateway, utils.ErrCodePaymentGateway, "Payment gateway is unavailable, try again.", err.Error()))
			return
		}
		if errors.Is(err, services.ErrAmountMismatch) {
			// The order was force-cancelled; the client gets the final state.
			utils.RespondWithError(c, utils.NewAPIError(http.StatusConflict, utils.ErrCodeAmountMismatch, "Paid amount does not match the order total; order cancelled.", ""))
			return
		}
		utils.LogError(err, "VerifyPayment: Error from paymentService.VerifyPayment")
		utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Failed to verify payment.", "Internal error"))
		return
	}
	c.JSON(http.StatusOK, result)
}

// HandleWebhook is the gateway-driven reconciliation path. It always
// acknowledges with 200 so the gateway does not retry forever; every internal
// failure is logged and counted instead of surfaced.
func (h *PaymentHandler) HandleWebhook(c *gin.Context) {
	raw, err := io.ReadAll(c.Request.Body)
	if err != nil {
		utils.LogError(err, "HandleWebhook: Failed to read request body")
		c.JSON(http.StatusOK, gin.H{"status": "acknowledged"})
		return
	}

	timestamp := c.GetHeader("x-webhook-timestamp")
	signature := c.GetHeader("x-webhook-signature")

	result, err := h.paymentService.HandleWebhook(c.Request.Context(), raw, timestamp, signature)
	if err != nil {
		utils.LogError(err, "HandleWebhook: Webhook processing failed")
		c.JSON(http.StatusOK, gin.H{"status": "acknowledged"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "acknowledged", "order_id": result.OrderID, "outcome": result.Outcome})
}
