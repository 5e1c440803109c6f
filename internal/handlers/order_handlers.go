package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"swaad_backend/internal/middleware"
	"swaad_backend/internal/models"
	"swaad_backend/internal/services"
	"swaad_backend/internal/statemachine"
	"swaad_backend/pkg/utils"

	"github.com/gin-gonic/gin"
)

// OrderHandler holds the order service.
type OrderHandler struct {
	orderService services.OrderService
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(os services.OrderService) *OrderHandler {
	return &OrderHandler{orderService: os}
}

// CreateOrder handles order placement by an authenticated customer. The
// declared subtotal and total are recomputed server-side before anything is
// persisted.
func (h *OrderHandler) CreateOrder(c *gin.Context) {
	var req services.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid request payload: "+err.Error(), err.Error()))
		return
	}
	req.CustomerUID = c.GetString(middleware.ContextUID)

	order, err := h.orderService.CreateOrder(c.Request.Context(), req)
	if err != nil {
		utils.LogError(err, "CreateOrder: Error from orderService.CreateOrder")
		if errors.Is(err, services.ErrValidation) {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, err.Error(), ""))
		} else if errors.Is(err, services.ErrPriceMismatch) {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodePriceMismatch, err.Error(), ""))
		} else if errors.Is(err, services.ErrItemUnavailable) {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusConflict, utils.ErrCodeItemUnavailable, err.Error(), ""))
		} else if errors.Is(err, services.ErrRestaurantNotFound) || errors.Is(err, services.ErrCustomerNotFound) {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusNotFound, utils.ErrCodeNotFound, err.Error(), ""))
		} else if errors.Is(err, services.ErrPaymentGateway) {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusBadGateway, utils.ErrCodePaymentGateway, "Payment session could not be created.", err.Error()))
		} else {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Failed to create order.", "Internal error"))
		}
		return
	}
	c.JSON(http.StatusCreated, order)
}

// GetOrder fetches a single order with its items.
func (h *OrderHandler) GetOrder(c *gin.Context) {
	orderID, ok := parseOrderID(c)
	if !ok {
		return
	}
	order, err := h.orderService.GetOrderByID(orderID)
	if err != nil {
		if errors.Is(err, services.ErrOrderNotFound) {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusNotFound, utils.ErrCodeNotFound, "Order not found.", ""))
			return
		}
		utils.LogError(err, "GetOrder: Error from orderService.GetOrderByID")
		utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Failed to fetch order.", "Internal error"))
		return
	}
	c.JSON(http.StatusOK, order)
}

// GetOrders lists orders with pagination and filters. Restaurant and customer
// callers are pinned to their own orders; admins may filter freely.
func (h *OrderHandler) GetOrders(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}

	filters := models.OrderFilters{Page: page, PageSize: pageSize}
	if statusStr := c.Query("status"); statusStr != "" {
		filters.Status = &statusStr
	}

	uid := c.GetString(middleware.ContextUID)
	switch c.GetString(middleware.ContextRole) {
	case models.RoleRestaurant:
		filters.RestaurantUID = &uid
	case models.RoleCustomer:
		filters.CustomerUID = &uid
	default:
		if r := c.Query("restaurant_uid"); r != "" {
			filters.RestaurantUID = &r
		}
		if cu := c.Query("customer_uid"); cu != "" {
			filters.CustomerUID = &cu
		}
	}

	orders, totalCount, err := h.orderService.GetOrders(filters)
	if err != nil {
		utils.LogError(err, "GetOrders: Error from orderService.GetOrders")
		utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Failed to fetch orders.", "Internal error"))
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"data":        orders,
		"total_count": totalCount,
		"page":        page,
		"page_size":   pageSize,
	})
}

type updateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// UpdateOrderStatus handles the generic progression transitions (preparing,
// ready, on_the_way, delivered) and admin cancellation. Accept and reject go
// through their dedicated endpoints.
func (h *OrderHandler) UpdateOrderStatus(c *gin.Context) {
	orderID, ok := parseOrderID(c)
	if !ok {
		return
	}
	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid request payload: "+err.Error(), err.Error()))
		return
	}

	actor := statemachine.ActorRestaurant
	if c.GetString(middleware.ContextRole) == models.RoleAdmin {
		actor = statemachine.ActorAdmin
	}

	order, err := h.orderService.UpdateOrderStatus(orderID, models.OrderStatus(req.Status), actor)
	if err != nil {
		if errors.Is(err, services.ErrOrderNotFound) {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusNotFound, utils.ErrCodeNotFound, "Order not found.", ""))
		} else if errors.Is(err, statemachine.ErrInvalidTransition) {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusConflict, utils.ErrCodeInvalidTransition, err.Error(), ""))
		} else {
			utils.LogError(err, "UpdateOrderStatus: Error from orderService.UpdateOrderStatus")
			utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Failed to update order status.", "Internal error"))
		}
		return
	}
	c.JSON(http.StatusOK, order)
}

// AcceptOrder moves a pending order to preparing on behalf of its restaurant.
func (h *OrderHandler) AcceptOrder(c *gin.Context) {
	orderID, ok := parseOrderID(c)
	if !ok {
		return
	}
	order, err := h.orderService.AcceptOrder(orderID, c.GetString(middleware.ContextUID))
	if err != nil {
		h.respondDecisionError(c, err, "AcceptOrder")
		return
	}
	c.JSON(http.StatusOK, order)
}

type rejectOrderRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// RejectOrder moves a pending order to rejected with a mandatory reason.
func (h *OrderHandler) RejectOrder(c *gin.Context) {
	orderID, ok := parseOrderID(c)
	if !ok {
		return
	}
	var req rejectOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Rejection reason is required.", err.Error()))
		return
	}
	order, err := h.orderService.RejectOrder(orderID, c.GetString(middleware.ContextUID), req.Reason)
	if err != nil {
		h.respondDecisionError(c, err, "RejectOrder")
		return
	}
	c.JSON(http.StatusOK, order)
}

func (h *OrderHandler) respondDecisionError(c *gin.Context, err error, op string) {
	if errors.Is(err, services.ErrOrderNotFound) {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusNotFound, utils.ErrCodeNotFound, "Order not found.", ""))
	} else if errors.Is(err, services.ErrNotOwner) {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusForbidden, utils.ErrCodeForbidden, "Order belongs to another restaurant.", ""))
	} else if errors.Is(err, services.ErrValidation) {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, err.Error(), ""))
	} else if errors.Is(err, statemachine.ErrInvalidTransition) {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusConflict, utils.ErrCodeInvalidTransition, err.Error(), ""))
	} else {
		utils.LogError(err, op+": Error from order service")
		utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Failed to process order decision.", "Internal error"))
	}
}

func parseOrderID(c *gin.Context) (int64, bool) {
	orderID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid order ID format.", err.Error()))
		return 0, false
	}
	return orderID, true
}
