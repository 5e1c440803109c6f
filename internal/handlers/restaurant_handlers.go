package handlers

import (
	"errors"
	"net/http"

	"swaad_backend/internal/middleware"
	"swaad_backend/internal/services"
	"swaad_backend/pkg/utils"

	"github.com/gin-gonic/gin"
)

// RestaurantHandler holds the order service for restaurant-facing actions.
type RestaurantHandler struct {
	orderService services.OrderService
}

// NewRestaurantHandler creates a new RestaurantHandler.
func NewRestaurantHandler(os services.OrderService) *RestaurantHandler {
	return &RestaurantHandler{orderService: os}
}

type setOnlineRequest struct {
	Online *bool `json:"online" binding:"required"`
}

// SetOnline toggles the authenticated restaurant's availability. Going online
// releases any paid orders that were held while the restaurant was offline.
func (h *RestaurantHandler) SetOnline(c *gin.Context) {
	var req setOnlineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Field 'online' is required.", err.Error()))
		return
	}

	restaurantUID := c.GetString(middleware.ContextUID)
	released, err := h.orderService.SetRestaurantOnline(restaurantUID, *req.Online)
	if err != nil {
		if errors.Is(err, services.ErrRestaurantNotFound) {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusNotFound, utils.ErrCodeNotFound, "Restaurant not found.", ""))
			return
		}
		utils.LogError(err, "SetOnline: Error from orderService.SetRestaurantOnline")
		utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Failed to update online status.", "Internal error"))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"online":          *req.Online,
		"released_orders": len(released),
	})
}
