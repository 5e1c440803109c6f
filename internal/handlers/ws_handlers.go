package handlers

import (
	"net/http"

	"swaad_backend/internal/middleware"
	"swaad_backend/internal/models"
	"swaad_backend/internal/realtime"
	"swaad_backend/pkg/utils"

	"github.com/gin-gonic/gin"
)

// WSHandler upgrades authenticated clients onto their own realtime channel.
type WSHandler struct {
	hub *realtime.Hub
}

func NewWSHandler(hub *realtime.Hub) *WSHandler {
	return &WSHandler{hub: hub}
}

// Connect subscribes the caller to its identity channel. Restaurants receive
// new-order and decision events; customers receive status updates for their
// own orders.
func (h *WSHandler) Connect(c *gin.Context) {
	uid := c.GetString(middleware.ContextUID)

	var channel string
	switch c.GetString(middleware.ContextRole) {
	case models.RoleRestaurant:
		channel = realtime.RestaurantChannel(uid)
	case models.RoleCustomer:
		channel = realtime.CustomerChannel(uid)
	default:
		utils.RespondWithError(c, utils.NewAPIError(http.StatusForbidden, utils.ErrCodeForbidden, "Realtime channels are only available to restaurants and customers.", ""))
		return
	}

	h.hub.HandleWS(c.Writer, c.Request, channel)
}
