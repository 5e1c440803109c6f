package handlers

import (
	"errors"
	"net/http"

	"swaad_backend/internal/services"
	"swaad_backend/pkg/utils"

	"github.com/gin-gonic/gin"
)

// AuthHandler holds the auth service.
type AuthHandler struct {
	authService services.AuthService
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(as services.AuthService) *AuthHandler {
	return &AuthHandler{authService: as}
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// LoginRestaurant authenticates a restaurant account and returns a token.
func (h *AuthHandler) LoginRestaurant(c *gin.Context) {
	h.login(c, h.authService.LoginRestaurant)
}

// LoginCustomer authenticates a customer account and returns a token.
func (h *AuthHandler) LoginCustomer(c *gin.Context) {
	h.login(c, h.authService.LoginCustomer)
}

func (h *AuthHandler) login(c *gin.Context, fn func(email, password string) (*services.LoginResult, error)) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Email and password are required.", err.Error()))
		return
	}

	result, err := fn(req.Email, req.Password)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusUnauthorized, utils.ErrCodeUnauthorized, "Invalid email or password.", ""))
			return
		}
		if errors.Is(err, services.ErrValidation) {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, err.Error(), ""))
			return
		}
		utils.LogError(err, "Login: Error from authService")
		utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Login failed.", "Internal error"))
		return
	}
	c.JSON(http.StatusOK, result)
}
