package middleware

import (
	"net/http"
	"strings"

	"swaad_backend/pkg/utils"

	"github.com/gin-gonic/gin"
)

// Context keys set by AuthMiddleware for downstream handlers.
const (
	ContextUID  = "uid"
	ContextRole = "role"
)

// AuthMiddleware creates a Gin middleware for JWT authentication.
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusUnauthorized, utils.ErrCodeUnauthorized, "Authorization header required", ""))
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusUnauthorized, utils.ErrCodeUnauthorized, "Invalid authorization header format. Use Bearer <token>", ""))
			return
		}

		claims, err := utils.ValidateToken(parts[1])
		if err != nil {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusUnauthorized, utils.ErrCodeUnauthorized, "Invalid or expired token", err.Error()))
			return
		}

		c.Set(ContextUID, claims.UID)
		c.Set(ContextRole, claims.Role)

		c.Next()
	}
}

// RoleAuthMiddleware creates a Gin middleware for role-based authorization.
// It checks if the role (from JWT claims) is one of the allowed roles.
func RoleAuthMiddleware(allowedRoles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, exists := c.Get(ContextRole)
		if !exists {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusForbidden, utils.ErrCodeForbidden, "Role not found in token claims. Ensure AuthMiddleware runs first.", ""))
			return
		}

		roleStr, ok := role.(string)
		if !ok {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Role in token is not a string", ""))
			return
		}

		for _, r := range allowedRoles {
			if strings.EqualFold(roleStr, r) {
				c.Next()
				return
			}
		}

		utils.RespondWithError(c, utils.NewAPIError(http.StatusForbidden, utils.ErrCodeForbidden, "You do not have permission to access this resource. Required roles: "+strings.Join(allowedRoles, ", "), ""))
	}
}
