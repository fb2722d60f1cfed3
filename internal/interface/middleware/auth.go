package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	repo "github.com/prestigemetals/account-service/internal/domain/repository"
	"github.com/prestigemetals/account-service/pkg/helpers"
	"github.com/prestigemetals/account-service/pkg/response"
)

func bearerToken(c *gin.Context) string {
	h := c.GetHeader("Authorization")
	if strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	return ""
}

// Auth validates the bearer token, re-loads the user by the claimed id and
// requires an active account. It sets userID, userName, and userEmail in
// the Gin context on success.
func Auth(users repo.UserRepository, jwt *helpers.JWTManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			response.Error[any](c, http.StatusUnauthorized, "access token not found", nil)
			c.Abort()
			return
		}
		claims, err := jwt.Parse(token)
		if err != nil {
			msg := "invalid access"
			if errors.Is(err, helpers.ErrTokenExpired) {
				msg = "access token expired"
			}
			response.Error[any](c, http.StatusUnauthorized, msg, nil)
			c.Abort()
			return
		}

		// The token alone is not enough; the account must still exist and
		// be active at request time.
		u, err := users.FindByID(c.Request.Context(), claims.UserID)
		if err != nil || !u.IsActive {
			response.Error[any](c, http.StatusUnauthorized, "invalid access", nil)
			c.Abort()
			return
		}

		c.Set("userID", claims.UserID)
		c.Set("userName", claims.Name)
		c.Set("userEmail", claims.Email)
		c.Next()
	}
}
