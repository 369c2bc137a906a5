package middleware

import (
	"bitwise74/account-api/internal/account"
	"bitwise74/account-api/internal/model"
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const SessionCookie = "auth_token"

type Authorizer interface {
	Authorize(ctx context.Context, sessionToken string) (*model.Account, error)
}

// SessionToken extracts the session token from a bearer Authorization header,
// falling back to the auth_token cookie.
func SessionToken(c *gin.Context) string {
	if h := c.GetHeader("Authorization"); h != "" {
		scheme, token, ok := strings.Cut(h, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}

		return ""
	}

	token, err := c.Cookie(SessionCookie)
	if err != nil {
		return ""
	}

	return token
}

// NewSessionMiddleware rejects requests without a valid session for an
// existing, unblocked account. The account is re-read on every request.
func NewSessionMiddleware(a Authorizer) gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.MustGet("requestID").(string)

		token := SessionToken(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":     "No authorization token provided",
				"requestID": requestID,
			})
			return
		}

		acc, err := a.Authorize(c.Request.Context(), token)
		if err != nil {
			if errors.Is(err, account.ErrUnauthorized) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
					"error":     "Authorization token invalid or account blocked",
					"requestID": requestID,
				})

				zap.L().Debug("Rejected session", zap.Error(err), zap.String("requestID", requestID))
				return
			}

			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error":     "Internal server error",
				"requestID": requestID,
			})

			zap.L().Error("Failed to authorize session", zap.Error(err), zap.String("requestID", requestID))
			return
		}

		c.Set("userID", acc.ID)
		c.Set("account", acc)
		c.Next()
	}
}
