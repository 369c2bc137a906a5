package user

import (
	"bitwise74/account-api/internal/account"
	"bitwise74/account-api/pkg/middleware"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// statusOf maps an account error to the HTTP status and message returned to
// the client.
func statusOf(err error) (int, string) {
	switch account.KindOf(err) {
	case account.KindValidation:
		return http.StatusBadRequest, err.Error()
	case account.KindDuplicateAccount:
		return http.StatusConflict, "This email or username is already registered. Please login or use a different one"
	case account.KindInvalidCredentials:
		return http.StatusUnauthorized, "Invalid email or password"
	case account.KindBlockedAccount:
		return http.StatusForbidden, "Your account has been blocked. Please contact administrator."
	case account.KindInvalidOrExpiredToken:
		return http.StatusBadRequest, "Invalid or expired verification token"
	case account.KindUnauthorized:
		return http.StatusUnauthorized, "Unauthorized"
	case account.KindDeliveryFailure:
		return http.StatusInternalServerError, "Failed to send verification email"
	default:
		return http.StatusInternalServerError, "Internal server error"
	}
}

func fail(c *gin.Context, op string, err error) {
	requestID := c.GetString("requestID")
	status, msg := statusOf(err)

	if status >= http.StatusInternalServerError {
		zap.L().Error("Request failed", zap.String("operation", op), zap.Error(err), zap.String("requestID", requestID))
	} else {
		zap.L().Debug("Request rejected", zap.String("operation", op), zap.Error(err), zap.String("requestID", requestID))
	}

	if account.Retryable(err) {
		c.Header("Retry-After", "1")
	}

	c.JSON(status, gin.H{
		"error":     msg,
		"requestID": requestID,
	})
}

// bind decodes the JSON body into v, answering the request itself when that
// fails.
func bind(c *gin.Context, v any) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		requestID := c.GetString("requestID")

		if middleware.IsBodyTooLarge(err) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{
				"error":     "Request body too large",
				"requestID": requestID,
			})
			return false
		}

		c.JSON(http.StatusBadRequest, gin.H{
			"error":     "Invalid request body",
			"requestID": requestID,
		})

		zap.L().Debug("Can't bind request body", zap.Error(err), zap.String("requestID", requestID))
		return false
	}

	return true
}
