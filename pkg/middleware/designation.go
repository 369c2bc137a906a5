package middleware

import (
	"bitwise74/account-api/internal/model"
	"net/http"

	"github.com/gin-gonic/gin"
)

// RequireDesignation only lets through accounts whose designation equals
// designation. It must run after the session middleware. An empty
// designation lets every authenticated account through.
func RequireDesignation(designation string) gin.HandlerFunc {
	if designation == "" {
		return func(c *gin.Context) { c.Next() }
	}

	return func(c *gin.Context) {
		acc, ok := c.Get("account")
		if a, isAccount := acc.(*model.Account); !ok || !isAccount || a.Designation != designation {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error":     "You are not allowed to do this",
				"requestID": c.GetString("requestID"),
			})
			return
		}

		c.Next()
	}
}
