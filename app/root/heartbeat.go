package root

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Heartbeat tells load balancers the process is up. HEAD gets an empty 200.
func Heartbeat(c *gin.Context) {
	if c.Request.Method == http.MethodHead {
		c.Status(http.StatusOK)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   time.Now().UTC(),
	})
}
