package user

import (
	"bitwise74/account-api/internal"
	"bitwise74/account-api/pkg/middleware"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

type loginBody struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func UserLogin(c *gin.Context, d *internal.Deps) {
	var data loginBody
	if !bind(c, &data) {
		return
	}

	started := time.Now()
	res, err := d.Accounts.Login(c.Request.Context(), data.Email, data.Password)
	d.Metrics.Observe("login", started, err)

	if err != nil {
		fail(c, "login", err)
		return
	}

	maxAge := int(time.Until(res.ExpiresAt).Seconds())
	if maxAge < 1 {
		maxAge = 1
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.SessionCookie, res.Token, maxAge, "/", "", c.Request.TLS != nil, true)

	c.JSON(http.StatusOK, gin.H{
		"message":   res.Message,
		"token":     res.Token,
		"expiresAt": res.ExpiresAt,
		"user":      res.Account,
	})
}
