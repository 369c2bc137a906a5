package user

import (
	"bitwise74/account-api/internal"
	"bitwise74/account-api/internal/account"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

type registerBody struct {
	Username    string `json:"username"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	Designation string `json:"designation"`
}

func UserRegister(c *gin.Context, d *internal.Deps) {
	var data registerBody
	if !bind(c, &data) {
		return
	}

	started := time.Now()
	a, err := d.Accounts.Register(c.Request.Context(), account.NewAccount{
		Username:    data.Username,
		Email:       data.Email,
		Password:    data.Password,
		Designation: data.Designation,
	})
	d.Metrics.Observe("register", started, err)

	if err != nil {
		fail(c, "register", err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Registration successful! Please check your email to verify your account.",
		"user":    a,
	})
}
