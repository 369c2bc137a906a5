package user

import (
	"bitwise74/account-api/internal"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

func UserVerify(c *gin.Context, d *internal.Deps) {
	started := time.Now()
	err := d.Accounts.VerifyEmail(c.Request.Context(), c.Param("token"))
	d.Metrics.Observe("verify_email", started, err)

	if err != nil {
		fail(c, "verify_email", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Email verified successfully! You can now log in.",
	})
}

type resendBody struct {
	Email string `json:"email"`
}

// UserResendVerification answers the same way whether or not an unverified
// account exists for the email.
func UserResendVerification(c *gin.Context, d *internal.Deps) {
	var data resendBody
	if !bind(c, &data) {
		return
	}

	started := time.Now()
	err := d.Accounts.ResendVerification(c.Request.Context(), data.Email)
	d.Metrics.Observe("resend_verification", started, err)

	if err != nil {
		fail(c, "resend_verification", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "If an unverified account uses this email, a new verification link is on its way.",
	})
}
