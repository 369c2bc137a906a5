package app

import (
	"bitwise74/account-api/app/root"
	"bitwise74/account-api/app/user"
	"bitwise74/account-api/internal"
	"bitwise74/account-api/pkg/middleware"
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewRouter builds the HTTP handler. Background work started for it, like
// the rate limiter's visitor cleanup, stops when ctx is done.
func NewRouter(ctx context.Context, d *internal.Deps) *gin.Engine {
	cfg := d.Config
	router := gin.New()

	router.Use(
		cors.New(cors.Config{
			AllowOrigins:     cfg.Host.CORSOrigins,
			AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "TurnstileToken", middleware.RequestIDHeader},
			ExposeHeaders:    []string{"Content-Length", middleware.RequestIDHeader},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}),
		gin.Recovery(),
		middleware.NewRequestIDMiddleware(),
		ginzap.GinzapWithConfig(zap.L(), &ginzap.Config{
			TimeFormat: "15:04:05.000",
			UTC:        true,
			Skipper: func(c *gin.Context) bool {
				return c.Request.Method == http.MethodHead
			},
			Context: func(c *gin.Context) []zapcore.Field {
				fields := []zapcore.Field{}

				if v := c.GetString("requestID"); v != "" {
					fields = append(fields, zap.String("request_id", v))
				}

				if v := c.GetString("userID"); v != "" {
					fields = append(fields, zap.String("userID", v))
				}

				return fields
			},
		}),
	)

	router.HandleMethodNotAllowed = true
	router.RedirectFixedPath = true

	session := middleware.NewSessionMiddleware(d.Accounts)
	admin := middleware.RequireDesignation(cfg.Security.AdminDesignation)
	turnstile := middleware.NewTurnstileMiddleware(middleware.TurnstileConfig{
		Enabled: cfg.Security.TurnstileEnabled,
		Secret:  cfg.Security.TurnstileSecret,
	})
	rateLimiter := middleware.RateLimiterMiddleware(ctx, middleware.RateLimiterConfig{
		RequestsPerSecond: cfg.Security.RateLimit,
		Burst:             cfg.Security.RateLimit * 2,
	})

	// GET /metrics		-> Prometheus scrape endpoint
	router.GET("/metrics", gin.WrapH(d.Metrics.Handler()))

	m := router.Group("/api", rateLimiter)
	{
		// HEAD /api/heartbeat 		-> Used to check if the server is alive
		m.HEAD("/heartbeat", root.Heartbeat)
		m.GET("/heartbeat", root.Heartbeat)
	}

	a := m.Group("/auth", middleware.BodySizeLimiter(cfg.Host.BodyLimit))
	{
		// POST /api/auth/register		-> Registers a new user and mails the verification link
		a.POST("/register", turnstile, func(c *gin.Context) { user.UserRegister(c, d) })

		// POST /api/auth/login			-> Logs in a user and returns a session token
		a.POST("/login", func(c *gin.Context) { user.UserLogin(c, d) })

		// GET /api/auth/verify-email/:token	-> Redeems a verification token
		a.GET("/verify-email/:token", func(c *gin.Context) { user.UserVerify(c, d) })

		// POST /api/auth/resend-verification	-> Sends the verification link again
		a.POST("/resend-verification", turnstile, func(c *gin.Context) { user.UserResendVerification(c, d) })
	}

	u := a.Group("/users", session, admin)
	{
		// GET /api/auth/users			-> Lists every account
		u.GET("", func(c *gin.Context) { user.UserList(c, d) })

		// POST /api/auth/users/block		-> Blocks accounts by ID
		u.POST("/block", func(c *gin.Context) { user.UserBlock(c, d) })

		// POST /api/auth/users/unblock		-> Unblocks accounts by ID
		u.POST("/unblock", func(c *gin.Context) { user.UserUnblock(c, d) })

		// POST /api/auth/users/delete		-> Deletes accounts by ID
		u.POST("/delete", func(c *gin.Context) { user.UserDelete(c, d) })

		// DELETE /api/auth/users/unverified	-> Deletes every unverified account
		u.DELETE("/unverified", func(c *gin.Context) { user.UserDeleteUnverified(c, d) })
	}

	return router
}
