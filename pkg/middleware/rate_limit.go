package middleware

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

type RateLimiterConfig struct {
	RequestsPerSecond int
	Burst             int
	CleanupInterval   time.Duration
	TTL               time.Duration
}

type visitors struct {
	mu    sync.Mutex
	byIP  map[string]*visitor
	rps   int
	burst int
}

func (v *visitors) get(ip string) *rate.Limiter {
	v.mu.Lock()
	defer v.mu.Unlock()

	vis, exists := v.byIP[ip]
	if !exists {
		limiter := rate.NewLimiter(rate.Limit(v.rps), v.burst)
		v.byIP[ip] = &visitor{limiter, time.Now()}
		return limiter
	}

	vis.lastSeen = time.Now()
	return vis.limiter
}

// cleanup drops idle visitors every interval until ctx is done.
func (v *visitors) cleanup(ctx context.Context, ttl time.Duration, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		v.mu.Lock()
		for ip, vis := range v.byIP {
			if time.Since(vis.lastSeen) > ttl {
				delete(v.byIP, ip)
			}
		}
		v.mu.Unlock()
	}
}

// RateLimiterMiddleware limits requests per client IP. A non-positive
// RequestsPerSecond disables limiting. Idle visitors are forgotten until ctx
// is done.
func RateLimiterMiddleware(ctx context.Context, config RateLimiterConfig) gin.HandlerFunc {
	if config.RequestsPerSecond <= 0 {
		return func(c *gin.Context) { c.Next() }
	}

	if config.Burst <= 0 {
		config.Burst = config.RequestsPerSecond * 2
	}
	if config.CleanupInterval == 0 {
		config.CleanupInterval = time.Minute
	}
	if config.TTL == 0 {
		config.TTL = 3 * time.Minute
	}

	v := &visitors{
		byIP:  make(map[string]*visitor),
		rps:   config.RequestsPerSecond,
		burst: config.Burst,
	}

	go v.cleanup(ctx, config.TTL, config.CleanupInterval)

	return func(c *gin.Context) {
		if !v.get(c.ClientIP()).Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":     "Too many requests",
				"requestID": c.GetString("requestID"),
			})
			return
		}

		c.Next()
	}
}
