package main

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	cachecontrol "go.eigsys.de/gin-cachecontrol/v2"
	"golang.org/x/time/rate"

	constants "vortcheno/internal/constants"
	util "vortcheno/internal/util"
)

type limiterEntry struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

type rateLimiters struct {
	mu      sync.RWMutex
	entries map[string]*limiterEntry
	rps     int
	burst   int
	ttl     time.Duration
}

func newRateLimiters(rps, burst int, ttl time.Duration) *rateLimiters {
	return &rateLimiters{
		entries: make(map[string]*limiterEntry),
		rps:     rps,
		burst:   burst,
		ttl:     ttl,
	}
}

func (rl *rateLimiters) get(key string) *rate.Limiter {
	rl.mu.RLock()
	entry, ok := rl.entries[key]
	rl.mu.RUnlock()
	if ok {
		rl.mu.Lock()
		if entry, ok = rl.entries[key]; ok {
			entry.lastAccess = time.Now()
		}
		rl.mu.Unlock()
		return entry.limiter
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()
	if entry, ok = rl.entries[key]; ok {
		entry.lastAccess = time.Now()
		return entry.limiter
	}

	rps := rl.rps
	if rps <= 0 {
		rps = 1
	}
	entry = &limiterEntry{
		limiter:    rate.NewLimiter(rate.Every(time.Second/time.Duration(rps)), rl.burst),
		lastAccess: time.Now(),
	}
	rl.entries[key] = entry
	return entry.limiter
}

func (rl *rateLimiters) cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := time.Now().Add(-rl.ttl)
	removed := 0
	for key, entry := range rl.entries {
		if entry.lastAccess.Before(cutoff) {
			delete(rl.entries, key)
			removed++
		}
	}
	if removed > 0 {
		util.LogInfo("Cleaned up %d stale rate limiters", removed)
	}
}

func (rl *rateLimiters) startCleanup() {
	go func() {
		ticker := time.NewTicker(30 * time.Minute)
		defer ticker.Stop()
		for range ticker.C {
			rl.cleanup()
		}
	}()
}

func (rl *rateLimiters) middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.get(c.ClientIP()).Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Too many requests. Please slow down."})
			return
		}
		c.Next()
	}
}

func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		reqID := c.Request.Header.Get("X-Request-Id")
		if reqID == "" {
			reqID = uuid.NewString()
		}
		ctx := context.WithValue(c.Request.Context(), constants.RequestIDKey, reqID)
		c.Request = c.Request.WithContext(ctx)
		c.Header("X-Request-Id", reqID)
		c.Next()
	}
}

func securityHeadersMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Next()
	}
}

// Game state is live; nothing the API returns should ever be cached.
func noStoreMiddleware() gin.HandlerFunc {
	return cachecontrol.New(cachecontrol.Config{
		NoStore:        true,
		NoCache:        true,
		MustRevalidate: true,
	})
}
