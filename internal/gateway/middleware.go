package gateway

import (
	"net/http"
	"sync"
	"time"

	"github.com/eleven-am/sightline/internal/shared"
	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"
)

const deviceContextKey = "device_id"

// RequireDevice rejects requests whose :device path parameter is not a valid
// device identifier.
func RequireDevice() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			deviceID := c.Param("device")
			if !shared.ValidDeviceID(deviceID) {
				return shared.BadRequest("invalid_device", "invalid device id")
			}
			c.Set(deviceContextKey, deviceID)
			return next(c)
		}
	}
}

func GetDeviceID(c echo.Context) string {
	if id, ok := c.Get(deviceContextKey).(string); ok {
		return id
	}
	return ""
}

type RateLimiterConfig struct {
	RequestsPerSecond float64
	Burst             int
	CleanupInterval   time.Duration
}

func DefaultRateLimiterConfig() RateLimiterConfig {
	return RateLimiterConfig{
		RequestsPerSecond: 10,
		Burst:             20,
		CleanupInterval:   5 * time.Minute,
	}
}

type rateLimiterStore struct {
	limiters map[string]*rate.Limiter
	mu       sync.RWMutex
	config   RateLimiterConfig
}

func newRateLimiterStore(cfg RateLimiterConfig) *rateLimiterStore {
	store := &rateLimiterStore{
		limiters: make(map[string]*rate.Limiter),
		config:   cfg,
	}
	go store.cleanupLoop()
	return store
}

func (s *rateLimiterStore) getLimiter(key string) *rate.Limiter {
	s.mu.RLock()
	limiter, exists := s.limiters[key]
	s.mu.RUnlock()

	if exists {
		return limiter
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if limiter, exists = s.limiters[key]; exists {
		return limiter
	}

	limiter = rate.NewLimiter(rate.Limit(s.config.RequestsPerSecond), s.config.Burst)
	s.limiters[key] = limiter
	return limiter
}

func (s *rateLimiterStore) cleanupLoop() {
	ticker := time.NewTicker(s.config.CleanupInterval)
	defer ticker.Stop()

	for range ticker.C {
		s.mu.Lock()
		for key := range s.limiters {
			delete(s.limiters, key)
		}
		s.mu.Unlock()
	}
}

// RateLimiter throttles requests per device, falling back to the client IP
// when the route has no device.
func RateLimiter(cfg RateLimiterConfig) echo.MiddlewareFunc {
	store := newRateLimiterStore(cfg)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := c.RealIP()
			if deviceID := GetDeviceID(c); deviceID != "" {
				key = "device:" + deviceID
			}

			limiter := store.getLimiter(key)
			if !limiter.Allow() {
				return shared.NewAPIError("rate_limit_exceeded", "too many requests").ToHTTP(http.StatusTooManyRequests)
			}

			return next(c)
		}
	}
}
