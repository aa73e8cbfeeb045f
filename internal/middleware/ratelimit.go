package middleware

import (
	"net/http"
	"sync"

	"golang.org/x/time/rate"
)

// PerIPRateLimitMiddleware implements per-IP rate limiting using a token bucket
func PerIPRateLimitMiddleware(requestsPerSecond float64, burstSize int) func(http.Handler) http.Handler {
	var mu sync.Mutex
	limiters := make(map[string]*rate.Limiter)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			clientIP := getClientIP(r)

			mu.Lock()
			limiter, exists := limiters[clientIP]
			if !exists {
				limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), burstSize)
				limiters[clientIP] = limiter
			}
			mu.Unlock()

			if !limiter.Allow() {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				w.Write([]byte(`{"error": "Rate limit exceeded"}`))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// getClientIP extracts the client IP from the request
func getClientIP(r *http.Request) string {
	forwarded := r.Header.Get("X-Forwarded-For")
	if forwarded != "" {
		return forwarded
	}

	realIP := r.Header.Get("X-Real-IP")
	if realIP != "" {
		return realIP
	}

	return r.RemoteAddr
}

// APIRateLimitMiddleware applies rate limiting to the dashboard API endpoints
func APIRateLimitMiddleware() func(http.Handler) http.Handler {
	return PerIPRateLimitMiddleware(10, 20) // 10 requests per second, burst of 20
}
