package middleware

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/Ayuu1305/squad-quest-sub001/internal/metrics"
	"github.com/Ayuu1305/squad-quest-sub001/internal/models"
	"github.com/Ayuu1305/squad-quest-sub001/internal/utils"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-redis/redis_rate/v10"
	"go.uber.org/zap"
)

// Limiter is satisfied by *redis_rate.Limiter.
type Limiter interface {
	Allow(ctx context.Context, key string, limit redis_rate.Limit) (*redis_rate.Result, error)
}

// NewLimit spreads requests evenly over period with a burst of the full allowance.
func NewLimit(requests int, period time.Duration) redis_rate.Limit {
	return redis_rate.Limit{Rate: requests, Burst: requests, Period: period}
}

// RateLimit rejects callers that exceed limit per client IP with 429. When the
// limiter backend fails the request is let through.
func RateLimit(name string, limiter Limiter, limit redis_rate.Limit, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := "rl:" + name + ":" + clientIP(r)
			res, err := limiter.Allow(r.Context(), key, limit)
			if err != nil {
				logger.Warn("rate limiter unavailable, allowing request", zap.String("limiter", name), zap.Error(err))
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limit.Rate))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
			if res.Allowed == 0 {
				metrics.RecordRateLimited(name)
				retry := max(int(res.RetryAfter.Round(time.Second)/time.Second), 1)
				w.Header().Set("Retry-After", strconv.Itoa(retry))
				utils.JSON(w, http.StatusTooManyRequests, models.ErrorResponse{
					Code:    "rate_limit_exceeded",
					Message: "Too many requests, please try again later",
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ClientAddress applies chi's RealIP only when a trusted proxy overwrites
// X-Forwarded-For and X-Real-IP. Otherwise the headers are ignored and the
// rate-limit key stays the socket address.
func ClientAddress(trustProxyHeaders bool) func(http.Handler) http.Handler {
	if trustProxyHeaders {
		return chimw.RealIP
	}
	return func(next http.Handler) http.Handler { return next }
}

// clientIP reads RemoteAddr, which ClientAddress may have rewritten from proxy headers.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
