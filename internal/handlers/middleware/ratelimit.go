package middleware

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/nkiryanov/expensify/internal/handlers/render"
)

type limiter interface {
	// Report whether one more request for key fits, and when to retry if not
	Allow(ctx context.Context, key string) (bool, time.Duration, error)
}

// Limit requests per client address
// Limiter failure lets the request through, the outage is logged
func RateLimitMiddleware(lim limiter, l errorLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ok, retryAfter, err := lim.Allow(r.Context(), clientKey(r))
			if err != nil {
				l.Error("rate limiter failed", "error", err)
				next.ServeHTTP(w, r)
				return
			}

			if !ok {
				w.Header().Set("Retry-After", strconv.Itoa(max(int(retryAfter.Seconds()), 1)))
				render.ServiceError(w, "too many requests", http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
