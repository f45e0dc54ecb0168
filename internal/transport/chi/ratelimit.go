package chi

import (
	"math"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kailas-cloud/knowwho/internal/domain"
	"github.com/kailas-cloud/knowwho/internal/logger"
)

// RateLimiter is a process-wide token bucket in front of expensive routes.
type RateLimiter struct {
	limiter *rate.Limiter
	perMin  int
}

// NewRateLimiter allows perMinute requests per minute with bursts of the
// same size. perMinute <= 0 disables limiting and returns nil.
func NewRateLimiter(perMinute int) *RateLimiter {
	if perMinute <= 0 {
		return nil
	}
	return &RateLimiter{
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), perMinute),
		perMin:  perMinute,
	}
}

// Middleware rejects requests over the limit with 429 and a Retry-After hint.
// A nil limiter passes everything through.
func (l *RateLimiter) Middleware(next http.Handler) http.Handler {
	if l == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		res := l.limiter.Reserve()
		if delay := res.Delay(); delay > 0 {
			res.Cancel()
			w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(delay.Seconds()))))
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(l.perMin))
			logger.FromContext(r.Context()).Warn("rate limit exceeded",
				zap.String("path", r.URL.Path),
				zap.String("remote_addr", r.RemoteAddr),
			)
			writeError(w, http.StatusTooManyRequests, ErrorCodeRateLimited, domain.ErrRateLimited.Error())
			return
		}
		next.ServeHTTP(w, r)
	})
}
