package middleware

import (
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/time/rate"

	"github.com/sakif/guitar-ai/internal/auth"
)

const rateLimitedBody = `{"success":false,"error":"too many generation requests, slow down","code":"rate_limited"}`

// RateLimitConfig sizes the per-caller token buckets.
type RateLimitConfig struct {
	PerMinute float64 // sustained requests per minute
	Burst     int
	// MaxKeys bounds memory: the least recently seen caller's bucket is
	// evicted first. An evicted caller simply starts with a full bucket.
	MaxKeys int
}

// RateLimiter keeps one token bucket per caller.
//
// TOKEN BUCKET:
// Each caller's bucket holds up to Burst tokens and refills at PerMinute/60
// tokens per second. A request takes one token; an empty bucket answers 429
// with a Retry-After header instead of calling the handler.
type RateLimiter struct {
	limit   rate.Limit
	burst   int
	buckets *lru.Cache[string, *rate.Limiter]
	logger  *slog.Logger
}

func NewRateLimiter(cfg RateLimitConfig, logger *slog.Logger) (*RateLimiter, error) {
	buckets, err := lru.New[string, *rate.Limiter](cfg.MaxKeys)
	if err != nil {
		return nil, err
	}
	return &RateLimiter{
		limit:   rate.Limit(cfg.PerMinute / 60),
		burst:   cfg.Burst,
		buckets: buckets,
		logger:  logger,
	}, nil
}

// bucket returns key's limiter, creating it on first sight. PeekOrAdd keeps
// two concurrent first requests from getting separate buckets.
func (rl *RateLimiter) bucket(key string) *rate.Limiter {
	if l, ok := rl.buckets.Get(key); ok {
		return l
	}
	l := rate.NewLimiter(rl.limit, rl.burst)
	if prev, ok, _ := rl.buckets.PeekOrAdd(key, l); ok {
		return prev
	}
	return l
}

// Middleware limits requests per authenticated user, or per client IP when
// the route has no principal.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := callerKey(r)
		res := rl.bucket(key).Reserve()

		if delay := res.Delay(); delay > 0 {
			// Hand the token back: a rejected request must not cost anything.
			res.Cancel()
			rl.logger.Warn("rate limit exceeded", slog.String("caller", key))

			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds(delay)))
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(rateLimitedBody))
			return
		}

		next.ServeHTTP(w, r)
	})
}

func callerKey(r *http.Request) string {
	if p, ok := auth.PrincipalFromContext(r.Context()); ok {
		return "user:" + p.UserID
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return "ip:" + host
}

// retryAfterSeconds rounds up; a rate of zero reports a minute.
func retryAfterSeconds(d time.Duration) int {
	if d == rate.InfDuration {
		return 60
	}
	return int(math.Ceil(d.Seconds()))
}
