package middleware

import (
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

const (
	sweepInterval = 5 * time.Minute
	clientIdleTTL = 10 * time.Minute
)

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// clientLimiter hands out one token bucket per client key. Idle buckets are
// swept periodically.
type clientLimiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	limit   rate.Limit
	burst   int
	logger  *slog.Logger
}

func newClientLimiter(limit rate.Limit, burst int, logger *slog.Logger) *clientLimiter {
	cl := &clientLimiter{
		buckets: make(map[string]*bucket),
		limit:   limit,
		burst:   burst,
		logger:  logger,
	}
	go cl.sweep()
	return cl
}

func (cl *clientLimiter) get(key string) *rate.Limiter {
	cl.mu.Lock()
	defer cl.mu.Unlock()

	b, ok := cl.buckets[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(cl.limit, cl.burst)}
		cl.buckets[key] = b
	}
	b.lastSeen = time.Now()
	return b.limiter
}

func (cl *clientLimiter) sweep() {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for range ticker.C {
		cl.mu.Lock()
		for key, b := range cl.buckets {
			if time.Since(b.lastSeen) > clientIdleTTL {
				delete(cl.buckets, key)
			}
		}
		cl.mu.Unlock()
	}
}

// clientKey uses the visitor cookie only when the client sent a valid one.
// Ids issued on this request are ignored; those requests key by IP.
func clientKey(r *http.Request) string {
	if c, err := r.Cookie(VisitorCookie); err == nil {
		if id, err := uuid.Parse(c.Value); err == nil {
			return "visitor:" + id.String()
		}
	}
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		ip = r.RemoteAddr
	}
	return "ip:" + ip
}

func retryAfter(limit rate.Limit) string {
	if limit <= 0 {
		return "60"
	}
	return strconv.Itoa(int(math.Ceil(1 / float64(limit))))
}

func RateLimit(limit rate.Limit, burst int, logger *slog.Logger) func(http.Handler) http.Handler {
	cl := newClientLimiter(limit, burst, logger)
	wait := retryAfter(limit)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := clientKey(r)
			if !cl.get(key).Allow() {
				cl.logger.WarnContext(r.Context(), "rate limit exceeded",
					"client", key,
					"path", r.URL.Path,
					"request_id", RequestID(r.Context()),
				)
				w.Header().Set("Retry-After", wait)
				http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
