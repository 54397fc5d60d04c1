package http

import (
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// staleLimiterAge is how long an idle client IP keeps its bucket.
const staleLimiterAge = time.Hour

// IPRateLimiter throttles requests per client IP with a token bucket. It
// complements the per-session attempt lockout: a client that discards its
// session cookie still hits this limit.
type IPRateLimiter struct {
	limiters sync.Map // client IP -> *ipLimiterEntry
	rps      float64
	burst    int
	logger   *slog.Logger
	now      func() time.Time

	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

type ipLimiterEntry struct {
	limiter    *rate.Limiter
	mu         sync.Mutex
	lastAccess time.Time
}

// NewIPRateLimiter creates a limiter allowing rps requests per second with
// the given burst per client IP. Idle buckets are swept every cleanupInterval
// until Close is called.
func NewIPRateLimiter(rps float64, burst int, cleanupInterval time.Duration, logger *slog.Logger) *IPRateLimiter {
	l := &IPRateLimiter{
		rps:    rps,
		burst:  burst,
		logger: logger,
		now:    time.Now,
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	if cleanupInterval <= 0 {
		cleanupInterval = 5 * time.Minute
	}
	go l.sweep(cleanupInterval)
	return l
}

// Middleware returns the gin handler enforcing the limit. Rejected requests
// get 429 with a Retry-After header.
func (l *IPRateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		clientIP := c.ClientIP()
		limiter := l.limiterFor(clientIP)

		reservation := limiter.Reserve()
		if delay := reservation.Delay(); delay > 0 {
			reservation.Cancel()
			retryAfter := int(delay.Seconds())
			if retryAfter < 1 {
				retryAfter = 1
			}

			l.logger.Warn("verify rate limit exceeded",
				slog.String("client_ip", clientIP),
				slog.Int("retry_after", retryAfter))

			c.Header("Retry-After", strconv.Itoa(retryAfter))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":   "rate_limit_exceeded",
				"message": "Too many verification attempts from this address, retry later",
			})
			return
		}

		c.Next()
	}
}

func (l *IPRateLimiter) limiterFor(ip string) *rate.Limiter {
	now := l.now()
	if val, ok := l.limiters.Load(ip); ok {
		entry := val.(*ipLimiterEntry)
		entry.mu.Lock()
		entry.lastAccess = now
		entry.mu.Unlock()
		return entry.limiter
	}

	entry := &ipLimiterEntry{
		limiter:    rate.NewLimiter(rate.Limit(l.rps), l.burst),
		lastAccess: now,
	}
	actual, _ := l.limiters.LoadOrStore(ip, entry)
	return actual.(*ipLimiterEntry).limiter
}

func (l *IPRateLimiter) sweep(interval time.Duration) {
	defer close(l.done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.evictStale()
		case <-l.stop:
			return
		}
	}
}

func (l *IPRateLimiter) evictStale() {
	threshold := l.now().Add(-staleLimiterAge)
	l.limiters.Range(func(key, value any) bool {
		entry := value.(*ipLimiterEntry)
		entry.mu.Lock()
		stale := entry.lastAccess.Before(threshold)
		entry.mu.Unlock()

		if stale {
			l.limiters.Delete(key)
		}
		return true
	})
}

// Close stops the sweeper. It is safe to call more than once.
func (l *IPRateLimiter) Close() error {
	l.closeOnce.Do(func() {
		close(l.stop)
	})
	<-l.done
	return nil
}
