package middleware

import (
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"summarize-backend/internal/shared/apperr"
	"summarize-backend/internal/shared/server/respond"
)

// Route groups with their own budgets.
const (
	RateGroupUpload = "upload"
	RateGroupRead   = "read"
)

const sweepInterval = time.Minute

// RateLimitRule is a token bucket: Rate tokens per second up to Burst.
type RateLimitRule struct {
	Rate  float64
	Burst int
}

// PerMinute allows n requests per minute with a burst of n. n <= 0 disables the rule.
func PerMinute(n int) RateLimitRule {
	if n <= 0 {
		return RateLimitRule{}
	}
	return RateLimitRule{Rate: float64(n) / 60, Burst: n}
}

func (r RateLimitRule) enabled() bool { return r.Rate > 0 && r.Burst > 0 }

// refill is how long an empty bucket takes to fill up again.
func (r RateLimitRule) refill() time.Duration {
	return time.Duration(float64(r.Burst) / r.Rate * float64(time.Second))
}

// RateLimitConfig maps each request to a group. Requests classified into a group without an
// enabled rule, or into "", pass through.
type RateLimitConfig struct {
	Rules    map[string]RateLimitRule
	Classify func(*gin.Context) string
	Limiter  *RateLimiter
}

// Decision is the outcome of taking one token.
type Decision struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

// RateLimiter holds one bucket per caller and group.
type RateLimiter struct {
	mu        sync.Mutex
	buckets   map[string]*rateBucket
	now       func() time.Time
	lastSweep time.Time
}

type rateBucket struct {
	tokens float64
	last   time.Time
	refill time.Duration
}

func NewRateLimiter(now func() time.Time) *RateLimiter {
	if now == nil {
		now = time.Now
	}
	return &RateLimiter{
		buckets:   make(map[string]*rateBucket),
		now:       now,
		lastSweep: now(),
	}
}

// RateLimit limits requests per caller and group. Identified callers are keyed by user ID,
// anonymous ones by client IP.
func RateLimit(cfg RateLimitConfig) gin.HandlerFunc {
	if cfg.Limiter == nil {
		cfg.Limiter = NewRateLimiter(nil)
	}
	return func(c *gin.Context) {
		var group string
		if cfg.Classify != nil {
			group = strings.TrimSpace(cfg.Classify(c))
		}
		rule, ok := cfg.Rules[group]
		if group == "" || !ok || !rule.enabled() {
			c.Next()
			return
		}
		caller := strings.TrimSpace(UserIDFromContext(c))
		if caller == "" {
			caller = "ip:" + c.ClientIP()
		}

		d := cfg.Limiter.Take(caller+"|"+group, rule)
		c.Header("X-RateLimit-Limit", strconv.Itoa(rule.Burst))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
		if d.Allowed {
			c.Next()
			return
		}

		retryMs := d.RetryAfter.Milliseconds()
		if retryMs <= 0 {
			retryMs = 1000
		}
		c.Header("Retry-After", strconv.FormatInt(int64(math.Ceil(float64(retryMs)/1000)), 10))
		respond.Error(c, apperr.Status(apperr.KindRateLimited), string(apperr.KindRateLimited), "Too many requests", gin.H{
			"group":        group,
			"retryAfterMs": retryMs,
		})
	}
}

// Take consumes a token from key's bucket when one is available.
func (l *RateLimiter) Take(key string, rule RateLimitRule) Decision {
	if l == nil || !rule.enabled() {
		return Decision{Allowed: true, Remaining: rule.Burst}
	}
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()

	l.sweep(now)
	b, ok := l.buckets[key]
	if !ok {
		b = &rateBucket{tokens: float64(rule.Burst), last: now, refill: rule.refill()}
		l.buckets[key] = b
	}
	if elapsed := now.Sub(b.last).Seconds(); elapsed > 0 {
		b.tokens = math.Min(float64(rule.Burst), b.tokens+elapsed*rule.Rate)
		b.last = now
	}
	if b.tokens >= 1 {
		b.tokens--
		return Decision{Allowed: true, Remaining: int(b.tokens)}
	}
	wait := (1 - b.tokens) / rule.Rate
	return Decision{RetryAfter: time.Duration(math.Ceil(wait*1000)) * time.Millisecond}
}

// sweep drops buckets that have been idle long enough to be full again. A dropped bucket is
// indistinguishable from a fresh one, so anonymous callers do not accumulate state.
func (l *RateLimiter) sweep(now time.Time) {
	if now.Sub(l.lastSweep) < sweepInterval {
		return
	}
	l.lastSweep = now
	for key, b := range l.buckets {
		if now.Sub(b.last) >= b.refill {
			delete(l.buckets, key)
		}
	}
}

// Len reports the number of live buckets.
func (l *RateLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}
