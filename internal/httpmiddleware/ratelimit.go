package httpmiddleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"internship/internal/auth"
)

// SimpleTokenBucket is an in-memory per-key rate limiter.
type SimpleTokenBucket struct {
	capacity int
	rate     int
	now      func() time.Time
	mu       sync.Mutex
	state    map[string]*bucket
}

type bucket struct {
	tokens float64
	last   time.Time
}

// maxBuckets triggers a sweep of idle, fully refilled buckets.
const maxBuckets = 10000

// NewSimpleTokenBucket creates limiter with capacity tokens and rate per minute.
func NewSimpleTokenBucket(capacity, perMinute int) *SimpleTokenBucket {
	if capacity <= 0 {
		capacity = perMinute
	}
	return &SimpleTokenBucket{
		capacity: capacity,
		rate:     perMinute,
		now:      time.Now,
		state:    make(map[string]*bucket),
	}
}

// KeyFunc picks the bucket a request is charged to.
type KeyFunc func(c *gin.Context) string

// ByUserOrIP charges authenticated requests to the user and anonymous ones to the client IP.
func ByUserOrIP(c *gin.Context) string {
	if u, ok := auth.CurrentUser(c); ok {
		if s := u.Subject(); s != "" {
			return "user:" + s
		}
	}
	ip := c.ClientIP()
	if ip == "" {
		ip = "unknown"
	}
	return "ip:" + ip
}

// GinMiddleware returns gin handler enforcing per-key limits. A non-positive rate disables limiting.
func (l *SimpleTokenBucket) GinMiddleware(key KeyFunc) gin.HandlerFunc {
	if key == nil {
		key = ByUserOrIP
	}
	return func(c *gin.Context) {
		if l.rate <= 0 {
			c.Next()
			return
		}
		ok, wait := l.take(key(c))
		if !ok {
			c.Header("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded", "code": "rate_limited"})
			return
		}
		c.Next()
	}
}

// take spends one token for key, or reports how long until one is available.
func (l *SimpleTokenBucket) take(key string) (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	perSecond := float64(l.rate) / 60

	b, ok := l.state[key]
	if !ok {
		if len(l.state) >= maxBuckets {
			l.sweep(now, perSecond)
		}
		b = &bucket{tokens: float64(l.capacity), last: now}
		l.state[key] = b
	} else {
		b.tokens = math.Min(float64(l.capacity), b.tokens+now.Sub(b.last).Seconds()*perSecond)
		b.last = now
	}
	if b.tokens < 1 {
		return false, time.Duration((1 - b.tokens) / perSecond * float64(time.Second))
	}
	b.tokens--
	return true, 0
}

func (l *SimpleTokenBucket) sweep(now time.Time, perSecond float64) {
	for k, b := range l.state {
		if b.tokens+now.Sub(b.last).Seconds()*perSecond >= float64(l.capacity) {
			delete(l.state, k)
		}
	}
}
