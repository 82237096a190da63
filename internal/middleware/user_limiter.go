package middleware

import (
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/time/rate"

	"github.com/noah-isme/gema-arena/internal/utils"
)

// LimitReachedMessage is returned to callers that exceed a UserLimiter.
const LimitReachedMessage = "too many requests, slow down"

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// UserLimiter is a token bucket per key shared between transports, so a REST
// route and a websocket command draw from the same allowance.
type UserLimiter struct {
	mu        sync.Mutex
	visitors  map[string]*visitor
	every     rate.Limit
	burst     int
	idle      time.Duration
	lastSweep time.Time
	now       func() time.Time
}

// NewUserLimiter allows max events per window for every key.
func NewUserLimiter(max int, window time.Duration) *UserLimiter {
	if max <= 0 {
		max = 10
	}
	if window <= 0 {
		window = time.Second
	}
	return &UserLimiter{
		visitors: make(map[string]*visitor),
		every:    rate.Every(window / time.Duration(max)),
		burst:    max,
		idle:     3 * window,
		now:      time.Now,
	}
}

// Allow reports whether key may proceed and consumes one token when it can.
func (l *UserLimiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastSweep) > l.idle {
		for k, v := range l.visitors {
			if now.Sub(v.lastSeen) > l.idle {
				delete(l.visitors, k)
			}
		}
		l.lastSweep = now
	}

	v, ok := l.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.every, l.burst)}
		l.visitors[key] = v
	}
	v.lastSeen = now
	return v.limiter.AllowN(now, 1)
}

// Handler guards a route keyed by the signed-in user, falling back to the IP.
func (l *UserLimiter) Handler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		key := UserID(c)
		if key == "" {
			key = c.IP()
		}
		if !l.Allow(key) {
			return utils.SendError(c, fiber.StatusTooManyRequests, LimitReachedMessage)
		}
		return c.Next()
	}
}
