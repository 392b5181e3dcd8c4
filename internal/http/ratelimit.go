package http

import (
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"
)

// limiters hands out one token bucket per client IP. The whole map is
// dropped every resetAfter so idle clients do not accumulate.
type limiters struct {
	mu         sync.Mutex
	byIP       map[string]*rate.Limiter
	limit      rate.Limit
	burst      int
	resetAfter time.Duration
	lastReset  time.Time
	now        func() time.Time
}

func newLimiters(perSecond float64, burst int) *limiters {
	if burst < 1 {
		burst = 1
	}
	return &limiters{
		byIP:       make(map[string]*rate.Limiter),
		limit:      rate.Limit(perSecond),
		burst:      burst,
		resetAfter: time.Hour,
		lastReset:  time.Now(),
		now:        time.Now,
	}
}

func (l *limiters) get(ip string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.now().Sub(l.lastReset) > l.resetAfter {
		l.byIP = make(map[string]*rate.Limiter)
		l.lastReset = l.now()
	}
	lim, ok := l.byIP[ip]
	if !ok {
		lim = rate.NewLimiter(l.limit, l.burst)
		l.byIP[ip] = lim
	}
	return lim
}

// rateLimit rejects requests beyond perSecond (with burst) per client IP.
func rateLimit(perSecond float64, burst int) echo.MiddlewareFunc {
	l := newLimiters(perSecond, burst)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !l.get(c.RealIP()).Allow() {
				return echo.NewHTTPError(http.StatusTooManyRequests, "rate limit exceeded")
			}
			return next(c)
		}
	}
}
