package server

import (
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"landrush/internal/protocol"
)

// limiterIdleTTL is how long an address keeps its bucket without requests.
const limiterIdleTTL = 10 * time.Minute

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// ipLimiter keeps one token bucket per client address. Buckets of idle
// addresses are dropped.
type ipLimiter struct {
	mu        sync.Mutex
	visitors  map[string]*visitor
	limit     rate.Limit
	burst     int
	now       func() time.Time
	lastSweep time.Time
}

func newIPLimiter(perSecond float64, burst int) *ipLimiter {
	return &ipLimiter{
		visitors: make(map[string]*visitor),
		limit:    rate.Limit(perSecond),
		burst:    burst,
		now:      time.Now,
	}
}

func (l *ipLimiter) get(ip string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastSweep) >= limiterIdleTTL {
		l.sweep(now)
	}

	v, ok := l.visitors[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.visitors[ip] = v
	}
	v.lastSeen = now
	return v.limiter
}

// sweep removes idle visitors. Caller holds mu.
func (l *ipLimiter) sweep(now time.Time) {
	for ip, v := range l.visitors {
		if now.Sub(v.lastSeen) >= limiterIdleTTL {
			delete(l.visitors, ip)
		}
	}
	l.lastSweep = now
}

// size returns the number of tracked addresses.
func (l *ipLimiter) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.visitors)
}

func (l *ipLimiter) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			ip = r.RemoteAddr
		}
		if !l.get(ip).Allow() {
			writeJSON(w, http.StatusTooManyRequests, protocol.ErrorPayload{
				Code:    protocol.ErrCodeRateLimited,
				Message: "too many requests",
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}
