package api

import (
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// Defaults for the sign-in and sign-up limiter, per client address.
const (
	DefaultAuthRate  rate.Limit = 1
	DefaultAuthBurst            = 10

	limiterIdle = 10 * time.Minute
)

var errTooManyRequests = errors.New("too many requests, slow down")

type visitor struct {
	limiter *rate.Limiter
	seen    time.Time
}

// clientLimiter keeps a token bucket per client address. Buckets idle for
// longer than limiterIdle are dropped.
type clientLimiter struct {
	mu       sync.Mutex
	rate     rate.Limit
	burst    int
	visitors map[string]*visitor
	swept    time.Time
}

func newClientLimiter(r rate.Limit, burst int) *clientLimiter {
	if r <= 0 {
		r = DefaultAuthRate
	}
	if burst <= 0 {
		burst = DefaultAuthBurst
	}
	return &clientLimiter{rate: r, burst: burst, visitors: map[string]*visitor{}}
}

func (l *clientLimiter) allow(key string) bool {
	now := time.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.swept) > limiterIdle {
		for k, v := range l.visitors {
			if now.Sub(v.seen) > limiterIdle {
				delete(l.visitors, k)
			}
		}
		l.swept = now
	}

	v, ok := l.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.rate, l.burst)}
		l.visitors[key] = v
	}
	v.seen = now
	return v.limiter.AllowN(now, 1)
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// limit rejects a client with 429 once it exhausts its bucket.
func (l *clientLimiter) limit(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r)
		if !l.allow(ip) {
			log.Warn().Str("client", ip).Str("path", r.URL.Path).Msg("request rejected by rate limiter")
			w.Header().Set("Retry-After", "1")
			writeError(w, http.StatusTooManyRequests, errTooManyRequests)
			return
		}
		h(w, r)
	}
}
