package api

import (
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/julienschmidt/httprouter"
	"golang.org/x/time/rate"

	"github.com/AMCarbonaro/PULSE/log"
)

// Per spec.md §5: 30/min on write paths, 120/min on read paths, entries
// idle longer than 2x their window are evicted every sweep.
const (
	writeRatePerMin = 30
	readRatePerMin  = 120
	sweepInterval   = 5 * time.Minute
)

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// ipLimiter buckets requests per source IP behind a single rate
// configuration, sweeping idle entries periodically so the map does not
// grow unbounded over the node's lifetime.
type ipLimiter struct {
	mu       sync.Mutex
	entries  map[string]*limiterEntry
	rateLim  rate.Limit
	burst    int
	window   time.Duration
}

func newIPLimiter(perMinute int) *ipLimiter {
	l := &ipLimiter{
		entries: make(map[string]*limiterEntry),
		rateLim: rate.Limit(float64(perMinute) / 60.0),
		burst:   perMinute,
		window:  time.Minute,
	}
	go l.sweepLoop()
	return l
}

func (l *ipLimiter) allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.entries[ip]
	if !ok {
		e = &limiterEntry{limiter: rate.NewLimiter(l.rateLim, l.burst)}
		l.entries[ip] = e
	}
	e.lastSeen = time.Now()
	return e.limiter.Allow()
}

func (l *ipLimiter) sweepLoop() {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for range ticker.C {
		l.sweep()
	}
}

func (l *ipLimiter) sweep() {
	l.mu.Lock()
	defer l.mu.Unlock()
	cutoff := time.Now().Add(-2 * l.window)
	for ip, e := range l.entries {
		if e.lastSeen.Before(cutoff) {
			delete(l.entries, ip)
		}
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// rateLimited wraps h so that requests exceeding limiter's bucket for the
// caller's IP get a 429 instead of reaching the handler.
func rateLimited(limiter *ipLimiter, h httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		ip := clientIP(r)
		if !limiter.allow(ip) {
			log.Debug("api: rate limited", "ip", ip, "path", r.URL.Path)
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		h(w, r, ps)
	}
}
