package api

import (
	"sync"

	"golang.org/x/time/rate"
)

// deviceLimiters throttles the ingest endpoint per device so one noisy
// tracker cannot starve the rest.
type deviceLimiters struct {
	mu    sync.Mutex
	m     map[string]*rate.Limiter
	rps   rate.Limit
	burst int
}

func newDeviceLimiters(rps float64, burst int) *deviceLimiters {
	if rps <= 0 {
		rps = 2
	}
	if burst <= 0 {
		burst = 10
	}
	return &deviceLimiters{m: map[string]*rate.Limiter{}, rps: rate.Limit(rps), burst: burst}
}

func (l *deviceLimiters) allow(deviceID string) bool {
	l.mu.Lock()
	lim, ok := l.m[deviceID]
	if !ok {
		lim = rate.NewLimiter(l.rps, l.burst)
		l.m[deviceID] = lim
	}
	l.mu.Unlock()
	return lim.Allow()
}
