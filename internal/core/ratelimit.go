package core

import "time"

// rateLimiter caps inbound lines per fixed window. It is owned by a single
// reader loop and needs no locking.
type rateLimiter struct {
	limit   int
	window  time.Duration
	started time.Time
	counter int
	now     func() time.Time
}

func newRateLimiter(limit int) *rateLimiter {
	if limit <= 0 {
		return nil
	}
	return &rateLimiter{
		limit:  limit,
		window: time.Minute,
		now:    time.Now,
	}
}

func (r *rateLimiter) allow() bool {
	if r == nil {
		return true
	}
	t := r.now()
	if t.Sub(r.started) >= r.window {
		r.started = t
		r.counter = 0
	}
	r.counter++
	return r.counter <= r.limit
}
