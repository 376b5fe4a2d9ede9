package server

import (
	"github.com/coder/quartz"
	"golang.org/x/time/rate"
)

// Token bucket parameters. Every inbound frame draws from the action bucket;
// chat frames additionally draw from the stricter chat bucket.
const (
	actionBurst  = 100
	actionRefill = rate.Limit(10)
	chatBurst    = 5
	chatRefill   = rate.Limit(1)
)

// rateLimiter holds one connection's token buckets. Admission timestamps
// come from the injected clock so tests can advance time instead of
// sleeping.
type rateLimiter struct {
	clock   quartz.Clock
	actions *rate.Limiter
	chat    *rate.Limiter
}

func newRateLimiter(clock quartz.Clock) *rateLimiter {
	return &rateLimiter{
		clock:   clock,
		actions: rate.NewLimiter(actionRefill, actionBurst),
		chat:    rate.NewLimiter(chatRefill, chatBurst),
	}
}

// AllowAction consumes one action token, reporting whether the frame may be
// dispatched.
func (l *rateLimiter) AllowAction() bool {
	return l.actions.AllowN(l.clock.Now(), 1)
}

// AllowChat consumes one chat token.
func (l *rateLimiter) AllowChat() bool {
	return l.chat.AllowN(l.clock.Now(), 1)
}
