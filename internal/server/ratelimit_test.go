package server

import (
	"testing"
	"time"

	"github.com/coder/quartz"
	"github.com/stretchr/testify/assert"
)

func TestRateLimiterActions(t *testing.T) {
	clock := quartz.NewMock(t)
	l := newRateLimiter(clock)

	for i := 0; i < actionBurst; i++ {
		assert.True(t, l.AllowAction(), "action %d within burst", i)
	}
	assert.False(t, l.AllowAction(), "burst exhausted")

	// Refill is 10 tokens per second.
	clock.Advance(1 * time.Second)
	for i := 0; i < 10; i++ {
		assert.True(t, l.AllowAction(), "refilled action %d", i)
	}
	assert.False(t, l.AllowAction())
}

func TestRateLimiterChat(t *testing.T) {
	clock := quartz.NewMock(t)
	l := newRateLimiter(clock)

	for i := 0; i < chatBurst; i++ {
		assert.True(t, l.AllowChat(), "chat %d within burst", i)
	}
	assert.False(t, l.AllowChat(), "burst exhausted")

	clock.Advance(1 * time.Second)
	assert.True(t, l.AllowChat())
	assert.False(t, l.AllowChat())
}

func TestRateLimitersIndependent(t *testing.T) {
	clock := quartz.NewMock(t)
	l := newRateLimiter(clock)

	for i := 0; i < chatBurst; i++ {
		l.AllowChat()
	}
	assert.False(t, l.AllowChat())
	assert.True(t, l.AllowAction(), "chat exhaustion must not affect actions")
}
