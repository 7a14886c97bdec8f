package ratelimit

import (
	"context"
	"sync"
	"time"
)

type attemptState struct {
	failures    int
	windowStart time.Time
	lockedUntil time.Time
}

// MemoryLimiter is an in-process Limiter. State is lost on restart and not
// shared between instances; use the Redis limiter when running more than one
// server.
type MemoryLimiter struct {
	mu      sync.Mutex
	clients map[string]*attemptState
	policy  Policy

	now func() time.Time
}

// NewMemoryLimiter constructs a MemoryLimiter with the given policy.
func NewMemoryLimiter(policy Policy) *MemoryLimiter {
	return &MemoryLimiter{
		clients: make(map[string]*attemptState),
		policy:  policy,
		now:     time.Now,
	}
}

func (l *MemoryLimiter) Allow(ctx context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	st, ok := l.clients[key]
	if !ok {
		return true, nil
	}

	now := l.now()
	if now.Before(st.lockedUntil) {
		return false, nil
	}
	if now.Sub(st.windowStart) > l.policy.Window {
		delete(l.clients, key)
		return true, nil
	}
	return true, nil
}

func (l *MemoryLimiter) RecordFailure(ctx context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	st, ok := l.clients[key]
	if !ok || now.Sub(st.windowStart) > l.policy.Window {
		st = &attemptState{windowStart: now}
		l.clients[key] = st
	}

	st.failures++
	if st.failures >= l.policy.MaxFailures {
		st.lockedUntil = now.Add(l.policy.LockDuration)
		st.failures = 0
		st.windowStart = now
	}
	return nil
}

func (l *MemoryLimiter) Reset(ctx context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.clients, key)
	return nil
}
