// Package ratelimit throttles repeated login failures per client. A client
// that fails too many times inside the window is locked out for a fixed
// period; a successful login clears its counter.
package ratelimit

import (
	"context"
	"time"
)

// Default policy: 5 failures within 15 minutes locks the client for 10 minutes.
const (
	DefaultMaxFailures  = 5
	DefaultWindow       = 15 * time.Minute
	DefaultLockDuration = 10 * time.Minute
)

// Limiter tracks login failures per client key (normally the remote IP).
type Limiter interface {
	// Allow reports whether the client may attempt a login right now.
	Allow(ctx context.Context, key string) (bool, error)

	// RecordFailure counts one failed attempt against the client.
	RecordFailure(ctx context.Context, key string) error

	// Reset clears the client's counter, typically after a successful login.
	Reset(ctx context.Context, key string) error
}

// Policy bundles the limiter thresholds.
type Policy struct {
	MaxFailures  int
	Window       time.Duration
	LockDuration time.Duration
}

// DefaultPolicy returns the default thresholds.
func DefaultPolicy() Policy {
	return Policy{
		MaxFailures:  DefaultMaxFailures,
		Window:       DefaultWindow,
		LockDuration: DefaultLockDuration,
	}
}
