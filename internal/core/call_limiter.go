package core

// call_limiter.go caps concurrent model calls across all sessions.
//
// The limiter is a semaphore: when every slot is taken, a caller waits up to
// maxWait and then fails with ErrTooManyRequests. There is no queueing beyond
// that wait and no retry.

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrTooManyRequests is returned when no call slot frees up within the wait
// time.
var ErrTooManyRequests = errors.New("too many concurrent requests, please try again later")

// DefaultMaxConcurrentCalls is the default limit for parallel model calls.
const DefaultMaxConcurrentCalls = 4

// DefaultMaxWaitTime is how long to wait for a slot before rejecting.
const DefaultMaxWaitTime = 10 * time.Second

// CallLimiter bounds the number of in-flight upstream calls.
type CallLimiter struct {
	semaphore chan struct{}
	maxWait   time.Duration

	mu       sync.RWMutex
	active   int
	rejected int64
}

// NewCallLimiter creates a limiter allowing maxConcurrent simultaneous calls.
// Non-positive arguments fall back to the defaults.
func NewCallLimiter(maxConcurrent int, maxWait time.Duration) *CallLimiter {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrentCalls
	}
	if maxWait <= 0 {
		maxWait = DefaultMaxWaitTime
	}

	return &CallLimiter{
		semaphore: make(chan struct{}, maxConcurrent),
		maxWait:   maxWait,
	}
}

// Acquire takes a call slot, waiting up to the limiter's wait time.
// The caller MUST call Release when the call completes (use defer).
func (l *CallLimiter) Acquire(ctx context.Context) error {
	waitCtx, cancel := context.WithTimeout(ctx, l.maxWait)
	defer cancel()

	select {
	case l.semaphore <- struct{}{}:
		l.mu.Lock()
		l.active++
		l.mu.Unlock()
		return nil

	case <-waitCtx.Done():
		if ctx.Err() != nil {
			return ctx.Err()
		}
		l.mu.Lock()
		l.rejected++
		l.mu.Unlock()
		return ErrTooManyRequests
	}
}

// Release frees a slot taken by Acquire.
func (l *CallLimiter) Release() {
	l.mu.Lock()
	l.active--
	l.mu.Unlock()

	<-l.semaphore
}

// ActiveCount returns the number of calls currently holding a slot.
func (l *CallLimiter) ActiveCount() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.active
}

// WaitForDrain blocks until no calls are active or ctx is done. Used during
// shutdown so in-flight questions get their answer.
func (l *CallLimiter) WaitForDrain(ctx context.Context) error {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		if l.ActiveCount() == 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// CallLimiterStatus is a snapshot of the limiter for the status endpoint.
type CallLimiterStatus struct {
	Active        int   `json:"active"`
	Available     int   `json:"available"`
	MaxConcurrent int   `json:"max_concurrent"`
	Rejected      int64 `json:"rejected"`
}

// Status returns the current limiter state.
func (l *CallLimiter) Status() CallLimiterStatus {
	l.mu.RLock()
	active, rejected := l.active, l.rejected
	l.mu.RUnlock()

	return CallLimiterStatus{
		Active:        active,
		Available:     cap(l.semaphore) - len(l.semaphore),
		MaxConcurrent: cap(l.semaphore),
		Rejected:      rejected,
	}
}
