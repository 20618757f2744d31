package auth

import (
	"sync"
	"time"
)

const (
	MaxLoginAttempts = 5
	LockoutWindow    = 15 * time.Minute
)

// LoginLimiter counts failed logins per identity. An identity is locked once
// it has MaxLoginAttempts failures inside the window. Each identity keeps at
// most MaxLoginAttempts timestamps, oldest first.
type LoginLimiter struct {
	mu          sync.Mutex
	attempts    map[string][]time.Time
	maxAttempts int
	window      time.Duration
	now         func() time.Time
}

func NewLoginLimiter() *LoginLimiter {
	return NewLoginLimiterWithClock(MaxLoginAttempts, LockoutWindow, time.Now)
}

func NewLoginLimiterWithClock(maxAttempts int, window time.Duration, now func() time.Time) *LoginLimiter {
	return &LoginLimiter{
		attempts:    map[string][]time.Time{},
		maxAttempts: maxAttempts,
		window:      window,
		now:         now,
	}
}

// Allow reports whether identity may attempt a login now.
func (l *LoginLimiter) Allow(identity string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.prune(identity, l.now())) < l.maxAttempts
}

// RecordFailure adds a failed attempt.
func (l *LoginLimiter) RecordFailure(identity string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	attempts := append(l.prune(identity, now), now)
	if len(attempts) > l.maxAttempts {
		attempts = attempts[len(attempts)-l.maxAttempts:]
	}
	l.attempts[identity] = attempts
}

// Reset forgets all failures for identity, after a successful login.
func (l *LoginLimiter) Reset(identity string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.attempts, identity)
}

// RetryAfter is how long until identity may try again, zero when allowed.
func (l *LoginLimiter) RetryAfter(identity string) time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	attempts := l.prune(identity, now)
	if len(attempts) < l.maxAttempts {
		return 0
	}
	return attempts[len(attempts)-l.maxAttempts].Add(l.window).Sub(now)
}

// Sweep evicts every identity whose attempts have all aged out.
func (l *LoginLimiter) Sweep() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	evicted := 0
	for identity := range l.attempts {
		if len(l.prune(identity, now)) == 0 {
			evicted++
		}
	}
	return evicted
}

// prune drops attempts older than the window. Callers hold mu.
func (l *LoginLimiter) prune(identity string, now time.Time) []time.Time {
	attempts := l.attempts[identity]
	i := 0
	for i < len(attempts) && now.Sub(attempts[i]) >= l.window {
		i++
	}
	attempts = attempts[i:]
	if len(attempts) == 0 {
		delete(l.attempts, identity)
		return nil
	}
	l.attempts[identity] = attempts
	return attempts
}
