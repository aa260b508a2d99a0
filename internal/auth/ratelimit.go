package auth

import (
	"sync"
	"time"
)

const (
	loginMaxAttempts = 5
	loginWindow      = 5 * time.Minute
)

type attemptWindow struct {
	count int
	start time.Time
}

// LoginLimiter is a process-local fixed-window counter of failed logins per
// source address. Restart resets all counters; that trade-off is intentional.
type LoginLimiter struct {
	mu       sync.Mutex
	attempts map[string]attemptWindow
	now      func() time.Time
}

func NewLoginLimiter() *LoginLimiter {
	return &LoginLimiter{attempts: make(map[string]attemptWindow), now: time.Now}
}

// Allow reports whether addr may attempt a login. An expired window is
// dropped as a side effect.
func (l *LoginLimiter) Allow(addr string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	w, ok := l.attempts[addr]
	if !ok {
		return true
	}
	if l.now().Sub(w.start) > loginWindow {
		delete(l.attempts, addr)
		return true
	}
	return w.count < loginMaxAttempts
}

// Fail records a failed attempt, resetting the window if it has expired.
func (l *LoginLimiter) Fail(addr string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	w, ok := l.attempts[addr]
	if !ok || now.Sub(w.start) > loginWindow {
		l.attempts[addr] = attemptWindow{count: 1, start: now}
		return
	}
	w.count++
	l.attempts[addr] = w
}

// Clear removes the counter for addr, called on successful login.
func (l *LoginLimiter) Clear(addr string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.attempts, addr)
}
