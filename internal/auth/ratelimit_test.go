package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoginLimiterBlocksSixthAttempt(t *testing.T) {
	l := NewLoginLimiter()
	for i := 0; i < 5; i++ {
		require.True(t, l.Allow("10.0.0.1"))
		l.Fail("10.0.0.1")
	}
	require.False(t, l.Allow("10.0.0.1"))
	require.True(t, l.Allow("10.0.0.2"), "other addresses are unaffected")
}

func TestLoginLimiterWindowExpiry(t *testing.T) {
	now := time.Now()
	l := NewLoginLimiter()
	l.now = func() time.Time { return now }

	for i := 0; i < 7; i++ {
		l.Fail("10.0.0.1")
	}
	require.False(t, l.Allow("10.0.0.1"))

	now = now.Add(loginWindow + time.Second)
	require.True(t, l.Allow("10.0.0.1"), "expired window must reset regardless of prior count")

	l.Fail("10.0.0.1")
	require.True(t, l.Allow("10.0.0.1"))
}

func TestLoginLimiterClear(t *testing.T) {
	l := NewLoginLimiter()
	for i := 0; i < 5; i++ {
		l.Fail("10.0.0.1")
	}
	require.False(t, l.Allow("10.0.0.1"))
	l.Clear("10.0.0.1")
	require.True(t, l.Allow("10.0.0.1"))
}

func TestLoginLimiterFailAfterExpiryResets(t *testing.T) {
	now := time.Now()
	l := NewLoginLimiter()
	l.now = func() time.Time { return now }

	for i := 0; i < 5; i++ {
		l.Fail("10.0.0.1")
	}
	now = now.Add(loginWindow + time.Minute)
	l.Fail("10.0.0.1")
	require.True(t, l.Allow("10.0.0.1"), "stale window restarts at count 1")
}
