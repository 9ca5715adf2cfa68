package rpc

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type throttleCounter struct{ count int }

func (c *throttleCounter) RecordThrottle() { c.count++ }

func TestRateLimiterRefillsOverTime(t *testing.T) {
	counter := &throttleCounter{}
	limiter := NewRateLimiter(RateLimit{RequestsPerMinute: 60, Burst: 1}, counter)
	now := time.Unix(1_700_000_000, 0)
	limiter.clockNow = func() time.Time { return now }

	require.True(t, limiter.Allow("10.0.0.1"))
	require.False(t, limiter.Allow("10.0.0.1"))
	require.True(t, limiter.Allow("10.0.0.2"))

	now = now.Add(time.Second)
	require.True(t, limiter.Allow("10.0.0.1"))
}

func TestRateLimiterEvictsIdleVisitors(t *testing.T) {
	limiter := NewRateLimiter(RateLimit{RequestsPerMinute: 60, Burst: 1}, nil)
	now := time.Unix(1_700_000_000, 0)
	limiter.clockNow = func() time.Time { return now }

	require.True(t, limiter.Allow("10.0.0.1"))
	now = now.Add(visitorTTL + time.Second)
	limiter.Allow("10.0.0.2")
	_, ok := limiter.visitors["10.0.0.1"]
	require.False(t, ok)
}

func TestClientIDHonoursTrustedProxies(t *testing.T) {
	srv := &Server{trusted: map[string]struct{}{"10.0.0.9": {}}}

	req := httptest.NewRequest("POST", "/rpc", nil)
	req.RemoteAddr = "10.0.0.9:5555"
	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.9")
	require.Equal(t, "203.0.113.7", srv.clientID(req))

	req.RemoteAddr = "198.51.100.1:4444"
	require.Equal(t, "198.51.100.1", srv.clientID(req))
}
