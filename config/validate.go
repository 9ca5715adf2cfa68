package config

import (
	"fmt"
	"net"
	"strings"
)

var (
	MaxRequestsPerMinute = uint32(60_000)
	validLogLevels       = map[string]struct{}{"debug": {}, "info": {}, "warn": {}, "error": {}}
)

// Validate checks the node configuration and, when embedded, the genesis
// parameters.
func (c *Config) Validate() error {
	if _, _, err := net.SplitHostPort(c.RPCAddress); err != nil {
		return fmt.Errorf("RPCAddress %q: %w", c.RPCAddress, err)
	}
	if strings.TrimSpace(c.DataDir) == "" {
		return fmt.Errorf("DataDir must not be empty")
	}
	if _, ok := validLogLevels[strings.ToLower(c.LogLevel)]; !ok {
		return fmt.Errorf("LogLevel %q: expected debug, info, warn or error", c.LogLevel)
	}
	if c.RateLimit.RequestsPerMinute > MaxRequestsPerMinute {
		return fmt.Errorf("RateLimit.RequestsPerMinute %d exceeds %d", c.RateLimit.RequestsPerMinute, MaxRequestsPerMinute)
	}
	if r := c.Telemetry.SampleRatio; r < 0 || r > 1 {
		return fmt.Errorf("Telemetry.SampleRatio %v outside [0,1]", r)
	}
	for _, proxy := range c.RPC.TrustedProxies {
		if net.ParseIP(strings.TrimSpace(proxy)) == nil {
			return fmt.Errorf("RPC.TrustedProxies: invalid IP %q", proxy)
		}
	}
	if strings.TrimSpace(c.GenesisFile) == "" && c.Genesis != nil {
		if err := c.Genesis.Validate(); err != nil {
			return fmt.Errorf("Genesis: %w", err)
		}
	}
	return nil
}
