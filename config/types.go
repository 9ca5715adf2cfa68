package config

import "time"

// RPC holds the HTTP server timeouts in seconds.
type RPC struct {
	ReadHeaderTimeout int      `toml:"ReadHeaderTimeout"`
	ReadTimeout       int      `toml:"ReadTimeout"`
	WriteTimeout      int      `toml:"WriteTimeout"`
	IdleTimeout       int      `toml:"IdleTimeout"`
	MaxBodyBytes      int64    `toml:"MaxBodyBytes"`
	TrustedProxies    []string `toml:"TrustedProxies"`
}

func (r *RPC) applyDefaults() {
	if r.ReadHeaderTimeout <= 0 {
		r.ReadHeaderTimeout = 5
	}
	if r.ReadTimeout <= 0 {
		r.ReadTimeout = 15
	}
	if r.WriteTimeout <= 0 {
		r.WriteTimeout = 15
	}
	if r.IdleTimeout <= 0 {
		r.IdleTimeout = 60
	}
	if r.MaxBodyBytes <= 0 {
		r.MaxBodyBytes = 1 << 20
	}
}

func seconds(v int) time.Duration { return time.Duration(v) * time.Second }

func (r RPC) ReadHeaderTimeoutDuration() time.Duration { return seconds(r.ReadHeaderTimeout) }
func (r RPC) ReadTimeoutDuration() time.Duration       { return seconds(r.ReadTimeout) }
func (r RPC) WriteTimeoutDuration() time.Duration      { return seconds(r.WriteTimeout) }
func (r RPC) IdleTimeoutDuration() time.Duration       { return seconds(r.IdleTimeout) }

// RateLimit bounds JSON-RPC requests per client address.
type RateLimit struct {
	RequestsPerMinute uint32 `toml:"RequestsPerMinute"`
	Burst             int    `toml:"Burst"`
}

func (r *RateLimit) applyDefaults() {
	if r.RequestsPerMinute == 0 {
		r.RequestsPerMinute = 600
	}
	if r.Burst <= 0 {
		r.Burst = 60
	}
}

// Telemetry configures the OTLP exporters.
type Telemetry struct {
	Endpoint string `toml:"Endpoint"`
	Insecure bool   `toml:"Insecure"`
	Headers  string `toml:"Headers"`
	Metrics  bool   `toml:"Metrics"`
	Traces   bool   `toml:"Traces"`
	// SampleRatio is the fraction of traces exported; zero exports all.
	SampleRatio float64 `toml:"SampleRatio"`
}

func (t *Telemetry) applyDefaults() {
	if t.Endpoint == "" {
		t.Endpoint = "localhost:4318"
	}
}

// Enabled reports whether any exporter is switched on.
func (t Telemetry) Enabled() bool { return t.Metrics || t.Traces }
