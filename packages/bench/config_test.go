package bench

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, RateMode, cfg.Mode)
	assert.NoError(t, cfg.Validate())
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"zero duration", func(c *Config) { c.Duration = 0 }, "duration"},
		{"zero rate", func(c *Config) { c.Rate = 0 }, "rate"},
		{"vu mode without vus", func(c *Config) { c.Mode = VUMode; c.VUs = 0 }, "vus"},
		{"vu mode ignores rate", func(c *Config) { c.Mode = VUMode; c.Rate = 0 }, ""},
		{"no in-flight slots", func(c *Config) { c.MaxInFlight = 0 }, "in-flight"},
		{"negative ramp-up", func(c *Config) { c.RampUp = -time.Second }, "ramp-up"},
		{"ramp-up too long", func(c *Config) { c.RampUp = time.Hour }, "exceed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("VU")
	require.NoError(t, err)
	assert.Equal(t, VUMode, m)
	assert.Equal(t, "vu", m.String())

	m, err = ParseMode("")
	require.NoError(t, err)
	assert.Equal(t, RateMode, m)

	_, err = ParseMode("burst")
	assert.Error(t, err)
}

func TestParseThresholds(t *testing.T) {
	th, err := ParseThresholds("p50<50ms, p95<=200ms,p99<1s,max<2s,errors<1%,rps>=25")
	require.NoError(t, err)
	assert.Equal(t, Thresholds{
		P50:        50 * time.Millisecond,
		P95:        200 * time.Millisecond,
		P99:        time.Second,
		MaxLatency: 2 * time.Second,
		ErrorRate:  0.01,
		MinRPS:     25,
	}, th)

	th, err = ParseThresholds("errors<0.05")
	require.NoError(t, err)
	assert.InDelta(t, 0.05, th.ErrorRate, 1e-9)

	th, err = ParseThresholds("")
	require.NoError(t, err)
	assert.True(t, th.IsZero())
}

func TestParseThresholds_Errors(t *testing.T) {
	for _, input := range []string{
		"p95",
		"p95>200ms",
		"p95<fast",
		"rps<10",
		"errors>1%",
		"latency<1s",
	} {
		t.Run(input, func(t *testing.T) {
			_, err := ParseThresholds(input)
			assert.Error(t, err)
		})
	}
}
