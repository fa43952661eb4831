package config

import (
	"testing"
	"time"

	"github.com/mikey/phish-fusion/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultWeightsMatchEngineDefaults(t *testing.T) {
	cfg := NewFromViper(NewEmptyViper())

	assert.Equal(t, core.DefaultHeaderWeights(), cfg.GetHeaderWeights())
	assert.Equal(t, core.DefaultNoHeaderWeights(), cfg.GetNoHeaderWeights())
}

func TestDefaults(t *testing.T) {
	cfg := NewFromViper(NewEmptyViper())

	classifier := cfg.GetClassifier()
	assert.Equal(t, "openai", classifier.Provider)
	assert.Equal(t, []string{"Financial Fraud", "Lottery Scam", "Malware", "Phishing", "Promotional"}, classifier.Categories)

	trust, err := cfg.GetTrust()
	require.NoError(t, err)
	assert.True(t, trust.Enabled)
	assert.Equal(t, 4*time.Second, trust.TLSTimeout)
	assert.Equal(t, 8*time.Second, trust.WhoisTimeout)
	assert.Equal(t, 443, trust.TLSPort)
	assert.Equal(t, uint64(2), trust.WhoisRetries)

	cache, err := cfg.GetCache()
	require.NoError(t, err)
	assert.Equal(t, "memory", cache.Type)
	assert.Zero(t, cache.TTL)
	assert.Equal(t, time.Hour, cache.CleanupFrequency)

	assert.Len(t, cfg.GetStringSlice("spam.whitelisted_domains"), 9)
}

func TestOverrides(t *testing.T) {
	v := NewEmptyViper()
	v.Set("fusion.weights.headers.header", 0.5)
	v.Set("trust.whois_retries", -3)
	v.Set("cache.ttl", "72h")
	cfg := NewFromViper(v)

	assert.InDelta(t, 0.5, cfg.GetHeaderWeights().Header, 1e-9)

	trust, err := cfg.GetTrust()
	require.NoError(t, err)
	assert.Zero(t, trust.WhoisRetries)

	cache, err := cfg.GetCache()
	require.NoError(t, err)
	assert.Equal(t, 72*time.Hour, cache.TTL)
}

func TestInvalidDuration(t *testing.T) {
	v := NewEmptyViper()
	v.Set("trust.tls_timeout", "soon")
	_, err := NewFromViper(v).GetTrust()
	assert.Error(t, err)
}
