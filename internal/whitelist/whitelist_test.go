package whitelist

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsWhitelisted(t *testing.T) {
	c := NewChecker(DefaultDomains, nil)

	tests := []struct {
		from     string
		expected bool
	}{
		{"google.com", true},
		{"mail.google.com", true},
		{"alice@Mail.Google.com", true},
		{"notgoogle.com", false},
		{"google.com.evil.test", false},
		{"random-domain.test", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.from, func(t *testing.T) {
			assert.Equal(t, tt.expected, c.IsWhitelisted(tt.from))
		})
	}
}

func TestEmptyWhitelist(t *testing.T) {
	c := NewChecker(nil, nil)
	assert.False(t, c.IsWhitelisted("google.com"))
}

func TestAttenuate(t *testing.T) {
	c := NewChecker([]string{" Google.com "}, nil)
	sub := "mail.google.com"
	other := "random-domain.test"

	tests := []struct {
		name     string
		prob     float64
		domain   *string
		expected float64
	}{
		{"subdomain attenuated", 0.8, &sub, 0.7},
		{"floored at zero", 0.05, &sub, 0},
		{"zero stays zero", 0, &sub, 0},
		{"other domain unchanged", 0.8, &other, 0.8},
		{"no domain unchanged", 0.8, nil, 0.8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.Attenuate(tt.prob, tt.domain)
			assert.InDelta(t, tt.expected, got, 1e-9)
			assert.LessOrEqual(t, got, tt.prob)
			assert.GreaterOrEqual(t, got, 0.0)
		})
	}
}
