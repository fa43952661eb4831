package homograph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetect(t *testing.T) {
	tests := []struct {
		name        string
		host        string
		punycode    bool
		mixedScript bool
		risk        float64
	}{
		{"plain ascii", "example.com", false, false, 0},
		{"cyrillic apple", "xn--80ak6aa92e.com", true, true, 0.15},
		{"punycode subdomain", "login.xn--80ak6aa92e.com", true, true, 0.15},
		{"uppercase is normalized", "XN--80AK6AA92E.COM", true, true, 0.15},
		{"empty", "", false, false, 0},
	}

	d := NewDetector(nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report := d.Detect(tt.host)
			assert.Equal(t, tt.punycode, report.IsPunycode)
			assert.Equal(t, tt.mixedScript, report.LooksLikeMixedScript)
			assert.Equal(t, tt.risk, report.Risk)
		})
	}
}

func TestDetectDecodesIDN(t *testing.T) {
	report := NewDetector(nil).Detect("xn--80ak6aa92e.com")
	require.NotNil(t, report.IDNDecoded)
	assert.Equal(t, "\u0430\u0440\u0440\u04cf\u0435.com", *report.IDNDecoded)
}

func TestDetectMalformedPunycode(t *testing.T) {
	// the flag comes from the prefix alone
	report := NewDetector(nil).Detect("xn--zz--.com")
	assert.True(t, report.IsPunycode)
	assert.False(t, report.LooksLikeMixedScript)
	assert.Equal(t, 0.15, report.Risk)
}
