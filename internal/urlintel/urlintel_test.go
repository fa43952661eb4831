package urlintel

import (
	"fmt"
	"strings"
	"testing"

	"github.com/mikey/phish-fusion/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractURLs(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		expected []string
	}{
		{"empty", "", nil},
		{"no urls", "hello there, nothing to see", nil},
		{"single", "click https://example.com/login now", []string{"https://example.com/login"}},
		{"keeps order and duplicates",
			"a http://a.test b HTTPS://b.test c http://a.test",
			[]string{"http://a.test", "HTTPS://b.test", "http://a.test"}},
		{"stops at whitespace and angle brackets",
			"<a href=x>http://x.test/p?q=1</a>",
			[]string{"http://x.test/p?q=1"}},
		{"accented host",
			"click http://ex\u00e4mple.zip/a/b/c/d/e now",
			[]string{"http://ex\u00e4mple.zip/a/b/c/d/e"}},
		{"cyrillic look-alike host",
			"see https://\u0440\u0430\u0443\u0440\u0430l.com/login",
			[]string{"https://\u0440\u0430\u0443\u0440\u0430l.com/login"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ExtractURLs(tt.text))
		})
	}
}

func TestAnalyzeURLs(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		expected core.ExtractedURL
	}{
		{
			name: "suspicious tld",
			url:  "http://Login.Example.XYZ/a",
			expected: core.ExtractedURL{
				URL: "http://Login.Example.XYZ/a", Host: "login.example.xyz", TLD: "xyz",
				IsSuspiciousTLD: true, PathDepth: 1,
			},
		},
		{
			name: "ip host with port",
			url:  "http://10.0.0.1:8080/",
			expected: core.ExtractedURL{
				URL: "http://10.0.0.1:8080/", Host: "10.0.0.1", TLD: "1", HasIPHost: true,
			},
		},
		{
			name: "punycode",
			url:  "https://xn--pple-43d.com",
			expected: core.ExtractedURL{
				URL: "https://xn--pple-43d.com", Host: "xn--pple-43d.com", TLD: "com", IsPunycode: true,
			},
		},
		{
			name: "host without dot has no tld",
			url:  "http://localhost/x//y/",
			expected: core.ExtractedURL{
				URL: "http://localhost/x//y/", Host: "localhost", PathDepth: 2,
			},
		},
		{
			name:     "malformed",
			url:      "http://bad%zzhost/",
			expected: core.ExtractedURL{URL: "http://bad%zzhost/"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			findings := AnalyzeURLs([]string{tt.url})
			require.Len(t, findings, 1)
			assert.Equal(t, tt.expected, findings[0])
		})
	}
}

func TestAnalyzeURLsCapsAtLimit(t *testing.T) {
	urls := make([]string, 0, 1000)
	for i := 0; i < 1000; i++ {
		urls = append(urls, fmt.Sprintf("http://host%d.zip/", i))
	}

	findings := AnalyzeURLs(urls)
	assert.Len(t, findings, core.MaxURLs)
	assert.Equal(t, 1.0, ComputeURLRisk(findings))
}

func TestComputeURLRisk(t *testing.T) {
	assert.Equal(t, 0.0, ComputeURLRisk(nil))
	assert.Equal(t, 0.0, ComputeURLRisk(AnalyzeURLs([]string{"https://example.com/"})))
	assert.InDelta(t, 0.15, ComputeURLRisk(AnalyzeURLs([]string{"https://promo.top/"})), 1e-9)
	assert.InDelta(t, 0.30, ComputeURLRisk(AnalyzeURLs([]string{"https://a.top/", "https://b.top/"})), 1e-9)
}

func TestAssessIPHostDeepPathLongQuery(t *testing.T) {
	body := "Please review http://192.168.1.1/a/b/c/d/e?x=" + strings.Repeat("q", 90) + " today"

	report := NewAnalyzer(nil).Assess(body)

	require.Len(t, report.Findings, 1)
	f := report.Findings[0]
	assert.True(t, f.HasIPHost)
	assert.Equal(t, 5, f.PathDepth)
	assert.True(t, f.LongQuery)
	assert.False(t, f.IsSuspiciousTLD)
	assert.InDelta(t, 0.20, report.Risk, 1e-9)
	assert.True(t, report.HasRiskyURL())
	assert.Equal(t, "192.168.1.1", report.FirstHost())
}

func TestAssessNoURLs(t *testing.T) {
	report := NewAnalyzer(nil).Assess("plain text")
	assert.Empty(t, report.URLs)
	assert.Empty(t, report.Findings)
	assert.Equal(t, 0.0, report.Risk)
	assert.False(t, report.HasRiskyURL())
}

func TestAssessUnicodeHost(t *testing.T) {
	report := NewAnalyzer(nil).Assess("click http://ex\u00e4mple.zip/a/b/c/d/e now")

	require.Len(t, report.Findings, 1)
	u := report.Findings[0]
	assert.Equal(t, "ex\u00e4mple.zip", u.Host)
	assert.Equal(t, "zip", u.TLD)
	assert.True(t, u.IsSuspiciousTLD)
	assert.Equal(t, 5, u.PathDepth)
	assert.InDelta(t, 0.20, report.Risk, 1e-9)
	assert.True(t, report.HasRiskyURL())
}
